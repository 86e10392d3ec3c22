// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package mqtt

import (
	"errors"

	"github.com/absmach/edgeio/mqtt/packets"
)

// Client errors. The codec-level kinds are shared with the packets
// package so callers can match either with errors.Is.
var (
	// ErrBadParameter indicates a caller-side contract violation: a nil,
	// zero or otherwise invalid argument. Checked before any I/O.
	ErrBadParameter = packets.ErrBadParameter

	// ErrInsufficientMemory indicates the network buffer or the in-flight
	// tracker is too small for the requested operation. Checked before
	// any partial write occurs.
	ErrInsufficientMemory = packets.ErrInsufficientMemory

	// ErrBadResponse indicates malformed or protocol-violating bytes
	// received from the peer.
	ErrBadResponse = packets.ErrBadResponse

	// ErrRecvFailed indicates the transport failed while receiving.
	ErrRecvFailed = packets.ErrRecvFailed

	// ErrSendFailed indicates the transport reported an error or a short
	// write. Short writes are never retried; the session should be torn
	// down by the caller.
	ErrSendFailed = errors.New("transport send failed")

	// ErrIllegalState indicates a delivery-state transition that is not
	// defined for the packet's current recorded state: either a peer
	// protocol violation or a bug. Fatal to that packet exchange.
	ErrIllegalState = errors.New("illegal delivery state transition")

	// ErrKeepAliveTimeout indicates the peer did not answer a PINGREQ
	// within the response timeout. The session is no longer usable.
	ErrKeepAliveTimeout = errors.New("keep-alive timeout: no PINGRESP received")

	// ErrConnectTimeout indicates no CONNACK arrived within the budget
	// given to Connect.
	ErrConnectTimeout = errors.New("timed out waiting for CONNACK")

	// ErrConnectRejected wraps the CONNACK return code of a refused
	// connection attempt.
	ErrConnectRejected = errors.New("connection rejected by broker")

	// ErrNotSupported is reserved for optional operations this client
	// does not implement.
	ErrNotSupported = errors.New("operation not supported")
)
