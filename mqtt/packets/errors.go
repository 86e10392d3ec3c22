// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import "errors"

// Codec errors.
var (
	// ErrBadParameter indicates a caller-side contract violation: a nil or
	// zero-valued required argument. Checked eagerly, before any I/O.
	ErrBadParameter = errors.New("bad packet parameter")

	// ErrInsufficientMemory indicates the caller-supplied buffer cannot
	// hold the packet. Detected before any byte is written.
	ErrInsufficientMemory = errors.New("buffer too small for packet")

	// ErrBadResponse indicates malformed or protocol-violating bytes
	// received from the peer.
	ErrBadResponse = errors.New("malformed packet received")

	// ErrNoDataAvailable is returned by ReadIncoming when the transport
	// has no bytes to read. It is an idle signal, not a failure.
	ErrNoDataAvailable = errors.New("no data available")

	// ErrRecvFailed indicates the transport failed mid-read, including a
	// zero-byte read after part of a fixed header was already consumed.
	ErrRecvFailed = errors.New("transport recv failed")
)
