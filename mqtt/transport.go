// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package mqtt

import "github.com/absmach/edgeio/mqtt/packets"

// Transport is the network interface the client drives. Implementations
// wrap a TCP, TLS, DTLS or WebSocket connection; the transport package
// provides ready-made dialers.
//
// Both calls are expected to return promptly. Recv returning (0, nil)
// means no data is currently available, which the client treats as an
// idle signal rather than an error; non-blocking semantics are the
// transport's responsibility.
type Transport interface {
	// Send writes p and returns the number of bytes written. A short
	// write is surfaced to the session as ErrSendFailed.
	Send(p []byte) (int, error)

	// Recv reads up to len(p) bytes into p.
	Recv(p []byte) (int, error)
}

// TimeFunc returns a monotonic millisecond timestamp. Interval checks use
// uint32 wraparound subtraction, so the absolute epoch does not matter.
type TimeFunc func() uint32

// EventHandler is invoked once for every received application-visible
// packet: PUBLISH, the PUBACK/PUBREC/PUBREL/PUBCOMP family, SUBACK,
// UNSUBACK and PINGRESP. pub is non-nil only for PUBLISH and aliases the
// client's network buffer; it is valid only for the duration of the call.
// packetID is zero for packets that carry no identifier.
type EventHandler func(c *Client, info packets.PacketInfo, packetID uint16, pub *packets.PublishInfo)
