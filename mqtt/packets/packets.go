// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package packets implements an MQTT 3.1.1 control-packet codec over
// caller-supplied fixed-size buffers.
//
// Every serialize function computes the exact packet size before touching
// the output buffer and fails with ErrInsufficientMemory when the buffer
// is too small, so a failed call never leaves partially written bytes
// behind. Deserialize functions borrow the input buffer; returned strings
// and payload slices alias it and are only valid until the buffer is
// reused for the next packet.
package packets

// Packet type constants, high nibble of the first fixed-header byte.
const (
	ConnectType = iota + 1 // 0 value is forbidden
	ConnAckType
	PublishType
	PubAckType
	PubRecType
	PubRelType
	PubCompType
	SubscribeType
	SubAckType
	UnsubscribeType
	UnsubAckType
	PingReqType
	PingRespType
	DisconnectType
)

// PacketNames maps packet type constants to string names.
var PacketNames = map[byte]string{
	ConnectType:     "CONNECT",
	ConnAckType:     "CONNACK",
	PublishType:     "PUBLISH",
	PubAckType:      "PUBACK",
	PubRecType:      "PUBREC",
	PubRelType:      "PUBREL",
	PubCompType:     "PUBCOMP",
	SubscribeType:   "SUBSCRIBE",
	SubAckType:      "SUBACK",
	UnsubscribeType: "UNSUBSCRIBE",
	UnsubAckType:    "UNSUBACK",
	PingReqType:     "PINGREQ",
	PingRespType:    "PINGRESP",
	DisconnectType:  "DISCONNECT",
}

// QoS levels.
const (
	QoS0 byte = iota // at most once
	QoS1             // at least once
	QoS2             // exactly once
)

// MaxRemainingLength is the largest value representable by the MQTT
// variable-byte remaining-length encoding (4 bytes of 7 payload bits).
const MaxRemainingLength = 268_435_455

// Reserved flag bits for PUBREL, SUBSCRIBE and UNSUBSCRIBE packets
// [MQTT-2.2.2-1].
const reservedFlags = 0x02

// PacketInfo describes one incoming packet's fixed header. It is produced
// by ReadIncoming and consumed by the Deserialize functions together with
// the packet body read separately by the caller.
type PacketInfo struct {
	// Type is the packet type constant (high nibble of the header byte).
	Type byte
	// Flags is the low nibble of the header byte.
	Flags byte
	// RemainingLength is the byte count of variable header plus payload.
	RemainingLength int
}

// RecvFunc reads up to len(p) bytes from the transport. A return of
// (0, nil) means no data is currently available.
type RecvFunc func(p []byte) (int, error)
