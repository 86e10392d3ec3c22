// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

// ConnAckCode represents MQTT 3.1.1 CONNACK return codes.
type ConnAckCode byte

const (
	ConnAccepted           ConnAckCode = 0x00
	ConnRefusedProtocol    ConnAckCode = 0x01
	ConnRefusedIDRejected  ConnAckCode = 0x02
	ConnRefusedUnavailable ConnAckCode = 0x03
	ConnRefusedBadAuth     ConnAckCode = 0x04
	ConnRefusedNotAuth     ConnAckCode = 0x05
)

// String returns a human-readable description of the CONNACK code.
func (c ConnAckCode) String() string {
	switch c {
	case ConnAccepted:
		return "connection accepted"
	case ConnRefusedProtocol:
		return "unacceptable protocol version"
	case ConnRefusedIDRejected:
		return "client identifier rejected"
	case ConnRefusedUnavailable:
		return "server unavailable"
	case ConnRefusedBadAuth:
		return "bad username or password"
	case ConnRefusedNotAuth:
		return "not authorized"
	default:
		return "unknown error"
	}
}

// Error implements the error interface so a refused code can be returned
// directly as the connect failure reason.
func (c ConnAckCode) Error() string {
	return c.String()
}

// DeserializeConnack decodes a CONNACK packet body.
func DeserializeConnack(info PacketInfo, body []byte) (sessionPresent bool, code ConnAckCode, err error) {
	if info.Type != ConnAckType {
		return false, 0, ErrBadParameter
	}
	if info.RemainingLength != 2 || len(body) < 2 {
		return false, 0, ErrBadResponse
	}
	// Bits 7-1 of the acknowledge flags byte are reserved [MQTT-3.2.2-1].
	if body[0]&0xFE != 0 {
		return false, 0, ErrBadResponse
	}
	code = ConnAckCode(body[1])
	if code > ConnRefusedNotAuth {
		return false, 0, ErrBadResponse
	}
	return body[0]&0x01 > 0, code, nil
}
