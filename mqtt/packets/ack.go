// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

// ackPacketSize is the full size of a PUBACK/PUBREC/PUBREL/PUBCOMP
// packet: fixed header plus a 2-byte packet identifier.
const ackPacketSize = 4

// pingreqPacketSize is the full size of a PINGREQ or DISCONNECT packet:
// a fixed header with zero remaining length.
const pingreqPacketSize = 2

// SerializeAck writes a PUBACK, PUBREC, PUBREL or PUBCOMP packet into buf
// and returns the number of bytes written.
func SerializeAck(ackType byte, packetID uint16, buf []byte) (int, error) {
	switch ackType {
	case PubAckType, PubRecType, PubRelType, PubCompType:
	default:
		return 0, ErrBadParameter
	}
	if packetID == 0 {
		return 0, ErrBadParameter
	}
	if len(buf) < ackPacketSize {
		return 0, ErrInsufficientMemory
	}

	buf[0] = ackType << 4
	if ackType == PubRelType {
		buf[0] |= reservedFlags
	}
	buf[1] = 2
	encodeUint16(buf[2:], packetID)
	return ackPacketSize, nil
}

// DeserializeAck decodes the body of a PUBACK, PUBREC, PUBREL or PUBCOMP
// packet and returns the packet identifier it acknowledges.
func DeserializeAck(info PacketInfo, body []byte) (uint16, error) {
	switch info.Type {
	case PubAckType, PubRecType, PubCompType:
		if info.Flags != 0 {
			return 0, ErrBadResponse
		}
	case PubRelType:
		// PUBREL carries the reserved flag bits [MQTT-3.6.1-1].
		if info.Flags != reservedFlags {
			return 0, ErrBadResponse
		}
	default:
		return 0, ErrBadParameter
	}
	if info.RemainingLength != 2 || len(body) < 2 {
		return 0, ErrBadResponse
	}

	packetID, _, err := decodeUint16(body, 0)
	if err != nil {
		return 0, err
	}
	if packetID == 0 {
		return 0, ErrBadResponse
	}
	return packetID, nil
}

// SerializePingreq writes a PINGREQ packet into buf.
func SerializePingreq(buf []byte) (int, error) {
	if len(buf) < pingreqPacketSize {
		return 0, ErrInsufficientMemory
	}
	buf[0] = PingReqType << 4
	buf[1] = 0
	return pingreqPacketSize, nil
}

// SerializeDisconnect writes a DISCONNECT packet into buf.
func SerializeDisconnect(buf []byte) (int, error) {
	if len(buf) < pingreqPacketSize {
		return 0, ErrInsufficientMemory
	}
	buf[0] = DisconnectType << 4
	buf[1] = 0
	return pingreqPacketSize, nil
}
