// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

// GetUnsubscribePacketSize computes the remaining length and full packet
// size of an UNSUBSCRIBE packet for the given subscription list.
func GetUnsubscribePacketSize(subs []Subscription) (remaining, total int, err error) {
	if len(subs) == 0 {
		return 0, 0, ErrBadParameter
	}

	remaining = 2 // packet identifier
	for i := range subs {
		if subs[i].TopicFilter == "" {
			return 0, 0, ErrBadParameter
		}
		remaining += 2 + len(subs[i].TopicFilter)
	}
	if remaining > MaxRemainingLength {
		return 0, 0, ErrBadParameter
	}
	return remaining, 1 + remainingLengthSize(remaining) + remaining, nil
}

// SerializeUnsubscribe writes the UNSUBSCRIBE packet into buf and returns
// the number of bytes written. packetID must be non-zero [MQTT-2.3.1-1].
func SerializeUnsubscribe(subs []Subscription, packetID uint16, buf []byte) (int, error) {
	remaining, total, err := GetUnsubscribePacketSize(subs)
	if err != nil {
		return 0, err
	}
	if packetID == 0 {
		return 0, ErrBadParameter
	}
	if len(buf) < total {
		return 0, ErrInsufficientMemory
	}

	buf[0] = UnsubscribeType<<4 | reservedFlags
	n := 1 + encodeRemainingLength(buf[1:], remaining)
	n += encodeUint16(buf[n:], packetID)
	for i := range subs {
		n += encodeString(buf[n:], subs[i].TopicFilter)
	}
	return n, nil
}

// DeserializeUnsuback decodes an UNSUBACK packet body.
func DeserializeUnsuback(info PacketInfo, body []byte) (packetID uint16, err error) {
	if info.Type != UnsubAckType {
		return 0, ErrBadParameter
	}
	if info.RemainingLength != 2 || len(body) < 2 {
		return 0, ErrBadResponse
	}

	packetID, _, err = decodeUint16(body, 0)
	if err != nil {
		return 0, err
	}
	if packetID == 0 {
		return 0, ErrBadResponse
	}
	return packetID, nil
}
