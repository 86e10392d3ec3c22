// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

// Subscription represents one topic-filter entry of a SUBSCRIBE or
// UNSUBSCRIBE packet. QoS is ignored for UNSUBSCRIBE.
type Subscription struct {
	TopicFilter string
	QoS         byte
}

// SubackFailure is the SUBACK return code reporting a rejected
// subscription [MQTT-3.9.3-2].
const SubackFailure byte = 0x80

// GetSubscribePacketSize computes the remaining length and full packet
// size of a SUBSCRIBE packet for the given subscription list.
func GetSubscribePacketSize(subs []Subscription) (remaining, total int, err error) {
	if len(subs) == 0 {
		return 0, 0, ErrBadParameter
	}

	remaining = 2 // packet identifier
	for i := range subs {
		if subs[i].TopicFilter == "" || subs[i].QoS > QoS2 {
			return 0, 0, ErrBadParameter
		}
		remaining += 2 + len(subs[i].TopicFilter) + 1
	}
	if remaining > MaxRemainingLength {
		return 0, 0, ErrBadParameter
	}
	return remaining, 1 + remainingLengthSize(remaining) + remaining, nil
}

// SerializeSubscribe writes the SUBSCRIBE packet into buf and returns the
// number of bytes written. packetID must be non-zero [MQTT-2.3.1-1].
func SerializeSubscribe(subs []Subscription, packetID uint16, buf []byte) (int, error) {
	remaining, total, err := GetSubscribePacketSize(subs)
	if err != nil {
		return 0, err
	}
	if packetID == 0 {
		return 0, ErrBadParameter
	}
	if len(buf) < total {
		return 0, ErrInsufficientMemory
	}

	buf[0] = SubscribeType<<4 | reservedFlags
	n := 1 + encodeRemainingLength(buf[1:], remaining)
	n += encodeUint16(buf[n:], packetID)
	for i := range subs {
		n += encodeString(buf[n:], subs[i].TopicFilter)
		buf[n] = subs[i].QoS
		n++
	}
	return n, nil
}

// DeserializeSuback decodes a SUBACK packet body. The returned codes
// slice aliases body and holds one granted-QoS value (or SubackFailure)
// per requested subscription.
func DeserializeSuback(info PacketInfo, body []byte) (packetID uint16, codes []byte, err error) {
	if info.Type != SubAckType {
		return 0, nil, ErrBadParameter
	}
	// At least the packet identifier plus one return code.
	if info.RemainingLength < 3 || info.RemainingLength != len(body) {
		return 0, nil, ErrBadResponse
	}

	packetID, offset, err := decodeUint16(body, 0)
	if err != nil {
		return 0, nil, err
	}
	if packetID == 0 {
		return 0, nil, ErrBadResponse
	}
	return packetID, body[offset:], nil
}
