// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

// PublishInfo describes an application message carried by a PUBLISH
// packet. On the deserialize path TopicName and Payload alias the packet
// body buffer.
type PublishInfo struct {
	QoS       byte
	Retain    bool
	Dup       bool
	TopicName string
	Payload   []byte
}

// GetPublishPacketSize computes the remaining length and full packet size
// of the PUBLISH packet described by info.
func GetPublishPacketSize(info *PublishInfo) (remaining, total int, err error) {
	if info == nil || info.TopicName == "" || info.QoS > QoS2 {
		return 0, 0, ErrBadParameter
	}

	remaining = 2 + len(info.TopicName) + len(info.Payload)
	if info.QoS > QoS0 {
		remaining += 2 // packet identifier
	}
	if remaining > MaxRemainingLength {
		return 0, 0, ErrBadParameter
	}
	return remaining, 1 + remainingLengthSize(remaining) + remaining, nil
}

// SerializePublish writes the PUBLISH packet into buf and returns the
// number of bytes written. The packet identifier is written only when
// QoS > 0 and must then be non-zero [MQTT-2.3.1-1].
func SerializePublish(info *PublishInfo, packetID uint16, buf []byte) (int, error) {
	remaining, total, err := GetPublishPacketSize(info)
	if err != nil {
		return 0, err
	}
	if info.QoS > QoS0 && packetID == 0 {
		return 0, ErrBadParameter
	}
	if len(buf) < total {
		return 0, ErrInsufficientMemory
	}

	var flags byte
	if info.Dup {
		flags |= 1 << 3
	}
	flags |= info.QoS << 1
	if info.Retain {
		flags |= 1
	}
	buf[0] = PublishType<<4 | flags
	n := 1 + encodeRemainingLength(buf[1:], remaining)
	n += encodeString(buf[n:], info.TopicName)
	if info.QoS > QoS0 {
		n += encodeUint16(buf[n:], packetID)
	}
	n += copy(buf[n:], info.Payload)
	return n, nil
}

// DeserializePublish decodes a PUBLISH packet body. The returned
// PublishInfo aliases body. A QoS>0 PUBLISH carrying a zero packet
// identifier is a protocol violation.
func DeserializePublish(info PacketInfo, body []byte) (PublishInfo, uint16, error) {
	if info.Type != PublishType {
		return PublishInfo{}, 0, ErrBadParameter
	}
	if info.RemainingLength != len(body) {
		return PublishInfo{}, 0, ErrBadResponse
	}

	pub := PublishInfo{
		Dup:    info.Flags&0x08 > 0,
		QoS:    info.Flags >> 1 & 0x03,
		Retain: info.Flags&0x01 > 0,
	}
	if pub.QoS > QoS2 {
		return PublishInfo{}, 0, ErrBadResponse
	}

	topic, offset, err := decodeString(body, 0)
	if err != nil {
		return PublishInfo{}, 0, err
	}
	if topic == "" {
		return PublishInfo{}, 0, ErrBadResponse
	}
	pub.TopicName = topic

	var packetID uint16
	if pub.QoS > QoS0 {
		packetID, offset, err = decodeUint16(body, offset)
		if err != nil {
			return PublishInfo{}, 0, err
		}
		if packetID == 0 {
			return PublishInfo{}, 0, ErrBadResponse
		}
	}
	pub.Payload = body[offset:]
	return pub, packetID, nil
}
