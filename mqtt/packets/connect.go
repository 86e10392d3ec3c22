// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

const (
	protocolName  = "MQTT"
	protocolLevel = 4 // MQTT 3.1.1

	// Variable header: protocol name (6), level (1), flags (1), keep-alive (2).
	connectVariableHeaderSize = 10
)

// CONNECT flag bits [MQTT-3.1.2].
const (
	connectFlagCleanSession = 1 << 1
	connectFlagWill         = 1 << 2
	connectFlagWillQoSShift = 3
	connectFlagWillRetain   = 1 << 5
	connectFlagPassword     = 1 << 6
	connectFlagUsername     = 1 << 7
)

// ConnectInfo describes a CONNECT packet. The codec borrows it for the
// duration of serialization and never takes ownership.
type ConnectInfo struct {
	CleanSession bool
	// KeepAlive is the keep-alive interval in seconds. Zero disables
	// the keep-alive mechanism.
	KeepAlive uint16
	ClientID  string
	Username  string
	Password  []byte
}

// GetConnectPacketSize computes the remaining length and full packet size
// of the CONNECT packet described by info and the optional will message.
func GetConnectPacketSize(info *ConnectInfo, will *PublishInfo) (remaining, total int, err error) {
	if err := validateConnect(info, will); err != nil {
		return 0, 0, err
	}

	remaining = connectVariableHeaderSize + 2 + len(info.ClientID)
	if will != nil {
		remaining += 2 + len(will.TopicName) + 2 + len(will.Payload)
	}
	if info.Username != "" {
		remaining += 2 + len(info.Username)
	}
	if len(info.Password) > 0 {
		remaining += 2 + len(info.Password)
	}
	if remaining > MaxRemainingLength {
		return 0, 0, ErrBadParameter
	}
	return remaining, 1 + remainingLengthSize(remaining) + remaining, nil
}

// SerializeConnect writes the CONNECT packet into buf and returns the
// number of bytes written.
func SerializeConnect(info *ConnectInfo, will *PublishInfo, buf []byte) (int, error) {
	remaining, total, err := GetConnectPacketSize(info, will)
	if err != nil {
		return 0, err
	}
	if len(buf) < total {
		return 0, ErrInsufficientMemory
	}

	buf[0] = ConnectType << 4
	n := 1 + encodeRemainingLength(buf[1:], remaining)
	n += encodeString(buf[n:], protocolName)
	buf[n] = protocolLevel
	buf[n+1] = connectFlags(info, will)
	n += 2
	n += encodeUint16(buf[n:], info.KeepAlive)

	n += encodeString(buf[n:], info.ClientID)
	if will != nil {
		n += encodeString(buf[n:], will.TopicName)
		n += encodeBytes(buf[n:], will.Payload)
	}
	if info.Username != "" {
		n += encodeString(buf[n:], info.Username)
	}
	if len(info.Password) > 0 {
		n += encodeBytes(buf[n:], info.Password)
	}
	return n, nil
}

func validateConnect(info *ConnectInfo, will *PublishInfo) error {
	if info == nil || info.ClientID == "" {
		return ErrBadParameter
	}
	// A password without a username is forbidden [MQTT-3.1.2-22].
	if info.Username == "" && len(info.Password) > 0 {
		return ErrBadParameter
	}
	if will != nil {
		if will.TopicName == "" || will.QoS > QoS2 {
			return ErrBadParameter
		}
	}
	return nil
}

func connectFlags(info *ConnectInfo, will *PublishInfo) byte {
	var flags byte
	if info.CleanSession {
		flags |= connectFlagCleanSession
	}
	if will != nil {
		flags |= connectFlagWill | will.QoS<<connectFlagWillQoSShift
		if will.Retain {
			flags |= connectFlagWillRetain
		}
	}
	if info.Username != "" {
		flags |= connectFlagUsername
	}
	if len(info.Password) > 0 {
		flags |= connectFlagPassword
	}
	return flags
}
