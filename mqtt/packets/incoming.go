// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import "fmt"

// ReadIncoming reads exactly one packet's fixed header (the type/flags
// byte plus 1-4 remaining-length bytes) through recv, one byte at a time
// so it never consumes bytes belonging to the packet body or a following
// packet.
//
// A zero-byte read on the very first byte returns ErrNoDataAvailable: the
// transport is idle. A zero-byte read after part of the header was
// already consumed is a truncated packet boundary and returns
// ErrRecvFailed. A remaining-length sequence longer than 4 bytes returns
// ErrBadResponse.
func ReadIncoming(recv RecvFunc) (PacketInfo, error) {
	if recv == nil {
		return PacketInfo{}, ErrBadParameter
	}

	var b [1]byte
	n, err := recv(b[:])
	if err != nil {
		return PacketInfo{}, fmt.Errorf("%w: %w", ErrRecvFailed, err)
	}
	if n == 0 {
		return PacketInfo{}, ErrNoDataAvailable
	}

	info := PacketInfo{
		Type:  b[0] >> 4,
		Flags: b[0] & 0x0F,
	}
	if info.Type < ConnectType || info.Type > DisconnectType {
		return PacketInfo{}, ErrBadResponse
	}

	var value, multiplier int
	for i := 0; ; i++ {
		if i == 4 {
			// A fifth continuation byte is malformed [MQTT-2.2.3].
			return PacketInfo{}, ErrBadResponse
		}
		n, err = recv(b[:])
		if err != nil {
			return PacketInfo{}, fmt.Errorf("%w: %w", ErrRecvFailed, err)
		}
		if n == 0 {
			return PacketInfo{}, ErrRecvFailed
		}
		value |= int(b[0]&0x7F) << multiplier
		if b[0]&0x80 == 0 {
			break
		}
		multiplier += 7
	}
	info.RemainingLength = value
	return info, nil
}
