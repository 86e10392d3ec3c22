// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"encoding/binary"
	"unsafe"
)

// bytesToString provides a zero-alloc no-copy byte to string conversion.
// via https://github.com/golang/go/issues/25484#issuecomment-391415660
func bytesToString(bs []byte) string {
	return *(*string)(unsafe.Pointer(&bs))
}

// encodeUint16 writes v big-endian and returns the bytes written.
func encodeUint16(buf []byte, v uint16) int {
	binary.BigEndian.PutUint16(buf, v)
	return 2
}

// encodeBytes writes a 2-byte length prefix followed by b.
func encodeBytes(buf []byte, b []byte) int {
	binary.BigEndian.PutUint16(buf, uint16(len(b)))
	return 2 + copy(buf[2:], b)
}

// encodeString writes a 2-byte length prefix followed by s.
func encodeString(buf []byte, s string) int {
	binary.BigEndian.PutUint16(buf, uint16(len(s)))
	return 2 + copy(buf[2:], s)
}

// decodeUint16 extracts a big-endian uint16 beginning at offset.
func decodeUint16(buf []byte, offset int) (uint16, int, error) {
	if len(buf) < offset+2 {
		return 0, 0, ErrBadResponse
	}
	return binary.BigEndian.Uint16(buf[offset : offset+2]), offset + 2, nil
}

// decodeBytes extracts a length-prefixed byte field beginning at offset.
// The returned slice aliases buf.
func decodeBytes(buf []byte, offset int) ([]byte, int, error) {
	length, next, err := decodeUint16(buf, offset)
	if err != nil {
		return nil, 0, err
	}
	if next+int(length) > len(buf) {
		return nil, 0, ErrBadResponse
	}
	return buf[next : next+int(length)], next + int(length), nil
}

// decodeString extracts a length-prefixed UTF-8 string beginning at offset.
// The returned string aliases buf.
func decodeString(buf []byte, offset int) (string, int, error) {
	b, next, err := decodeBytes(buf, offset)
	if err != nil {
		return "", 0, err
	}
	return bytesToString(b), next, nil
}

// remainingLengthSize returns the encoded size (1..4 bytes) of a
// remaining-length value. The value must not exceed MaxRemainingLength.
func remainingLengthSize(length int) int {
	switch {
	case length < 128:
		return 1
	case length < 16_384:
		return 2
	case length < 2_097_152:
		return 3
	default:
		return 4
	}
}

// encodeRemainingLength writes the MQTT variable-byte encoding of length:
// each output byte carries 7 payload bits plus a continuation bit.
func encodeRemainingLength(buf []byte, length int) int {
	var n int
	for {
		digit := byte(length % 128)
		length /= 128
		if length > 0 {
			digit |= 0x80
		}
		buf[n] = digit
		n++
		if length == 0 {
			return n
		}
	}
}
