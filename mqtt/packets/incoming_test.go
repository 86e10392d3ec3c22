// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadIncoming(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want PacketInfo
	}{
		{
			name: "pingresp",
			data: []byte{0xD0, 0x00},
			want: PacketInfo{Type: PingRespType},
		},
		{
			name: "publish qos1 one byte length",
			data: []byte{0x32, 0x7F},
			want: PacketInfo{Type: PublishType, Flags: 0x02, RemainingLength: 127},
		},
		{
			name: "two byte length",
			data: []byte{0x30, 0x80, 0x01},
			want: PacketInfo{Type: PublishType, RemainingLength: 128},
		},
		{
			name: "three byte length",
			data: []byte{0x30, 0x80, 0x80, 0x01},
			want: PacketInfo{Type: PublishType, RemainingLength: 16_384},
		},
		{
			name: "maximum length",
			data: []byte{0x30, 0xFF, 0xFF, 0xFF, 0x7F},
			want: PacketInfo{Type: PublishType, RemainingLength: MaxRemainingLength},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := ReadIncoming(recvFromBytes(tt.data...))
			require.NoError(t, err)
			assert.Equal(t, tt.want, info)
		})
	}
}

func TestReadIncomingIdle(t *testing.T) {
	_, err := ReadIncoming(recvFromBytes())
	assert.ErrorIs(t, err, ErrNoDataAvailable)
}

func TestReadIncomingTruncatedHeader(t *testing.T) {
	// The transport goes quiet after the type byte.
	_, err := ReadIncoming(recvFromBytes(0x30))
	assert.ErrorIs(t, err, ErrRecvFailed)

	// And mid remaining-length sequence.
	_, err = ReadIncoming(recvFromBytes(0x30, 0x80))
	assert.ErrorIs(t, err, ErrRecvFailed)
}

func TestReadIncomingInvalidType(t *testing.T) {
	_, err := ReadIncoming(recvFromBytes(0x00, 0x00))
	assert.ErrorIs(t, err, ErrBadResponse, "type 0 is reserved")

	_, err = ReadIncoming(recvFromBytes(0xF0, 0x00))
	assert.ErrorIs(t, err, ErrBadResponse, "type 15 is reserved")
}

func TestReadIncomingTransportError(t *testing.T) {
	cause := errors.New("connection reset")
	_, err := ReadIncoming(func(p []byte) (int, error) {
		return 0, cause
	})
	assert.ErrorIs(t, err, ErrRecvFailed)
	assert.ErrorIs(t, err, cause)
}

func TestSerializeAckRoundTrip(t *testing.T) {
	types := []byte{PubAckType, PubRecType, PubRelType, PubCompType}

	for _, ackType := range types {
		t.Run(PacketNames[ackType], func(t *testing.T) {
			buf := make([]byte, 4)
			n, err := SerializeAck(ackType, 99, buf)
			require.NoError(t, err)
			require.Equal(t, 4, n)

			info, err := ReadIncoming(recvFromBytes(buf...))
			require.NoError(t, err)
			assert.Equal(t, ackType, info.Type)
			if ackType == PubRelType {
				assert.Equal(t, byte(reservedFlags), info.Flags)
			} else {
				assert.Zero(t, info.Flags)
			}

			packetID, err := DeserializeAck(info, buf[2:])
			require.NoError(t, err)
			assert.Equal(t, uint16(99), packetID)
		})
	}
}

func TestSerializeAckValidation(t *testing.T) {
	buf := make([]byte, 4)

	_, err := SerializeAck(PublishType, 1, buf)
	assert.ErrorIs(t, err, ErrBadParameter, "not an ack type")

	_, err = SerializeAck(PubAckType, 0, buf)
	assert.ErrorIs(t, err, ErrBadParameter, "zero packet id")

	_, err = SerializeAck(PubAckType, 1, buf[:3])
	assert.ErrorIs(t, err, ErrInsufficientMemory)
}

func TestDeserializeAckRejectsMalformed(t *testing.T) {
	body := []byte{0x00, 0x01}

	_, err := DeserializeAck(PacketInfo{Type: PubAckType, Flags: 0x01, RemainingLength: 2}, body)
	assert.ErrorIs(t, err, ErrBadResponse, "puback with flags")

	_, err = DeserializeAck(PacketInfo{Type: PubRelType, RemainingLength: 2}, body)
	assert.ErrorIs(t, err, ErrBadResponse, "pubrel without reserved flags")

	_, err = DeserializeAck(PacketInfo{Type: PubAckType, RemainingLength: 3}, []byte{0, 1, 0})
	assert.ErrorIs(t, err, ErrBadResponse, "wrong remaining length")

	_, err = DeserializeAck(PacketInfo{Type: PubAckType, RemainingLength: 2}, []byte{0x00, 0x00})
	assert.ErrorIs(t, err, ErrBadResponse, "zero packet id")
}

func TestSerializePingreqAndDisconnect(t *testing.T) {
	buf := make([]byte, 2)

	n, err := SerializePingreq(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xC0, 0x00}, buf[:n])

	n, err = SerializeDisconnect(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xE0, 0x00}, buf[:n])

	_, err = SerializePingreq(buf[:1])
	assert.ErrorIs(t, err, ErrInsufficientMemory)
}
