// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package httpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	h := &RequestHeaders{Buf: make([]byte, 256)}
	info := &RequestInfo{Method: "GET", Path: "/data", Host: "example.com"}

	require.NoError(t, h.Initialize(info))
	assert.Equal(t,
		"GET /data HTTP/1.1\r\nUser-Agent: edgeio\r\nHost: example.com\r\n",
		string(h.Buf[:h.Len]))
}

func TestInitializeDefaultsPath(t *testing.T) {
	h := &RequestHeaders{Buf: make([]byte, 256)}

	require.NoError(t, h.Initialize(&RequestInfo{Method: "GET", Host: "example.com"}))
	assert.Contains(t, string(h.Buf[:h.Len]), "GET / HTTP/1.1\r\n")
}

func TestInitializeCustomUserAgent(t *testing.T) {
	h := &RequestHeaders{Buf: make([]byte, 256)}
	info := &RequestInfo{Method: "GET", Host: "example.com", UserAgent: "probe/1.0"}

	require.NoError(t, h.Initialize(info))
	assert.Contains(t, string(h.Buf[:h.Len]), "User-Agent: probe/1.0\r\n")
}

func TestInitializeValidation(t *testing.T) {
	buf := make([]byte, 256)

	assert.ErrorIs(t, (&RequestHeaders{}).Initialize(&RequestInfo{Method: "GET", Host: "h"}), ErrBadParameter)
	assert.ErrorIs(t, (&RequestHeaders{Buf: buf}).Initialize(nil), ErrBadParameter)
	assert.ErrorIs(t, (&RequestHeaders{Buf: buf}).Initialize(&RequestInfo{Host: "h"}), ErrBadParameter)
	assert.ErrorIs(t, (&RequestHeaders{Buf: buf}).Initialize(&RequestInfo{Method: "GET"}), ErrBadParameter)
}

func TestInitializeBufferTooSmall(t *testing.T) {
	h := &RequestHeaders{Buf: make([]byte, 8)}

	err := h.Initialize(&RequestInfo{Method: "GET", Path: "/data", Host: "example.com"})
	assert.ErrorIs(t, err, ErrInsufficientMemory)
	assert.Zero(t, h.Len)
}

func TestAddHeader(t *testing.T) {
	h := &RequestHeaders{Buf: make([]byte, 256)}
	require.NoError(t, h.Initialize(&RequestInfo{Method: "GET", Host: "example.com"}))

	require.NoError(t, h.AddHeader("Accept", "application/json"))
	assert.Contains(t, string(h.Buf[:h.Len]), "Accept: application/json\r\n")
}

func TestAddHeaderRejectsManagedFields(t *testing.T) {
	h := &RequestHeaders{Buf: make([]byte, 256)}
	require.NoError(t, h.Initialize(&RequestInfo{Method: "POST", Host: "example.com"}))

	for _, field := range []string{"Host", "host", "User-Agent", "Connection", "Content-Length", "content-length"} {
		assert.ErrorIs(t, h.AddHeader(field, "x"), ErrBadParameter, field)
	}
	assert.ErrorIs(t, h.AddHeader("", "x"), ErrBadParameter)
}

func TestAddHeaderContentLengthWhenDisabled(t *testing.T) {
	h := &RequestHeaders{Buf: make([]byte, 256)}
	info := &RequestInfo{Method: "POST", Host: "example.com", DisableContentLength: true}
	require.NoError(t, h.Initialize(info))

	assert.NoError(t, h.AddHeader("Content-Length", "12"))
}

func TestAddHeaderBufferFull(t *testing.T) {
	h := &RequestHeaders{Buf: make([]byte, 44)}
	require.NoError(t, h.Initialize(&RequestInfo{Method: "GET", Host: "h", UserAgent: "a"}))
	before := h.Len

	err := h.AddHeader("X-Very-Long-Header-Name", "with an even longer value")
	assert.ErrorIs(t, err, ErrInsufficientMemory)
	assert.Equal(t, before, h.Len, "failed add must not grow the headers")
}

func TestAddRangeHeader(t *testing.T) {
	tests := []struct {
		name  string
		start int
		end   int
		want  string
	}{
		{"bounded", 0, 1023, "Range: bytes=0-1023\r\n"},
		{"to end of file", 512, RangeEndOfFile, "Range: bytes=512-\r\n"},
		{"suffix", -256, RangeEndOfFile, "Range: bytes=-256\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &RequestHeaders{Buf: make([]byte, 256)}
			require.NoError(t, h.Initialize(&RequestInfo{Method: "GET", Host: "example.com"}))

			require.NoError(t, h.AddRangeHeader(tt.start, tt.end))
			assert.Contains(t, string(h.Buf[:h.Len]), tt.want)
		})
	}
}

func TestAddRangeHeaderValidation(t *testing.T) {
	h := &RequestHeaders{Buf: make([]byte, 256)}
	require.NoError(t, h.Initialize(&RequestInfo{Method: "GET", Host: "example.com"}))

	assert.ErrorIs(t, h.AddRangeHeader(100, 50), ErrBadParameter, "end before start")
	assert.ErrorIs(t, h.AddRangeHeader(-10, 20), ErrBadParameter, "suffix with bounded end")
}
