// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package httpc

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport records sent bytes and serves a scripted response,
// chunked to exercise the reassembly loops.
type fakeTransport struct {
	sent      []byte
	response  []byte
	chunkSize int
	sendErr   error
	shortSend bool
}

func (f *fakeTransport) Send(p []byte) (int, error) {
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	if f.shortSend {
		return len(p) - 1, nil
	}
	f.sent = append(f.sent, p...)
	return len(p), nil
}

func (f *fakeTransport) Recv(p []byte) (int, error) {
	if len(f.response) == 0 {
		return 0, nil
	}
	limit := len(p)
	if f.chunkSize > 0 && f.chunkSize < limit {
		limit = f.chunkSize
	}
	n := copy(p[:limit], f.response)
	f.response = f.response[n:]
	return n, nil
}

func newRequest(t *testing.T, method string) *RequestHeaders {
	t.Helper()
	h := &RequestHeaders{Buf: make([]byte, 512)}
	require.NoError(t, h.Initialize(&RequestInfo{Method: method, Path: "/data", Host: "example.com"}))
	return h
}

func TestSendGet(t *testing.T) {
	tr := &fakeTransport{response: []byte("HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello")}
	h := newRequest(t, "GET")
	resp := &Response{Buf: make([]byte, 512)}

	require.NoError(t, Send(tr, h, nil, resp))

	wire := string(tr.sent)
	assert.True(t, strings.HasPrefix(wire, "GET /data HTTP/1.1\r\n"))
	assert.True(t, strings.HasSuffix(wire, "\r\n\r\n"), "headers terminated by a blank line")
	assert.NotContains(t, wire, "Content-Length", "no body, no Content-Length")

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "OK", resp.Reason)
	assert.Equal(t, []byte("hello"), resp.Body)
	assert.Equal(t, 5, resp.ContentLength)
}

func TestSendPostAddsContentLength(t *testing.T) {
	tr := &fakeTransport{response: []byte("HTTP/1.1 204 No Content\r\n\r\n")}
	h := newRequest(t, "POST")
	resp := &Response{Buf: make([]byte, 512)}

	require.NoError(t, Send(tr, h, []byte(`{"v":1}`), resp))

	wire := string(tr.sent)
	assert.Contains(t, wire, "Content-Length: 7\r\n")
	assert.True(t, strings.HasSuffix(wire, "\r\n\r\n"+`{"v":1}`))
	assert.Equal(t, 204, resp.StatusCode)
	assert.Empty(t, resp.Body)
}

func TestSendDisabledContentLength(t *testing.T) {
	tr := &fakeTransport{response: []byte("HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n")}
	h := &RequestHeaders{Buf: make([]byte, 512)}
	info := &RequestInfo{Method: "POST", Host: "example.com", DisableContentLength: true}
	require.NoError(t, h.Initialize(info))
	resp := &Response{Buf: make([]byte, 512)}

	require.NoError(t, Send(tr, h, []byte("x"), resp))
	assert.NotContains(t, string(tr.sent), "Content-Length")
}

func TestSendHeadersReusableAfterSend(t *testing.T) {
	tr := &fakeTransport{response: []byte("HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n")}
	h := newRequest(t, "GET")
	lenBefore := h.Len
	resp := &Response{Buf: make([]byte, 512)}

	require.NoError(t, Send(tr, h, nil, resp))
	assert.Equal(t, lenBefore, h.Len, "blank line is not kept in the buffer")
}

func TestSendWithBodyReusableAfterSend(t *testing.T) {
	h := newRequest(t, "POST")
	lenBefore := h.Len
	body := []byte("payload")

	for i := 0; i < 2; i++ {
		tr := &fakeTransport{response: []byte("HTTP/1.1 204 No Content\r\n\r\n")}
		resp := &Response{Buf: make([]byte, 512)}
		require.NoError(t, Send(tr, h, body, resp))

		assert.Equal(t, 1, strings.Count(string(tr.sent), "Content-Length:"),
			"exactly one Content-Length per request")
		assert.Equal(t, lenBefore, h.Len, "appended Content-Length is rolled back")
	}
}

func TestSendChunkedArrival(t *testing.T) {
	tr := &fakeTransport{
		response:  []byte("HTTP/1.1 200 OK\r\nContent-Length: 11\r\nX-Id: 7\r\n\r\nhello world"),
		chunkSize: 3,
	}
	h := newRequest(t, "GET")
	resp := &Response{Buf: make([]byte, 512)}

	require.NoError(t, Send(tr, h, nil, resp))
	assert.Equal(t, []byte("hello world"), resp.Body)

	v, err := resp.Header("x-id")
	require.NoError(t, err)
	assert.Equal(t, "7", v)
}

func TestSendNetworkErrors(t *testing.T) {
	h := newRequest(t, "GET")
	resp := &Response{Buf: make([]byte, 512)}

	cause := errors.New("broken pipe")
	err := Send(&fakeTransport{sendErr: cause}, h, nil, resp)
	assert.ErrorIs(t, err, ErrNetworkError)
	assert.ErrorIs(t, err, cause)

	err = Send(&fakeTransport{shortSend: true}, newRequest(t, "GET"), nil, resp)
	assert.ErrorIs(t, err, ErrNetworkError)
}

func TestSendValidation(t *testing.T) {
	tr := &fakeTransport{}
	h := newRequest(t, "GET")
	resp := &Response{Buf: make([]byte, 512)}

	assert.ErrorIs(t, Send(nil, h, nil, resp), ErrBadParameter)
	assert.ErrorIs(t, Send(tr, nil, nil, resp), ErrBadParameter)
	assert.ErrorIs(t, Send(tr, &RequestHeaders{Buf: make([]byte, 8)}, nil, resp), ErrBadParameter)
	assert.ErrorIs(t, Send(tr, h, nil, nil), ErrBadParameter)
	assert.ErrorIs(t, Send(tr, h, nil, &Response{}), ErrBadParameter)
}

func TestResponseTruncated(t *testing.T) {
	h := newRequest(t, "GET")
	resp := &Response{Buf: make([]byte, 512)}

	tr := &fakeTransport{response: []byte("HTTP/1.1 200 OK\r\nContent-Le")}
	err := Send(tr, h, nil, resp)
	assert.ErrorIs(t, err, ErrBadResponse, "closed before headers completed")

	tr = &fakeTransport{response: []byte("HTTP/1.1 200 OK\r\nContent-Length: 10\r\n\r\nhel")}
	err = Send(tr, newRequest(t, "GET"), nil, resp)
	assert.ErrorIs(t, err, ErrBadResponse, "closed mid-body")
}

func TestResponseMalformed(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"not http", "SMTP ready\r\n\r\n"},
		{"garbage status code", "HTTP/1.1 abc OK\r\n\r\n"},
		{"status code out of range", "HTTP/1.1 998 Weird\r\n\r\n"},
		{"bad content length", "HTTP/1.1 200 OK\r\nContent-Length: ten\r\n\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &fakeTransport{response: []byte(tt.response)}
			resp := &Response{Buf: make([]byte, 512)}
			err := Send(tr, newRequest(t, "GET"), nil, resp)
			assert.ErrorIs(t, err, ErrBadResponse)
		})
	}
}

func TestResponseBufferTooSmall(t *testing.T) {
	tr := &fakeTransport{response: []byte("HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\n")}
	resp := &Response{Buf: make([]byte, 48)}

	err := Send(tr, newRequest(t, "GET"), nil, resp)
	assert.ErrorIs(t, err, ErrInsufficientMemory)
}

func TestResponseHeaderLookup(t *testing.T) {
	tr := &fakeTransport{response: []byte(
		"HTTP/1.1 206 Partial Content\r\n" +
			"Content-Range: bytes 0-4/128\r\n" +
			"Content-Length: 5\r\n\r\nhello")}
	resp := &Response{Buf: make([]byte, 512)}
	require.NoError(t, Send(tr, newRequest(t, "GET"), nil, resp))

	v, err := resp.Header("Content-Range")
	require.NoError(t, err)
	assert.Equal(t, "bytes 0-4/128", v)

	_, err = resp.Header("ETag")
	assert.ErrorIs(t, err, ErrHeaderNotFound)
}
