// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package httpc implements a small HTTP/1.1 client over caller-supplied
// fixed-size buffers, for constrained targets that cannot afford a full
// HTTP stack. Requests are assembled into one header buffer, sent over a
// byte-stream transport and the response is parsed in place in a second
// caller buffer. Only Content-Length delimited bodies are supported.
package httpc

import (
	"strconv"
	"strings"
)

const (
	protocolVersion = "HTTP/1.1"
	lineSeparator   = "\r\n"
	fieldSeparator  = ": "

	userAgentField     = "User-Agent"
	hostField          = "Host"
	connectionField    = "Connection"
	contentLengthField = "Content-Length"
	rangeField         = "Range"
)

// DefaultUserAgent is the User-Agent value written by Initialize when
// RequestInfo.UserAgent is empty.
const DefaultUserAgent = "edgeio"

// RangeEndOfFile requests a range that extends to the end of the
// resource when passed as the end of AddRangeHeader.
const RangeEndOfFile = -1

// RequestInfo describes the request line and the standard headers
// Initialize writes.
type RequestInfo struct {
	Method string
	// Path is the request target. Empty means "/".
	Path string
	Host string
	// UserAgent overrides DefaultUserAgent when non-empty.
	UserAgent string
	// DisableContentLength suppresses the automatic Content-Length
	// header written by Send for requests with a body.
	DisableContentLength bool
}

// RequestHeaders assembles an HTTP request head in a caller-supplied
// buffer. The buffer never holds the terminating blank line; Send
// appends it on the wire so headers can still be added after
// initialization.
type RequestHeaders struct {
	Buf []byte
	// Len is the number of header bytes assembled so far.
	Len int

	disableContentLength bool
}

// Initialize resets the header buffer and writes the request line
// followed by the User-Agent and Host headers:
//
//	<METHOD> <PATH> HTTP/1.1
//	User-Agent: <agent>
//	Host: <host>
func (h *RequestHeaders) Initialize(info *RequestInfo) error {
	if h == nil || len(h.Buf) == 0 || info == nil {
		return ErrBadParameter
	}
	if info.Method == "" || info.Host == "" {
		return ErrBadParameter
	}

	path := info.Path
	if path == "" {
		path = "/"
	}
	agent := info.UserAgent
	if agent == "" {
		agent = DefaultUserAgent
	}

	requestLine := len(info.Method) + 1 + len(path) + 1 + len(protocolVersion) + len(lineSeparator)
	if requestLine > len(h.Buf) {
		return ErrInsufficientMemory
	}

	h.Len = 0
	h.disableContentLength = info.DisableContentLength
	n := copy(h.Buf, info.Method)
	n += copy(h.Buf[n:], " ")
	n += copy(h.Buf[n:], path)
	n += copy(h.Buf[n:], " ")
	n += copy(h.Buf[n:], protocolVersion)
	n += copy(h.Buf[n:], lineSeparator)
	h.Len = n

	if err := h.appendHeader(userAgentField, agent); err != nil {
		h.Len = 0
		return err
	}
	if err := h.appendHeader(hostField, info.Host); err != nil {
		h.Len = 0
		return err
	}
	return nil
}

// AddHeader appends one header line. The Host, User-Agent, Connection
// and Content-Length fields are managed by the library and rejected
// here; Content-Length is accepted when the request was initialized
// with DisableContentLength.
func (h *RequestHeaders) AddHeader(field, value string) error {
	if h == nil || field == "" {
		return ErrBadParameter
	}
	switch {
	case strings.EqualFold(field, hostField),
		strings.EqualFold(field, userAgentField),
		strings.EqualFold(field, connectionField):
		return ErrBadParameter
	case strings.EqualFold(field, contentLengthField) && !h.disableContentLength:
		return ErrBadParameter
	}
	return h.appendHeader(field, value)
}

// AddRangeHeader appends a Range header. Supported forms:
//
//	start >= 0, end >= start: bytes=<start>-<end>
//	start >= 0, end == RangeEndOfFile: bytes=<start>-
//	start < 0,  end == RangeEndOfFile: bytes=<start> (suffix length)
func (h *RequestHeaders) AddRangeHeader(start, end int) error {
	if h == nil {
		return ErrBadParameter
	}

	// "bytes=" plus two int64 renderings and the dash.
	var scratch [6 + 20 + 1 + 20]byte
	value := append(scratch[:0], "bytes="...)
	switch {
	case start >= 0 && end >= start:
		value = strconv.AppendInt(value, int64(start), 10)
		value = append(value, '-')
		value = strconv.AppendInt(value, int64(end), 10)
	case start >= 0 && end == RangeEndOfFile:
		value = strconv.AppendInt(value, int64(start), 10)
		value = append(value, '-')
	case start < 0 && end == RangeEndOfFile:
		value = strconv.AppendInt(value, int64(start), 10)
	default:
		return ErrBadParameter
	}
	return h.appendHeader(rangeField, bytesToString(value))
}

// appendHeader writes "Field: Value\r\n" at h.Len, checking space before
// touching the buffer.
func (h *RequestHeaders) appendHeader(field, value string) error {
	need := len(field) + len(fieldSeparator) + len(value) + len(lineSeparator)
	if h.Len+need > len(h.Buf) {
		return ErrInsufficientMemory
	}
	n := h.Len
	n += copy(h.Buf[n:], field)
	n += copy(h.Buf[n:], fieldSeparator)
	n += copy(h.Buf[n:], value)
	n += copy(h.Buf[n:], lineSeparator)
	h.Len = n
	return nil
}
