// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package httpc

import (
	"fmt"
	"strconv"
)

// Transport is the byte-stream the client sends and receives over. Send
// must transfer all of p or fail. Recv blocks until at least one byte is
// available; a zero-byte return signals the peer closed the stream.
type Transport interface {
	Send(p []byte) (int, error)
	Recv(p []byte) (int, error)
}

// Send transmits the assembled request head plus the optional body and
// receives the response into resp.Buf. For a non-empty body a
// Content-Length header is appended first unless the request was
// initialized with DisableContentLength. Both the Content-Length line
// and the terminating blank line live past the caller-visible header
// length only for the duration of the send, so further requests can
// reuse h as assembled.
func Send(transport Transport, h *RequestHeaders, body []byte, resp *Response) error {
	if transport == nil || h == nil || h.Len == 0 || resp == nil || len(resp.Buf) == 0 {
		return ErrBadParameter
	}

	if len(body) > 0 && !h.disableContentLength {
		headLen := h.Len
		if err := h.appendHeader(contentLengthField, strconv.Itoa(len(body))); err != nil {
			return err
		}
		defer func() { h.Len = headLen }()
	}
	if h.Len+len(lineSeparator) > len(h.Buf) {
		return ErrInsufficientMemory
	}
	// The blank line lives past h.Len only for the duration of the send.
	end := h.Len + copy(h.Buf[h.Len:], lineSeparator)

	if err := sendAll(transport, h.Buf[:end]); err != nil {
		return err
	}
	if len(body) > 0 {
		if err := sendAll(transport, body); err != nil {
			return err
		}
	}
	return resp.receive(transport)
}

// sendAll writes one buffer through the transport. A short or failed
// write is ErrNetworkError; partial writes are never retried.
func sendAll(transport Transport, p []byte) error {
	n, err := transport.Send(p)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNetworkError, err)
	}
	if n != len(p) {
		return fmt.Errorf("%w: sent %d of %d bytes", ErrNetworkError, n, len(p))
	}
	return nil
}
