// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package httpc

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

const headerTerminator = "\r\n\r\n"

// Response holds one parsed HTTP/1.1 response. Buf is the caller buffer
// the raw response is received into; StatusCode, Reason, Headers and
// Body are filled by Send and alias Buf.
type Response struct {
	Buf []byte

	StatusCode int
	Reason     string
	// Headers is the raw header block, without the status line and the
	// terminating blank line.
	Headers []byte
	// Body is the Content-Length delimited response body. Responses
	// without a Content-Length header keep whatever arrived with the
	// header block.
	Body          []byte
	ContentLength int
}

// Header scans the header block for the named field, case-insensitively,
// and returns its trimmed value.
func (r *Response) Header(name string) (string, error) {
	block := r.Headers
	for len(block) > 0 {
		line := block
		if i := bytes.Index(block, []byte(lineSeparator)); i >= 0 {
			line = block[:i]
			block = block[i+len(lineSeparator):]
		} else {
			block = nil
		}
		i := bytes.IndexByte(line, ':')
		if i < 0 {
			continue
		}
		if strings.EqualFold(bytesToString(line[:i]), name) {
			return string(bytes.TrimSpace(line[i+1:])), nil
		}
	}
	return "", ErrHeaderNotFound
}

// receive reads the response into r.Buf and parses it in place.
func (r *Response) receive(transport Transport) error {
	total, headerEnd, err := r.readHead(transport)
	if err != nil {
		return err
	}

	if err := r.parseHead(r.Buf[:headerEnd]); err != nil {
		return err
	}

	length, err := r.Header(contentLengthField)
	if err != nil {
		// No Content-Length: the body is whatever arrived with the
		// header block.
		r.Body = r.Buf[headerEnd+len(headerTerminator) : total]
		r.ContentLength = len(r.Body)
		return nil
	}
	r.ContentLength, err = strconv.Atoi(length)
	if err != nil || r.ContentLength < 0 {
		return fmt.Errorf("%w: malformed Content-Length %q", ErrBadResponse, length)
	}

	bodyStart := headerEnd + len(headerTerminator)
	if bodyStart+r.ContentLength > len(r.Buf) {
		return ErrInsufficientMemory
	}
	for total < bodyStart+r.ContentLength {
		n, err := transport.Recv(r.Buf[total : bodyStart+r.ContentLength])
		if err != nil {
			return fmt.Errorf("%w: %w", ErrNetworkError, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: connection closed mid-body", ErrBadResponse)
		}
		total += n
	}
	r.Body = r.Buf[bodyStart : bodyStart+r.ContentLength]
	return nil
}

// readHead reads until the header terminator is buffered and returns the
// total bytes read and the terminator offset.
func (r *Response) readHead(transport Transport) (total, headerEnd int, err error) {
	for {
		if i := bytes.Index(r.Buf[:total], []byte(headerTerminator)); i >= 0 {
			return total, i, nil
		}
		if total == len(r.Buf) {
			return 0, 0, ErrInsufficientMemory
		}
		n, err := transport.Recv(r.Buf[total:])
		if err != nil {
			return 0, 0, fmt.Errorf("%w: %w", ErrNetworkError, err)
		}
		if n == 0 {
			return 0, 0, fmt.Errorf("%w: connection closed before headers completed", ErrBadResponse)
		}
		total += n
	}
}

// parseHead parses the status line and records the header block.
func (r *Response) parseHead(head []byte) error {
	statusLine := head
	rest := []byte(nil)
	if i := bytes.Index(head, []byte(lineSeparator)); i >= 0 {
		statusLine = head[:i]
		rest = head[i+len(lineSeparator):]
	}

	// "HTTP/1.1 <code> <reason>"; the reason phrase may be empty.
	if !bytes.HasPrefix(statusLine, []byte(protocolVersion+" ")) {
		return fmt.Errorf("%w: malformed status line %q", ErrBadResponse, statusLine)
	}
	statusLine = statusLine[len(protocolVersion)+1:]
	code := statusLine
	if i := bytes.IndexByte(statusLine, ' '); i >= 0 {
		code = statusLine[:i]
		r.Reason = string(statusLine[i+1:])
	} else {
		r.Reason = ""
	}

	status, err := strconv.Atoi(bytesToString(code))
	if err != nil || status < 100 || status > 599 {
		return fmt.Errorf("%w: malformed status code %q", ErrBadResponse, code)
	}
	r.StatusCode = status
	r.Headers = rest
	return nil
}
