// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package httpc

import "errors"

var (
	// ErrBadParameter indicates an invalid argument, such as an empty
	// method or a restricted header field.
	ErrBadParameter = errors.New("bad parameter")

	// ErrInsufficientMemory indicates the caller-provided buffer is too
	// small for the headers or response being assembled.
	ErrInsufficientMemory = errors.New("insufficient memory")

	// ErrNetworkError indicates the transport failed or transferred
	// fewer bytes than required.
	ErrNetworkError = errors.New("network error")

	// ErrBadResponse indicates the server response violates HTTP/1.1
	// framing.
	ErrBadResponse = errors.New("bad response")

	// ErrHeaderNotFound indicates the requested header is absent from
	// the response.
	ErrHeaderNotFound = errors.New("header not found")
)
