// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package httpc

import "unsafe"

// bytesToString converts bytes to a string without allocating. The
// result is only valid while the backing bytes are unchanged.
func bytesToString(bs []byte) string {
	return *(*string)(unsafe.Pointer(&bs))
}
