// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"net"
	"time"

	piondtls "github.com/pion/dtls/v3"
)

// DialDTLS connects to addr over DTLS. The handshake runs under ctx.
func DialDTLS(ctx context.Context, addr string, config *piondtls.Config, pollInterval time.Duration) (*Conn, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	udp, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, err
	}

	conn, err := piondtls.Client(udp, raddr, config)
	if err != nil {
		udp.Close()
		return nil, err
	}
	if err := conn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return NewConn(conn, pollInterval), nil
}
