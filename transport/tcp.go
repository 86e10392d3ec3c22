// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"crypto/tls"
	"net"
	"time"
)

// DialTCP connects to addr over plain TCP.
func DialTCP(ctx context.Context, addr string, pollInterval time.Duration) (*Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewConn(conn, pollInterval), nil
}

// DialTLS connects to addr over TLS. config must not be nil; its
// ServerName defaults to the host part of addr when empty.
func DialTLS(ctx context.Context, addr string, config *tls.Config, pollInterval time.Duration) (*Conn, error) {
	if config.ServerName == "" {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		config = config.Clone()
		config.ServerName = host
	}
	d := &tls.Dialer{
		NetDialer: &net.Dialer{},
		Config:    config,
	}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewConn(conn, pollInterval), nil
}
