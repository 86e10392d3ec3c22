// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package transport provides client-side byte-stream transports for the
// mqtt and httpc packages: plain TCP, TLS, DTLS and WebSocket. All of
// them expose the same polling Send/Recv pair: Recv waits at most the
// poll interval and reports (0, nil) when no data arrived, which is what
// the MQTT process loop expects from an idle connection.
package transport

import (
	"errors"
	"net"
	"time"
)

// DefaultPollInterval is how long Recv waits for data before reporting
// an idle connection.
const DefaultPollInterval = 10 * time.Millisecond

// Conn adapts a net.Conn to the polling Send/Recv contract.
type Conn struct {
	conn net.Conn
	poll time.Duration
}

// NewConn wraps conn. A non-positive pollInterval selects
// DefaultPollInterval.
func NewConn(conn net.Conn, pollInterval time.Duration) *Conn {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Conn{conn: conn, poll: pollInterval}
}

// Send writes p to the connection.
func (c *Conn) Send(p []byte) (int, error) {
	return c.conn.Write(p)
}

// Recv reads up to len(p) bytes, waiting at most the poll interval. An
// expired wait is not an error: it returns (0, nil) so the caller's
// process loop can run its keep-alive duties. A closed connection is
// reported as an error.
func (c *Conn) Recv(p []byte) (int, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.poll)); err != nil {
		return 0, err
	}
	n, err := c.conn.Read(p)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return n, nil
		}
		return n, err
	}
	return n, nil
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// LocalAddr returns the local network address.
func (c *Conn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// RemoteAddr returns the remote network address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
