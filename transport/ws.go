// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// mqttSubprotocol is the WebSocket subprotocol MQTT brokers expect.
const mqttSubprotocol = "mqtt"

// WSConn carries MQTT packets over WebSocket binary messages. A read
// deadline error is fatal to a gorilla connection, so instead of
// deadline polling an internal goroutine blocks on ReadMessage and
// Recv drains its channel within the poll interval.
type WSConn struct {
	conn    *websocket.Conn
	poll    time.Duration
	msgs    chan []byte
	readErr chan error
	done    chan struct{}
	pending []byte

	closeOnce sync.Once
}

// DialWebSocket connects to the broker at url ("ws://host/mqtt" or
// "wss://..."). tlsConfig applies only to wss URLs and may be nil.
func DialWebSocket(ctx context.Context, url string, tlsConfig *tls.Config, pollInterval time.Duration) (*WSConn, error) {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	dialer := websocket.Dialer{
		Subprotocols:    []string{mqttSubprotocol},
		TLSClientConfig: tlsConfig,
	}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	c := &WSConn{
		conn:    conn,
		poll:    pollInterval,
		msgs:    make(chan []byte, 1),
		readErr: make(chan error, 1),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// readLoop exits on the first read error or when Close signals done; a
// send on either channel must never outlive the connection.
func (c *WSConn) readLoop() {
	for {
		msgType, msg, err := c.conn.ReadMessage()
		if err == nil && msgType != websocket.BinaryMessage {
			err = errors.New("non-binary websocket message")
		}
		if err != nil {
			select {
			case c.readErr <- err:
			case <-c.done:
			}
			return
		}
		select {
		case c.msgs <- msg:
		case <-c.done:
			return
		}
	}
}

// Send writes p as one binary message.
func (c *WSConn) Send(p []byte) (int, error) {
	if err := c.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Recv reads up to len(p) bytes. Bytes of a message that do not fit in p
// are kept for the next call. An idle connection reports (0, nil) after
// the poll interval.
func (c *WSConn) Recv(p []byte) (int, error) {
	if len(c.pending) == 0 {
		// A queued message is delivered before a queued read error, so
		// the last frame before a broken connection is not lost.
		select {
		case msg := <-c.msgs:
			c.pending = msg
		default:
			timer := time.NewTimer(c.poll)
			defer timer.Stop()
			select {
			case msg := <-c.msgs:
				c.pending = msg
			case err := <-c.readErr:
				// The read loop queues the error after its last
				// message and then exits, so the requeue cannot block.
				select {
				case msg := <-c.msgs:
					c.pending = msg
					c.readErr <- err
				default:
					return 0, err
				}
			case <-timer.C:
				return 0, nil
			}
		}
	}

	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

// Close closes the WebSocket connection and releases the read loop.
func (c *WSConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return c.conn.Close()
}

// RemoteAddr returns the remote network address.
func (c *WSConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
