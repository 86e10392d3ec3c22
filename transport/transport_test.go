// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/absmach/edgeio/httpc"
	"github.com/absmach/edgeio/mqtt"
)

// The adapters must satisfy both clients' transport contracts.
var (
	_ mqtt.Transport  = (*Conn)(nil)
	_ httpc.Transport = (*Conn)(nil)
	_ mqtt.Transport  = (*WSConn)(nil)
)

func pipeConn(t *testing.T) (*Conn, net.Conn) {
	t.Helper()
	local, remote := net.Pipe()
	t.Cleanup(func() {
		local.Close()
		remote.Close()
	})
	return NewConn(local, 5*time.Millisecond), remote
}

func TestConnSend(t *testing.T) {
	c, remote := pipeConn(t)

	done := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 16)
		n, _ := remote.Read(buf)
		done <- buf[:n]
	}()

	n, err := c.Send([]byte{0xC0, 0x00})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte{0xC0, 0x00}, <-done)
}

func TestConnRecv(t *testing.T) {
	c, remote := pipeConn(t)

	go remote.Write([]byte{0xD0, 0x00})

	buf := make([]byte, 1)
	// net.Pipe is synchronous; allow a few polls for the writer to land.
	var n int
	var err error
	for i := 0; i < 100; i++ {
		n, err = c.Recv(buf)
		if n > 0 || err != nil {
			break
		}
	}
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, byte(0xD0), buf[0])
}

func TestConnRecvIdle(t *testing.T) {
	c, _ := pipeConn(t)

	buf := make([]byte, 8)
	n, err := c.Recv(buf)
	assert.NoError(t, err, "poll timeout is not an error")
	assert.Zero(t, n)
}

func TestConnRecvClosed(t *testing.T) {
	c, remote := pipeConn(t)
	remote.Close()

	buf := make([]byte, 8)
	_, err := c.Recv(buf)
	assert.Error(t, err, "a closed connection must surface as an error")
}

func TestNewConnDefaultPollInterval(t *testing.T) {
	local, _ := net.Pipe()
	defer local.Close()

	c := NewConn(local, 0)
	assert.Equal(t, DefaultPollInterval, c.poll)
}

func TestWSConnRecvSplitsMessages(t *testing.T) {
	c := &WSConn{
		poll:    time.Millisecond,
		msgs:    make(chan []byte, 1),
		readErr: make(chan error, 1),
	}
	c.msgs <- []byte{0x30, 0x02, 0x00, 0x00}

	// A one-byte read drains the message gradually, as the packet
	// header reader does.
	buf := make([]byte, 1)
	for i, want := range []byte{0x30, 0x02, 0x00, 0x00} {
		n, err := c.Recv(buf)
		require.NoError(t, err)
		require.Equal(t, 1, n, "read %d", i)
		assert.Equal(t, want, buf[0])
	}

	n, err := c.Recv(buf)
	assert.NoError(t, err)
	assert.Zero(t, n, "drained message leaves an idle connection")
}

func TestWSConnRecvDeliversLastMessageBeforeError(t *testing.T) {
	c := &WSConn{
		poll:    time.Millisecond,
		msgs:    make(chan []byte, 1),
		readErr: make(chan error, 1),
		done:    make(chan struct{}),
	}
	// The read loop queues its last message and then the error that
	// ended it; the message must come out first.
	c.msgs <- []byte{0xD0, 0x00}
	c.readErr <- errors.New("connection reset")

	buf := make([]byte, 4)
	n, err := c.Recv(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xD0, 0x00}, buf[:n])

	_, err = c.Recv(buf)
	assert.Error(t, err)
}

func TestWSConnCloseReleasesReadLoop(t *testing.T) {
	upgrader := websocket.Upgrader{Subprotocols: []string{mqttSubprotocol}}
	hold := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		ws.WriteMessage(websocket.BinaryMessage, []byte{0xD0, 0x00})
		ws.WriteMessage(websocket.BinaryMessage, []byte{0xD0, 0x00})
		<-hold
	}))
	defer srv.Close()
	defer close(hold)

	dialer := websocket.Dialer{Subprotocols: []string{mqttSubprotocol}}
	conn, resp, err := dialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	c := &WSConn{
		conn:    conn,
		poll:    time.Millisecond,
		msgs:    make(chan []byte, 1),
		readErr: make(chan error, 1),
		done:    make(chan struct{}),
	}
	loopDone := make(chan struct{})
	go func() {
		c.readLoop()
		close(loopDone)
	}()

	// Wait until the first frame sits undelivered in the channel buffer,
	// then give the loop time to block handing over the second.
	require.Eventually(t, func() bool { return len(c.msgs) == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)

	require.NoError(t, c.Close())
	select {
	case <-loopDone:
	case <-time.After(time.Second):
		t.Fatal("read loop still running after Close")
	}
}
