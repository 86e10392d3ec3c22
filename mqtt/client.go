// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package mqtt implements an MQTT 3.1.1 client for constrained targets.
// The client performs no dynamic allocation after construction: all wire
// I/O goes through one caller-supplied network buffer, and the in-flight
// QoS table has a fixed capacity chosen at creation time.
//
// A Client is owned by exactly one goroutine. It holds no locks; calling
// any two operations on the same Client concurrently is a contract
// violation, not a supported mode.
package mqtt

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/absmach/edgeio/mqtt/packets"
)

// ConnectStatus is the informational connection state of a session.
type ConnectStatus uint8

const (
	NotConnected ConnectStatus = iota
	Connected
)

// String returns the status name.
func (s ConnectStatus) String() string {
	if s == Connected {
		return "connected"
	}
	return "not-connected"
}

// DefaultInflightCapacity is the in-flight tracker capacity used when no
// WithInflightCapacity option is given.
const DefaultInflightCapacity = 10

// DefaultPingRespTimeout is the PINGRESP wait budget in milliseconds used
// when no WithPingRespTimeout option is given.
const DefaultPingRespTimeout uint32 = 5000

// Client is an MQTT 3.1.1 session over a caller-supplied transport. The
// zero value is not usable; construct with NewClient.
type Client struct {
	transport Transport
	handler   EventHandler
	now       TimeFunc
	buf       []byte
	logger    *slog.Logger

	status       ConnectStatus
	nextPacketID uint16

	keepAliveSec       uint16
	pingRespTimeoutMs  uint32
	lastPacketTime     uint32
	pingReqSendTime    uint32
	waitingForPingResp bool
	controlPacketSent  bool

	tracker deliveryTracker
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithInflightCapacity sets the fixed capacity of the in-flight QoS
// tracker. Exceeding it fails with ErrInsufficientMemory at publish time.
func WithInflightCapacity(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.tracker = newDeliveryTracker(n)
		}
	}
}

// WithKeepAlive sets the keep-alive interval in seconds for sessions
// whose CONNECT handshake is driven through the codec directly rather
// than through Connect. Zero disables keep-alive.
func WithKeepAlive(seconds uint16) Option {
	return func(c *Client) { c.keepAliveSec = seconds }
}

// WithPingRespTimeout sets how long, in milliseconds, the process loop
// waits for a PINGRESP before declaring the session dead.
func WithPingRespTimeout(ms uint32) Option {
	return func(c *Client) {
		if ms > 0 {
			c.pingRespTimeoutMs = ms
		}
	}
}

// WithLogger sets the logger used for debug-level protocol tracing. The
// default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a session over transport. handler is invoked for
// every received application-visible packet, now supplies monotonic
// milliseconds, and buf is the network buffer every packet is serialized
// into and received into; it bounds the largest packet the session can
// carry. All four are required.
func NewClient(transport Transport, handler EventHandler, now TimeFunc, buf []byte, opts ...Option) (*Client, error) {
	if transport == nil || handler == nil || now == nil || len(buf) == 0 {
		return nil, ErrBadParameter
	}

	c := &Client{
		transport:         transport,
		handler:           handler,
		now:               now,
		buf:               buf,
		logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
		status:            NotConnected,
		nextPacketID:      1,
		pingRespTimeoutMs: DefaultPingRespTimeout,
		tracker:           newDeliveryTracker(DefaultInflightCapacity),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Status reports the informational connect status. It gates nothing: the
// caller decides when the session is usable.
func (c *Client) Status() ConnectStatus {
	return c.status
}

// NextPacketID returns the next packet identifier and advances the
// counter, wrapping 65535 back to 1 and never yielding the reserved
// value 0. Not safe to call concurrently with itself.
func (c *Client) NextPacketID() uint16 {
	id := c.nextPacketID
	c.nextPacketID++
	if c.nextPacketID == 0 {
		c.nextPacketID = 1
	}
	return id
}

// Connect serializes a CONNECT packet, sends it and waits up to timeoutMs
// for the CONNACK. On acceptance it adopts info.KeepAlive as the session
// keep-alive interval and reports whether the broker resumed a previous
// session. A refused CONNACK is returned as ErrConnectRejected wrapping
// the broker's return code.
func (c *Client) Connect(info *packets.ConnectInfo, will *packets.PublishInfo, timeoutMs uint32) (sessionPresent bool, err error) {
	n, err := packets.SerializeConnect(info, will, c.buf)
	if err != nil {
		return false, err
	}
	if err := c.sendPacket(c.buf[:n]); err != nil {
		return false, err
	}

	start := c.now()
	var incoming packets.PacketInfo
	for {
		incoming, err = packets.ReadIncoming(c.transport.Recv)
		if err == nil {
			break
		}
		if !errors.Is(err, packets.ErrNoDataAvailable) {
			return false, err
		}
		if c.now()-start >= timeoutMs {
			return false, ErrConnectTimeout
		}
	}
	if incoming.Type != packets.ConnAckType {
		return false, ErrBadResponse
	}

	body, err := c.readRemaining(incoming)
	if err != nil {
		return false, err
	}
	sessionPresent, code, err := packets.DeserializeConnack(incoming, body)
	if err != nil {
		return false, err
	}
	if code != packets.ConnAccepted {
		return false, fmt.Errorf("%w: %w", ErrConnectRejected, code)
	}

	c.status = Connected
	c.keepAliveSec = info.KeepAlive
	c.waitingForPingResp = false
	c.lastPacketTime = c.now()
	c.logger.Debug("session established",
		slog.String("client_id", info.ClientID),
		slog.Bool("session_present", sessionPresent))
	return sessionPresent, nil
}

// Disconnect sends a DISCONNECT packet and marks the session not
// connected. The transport itself is the caller's to close.
func (c *Client) Disconnect() error {
	n, err := packets.SerializeDisconnect(c.buf)
	if err != nil {
		return err
	}
	if err := c.sendPacket(c.buf[:n]); err != nil {
		return err
	}
	c.status = NotConnected
	return nil
}

// Publish serializes and sends a PUBLISH packet. For QoS>0 the packetID
// must be non-zero and a tracker slot is reserved for the delivery
// handshake, which ProcessLoop completes as acks arrive; exceeding
// the tracker capacity fails with ErrInsufficientMemory before anything
// is sent. For QoS 0 the packetID is ignored.
func (c *Client) Publish(info *packets.PublishInfo, packetID uint16) error {
	if info == nil {
		return ErrBadParameter
	}
	if info.QoS > packets.QoS0 {
		if packetID == 0 {
			return ErrBadParameter
		}
		if err := c.tracker.reserve(packetID, info.QoS); err != nil {
			return err
		}
	}

	n, err := packets.SerializePublish(info, packetID, c.buf)
	if err == nil {
		err = c.sendPacket(c.buf[:n])
	}
	if err != nil {
		if info.QoS > packets.QoS0 {
			// Free the reserved slot so the caller can retry after
			// re-establishing the session.
			if i := c.tracker.lookup(packetID); i >= 0 {
				c.tracker.remove(i)
			}
		}
		return err
	}

	if info.QoS > packets.QoS0 {
		if _, err := c.tracker.updatePublish(packetID, info.QoS, false); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe serializes and sends a SUBSCRIBE packet for the given
// subscription list. packetID must be non-zero and the list non-empty.
// The broker's SUBACK is delivered through the event handler by
// ProcessLoop.
func (c *Client) Subscribe(subs []packets.Subscription, packetID uint16) error {
	if len(subs) == 0 || packetID == 0 {
		return ErrBadParameter
	}
	n, err := packets.SerializeSubscribe(subs, packetID, c.buf)
	if err != nil {
		return err
	}
	return c.sendPacket(c.buf[:n])
}

// Unsubscribe serializes and sends an UNSUBSCRIBE packet for the given
// subscription list. packetID must be non-zero and the list non-empty.
func (c *Client) Unsubscribe(subs []packets.Subscription, packetID uint16) error {
	if len(subs) == 0 || packetID == 0 {
		return ErrBadParameter
	}
	n, err := packets.SerializeUnsubscribe(subs, packetID, c.buf)
	if err != nil {
		return err
	}
	return c.sendPacket(c.buf[:n])
}

// Ping serializes and sends a PINGREQ packet and starts the PINGRESP
// wait. ProcessLoop clears the wait when the PINGRESP arrives, or fails
// with ErrKeepAliveTimeout when it does not.
func (c *Client) Ping() error {
	n, err := packets.SerializePingreq(c.buf)
	if err != nil {
		return err
	}
	if err := c.sendPacket(c.buf[:n]); err != nil {
		return err
	}
	now := c.now()
	c.lastPacketTime = now
	c.pingReqSendTime = now
	c.waitingForPingResp = true
	return nil
}

// sendPacket writes one serialized packet through the transport. Partial
// writes are never retried: a short or failed write is ErrSendFailed and
// the session should be considered unusable.
func (c *Client) sendPacket(p []byte) error {
	n, err := c.transport.Send(p)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	if n != len(p) {
		return fmt.Errorf("%w: wrote %d of %d bytes", ErrSendFailed, n, len(p))
	}
	c.lastPacketTime = c.now()
	c.controlPacketSent = true
	return nil
}

// readRemaining reads the packet body announced by info into the network
// buffer. A zero-byte read mid-body is a truncated packet boundary.
func (c *Client) readRemaining(info packets.PacketInfo) ([]byte, error) {
	if info.RemainingLength > len(c.buf) {
		return nil, ErrInsufficientMemory
	}
	total := 0
	for total < info.RemainingLength {
		n, err := c.transport.Recv(c.buf[total:info.RemainingLength])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRecvFailed, err)
		}
		if n == 0 {
			return nil, ErrRecvFailed
		}
		total += n
	}
	return c.buf[:total], nil
}
