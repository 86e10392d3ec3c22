// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package mqtt

import (
	"errors"
	"log/slog"

	"github.com/absmach/edgeio/mqtt/packets"
)

// ProcessLoop services the session for up to timeoutMs milliseconds: it
// answers keep-alive duties, reads and dispatches incoming packets,
// drives the QoS delivery handshakes and invokes the event handler.
//
// Each iteration checks keep-alive first (so an expired PINGRESP wait is
// reported without touching the transport), then reads at most one
// packet. An idle transport ends the loop with a nil error; the budget
// only bounds how long a stream of back-to-back packets is drained. Any
// other error ends the loop immediately and is returned as-is: the loop
// never retries, resends or recovers on the caller's behalf.
func (c *Client) ProcessLoop(timeoutMs uint32) error {
	c.controlPacketSent = false
	start := c.now()
	for {
		if err := c.keepAlive(); err != nil {
			return err
		}

		incoming, err := packets.ReadIncoming(c.transport.Recv)
		if errors.Is(err, packets.ErrNoDataAvailable) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := c.dispatch(incoming); err != nil {
			return err
		}
		if c.now()-start >= timeoutMs {
			return nil
		}
	}
}

// keepAlive sends a PINGREQ when the session has been quiet for the
// keep-alive interval, and fails the session when a previous PINGREQ has
// gone unanswered past the response timeout. Wraparound subtraction keeps
// the checks correct across uint32 clock rollover.
func (c *Client) keepAlive() error {
	now := c.now()
	if c.waitingForPingResp {
		if now-c.pingReqSendTime >= c.pingRespTimeoutMs {
			c.logger.Warn("keep-alive timeout",
				slog.Uint64("timeout_ms", uint64(c.pingRespTimeoutMs)))
			return ErrKeepAliveTimeout
		}
		return nil
	}
	if c.keepAliveSec == 0 {
		return nil
	}
	if now-c.lastPacketTime >= uint32(c.keepAliveSec)*1000 {
		c.logger.Debug("keep-alive interval elapsed, sending PINGREQ")
		return c.Ping()
	}
	return nil
}

// dispatch classifies one incoming packet and runs its handling path. A
// packet type a client must never receive mid-session, such as a stray
// CONNECT, is a protocol violation.
func (c *Client) dispatch(info packets.PacketInfo) error {
	c.logger.Debug("packet received",
		slog.String("type", packets.PacketNames[info.Type]),
		slog.Int("remaining_length", info.RemainingLength))

	switch info.Type {
	case packets.PublishType:
		return c.handlePublish(info)
	case packets.PubAckType, packets.PubRecType, packets.PubRelType, packets.PubCompType:
		return c.handleAck(info)
	case packets.SubAckType:
		return c.handleSuback(info)
	case packets.UnsubAckType:
		return c.handleUnsuback(info)
	case packets.PingRespType:
		return c.handlePingresp(info)
	default:
		return ErrBadResponse
	}
}

// handlePublish delivers an incoming PUBLISH to the application and,
// for QoS>0, advances the delivery handshake and sends the required
// PUBACK or PUBREC. The event handler runs before the response is
// serialized because the response reuses the network buffer holding the
// publish payload.
func (c *Client) handlePublish(info packets.PacketInfo) error {
	body, err := c.readRemaining(info)
	if err != nil {
		return err
	}
	pub, packetID, err := packets.DeserializePublish(info, body)
	if err != nil {
		return err
	}

	c.handler(c, info, packetID, &pub)

	if pub.QoS == packets.QoS0 {
		return nil
	}
	state, err := c.tracker.updatePublish(packetID, pub.QoS, true)
	if err != nil {
		return err
	}

	switch state {
	case StatePubAckSend:
		return c.sendHandshakeAck(packetID, packets.PubAckType)
	case StatePubRecSend:
		return c.sendHandshakeAck(packetID, packets.PubRecType)
	}
	return nil
}

// handleAck advances the delivery handshake for one of the PUBACK family
// and sends any follow-up the new state demands (PUBREC begets PUBREL,
// PUBREL begets PUBCOMP).
func (c *Client) handleAck(info packets.PacketInfo) error {
	body, err := c.readRemaining(info)
	if err != nil {
		return err
	}
	packetID, err := packets.DeserializeAck(info, body)
	if err != nil {
		return err
	}

	c.handler(c, info, packetID, nil)

	state, err := c.tracker.updateAck(packetID, info.Type, true)
	if err != nil {
		return err
	}

	switch state {
	case StatePubRelSend:
		return c.sendHandshakeAck(packetID, packets.PubRelType)
	case StatePubCompSend:
		return c.sendHandshakeAck(packetID, packets.PubCompType)
	}
	return nil
}

// sendHandshakeAck serializes, sends and records one handshake packet.
func (c *Client) sendHandshakeAck(packetID uint16, ackType byte) error {
	n, err := packets.SerializeAck(ackType, packetID, c.buf)
	if err != nil {
		return err
	}
	if err := c.sendPacket(c.buf[:n]); err != nil {
		return err
	}
	state, err := c.tracker.updateAck(packetID, ackType, false)
	if err != nil {
		return err
	}
	c.logger.Debug("handshake packet sent",
		slog.String("type", packets.PacketNames[ackType]),
		slog.Uint64("packet_id", uint64(packetID)),
		slog.String("state", state.String()))
	return nil
}

func (c *Client) handleSuback(info packets.PacketInfo) error {
	body, err := c.readRemaining(info)
	if err != nil {
		return err
	}
	packetID, codes, err := packets.DeserializeSuback(info, body)
	if err != nil {
		return err
	}
	for _, code := range codes {
		if code == packets.SubackFailure {
			c.logger.Warn("subscription rejected by broker",
				slog.Uint64("packet_id", uint64(packetID)))
			break
		}
	}
	c.handler(c, info, packetID, nil)
	return nil
}

func (c *Client) handleUnsuback(info packets.PacketInfo) error {
	body, err := c.readRemaining(info)
	if err != nil {
		return err
	}
	packetID, err := packets.DeserializeUnsuback(info, body)
	if err != nil {
		return err
	}
	c.handler(c, info, packetID, nil)
	return nil
}

func (c *Client) handlePingresp(info packets.PacketInfo) error {
	if info.RemainingLength != 0 || info.Flags != 0 {
		return ErrBadResponse
	}
	c.waitingForPingResp = false
	c.handler(c, info, 0, nil)
	return nil
}
