// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Command mqtt-demo connects to an MQTT broker, subscribes to the
// configured topics and publishes on an interval, driving the session
// through the polling process loop. Connection establishment is guarded
// by a circuit breaker so a dead broker is probed, not hammered.
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	piondtls "github.com/pion/dtls/v3"
	"github.com/sony/gobreaker"

	"github.com/absmach/edgeio/config"
	"github.com/absmach/edgeio/mqtt"
	"github.com/absmach/edgeio/mqtt/packets"
	tlscfg "github.com/absmach/edgeio/pkg/tls"
	"github.com/absmach/edgeio/ratelimit"
	"github.com/absmach/edgeio/transport"
)

func main() {
	configFile := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	limiter := ratelimit.NewManager(cfg.RateLimit)
	defer limiter.Stop()

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "mqtt-connect",
		MaxRequests: 1,
		Timeout:     cfg.Breaker.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.Breaker.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("connect circuit breaker state changed",
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})

	logger.Info("Starting MQTT demo",
		"broker", cfg.Broker.Addr,
		"protocol", cfg.Broker.Protocol,
		"client_id", cfg.Session.ClientID)

	if err := run(ctx, cfg, logger, limiter, breaker); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Demo terminated", "error", err)
		os.Exit(1)
	}
	logger.Info("Demo stopped")
}

// run re-establishes the session whenever it fails, until ctx ends.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, limiter *ratelimit.Manager, breaker *gobreaker.CircuitBreaker) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		_, err := breaker.Execute(func() (any, error) {
			return nil, runSession(ctx, cfg, logger, limiter)
		})
		if err == nil || errors.Is(err, context.Canceled) {
			return err
		}

		logger.Warn("Session ended, reconnecting", "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

// runSession dials, connects, subscribes and services the session until
// it fails or ctx ends.
func runSession(ctx context.Context, cfg *config.Config, logger *slog.Logger, limiter *ratelimit.Manager) error {
	conn, err := dial(ctx, cfg)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	start := time.Now()
	now := func() uint32 { return uint32(time.Since(start).Milliseconds()) }

	handler := func(c *mqtt.Client, info packets.PacketInfo, packetID uint16, pub *packets.PublishInfo) {
		if pub != nil {
			logger.Info("Message received",
				"topic", pub.TopicName,
				"qos", pub.QoS,
				"payload_bytes", len(pub.Payload))
		}
	}

	client, err := mqtt.NewClient(conn, handler, now, make([]byte, cfg.Session.BufferSize),
		mqtt.WithInflightCapacity(cfg.Session.MaxInflight),
		mqtt.WithPingRespTimeout(uint32(cfg.Session.PingRespTimeout.Milliseconds())),
		mqtt.WithLogger(logger))
	if err != nil {
		return err
	}

	info := &packets.ConnectInfo{
		CleanSession: cfg.Session.CleanSession,
		KeepAlive:    cfg.Session.KeepAlive,
		ClientID:     cfg.Session.ClientID,
		Username:     cfg.Session.Username,
		Password:     []byte(cfg.Session.Password),
	}
	sessionPresent, err := client.Connect(info, nil, uint32(cfg.Broker.ConnectTimeout.Milliseconds()))
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	logger.Info("Connected", "session_present", sessionPresent)
	defer client.Disconnect()

	if len(cfg.Publish.SubscribeTopics) > 0 {
		subs := make([]packets.Subscription, 0, len(cfg.Publish.SubscribeTopics))
		for _, topic := range cfg.Publish.SubscribeTopics {
			subs = append(subs, packets.Subscription{TopicFilter: topic, QoS: cfg.Publish.QoS})
		}
		if err := client.Subscribe(subs, client.NextPacketID()); err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
	}

	ticker := time.NewTicker(cfg.Publish.Interval)
	defer ticker.Stop()

	seq := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !limiter.AllowPublish(cfg.Publish.Topic) {
				logger.Warn("Publish throttled", "topic", cfg.Publish.Topic)
				continue
			}
			seq++
			pub := &packets.PublishInfo{
				QoS:       cfg.Publish.QoS,
				Retain:    cfg.Publish.Retain,
				TopicName: cfg.Publish.Topic,
				Payload:   fmt.Appendf(nil, `{"seq":%d}`, seq),
			}
			var packetID uint16
			if pub.QoS > packets.QoS0 {
				packetID = client.NextPacketID()
			}
			if err := client.Publish(pub, packetID); err != nil {
				return fmt.Errorf("publish: %w", err)
			}
		default:
		}

		if err := client.ProcessLoop(uint32(cfg.Broker.PollInterval.Milliseconds())); err != nil {
			return fmt.Errorf("process loop: %w", err)
		}
	}
}

// closableTransport is the transport plus the Close method every dialer's
// concrete connection type provides.
type closableTransport interface {
	mqtt.Transport
	io.Closer
}

// dial opens the transport selected by the configuration.
func dial(ctx context.Context, cfg *config.Config) (closableTransport, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Broker.ConnectTimeout)
	defer cancel()

	switch cfg.Broker.Protocol {
	case "tcp":
		return transport.DialTCP(ctx, cfg.Broker.Addr, cfg.Broker.PollInterval)
	case "tls":
		tc, err := tlscfg.LoadTLSConfig[*tls.Config](cfg.TLS)
		if err != nil {
			return nil, err
		}
		if tc == nil {
			tc = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		return transport.DialTLS(ctx, cfg.Broker.Addr, tc, cfg.Broker.PollInterval)
	case "dtls":
		dc, err := tlscfg.LoadTLSConfig[*piondtls.Config](cfg.TLS)
		if err != nil {
			return nil, err
		}
		if dc == nil {
			dc = &piondtls.Config{}
		}
		return transport.DialDTLS(ctx, cfg.Broker.Addr, dc, cfg.Broker.PollInterval)
	case "ws", "wss":
		tc, err := tlscfg.LoadTLSConfig[*tls.Config](cfg.TLS)
		if err != nil {
			return nil, err
		}
		return transport.DialWebSocket(ctx, cfg.Broker.WSURL, tc, cfg.Broker.PollInterval)
	default:
		return nil, fmt.Errorf("unknown protocol %q", cfg.Broker.Protocol)
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	logLevel := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}
	return slog.New(handler)
}
