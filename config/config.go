// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package config holds the YAML configuration for the demo binaries.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	tlscfg "github.com/absmach/edgeio/pkg/tls"
	"github.com/absmach/edgeio/ratelimit"
)

// Config holds all configuration for the demo clients.
type Config struct {
	Broker    BrokerConfig     `yaml:"broker"`
	Session   SessionConfig    `yaml:"session"`
	Publish   PublishConfig    `yaml:"publish"`
	HTTP      HTTPConfig       `yaml:"http"`
	TLS       *tlscfg.Config   `yaml:"tls"`
	RateLimit ratelimit.Config `yaml:"rate_limit"`
	Breaker   BreakerConfig    `yaml:"breaker"`
	Log       LogConfig        `yaml:"log"`
}

// BrokerConfig locates the MQTT broker.
type BrokerConfig struct {
	// Addr is the broker host:port for tcp, tls and dtls protocols.
	Addr string `yaml:"addr"`
	// Protocol is one of tcp, tls, dtls, ws, wss.
	Protocol string `yaml:"protocol"`
	// WSURL is the full WebSocket URL for ws and wss protocols,
	// e.g. "ws://localhost:8083/mqtt".
	WSURL string `yaml:"ws_url"`
	// ConnectTimeout bounds dialing and the CONNACK wait.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	// PollInterval is the transport receive poll interval.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// SessionConfig holds MQTT session settings.
type SessionConfig struct {
	// ClientID identifies the session. Empty means a generated one.
	ClientID     string `yaml:"client_id"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	CleanSession bool   `yaml:"clean_session"`
	// KeepAlive is the keep-alive interval in seconds. Zero disables it.
	KeepAlive uint16 `yaml:"keep_alive"`
	// PingRespTimeout bounds the PINGRESP wait.
	PingRespTimeout time.Duration `yaml:"ping_resp_timeout"`
	// BufferSize is the network buffer size in bytes; it bounds the
	// largest packet the session can carry.
	BufferSize int `yaml:"buffer_size"`
	// MaxInflight is the in-flight QoS tracker capacity.
	MaxInflight int `yaml:"max_inflight"`
}

// PublishConfig drives the demo publish loop.
type PublishConfig struct {
	Topic    string        `yaml:"topic"`
	QoS      byte          `yaml:"qos"`
	Retain   bool          `yaml:"retain"`
	Interval time.Duration `yaml:"interval"`
	// SubscribeTopics are subscribed to on session establishment.
	SubscribeTopics []string `yaml:"subscribe_topics"`
}

// HTTPConfig locates the HTTP server for the http demo.
type HTTPConfig struct {
	Addr   string `yaml:"addr"`
	Host   string `yaml:"host"`
	Path   string `yaml:"path"`
	Method string `yaml:"method"`
	// BufferSize is used for both the request header buffer and the
	// response buffer.
	BufferSize int `yaml:"buffer_size"`
}

// BreakerConfig tunes the circuit breaker guarding session
// re-establishment.
type BreakerConfig struct {
	// FailureThreshold is how many consecutive connect failures trip
	// the breaker.
	FailureThreshold uint32 `yaml:"failure_threshold"`
	// ResetTimeout is how long the breaker stays open before a probe.
	ResetTimeout time.Duration `yaml:"reset_timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Default returns a configuration with sensible defaults. The client ID
// is randomly generated so two demo instances never collide.
func Default() *Config {
	return &Config{
		Broker: BrokerConfig{
			Addr:           "localhost:1883",
			Protocol:       "tcp",
			WSURL:          "ws://localhost:8083/mqtt",
			ConnectTimeout: 10 * time.Second,
			PollInterval:   10 * time.Millisecond,
		},
		Session: SessionConfig{
			ClientID:        "edgeio-" + uuid.NewString(),
			CleanSession:    true,
			KeepAlive:       60,
			PingRespTimeout: 5 * time.Second,
			BufferSize:      4096,
			MaxInflight:     10,
		},
		Publish: PublishConfig{
			Topic:           "edgeio/demo",
			QoS:             1,
			Interval:        time.Second,
			SubscribeTopics: []string{"edgeio/demo"},
		},
		HTTP: HTTPConfig{
			Addr:       "localhost:80",
			Host:       "localhost",
			Path:       "/",
			Method:     "GET",
			BufferSize: 4096,
		},
		RateLimit: ratelimit.DefaultConfig(),
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file. An empty filename or a
// missing file yields the defaults.
func Load(filename string) (*Config, error) {
	if filename == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Broker.Protocol {
	case "tcp", "tls", "dtls":
		if c.Broker.Addr == "" {
			return fmt.Errorf("broker.addr cannot be empty")
		}
	case "ws", "wss":
		if c.Broker.WSURL == "" {
			return fmt.Errorf("broker.ws_url cannot be empty")
		}
	default:
		return fmt.Errorf("broker.protocol must be one of: tcp, tls, dtls, ws, wss")
	}

	if c.Session.ClientID == "" {
		return fmt.Errorf("session.client_id cannot be empty")
	}
	if c.Session.BufferSize < 128 {
		return fmt.Errorf("session.buffer_size must be at least 128 bytes")
	}
	if c.Session.MaxInflight < 1 {
		return fmt.Errorf("session.max_inflight must be at least 1")
	}
	if c.Publish.QoS > 2 {
		return fmt.Errorf("publish.qos must be 0, 1 or 2")
	}
	if c.Breaker.FailureThreshold < 1 {
		return fmt.Errorf("breaker.failure_threshold must be at least 1")
	}
	return nil
}
