// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "tcp", cfg.Broker.Protocol)
	assert.NotEmpty(t, cfg.Session.ClientID)

	other := Default()
	assert.NotEqual(t, cfg.Session.ClientID, other.Session.ClientID,
		"generated client ids must not collide")
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "localhost:1883", cfg.Broker.Addr)

	cfg, err = Load("does/not/exist.yaml")
	require.NoError(t, err)
	assert.Equal(t, "localhost:1883", cfg.Broker.Addr)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
broker:
  addr: broker.example.com:8883
  protocol: tls
session:
  client_id: sensor-42
  keep_alive: 30
publish:
  topic: sensors/temperature
  qos: 2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "broker.example.com:8883", cfg.Broker.Addr)
	assert.Equal(t, "tls", cfg.Broker.Protocol)
	assert.Equal(t, "sensor-42", cfg.Session.ClientID)
	assert.Equal(t, uint16(30), cfg.Session.KeepAlive)
	assert.Equal(t, byte(2), cfg.Publish.QoS)
	// Untouched sections keep their defaults.
	assert.Equal(t, 4096, cfg.Session.BufferSize)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad protocol", "broker:\n  protocol: carrier-pigeon\n"},
		{"empty ws url", "broker:\n  protocol: ws\n  ws_url: \"\"\n"},
		{"bad qos", "publish:\n  qos: 3\n"},
		{"tiny buffer", "session:\n  buffer_size: 16\n"},
		{"not yaml", "{{{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
