// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package tls loads client-side TLS and DTLS configurations from
// PEM files referenced in YAML config.
package tls

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"os"

	"github.com/pion/dtls/v3"
)

var (
	errLoadCerts    = errors.New("failed to load client certificate")
	errLoadServerCA = errors.New("failed to load server CA")
	errAppendCA     = errors.New("failed to append root ca to tls.Config")
)

// Config references the PEM material for a client connection. CertFile
// and KeyFile enable mutual TLS when both are set; ServerCAFile adds a
// private root to the verification pool.
type Config struct {
	CertFile     string `yaml:"cert_file"`
	KeyFile      string `yaml:"key_file"`
	ServerCAFile string `yaml:"server_ca_file"`
	// InsecureSkipVerify disables server certificate verification.
	// Test brokers only.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// TLSConfig constrains the configurations LoadTLSConfig can produce.
type TLSConfig interface {
	*tls.Config | *dtls.Config
}

// LoadTLSConfig returns a TLS or DTLS client configuration built from c.
// A nil c yields a nil configuration, meaning a plaintext connection.
func LoadTLSConfig[sc TLSConfig](c *Config) (sc, error) {
	var zero sc
	if c == nil {
		return zero, nil
	}

	var certificates []tls.Certificate
	if c.CertFile != "" && c.KeyFile != "" {
		certificate, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
		if err != nil {
			return zero, errors.Join(errLoadCerts, err)
		}
		certificates = []tls.Certificate{certificate}
	}

	rootCA, err := loadCertFile(c.ServerCAFile)
	if err != nil {
		return zero, errors.Join(errLoadServerCA, err)
	}
	var rootCAs *x509.CertPool
	if len(rootCA) > 0 {
		rootCAs = x509.NewCertPool()
		if !rootCAs.AppendCertsFromPEM(rootCA) {
			return zero, errAppendCA
		}
	}

	switch any(zero).(type) {
	case *tls.Config:
		config := &tls.Config{
			MinVersion:         tls.VersionTLS12,
			Certificates:       certificates,
			RootCAs:            rootCAs,
			InsecureSkipVerify: c.InsecureSkipVerify,
		}
		return any(config).(sc), nil
	case *dtls.Config:
		config := &dtls.Config{
			Certificates:       certificates,
			RootCAs:            rootCAs,
			InsecureSkipVerify: c.InsecureSkipVerify,
		}
		return any(config).(sc), nil
	}
	return zero, nil
}

func loadCertFile(certFile string) ([]byte, error) {
	if certFile == "" {
		return nil, nil
	}
	return os.ReadFile(certFile)
}
