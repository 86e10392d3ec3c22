// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Command http-demo performs a single HTTP/1.1 exchange against the
// configured server using the fixed-buffer httpc client and prints the
// response. It demonstrates the same caller-owned-buffer workflow a
// constrained device would use.
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/absmach/edgeio/config"
	"github.com/absmach/edgeio/httpc"
	tlscfg "github.com/absmach/edgeio/pkg/tls"
	"github.com/absmach/edgeio/transport"
)

// responseTimeout doubles as the transport poll interval: httpc expects
// a blocking transport, so a full poll interval with no data fails the
// exchange instead of reporting an idle connection.
const responseTimeout = 10 * time.Second

func main() {
	configFile := flag.String("config", "", "Path to configuration file")
	body := flag.String("body", "", "Request body")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	if err := run(cfg, logger, []byte(*body)); err != nil {
		logger.Error("Request failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, body []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Broker.ConnectTimeout)
	defer cancel()

	conn, err := dial(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	headers := &httpc.RequestHeaders{Buf: make([]byte, cfg.HTTP.BufferSize)}
	if err := headers.Initialize(&httpc.RequestInfo{
		Method: cfg.HTTP.Method,
		Path:   cfg.HTTP.Path,
		Host:   cfg.HTTP.Host,
	}); err != nil {
		return err
	}
	if err := headers.AddHeader("Accept", "*/*"); err != nil {
		return err
	}

	logger.Info("Sending request",
		"method", cfg.HTTP.Method,
		"host", cfg.HTTP.Host,
		"path", cfg.HTTP.Path,
		"body_bytes", len(body))

	resp := &httpc.Response{Buf: make([]byte, cfg.HTTP.BufferSize)}
	if err := httpc.Send(conn, headers, body, resp); err != nil {
		return err
	}

	logger.Info("Response received",
		"status", resp.StatusCode,
		"reason", resp.Reason,
		"content_length", resp.ContentLength)
	if ct, err := resp.Header("Content-Type"); err == nil {
		logger.Info("Content type", "value", ct)
	}
	os.Stdout.Write(resp.Body)
	return nil
}

func dial(ctx context.Context, cfg *config.Config) (*transport.Conn, error) {
	if cfg.TLS != nil {
		tc, err := tlscfg.LoadTLSConfig[*tls.Config](cfg.TLS)
		if err != nil {
			return nil, err
		}
		return transport.DialTLS(ctx, cfg.HTTP.Addr, tc, responseTimeout)
	}
	return transport.DialTCP(ctx, cfg.HTTP.Addr, responseTimeout)
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
