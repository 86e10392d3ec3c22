// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package ratelimit throttles outbound publishes per topic so a
// misbehaving sensor loop cannot flood the broker.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// TopicRateLimiter enforces a token-bucket publish budget per topic.
// Topics not published to for a while are evicted by a background
// cleanup loop.
type TopicRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*topicEntry
	rate     rate.Limit
	burst    int
	cleanup  time.Duration
	stopCh   chan struct{}
}

type topicEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewTopicRateLimiter creates a limiter allowing r publishes per second
// per topic with the given burst allowance.
func NewTopicRateLimiter(r float64, burst int, cleanupInterval time.Duration) *TopicRateLimiter {
	l := &TopicRateLimiter{
		limiters: make(map[string]*topicEntry),
		rate:     rate.Limit(r),
		burst:    burst,
		cleanup:  cleanupInterval,
		stopCh:   make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow reports whether a publish to topic fits within the budget.
func (l *TopicRateLimiter) Allow(topic string) bool {
	l.mu.Lock()
	entry, exists := l.limiters[topic]
	if !exists {
		entry = &topicEntry{
			limiter:  rate.NewLimiter(l.rate, l.burst),
			lastSeen: time.Now(),
		}
		l.limiters[topic] = entry
	} else {
		entry.lastSeen = time.Now()
	}
	limiter := entry.limiter
	l.mu.Unlock()

	return limiter.Allow()
}

// Stop stops the cleanup goroutine.
func (l *TopicRateLimiter) Stop() {
	close(l.stopCh)
}

func (l *TopicRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanup)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.evictStale()
		case <-l.stopCh:
			return
		}
	}
}

func (l *TopicRateLimiter) evictStale() {
	l.mu.Lock()
	defer l.mu.Unlock()

	threshold := time.Now().Add(-l.cleanup * 2)
	for topic, entry := range l.limiters {
		if entry.lastSeen.Before(threshold) {
			delete(l.limiters, topic)
		}
	}
}

// Config holds publish rate limiting configuration.
type Config struct {
	Enabled bool `yaml:"enabled"`
	// Rate is publishes per second per topic.
	Rate float64 `yaml:"rate"`
	// Burst is the burst allowance per topic.
	Burst int `yaml:"burst"`
	// CleanupInterval bounds how long idle topics are remembered.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:         false,
		Rate:            10,
		Burst:           5,
		CleanupInterval: 5 * time.Minute,
	}
}

// Manager wraps a TopicRateLimiter behind the enabled flag so callers
// need no conditional wiring.
type Manager struct {
	limiter  *TopicRateLimiter
	disabled bool
}

// NewManager creates a rate limit manager from config.
func NewManager(cfg Config) *Manager {
	if !cfg.Enabled {
		return &Manager{disabled: true}
	}
	return &Manager{
		limiter: NewTopicRateLimiter(cfg.Rate, cfg.Burst, cfg.CleanupInterval),
	}
}

// AllowPublish reports whether a publish to topic is allowed.
func (m *Manager) AllowPublish(topic string) bool {
	if m.disabled {
		return true
	}
	return m.limiter.Allow(topic)
}

// Stop stops the manager and its cleanup loop.
func (m *Manager) Stop() {
	if m.limiter != nil {
		m.limiter.Stop()
	}
}
