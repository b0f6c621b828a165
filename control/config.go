// File: control/config.go
// Package control carries process-level configuration and runtime
// metrics for the server.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Thread-safe configuration store with snapshot semantics and reload
// listener propagation.

package control

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Config is the process configuration consumed by the dispatcher. The
// core treats these as opaque givens.
type Config struct {
	// ListenAddr is the host:port to bind, e.g. "0.0.0.0:9000".
	ListenAddr string `json:"listen_addr"`
	// Workers is the fixed worker pool size; 0 means one per CPU.
	Workers int `json:"workers"`
	// PollTimeoutMs bounds one multiplexer wait, and with it the latency
	// of cross-worker wakeups.
	PollTimeoutMs int `json:"poll_timeout_ms"`
	// ReadBufferLimit caps a connection's buffered unparsed input.
	ReadBufferLimit int `json:"read_buffer_limit"`
	// WriteBufferLimit caps a connection's pending outbound bytes.
	WriteBufferLimit int `json:"write_buffer_limit"`
	// MailboxLimit caps each actor mailbox; 0 means unbounded.
	MailboxLimit int `json:"mailbox_limit"`
	// MaxFramePayload caps a single inbound frame's payload.
	MaxFramePayload int64 `json:"max_frame_payload"`
	// StepBudget is the fairness budget: at most this many messages per
	// actor per scheduling pass.
	StepBudget int `json:"step_budget"`
	// PinWorkers locks each worker goroutine to an OS thread and pins it
	// to a logical CPU.
	PinWorkers bool `json:"pin_workers"`
	// FallbackBody is served to plain HTTP requests on the same port.
	FallbackBody string `json:"fallback_body"`
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:       "0.0.0.0:9000",
		Workers:          0,
		PollTimeoutMs:    10,
		ReadBufferLimit:  1 << 22, // 4 MiB
		WriteBufferLimit: 1 << 22,
		MailboxLimit:     16384,
		MaxFramePayload:  1 << 20,
		StepBudget:       16,
		FallbackBody:     "hello\n",
	}
}

// LoadConfig reads a JSON config file over the defaults.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config read %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config parse %s: %w", path, err)
	}
	return cfg, nil
}

// Store holds the live configuration and notifies listeners on update.
type Store struct {
	mu        sync.RWMutex
	cfg       *Config
	listeners []func(*Config)
}

// NewStore creates a store seeded with cfg, or defaults when nil.
func NewStore(cfg *Config) *Store {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Store{cfg: cfg}
}

// Snapshot returns a copy of the current configuration.
func (s *Store) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.cfg
}

// Update swaps the configuration and notifies listeners synchronously.
func (s *Store) Update(cfg *Config) {
	s.mu.Lock()
	s.cfg = cfg
	listeners := make([]func(*Config), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(cfg)
	}
}

// Subscribe registers a listener for config updates.
func (s *Store) Subscribe(fn func(*Config)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}
