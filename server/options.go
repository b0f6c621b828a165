// File: server/options.go
// Package server wires the multiplexer, connections and actor runtime
// into a fixed worker pool.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import "github.com/momentics/actorws/control"

// Option customizes server initialization.
type Option func(*Server)

// WithConfig seeds the server with a configuration store.
func WithConfig(store *control.Store) Option {
	return func(s *Server) { s.store = store }
}

// WithBehavior sets the per-connection application behavior factory.
func WithBehavior(factory BehaviorFactory) Option {
	return func(s *Server) { s.behavior = factory }
}

// WithMetrics attaches a metrics registry.
func WithMetrics(m *control.MetricsRegistry) Option {
	return func(s *Server) { s.metrics = m }
}
