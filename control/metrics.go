// File: control/metrics.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Counter registry for operational visibility. Counters are cheap enough
// to bump from the hot path.

package control

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metric keys used by the server.
const (
	MetricConnsAccepted = "conns_accepted"
	MetricConnsClosed   = "conns_closed"
	MetricFramesIn      = "frames_in"
	MetricFramesOut     = "frames_out"
	MetricBytesIn       = "bytes_in"
	MetricBytesOut      = "bytes_out"
	MetricSendsDropped  = "sends_dropped"
	MetricActorFaults   = "actor_faults"
)

// MetricsRegistry is a set of named monotonic counters.
type MetricsRegistry struct {
	mu       sync.RWMutex
	counters map[string]*atomic.Uint64
	started  time.Time
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		counters: make(map[string]*atomic.Uint64),
		started:  time.Now(),
	}
}

func (mr *MetricsRegistry) counter(key string) *atomic.Uint64 {
	mr.mu.RLock()
	c, ok := mr.counters[key]
	mr.mu.RUnlock()
	if ok {
		return c
	}
	mr.mu.Lock()
	defer mr.mu.Unlock()
	if c, ok = mr.counters[key]; ok {
		return c
	}
	c = &atomic.Uint64{}
	mr.counters[key] = c
	return c
}

// Add bumps the named counter by delta.
func (mr *MetricsRegistry) Add(key string, delta uint64) {
	mr.counter(key).Add(delta)
}

// Get returns the named counter's value.
func (mr *MetricsRegistry) Get(key string) uint64 {
	return mr.counter(key).Load()
}

// Snapshot returns all counters plus the registry start time.
func (mr *MetricsRegistry) Snapshot() (map[string]uint64, time.Time) {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]uint64, len(mr.counters))
	for k, c := range mr.counters {
		out[k] = c.Load()
	}
	return out, mr.started
}
