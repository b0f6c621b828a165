// File: server/server.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server owns the listener, the actor runtime and the fixed worker pool.
// Connections are assigned to a worker at accept time and stay with it
// for their lifetime, so connection buffers and actor state never cross
// workers; the actor table and the poller registration tables are the
// only shared structures.

package server

import (
	"fmt"
	"log"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/momentics/actorws/actor"
	"github.com/momentics/actorws/api"
	"github.com/momentics/actorws/conn"
	"github.com/momentics/actorws/control"
	"github.com/momentics/actorws/transport"
)

// BehaviorFactory builds the application actor for one connection. The
// egress address identifies the connection's writer; sending Outbound
// messages to it writes frames back to the peer.
type BehaviorFactory func(egress actor.Address) (init any, receive actor.Behavior)

// Server is the dispatcher: accept, readiness fan-out, actor stepping.
type Server struct {
	store    *control.Store
	metrics  *control.MetricsRegistry
	behavior BehaviorFactory

	cfg     atomic.Pointer[control.Config]
	rt      *actor.Runtime
	sock    api.Sock
	ln      *transport.Listener
	workers []*worker

	// actorConns routes actor faults back to the owning connection. The
	// handler always runs on the worker that owns the connection, so the
	// map only needs to be safe for lookup, not the Conn itself.
	actorConns sync.Map // actor.Address -> *conn.Conn

	nextWorker atomic.Uint32
	quit       chan struct{}
	wg         sync.WaitGroup
	running    atomic.Bool
}

// New builds an unstarted server.
func New(opts ...Option) *Server {
	s := &Server{
		store:   control.NewStore(nil),
		metrics: control.NewMetricsRegistry(),
		sock:    transport.OS(),
		quit:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Metrics returns the server's metrics registry.
func (s *Server) Metrics() *control.MetricsRegistry { return s.metrics }

// config returns the live configuration. Hot reloads replace it; worker
// count and listen address stay as bound at Start, everything else
// applies to subsequent loop iterations and newly accepted connections.
func (s *Server) config() *control.Config { return s.cfg.Load() }

// Addr returns the bound listen address once started.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr()
}

// Start binds the listener and launches the worker pool.
func (s *Server) Start() error {
	if s.behavior == nil {
		return fmt.Errorf("server: no behavior factory configured")
	}
	if !s.running.CompareAndSwap(false, true) {
		return api.ErrClosed
	}
	snap := s.store.Snapshot()
	s.cfg.Store(&snap)
	s.store.Subscribe(func(next *control.Config) {
		cp := *next
		s.cfg.Store(&cp)
	})

	s.rt = actor.NewRuntime()
	s.rt.MailboxLimit = snap.MailboxLimit
	s.rt.SetFaultHandler(s.onActorFault)

	ln, err := transport.Listen(snap.ListenAddr)
	if err != nil {
		s.running.Store(false)
		return err
	}
	s.ln = ln

	numWorkers := snap.Workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	s.workers = make([]*worker, numWorkers)
	for i := 0; i < numWorkers; i++ {
		w, err := newWorker(i, s)
		if err != nil {
			s.shutdownWorkers()
			ln.Close()
			s.running.Store(false)
			return fmt.Errorf("worker %d: %w", i, err)
		}
		s.workers[i] = w
	}

	// The accepting worker owns the listening descriptor.
	if err := s.workers[0].poller.Register(ln.Fd(), api.Interest{Readable: true}); err != nil {
		s.shutdownWorkers()
		ln.Close()
		s.running.Store(false)
		return fmt.Errorf("register listener: %w", err)
	}

	for _, w := range s.workers {
		s.wg.Add(1)
		go w.loop()
	}
	log.Printf("[server] listening on %s with %d workers", ln.Addr(), numWorkers)
	return nil
}

// Stop halts the workers, closes every connection and releases the
// listener. Safe to call once after a successful Start.
func (s *Server) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	close(s.quit)
	s.wg.Wait()
	s.ln.Close()
	for _, w := range s.workers {
		w.closeAll()
		w.poller.Close()
	}
	s.metrics.Add(control.MetricSendsDropped, s.rt.Dropped())
}

// onActorFault tears down the connection owning a faulted actor. The
// runtime invokes it synchronously on the worker stepping the actor.
func (s *Server) onActorFault(addr actor.Address, cause error) {
	s.metrics.Add(control.MetricActorFaults, 1)
	log.Printf("[server] actor %d fault: %v", addr, cause)
	if v, ok := s.actorConns.Load(addr); ok {
		v.(*conn.Conn).CloseNow()
	}
}

// assign picks the worker for a freshly accepted descriptor.
func (s *Server) assign() *worker {
	idx := int(s.nextWorker.Add(1)) % len(s.workers)
	return s.workers[idx]
}

func (s *Server) shutdownWorkers() {
	for _, w := range s.workers {
		if w != nil {
			w.poller.Close()
		}
	}
}
