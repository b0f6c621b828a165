// File: server/worker.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// One worker: its own epoll instance, the connections pinned to it, a
// runnable-actor queue and a cooperative loop that interleaves I/O
// servicing with actor stepping under a fairness budget.

package server

import (
	"log"
	"runtime"
	"sync"

	"github.com/momentics/actorws/actor"
	"github.com/momentics/actorws/affinity"
	"github.com/momentics/actorws/api"
	"github.com/momentics/actorws/conn"
	"github.com/momentics/actorws/control"
	"github.com/momentics/actorws/internal/concurrency"
	"github.com/momentics/actorws/pool"
	"github.com/momentics/actorws/reactor"
)

const (
	eventBatch    = 128
	handoffRing   = 256
	runnableDepth = 4096
	// runnablePass caps how many distinct actors one loop iteration
	// steps, so mailbox pressure cannot starve I/O servicing.
	runnablePass = 256
	readChunk    = 64 << 10
)

// runQueue is a worker's runnable-actor queue. The lock-free queue is
// the fast path; the overflow list only fills when thousands of actors
// wake at once, and runnability is never dropped.
type runQueue struct {
	q        *concurrency.Queue[actor.Address]
	mu       sync.Mutex
	overflow []actor.Address
}

func newRunQueue() *runQueue {
	return &runQueue{q: concurrency.NewQueue[actor.Address](runnableDepth)}
}

// Offer marks an actor runnable; called from any worker.
func (rq *runQueue) Offer(addr actor.Address) bool {
	if rq.q.Offer(addr) {
		return true
	}
	rq.mu.Lock()
	rq.overflow = append(rq.overflow, addr)
	rq.mu.Unlock()
	return true
}

func (rq *runQueue) poll() (actor.Address, bool) {
	if addr, ok := rq.q.Poll(); ok {
		return addr, true
	}
	rq.mu.Lock()
	defer rq.mu.Unlock()
	if len(rq.overflow) == 0 {
		return actor.None, false
	}
	addr := rq.overflow[0]
	rq.overflow = rq.overflow[1:]
	return addr, true
}

type worker struct {
	id     int
	srv    *Server
	poller api.Poller
	conns  map[int]*conn.Conn
	run    *runQueue
	inbox  *pool.Ring[int]
	events []api.Event
	bytes  *pool.BytePool
}

func newWorker(id int, srv *Server) (*worker, error) {
	poller, err := reactor.New()
	if err != nil {
		return nil, err
	}
	return &worker{
		id:     id,
		srv:    srv,
		poller: poller,
		conns:  make(map[int]*conn.Conn),
		run:    newRunQueue(),
		inbox:  pool.NewRing[int](handoffRing),
		events: make([]api.Event, eventBatch),
		bytes:  pool.NewBytePool(readChunk),
	}, nil
}

// loop is the worker's cooperative scheduler: poll readiness, service
// connections, adopt handed-off descriptors, then drain runnable actors
// within the fairness budget. Nothing in here blocks on I/O.
func (w *worker) loop() {
	defer w.srv.wg.Done()
	if w.srv.config().PinWorkers {
		runtime.LockOSThread()
		if err := affinity.Pin(w.id % runtime.NumCPU()); err != nil {
			log.Printf("[worker %d] cpu pin: %v", w.id, err)
		}
	}
	scratch := w.bytes.Get()
	defer w.bytes.Put(scratch)

	for {
		select {
		case <-w.srv.quit:
			return
		default:
		}

		n, err := w.poller.Wait(w.events, w.srv.config().PollTimeoutMs)
		if err != nil {
			log.Printf("[worker %d] poll: %v", w.id, err)
			continue
		}
		for i := 0; i < n; i++ {
			ev := w.events[i]
			if w.id == 0 && ev.Fd == w.srv.ln.Fd() {
				w.acceptReady()
				continue
			}
			c, ok := w.conns[ev.Fd]
			if !ok {
				continue
			}
			if ev.Err {
				c.OnError()
				continue
			}
			if ev.Readable {
				c.OnReadable(scratch)
			}
			if ev.Writable && c.Phase() != conn.Closed {
				c.OnWritable()
			}
		}

		w.drainInbox()
		w.drainRunnable()
	}
}

// acceptReady pulls every pending connection off the listener and hands
// each to its assigned worker. Accept failures are connection-local.
func (w *worker) acceptReady() {
	for {
		fd, err := w.srv.ln.Accept()
		if err == api.ErrWouldBlock {
			return
		}
		if err != nil {
			log.Printf("[worker %d] accept: %v", w.id, err)
			return
		}
		target := w.srv.assign()
		if target == w {
			w.adopt(fd)
			continue
		}
		if !target.inbox.Enqueue(fd) {
			// Handoff ring full: shed the connection rather than block
			// the accept path.
			log.Printf("[worker %d] handoff to worker %d full, dropping fd %d", w.id, target.id, fd)
			_ = w.srv.sock.Close(fd)
		}
	}
}

func (w *worker) drainInbox() {
	for {
		fd, ok := w.inbox.Dequeue()
		if !ok {
			return
		}
		w.adopt(fd)
	}
}

// adopt builds the connection state machine and its actor pair, and
// registers the descriptor with this worker's poller.
func (w *worker) adopt(fd int) {
	srv := w.srv
	cfg := srv.config()
	c := conn.New(fd, srv.sock, w.poller,
		conn.WithBufferLimits(cfg.ReadBufferLimit, cfg.WriteBufferLimit),
		conn.WithMaxFramePayload(cfg.MaxFramePayload),
		conn.WithFallbackBody([]byte(cfg.FallbackBody)),
		conn.WithMessageHandler(w.onMessage),
		conn.WithCloseHandler(w.onClosed),
	)

	// The egress actor runs only on this worker, so touching the
	// connection from its behavior is single-threaded by construction.
	c.Egress = srv.rt.Spawn(nil, func(_ any, msg actor.Message) []actor.Action {
		switch m := msg.(type) {
		case Outbound:
			c.QueueFrame(m.Opcode, m.Payload)
			srv.metrics.Add(control.MetricFramesOut, 1)
			srv.metrics.Add(control.MetricBytesOut, uint64(len(m.Payload)))
		case CloseRequest:
			c.CloseWith(m.Code, m.Reason)
		}
		return nil
	}, w.run)

	init, receive := srv.behavior(c.Egress)
	c.App = srv.rt.Spawn(init, receive, w.run)

	srv.actorConns.Store(c.Egress, c)
	srv.actorConns.Store(c.App, c)
	w.conns[fd] = c

	if err := c.Register(); err != nil {
		// Registration failure kills this connection attempt only.
		log.Printf("[worker %d] register fd %d: %v", w.id, fd, err)
		c.CloseNow()
		return
	}
	srv.metrics.Add(control.MetricConnsAccepted, 1)
}

// onMessage forwards one complete inbound message to the application
// actor.
func (w *worker) onMessage(c *conn.Conn, opcode byte, payload []byte) {
	w.srv.metrics.Add(control.MetricFramesIn, 1)
	w.srv.metrics.Add(control.MetricBytesIn, uint64(len(payload)))
	w.srv.rt.Send(c.App, c.Egress, Inbound{From: c.Egress, Opcode: opcode, Payload: payload})
}

// onClosed tears down the connection's actors once it reaches Closed.
func (w *worker) onClosed(c *conn.Conn) {
	delete(w.conns, c.Fd())
	w.srv.rt.Kill(c.App)
	w.srv.rt.Kill(c.Egress)
	w.srv.actorConns.Delete(c.App)
	w.srv.actorConns.Delete(c.Egress)
	w.srv.metrics.Add(control.MetricConnsClosed, 1)
}

// drainRunnable steps runnable actors, at most StepBudget messages each
// and at most runnablePass actors per loop iteration.
func (w *worker) drainRunnable() {
	budget := w.srv.config().StepBudget
	if budget <= 0 {
		budget = 16
	}
	for i := 0; i < runnablePass; i++ {
		addr, ok := w.run.poll()
		if !ok {
			return
		}
		w.srv.rt.Step(addr, budget)
	}
}

// closeAll force-closes every connection still owned by the worker.
// Called after the loop has exited.
func (w *worker) closeAll() {
	for _, c := range w.conns {
		c.CloseNow()
	}
}
