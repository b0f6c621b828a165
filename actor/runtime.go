// File: actor/runtime.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The runtime owns the actor table — the only structure shared across
// workers besides the poller registration tables. Everything else an
// actor touches (state, mailbox contents mid-step) is exclusively owned
// by the single worker holding the actor at that instant.

package actor

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/momentics/actorws/api"
)

// RunQueue receives runnable notifications for actors homed on one
// worker. Offer may be called from any goroutine.
type RunQueue interface {
	Offer(addr Address) bool
}

// FaultHandler is invoked on the worker stepping the actor when a
// behavior panics or a mailbox overflows. Overflows detected on the
// send path are recorded on the actor and raised by the next Step, so
// the handler always runs on the owning worker, never on a foreign
// sender. The runtime has already torn the actor down when it fires.
type FaultHandler func(addr Address, cause error)

// proc is one live actor. claimed implements single-ownership
// scheduling: while true, exactly one worker holds the actor and its
// address sits in (or is being drained from) its home run queue.
type proc struct {
	addr    Address
	home    RunQueue
	mu      sync.Mutex
	box     *mailbox
	state   any
	receive Behavior
	claimed bool
	dead    bool
	// cause holds a fault recorded outside the owning worker (a send-path
	// mailbox overflow); the next Step raises it on the home worker.
	cause error
}

// Runtime manages the actor table and message dispatch.
type Runtime struct {
	mu      sync.RWMutex
	procs   map[Address]*proc
	next    atomic.Uint64
	dropped atomic.Uint64
	faults  atomic.Uint64

	// MailboxLimit caps every mailbox spawned after it is set; 0 means
	// unbounded.
	MailboxLimit int

	onFault FaultHandler
}

// NewRuntime creates an empty runtime.
func NewRuntime() *Runtime {
	return &Runtime{procs: make(map[Address]*proc)}
}

// SetFaultHandler installs the handler called when an actor faults.
func (r *Runtime) SetFaultHandler(h FaultHandler) { r.onFault = h }

// Dropped returns the count of messages dropped on dead addresses.
func (r *Runtime) Dropped() uint64 { return r.dropped.Load() }

// Faults returns the count of actors torn down by behavior failure.
func (r *Runtime) Faults() uint64 { return r.faults.Load() }

// Live returns the number of registered actors.
func (r *Runtime) Live() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.procs)
}

// Spawn registers a new actor homed on the given run queue and returns
// its fresh, never-reused address.
func (r *Runtime) Spawn(init any, receive Behavior, home RunQueue) Address {
	addr := Address(r.next.Add(1))
	p := &proc{
		addr:    addr,
		home:    home,
		box:     newMailbox(r.MailboxLimit),
		state:   init,
		receive: receive,
	}
	r.mu.Lock()
	r.procs[addr] = p
	r.mu.Unlock()
	return p.addr
}

// Send enqueues msg on target's mailbox and marks the actor runnable.
// Non-blocking; delivery to a dead or unknown address is dropped and
// counted, since the sender cannot observe the receiver's lifecycle.
func (r *Runtime) Send(target, source Address, msg Message) {
	r.mu.RLock()
	p, ok := r.procs[target]
	r.mu.RUnlock()
	if !ok {
		r.dropped.Add(1)
		return
	}

	p.mu.Lock()
	if p.dead {
		p.mu.Unlock()
		r.dropped.Add(1)
		return
	}
	if err := p.box.enqueue(msg); err != nil {
		// The sender may be a foreign worker and must not touch the
		// victim's connection state. Record the fault and make the actor
		// runnable; its home worker raises the fault on the next Step.
		if p.cause == nil {
			p.cause = &api.ActorDeliveryError{Target: uint64(p.addr), Err: err}
		}
		wake := !p.claimed
		if wake {
			p.claimed = true
		}
		p.mu.Unlock()
		if wake {
			p.home.Offer(p.addr)
		}
		return
	}
	wake := !p.claimed
	if wake {
		p.claimed = true
	}
	p.mu.Unlock()

	if wake {
		p.home.Offer(p.addr)
	}
}

// Kill tears an actor down: its mailbox is drained and discarded and the
// address is invalidated. Pending and future sends to it are dropped.
func (r *Runtime) Kill(addr Address) {
	r.mu.Lock()
	p, ok := r.procs[addr]
	if ok {
		delete(r.procs, addr)
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	p.mu.Lock()
	p.dead = true
	p.box.drop()
	p.mu.Unlock()
}

// Step runs up to budget messages through the actor's behavior. The
// caller must have drained addr from the actor's home run queue; the
// claimed flag guarantees no other worker holds the actor concurrently.
// Returns true when the actor was re-offered because messages remain.
func (r *Runtime) Step(addr Address, budget int) bool {
	r.mu.RLock()
	p, ok := r.procs[addr]
	r.mu.RUnlock()
	if !ok {
		return false
	}

	for i := 0; i < budget; i++ {
		p.mu.Lock()
		if p.dead {
			p.claimed = false
			p.mu.Unlock()
			return false
		}
		if cause := p.cause; cause != nil {
			p.mu.Unlock()
			r.fault(p, cause)
			return false
		}
		msg, ok := p.box.dequeue()
		if !ok {
			p.claimed = false
			p.mu.Unlock()
			return false
		}
		receive := p.receive
		state := p.state
		p.mu.Unlock()

		actions, err := r.invoke(receive, state, msg)
		if err != nil {
			r.fault(p, err)
			return false
		}
		if !r.apply(p, actions) {
			return false
		}
	}

	// Budget exhausted with the claim still held: hand the actor back to
	// its home queue so I/O servicing gets a turn.
	p.mu.Lock()
	if cause := p.cause; cause != nil {
		p.mu.Unlock()
		r.fault(p, cause)
		return false
	}
	again := !p.dead && p.box.len() > 0
	if !again {
		p.claimed = false
	}
	p.mu.Unlock()
	if again {
		p.home.Offer(p.addr)
	}
	return again
}

// invoke runs the behavior with panic isolation. A panicking receive is
// an actor fault, not a process fault.
func (r *Runtime) invoke(receive Behavior, state any, msg Message) (actions []Action, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("behavior panic: %v", rec)
		}
	}()
	return receive(state, msg), nil
}

// apply executes the action sequence left-to-right. Returns false when
// the actor died while applying.
func (r *Runtime) apply(p *proc, actions []Action) bool {
	for _, a := range actions {
		switch act := a.(type) {
		case Mutate:
			p.mu.Lock()
			dead := p.dead
			if !dead {
				p.state = act.State
			}
			p.mu.Unlock()
			if dead {
				return false
			}
		case Become:
			p.mu.Lock()
			p.receive = act.Receive
			p.mu.Unlock()
		case Spawn:
			child := r.Spawn(act.Init, act.Receive, p.home)
			if act.Notify != nil {
				r.Send(p.addr, p.addr, act.Notify(child))
			}
		case Send:
			source := act.Source
			if source == None {
				source = p.addr
			}
			r.Send(act.Target, source, act.Msg)
		}
	}
	return true
}

// fault tears the actor down and reports the cause.
func (r *Runtime) fault(p *proc, cause error) {
	r.faults.Add(1)
	r.Kill(p.addr)
	if r.onFault != nil {
		r.onFault(p.addr, cause)
	} else {
		log.Printf("[actor %d] fault: %v", p.addr, cause)
	}
}
