// File: api/poll.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Readiness multiplexer contract. Implementations wrap a platform event
// notification facility (epoll on Linux) behind a platform-neutral surface.

package api

// Interest declares which readiness directions a descriptor is armed for.
type Interest struct {
	Readable bool
	Writable bool
}

// Event is one readiness notification for a registered descriptor.
//
// Readiness is a hint, not a guarantee: spurious wakeups are permitted,
// so consumers attempt a non-blocking operation and treat ErrWouldBlock
// as "re-arm and move on". Err set means the descriptor is in an error
// or hangup state and the connection must be torn down.
type Event struct {
	Fd       int
	Readable bool
	Writable bool
	Err      bool
}

// Poller is the readiness multiplexer.
//
// Wait blocks the calling worker until at least one registered descriptor
// is ready or timeoutMs elapses, and returns a finite batch of events.
// Registration failures are fatal only to the connection attempt in
// question, never to the process.
type Poller interface {
	Register(fd int, interest Interest) error
	Reregister(fd int, interest Interest) error
	Deregister(fd int) error
	Wait(events []Event, timeoutMs int) (int, error)
	Close() error
}
