// File: api/errors.go
// Package api holds the shared contracts between the reactor, transport,
// connection and actor layers.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "fmt"

// Sentinel errors shared across the library.
var (
	// ErrWouldBlock reports that a non-blocking read or write found no
	// data/space. Callers re-arm interest and return to the event loop.
	ErrWouldBlock = fmt.Errorf("operation would block")

	// ErrClosed reports use of an already closed descriptor or component.
	ErrClosed = fmt.Errorf("already closed")

	// ErrNotSupported is returned by platform stubs.
	ErrNotSupported = fmt.Errorf("operation not supported on this platform")
)

// IoError is a descriptor-level read/write failure. It is connection-local:
// the owning connection transitions to Closing, nothing else is affected.
type IoError struct {
	Fd  int
	Op  string
	Err error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("io error on fd %d during %s: %v", e.Fd, e.Op, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }

// ProtocolError is malformed HTTP or WebSocket input, a failed handshake
// validation, or an oversized length field. Connection-local.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s", e.Reason)
}

// ActorDeliveryError reports a failed message delivery to a live actor,
// such as a mailbox past its depth limit. Dead-address sends are not
// errors; they are dropped and counted.
type ActorDeliveryError struct {
	Target uint64
	Err    error
}

func (e *ActorDeliveryError) Error() string {
	return fmt.Sprintf("delivery to actor %d failed: %v", e.Target, e.Err)
}

func (e *ActorDeliveryError) Unwrap() error { return e.Err }

// CapacityError reports that a per-unit resource limit was exceeded
// (read/write buffer, mailbox depth, fragment reassembly). It tears down
// only the offending connection or actor, never the process.
type CapacityError struct {
	Kind  string
	Limit int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("capacity exceeded: %s limit %d", e.Kind, e.Limit)
}
