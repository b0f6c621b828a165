// File: transport/transport.go
// Package transport provides the non-blocking socket collaborator:
// listen/accept plus raw descriptor read/write/close.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// All descriptors produced here are non-blocking. Would-block outcomes are
// reported as api.ErrWouldBlock so event-loop callers can re-arm interest
// instead of spinning.

package transport

import "github.com/momentics/actorws/api"

// Listener is a bound, listening TCP socket.
type Listener struct {
	fd   int
	addr string
}

// Fd returns the listening descriptor for poller registration.
func (l *Listener) Fd() int { return l.fd }

// Addr returns the actual bound address, useful when port 0 was requested.
func (l *Listener) Addr() string { return l.addr }

// Listen opens a non-blocking listening socket on addr ("host:port").
func Listen(addr string) (*Listener, error) {
	return listen(addr)
}

// OS implements api.Sock over raw descriptors.
func OS() api.Sock { return osSock{} }
