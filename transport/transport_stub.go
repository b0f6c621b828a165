//go:build !linux
// +build !linux

// File: transport/transport_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import "github.com/momentics/actorws/api"

func listen(addr string) (*Listener, error) {
	return nil, api.ErrNotSupported
}

// Accept is unavailable on this platform.
func (l *Listener) Accept() (int, error) { return -1, api.ErrNotSupported }

// Close is unavailable on this platform.
func (l *Listener) Close() error { return api.ErrNotSupported }

type osSock struct{}

func (osSock) Read(fd int, p []byte) (int, error)  { return 0, api.ErrNotSupported }
func (osSock) Write(fd int, p []byte) (int, error) { return 0, api.ErrNotSupported }
func (osSock) Close(fd int) error                  { return api.ErrNotSupported }
