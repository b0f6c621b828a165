//go:build !linux
// +build !linux

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package reactor

import "github.com/momentics/actorws/api"

func newPoller() (api.Poller, error) {
	return nil, api.ErrNotSupported
}
