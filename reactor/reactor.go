// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Platform-neutral factory for the readiness multiplexer. The Linux
// build wraps epoll(7); other platforms get a stub that fails fast.

package reactor

import "github.com/momentics/actorws/api"

// New constructs the platform readiness multiplexer.
func New() (api.Poller, error) {
	return newPoller()
}
