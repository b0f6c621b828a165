// File: affinity/affinity_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

//go:build !linux

package affinity

import "github.com/momentics/actorws/api"

func pin(int) error {
	return api.ErrNotSupported
}
