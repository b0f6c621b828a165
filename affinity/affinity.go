// File: affinity/affinity.go
// Package affinity pins worker OS threads to logical CPUs so a
// descriptor's owning worker keeps its cache locality for the life of
// the connection.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package affinity

// Pin binds the calling OS thread to the given logical CPU. The caller
// must have locked its goroutine to the thread first. Unsupported
// platforms return api.ErrNotSupported.
func Pin(cpu int) error {
	return pin(cpu)
}
