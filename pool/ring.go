// File: pool/ring.go
// Package pool provides the buffer and handoff plumbing shared by the
// workers.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Ring is a fixed-capacity single-producer single-consumer ring used for
// listener-to-worker connection handoff: the accepting worker enqueues,
// the owning worker drains at the top of its loop.

package pool

import "sync/atomic"

// Ring is an SPSC ring buffer with a power-of-two capacity.
type Ring[T any] struct {
	data []T
	mask uint64
	head atomic.Uint64
	tail atomic.Uint64
}

// NewRing allocates a ring; size must be a power of two.
func NewRing[T any](size uint64) *Ring[T] {
	if size == 0 || size&(size-1) != 0 {
		panic("ring size must be a power of two")
	}
	return &Ring[T]{data: make([]T, size), mask: size - 1}
}

// Enqueue adds an item; returns false when full.
func (r *Ring[T]) Enqueue(val T) bool {
	head := r.head.Load()
	tail := r.tail.Load()
	if tail-head == uint64(len(r.data)) {
		return false
	}
	r.data[tail&r.mask] = val
	r.tail.Store(tail + 1)
	return true
}

// Dequeue removes the oldest item; ok is false when empty.
func (r *Ring[T]) Dequeue() (res T, ok bool) {
	head := r.head.Load()
	tail := r.tail.Load()
	if head == tail {
		return res, false
	}
	res = r.data[head&r.mask]
	r.head.Store(head + 1)
	return res, true
}

// Len returns the number of buffered items.
func (r *Ring[T]) Len() int {
	return int(r.tail.Load() - r.head.Load())
}
