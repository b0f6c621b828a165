// File: internal/concurrency/queue.go
// Package concurrency provides the lock-free queues backing per-worker
// scheduling.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bounded MPMC queue after Dmitry Vyukov's sequence-number design:
// producers and consumers claim slots with a CAS on tail/head and hand
// them over through per-cell sequence counters, so no slot is ever read
// before its write completed.

package concurrency

import "sync/atomic"

type slot[T any] struct {
	seq atomic.Uint64
	val T
}

// Queue is a bounded multi-producer multi-consumer FIFO queue.
type Queue[T any] struct {
	head  atomic.Uint64
	_     [56]byte // keep head and tail on separate cache lines
	tail  atomic.Uint64
	_     [56]byte
	mask  uint64
	slots []slot[T]
}

// NewQueue allocates a queue; capacity rounds up to a power of two.
func NewQueue[T any](capacity int) *Queue[T] {
	size := 2
	for size < capacity {
		size <<= 1
	}
	q := &Queue[T]{
		mask:  uint64(size - 1),
		slots: make([]slot[T], size),
	}
	for i := range q.slots {
		q.slots[i].seq.Store(uint64(i))
	}
	return q
}

// Offer appends val; returns false when the queue is full.
func (q *Queue[T]) Offer(val T) bool {
	for {
		tail := q.tail.Load()
		s := &q.slots[tail&q.mask]
		seq := s.seq.Load()
		switch diff := int64(seq) - int64(tail); {
		case diff == 0:
			if q.tail.CompareAndSwap(tail, tail+1) {
				s.val = val
				s.seq.Store(tail + 1)
				return true
			}
		case diff < 0:
			return false
		}
	}
}

// Poll removes and returns the oldest item; ok is false when empty.
func (q *Queue[T]) Poll() (item T, ok bool) {
	for {
		head := q.head.Load()
		s := &q.slots[head&q.mask]
		seq := s.seq.Load()
		switch diff := int64(seq) - int64(head+1); {
		case diff == 0:
			if q.head.CompareAndSwap(head, head+1) {
				item = s.val
				var zero T
				s.val = zero
				s.seq.Store(head + q.mask + 1)
				return item, true
			}
		case diff < 0:
			var zero T
			return zero, false
		}
	}
}

// Len approximates the number of queued items.
func (q *Queue[T]) Len() int {
	return int(q.tail.Load() - q.head.Load())
}
