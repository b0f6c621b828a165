// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import "sync"

// BytePool recycles fixed-size read scratch buffers so the per-event read
// loop does not allocate.
type BytePool struct {
	p    sync.Pool
	size int
}

// NewBytePool creates a pool of size-byte buffers.
func NewBytePool(size int) *BytePool {
	return &BytePool{
		p: sync.Pool{
			New: func() any { return make([]byte, size) },
		},
		size: size,
	}
}

// Get returns a buffer of the pool's size.
func (b *BytePool) Get() []byte {
	return b.p.Get().([]byte)
}

// Put returns a buffer to the pool. Wrong-sized buffers are discarded.
func (b *BytePool) Put(buf []byte) {
	if cap(buf) != b.size {
		return
	}
	b.p.Put(buf[:b.size])
}
