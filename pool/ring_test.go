// File: pool/ring_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import "testing"

func TestRingOrder(t *testing.T) {
	r := NewRing[int](4)
	for i := 0; i < 4; i++ {
		if !r.Enqueue(i) {
			t.Fatalf("enqueue %d failed", i)
		}
	}
	if r.Enqueue(5) {
		t.Fatal("enqueue succeeded on full ring")
	}
	if r.Len() != 4 {
		t.Fatalf("len %d", r.Len())
	}
	for i := 0; i < 4; i++ {
		v, ok := r.Dequeue()
		if !ok || v != i {
			t.Fatalf("dequeue %d: got %v ok=%v", i, v, ok)
		}
	}
	if _, ok := r.Dequeue(); ok {
		t.Fatal("dequeue succeeded on empty ring")
	}
}

func TestRingWraparound(t *testing.T) {
	r := NewRing[int](2)
	for i := 0; i < 100; i++ {
		if !r.Enqueue(i) {
			t.Fatalf("enqueue %d", i)
		}
		v, ok := r.Dequeue()
		if !ok || v != i {
			t.Fatalf("wrap at %d: got %v", i, v)
		}
	}
}

func TestRingRejectsBadSize(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("no panic for non power-of-two size")
		}
	}()
	NewRing[int](3)
}

func TestBytePoolRecycles(t *testing.T) {
	bp := NewBytePool(1024)
	buf := bp.Get()
	if len(buf) != 1024 {
		t.Fatalf("len %d", len(buf))
	}
	bp.Put(buf)
	bp.Put(make([]byte, 10)) // wrong size, silently discarded
	again := bp.Get()
	if len(again) != 1024 {
		t.Fatalf("len %d after recycle", len(again))
	}
}
