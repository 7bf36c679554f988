// File: queue/ring.go
// Author: momentics <momentics@gmail.com>
//
// Fixed-capacity ring buffer used as each scheduler worker's local
// queue. Single consumer: only the owning worker calls TryGet, which is
// lock-free. Push is safe to call from other workers handing off a
// woken child or I/O waiter: producers serialize on a mutex, and the
// head/tail indices are atomics shared with the consumer.

package queue

import (
	"sync"
	"sync/atomic"
)

// Ring is a bounded FIFO backed by a power-of-two-sized slice.
type Ring[T any] struct {
	pushMu sync.Mutex
	data   []T
	mask   uint64
	head   uint64
	tail   uint64
}

// NewRing allocates a Ring with capacity rounded up to a power of two.
func NewRing[T any](capacity int) *Ring[T] {
	size := 1
	for size < capacity {
		size <<= 1
	}
	return &Ring[T]{data: make([]T, size), mask: uint64(size - 1)}
}

// Push appends val; it reports false when the ring is full, in which
// case the caller is expected to overflow to the global Queue.
func (r *Ring[T]) Push(val T) bool {
	r.pushMu.Lock()
	defer r.pushMu.Unlock()
	tail := atomic.LoadUint64(&r.tail)
	head := atomic.LoadUint64(&r.head)
	if tail-head >= uint64(len(r.data)) {
		return false
	}
	r.data[tail&r.mask] = val
	atomic.StoreUint64(&r.tail, tail+1)
	return true
}

// TryGet removes and returns the head item; ok is false when empty.
func (r *Ring[T]) TryGet() (val T, ok bool) {
	head := atomic.LoadUint64(&r.head)
	tail := atomic.LoadUint64(&r.tail)
	if head >= tail {
		return val, false
	}
	val = r.data[head&r.mask]
	atomic.StoreUint64(&r.head, head+1)
	return val, true
}

// Len reports the current occupancy. Diagnostic only.
func (r *Ring[T]) Len() int {
	return int(atomic.LoadUint64(&r.tail) - atomic.LoadUint64(&r.head))
}

// Cap reports the logical capacity after power-of-two rounding.
func (r *Ring[T]) Cap() int {
	return len(r.data)
}
