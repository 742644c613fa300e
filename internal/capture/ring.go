// Package capture holds the captured log entries and the bounded buffers
// they are kept in.
package capture

import "sync"

// Ring is a fixed-capacity FIFO buffer. Pushing past capacity evicts the
// oldest element.
type Ring[T any] struct {
	mu    sync.RWMutex
	items []T
	start int
	size  int
}

// NewRing builds a ring with the given capacity.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &Ring[T]{items: make([]T, capacity)}
}

// Push appends v and reports whether an older element was evicted.
func (r *Ring[T]) Push(v T) (evicted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	capacity := len(r.items)
	if r.size < capacity {
		r.items[(r.start+r.size)%capacity] = v
		r.size++
		return false
	}
	r.items[r.start] = v
	r.start = (r.start + 1) % capacity
	return true
}

// Snapshot returns a copy of the contents, oldest first.
func (r *Ring[T]) Snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.items[(r.start+i)%len(r.items)]
	}
	return out
}

// Len returns the number of stored elements.
func (r *Ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int {
	return len(r.items)
}

// Clear drops every element.
func (r *Ring[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero T
	for i := range r.items {
		r.items[i] = zero
	}
	r.start = 0
	r.size = 0
}
