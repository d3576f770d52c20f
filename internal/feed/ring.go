// Package feed keeps a bounded, in-process history of recent items.
// Contents are not persisted and reset on restart.
package feed

import "sync"

// DefaultCapacity is the number of entries kept when none is configured.
const DefaultCapacity = 100

// Ring is a fixed-capacity buffer that evicts its oldest entry once full.
// It is safe for concurrent use.
type Ring[T any] struct {
	mu    sync.RWMutex
	items []T
	next  int
	size  int
}

func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring[T]{items: make([]T, capacity)}
}

// Push appends v, overwriting the oldest entry when the ring is full.
func (r *Ring[T]) Push(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[r.next] = v
	r.next = (r.next + 1) % len(r.items)
	if r.size < len(r.items) {
		r.size++
	}
}

// Recent returns up to limit entries, newest first, that satisfy keep.
// A nil keep accepts everything; limit <= 0 means no limit.
func (r *Ring[T]) Recent(limit int, keep func(T) bool) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, 0, min(r.size, max(limit, 0)))
	for i := 1; i <= r.size; i++ {
		if limit > 0 && len(out) == limit {
			break
		}
		v := r.items[(r.next-i+len(r.items))%len(r.items)]
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func (r *Ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

func (r *Ring[T]) Cap() int {
	return len(r.items)
}
