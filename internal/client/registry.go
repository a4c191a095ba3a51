package client

import "sync"

// registry is an ordered callback list. Registering the same function twice
// calls it twice.
type registry[F any] struct {
	mu      sync.Mutex
	next    uint64
	entries []registryEntry[F]
}

type registryEntry[F any] struct {
	id uint64
	fn F
}

// add appends fn and returns a function that removes it.
func (r *registry[F]) add(fn F) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	id := r.next
	r.entries = append(r.entries, registryEntry[F]{id: id, fn: fn})
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, e := range r.entries {
			if e.id == id {
				r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
				return
			}
		}
	}
}

// snapshot returns the callbacks in registration order. Callers invoke them
// without holding the lock.
func (r *registry[F]) snapshot() []F {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]F, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.fn
	}
	return out
}

func (r *registry[F]) clear() {
	r.mu.Lock()
	r.entries = nil
	r.mu.Unlock()
}

func (r *registry[F]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
