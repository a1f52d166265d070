package view

import (
	"context"
	"sync"
	"time"

	"github.com/rs/xid"
)

// Registry holds live page instances between requests.
//
// A page instance is the server-side half of an open browser page: the
// controller a GET created, looked up again by follow-up requests that carry
// its id. Instances belong to one session and expire after ttl without use.
// When full, the least recently used instance is evicted. Evicted instances
// that implement Dispose() are disposed.
type Registry[T any] struct {
	mu    sync.Mutex
	items map[string]*instance[T]
	ttl   time.Duration
	max   int
	now   func() time.Time
}

type instance[T any] struct {
	owner    string
	value    T
	lastUsed time.Time
}

// NewRegistry returns a registry with the given idle ttl and capacity.
func NewRegistry[T any](ttl time.Duration, max int) *Registry[T] {
	if max < 1 {
		max = 1
	}
	return &Registry[T]{
		items: make(map[string]*instance[T]),
		ttl:   ttl,
		max:   max,
		now:   time.Now,
	}
}

// Put stores v for owner and returns its new id.
func (r *Registry[T]) Put(owner string, v T) string {
	id := xid.New().String()

	r.mu.Lock()
	var evicted []T
	for len(r.items) >= r.max {
		evicted = append(evicted, r.evictOldestLocked())
	}
	r.items[id] = &instance[T]{owner: owner, value: v, lastUsed: r.now()}
	r.mu.Unlock()

	disposeAll(evicted)
	return id
}

// Get returns the instance id if it exists, belongs to owner and has not
// expired. A hit refreshes its ttl.
func (r *Registry[T]) Get(id, owner string) (T, bool) {
	var zero T
	if id == "" {
		return zero, false
	}

	r.mu.Lock()
	it, ok := r.items[id]
	if !ok || it.owner != owner {
		r.mu.Unlock()
		return zero, false
	}
	now := r.now()
	if r.expired(it, now) {
		delete(r.items, id)
		r.mu.Unlock()
		disposeAll([]T{it.value})
		return zero, false
	}
	it.lastUsed = now
	r.mu.Unlock()
	return it.value, true
}

// Remove drops an instance and disposes it.
func (r *Registry[T]) Remove(id string) {
	r.mu.Lock()
	it, ok := r.items[id]
	delete(r.items, id)
	r.mu.Unlock()
	if ok {
		disposeAll([]T{it.value})
	}
}

// Len returns the number of held instances, expired or not.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Sweep removes expired instances and returns how many it removed.
func (r *Registry[T]) Sweep() int {
	r.mu.Lock()
	now := r.now()
	var expired []T
	for id, it := range r.items {
		if r.expired(it, now) {
			expired = append(expired, it.value)
			delete(r.items, id)
		}
	}
	r.mu.Unlock()

	disposeAll(expired)
	return len(expired)
}

// Run sweeps every interval until ctx is done.
func (r *Registry[T]) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *Registry[T]) expired(it *instance[T], now time.Time) bool {
	return r.ttl > 0 && now.Sub(it.lastUsed) > r.ttl
}

func (r *Registry[T]) evictOldestLocked() T {
	var (
		oldestID string
		oldest   *instance[T]
	)
	for id, it := range r.items {
		if oldest == nil || it.lastUsed.Before(oldest.lastUsed) {
			oldestID, oldest = id, it
		}
	}
	delete(r.items, oldestID)
	return oldest.value
}

type disposer interface {
	Dispose()
}

func disposeAll[T any](values []T) {
	for _, v := range values {
		if d, ok := any(v).(disposer); ok {
			d.Dispose()
		}
	}
}
