// Package observers implements the kernel's Notifications, NetworkStatus,
// Geolocation and MediaDevices modules: observer registries that forward
// OS callbacks, delivered by an external collaborator, as JSON events to
// every subscriber.
//
// Each concrete module in this package (Notifications, NetworkStatus,
// Geolocation, MediaDevices) wraps one [Registry] with a typed event
// shape; the fan-out/subscription bookkeeping lives here once instead of
// being duplicated four times.
package observers

import (
	"sync"

	"github.com/nativebridge/kernel/eventloop"
)

// Registry is a mutex-guarded set of subscriber callbacks, fanned out on
// the loop goroutine, so observer callbacks run on the same goroutine as
// every other asynchronous module callback.
type Registry[T any] struct {
	loop *eventloop.Loop

	mu          sync.Mutex
	subscribers map[uint64]func(T)
	nextID      uint64
}

// NewRegistry creates an empty registry bound to loop.
func NewRegistry[T any](loop *eventloop.Loop) *Registry[T] {
	return &Registry[T]{loop: loop, subscribers: make(map[uint64]func(T))}
}

// Subscribe registers fn and returns a handle usable with Unsubscribe.
func (r *Registry[T]) Subscribe(fn func(T)) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	r.subscribers[id] = fn
	return id
}

// Unsubscribe removes a subscriber. Unsubscribing an unknown or already
// removed id is a no-op.
func (r *Registry[T]) Unsubscribe(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subscribers, id)
}

// Publish delivers event to every current subscriber, each invocation
// hopping through Loop.Dispatch so observer callbacks always run on the
// loop goroutine regardless of which OS thread the originating
// collaborator called Publish from.
func (r *Registry[T]) Publish(event T) {
	r.mu.Lock()
	fns := make([]func(T), 0, len(r.subscribers))
	for _, fn := range r.subscribers {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn := fn
		_ = r.loop.Dispatch(func() { fn(event) })
	}
}

// Count returns the number of live subscribers.
func (r *Registry[T]) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subscribers)
}
