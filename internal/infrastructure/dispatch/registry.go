// Package dispatch fans out values to an ordered set of listeners.
package dispatch

import (
	"sync"
	"sync/atomic"
)

type subscription[T any] struct {
	id uint64
	fn func(T)
}

// Registry delivers every published value to each listener in registration
// order. Publish works on the listener set captured when it starts, so a
// listener removed mid-dispatch still sees the value being dispatched but
// none after it.
type Registry[T any] struct {
	mu      sync.Mutex
	nextID  uint64
	subs    atomic.Pointer[[]subscription[T]]
	onPanic func(recovered any)
}

type Option[T any] func(*Registry[T])

// WithPanicHandler recovers listener panics so the remaining listeners still
// receive the value.
func WithPanicHandler[T any](fn func(recovered any)) Option[T] {
	return func(r *Registry[T]) {
		r.onPanic = fn
	}
}

func New[T any](opts ...Option[T]) *Registry[T] {
	r := &Registry[T]{}
	empty := []subscription[T]{}
	r.subs.Store(&empty)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe registers fn and returns a handle that removes exactly this
// registration. Calling the handle more than once is harmless.
func (r *Registry[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	r.mu.Lock()
	r.nextID++
	id := r.nextID
	cur := *r.subs.Load()
	next := make([]subscription[T], len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, subscription[T]{id: id, fn: fn})
	r.subs.Store(&next)
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(id) })
	}
}

func (r *Registry[T]) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := *r.subs.Load()
	next := make([]subscription[T], 0, len(cur))
	for _, s := range cur {
		if s.id != id {
			next = append(next, s)
		}
	}
	r.subs.Store(&next)
}

// Publish delivers v synchronously and returns the number of listeners called.
func (r *Registry[T]) Publish(v T) int {
	subs := *r.subs.Load()
	for _, s := range subs {
		r.call(s.fn, v)
	}
	return len(subs)
}

func (r *Registry[T]) call(fn func(T), v T) {
	if r.onPanic != nil {
		defer func() {
			if rec := recover(); rec != nil {
				r.onPanic(rec)
			}
		}()
	}
	fn(v)
}

// Len returns the number of registered listeners.
func (r *Registry[T]) Len() int {
	return len(*r.subs.Load())
}
