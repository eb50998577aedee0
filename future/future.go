// Package future provides a single-assignment result that callers can
// wait on or attach continuations to.
package future

import (
	"context"
	"sync"
)

type Future[T any] struct {
	done chan struct{}

	mu   sync.Mutex
	set  bool
	val  T
	err  error
	subs []func(T, error)
}

func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved returns a future that already holds (v, err).
func Resolved[T any](v T, err error) *Future[T] {
	f := New[T]()
	f.Resolve(v, err)
	return f
}

// Go runs fn on a new goroutine and resolves the future with its result.
func Go[T any](fn func() (T, error)) *Future[T] {
	f := New[T]()
	go func() { f.Resolve(fn()) }()
	return f
}

// Resolve stores the result and runs subscribers on the calling goroutine.
// Only the first call has an effect; it reports whether it won.
func (f *Future[T]) Resolve(v T, err error) bool {
	f.mu.Lock()
	if f.set {
		f.mu.Unlock()
		return false
	}
	f.set, f.val, f.err = true, v, err
	subs := f.subs
	f.subs = nil
	close(f.done)
	f.mu.Unlock()

	for _, fn := range subs {
		fn(v, err)
	}
	return true
}

func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Get blocks until the future resolves or ctx ends.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// OnComplete registers fn to run once the future resolves. If it already
// has, fn runs immediately on the caller's goroutine.
func (f *Future[T]) OnComplete(fn func(T, error)) {
	f.mu.Lock()
	if !f.set {
		f.subs = append(f.subs, fn)
		f.mu.Unlock()
		return
	}
	v, err := f.val, f.err
	f.mu.Unlock()
	fn(v, err)
}

// Then derives a future whose value is fn applied to f's value. An error
// from f is passed through untouched and fn is not called. fn runs on
// whichever goroutine resolves f, so it must not block.
func Then[A, B any](f *Future[A], fn func(A) B) *Future[B] {
	out := New[B]()
	f.OnComplete(func(v A, err error) {
		if err != nil {
			var zero B
			out.Resolve(zero, err)
			return
		}
		out.Resolve(fn(v), nil)
	})
	return out
}
