// Package future provides the single-threaded-cooperative future used by the
// reactor to integrate asynchronous effects.
//
// A Future settles exactly once, by Resolve or Reject. Continuations attached
// with Then run synchronously on the settling goroutine, in attachment order;
// continuations attached after settlement run immediately on the attaching
// goroutine. The reactor relies on this to flush notifications after each
// resolution callback.
//
// The type is intentionally minimal: no cancellation, no chaining, no
// executors. Go's goroutines cover forking; this type only covers joining
// external completions back into the single logical engine task.
package future

import (
	"context"
	"sync"
)

// Future is a write-once container for an eventual value or error.
type Future struct {
	mu      sync.Mutex
	settled bool
	value   any
	err     error
	cbs     []func(any, error)
	done    chan struct{}
}

// New creates an unsettled future.
func New() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolved creates a future already settled with value.
func Resolved(value any) *Future {
	f := New()
	f.Resolve(value)
	return f
}

// Rejected creates a future already settled with err.
func Rejected(err error) *Future {
	f := New()
	f.Reject(err)
	return f
}

// Resolve settles the future with a value.
// Settling an already-settled future is a no-op.
func (f *Future) Resolve(value any) {
	f.settle(value, nil)
}

// Reject settles the future with an error.
// Settling an already-settled future is a no-op.
func (f *Future) Reject(err error) {
	f.settle(nil, err)
}

func (f *Future) settle(value any, err error) {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return
	}
	f.settled = true
	f.value = value
	f.err = err
	cbs := f.cbs
	f.cbs = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range cbs {
		cb(value, err)
	}
}

// Then attaches a continuation invoked with the settled value or error.
// If the future is already settled, cb runs immediately on the calling
// goroutine.
func (f *Future) Then(cb func(value any, err error)) {
	f.mu.Lock()
	if !f.settled {
		f.cbs = append(f.cbs, cb)
		f.mu.Unlock()
		return
	}
	value, err := f.value, f.err
	f.mu.Unlock()
	cb(value, err)
}

// Done returns a channel closed when the future settles.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result returns the settled value and error. ok is false while unsettled.
func (f *Future) Result() (value any, err error, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.err, f.settled
}

// Await blocks until the future settles or the context is cancelled.
func (f *Future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		value, err, _ := f.Result()
		return value, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
