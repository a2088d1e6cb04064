// internal/decorate/future.go
package decorate

import "context"

// Future is the pending result of an asynchronous call.
type Future[T any] struct {
	done     chan struct{}
	val      T
	err      error
	pval     any
	panicked bool
}

// Go runs fn on its own goroutine. A panic in fn is re-raised by Await.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.panicked = true
				f.pval = r
			}
		}()
		f.val, f.err = fn(ctx)
	}()
	return f
}

// Resolved returns a Future that is already complete.
func Resolved[T any](v T, err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), val: v, err: err}
	close(f.done)
	return f
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the result is available or ctx ends. In the latter
// case it returns ctx.Err() and the work keeps running.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		if f.panicked {
			panic(f.pval)
		}
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
