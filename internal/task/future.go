package task

import "context"

// Future is the handle of an asynchronous computation.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Async starts fn on the scope, dispatched through d. A failure completes the
// future with the error and also cancels the scope.
func Async[T any](s *Scope, d *Dispatcher, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	s.Go(func(ctx context.Context) error {
		defer close(f.done)
		f.val, f.err = Call(ctx, d, fn)
		return f.err
	})
	return f
}

// Resolved returns a completed future.
func Resolved[T any](v T, err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), val: v, err: err}
	close(f.done)
	return f
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the result is available or ctx ends.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
