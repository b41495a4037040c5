package task

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// DefaultIOConcurrency bounds blocking disk and network work.
const DefaultIOConcurrency = 64

// Dispatcher is the background context for blocking I/O. It caps how many
// callers run blocking work at once.
type Dispatcher struct {
	sem *semaphore.Weighted
}

// NewDispatcher returns a dispatcher allowing n concurrent jobs. n <= 0 uses
// DefaultIOConcurrency.
func NewDispatcher(n int64) *Dispatcher {
	if n <= 0 {
		n = DefaultIOConcurrency
	}
	return &Dispatcher{sem: semaphore.NewWeighted(n)}
}

// Do runs fn once a slot is free.
func (d *Dispatcher) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer d.sem.Release(1)
	return fn(ctx)
}

// Call is Do for functions with a result.
func Call[T any](ctx context.Context, d *Dispatcher, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := d.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}
