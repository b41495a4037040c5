// Package task holds the explicit concurrency context components run on.
//
// A Scope is owned by the caller. Components spawn their work on it and never
// outlive it: closing the scope cancels every task and waits for them. The
// first task to fail cancels the scope and its error is reported by Wait.
package task

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Scope is a cancellable group of goroutines.
type Scope struct {
	ctx    context.Context
	cancel context.CancelFunc
	g      *errgroup.Group
}

// NewScope derives a scope from parent.
func NewScope(parent context.Context) *Scope {
	ctx, cancel := context.WithCancel(parent)
	g, gctx := errgroup.WithContext(ctx)
	return &Scope{ctx: gctx, cancel: cancel, g: g}
}

// Context is cancelled when the scope is closed, its parent ends or a task fails.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Go runs fn on its own goroutine. A non-nil error cancels the scope.
func (s *Scope) Go(fn func(ctx context.Context) error) {
	ctx := s.ctx
	s.g.Go(func() error {
		return fn(ctx)
	})
}

// Wait blocks until every task returned and reports the first failure.
// Long-lived tasks only return once the scope is cancelled.
func (s *Scope) Wait() error {
	return s.g.Wait()
}

// Close cancels the scope and waits for its tasks.
func (s *Scope) Close() error {
	s.cancel()
	return s.g.Wait()
}

// Err returns the cause once the scope is done.
func (s *Scope) Err() error {
	if s.ctx.Err() == nil {
		return nil
	}
	return context.Cause(s.ctx)
}
