// Package paging implements a cursor pager over an invalidatable source.
//
// The pager loads fixed-size pages from a Source as the consumer moves through
// the list, and calls a BoundaryCallback when it runs out of local data. When the
// source reports that its underlying data changed, the pager builds a new source
// from its Factory and reloads what the consumer had loaded.
package paging

import (
	"context"
	"errors"
)

// ErrInvalidated is returned by operations on a pager that was invalidated.
var ErrInvalidated = errors.New("pager invalidated")

// Source loads a window of an ordered dataset. A source is a snapshot view: once
// its data changes, Invalidated is closed and it must be replaced.
type Source[T any] interface {
	LoadPage(ctx context.Context, offset, limit int) ([]T, error)
	Invalidated() <-chan struct{}
}

// Factory builds a fresh Source.
type Factory[T any] func() Source[T]

// BoundaryCallback is told when the pager has exhausted local data.
type BoundaryCallback[T any] interface {
	// OnZeroItemsLoaded is called when the source has no data at all.
	OnZeroItemsLoaded()
	// OnItemAtEndLoaded is called with the last item once the consumer is near
	// the end of the source's data.
	OnItemAtEndLoaded(item T)
}

// Config sizes the pager.
type Config struct {
	PageSize int
	// PrefetchDistance is how close to the end of loaded items an access must be
	// to load more. Zero means PageSize.
	PrefetchDistance int
}

func (c Config) normalize() Config {
	if c.PageSize <= 0 {
		c.PageSize = 20
	}
	if c.PrefetchDistance <= 0 {
		c.PrefetchDistance = c.PageSize
	}
	return c
}

// FuncSource adapts a load function to Source. It is invalidated through Invalidate.
type FuncSource[T any] struct {
	load        func(ctx context.Context, offset, limit int) ([]T, error)
	invalidated <-chan struct{}
}

// NewFuncSource returns a source that is invalidated when invalidated is closed.
func NewFuncSource[T any](invalidated <-chan struct{}, load func(ctx context.Context, offset, limit int) ([]T, error)) *FuncSource[T] {
	return &FuncSource[T]{load: load, invalidated: invalidated}
}

func (s *FuncSource[T]) LoadPage(ctx context.Context, offset, limit int) ([]T, error) {
	return s.load(ctx, offset, limit)
}

func (s *FuncSource[T]) Invalidated() <-chan struct{} {
	return s.invalidated
}

// MapFactory converts the items a factory's sources produce.
func MapFactory[T, U any](f Factory[T], fn func(T) U) Factory[U] {
	return func() Source[U] {
		src := f()
		return NewFuncSource(src.Invalidated(), func(ctx context.Context, offset, limit int) ([]U, error) {
			items, err := src.LoadPage(ctx, offset, limit)
			if err != nil {
				return nil, err
			}
			out := make([]U, len(items))
			for i, it := range items {
				out[i] = fn(it)
			}
			return out, nil
		})
	}
}
