package paging

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"reposearch/internal/live"
	"reposearch/internal/task"
)

// Pager exposes a lazily loaded, growing list of T. All loading happens on a
// single goroutine started by Start, so pages are loaded strictly in order.
type Pager[T any] struct {
	factory  Factory[T]
	cfg      Config
	boundary BoundaryCallback[T]
	items    *live.Value[[]T]

	mu      sync.Mutex
	hint    int
	started bool

	wake     chan struct{}
	done     chan struct{}
	doneOnce sync.Once

	// Owned by the loader goroutine.
	loaded    []T
	endOfData bool
}

// New builds a pager. Nothing is loaded until Start. boundary may be nil.
func New[T any](factory Factory[T], cfg Config, boundary BoundaryCallback[T]) *Pager[T] {
	return &Pager[T]{
		factory:  factory,
		cfg:      cfg.normalize(),
		boundary: boundary,
		items:    live.Empty[[]T](),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Start launches the loader on s. Calling it again is a no-op.
func (p *Pager[T]) Start(s *task.Scope) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	s.Go(p.run)
}

// Items is the observable list of loaded items. It is closed when the pager is
// invalidated or its scope ends.
func (p *Pager[T]) Items() *live.Value[[]T] {
	return p.items
}

// Snapshot returns a copy of the currently loaded items.
func (p *Pager[T]) Snapshot() []T {
	v, _ := p.items.Get()
	out := make([]T, len(v))
	copy(out, v)
	return out
}

// PageSize reports the configured page size.
func (p *Pager[T]) PageSize() int {
	return p.cfg.PageSize
}

// LoadAround tells the pager the consumer is accessing index. It never blocks.
func (p *Pager[T]) LoadAround(index int) error {
	select {
	case <-p.done:
		return ErrInvalidated
	default:
	}

	p.mu.Lock()
	if index > p.hint {
		p.hint = index
	}
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
	return nil
}

// Recheck wakes the loader without moving the consumer position. The boundary
// callback fires again if the consumer is still at the end of the data.
func (p *Pager[T]) Recheck() {
	select {
	case <-p.done:
	case p.wake <- struct{}{}:
	default:
	}
}

// Invalidate stops the pager for good. Consumers have to build a new one.
func (p *Pager[T]) Invalidate() {
	p.doneOnce.Do(func() {
		close(p.done)
		p.items.Close()
	})
}

// Done is closed by Invalidate.
func (p *Pager[T]) Done() <-chan struct{} {
	return p.done
}

func (p *Pager[T]) run(ctx context.Context) error {
	defer p.items.Close()

	src := p.factory()
	if err := p.reload(ctx, src, p.cfg.PageSize); err != nil {
		return p.failure(ctx, err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.done:
			return nil
		case <-src.Invalidated():
		case <-p.wake:
		}

		var err error
		if invalidated(src) {
			n := p.reloadSize()
			src = p.factory()
			err = p.reload(ctx, src, n)
		} else {
			err = p.extend(ctx, src)
		}
		if err != nil {
			return p.failure(ctx, err)
		}
	}
}

// invalidated lets a pending invalidation win over a wake-up, so the boundary
// is never evaluated against stale data.
func invalidated[T any](src Source[T]) bool {
	select {
	case <-src.Invalidated():
		return true
	default:
		return false
	}
}

func (p *Pager[T]) failure(ctx context.Context, err error) error {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return fmt.Errorf("load page: %w", err)
}

// reloadSize keeps the consumer's window: everything loaded so far rounded up to
// whole pages, plus one page when the consumer sits at the end of the data so
// rows appended by a merge show up.
func (p *Pager[T]) reloadSize() int {
	ps := p.cfg.PageSize
	n := len(p.loaded)
	if rem := n % ps; rem != 0 {
		n += ps - rem
	}
	if n == 0 {
		n = ps
	}
	if p.endOfData && p.nearEnd() {
		n += ps
	}
	return n
}

func (p *Pager[T]) reload(ctx context.Context, src Source[T], n int) error {
	items, err := src.LoadPage(ctx, 0, n)
	if err != nil {
		return err
	}
	p.loaded = items
	p.endOfData = len(items) < n
	p.publish()
	return p.extend(ctx, src)
}

func (p *Pager[T]) extend(ctx context.Context, src Source[T]) error {
	ps := p.cfg.PageSize
	for !p.endOfData && p.nearEnd() {
		page, err := src.LoadPage(ctx, len(p.loaded), ps)
		if err != nil {
			return err
		}
		p.loaded = append(p.loaded, page...)
		if len(page) < ps {
			p.endOfData = true
		}
		p.publish()

		select {
		case <-src.Invalidated():
			// The run loop reloads from a fresh source.
			return nil
		default:
		}
	}
	p.notifyBoundary()
	return nil
}

func (p *Pager[T]) nearEnd() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hint >= len(p.loaded)-p.cfg.PrefetchDistance
}

func (p *Pager[T]) notifyBoundary() {
	if p.boundary == nil || !p.endOfData || !p.nearEnd() {
		return
	}
	if len(p.loaded) == 0 {
		p.boundary.OnZeroItemsLoaded()
		return
	}
	p.boundary.OnItemAtEndLoaded(p.loaded[len(p.loaded)-1])
}

func (p *Pager[T]) publish() {
	out := make([]T, len(p.loaded))
	copy(out, p.loaded)
	p.items.Set(out)
}
