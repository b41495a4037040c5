// Package live provides a push-based observable value.
//
// A Value holds the latest published element. Every subscriber receives the
// latest element immediately on subscription and then each later one. Slow
// subscribers are conflated: they only ever see the most recent element, never
// a backlog.
package live

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Await when the Value closes before a match.
var ErrClosed = errors.New("live value closed")

// Value is safe for concurrent use.
type Value[T any] struct {
	mu     sync.Mutex
	v      T
	set    bool
	closed bool
	subs   map[int]chan T
	next   int
}

// NewValue returns a Value that already holds initial.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{v: initial, set: true, subs: make(map[int]chan T)}
}

// Empty returns a Value with nothing published yet.
func Empty[T any]() *Value[T] {
	return &Value[T]{subs: make(map[int]chan T)}
}

// Get returns the latest value and whether one was ever published.
func (v *Value[T]) Get() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.v, v.set
}

// Set publishes x to every subscriber. Set after Close is ignored.
func (v *Value[T]) Set(x T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.v = x
	v.set = true
	for _, ch := range v.subs {
		offer(ch, x)
	}
}

// Subscribe returns a channel of updates and a function that cancels the
// subscription. The channel is closed on cancel or when the Value is closed.
func (v *Value[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, 1)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.set {
		ch <- v.v
	}
	if v.closed {
		close(ch)
		return ch, func() {}
	}

	id := v.next
	v.next++
	v.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			v.mu.Lock()
			defer v.mu.Unlock()
			if c, ok := v.subs[id]; ok {
				delete(v.subs, id)
				close(c)
			}
		})
	}
}

// Close ends every subscription. The last value stays readable through Get
// and is still delivered to late subscribers.
func (v *Value[T]) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	for id, ch := range v.subs {
		delete(v.subs, id)
		close(ch)
	}
}

// Closed reports whether Close was called.
func (v *Value[T]) Closed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

// Await blocks until a value matching pred is published, ctx ends or the
// Value is closed.
func (v *Value[T]) Await(ctx context.Context, pred func(T) bool) (T, error) {
	ch, cancel := v.Subscribe()
	defer cancel()
	var zero T
	for {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case x, ok := <-ch:
			if !ok {
				return zero, ErrClosed
			}
			if pred(x) {
				return x, nil
			}
		}
	}
}

// offer replaces whatever is buffered in ch with x. Callers hold the Value lock,
// so no other goroutine sends on ch concurrently.
func offer[T any](ch chan T, x T) {
	select {
	case ch <- x:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- x
}
