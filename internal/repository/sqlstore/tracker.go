package sqlstore

import "sync"

// tracker hands out a channel that is closed on the next committed write.
type tracker struct {
	mu sync.Mutex
	ch chan struct{}
}

func newTracker() *tracker {
	return &tracker{ch: make(chan struct{})}
}

func (t *tracker) changes() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ch
}

func (t *tracker) notify() {
	t.mu.Lock()
	defer t.mu.Unlock()
	close(t.ch)
	t.ch = make(chan struct{})
}
