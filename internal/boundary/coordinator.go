// Package boundary turns "the consumer reached the end of cached data" into
// remote page fetches that are merged into the local store.
package boundary

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"reposearch/internal/live"
	"reposearch/internal/logging"
	"reposearch/internal/metrics"
	"reposearch/internal/model"
	"reposearch/internal/paging"
	"reposearch/internal/remote"
	"reposearch/internal/task"
)

// State is the coordinator's internal fetch state.
type State int

const (
	StateIdle State = iota
	StateFetching
	// StateExhausted is terminal: the remote source returned an empty page.
	StateExhausted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateExhausted:
		return "exhausted"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Merger writes one fetched page into the local store.
type Merger interface {
	MergePage(ctx context.Context, owners []model.Owner, repos []model.Repository) error
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger used for transition lines.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

// WithMetrics records fetch outcomes on m.
func WithMetrics(m *metrics.Fetch) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithDispatcher runs remote calls and merges on d.
func WithDispatcher(d *task.Dispatcher) Option {
	return func(c *Coordinator) { c.io = d }
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Coordinator) { c.tracer = tp.Tracer(tracerName) }
}

const tracerName = "reposearch/internal/boundary"

// Coordinator fetches remote pages for one fixed query, one at a time.
// It implements paging.BoundaryCallback so a pager can drive it.
type Coordinator struct {
	query   string
	remote  remote.SearchClient
	store   Merger
	scope   *task.Scope
	io      *task.Dispatcher
	log     *slog.Logger
	metrics *metrics.Fetch
	tracer  trace.Tracer
	status  *live.Value[model.FetchStatus]

	mu     sync.Mutex
	state  State
	page   int
	merged int
}

var _ paging.BoundaryCallback[model.Repository] = (*Coordinator)(nil)

// New creates a coordinator whose fetches run on s.
func New(s *task.Scope, query string, rc remote.SearchClient, store Merger, opts ...Option) *Coordinator {
	c := &Coordinator{
		query:  query,
		remote: rc,
		store:  store,
		scope:  s,
		status: live.NewValue(model.IdleStatus()),
		page:   1,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.io == nil {
		c.io = task.NewDispatcher(task.DefaultIOConcurrency)
	}
	if c.log == nil {
		c.log = logging.Discard()
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	c.log = c.log.With("component", "boundary", "query", query)
	return c
}

// Status publishes every transition. It starts as idle.
func (c *Coordinator) Status() *live.Value[model.FetchStatus] {
	return c.status
}

// State returns the current internal state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// NextPage returns the page the next fetch will request.
func (c *Coordinator) NextPage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// Query returns the fixed query text.
func (c *Coordinator) Query() string {
	return c.query
}

// OnZeroItemsLoaded is called by the pager when the store has nothing to show.
func (c *Coordinator) OnZeroItemsLoaded() {
	c.Trigger()
}

// OnItemAtEndLoaded is called by the pager when the last cached item was loaded.
func (c *Coordinator) OnItemAtEndLoaded(model.Repository) {
	c.Trigger()
}

// Retry re-attempts the page that failed last. It does nothing unless the
// coordinator is in StateFailed.
func (c *Coordinator) Retry() bool {
	c.mu.Lock()
	failed := c.state == StateFailed
	c.mu.Unlock()
	if !failed {
		return false
	}
	return c.Trigger()
}

// Trigger starts fetching the next page. It reports false when a fetch is
// already outstanding or the remote source is exhausted.
func (c *Coordinator) Trigger() bool {
	c.mu.Lock()
	if c.state == StateFetching || c.state == StateExhausted {
		c.mu.Unlock()
		return false
	}
	c.state = StateFetching
	page, base := c.page, c.merged
	c.status.Set(model.FetchStatus{State: model.FetchLoading, Page: page})
	c.mu.Unlock()

	c.log.Debug("fetch_start", "event", "fetch", "status", "starting", "page", page)

	c.scope.Go(func(ctx context.Context) error {
		return c.fetch(ctx, page, base)
	})
	return true
}

// fetch requests page and merges it. Remote failures are published and the
// coordinator stays retryable; store failures are returned to the scope.
// A fetch abandoned because the scope ended leaves the state at fetching.
func (c *Coordinator) fetch(ctx context.Context, page, base int) error {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "boundary.fetch", trace.WithAttributes(
		attribute.String("search.query", c.query),
		attribute.Int("search.page", page),
	))
	defer span.End()

	records, err := task.Call(ctx, c.io, func(ctx context.Context) ([]remote.RepositoryRecord, error) {
		return c.remote.SearchRepositories(ctx, c.query, page)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "remote search failed")
		c.settle(StateFailed, model.ErrorStatus(page, err))
		c.metrics.Observe(metrics.OutcomeError, time.Since(start))
		c.log.Warn("fetch_failed",
			"event", "fetch",
			"status", "error",
			"page", page,
			"error_message", err.Error(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}

	if len(records) == 0 {
		c.settle(StateExhausted, model.FetchStatus{State: model.FetchDone, Page: page})
		c.metrics.Observe(metrics.OutcomeEmpty, time.Since(start))
		c.log.Info("fetch_done",
			"event", "fetch",
			"status", "done",
			"page", page,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}

	owners, repos := toRows(records, base)
	err = c.io.Do(ctx, func(ctx context.Context) error {
		return c.store.MergePage(ctx, owners, repos)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "merge failed")
		c.log.Error("merge_failed",
			"event", "merge",
			"status", "error",
			"page", page,
			"error_message", err.Error(),
		)
		return fmt.Errorf("merge page %d of %q: %w", page, c.query, err)
	}

	span.SetAttributes(
		attribute.Int("search.records", len(records)),
		attribute.Int("search.owners", len(owners)),
	)
	c.mu.Lock()
	c.page = page + 1
	c.merged = base + len(repos)
	c.mu.Unlock()
	c.settle(StateIdle, model.FetchStatus{State: model.FetchSuccess, Page: page})
	c.metrics.Observe(metrics.OutcomeSuccess, time.Since(start))
	c.metrics.Merged(len(owners), len(repos))
	c.log.Info("fetch_success",
		"event", "fetch",
		"status", "success",
		"page", page,
		"records", len(records),
		"owners", len(owners),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// settle leaves the fetching state. State and status change under one lock so
// statuses are published in transition order.
func (c *Coordinator) settle(s State, status model.FetchStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
	c.status.Set(status)
}
