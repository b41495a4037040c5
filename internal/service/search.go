package service

import (
	"context"
	"log/slog"
	"sync"

	"reposearch/internal/boundary"
	"reposearch/internal/live"
	"reposearch/internal/logging"
	"reposearch/internal/metrics"
	"reposearch/internal/model"
	"reposearch/internal/paging"
	"reposearch/internal/remote"
	"reposearch/internal/repository"
	"reposearch/internal/task"
)

// DatabasePageSize is the number of cached repositories loaded per page.
const DatabasePageSize = 15

// SearchResult is what a consumer renders: the fetch status of the query and
// a paged view of the cache.
type SearchResult struct {
	Query     string
	Criterion model.Criterion
	Status    *live.Value[model.FetchStatus]
	Data      *paging.Pager[model.Repository]

	coordinator *boundary.Coordinator
}

// Items is the observable list of loaded repositories.
func (r *SearchResult) Items() *live.Value[[]model.Repository] {
	return r.Data.Items()
}

// Retry re-attempts a failed remote fetch. It reports whether a fetch started.
func (r *SearchResult) Retry() bool {
	return r.coordinator.Retry()
}

// Close invalidates the view. The coordinator stops with the scope.
func (r *SearchResult) Close() {
	r.Data.Invalidate()
}

// SearchService defines the use cases of the search data layer.
type SearchService interface {
	// Search builds a paged view over the cache for query. It returns immediately;
	// data and status are filled asynchronously on s.
	Search(s *task.Scope, query string) *SearchResult

	// GetRepositoryByID resolves to an observable repository, nil while it is not cached.
	GetRepositoryByID(s *task.Scope, id int64) *task.Future[*live.Value[*model.Repository]]

	// GetOwnerByID resolves to an observable owner, nil while it is not cached.
	GetOwnerByID(s *task.Scope, id int64) *task.Future[*live.Value[*model.Owner]]

	// DeleteOwners clears every owner and invalidates every active view.
	DeleteOwners(s *task.Scope) *task.Future[struct{}]

	// SetCriterion changes the order of views built from now on.
	SetCriterion(criterion string) error

	// Criterion returns the order used for new views.
	Criterion() model.Criterion
}

// Option configures a SearchRepository.
type Option func(*SearchRepository)

// WithLogger sets the logger passed to every coordinator.
func WithLogger(l *slog.Logger) Option {
	return func(r *SearchRepository) { r.log = l }
}

// WithMetrics records fetch outcomes of every coordinator on m.
func WithMetrics(m *metrics.Fetch) Option {
	return func(r *SearchRepository) { r.metrics = m }
}

// WithPrefetchDistance sets how close to the end of loaded data the consumer
// has to be before more is loaded. Zero means one page.
func WithPrefetchDistance(n int) Option {
	return func(r *SearchRepository) { r.prefetch = n }
}

// SearchRepository is the concrete implementation of SearchService.
type SearchRepository struct {
	store    repository.CacheStore
	remote   remote.SearchClient
	io       *task.Dispatcher
	log      *slog.Logger
	metrics  *metrics.Fetch
	prefetch int

	mu        sync.Mutex
	criterion model.Criterion
	active    map[*paging.Pager[model.Repository]]struct{}
}

var _ SearchService = (*SearchRepository)(nil)

// NewSearchRepository constructs a SearchRepository. Blocking store and remote
// calls run on io.
func NewSearchRepository(store repository.CacheStore, rc remote.SearchClient, io *task.Dispatcher, opts ...Option) *SearchRepository {
	r := &SearchRepository{
		store:     store,
		remote:    rc,
		io:        io,
		criterion: model.DefaultCriterion,
		active:    make(map[*paging.Pager[model.Repository]]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.io == nil {
		r.io = task.NewDispatcher(task.DefaultIOConcurrency)
	}
	if r.log == nil {
		r.log = logging.Discard()
	}
	return r
}

// SetCriterion validates and stores the order for future views.
func (r *SearchRepository) SetCriterion(criterion string) error {
	c, err := model.ParseCriterion(criterion)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.criterion = c
	return nil
}

// Criterion returns the order used for new views.
func (r *SearchRepository) Criterion() model.Criterion {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.criterion
}

// Search wires a pager over the cache to a boundary coordinator for query.
// Concurrent searches for the same query are independent.
func (r *SearchRepository) Search(s *task.Scope, query string) *SearchResult {
	criterion := r.Criterion()

	coord := boundary.New(s, query, r.remote, r.store,
		boundary.WithDispatcher(r.io),
		boundary.WithLogger(r.log),
		boundary.WithMetrics(r.metrics),
	)
	pager := paging.New(
		r.store.RepositoriesPaged(criterion),
		paging.Config{PageSize: DatabasePageSize, PrefetchDistance: r.prefetch},
		coord,
	)

	r.mu.Lock()
	r.active[pager] = struct{}{}
	r.mu.Unlock()

	pager.Start(s)
	s.Go(func(ctx context.Context) error {
		r.follow(ctx, pager, coord)
		return nil
	})

	r.log.Info("search_started",
		"component", "search",
		"event", "search",
		"status", "starting",
		"query", query,
		"criterion", string(criterion),
	)

	return &SearchResult{
		Query:       query,
		Criterion:   criterion,
		Status:      coord.Status(),
		Data:        pager,
		coordinator: coord,
	}
}

// follow asks the pager to re-evaluate the boundary after every successful
// fetch, so a trigger that arrived while the fetch was still settling is not
// lost. It untracks the pager once the view ends.
func (r *SearchRepository) follow(ctx context.Context, pager *paging.Pager[model.Repository], coord *boundary.Coordinator) {
	defer func() {
		r.mu.Lock()
		delete(r.active, pager)
		r.mu.Unlock()
	}()

	statuses, cancel := coord.Status().Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-pager.Done():
			return
		case st, ok := <-statuses:
			if !ok {
				return
			}
			if st.State == model.FetchSuccess {
				pager.Recheck()
			}
		}
	}
}

// ActiveSearches returns the number of views that have not been invalidated.
func (r *SearchRepository) ActiveSearches() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// GetRepositoryByID looks the repository up on the background dispatcher.
func (r *SearchRepository) GetRepositoryByID(s *task.Scope, id int64) *task.Future[*live.Value[*model.Repository]] {
	return task.Async(s, r.io, func(ctx context.Context) (*live.Value[*model.Repository], error) {
		return r.store.ObserveRepository(s, id)
	})
}

// GetOwnerByID looks the owner up on the background dispatcher.
func (r *SearchRepository) GetOwnerByID(s *task.Scope, id int64) *task.Future[*live.Value[*model.Owner]] {
	return task.Async(s, r.io, func(ctx context.Context) (*live.Value[*model.Owner], error) {
		return r.store.ObserveOwner(s, id)
	})
}

// DeleteOwners clears owners, and with them every cached repository, on the
// background dispatcher. Every active view is invalidated afterwards and
// consumers have to call Search again.
func (r *SearchRepository) DeleteOwners(s *task.Scope) *task.Future[struct{}] {
	return task.Async(s, r.io, func(ctx context.Context) (struct{}, error) {
		if err := r.store.DeleteAllOwners(ctx); err != nil {
			return struct{}{}, err
		}
		r.store.Invalidate()

		r.mu.Lock()
		views := make([]*paging.Pager[model.Repository], 0, len(r.active))
		for p := range r.active {
			views = append(views, p)
		}
		r.mu.Unlock()

		for _, p := range views {
			p.Invalidate()
		}
		r.log.Info("owners_deleted",
			"component", "search",
			"event", "delete_owners",
			"status", "success",
			"invalidated_views", len(views),
		)
		return struct{}{}, nil
	})
}
