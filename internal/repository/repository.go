// Package repository contains data access layer abstractions for the local cache.
// Implementations live in subpackages (e.g., sqlstore) inside this directory.
package repository

import (
	"context"
	"errors"

	"reposearch/internal/live"
	"reposearch/internal/model"
	"reposearch/internal/paging"
	"reposearch/internal/task"
)

// ErrNotFound is returned by point lookups when no row has the given ID.
var ErrNotFound = errors.New("record not found")

// CacheStore defines data access for cached repositories and owners.
// No business logic here, strictly persistence operations.
type CacheStore interface {
	// RepositoriesPaged returns a factory of page sources ordered by criterion.
	// Every source reports invalidation on the next committed write.
	RepositoriesPaged(criterion model.Criterion) paging.Factory[model.Repository]

	// UpsertOwners inserts owners or updates them in place when the ID exists.
	UpsertOwners(ctx context.Context, owners []model.Owner) error

	// UpsertRepositories inserts repositories or updates them in place when the ID exists.
	// Every referenced owner must already be stored.
	UpsertRepositories(ctx context.Context, repos []model.Repository) error

	// MergePage upserts owners and then repositories in a single transaction.
	MergePage(ctx context.Context, owners []model.Owner, repos []model.Repository) error

	// DeleteAllOwners removes every owner. Repositories are removed with their owner.
	DeleteAllOwners(ctx context.Context) error

	// FindOwnerByID returns ErrNotFound when the owner is not cached.
	FindOwnerByID(ctx context.Context, id int64) (*model.Owner, error)

	// FindRepositoryByID returns ErrNotFound when the repository is not cached.
	FindRepositoryByID(ctx context.Context, id int64) (*model.Repository, error)

	// ObserveOwner returns a value holding the owner, or nil while it is absent.
	// It is refreshed after every write until s ends.
	ObserveOwner(s *task.Scope, id int64) (*live.Value[*model.Owner], error)

	// ObserveRepository is ObserveOwner for repositories.
	ObserveRepository(s *task.Scope, id int64) (*live.Value[*model.Repository], error)

	// List returns a page of repositories ordered by criterion and the total row count.
	List(ctx context.Context, criterion model.Criterion, pq PageQuery) (*PageResult[model.Repository], error)

	CountRepositories(ctx context.Context) (int, error)
	CountOwners(ctx context.Context) (int, error)

	// Invalidate marks every outstanding page source stale without writing.
	Invalidate()
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
