// Package sqlstore implements repository.CacheStore on bun, for SQLite and PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	"reposearch/internal/model"
	"reposearch/internal/paging"
	"reposearch/internal/repository"
)

// Store is the bun implementation of repository.CacheStore.
// Every committed write invalidates the page sources handed out so far.
type Store struct {
	db      *bun.DB
	changes *tracker
}

// New creates a Store over an already migrated database.
func New(db *bun.DB) *Store {
	return &Store{db: db, changes: newTracker()}
}

var _ repository.CacheStore = (*Store)(nil)

// RepositoriesPaged returns a factory of sources reading repositories in criterion order.
func (s *Store) RepositoriesPaged(criterion model.Criterion) paging.Factory[model.Repository] {
	order := orderFor(criterion)
	var rows paging.Factory[repositoryRow] = func() paging.Source[repositoryRow] {
		return paging.NewFuncSource(s.changes.changes(), func(ctx context.Context, offset, limit int) ([]repositoryRow, error) {
			return s.selectRepositories(ctx, order, offset, limit)
		})
	}
	return paging.MapFactory(rows, repositoryRow.toModel)
}

// UpsertOwners inserts owners, updating existing rows by ID.
func (s *Store) UpsertOwners(ctx context.Context, owners []model.Owner) error {
	if err := upsertOwners(ctx, s.db, owners); err != nil {
		return err
	}
	s.changes.notify()
	return nil
}

// UpsertRepositories inserts repositories, updating existing rows by ID.
func (s *Store) UpsertRepositories(ctx context.Context, repos []model.Repository) error {
	if err := upsertRepositories(ctx, s.db, repos); err != nil {
		return err
	}
	s.changes.notify()
	return nil
}

// MergePage writes owners before repositories so foreign keys resolve, all in one transaction.
func (s *Store) MergePage(ctx context.Context, owners []model.Owner, repos []model.Repository) error {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := upsertOwners(ctx, tx, owners); err != nil {
			return err
		}
		return upsertRepositories(ctx, tx, repos)
	})
	if err != nil {
		return fmt.Errorf("merge page: %w", err)
	}
	s.changes.notify()
	return nil
}

// DeleteAllOwners removes every owner; repositories go with them through ON DELETE CASCADE.
func (s *Store) DeleteAllOwners(ctx context.Context) error {
	_, err := s.db.NewDelete().
		Model((*ownerRow)(nil)).
		Where("1 = 1").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete owners: %w", err)
	}
	s.changes.notify()
	return nil
}

// FindOwnerByID fetches a single owner by its ID.
func (s *Store) FindOwnerByID(ctx context.Context, id int64) (*model.Owner, error) {
	var row ownerRow
	err := s.db.NewSelect().Model(&row).Where("o.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find owner %d: %w", id, err)
	}
	o := row.toModel()
	return &o, nil
}

// FindRepositoryByID fetches a single repository by its ID.
func (s *Store) FindRepositoryByID(ctx context.Context, id int64) (*model.Repository, error) {
	var row repositoryRow
	err := s.db.NewSelect().Model(&row).Where("r.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find repository %d: %w", id, err)
	}
	r := row.toModel()
	return &r, nil
}

// List returns repositories using LIMIT/OFFSET pagination and a total count.
func (s *Store) List(ctx context.Context, criterion model.Criterion, pq repository.PageQuery) (*repository.PageResult[model.Repository], error) {
	total, err := s.CountRepositories(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.selectRepositories(ctx, orderFor(criterion), pq.Offset, pq.Limit)
	if err != nil {
		return nil, err
	}

	items := make([]model.Repository, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.toModel())
	}
	return &repository.PageResult[model.Repository]{
		Items: items,
		Total: total,
	}, nil
}

// CountRepositories returns the number of cached repositories.
func (s *Store) CountRepositories(ctx context.Context) (int, error) {
	n, err := s.db.NewSelect().Model((*repositoryRow)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count repositories: %w", err)
	}
	return n, nil
}

// CountOwners returns the number of cached owners.
func (s *Store) CountOwners(ctx context.Context) (int, error) {
	n, err := s.db.NewSelect().Model((*ownerRow)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count owners: %w", err)
	}
	return n, nil
}

// Invalidate forces every outstanding source to be rebuilt.
func (s *Store) Invalidate() {
	s.changes.notify()
}

func (s *Store) selectRepositories(ctx context.Context, order []string, offset, limit int) ([]repositoryRow, error) {
	rows := make([]repositoryRow, 0, limit)
	err := s.db.NewSelect().
		Model(&rows).
		OrderExpr(strings.Join(order, ", ")).
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select repositories: %w", err)
	}
	return rows, nil
}

func upsertOwners(ctx context.Context, db bun.IDB, owners []model.Owner) error {
	if len(owners) == 0 {
		return nil
	}
	rows := make([]ownerRow, 0, len(owners))
	for _, o := range owners {
		rows = append(rows, ownerRowFrom(o))
	}
	q := db.NewInsert().Model(&rows).On("CONFLICT (id) DO UPDATE").Returning("NULL")
	for _, c := range ownerUpdateColumns {
		q = q.Set(c + " = EXCLUDED." + c)
	}
	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("upsert owners: %w", err)
	}
	return nil
}

func upsertRepositories(ctx context.Context, db bun.IDB, repos []model.Repository) error {
	if len(repos) == 0 {
		return nil
	}
	rows := make([]repositoryRow, 0, len(repos))
	for _, r := range repos {
		rows = append(rows, repositoryRowFrom(r))
	}
	q := db.NewInsert().Model(&rows).On("CONFLICT (id) DO UPDATE").Returning("NULL")
	for _, c := range repositoryUpdateColumns {
		q = q.Set(c + " = EXCLUDED." + c)
	}
	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("upsert repositories: %w", err)
	}
	return nil
}
