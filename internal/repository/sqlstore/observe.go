package sqlstore

import (
	"context"
	"errors"

	"reposearch/internal/live"
	"reposearch/internal/model"
	"reposearch/internal/repository"
	"reposearch/internal/task"
)

// ObserveOwner loads the owner now and reloads it after every write until sc ends.
func (s *Store) ObserveOwner(sc *task.Scope, id int64) (*live.Value[*model.Owner], error) {
	return observe(sc, s.changes, func(ctx context.Context) (*model.Owner, error) {
		return s.FindOwnerByID(ctx, id)
	})
}

// ObserveRepository loads the repository now and reloads it after every write until sc ends.
func (s *Store) ObserveRepository(sc *task.Scope, id int64) (*live.Value[*model.Repository], error) {
	return observe(sc, s.changes, func(ctx context.Context) (*model.Repository, error) {
		return s.FindRepositoryByID(ctx, id)
	})
}

// observe publishes find's result, nil for a missing row. A reload error ends
// the watch and fails sc.
func observe[T any](sc *task.Scope, t *tracker, find func(ctx context.Context) (*T, error)) (*live.Value[*T], error) {
	changed := t.changes()
	first, err := findOptional(sc.Context(), find)
	if err != nil {
		return nil, err
	}
	v := live.NewValue(first)

	sc.Go(func(ctx context.Context) error {
		defer v.Close()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-changed:
			}
			changed = t.changes()
			cur, err := findOptional(ctx, find)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			v.Set(cur)
		}
	})
	return v, nil
}

func findOptional[T any](ctx context.Context, find func(ctx context.Context) (*T, error)) (*T, error) {
	x, err := find(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return x, err
}
