package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"reposearch/internal/live"
	"reposearch/internal/model"
	"reposearch/internal/paging"
	"reposearch/internal/repository"
	"reposearch/internal/task"
)

type MockCacheStore struct {
	mock.Mock
}

func (m *MockCacheStore) RepositoriesPaged(criterion model.Criterion) paging.Factory[model.Repository] {
	args := m.Called(criterion)
	return args.Get(0).(paging.Factory[model.Repository])
}

func (m *MockCacheStore) UpsertOwners(ctx context.Context, owners []model.Owner) error {
	args := m.Called(ctx, owners)
	return args.Error(0)
}

func (m *MockCacheStore) UpsertRepositories(ctx context.Context, repos []model.Repository) error {
	args := m.Called(ctx, repos)
	return args.Error(0)
}

func (m *MockCacheStore) MergePage(ctx context.Context, owners []model.Owner, repos []model.Repository) error {
	args := m.Called(ctx, owners, repos)
	return args.Error(0)
}

func (m *MockCacheStore) DeleteAllOwners(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockCacheStore) FindOwnerByID(ctx context.Context, id int64) (*model.Owner, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Owner), args.Error(1)
}

func (m *MockCacheStore) FindRepositoryByID(ctx context.Context, id int64) (*model.Repository, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Repository), args.Error(1)
}

func (m *MockCacheStore) ObserveOwner(s *task.Scope, id int64) (*live.Value[*model.Owner], error) {
	args := m.Called(s, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*live.Value[*model.Owner]), args.Error(1)
}

func (m *MockCacheStore) ObserveRepository(s *task.Scope, id int64) (*live.Value[*model.Repository], error) {
	args := m.Called(s, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*live.Value[*model.Repository]), args.Error(1)
}

func (m *MockCacheStore) List(ctx context.Context, criterion model.Criterion, pq repository.PageQuery) (*repository.PageResult[model.Repository], error) {
	args := m.Called(ctx, criterion, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Repository]), args.Error(1)
}

func (m *MockCacheStore) CountRepositories(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockCacheStore) CountOwners(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockCacheStore) Invalidate() {
	m.Called()
}
