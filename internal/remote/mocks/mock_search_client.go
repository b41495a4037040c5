package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"reposearch/internal/remote"
)

type MockSearchClient struct {
	mock.Mock
}

func (m *MockSearchClient) SearchRepositories(ctx context.Context, query string, page int) ([]remote.RepositoryRecord, error) {
	args := m.Called(ctx, query, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]remote.RepositoryRecord), args.Error(1)
}
