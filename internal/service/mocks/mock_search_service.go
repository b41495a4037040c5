package mocks

import (
	"github.com/stretchr/testify/mock"

	"reposearch/internal/live"
	"reposearch/internal/model"
	"reposearch/internal/service"
	"reposearch/internal/task"
)

type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) Search(s *task.Scope, query string) *service.SearchResult {
	args := m.Called(s, query)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*service.SearchResult)
}

func (m *MockSearchService) GetRepositoryByID(s *task.Scope, id int64) *task.Future[*live.Value[*model.Repository]] {
	args := m.Called(s, id)
	return args.Get(0).(*task.Future[*live.Value[*model.Repository]])
}

func (m *MockSearchService) GetOwnerByID(s *task.Scope, id int64) *task.Future[*live.Value[*model.Owner]] {
	args := m.Called(s, id)
	return args.Get(0).(*task.Future[*live.Value[*model.Owner]])
}

func (m *MockSearchService) DeleteOwners(s *task.Scope) *task.Future[struct{}] {
	args := m.Called(s)
	return args.Get(0).(*task.Future[struct{}])
}

func (m *MockSearchService) SetCriterion(criterion string) error {
	args := m.Called(criterion)
	return args.Error(0)
}

func (m *MockSearchService) Criterion() model.Criterion {
	args := m.Called()
	return args.Get(0).(model.Criterion)
}
