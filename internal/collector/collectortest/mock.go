// Package collectortest provides a testify mock of collector.Collector.
package collectortest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/kurihiro0119/github-project-dashboard/internal/collector"
	"github.com/kurihiro0119/github-project-dashboard/internal/domain"
)

// MockCollector is a mock implementation of the collector.Collector interface.
type MockCollector struct {
	mock.Mock
}

var _ collector.Collector = (*MockCollector)(nil)

// Factory returns a factory that hands out m for every token.
func (m *MockCollector) Factory() collector.Factory {
	return collector.FactoryFunc(func(string) collector.Collector { return m })
}

func (m *MockCollector) GetAuthenticatedUser(ctx context.Context) (*domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockCollector) ListGists(ctx context.Context) ([]*domain.Gist, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Gist), args.Error(1)
}

func (m *MockCollector) GetGist(ctx context.Context, id string) (*domain.Gist, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Gist), args.Error(1)
}

func (m *MockCollector) GetRepository(ctx context.Context, owner, repo string) (*domain.RepositorySnapshot, error) {
	args := m.Called(ctx, owner, repo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RepositorySnapshot), args.Error(1)
}

func (m *MockCollector) ListWorkflows(ctx context.Context, owner, repo string) ([]*domain.Workflow, error) {
	args := m.Called(ctx, owner, repo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Workflow), args.Error(1)
}

func (m *MockCollector) ListWorkflowRuns(ctx context.Context, owner, repo string, workflowID int64, branch string) ([]*domain.WorkflowRun, error) {
	args := m.Called(ctx, owner, repo, workflowID, branch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.WorkflowRun), args.Error(1)
}

func (m *MockCollector) ListPullRequests(ctx context.Context, owner, repo string) ([]*domain.PullRequest, error) {
	args := m.Called(ctx, owner, repo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PullRequest), args.Error(1)
}

func (m *MockCollector) GetCombinedStatus(ctx context.Context, owner, repo, ref string) (string, error) {
	args := m.Called(ctx, owner, repo, ref)
	return args.String(0), args.Error(1)
}

func (m *MockCollector) ListIssues(ctx context.Context, owner, repo string) ([]*domain.Issue, error) {
	args := m.Called(ctx, owner, repo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Issue), args.Error(1)
}

func (m *MockCollector) GetLatestCommit(ctx context.Context, owner, repo string) (*domain.LastCommit, error) {
	args := m.Called(ctx, owner, repo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LastCommit), args.Error(1)
}

func (m *MockCollector) CountOpenVulnerabilityAlerts(ctx context.Context, owner, repo string) (int, error) {
	args := m.Called(ctx, owner, repo)
	return args.Int(0), args.Error(1)
}
