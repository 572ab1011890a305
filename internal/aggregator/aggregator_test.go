package aggregator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/github-project-dashboard/internal/collector/collectortest"
	"github.com/kurihiro0119/github-project-dashboard/internal/domain"
	apperrors "github.com/kurihiro0119/github-project-dashboard/internal/errors"
	"github.com/kurihiro0119/github-project-dashboard/internal/gist"
	"github.com/kurihiro0119/github-project-dashboard/internal/logging"
)

func newTestAggregator(m *collectortest.MockCollector) Aggregator {
	resolver := gist.NewResolver(m.Factory(), "oss-projects.json", logging.Discard())
	return NewAggregator(m.Factory(), resolver, logging.Discard())
}

func configOf(n int) *domain.GistConfig {
	cfg := &domain.GistConfig{}
	for i := 0; i < n; i++ {
		cfg.Projects = append(cfg.Projects, domain.ProjectReference{Owner: "acme", Repo: fmt.Sprintf("repo-%d", i)})
	}
	return cfg
}

func TestAggregate_PreservesOrder(t *testing.T) {
	m := new(collectortest.MockCollector)
	cfg := configOf(8)
	for i, p := range cfg.Projects {
		delay := time.Duration(len(cfg.Projects)-i) * time.Millisecond
		m.On("GetRepository", mock.Anything, p.Owner, p.Repo).
			After(delay).
			Return(&domain.RepositorySnapshot{ID: int64(i), Owner: p.Owner, Name: p.Repo}, nil)
	}

	results, err := newTestAggregator(m).Aggregate(context.Background(), "token", cfg)
	require.NoError(t, err)
	require.Len(t, results, len(cfg.Projects))
	for i, p := range cfg.Projects {
		assert.Equal(t, p, results[i].Ref())
	}
}

func TestAggregate_EmptyConfig(t *testing.T) {
	m := new(collectortest.MockCollector)

	results, err := newTestAggregator(m).Aggregate(context.Background(), "token", &domain.GistConfig{})
	require.NoError(t, err)
	assert.Empty(t, results)
	m.AssertNotCalled(t, "GetRepository", mock.Anything, mock.Anything, mock.Anything)
}

func TestAggregate_AnyFailureFailsWhole(t *testing.T) {
	cfg := configOf(4)
	for failing := range cfg.Projects {
		t.Run(fmt.Sprintf("failure at %d", failing), func(t *testing.T) {
			m := new(collectortest.MockCollector)
			upstream := apperrors.NewUpstreamError("failed to get repository", errors.New("boom"))
			for i, p := range cfg.Projects {
				call := m.On("GetRepository", mock.Anything, p.Owner, p.Repo).Maybe()
				if i == failing {
					call.Return(nil, upstream)
				} else {
					call.Return(&domain.RepositorySnapshot{Owner: p.Owner, Name: p.Repo}, nil)
				}
			}

			results, err := newTestAggregator(m).Aggregate(context.Background(), "token", cfg)
			require.Error(t, err)
			assert.Nil(t, results)
			assert.True(t, apperrors.IsUpstream(err))
		})
	}
}

func TestOverview(t *testing.T) {
	content := `{"projects":["acme/widget"],"threshold":{"issues":2}}`
	m := new(collectortest.MockCollector)
	m.On("ListGists", mock.Anything).Return([]*domain.Gist{
		{ID: "g1", Files: map[string]domain.GistFile{"oss-projects.json": {Filename: "oss-projects.json"}}},
	}, nil)
	m.On("GetGist", mock.Anything, "g1").Return(&domain.Gist{ID: "g1", Files: map[string]domain.GistFile{
		"oss-projects.json": {Filename: "oss-projects.json", Content: &content},
	}}, nil)
	m.On("GetRepository", mock.Anything, "acme", "widget").Return(&domain.RepositorySnapshot{
		Owner: "acme", Name: "widget", FullName: "acme/widget", OpenIssuesCount: 3,
	}, nil)

	cfg, snapshots, err := newTestAggregator(m).Overview(context.Background(), "token")
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, "acme/widget", snapshots[0].FullName)
	assert.True(t, domain.Exceeds(cfg.Threshold.Issues, snapshots[0].OpenIssuesCount))
	m.AssertExpectations(t)
}

func TestOverview_ConfigFailureSkipsRepositories(t *testing.T) {
	m := new(collectortest.MockCollector)
	m.On("ListGists", mock.Anything).Return([]*domain.Gist{}, nil)

	cfg, snapshots, err := newTestAggregator(m).Overview(context.Background(), "token")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Nil(t, cfg)
	assert.Nil(t, snapshots)
	m.AssertNotCalled(t, "GetRepository", mock.Anything, mock.Anything, mock.Anything)
}

func TestSummarize(t *testing.T) {
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	summary := Summarize([]*domain.RepositorySnapshot{
		{StargazersCount: 10, ForksCount: 1, OpenIssuesCount: 2, UpdatedAt: newer},
		{StargazersCount: 30, ForksCount: 4, OpenIssuesCount: 0, UpdatedAt: older},
		{StargazersCount: 20, ForksCount: 0, OpenIssuesCount: 5, UpdatedAt: newer},
	})

	assert.Equal(t, 3, summary.Projects)
	assert.Equal(t, 7, summary.OpenIssues)
	assert.Equal(t, 60, summary.TotalStars)
	assert.Equal(t, 5, summary.TotalForks)
	assert.Equal(t, 20.0, summary.MedianStars)
	require.NotNil(t, summary.OldestUpdate)
	assert.True(t, summary.OldestUpdate.Equal(older))
}

func TestSummarize_Empty(t *testing.T) {
	summary := Summarize(nil)
	assert.Equal(t, domain.Summary{}, summary)
}
