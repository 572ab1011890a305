package main

import (
	"context"

	"github.com/kurihiro0119/github-project-dashboard/internal/aggregator"
	"github.com/kurihiro0119/github-project-dashboard/internal/collector"
	"github.com/kurihiro0119/github-project-dashboard/internal/domain"
	"github.com/kurihiro0119/github-project-dashboard/internal/gist"
	"github.com/kurihiro0119/github-project-dashboard/internal/status"
	"github.com/kurihiro0119/github-project-dashboard/pkg/client"
)

// source is where the CLI reads dashboard data from: GitHub directly or a
// running dashboard server
type source interface {
	Me(ctx context.Context) (*domain.User, error)
	Config(ctx context.Context) (*domain.GistConfig, error)
	Overview(ctx context.Context) (*domain.Overview, error)
	Repository(ctx context.Context, ref domain.ProjectReference) (*domain.RepositorySnapshot, error)
	Workflow(ctx context.Context, ref domain.ProjectReference, branch string) (*domain.WorkflowRun, error)
	Issues(ctx context.Context, ref domain.ProjectReference) ([]*domain.Issue, error)
	Pulls(ctx context.Context, ref domain.ProjectReference) ([]*domain.PullRequest, error)
	PullStatus(ctx context.Context, ref domain.ProjectReference, number int) (*domain.PullStatus, error)
	LastCommit(ctx context.Context, ref domain.ProjectReference) (*domain.LastCommit, error)
	VulnerabilityAlerts(ctx context.Context, ref domain.ProjectReference) (*domain.VulnerabilityAlerts, error)
}

// localSource reads GitHub with the caller's token
type localSource struct {
	token      string
	collectors collector.Factory
	config     *gist.Resolver
	agg        aggregator.Aggregator
	resolver   *status.Resolver
	cache      *status.Cache
}

func (s *localSource) Me(ctx context.Context) (*domain.User, error) {
	return s.collectors.ForToken(s.token).GetAuthenticatedUser(ctx)
}

func (s *localSource) Config(ctx context.Context) (*domain.GistConfig, error) {
	return s.config.Resolve(ctx, s.token)
}

func (s *localSource) Overview(ctx context.Context) (*domain.Overview, error) {
	s.cache.Reset()
	cfg, snapshots, err := s.agg.Overview(ctx, s.token)
	if err != nil {
		return nil, err
	}
	return &domain.Overview{
		Repositories: snapshots,
		Summary:      aggregator.Summarize(snapshots),
		Threshold:    cfg.Threshold,
	}, nil
}

func (s *localSource) Repository(ctx context.Context, ref domain.ProjectReference) (*domain.RepositorySnapshot, error) {
	return s.agg.GetRepository(ctx, s.token, ref)
}

func (s *localSource) Workflow(ctx context.Context, ref domain.ProjectReference, branch string) (*domain.WorkflowRun, error) {
	return s.resolver.Workflow(ctx, s.cache, s.token, ref.Owner, ref.Repo, branch)
}

func (s *localSource) Issues(ctx context.Context, ref domain.ProjectReference) ([]*domain.Issue, error) {
	return s.resolver.Issues(ctx, s.cache, s.token, ref.Owner, ref.Repo)
}

func (s *localSource) Pulls(ctx context.Context, ref domain.ProjectReference) ([]*domain.PullRequest, error) {
	return s.resolver.Pulls(ctx, s.cache, s.token, ref.Owner, ref.Repo)
}

func (s *localSource) PullStatus(ctx context.Context, ref domain.ProjectReference, number int) (*domain.PullStatus, error) {
	return s.resolver.PullStatus(ctx, s.cache, s.token, ref.Owner, ref.Repo, number)
}

func (s *localSource) LastCommit(ctx context.Context, ref domain.ProjectReference) (*domain.LastCommit, error) {
	return s.resolver.LastCommit(ctx, s.cache, s.token, ref.Owner, ref.Repo)
}

func (s *localSource) VulnerabilityAlerts(ctx context.Context, ref domain.ProjectReference) (*domain.VulnerabilityAlerts, error) {
	return s.resolver.VulnerabilityAlerts(ctx, s.cache, s.token, ref.Owner, ref.Repo)
}

// remoteSource reads through a dashboard server
type remoteSource struct {
	client *client.Client
}

func (s *remoteSource) Me(ctx context.Context) (*domain.User, error) {
	return s.client.GetMe(ctx)
}

func (s *remoteSource) Config(ctx context.Context) (*domain.GistConfig, error) {
	return s.client.GetGist(ctx)
}

func (s *remoteSource) Overview(ctx context.Context) (*domain.Overview, error) {
	return s.client.GetOverview(ctx)
}

func (s *remoteSource) Repository(ctx context.Context, ref domain.ProjectReference) (*domain.RepositorySnapshot, error) {
	return s.client.GetRepository(ctx, ref.Owner, ref.Repo)
}

func (s *remoteSource) Workflow(ctx context.Context, ref domain.ProjectReference, branch string) (*domain.WorkflowRun, error) {
	return s.client.GetWorkflow(ctx, ref.Owner, ref.Repo, branch)
}

func (s *remoteSource) Issues(ctx context.Context, ref domain.ProjectReference) ([]*domain.Issue, error) {
	return s.client.GetIssues(ctx, ref.Owner, ref.Repo)
}

func (s *remoteSource) Pulls(ctx context.Context, ref domain.ProjectReference) ([]*domain.PullRequest, error) {
	return s.client.GetPulls(ctx, ref.Owner, ref.Repo)
}

func (s *remoteSource) PullStatus(ctx context.Context, ref domain.ProjectReference, number int) (*domain.PullStatus, error) {
	return s.client.GetPullStatus(ctx, ref.Owner, ref.Repo, number)
}

func (s *remoteSource) LastCommit(ctx context.Context, ref domain.ProjectReference) (*domain.LastCommit, error) {
	return s.client.GetLastCommit(ctx, ref.Owner, ref.Repo)
}

func (s *remoteSource) VulnerabilityAlerts(ctx context.Context, ref domain.ProjectReference) (*domain.VulnerabilityAlerts, error) {
	return s.client.GetVulnerabilityAlerts(ctx, ref.Owner, ref.Repo)
}
