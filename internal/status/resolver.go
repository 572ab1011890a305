package status

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kurihiro0119/github-project-dashboard/internal/collector"
	"github.com/kurihiro0119/github-project-dashboard/internal/domain"
	apperrors "github.com/kurihiro0119/github-project-dashboard/internal/errors"
)

// ErrNoCISetup is returned when a repository has no matching workflow run
var ErrNoCISetup = &apperrors.AppError{Code: apperrors.ErrCodeNotFound, Message: "no CI setup"}

// Resolver answers the per-repository cell queries
type Resolver struct {
	collectors   collector.Factory
	workflowName string
	logger       *slog.Logger
}

// NewResolver creates a resolver. workflowName selects the CI workflow shown
// in the workflow column.
func NewResolver(collectors collector.Factory, workflowName string, logger *slog.Logger) *Resolver {
	return &Resolver{
		collectors:   collectors,
		workflowName: workflowName,
		logger:       logger,
	}
}

// Workflow returns the most recent run of the CI workflow on branch
func (r *Resolver) Workflow(ctx context.Context, cache *Cache, token, owner, repo, branch string) (*domain.WorkflowRun, error) {
	key := Key{Endpoint: EndpointWorkflow, Owner: owner, Repo: repo, Branch: branch}
	return get(ctx, cache, key, func(ctx context.Context) (*domain.WorkflowRun, error) {
		c := r.collectors.ForToken(token)

		workflows, err := c.ListWorkflows(ctx, owner, repo)
		if err != nil {
			return nil, err
		}

		var workflow *domain.Workflow
		for _, w := range workflows {
			if w.Name == r.workflowName {
				workflow = w
				break
			}
		}
		if workflow == nil {
			return nil, ErrNoCISetup
		}

		runs, err := c.ListWorkflowRuns(ctx, owner, repo, workflow.ID, branch)
		if err != nil {
			return nil, err
		}
		for _, run := range runs {
			if run.HeadBranch == branch {
				return run, nil
			}
		}
		return nil, ErrNoCISetup
	})
}

// Pulls returns the open pull requests of a repository
func (r *Resolver) Pulls(ctx context.Context, cache *Cache, token, owner, repo string) ([]*domain.PullRequest, error) {
	key := Key{Endpoint: EndpointPulls, Owner: owner, Repo: repo}
	return get(ctx, cache, key, func(ctx context.Context) ([]*domain.PullRequest, error) {
		return r.collectors.ForToken(token).ListPullRequests(ctx, owner, repo)
	})
}

// PullStatus returns the combined CI state of a pull request's head
func (r *Resolver) PullStatus(ctx context.Context, cache *Cache, token, owner, repo string, number int) (*domain.PullStatus, error) {
	key := Key{Endpoint: EndpointPullStatus, Owner: owner, Repo: repo, Number: number}
	return get(ctx, cache, key, func(ctx context.Context) (*domain.PullStatus, error) {
		ref := fmt.Sprintf("refs/pull/%d/head", number)
		state, err := r.collectors.ForToken(token).GetCombinedStatus(ctx, owner, repo, ref)
		if err != nil {
			return nil, err
		}
		return &domain.PullStatus{Number: number, State: domain.PullStateFromCombined(state)}, nil
	})
}

// Issues returns the open issues of a repository, pull requests excluded
func (r *Resolver) Issues(ctx context.Context, cache *Cache, token, owner, repo string) ([]*domain.Issue, error) {
	key := Key{Endpoint: EndpointIssues, Owner: owner, Repo: repo}
	return get(ctx, cache, key, func(ctx context.Context) ([]*domain.Issue, error) {
		entries, err := r.collectors.ForToken(token).ListIssues(ctx, owner, repo)
		if err != nil {
			return nil, err
		}

		issues := make([]*domain.Issue, 0, len(entries))
		for _, e := range entries {
			if !e.IsPullRequest {
				issues = append(issues, e)
			}
		}
		return issues, nil
	})
}

// LastCommit returns the newest commit of the default branch
func (r *Resolver) LastCommit(ctx context.Context, cache *Cache, token, owner, repo string) (*domain.LastCommit, error) {
	key := Key{Endpoint: EndpointLastCommit, Owner: owner, Repo: repo}
	return get(ctx, cache, key, func(ctx context.Context) (*domain.LastCommit, error) {
		return r.collectors.ForToken(token).GetLatestCommit(ctx, owner, repo)
	})
}

// VulnerabilityAlerts returns the number of open Dependabot alerts
func (r *Resolver) VulnerabilityAlerts(ctx context.Context, cache *Cache, token, owner, repo string) (*domain.VulnerabilityAlerts, error) {
	key := Key{Endpoint: EndpointAlerts, Owner: owner, Repo: repo}
	return get(ctx, cache, key, func(ctx context.Context) (*domain.VulnerabilityAlerts, error) {
		open, err := r.collectors.ForToken(token).CountOpenVulnerabilityAlerts(ctx, owner, repo)
		if err != nil {
			r.logger.Debug("failed to count vulnerability alerts", "owner", owner, "repo", repo, "error", err)
			return nil, err
		}
		return &domain.VulnerabilityAlerts{Open: open}, nil
	})
}
