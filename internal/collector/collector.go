package collector

import (
	"context"
	"time"

	"github.com/kurihiro0119/github-project-dashboard/internal/domain"
)

// Collector defines the interface for reading GitHub data on behalf of one user
type Collector interface {
	// GetAuthenticatedUser retrieves the account that owns the token
	GetAuthenticatedUser(ctx context.Context) (*domain.User, error)

	// ListGists retrieves all gists of the authenticated user (without file content)
	ListGists(ctx context.Context) ([]*domain.Gist, error)

	// GetGist retrieves a gist including file content
	GetGist(ctx context.Context, id string) (*domain.Gist, error)

	// GetRepository retrieves the metadata of a repository
	GetRepository(ctx context.Context, owner, repo string) (*domain.RepositorySnapshot, error)

	// ListWorkflows retrieves the GitHub Actions workflows of a repository
	ListWorkflows(ctx context.Context, owner, repo string) ([]*domain.Workflow, error)

	// ListWorkflowRuns retrieves the most recent runs of a workflow on a branch
	ListWorkflowRuns(ctx context.Context, owner, repo string, workflowID int64, branch string) ([]*domain.WorkflowRun, error)

	// ListPullRequests retrieves the open pull requests of a repository
	ListPullRequests(ctx context.Context, owner, repo string) ([]*domain.PullRequest, error)

	// GetCombinedStatus retrieves the combined commit status state of a ref
	GetCombinedStatus(ctx context.Context, owner, repo, ref string) (string, error)

	// ListIssues retrieves the open entries of the issues endpoint, pull requests included
	ListIssues(ctx context.Context, owner, repo string) ([]*domain.Issue, error)

	// GetLatestCommit retrieves the newest commit of the default branch
	GetLatestCommit(ctx context.Context, owner, repo string) (*domain.LastCommit, error)

	// CountOpenVulnerabilityAlerts counts the open Dependabot alerts of a repository
	CountOpenVulnerabilityAlerts(ctx context.Context, owner, repo string) (int, error)
}

// Factory builds a Collector bound to an access token
type Factory interface {
	ForToken(token string) Collector

	// Sweep drops per-token state not used since idleSince and reports how
	// many tokens were forgotten
	Sweep(idleSince time.Time) int
}

// FactoryFunc adapts a function to the Factory interface
type FactoryFunc func(token string) Collector

// ForToken calls f(token)
func (f FactoryFunc) ForToken(token string) Collector {
	return f(token)
}

// Sweep is a no-op; a FactoryFunc keeps no state
func (f FactoryFunc) Sweep(time.Time) int {
	return 0
}
