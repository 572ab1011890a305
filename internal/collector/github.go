package collector

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v55/github"
	"golang.org/x/oauth2"

	"github.com/kurihiro0119/github-project-dashboard/internal/domain"
	apperrors "github.com/kurihiro0119/github-project-dashboard/internal/errors"
)

const (
	perPage = 100
	// maxRateLimitWait bounds how long a dashboard request may block on the primary rate limit
	maxRateLimitWait = 30 * time.Second
)

// githubCollector implements Collector using GitHub API
type githubCollector struct {
	client      *github.Client
	rateLimiter RateLimiter
	logger      *slog.Logger
}

// githubFactory builds collectors that share one base transport and keep
// the rate limit state of each token apart. Tokens are only held as hashes.
type githubFactory struct {
	baseURL *url.URL
	base    http.RoundTripper
	logger  *slog.Logger
	now     func() time.Time

	mu     sync.Mutex
	tokens map[string]*tokenState
}

// tokenState is the rate limit state of one access token
type tokenState struct {
	transport http.RoundTripper
	limiter   RateLimiter
	lastUsed  time.Time
}

// NewFactory creates a collector factory. apiURL overrides the GitHub API
// base URL (GitHub Enterprise or a test server); empty means api.github.com.
func NewFactory(apiURL string, logger *slog.Logger) (Factory, error) {
	f := &githubFactory{
		base:   http.DefaultTransport,
		logger: logger,
		now:    time.Now,
		tokens: make(map[string]*tokenState),
	}
	if apiURL != "" {
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		var err error
		f.baseURL, err = url.Parse(apiURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", apiURL, err)
		}
	}
	return f, nil
}

// ForToken returns a collector authenticated with token
func (f *githubFactory) ForToken(token string) Collector {
	state := f.stateFor(token)

	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   state.transport,
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
		},
	}
	client := github.NewClient(httpClient)
	if f.baseURL != nil {
		client.BaseURL = f.baseURL
	}

	return &githubCollector{
		client:      client,
		rateLimiter: state.limiter,
		logger:      f.logger,
	}
}

// Sweep forgets the state of tokens not used since idleSince
func (f *githubFactory) Sweep(idleSince time.Time) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for key, state := range f.tokens {
		if state.lastUsed.Before(idleSince) {
			delete(f.tokens, key)
			n++
		}
	}
	return n
}

func (f *githubFactory) stateFor(token string) *tokenState {
	sum := sha256.Sum256([]byte(token))
	key := hex.EncodeToString(sum[:])

	f.mu.Lock()
	defer f.mu.Unlock()

	state, ok := f.tokens[key]
	if !ok {
		state = &tokenState{
			transport: f.newWaiter(key[:8]),
			limiter:   NewRateLimiter(0, maxRateLimitWait),
		}
		f.tokens[key] = state
	}
	state.lastUsed = f.now()
	return state
}

// newWaiter detects secondary rate limits without sleeping: a zero sleep
// limit hands the 403 straight back so it surfaces as a rate limited error.
func (f *githubFactory) newWaiter(tokenID string) http.RoundTripper {
	onLimit := func(cc *github_ratelimit.CallbackContext) {
		attrs := []any{"token", tokenID}
		if cc.SleepUntil != nil {
			attrs = append(attrs, "until", *cc.SleepUntil)
		}
		if cc.Request != nil {
			attrs = append(attrs, "path", cc.Request.URL.Path)
		}
		f.logger.Warn("GitHub secondary rate limit hit", attrs...)
	}

	waiter, err := github_ratelimit.NewRateLimitWaiter(f.base, github_ratelimit.WithSingleSleepLimit(0, onLimit))
	if err != nil {
		f.logger.Warn("secondary rate limit detection disabled", "error", err)
		return f.base
	}
	return waiter
}

// GetAuthenticatedUser retrieves the account that owns the token
func (c *githubCollector) GetAuthenticatedUser(ctx context.Context) (*domain.User, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	user, resp, err := c.client.Users.Get(ctx, "")
	c.updateRateLimitFromResponse(resp)
	if err != nil {
		return nil, upstreamError("failed to get authenticated user", err)
	}

	return &domain.User{
		Login:     user.GetLogin(),
		Name:      user.GetName(),
		AvatarURL: user.GetAvatarURL(),
	}, nil
}

// ListGists retrieves all gists of the authenticated user
func (c *githubCollector) ListGists(ctx context.Context) ([]*domain.Gist, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	var allGists []*domain.Gist
	opts := &github.GistListOptions{
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	for {
		gists, resp, err := c.client.Gists.List(ctx, "", opts)
		c.updateRateLimitFromResponse(resp)
		if err != nil {
			return nil, upstreamError("failed to list gists", err)
		}

		for _, gist := range gists {
			allGists = append(allGists, toGist(gist))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	c.logger.Debug("listed gists", "count", len(allGists))
	return allGists, nil
}

// GetGist retrieves a gist including file content
func (c *githubCollector) GetGist(ctx context.Context, id string) (*domain.Gist, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	gist, resp, err := c.client.Gists.Get(ctx, id)
	c.updateRateLimitFromResponse(resp)
	if err != nil {
		return nil, upstreamError(fmt.Sprintf("failed to get gist %s", id), err)
	}

	return toGist(gist), nil
}

// GetRepository retrieves the metadata of a repository
func (c *githubCollector) GetRepository(ctx context.Context, owner, repo string) (*domain.RepositorySnapshot, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	r, resp, err := c.client.Repositories.Get(ctx, owner, repo)
	c.updateRateLimitFromResponse(resp)
	if err != nil {
		return nil, upstreamError(fmt.Sprintf("failed to get repository %s/%s", owner, repo), err)
	}

	snapshot := &domain.RepositorySnapshot{
		ID:              r.GetID(),
		Name:            r.GetName(),
		FullName:        r.GetFullName(),
		Owner:           r.GetOwner().GetLogin(),
		Description:     r.GetDescription(),
		HTMLURL:         r.GetHTMLURL(),
		Homepage:        r.GetHomepage(),
		Language:        r.GetLanguage(),
		DefaultBranch:   r.GetDefaultBranch(),
		StargazersCount: r.GetStargazersCount(),
		ForksCount:      r.GetForksCount(),
		OpenIssuesCount: r.GetOpenIssuesCount(),
		Archived:        r.GetArchived(),
		CreatedAt:       r.GetCreatedAt().Time,
		UpdatedAt:       r.GetUpdatedAt().Time,
	}
	if r.PushedAt != nil {
		pushedAt := r.PushedAt.Time
		snapshot.PushedAt = &pushedAt
	}
	return snapshot, nil
}

// ListWorkflows retrieves the GitHub Actions workflows of a repository
func (c *githubCollector) ListWorkflows(ctx context.Context, owner, repo string) ([]*domain.Workflow, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	workflows, resp, err := c.client.Actions.ListWorkflows(ctx, owner, repo, &github.ListOptions{PerPage: perPage})
	c.updateRateLimitFromResponse(resp)
	if err != nil {
		return nil, upstreamError(fmt.Sprintf("failed to list workflows for %s/%s", owner, repo), err)
	}

	result := make([]*domain.Workflow, 0, len(workflows.Workflows))
	for _, w := range workflows.Workflows {
		result = append(result, &domain.Workflow{
			ID:    w.GetID(),
			Name:  w.GetName(),
			Path:  w.GetPath(),
			State: w.GetState(),
		})
	}
	return result, nil
}

// ListWorkflowRuns retrieves the most recent runs of a workflow on a branch
func (c *githubCollector) ListWorkflowRuns(ctx context.Context, owner, repo string, workflowID int64, branch string) ([]*domain.WorkflowRun, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	opts := &github.ListWorkflowRunsOptions{
		Branch:      branch,
		ListOptions: github.ListOptions{PerPage: perPage},
	}
	runs, resp, err := c.client.Actions.ListWorkflowRunsByID(ctx, owner, repo, workflowID, opts)
	c.updateRateLimitFromResponse(resp)
	if err != nil {
		return nil, upstreamError(fmt.Sprintf("failed to list workflow runs for %s/%s", owner, repo), err)
	}

	result := make([]*domain.WorkflowRun, 0, len(runs.WorkflowRuns))
	for _, run := range runs.WorkflowRuns {
		result = append(result, &domain.WorkflowRun{
			ID:         run.GetID(),
			Name:       run.GetName(),
			HeadBranch: run.GetHeadBranch(),
			Status:     run.GetStatus(),
			Conclusion: run.GetConclusion(),
			HTMLURL:    run.GetHTMLURL(),
			RunNumber:  run.GetRunNumber(),
			UpdatedAt:  run.GetUpdatedAt().Time,
		})
	}
	return result, nil
}

// ListPullRequests retrieves the open pull requests of a repository
func (c *githubCollector) ListPullRequests(ctx context.Context, owner, repo string) ([]*domain.PullRequest, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	var allPRs []*domain.PullRequest
	opts := &github.PullRequestListOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	for {
		prs, resp, err := c.client.PullRequests.List(ctx, owner, repo, opts)
		c.updateRateLimitFromResponse(resp)
		if err != nil {
			return nil, upstreamError(fmt.Sprintf("failed to list pull requests for %s/%s", owner, repo), err)
		}

		for _, pr := range prs {
			allPRs = append(allPRs, &domain.PullRequest{
				ID:      pr.GetID(),
				Number:  pr.GetNumber(),
				Title:   pr.GetTitle(),
				HTMLURL: pr.GetHTMLURL(),
				Author:  pr.GetUser().GetLogin(),
				Draft:   pr.GetDraft(),
				Created: pr.GetCreatedAt().Time,
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	return allPRs, nil
}

// GetCombinedStatus retrieves the combined commit status state of a ref
func (c *githubCollector) GetCombinedStatus(ctx context.Context, owner, repo, ref string) (string, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", err
	}

	status, resp, err := c.client.Repositories.GetCombinedStatus(ctx, owner, repo, ref, nil)
	c.updateRateLimitFromResponse(resp)
	if err != nil {
		return "", upstreamError(fmt.Sprintf("failed to get combined status for %s/%s@%s", owner, repo, ref), err)
	}

	return status.GetState(), nil
}

// ListIssues retrieves the open entries of the issues endpoint, pull requests included
func (c *githubCollector) ListIssues(ctx context.Context, owner, repo string) ([]*domain.Issue, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	var allIssues []*domain.Issue
	opts := &github.IssueListByRepoOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	for {
		issues, resp, err := c.client.Issues.ListByRepo(ctx, owner, repo, opts)
		c.updateRateLimitFromResponse(resp)
		if err != nil {
			return nil, upstreamError(fmt.Sprintf("failed to list issues for %s/%s", owner, repo), err)
		}

		for _, issue := range issues {
			allIssues = append(allIssues, &domain.Issue{
				ID:            issue.GetID(),
				Number:        issue.GetNumber(),
				Title:         issue.GetTitle(),
				HTMLURL:       issue.GetHTMLURL(),
				Author:        issue.GetUser().GetLogin(),
				AvatarURL:     issue.GetUser().GetAvatarURL(),
				Created:       issue.GetCreatedAt().Time,
				IsPullRequest: issue.IsPullRequest(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	return allIssues, nil
}

// GetLatestCommit retrieves the newest commit of the default branch
func (c *githubCollector) GetLatestCommit(ctx context.Context, owner, repo string) (*domain.LastCommit, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	commits, resp, err := c.client.Repositories.ListCommits(ctx, owner, repo, &github.CommitsListOptions{
		ListOptions: github.ListOptions{PerPage: 1},
	})
	c.updateRateLimitFromResponse(resp)
	if err != nil {
		// Empty repositories answer 409
		if resp != nil && resp.StatusCode == http.StatusConflict {
			return &domain.LastCommit{}, nil
		}
		return nil, upstreamError(fmt.Sprintf("failed to list commits for %s/%s", owner, repo), err)
	}

	if len(commits) == 0 {
		return &domain.LastCommit{}, nil
	}

	last := &domain.LastCommit{SHA: commits[0].GetSHA()}
	if date := commits[0].GetCommit().GetAuthor().GetDate(); !date.IsZero() {
		t := date.Time
		last.Date = &t
	}
	return last, nil
}

// CountOpenVulnerabilityAlerts counts the open Dependabot alerts of a repository.
// The alerts endpoint pages with an "after" cursor instead of page numbers.
func (c *githubCollector) CountOpenVulnerabilityAlerts(ctx context.Context, owner, repo string) (int, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return 0, err
	}

	open := 0
	opts := &github.ListAlertsOptions{
		State:             github.String("open"),
		ListCursorOptions: github.ListCursorOptions{PerPage: perPage},
	}

	for {
		alerts, resp, err := c.client.Dependabot.ListRepoAlerts(ctx, owner, repo, opts)
		c.updateRateLimitFromResponse(resp)
		if err != nil {
			return 0, upstreamError(fmt.Sprintf("failed to list vulnerability alerts for %s/%s", owner, repo), err)
		}
		open += len(alerts)

		if resp.After == "" {
			break
		}
		opts.ListCursorOptions.After = resp.After

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return 0, err
		}
	}

	return open, nil
}

// updateRateLimitFromResponse updates the rate limiter from API response
func (c *githubCollector) updateRateLimitFromResponse(resp *github.Response) {
	if resp != nil && resp.Rate.Limit > 0 {
		c.rateLimiter.UpdateLimit(resp.Rate.Remaining, resp.Rate.Reset.Time)
	}
}

func toGist(g *github.Gist) *domain.Gist {
	gist := &domain.Gist{
		ID:    g.GetID(),
		Files: make(map[string]domain.GistFile, len(g.Files)),
	}
	for name, file := range g.Files {
		gist.Files[string(name)] = domain.GistFile{
			Filename: string(name),
			Content:  file.Content,
		}
	}
	return gist
}

// upstreamError wraps a go-github failure. Primary and secondary rate limit
// rejections keep their own code so callers can back off.
func upstreamError(message string, err error) *apperrors.AppError {
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		appErr := apperrors.NewRateLimitedError(message + ": GitHub rate limit exceeded")
		appErr.Err = err
		return appErr
	}
	return apperrors.NewUpstreamError(message, err)
}
