package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kurihiro0119/github-project-dashboard/internal/domain"
)

// Client is the API client for the project dashboard server
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new API client. token is sent as a bearer token and is
// used by the server as the GitHub access token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is returned for non-2xx responses
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error: %d %s - %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error: %d - %s", e.StatusCode, e.Message)
}

// GetMe retrieves the GitHub account behind the token
func (c *Client) GetMe(ctx context.Context) (*domain.User, error) {
	var response struct {
		Data *domain.User `json:"data"`
	}
	if err := c.get(ctx, "/api/me", nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetGist retrieves the dashboard config
func (c *Client) GetGist(ctx context.Context) (*domain.GistConfig, error) {
	var response struct {
		Data *domain.GistConfig `json:"data"`
	}
	if err := c.get(ctx, "/api/github/gist", nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetRepository retrieves the snapshot of one repository
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*domain.RepositorySnapshot, error) {
	params := url.Values{}
	params.Set("owner", owner)
	params.Set("repo", repo)

	var response struct {
		Data *domain.RepositorySnapshot `json:"data"`
	}
	if err := c.get(ctx, "/api/github/repo", params, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetOverview retrieves every configured repository with the summary
func (c *Client) GetOverview(ctx context.Context) (*domain.Overview, error) {
	var response domain.Overview
	if err := c.get(ctx, "/api/github/overview", nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// GetWorkflow retrieves the latest CI run on branch
func (c *Client) GetWorkflow(ctx context.Context, owner, repo, branch string) (*domain.WorkflowRun, error) {
	params := url.Values{}
	params.Set("owner", owner)
	params.Set("repo", repo)
	params.Set("branch", branch)

	var response struct {
		Data *domain.WorkflowRun `json:"data"`
	}
	if err := c.get(ctx, "/api/github/workflow", params, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetIssues retrieves the open issues of a repository
func (c *Client) GetIssues(ctx context.Context, owner, repo string) ([]*domain.Issue, error) {
	var response struct {
		Data []*domain.Issue `json:"data"`
	}
	if err := c.get(ctx, repoPath(owner, repo, "issues"), nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetPulls retrieves the open pull requests of a repository
func (c *Client) GetPulls(ctx context.Context, owner, repo string) ([]*domain.PullRequest, error) {
	var response struct {
		Data []*domain.PullRequest `json:"data"`
	}
	if err := c.get(ctx, repoPath(owner, repo, "pulls"), nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetPullStatus retrieves the CI state of a pull request
func (c *Client) GetPullStatus(ctx context.Context, owner, repo string, number int) (*domain.PullStatus, error) {
	var response struct {
		Data *domain.PullStatus `json:"data"`
	}
	if err := c.get(ctx, repoPath(owner, repo, fmt.Sprintf("pulls/%d/status", number)), nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetLastCommit retrieves the newest commit of the default branch
func (c *Client) GetLastCommit(ctx context.Context, owner, repo string) (*domain.LastCommit, error) {
	var response struct {
		Data *domain.LastCommit `json:"data"`
	}
	if err := c.get(ctx, repoPath(owner, repo, "commits/latest"), nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetVulnerabilityAlerts retrieves the number of open Dependabot alerts
func (c *Client) GetVulnerabilityAlerts(ctx context.Context, owner, repo string) (*domain.VulnerabilityAlerts, error) {
	var response struct {
		Data *domain.VulnerabilityAlerts `json:"data"`
	}
	if err := c.get(ctx, repoPath(owner, repo, "alerts"), nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// HealthCheck checks if the API is healthy
func (c *Client) HealthCheck(ctx context.Context) error {
	var response struct {
		Status string `json:"status"`
	}
	if err := c.get(ctx, "/health", nil, &response); err != nil {
		return err
	}
	if response.Status != "ok" {
		return fmt.Errorf("unhealthy status: %s", response.Status)
	}
	return nil
}

func repoPath(owner, repo, suffix string) string {
	return fmt.Sprintf("/api/github/repos/%s/%s/%s", url.PathEscape(owner), url.PathEscape(repo), suffix)
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return err
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(body)}

		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &envelope) == nil && envelope.Error.Code != "" {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}

	return json.NewDecoder(resp.Body).Decode(result)
}
