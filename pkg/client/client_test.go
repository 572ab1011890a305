package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return NewClient(server.URL, "gho_token")
}

func TestClient_GetOverview(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/github/overview", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer gho_token", r.Header.Get("Authorization"))
		w.Write([]byte(`{
			"data": [{"full_name": "acme/widget", "name": "widget", "owner": "acme", "open_issues_count": 3}],
			"summary": {"projects": 1, "open_issues": 3},
			"threshold": {"issues": 2}
		}`))
	})

	overview, err := setupTestClient(t, mux).GetOverview(context.Background())
	require.NoError(t, err)
	require.Len(t, overview.Repositories, 1)
	assert.Equal(t, "acme/widget", overview.Repositories[0].FullName)
	assert.Equal(t, 3, overview.Summary.OpenIssues)
	require.NotNil(t, overview.Threshold)
	assert.Equal(t, 2, *overview.Threshold.Issues)
}

func TestClient_QueryAndPathParameters(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/github/workflow", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "acme", r.URL.Query().Get("owner"))
		assert.Equal(t, "widget", r.URL.Query().Get("repo"))
		assert.Equal(t, "main", r.URL.Query().Get("branch"))
		w.Write([]byte(`{"data": {"id": 1, "head_branch": "main", "conclusion": "success"}}`))
	})
	mux.HandleFunc("/api/github/repos/acme/widget/pulls/7/status", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"number": 7, "state": "pending"}}`))
	})

	c := setupTestClient(t, mux)

	run, err := c.GetWorkflow(context.Background(), "acme", "widget", "main")
	require.NoError(t, err)
	assert.Equal(t, "success", run.Conclusion)

	pullStatus, err := c.GetPullStatus(context.Background(), "acme", "widget", 7)
	require.NoError(t, err)
	assert.Equal(t, "pending", string(pullStatus.State))
}

func TestClient_ErrorEnvelope(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/github/gist", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": {"code": "NOT_FOUND", "message": "Gist of \"oss-projects.json\" not found"}}`))
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("bad gateway"))
	})

	c := setupTestClient(t, mux)

	_, err := c.GetGist(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
	assert.Contains(t, apiErr.Message, "oss-projects.json")

	err = c.HealthCheck(context.Background())
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "bad gateway", apiErr.Message)
	assert.Empty(t, apiErr.Code)
}

func TestClient_GetMe(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer gho_token", r.Header.Get("Authorization"))
		w.Write([]byte(`{"data": {"login": "octocat", "name": "The Octocat"}}`))
	})

	user, err := setupTestClient(t, mux).GetMe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "octocat", user.Login)
	assert.Equal(t, "The Octocat", user.Name)
}
