package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kurihiro0119/github-project-dashboard/internal/errors"
	"github.com/kurihiro0119/github-project-dashboard/internal/logging"
)

// setupTestCollector creates a collector that talks to a mock GitHub API server.
func setupTestCollector(t *testing.T, mux *http.ServeMux) Collector {
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	factory, err := NewFactory(server.URL, logging.Discard())
	require.NoError(t, err)
	return factory.ForToken("test-token")
}

func TestGitHubCollector_SendsBearerToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"login":"octocat","name":"The Octocat","avatar_url":"https://avatars/octocat"}`)
	})
	c := setupTestCollector(t, mux)

	user, err := c.GetAuthenticatedUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "octocat", user.Login)
	assert.Equal(t, "The Octocat", user.Name)
}

func TestGitHubCollector_ListGistsFollowsPages(t *testing.T) {
	var serverURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/gists", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"id":"g2","files":{"oss-projects.json":{"filename":"oss-projects.json"}}}]`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/gists?page=2>; rel="next"`, serverURL))
		fmt.Fprint(w, `[{"id":"g1","files":{"notes.md":{"filename":"notes.md"}}}]`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()
	serverURL = server.URL

	factory, err := NewFactory(server.URL, logging.Discard())
	require.NoError(t, err)

	gists, err := factory.ForToken("t").ListGists(context.Background())
	require.NoError(t, err)
	require.Len(t, gists, 2)
	assert.Equal(t, "g1", gists[0].ID)
	assert.True(t, gists[1].HasFile("oss-projects.json"))
	assert.Nil(t, gists[1].Files["oss-projects.json"].Content)
}

func TestGitHubCollector_GetGist(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/gists/g1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"g1","files":{"oss-projects.json":{"filename":"oss-projects.json","content":"{\"projects\":[]}"}}}`)
	})
	c := setupTestCollector(t, mux)

	gist, err := c.GetGist(context.Background(), "g1")
	require.NoError(t, err)
	require.NotNil(t, gist.Files["oss-projects.json"].Content)
	assert.Equal(t, `{"projects":[]}`, *gist.Files["oss-projects.json"].Content)
}

func TestGitHubCollector_GetRepository(t *testing.T) {
	testCases := []struct {
		name        string
		handler     http.HandlerFunc
		expectError bool
	}{
		{
			name: "happy path",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{
					"id": 42, "name": "widget", "full_name": "acme/widget",
					"owner": {"login": "acme"}, "html_url": "https://github.com/acme/widget",
					"homepage": "https://widget.dev", "default_branch": "main",
					"stargazers_count": 10, "forks_count": 3, "open_issues_count": 2,
					"updated_at": "2024-01-02T03:04:05Z", "pushed_at": "2024-01-01T00:00:00Z"
				}`)
			},
		},
		{
			name: "error case - repository not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"message": "Not Found"}`)
			},
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/repos/acme/widget", tc.handler)
			c := setupTestCollector(t, mux)

			repo, err := c.GetRepository(context.Background(), "acme", "widget")
			if tc.expectError {
				require.Error(t, err)
				assert.True(t, apperrors.IsUpstream(err))
				assert.Contains(t, err.Error(), "failed to get repository acme/widget")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(42), repo.ID)
			assert.Equal(t, "widget", repo.Name)
			assert.Equal(t, "acme", repo.Owner)
			assert.Equal(t, 10, repo.StargazersCount)
			assert.Equal(t, 3, repo.ForksCount)
			assert.Equal(t, 2, repo.OpenIssuesCount)
			assert.Equal(t, "main", repo.DefaultBranch)
			require.NotNil(t, repo.PushedAt)
			assert.Equal(t, 2024, repo.UpdatedAt.Year())
		})
	}
}

func TestGitHubCollector_ListIssuesMarksPullRequests(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widget/issues", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "open", r.URL.Query().Get("state"))
		fmt.Fprint(w, `[
			{"id": 1, "number": 1, "title": "bug", "user": {"login": "alice"}},
			{"id": 2, "number": 2, "title": "fix", "pull_request": {"url": "https://api.github.com/repos/acme/widget/pulls/2"}}
		]`)
	})
	c := setupTestCollector(t, mux)

	issues, err := c.ListIssues(context.Background(), "acme", "widget")
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.False(t, issues[0].IsPullRequest)
	assert.Equal(t, "alice", issues[0].Author)
	assert.True(t, issues[1].IsPullRequest)
}

func TestGitHubCollector_GetCombinedStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widget/commits/refs/pull/7/head/status", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"state": "pending"}`)
	})
	c := setupTestCollector(t, mux)

	state, err := c.GetCombinedStatus(context.Background(), "acme", "widget", "refs/pull/7/head")
	require.NoError(t, err)
	assert.Equal(t, "pending", state)
}

func TestGitHubCollector_Workflows(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widget/actions/workflows", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"total_count": 2, "workflows": [{"id": 1, "name": "release"}, {"id": 2, "name": "ci"}]}`)
	})
	mux.HandleFunc("/repos/acme/widget/actions/workflows/2/runs", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "main", r.URL.Query().Get("branch"))
		fmt.Fprint(w, `{"total_count": 1, "workflow_runs": [{"id": 9, "head_branch": "main", "status": "completed", "conclusion": "success", "html_url": "https://ci"}]}`)
	})
	c := setupTestCollector(t, mux)

	workflows, err := c.ListWorkflows(context.Background(), "acme", "widget")
	require.NoError(t, err)
	require.Len(t, workflows, 2)
	assert.Equal(t, "ci", workflows[1].Name)

	runs, err := c.ListWorkflowRuns(context.Background(), "acme", "widget", 2, "main")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "success", runs[0].Conclusion)
}

func TestGitHubCollector_GetLatestCommit(t *testing.T) {
	testCases := []struct {
		name       string
		status     int
		body       string
		expectDate bool
	}{
		{
			name:       "has commits",
			status:     http.StatusOK,
			body:       `[{"sha": "abc", "commit": {"author": {"date": "2024-05-06T07:08:09Z"}}}]`,
			expectDate: true,
		},
		{
			name:   "empty repository",
			status: http.StatusConflict,
			body:   `{"message": "Git Repository is empty."}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/repos/acme/widget/commits", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			})
			c := setupTestCollector(t, mux)

			last, err := c.GetLatestCommit(context.Background(), "acme", "widget")
			require.NoError(t, err)
			if tc.expectDate {
				require.NotNil(t, last.Date)
				assert.Equal(t, "abc", last.SHA)
			} else {
				assert.Nil(t, last.Date)
			}
		})
	}
}

func TestGitHubCollector_CountOpenVulnerabilityAlerts(t *testing.T) {
	testCases := []struct {
		name     string
		pages    map[string]string
		expected int
		requests int
	}{
		{
			name:     "single page",
			pages:    map[string]string{"": `[{"number": 1, "state": "open"}, {"number": 3, "state": "open"}]`},
			expected: 2,
			requests: 1,
		},
		{
			name: "follows the after cursor",
			pages: map[string]string{
				"":        `[{"number": 1, "state": "open"}, {"number": 2, "state": "open"}]`,
				"cursor2": `[{"number": 5, "state": "open"}]`,
			},
			expected: 3,
			requests: 2,
		},
		{
			name:     "no alerts",
			pages:    map[string]string{"": `[]`},
			expected: 0,
			requests: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			requests := 0
			var server *httptest.Server
			mux := http.NewServeMux()
			mux.HandleFunc("/repos/acme/widget/dependabot/alerts", func(w http.ResponseWriter, r *http.Request) {
				requests++
				assert.Equal(t, "open", r.URL.Query().Get("state"))
				assert.Empty(t, r.URL.Query().Get("page"))

				after := r.URL.Query().Get("after")
				if after == "" {
					if _, ok := tc.pages["cursor2"]; ok {
						w.Header().Set("Link", fmt.Sprintf(`<%s/repos/acme/widget/dependabot/alerts?after=cursor2&per_page=100&state=open>; rel="next"`, server.URL))
					}
				}
				fmt.Fprint(w, tc.pages[after])
			})
			server = httptest.NewServer(mux)
			t.Cleanup(server.Close)

			factory, err := NewFactory(server.URL, logging.Discard())
			require.NoError(t, err)

			count, err := factory.ForToken("test-token").CountOpenVulnerabilityAlerts(context.Background(), "acme", "widget")
			require.NoError(t, err)
			assert.Equal(t, tc.expected, count)
			assert.Equal(t, tc.requests, requests)
		})
	}
}

func TestGitHubCollector_PrimaryRateLimitIsRateLimited(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widget", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Limit", "5000")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", fmt.Sprint(time.Now().Add(time.Hour).Unix()))
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message": "API rate limit exceeded"}`)
	})
	c := setupTestCollector(t, mux)

	_, err := c.GetRepository(context.Background(), "acme", "widget")
	require.Error(t, err)
	assert.True(t, apperrors.IsRateLimited(err))
	assert.False(t, apperrors.IsUpstream(err))
}

const secondaryLimitBody = `{"message": "You have exceeded a secondary rate limit. Please wait a few minutes before you try again.", "documentation_url": "https://docs.github.com/en/rest/overview/resources-in-the-rest-api#secondary-rate-limits"}`

func TestGitHubCollector_SecondaryRateLimitIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widget", func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, secondaryLimitBody)
			return
		}
		fmt.Fprint(w, `{"id": 42, "name": "widget", "owner": {"login": "acme"}}`)
	})
	c := setupTestCollector(t, mux)

	start := time.Now()
	_, err := c.GetRepository(context.Background(), "acme", "widget")
	require.Error(t, err)
	assert.True(t, apperrors.IsRateLimited(err))
	assert.Equal(t, int32(1), hits.Load(), "a rate limited request is reported, not repeated")
	assert.Less(t, time.Since(start), time.Second)
}

func TestGitHubCollector_SecondaryRateLimitIsPerToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer limited" {
			w.Header().Set("Retry-After", "5")
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, secondaryLimitBody)
			return
		}
		fmt.Fprint(w, `{"login": "octocat"}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	factory, err := NewFactory(server.URL, logging.Discard())
	require.NoError(t, err)

	_, err = factory.ForToken("limited").GetAuthenticatedUser(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsRateLimited(err))

	start := time.Now()
	user, err := factory.ForToken("other").GetAuthenticatedUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "octocat", user.Login)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGitHubFactory_SweepForgetsIdleTokens(t *testing.T) {
	factory, err := NewFactory("", logging.Discard())
	require.NoError(t, err)
	f := factory.(*githubFactory)

	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	f.now = func() time.Time { return start }
	f.ForToken("gho_idle")
	f.now = func() time.Time { return start.Add(time.Hour) }
	f.ForToken("gho_active")

	for key := range f.tokens {
		assert.NotContains(t, key, "gho_", "tokens are kept as hashes")
	}

	assert.Equal(t, 1, f.Sweep(start.Add(30*time.Minute)))
	assert.Len(t, f.tokens, 1)
	assert.Equal(t, 0, f.Sweep(start.Add(30*time.Minute)))
	assert.Equal(t, 1, f.Sweep(start.Add(2*time.Hour)))
	assert.Empty(t, f.tokens)
}
