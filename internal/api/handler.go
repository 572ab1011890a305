package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kurihiro0119/github-project-dashboard/internal/aggregator"
	"github.com/kurihiro0119/github-project-dashboard/internal/domain"
	apperrors "github.com/kurihiro0119/github-project-dashboard/internal/errors"
	"github.com/kurihiro0119/github-project-dashboard/internal/gist"
	"github.com/kurihiro0119/github-project-dashboard/internal/status"
)

// Handler handles dashboard API requests
type Handler struct {
	aggregator aggregator.Aggregator
	config     *gist.Resolver
	status     *status.Resolver
	caches     *status.Registry
	logger     *slog.Logger
}

// NewHandler creates a new API handler
func NewHandler(agg aggregator.Aggregator, config *gist.Resolver, statusResolver *status.Resolver, caches *status.Registry, logger *slog.Logger) *Handler {
	return &Handler{
		aggregator: agg,
		config:     config,
		status:     statusResolver,
		caches:     caches,
		logger:     logger,
	}
}

type repoQuery struct {
	Owner string `form:"owner" binding:"required"`
	Repo  string `form:"repo" binding:"required"`
}

type workflowQuery struct {
	Owner  string `form:"owner" binding:"required"`
	Repo   string `form:"repo" binding:"required"`
	Branch string `form:"branch" binding:"required"`
}

// GetGist returns the dashboard config of the caller
// GET /api/github/gist
func (h *Handler) GetGist(c *gin.Context) {
	session := sessionFrom(c)

	cfg, err := h.config.Resolve(c.Request.Context(), session.AccessToken)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": cfg,
	})
}

// GetRepository returns the snapshot of one repository
// GET /api/github/repo?owner=&repo=
func (h *Handler) GetRepository(c *gin.Context) {
	var q repoQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, apperrors.NewBadRequestError("Please provide owner and repo values"))
		return
	}
	session := sessionFrom(c)

	snapshot, err := h.aggregator.GetRepository(c.Request.Context(), session.AccessToken, domain.ProjectReference{Owner: q.Owner, Repo: q.Repo})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": snapshot,
	})
}

// GetOverview returns every configured repository with the headline summary.
// Loading the overview starts a new page state for the caller's cells.
// GET /api/github/overview
func (h *Handler) GetOverview(c *gin.Context) {
	session := sessionFrom(c)
	h.caches.Reset(session.ID)

	cfg, snapshots, err := h.aggregator.Overview(c.Request.Context(), session.AccessToken)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, domain.Overview{
		Repositories: snapshots,
		Summary:      aggregator.Summarize(snapshots),
		Threshold:    cfg.Threshold,
	})
}

// GetWorkflow returns the latest CI run on a branch
// GET /api/github/workflow?owner=&repo=&branch=
func (h *Handler) GetWorkflow(c *gin.Context) {
	var q workflowQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, apperrors.NewBadRequestError("Please provide owner, repo and branch values"))
		return
	}
	session := sessionFrom(c)

	run, err := h.status.Workflow(c.Request.Context(), h.caches.For(session.ID), session.AccessToken, q.Owner, q.Repo, q.Branch)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": run,
	})
}

// GetIssues returns the open issues of a repository
// GET /api/github/repos/:owner/:repo/issues
func (h *Handler) GetIssues(c *gin.Context) {
	session := sessionFrom(c)

	issues, err := h.status.Issues(c.Request.Context(), h.caches.For(session.ID), session.AccessToken, c.Param("owner"), c.Param("repo"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": issues,
	})
}

// GetPulls returns the open pull requests of a repository
// GET /api/github/repos/:owner/:repo/pulls
func (h *Handler) GetPulls(c *gin.Context) {
	session := sessionFrom(c)

	pulls, err := h.status.Pulls(c.Request.Context(), h.caches.For(session.ID), session.AccessToken, c.Param("owner"), c.Param("repo"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": pulls,
	})
}

// GetPullStatus returns the CI state of a pull request
// GET /api/github/repos/:owner/:repo/pulls/:number/status
func (h *Handler) GetPullStatus(c *gin.Context) {
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil || number <= 0 {
		respondError(c, apperrors.NewBadRequestError("pull request number must be a positive integer"))
		return
	}
	session := sessionFrom(c)

	pullStatus, err := h.status.PullStatus(c.Request.Context(), h.caches.For(session.ID), session.AccessToken, c.Param("owner"), c.Param("repo"), number)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": pullStatus,
	})
}

// GetLastCommit returns the newest commit of the default branch
// GET /api/github/repos/:owner/:repo/commits/latest
func (h *Handler) GetLastCommit(c *gin.Context) {
	session := sessionFrom(c)

	commit, err := h.status.LastCommit(c.Request.Context(), h.caches.For(session.ID), session.AccessToken, c.Param("owner"), c.Param("repo"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": commit,
	})
}

// GetVulnerabilityAlerts returns the number of open Dependabot alerts
// GET /api/github/repos/:owner/:repo/alerts
func (h *Handler) GetVulnerabilityAlerts(c *gin.Context) {
	session := sessionFrom(c)

	alerts, err := h.status.VulnerabilityAlerts(c.Request.Context(), h.caches.For(session.ID), session.AccessToken, c.Param("owner"), c.Param("repo"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": alerts,
	})
}

type cellState struct {
	State domain.QueryState `json:"state"`
	Error string            `json:"error,omitempty"`
}

// GetCellStates reports the query state of every cell the caller has
// requested since loading the overview. Cells never requested are omitted.
// Pull request states are included for the numbers listed in ?numbers=1,2
// and are reported under the endpoint name suffixed with #number.
// GET /api/github/repos/:owner/:repo/cells?branch=&numbers=
func (h *Handler) GetCellStates(c *gin.Context) {
	numbers, err := parseNumbers(c.Query("numbers"))
	if err != nil {
		respondError(c, err)
		return
	}
	session := sessionFrom(c)
	cache := h.caches.For(session.ID)
	owner, repo := c.Param("owner"), c.Param("repo")

	keys := []status.Key{
		{Endpoint: status.EndpointIssues, Owner: owner, Repo: repo},
		{Endpoint: status.EndpointPulls, Owner: owner, Repo: repo},
		{Endpoint: status.EndpointLastCommit, Owner: owner, Repo: repo},
		{Endpoint: status.EndpointAlerts, Owner: owner, Repo: repo},
	}
	if branch := c.Query("branch"); branch != "" {
		keys = append(keys, status.Key{Endpoint: status.EndpointWorkflow, Owner: owner, Repo: repo, Branch: branch})
	}
	for _, n := range numbers {
		keys = append(keys, status.Key{Endpoint: status.EndpointPullStatus, Owner: owner, Repo: repo, Number: n})
	}

	states := make(map[string]cellState, len(keys))
	for _, key := range keys {
		r, ok := cache.Peek(key)
		if !ok {
			continue
		}
		s := cellState{State: r.State}
		if r.Err != nil {
			s.Error = messageOf(r.Err)
		}
		name := string(key.Endpoint)
		if key.Number != 0 {
			name += "#" + strconv.Itoa(key.Number)
		}
		states[name] = s
	}

	c.JSON(http.StatusOK, gin.H{
		"data": states,
	})
}

// parseNumbers parses a comma separated list of pull request numbers
func parseNumbers(raw string) ([]int, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	numbers := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n <= 0 {
			return nil, apperrors.NewBadRequestError("numbers must be a comma separated list of positive integers")
		}
		numbers = append(numbers, n)
	}
	return numbers, nil
}

// HealthCheck returns the health status of the API
// GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// statusOf maps an error code to an HTTP status
func statusOf(code apperrors.ErrCode) int {
	switch code {
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrCodeBadRequest:
		return http.StatusBadRequest
	case apperrors.ErrCodeValidation, apperrors.ErrCodeEmptyContent:
		return http.StatusUnprocessableEntity
	case apperrors.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func messageOf(err error) string {
	if appErr, ok := apperrors.As(err); ok {
		return appErr.Message
	}
	return err.Error()
}

// respondError sends an error response
func respondError(c *gin.Context, err error) {
	if appErr, ok := apperrors.As(err); ok {
		c.JSON(statusOf(appErr.Code), gin.H{
			"error": gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error": gin.H{
			"code":    apperrors.ErrCodeInternal,
			"message": err.Error(),
		},
	})
}
