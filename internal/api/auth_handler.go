package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kurihiro0119/github-project-dashboard/internal/auth"
	"github.com/kurihiro0119/github-project-dashboard/internal/collector"
	apperrors "github.com/kurihiro0119/github-project-dashboard/internal/errors"
)

const stateCookie = "dashboard_oauth_state"

// CookieOptions controls the session cookie
type CookieOptions struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// AuthHandler handles the OAuth flow and session endpoints
type AuthHandler struct {
	sessions   *auth.Manager
	oauth      *auth.OAuth
	collectors collector.Factory
	cookie     CookieOptions
	logger     *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(sessions *auth.Manager, oauth *auth.OAuth, collectors collector.Factory, cookie CookieOptions, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		sessions:   sessions,
		oauth:      oauth,
		collectors: collectors,
		cookie:     cookie,
		logger:     logger,
	}
}

// Login redirects to GitHub
// GET /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	state, err := auth.NewState()
	if err != nil {
		respondError(c, apperrors.NewInternalError("failed to create state", err))
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, int((10 * time.Minute).Seconds()), "/", "", h.cookie.Secure, true)
	c.Redirect(http.StatusFound, h.oauth.AuthCodeURL(state))
}

// Callback completes the OAuth flow and starts a session
// GET /auth/callback
func (h *AuthHandler) Callback(c *gin.Context) {
	expected, err := c.Cookie(stateCookie)
	if err != nil || expected == "" || c.Query("state") != expected {
		respondError(c, apperrors.NewBadRequestError("invalid OAuth state"))
		return
	}
	c.SetCookie(stateCookie, "", -1, "/", "", h.cookie.Secure, true)

	token, err := h.oauth.Exchange(c.Request.Context(), c.Query("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	session, err := h.sessions.Create(c.Request.Context(), token)
	if err != nil {
		respondError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, session.ID, int(h.cookie.TTL.Seconds()), "/", "", h.cookie.Secure, true)
	c.Redirect(http.StatusFound, "/")
}

// Logout ends the current session
// POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if id, err := c.Cookie(h.cookie.Name); err == nil && id != "" {
		if err := h.sessions.Delete(c.Request.Context(), id); err != nil {
			h.logger.Warn("failed to delete session", "error", err)
		}
	}

	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
	c.Status(http.StatusNoContent)
}

// Me returns the GitHub account of the caller
// GET /api/me
func (h *AuthHandler) Me(c *gin.Context) {
	session := sessionFrom(c)

	user, err := h.collectors.ForToken(session.AccessToken).GetAuthenticatedUser(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": user,
	})
}
