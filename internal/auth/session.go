// Package auth handles the GitHub OAuth web flow and the dashboard sessions
// it produces. Everything past this package only sees an access token.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kurihiro0119/github-project-dashboard/internal/collector"
	"github.com/kurihiro0119/github-project-dashboard/internal/domain"
	apperrors "github.com/kurihiro0119/github-project-dashboard/internal/errors"
	"github.com/kurihiro0119/github-project-dashboard/internal/storage"
)

const (
	// bearerPrefix marks session ids derived from a bearer token
	bearerPrefix = "bearer:"

	// IdleTimeout is how long in-memory state of an unused session or token
	// survives. Bearer sessions are never stored, so this is their only expiry.
	IdleTimeout = 30 * time.Minute
)

// SessionState is the in-memory state kept per session id
type SessionState interface {
	Drop(sessionID string)
	Sweep(idleSince time.Time) int
}

// Manager creates and resolves sessions
type Manager struct {
	store      storage.Storage
	collectors collector.Factory
	state      SessionState
	ttl        time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// NewManager creates a session manager. Sessions expire ttl after creation;
// state is dropped when a session ends.
func NewManager(store storage.Storage, collectors collector.Factory, state SessionState, ttl time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		store:      store,
		collectors: collectors,
		state:      state,
		ttl:        ttl,
		logger:     logger,
		now:        time.Now,
	}
}

// Create persists a new session for token and records the login of its owner
func (m *Manager) Create(ctx context.Context, token string) (*domain.Session, error) {
	user, err := m.collectors.ForToken(token).GetAuthenticatedUser(ctx)
	if err != nil {
		return nil, err
	}

	now := m.now()
	session := &domain.Session{
		ID:          uuid.New().String(),
		AccessToken: token,
		Login:       user.Login,
		CreatedAt:   now,
		ExpiresAt:   now.Add(m.ttl),
	}
	if err := m.store.SaveSession(ctx, session); err != nil {
		return nil, apperrors.NewInternalError("failed to save session", err)
	}

	m.logger.Info("session created", "login", session.Login)
	return session, nil
}

// Lookup returns the live session with id. Unknown and expired sessions are
// reported as unauthorized; expired ones are removed.
func (m *Manager) Lookup(ctx context.Context, id string) (*domain.Session, error) {
	session, err := m.store.GetSession(ctx, id)
	if apperrors.IsNotFound(err) {
		return nil, apperrors.NewUnauthorizedError("Please log in first")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load session", err)
	}

	if session.Expired(m.now()) {
		if err := m.store.DeleteSession(ctx, id); err != nil {
			m.logger.Warn("failed to delete expired session", "error", err)
		}
		m.state.Drop(id)
		return nil, apperrors.NewUnauthorizedError("session expired")
	}
	return session, nil
}

// FromBearer wraps a caller-supplied token in a transient session. The id is
// stable per token so repeated requests share one status cache.
func (m *Manager) FromBearer(token string) *domain.Session {
	sum := sha256.Sum256([]byte(token))
	return &domain.Session{
		ID:          bearerPrefix + hex.EncodeToString(sum[:]),
		AccessToken: token,
		CreatedAt:   m.now(),
	}
}

// Delete removes a session and its state
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.state.Drop(id)
	return m.store.DeleteSession(ctx, id)
}

// PurgeExpired removes every expired session with its state, then forgets
// session and token state idle for longer than IdleTimeout
func (m *Manager) PurgeExpired(ctx context.Context) (int, error) {
	now := m.now()
	ids, err := m.store.DeleteExpiredSessions(ctx, now)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		m.state.Drop(id)
	}

	idleSince := now.Add(-IdleTimeout)
	caches := m.state.Sweep(idleSince)
	tokens := m.collectors.Sweep(idleSince)

	if len(ids) > 0 || caches > 0 || tokens > 0 {
		m.logger.Debug("purged sessions", "expired", len(ids), "idle_caches", caches, "idle_tokens", tokens)
	}
	return len(ids), nil
}

// RunPurger purges expired sessions every interval until ctx is done
func (m *Manager) RunPurger(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.PurgeExpired(ctx); err != nil {
				m.logger.Warn("failed to purge sessions", "error", err)
			}
		}
	}
}
