package storage

import (
	"context"
	"time"

	"github.com/kurihiro0119/github-project-dashboard/internal/domain"
)

// Storage is the abstract interface for the persistence layer
type Storage interface {
	// Session operations
	SaveSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	DeleteSession(ctx context.Context, id string) error

	// DeleteExpiredSessions removes sessions that expired before now and
	// returns their ids
	DeleteExpiredSessions(ctx context.Context, now time.Time) ([]string, error)

	// Migration
	Migrate(ctx context.Context) error

	// Connection management
	Close() error
}
