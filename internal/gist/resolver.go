// Package gist loads the dashboard config from a file stored in one of the
// user's gists.
package gist

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kurihiro0119/github-project-dashboard/internal/collector"
	"github.com/kurihiro0119/github-project-dashboard/internal/domain"
	apperrors "github.com/kurihiro0119/github-project-dashboard/internal/errors"
)

// Resolver locates and parses the config file
type Resolver struct {
	collectors collector.Factory
	filename   string
	logger     *slog.Logger
}

// NewResolver creates a resolver looking for filename among the user's gists
func NewResolver(collectors collector.Factory, filename string, logger *slog.Logger) *Resolver {
	return &Resolver{
		collectors: collectors,
		filename:   filename,
		logger:     logger,
	}
}

// Resolve fetches the config of the user owning token. It performs no retries.
func (r *Resolver) Resolve(ctx context.Context, token string) (*domain.GistConfig, error) {
	c := r.collectors.ForToken(token)

	gists, err := c.ListGists(ctx)
	if err != nil {
		return nil, err
	}

	var match *domain.Gist
	for _, g := range gists {
		if g.HasFile(r.filename) {
			match = g
			break
		}
	}
	if match == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("Gist of %q", r.filename))
	}

	full, err := c.GetGist(ctx, match.ID)
	if err != nil {
		return nil, err
	}

	file, ok := full.Files[r.filename]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("File Gist of %q", r.filename))
	}
	if file.Content == nil || *file.Content == "" {
		return nil, apperrors.NewEmptyContentError("No content present in Gist")
	}

	cfg, err := Parse([]byte(*file.Content))
	if err != nil {
		return nil, err
	}

	r.logger.Debug("resolved dashboard config", "gist", match.ID, "projects", len(cfg.Projects))
	return cfg, nil
}
