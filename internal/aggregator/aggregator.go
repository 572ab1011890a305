package aggregator

import (
	"context"
	"log/slog"
	"time"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"github.com/kurihiro0119/github-project-dashboard/internal/collector"
	"github.com/kurihiro0119/github-project-dashboard/internal/domain"
	"github.com/kurihiro0119/github-project-dashboard/internal/gist"
)

// Aggregator defines the interface for building the dashboard overview
type Aggregator interface {
	// GetRepository retrieves the snapshot of a single repository
	GetRepository(ctx context.Context, token string, ref domain.ProjectReference) (*domain.RepositorySnapshot, error)

	// Aggregate fetches a snapshot for every configured project, in config order
	Aggregate(ctx context.Context, token string, cfg *domain.GistConfig) ([]*domain.RepositorySnapshot, error)

	// Overview resolves the config and aggregates its projects
	Overview(ctx context.Context, token string) (*domain.GistConfig, []*domain.RepositorySnapshot, error)
}

// aggregator implements the Aggregator interface
type aggregator struct {
	collectors collector.Factory
	resolver   *gist.Resolver
	logger     *slog.Logger
}

// NewAggregator creates a new aggregator
func NewAggregator(collectors collector.Factory, resolver *gist.Resolver, logger *slog.Logger) Aggregator {
	return &aggregator{
		collectors: collectors,
		resolver:   resolver,
		logger:     logger,
	}
}

// GetRepository retrieves the snapshot of a single repository
func (a *aggregator) GetRepository(ctx context.Context, token string, ref domain.ProjectReference) (*domain.RepositorySnapshot, error) {
	return a.collectors.ForToken(token).GetRepository(ctx, ref.Owner, ref.Repo)
}

// Aggregate fetches all projects concurrently. The first failure cancels the
// remaining requests and is returned alone.
func (a *aggregator) Aggregate(ctx context.Context, token string, cfg *domain.GistConfig) ([]*domain.RepositorySnapshot, error) {
	c := a.collectors.ForToken(token)
	results := make([]*domain.RepositorySnapshot, len(cfg.Projects))

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range cfg.Projects {
		i, p := i, p
		g.Go(func() error {
			snapshot, err := c.GetRepository(gctx, p.Owner, p.Repo)
			if err != nil {
				a.logger.Warn("failed to fetch repository", "project", p.String(), "error", err)
				return err
			}
			results[i] = snapshot
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	a.logger.Debug("aggregated overview", "projects", len(results), "elapsed", time.Since(start))
	return results, nil
}

// Overview resolves the config and aggregates its projects. No repository is
// fetched when the config cannot be resolved.
func (a *aggregator) Overview(ctx context.Context, token string) (*domain.GistConfig, []*domain.RepositorySnapshot, error) {
	cfg, err := a.resolver.Resolve(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	snapshots, err := a.Aggregate(ctx, token, cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, snapshots, nil
}

// Summarize computes the headline numbers of an overview
func Summarize(snapshots []*domain.RepositorySnapshot) domain.Summary {
	summary := domain.Summary{Projects: len(snapshots)}
	if len(snapshots) == 0 {
		return summary
	}

	stars := make(stats.Float64Data, 0, len(snapshots))
	forks := make(stats.Float64Data, 0, len(snapshots))
	for _, s := range snapshots {
		summary.OpenIssues += s.OpenIssuesCount
		stars = append(stars, float64(s.StargazersCount))
		forks = append(forks, float64(s.ForksCount))

		updated := s.UpdatedAt
		if summary.OldestUpdate == nil || updated.Before(*summary.OldestUpdate) {
			summary.OldestUpdate = &updated
		}
	}

	// stats only errors on empty input, which is excluded above
	totalStars, _ := stats.Sum(stars)
	totalForks, _ := stats.Sum(forks)
	median, _ := stats.Median(stars)

	summary.TotalStars = int(totalStars)
	summary.TotalForks = int(totalForks)
	summary.MedianStars = median
	return summary
}
