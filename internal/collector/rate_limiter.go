package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/kurihiro0119/github-project-dashboard/internal/errors"
)

const (
	defaultRateLimit = 5000 // GitHub API default limit per hour
	lowWatermark     = 10
)

// RateLimiter manages GitHub API rate limiting
type RateLimiter interface {
	Wait(ctx context.Context) error
	UpdateLimit(remaining int, resetTime time.Time)
}

// githubRateLimiter implements RateLimiter for GitHub API
type githubRateLimiter struct {
	mu        sync.Mutex
	remaining int
	resetTime time.Time
	minDelay  time.Duration
	maxWait   time.Duration
	lastCall  time.Time
}

// NewRateLimiter creates a new rate limiter. Calls are spaced by at least
// minDelay; when the budget is exhausted and the reset is further away than
// maxWait, Wait fails with a rate limited error instead of blocking.
func NewRateLimiter(minDelay, maxWait time.Duration) RateLimiter {
	return &githubRateLimiter{
		remaining: defaultRateLimit,
		resetTime: time.Now().Add(time.Hour),
		minDelay:  minDelay,
		maxWait:   maxWait,
	}
}

// Wait waits until it's safe to make another API call
func (r *githubRateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()

	if r.remaining <= lowWatermark {
		waitDuration := time.Until(r.resetTime)
		if waitDuration > r.maxWait {
			r.mu.Unlock()
			return apperrors.NewRateLimitedError(fmt.Sprintf(
				"GitHub rate limit low (%d remaining), resets in %v", r.remaining, waitDuration.Round(time.Second)))
		}
		if waitDuration > 0 {
			r.mu.Unlock()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(waitDuration):
			}
			r.mu.Lock()
		}
		// Reset after waiting
		r.remaining = defaultRateLimit
		r.resetTime = time.Now().Add(time.Hour)
	}

	// Ensure minimum delay between requests
	if elapsed := time.Since(r.lastCall); elapsed < r.minDelay {
		r.mu.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.minDelay - elapsed):
		}
		r.mu.Lock()
	}

	r.lastCall = time.Now()
	r.mu.Unlock()
	return nil
}

// UpdateLimit updates the rate limit from API response headers
func (r *githubRateLimiter) UpdateLimit(remaining int, resetTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remaining = remaining
	r.resetTime = resetTime
}
