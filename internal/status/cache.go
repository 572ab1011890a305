// Package status resolves the lazily loaded cells of the dashboard table.
// Every query is keyed and deduplicated so that one page load performs at
// most one upstream call per key.
package status

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kurihiro0119/github-project-dashboard/internal/domain"
)

// Endpoint names the upstream route a query reads
type Endpoint string

const (
	EndpointWorkflow   Endpoint = "GET /repos/{owner}/{repo}/actions/workflows"
	EndpointPulls      Endpoint = "GET /repos/{owner}/{repo}/pulls"
	EndpointPullStatus Endpoint = "GET /repos/{owner}/{repo}/commits/{ref}/status"
	EndpointIssues     Endpoint = "GET /repos/{owner}/{repo}/issues"
	EndpointLastCommit Endpoint = "GET /repos/{owner}/{repo}/commits"
	EndpointAlerts     Endpoint = "GET /repos/{owner}/{repo}/dependabot/alerts"
)

// Key identifies one cell query
type Key struct {
	Endpoint Endpoint
	Owner    string
	Repo     string
	Number   int
	Branch   string
}

func (k Key) String() string {
	s := fmt.Sprintf("%s %s/%s", k.Endpoint, k.Owner, k.Repo)
	if k.Number != 0 {
		s += fmt.Sprintf("#%d", k.Number)
	}
	if k.Branch != "" {
		s += "@" + k.Branch
	}
	return s
}

// flightName encodes key without ambiguity; the quoted fields cannot run
// into each other the way String's separators can.
func flightName(gen uint64, k Key) string {
	return fmt.Sprintf("%d|%q|%q|%q|%d|%q", gen, k.Endpoint, k.Owner, k.Repo, k.Number, k.Branch)
}

// Result is the observable state of one query
type Result struct {
	State domain.QueryState
	Value any
	Err   error
}

// Cache holds the in-flight and settled queries of one page state.
// A key moves from loading to error or success once and stays there until
// Reset.
type Cache struct {
	group singleflight.Group

	mu         sync.Mutex
	settled    map[Key]Result
	inflight   map[Key]struct{}
	generation uint64
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{
		settled:  make(map[Key]Result),
		inflight: make(map[Key]struct{}),
	}
}

// Do returns the settled outcome of key, joins the call in flight for key,
// or starts fn. Callers that join share the outcome of the first caller.
// fn runs detached from the caller's cancellation so a departing caller does
// not fail the others.
func (c *Cache) Do(ctx context.Context, key Key, fn func(context.Context) (any, error)) (any, error) {
	c.mu.Lock()
	if r, ok := c.settled[key]; ok {
		c.mu.Unlock()
		return r.Value, r.Err
	}
	c.inflight[key] = struct{}{}
	gen := c.generation
	c.mu.Unlock()

	v, err, _ := c.group.Do(flightName(gen, key), func() (any, error) {
		c.mu.Lock()
		if r, ok := c.settled[key]; ok && c.generation == gen {
			c.mu.Unlock()
			return r.Value, r.Err
		}
		c.mu.Unlock()

		v, err := fn(context.WithoutCancel(ctx))

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.generation == gen {
			delete(c.inflight, key)
			if err != nil {
				c.settled[key] = Result{State: domain.QueryStateError, Err: err}
			} else {
				c.settled[key] = Result{State: domain.QueryStateSuccess, Value: v}
			}
		}
		return v, err
	})
	return v, err
}

// Peek reports the state of key. ok is false when key was never requested
// since the last reset.
func (c *Cache) Peek(key Key) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r, ok := c.settled[key]; ok {
		return r, true
	}
	if _, ok := c.inflight[key]; ok {
		return Result{State: domain.QueryStateLoading}, true
	}
	return Result{}, false
}

// Reset discards every query. Calls still in flight complete for their
// current callers but their outcomes are not recorded.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.settled = make(map[Key]Result)
	c.inflight = make(map[Key]struct{})
}

// Len returns the number of known keys
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.settled) + len(c.inflight)
}

func get[T any](ctx context.Context, c *Cache, key Key, fn func(context.Context) (T, error)) (T, error) {
	v, err := c.Do(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Registry holds one cache per session
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
	now     func() time.Time
}

type registryEntry struct {
	cache    *Cache
	lastUsed time.Time
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*registryEntry),
		now:     time.Now,
	}
}

// For returns the cache of a session, creating it on first use
func (r *Registry) For(sessionID string) *Cache {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[sessionID]
	if !ok {
		e = &registryEntry{cache: NewCache()}
		r.entries[sessionID] = e
	}
	e.lastUsed = r.now()
	return e.cache
}

// Reset clears the cache of a session
func (r *Registry) Reset(sessionID string) {
	r.For(sessionID).Reset()
}

// Drop forgets a session entirely
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, sessionID)
}

// Sweep drops the caches of sessions not used since idleSince and reports
// how many were dropped
func (r *Registry) Sweep(idleSince time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, e := range r.entries {
		if e.lastUsed.Before(idleSince) {
			delete(r.entries, id)
			n++
		}
	}
	return n
}

// Len returns the number of sessions with a cache
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
