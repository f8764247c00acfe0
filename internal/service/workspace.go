package service

import (
	"context"
	"sync"
	"time"

	"exchange-analytics-dashboard/internal/filter"
	"exchange-analytics-dashboard/internal/logger"
	"exchange-analytics-dashboard/internal/metrics"
	"exchange-analytics-dashboard/internal/model"
	"exchange-analytics-dashboard/internal/repository"
)

// WorkspaceOptions tunes the components of every workspace.
type WorkspaceOptions struct {
	SearchDelay     time.Duration
	SearchMinLength int
	WeekStart       time.Weekday
	// Now supplies the current time in the dashboard's timezone.
	Now func() time.Time
	// IdleTimeout is how long an untouched workspace is kept. Zero keeps
	// workspaces until logout.
	IdleTimeout time.Duration
}

// Workspace is the dashboard state of one browser session.
type Workspace struct {
	ID      string
	Filters *filter.State
	Search  *EntitySearch
	Fetcher *AnalyticsFetcher

	mu          sync.Mutex
	credentials string
	lastSeen    time.Time
}

func newWorkspace(id string, repo repository.AnalyticsRepository, opts WorkspaceOptions, log *logger.Logger, m *metrics.Upstream) *Workspace {
	w := &Workspace{ID: id}
	backend := credentialedBackend{workspace: w, repo: repo}

	w.Filters = filter.New(opts.WeekStart, opts.Now)
	w.Search = NewEntitySearch(backend, opts.SearchDelay, opts.SearchMinLength, log, m)
	w.Fetcher = NewAnalyticsFetcher(backend, log, m)
	w.Filters.OnClear(w.Search.Clear)
	return w
}

// touch records the cookies and time of the latest request for this
// session. Lookups that fire later, such as debounced searches, use them.
func (w *Workspace) touch(credentials string, now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.credentials = credentials
	w.lastSeen = now
}

func (w *Workspace) idleFor(now time.Time) time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return now.Sub(w.lastSeen)
}

func (w *Workspace) withCredentials(ctx context.Context) context.Context {
	w.mu.Lock()
	defer w.mu.Unlock()
	return repository.WithCredentials(ctx, w.credentials)
}

// Close stops the workspace's timers and in-flight work.
func (w *Workspace) Close() {
	w.Search.Close()
	w.Fetcher.Close()
}

// credentialedBackend forwards the session's cookies on every call.
type credentialedBackend struct {
	workspace *Workspace
	repo      repository.AnalyticsRepository
}

func (b credentialedBackend) SearchOffices(ctx context.Context, query string) ([]model.EntityCandidate, error) {
	return b.repo.SearchOffices(b.workspace.withCredentials(ctx), query)
}

func (b credentialedBackend) FetchAnalytics(ctx context.Context, query model.Query) (model.AnalyticsResult, error) {
	return b.repo.FetchAnalytics(b.workspace.withCredentials(ctx), query)
}
