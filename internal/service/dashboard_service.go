package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"exchange-analytics-dashboard/internal/filter"
	"exchange-analytics-dashboard/internal/logger"
	"exchange-analytics-dashboard/internal/metrics"
	"exchange-analytics-dashboard/internal/model"
	"exchange-analytics-dashboard/internal/repository"
	"exchange-analytics-dashboard/internal/shaper"
)

// Session identifies the browser session a call is made for.
type Session struct {
	ID string
	// Credentials is the raw Cookie header forwarded to the backend.
	Credentials string
}

type DashboardService interface {
	CheckSession(ctx context.Context, sess Session, destination string) *SessionCheck
	LoginURL(next string) string
	Logout(ctx context.Context, sess Session) error
	Status(ctx context.Context, refresh bool) model.ServerStatus

	Filters(sess Session) model.FilterSnapshot
	UpdateFilter(sess Session, field filter.Field, value any) (model.FilterSnapshot, error)
	ApplyPreset(sess Session, name string) (model.FilterSnapshot, error)
	ClearFilters(sess Session) model.FilterSnapshot

	SearchOffices(sess Session, text string) model.SearchState
	SubmitOfficeSearch(sess Session, text string) (model.SearchState, error)
	OfficeResults(sess Session) model.SearchState

	Apply(ctx context.Context, sess Session) (model.DashboardView, error)
	View(sess Session) model.DashboardView

	SweepIdle(ctx context.Context, every time.Duration) error
	Shutdown()
}

// dashboardService keeps one workspace per browser session and the
// backend-wide health and session components.
type dashboardService struct {
	repo    repository.AnalyticsRepository
	opts    WorkspaceOptions
	log     *logger.Logger
	metrics *metrics.Upstream
	health  *HealthMonitor
	guard   *SessionGuard

	mu         sync.Mutex
	workspaces map[string]*Workspace
}

// NewDashboardService constructs a dashboardService.
func NewDashboardService(repo repository.AnalyticsRepository, health *HealthMonitor, opts WorkspaceOptions, log *logger.Logger, m *metrics.Upstream) DashboardService {
	if log == nil {
		log = logger.Nop()
	}
	return &dashboardService{
		repo:       repo,
		opts:       opts,
		log:        log,
		metrics:    m,
		health:     health,
		guard:      NewSessionGuard(repo, log),
		workspaces: make(map[string]*Workspace),
	}
}

func (s *dashboardService) workspace(sess Session) *Workspace {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.workspaces[sess.ID]
	if !ok {
		ws = newWorkspace(sess.ID, s.repo, s.opts, s.log, s.metrics)
		s.workspaces[sess.ID] = ws
	}
	ws.touch(sess.Credentials, s.now())
	return ws
}

func (s *dashboardService) now() time.Time {
	if s.opts.Now == nil {
		return time.Now()
	}
	return s.opts.Now()
}

// SweepIdle evicts idle workspaces every interval until ctx is done. A
// non-positive interval or idle timeout disables sweeping.
func (s *dashboardService) SweepIdle(ctx context.Context, every time.Duration) error {
	if every <= 0 || s.opts.IdleTimeout <= 0 {
		return nil
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.evictIdle(s.now()); n > 0 {
				s.log.Info(s.log.WithField(ctx, "evicted", n), "idle workspaces evicted")
			}
		}
	}
}

// evictIdle closes the workspaces untouched for longer than the idle
// timeout and returns how many went.
func (s *dashboardService) evictIdle(now time.Time) int {
	if s.opts.IdleTimeout <= 0 {
		return 0
	}

	s.mu.Lock()
	var idle []*Workspace
	for id, ws := range s.workspaces {
		if ws.idleFor(now) > s.opts.IdleTimeout {
			idle = append(idle, ws)
			delete(s.workspaces, id)
		}
	}
	s.mu.Unlock()

	for _, ws := range idle {
		ws.Close()
	}
	return len(idle)
}

func (s *dashboardService) CheckSession(ctx context.Context, sess Session, destination string) *SessionCheck {
	return s.guard.Check(repository.WithCredentials(ctx, sess.Credentials), destination)
}

func (s *dashboardService) LoginURL(next string) string {
	return s.repo.LoginURL(next)
}

// Logout ends the backend session, then tears the workspace down. The
// workspace goes even when the backend call fails.
func (s *dashboardService) Logout(ctx context.Context, sess Session) error {
	err := s.repo.Logout(repository.WithCredentials(ctx, sess.Credentials))

	s.mu.Lock()
	ws, ok := s.workspaces[sess.ID]
	delete(s.workspaces, sess.ID)
	s.mu.Unlock()

	if ok {
		ws.Close()
	}
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (s *dashboardService) Status(ctx context.Context, refresh bool) model.ServerStatus {
	if refresh {
		return s.health.Refresh(ctx)
	}
	return s.health.State()
}

func (s *dashboardService) Filters(sess Session) model.FilterSnapshot {
	return s.workspace(sess).Filters.Snapshot()
}

func (s *dashboardService) UpdateFilter(sess Session, field filter.Field, value any) (model.FilterSnapshot, error) {
	ws := s.workspace(sess)
	if err := ws.Filters.Update(field, value); err != nil {
		return ws.Filters.Snapshot(), err
	}
	return ws.Filters.Snapshot(), nil
}

func (s *dashboardService) ApplyPreset(sess Session, name string) (model.FilterSnapshot, error) {
	ws := s.workspace(sess)
	if err := ws.Filters.ApplyPreset(name); err != nil {
		return ws.Filters.Snapshot(), err
	}
	return ws.Filters.Snapshot(), nil
}

func (s *dashboardService) ClearFilters(sess Session) model.FilterSnapshot {
	ws := s.workspace(sess)
	ws.Filters.Clear()
	return ws.Filters.Snapshot()
}

func (s *dashboardService) SearchOffices(sess Session, text string) model.SearchState {
	ws := s.workspace(sess)
	ws.Search.SetQuery(text)
	return ws.Search.State()
}

// SubmitOfficeSearch searches right away. A non-empty text replaces the
// current one first.
func (s *dashboardService) SubmitOfficeSearch(sess Session, text string) (model.SearchState, error) {
	ws := s.workspace(sess)
	if text != "" {
		ws.Search.SetQuery(text)
	}
	return ws.Search.Submit()
}

func (s *dashboardService) OfficeResults(sess Session) model.SearchState {
	return s.workspace(sess).Search.State()
}

// Apply snapshots the filters into a query, fetches it and shapes the
// result. An apply overtaken by a newer one returns the current view
// without an error.
func (s *dashboardService) Apply(ctx context.Context, sess Session) (model.DashboardView, error) {
	ws := s.workspace(sess)
	query, err := ws.Filters.ToQuery()
	if err != nil {
		return model.DashboardView{}, err
	}

	state, err := ws.Fetcher.Fetch(ctx, query)
	if errors.Is(err, ErrStaleResponse) {
		return buildView(ws.Fetcher.State()), nil
	}
	return buildView(state), err
}

func (s *dashboardService) View(sess Session) model.DashboardView {
	return buildView(s.workspace(sess).Fetcher.State())
}

// Shutdown closes every workspace and the health monitor.
func (s *dashboardService) Shutdown() {
	s.mu.Lock()
	workspaces := s.workspaces
	s.workspaces = make(map[string]*Workspace)
	s.mu.Unlock()

	for _, ws := range workspaces {
		ws.Close()
	}
	s.health.Close()
}

func buildView(state AnalyticsState) model.DashboardView {
	view := model.DashboardView{
		Loading:    state.Loading,
		Error:      state.Error,
		Query:      state.Query,
		KPIs:       []model.KPI{},
		TimeSeries: []model.TimeSeriesRow{},
		Funnel:     model.Funnel{Stages: []model.FunnelRow{}, Omitted: []model.FunnelRow{}},
	}
	if state.Data == nil {
		return view
	}
	view.KPIs = shaper.Totals(state.Data)
	view.TimeSeries = shaper.TimeSeries(state.Data)
	view.Funnel = shaper.Funnel(state.Data)
	return view
}
