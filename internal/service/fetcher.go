package service

import (
	"context"
	"fmt"
	"sync"

	"exchange-analytics-dashboard/internal/logger"
	"exchange-analytics-dashboard/internal/metrics"
	"exchange-analytics-dashboard/internal/model"
)

// AnalyticsFailedMessage is the stable message shown when a fetch fails.
const AnalyticsFailedMessage = "Failed to load analytics"

// AnalyticsLoader runs analytics queries.
type AnalyticsLoader interface {
	FetchAnalytics(ctx context.Context, query model.Query) (model.AnalyticsResult, error)
}

// AnalyticsState is what the fetcher last committed. Query is the query
// that produced Data.
type AnalyticsState struct {
	Loading bool
	Data    model.AnalyticsResult
	Error   string
	Query   *model.Query
}

// AnalyticsFetcher runs analytics queries and keeps the latest result.
// Only the most recently issued fetch may change its state.
type AnalyticsFetcher struct {
	loader  AnalyticsLoader
	log     *logger.Logger
	metrics *metrics.Upstream

	mu    sync.Mutex
	seq   uint64
	state AnalyticsState
}

func NewAnalyticsFetcher(loader AnalyticsLoader, log *logger.Logger, m *metrics.Upstream) *AnalyticsFetcher {
	if log == nil {
		log = logger.Nop()
	}
	return &AnalyticsFetcher{loader: loader, log: log, metrics: m}
}

// Fetch runs query and commits the outcome if no later Fetch was issued
// meanwhile. A superseded call returns ErrStaleResponse. A failed call
// keeps the previous data and records AnalyticsFailedMessage.
func (f *AnalyticsFetcher) Fetch(ctx context.Context, query model.Query) (AnalyticsState, error) {
	f.mu.Lock()
	f.seq++
	seq := f.seq
	f.state.Loading = true
	f.state.Error = ""
	f.mu.Unlock()

	result, err := f.loader.FetchAnalytics(ctx, query)

	f.mu.Lock()
	defer f.mu.Unlock()
	if seq != f.seq {
		f.metrics.IncStale("analytics_fetcher")
		return AnalyticsState{}, ErrStaleResponse
	}

	f.state.Loading = false
	if err != nil {
		f.state.Error = AnalyticsFailedMessage
		f.log.Warn(ctx, "analytics fetch failed", err)
		return f.stateLocked(), fmt.Errorf("fetch analytics: %w", err)
	}

	if result == nil {
		result = model.AnalyticsResult{}
	}
	f.state.Data = result
	f.state.Query = &query
	return f.stateLocked(), nil
}

// State returns the current fetch state.
func (f *AnalyticsFetcher) State() AnalyticsState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stateLocked()
}

// Close drops any in-flight fetch.
func (f *AnalyticsFetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	f.state.Loading = false
}

func (f *AnalyticsFetcher) stateLocked() AnalyticsState {
	st := f.state
	if f.state.Query != nil {
		q := *f.state.Query
		st.Query = &q
	}
	return st
}
