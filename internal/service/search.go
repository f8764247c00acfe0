package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"exchange-analytics-dashboard/internal/logger"
	"exchange-analytics-dashboard/internal/metrics"
	"exchange-analytics-dashboard/internal/model"
	"exchange-analytics-dashboard/internal/repository"
)

// Entity search messages shown in place of candidates.
const (
	SearchPermissionDeniedMessage = "Your account type is not supported for entity search."
	SearchFailedMessage           = "Failed to search entities. Please try again."
)

// OfficeSearcher looks up entity candidates.
type OfficeSearcher interface {
	SearchOffices(ctx context.Context, query string) ([]model.EntityCandidate, error)
}

// EntitySearch turns typed text into a candidate list. Typing is
// debounced; at most one lookup is in flight and only the latest one may
// commit its result.
type EntitySearch struct {
	searcher  OfficeSearcher
	delay     time.Duration
	minLength int
	log       *logger.Logger
	metrics   *metrics.Upstream

	mu         sync.Mutex
	state      model.SearchState
	timer      *time.Timer
	generation uint64
	token      uint64
	cancel     context.CancelFunc
	closed     bool
}

// NewEntitySearch creates an idle EntitySearch.
func NewEntitySearch(searcher OfficeSearcher, delay time.Duration, minLength int, log *logger.Logger, m *metrics.Upstream) *EntitySearch {
	if log == nil {
		log = logger.Nop()
	}
	if minLength < 1 {
		minLength = 1
	}
	return &EntitySearch{
		searcher:  searcher,
		delay:     delay,
		minLength: minLength,
		log:       log,
		metrics:   m,
		state:     model.SearchState{Candidates: []model.EntityCandidate{}},
	}
}

// SetQuery stores text and schedules a lookup once typing pauses. Text
// shorter than the minimum length clears the candidates instead.
func (s *EntitySearch) SetQuery(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.state.Query = text
	s.stopTimerLocked()

	if utf8.RuneCountInString(strings.TrimSpace(text)) < s.minLength {
		s.invalidateLocked()
		s.state.Candidates = []model.EntityCandidate{}
		s.state.Loading = false
		s.state.Error = ""
		return
	}

	generation := s.generation
	s.timer = time.AfterFunc(s.delay, func() { s.fire(generation) })
}

// Submit searches the current text right away and waits for the result.
func (s *EntitySearch) Submit() (model.SearchState, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return model.SearchState{}, ErrClosed
	}
	query := strings.TrimSpace(s.state.Query)
	if query == "" {
		s.mu.Unlock()
		return s.State(), &ValidationError{Message: "query is required"}
	}
	s.stopTimerLocked()
	ctx, token := s.beginLocked()
	s.mu.Unlock()

	s.run(ctx, token, query)
	return s.State(), nil
}

// Clear resets text and candidates. Pending and in-flight lookups are
// dropped.
func (s *EntitySearch) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	s.invalidateLocked()
	s.state = model.SearchState{Candidates: []model.EntityCandidate{}}
}

// Close stops all timers and in-flight work. Later completions are
// ignored.
func (s *EntitySearch) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.stopTimerLocked()
	s.invalidateLocked()
	s.state.Loading = false
}

// State returns a copy of the current search view.
func (s *EntitySearch) State() model.SearchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Candidates = slices.Clone(s.state.Candidates)
	if st.Candidates == nil {
		st.Candidates = []model.EntityCandidate{}
	}
	return st
}

func (s *EntitySearch) fire(generation uint64) {
	s.mu.Lock()
	if s.closed || generation != s.generation {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	query := strings.TrimSpace(s.state.Query)
	ctx, token := s.beginLocked()
	s.mu.Unlock()

	s.run(ctx, token, query)
}

// beginLocked supersedes any in-flight lookup and marks a new one.
func (s *EntitySearch) beginLocked() (context.Context, uint64) {
	s.invalidateLocked()
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.state.Loading = true
	s.state.Error = ""
	return ctx, s.token
}

func (s *EntitySearch) run(ctx context.Context, token uint64, query string) {
	candidates, err := s.searcher.SearchOffices(ctx, query)

	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.token {
		s.metrics.IncStale("entity_search")
		return
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.state.Loading = false

	if err != nil {
		s.state.Candidates = []model.EntityCandidate{}
		if errors.Is(err, repository.ErrPermissionDenied) {
			s.state.Error = SearchPermissionDeniedMessage
		} else {
			s.state.Error = SearchFailedMessage
		}
		s.log.Warn(s.log.WithField(ctx, "query", query), "entity search failed", err)
		return
	}

	if candidates == nil {
		candidates = []model.EntityCandidate{}
	}
	s.state.Candidates = candidates
	s.state.Error = ""
}

func (s *EntitySearch) stopTimerLocked() {
	s.generation++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *EntitySearch) invalidateLocked() {
	s.token++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
