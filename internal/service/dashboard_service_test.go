package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"exchange-analytics-dashboard/internal/filter"
	"exchange-analytics-dashboard/internal/logger"
	"exchange-analytics-dashboard/internal/metrics"
	"exchange-analytics-dashboard/internal/model"
	"exchange-analytics-dashboard/internal/preset"
	"exchange-analytics-dashboard/internal/repository"
	mockrepository "exchange-analytics-dashboard/internal/testdata/mockrepository"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type DashboardServiceTestSuite struct {
	suite.Suite

	repo    *mockrepository.Repository
	service *dashboardService
	sess    Session
}

func TestDashboardServiceSuite(t *testing.T) {
	suite.Run(t, new(DashboardServiceTestSuite))
}

func (s *DashboardServiceTestSuite) SetupTest() {
	s.repo = &mockrepository.Repository{}
	now := func() time.Time { return time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC) }

	svc := NewDashboardService(s.repo, NewHealthMonitor(s.repo, logger.Nop()), WorkspaceOptions{
		SearchDelay:     20 * time.Millisecond,
		SearchMinLength: 2,
		WeekStart:       time.Sunday,
		Now:             now,
		IdleTimeout:     time.Minute,
	}, logger.Nop(), metrics.NewUpstream())
	s.service = svc.(*dashboardService)
	s.sess = Session{ID: "sess-1", Credentials: "access_token=abc"}
}

func (s *DashboardServiceTestSuite) TearDownTest() {
	s.service.Shutdown()
}

func withCookies(expected string) any {
	return mock.MatchedBy(func(ctx context.Context) bool {
		return repository.CredentialsFrom(ctx) == expected
	})
}

func (s *DashboardServiceTestSuite) readyFilters() {
	_, err := s.service.UpdateFilter(s.sess, filter.FieldEntity, map[string]any{"id": "1585", "name": "Lisbon"})
	s.Require().NoError(err)
	_, err = s.service.ApplyPreset(s.sess, preset.LastMonth)
	s.Require().NoError(err)
}

func (s *DashboardServiceTestSuite) TestApplyRequiresEntityAndDates() {
	_, err := s.service.Apply(context.Background(), s.sess)
	s.ErrorIs(err, filter.ErrNotReady)
	s.repo.AssertNotCalled(s.T(), "FetchAnalytics", mock.Anything, mock.Anything)
}

func (s *DashboardServiceTestSuite) TestApplyFetchesAndShapes() {
	s.readyFilters()
	_, err := s.service.UpdateFilter(s.sess, filter.FieldProducts, []any{model.ProductGlobalTalent})
	s.Require().NoError(err)

	expected := model.Query{
		EntityID:  "1585",
		StartDate: "2024-12-01",
		EndDate:   "2024-12-31",
		Products:  []string{model.ProductGlobalTalent},
	}
	data := model.AnalyticsResult{
		"total_signup":       {DocCount: 1000},
		"total_applications": {DocCount: 400},
	}
	s.repo.On("FetchAnalytics", withCookies("access_token=abc"), expected).Return(data, nil).Once()

	view, err := s.service.Apply(context.Background(), s.sess)
	s.Require().NoError(err)

	s.Len(view.KPIs, 8)
	s.Equal(int64(1000), view.KPIs[0].Value)
	s.Equal("1585", view.Query.EntityID)
	s.Require().Len(view.Funnel.Stages, 2)
	s.Equal("40.0%", view.Funnel.Stages[1].OfPrevious.Value)
	s.Len(view.Funnel.Omitted, 6)

	s.Equal(view, s.service.View(s.sess))
	s.repo.AssertExpectations(s.T())
}

func (s *DashboardServiceTestSuite) TestApplyFailureReportsStableMessage() {
	s.readyFilters()
	s.repo.On("FetchAnalytics", mock.Anything, mock.Anything).Return(nil, &repository.APIError{Status: 500}).Once()

	view, err := s.service.Apply(context.Background(), s.sess)

	var apiErr *repository.APIError
	s.ErrorAs(err, &apiErr)
	s.Equal(AnalyticsFailedMessage, view.Error)
	s.Empty(view.KPIs)
}

func forEntity(id string) any {
	return mock.MatchedBy(func(q model.Query) bool { return q.EntityID == id })
}

func (s *DashboardServiceTestSuite) TestOvertakenApplyReturnsLatestView() {
	s.readyFilters()
	started := make(chan struct{})
	release := make(chan struct{})
	s.repo.On("FetchAnalytics", mock.Anything, forEntity("1585")).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(model.AnalyticsResult{"total_signup": {DocCount: 1}}, nil).Once()
	s.repo.On("FetchAnalytics", mock.Anything, forEntity("2077")).
		Return(model.AnalyticsResult{"total_signup": {DocCount: 2}}, nil).Once()

	type outcome struct {
		view model.DashboardView
		err  error
	}
	first := make(chan outcome, 1)
	go func() {
		view, err := s.service.Apply(context.Background(), s.sess)
		first <- outcome{view, err}
	}()
	<-started

	_, err := s.service.UpdateFilter(s.sess, filter.FieldEntity, map[string]any{"id": "2077", "name": "Porto"})
	s.Require().NoError(err)
	latest, err := s.service.Apply(context.Background(), s.sess)
	s.Require().NoError(err)
	close(release)

	select {
	case got := <-first:
		s.NoError(got.err)
		s.Equal(latest, got.view)
		s.Equal("2077", got.view.Query.EntityID)
		s.Equal(int64(2), got.view.KPIs[0].Value)
	case <-time.After(time.Second):
		s.FailNow("overtaken apply never returned")
	}
}

func (s *DashboardServiceTestSuite) TestViewBeforeFetchIsEmpty() {
	view := s.service.View(s.sess)

	s.NotNil(view.KPIs)
	s.Empty(view.KPIs)
	s.NotNil(view.TimeSeries)
	s.NotNil(view.Funnel.Stages)
	s.Nil(view.Query)
}

func (s *DashboardServiceTestSuite) TestSessionsAreIsolated() {
	s.readyFilters()

	other := Session{ID: "sess-2"}
	s.False(s.service.Filters(other).CanApply)
	s.True(s.service.Filters(s.sess).CanApply)
}

func (s *DashboardServiceTestSuite) TestClearFiltersAlsoClearsSearch() {
	s.repo.On("SearchOffices", withCookies("access_token=abc"), "Lisbon").
		Return([]model.EntityCandidate{{ID: "1585", Name: "Lisbon"}}, nil).Once()

	st, err := s.service.SubmitOfficeSearch(s.sess, "Lisbon")
	s.Require().NoError(err)
	s.Len(st.Candidates, 1)

	s.readyFilters()
	snap := s.service.ClearFilters(s.sess)

	s.False(snap.CanApply)
	s.Empty(snap.EntityID)
	s.Empty(s.service.OfficeResults(s.sess).Candidates)
	s.Empty(s.service.OfficeResults(s.sess).Query)
}

func (s *DashboardServiceTestSuite) TestDebouncedSearchUsesLatestCredentials() {
	s.repo.On("SearchOffices", withCookies("access_token=new"), "Lisb").
		Return([]model.EntityCandidate{{ID: "1585", Name: "Lisbon"}}, nil).Once()

	s.service.SearchOffices(s.sess, "Lisb")
	s.service.Filters(Session{ID: s.sess.ID, Credentials: "access_token=new"})

	s.Eventually(func() bool {
		return len(s.service.OfficeResults(s.sess).Candidates) == 1
	}, time.Second, 5*time.Millisecond)
}

func (s *DashboardServiceTestSuite) TestUpdateFilterRejectsBadInput() {
	_, err := s.service.UpdateFilter(s.sess, filter.Field("color"), "red")
	s.ErrorIs(err, filter.ErrUnknownField)

	_, err = s.service.UpdateFilter(s.sess, filter.FieldInterval, "Hourly")
	s.ErrorIs(err, filter.ErrInvalidValue)

	_, err = s.service.ApplyPreset(s.sess, "Next Week")
	s.ErrorIs(err, preset.ErrUnknownPreset)
}

func (s *DashboardServiceTestSuite) TestLogoutTearsWorkspaceDown() {
	s.readyFilters()
	s.repo.On("Logout", withCookies("access_token=abc")).Return(nil).Once()

	s.NoError(s.service.Logout(context.Background(), s.sess))

	s.service.mu.Lock()
	_, ok := s.service.workspaces[s.sess.ID]
	s.service.mu.Unlock()
	s.False(ok)
	s.False(s.service.Filters(s.sess).CanApply)
}

func (s *DashboardServiceTestSuite) TestLogoutFailureStillTearsDown() {
	s.readyFilters()
	s.repo.On("Logout", mock.Anything).Return(errors.New("backend down")).Once()

	s.Error(s.service.Logout(context.Background(), s.sess))
	s.False(s.service.Filters(s.sess).CanApply)
}

func (s *DashboardServiceTestSuite) TestStatus() {
	s.Equal(model.StatusOffline, s.service.Status(context.Background(), false).Status)
	s.repo.AssertNotCalled(s.T(), "Health", mock.Anything)

	s.repo.On("Health", mock.Anything).Return(model.HealthResponse{Status: "ok"}, nil).Once()
	s.Equal(model.StatusOnline, s.service.Status(context.Background(), true).Status)
}

func (s *DashboardServiceTestSuite) TestCheckSessionForwardsCredentials() {
	s.repo.On("AuthStatus", withCookies("access_token=abc")).Return(model.AuthStatus{LoggedIn: true}, nil).Once()

	check := s.service.CheckSession(context.Background(), s.sess, "/")
	<-check.Done()
	s.Equal(GuardGranted, check.State())
}

func (s *DashboardServiceTestSuite) TestLoginURLDelegatesToBackend() {
	s.repo.On("LoginURL", "/kpis").Return("http://backend/api/auth/login?next=%2Fkpis").Once()

	s.Equal("http://backend/api/auth/login?next=%2Fkpis", s.service.LoginURL("/kpis"))
}

func (s *DashboardServiceTestSuite) TestEvictIdleDropsUntouchedWorkspaces() {
	s.readyFilters()
	seen := s.service.now()
	active := Session{ID: "sess-2"}
	s.service.workspace(active)

	s.Zero(s.service.evictIdle(seen.Add(30 * time.Second)))
	s.Len(s.service.workspaces, 2)

	s.Equal(2, s.service.evictIdle(seen.Add(2*time.Minute)))
	s.Empty(s.service.workspaces)

	s.False(s.service.Filters(s.sess).CanApply)
}

func (s *DashboardServiceTestSuite) TestSweepIdleDisabled() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s.NoError(s.service.SweepIdle(ctx, 0))
	s.NoError(s.service.SweepIdle(ctx, time.Millisecond))
}
