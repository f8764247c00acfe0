package mockservice

import (
	"context"
	"time"

	"exchange-analytics-dashboard/internal/filter"
	"exchange-analytics-dashboard/internal/model"
	"exchange-analytics-dashboard/internal/service"

	"github.com/stretchr/testify/mock"
)

type Service struct {
	mock.Mock
}

// Interface compliance check
var _ service.DashboardService = &Service{}

func (m *Service) CheckSession(ctx context.Context, sess service.Session, destination string) *service.SessionCheck {
	args := m.Called(ctx, sess, destination)
	return args.Get(0).(*service.SessionCheck)
}

func (m *Service) LoginURL(next string) string {
	args := m.Called(next)
	return args.String(0)
}

func (m *Service) Logout(ctx context.Context, sess service.Session) error {
	args := m.Called(ctx, sess)
	return args.Error(0)
}

func (m *Service) Status(ctx context.Context, refresh bool) model.ServerStatus {
	args := m.Called(ctx, refresh)
	return args.Get(0).(model.ServerStatus)
}

func (m *Service) Filters(sess service.Session) model.FilterSnapshot {
	args := m.Called(sess)
	return args.Get(0).(model.FilterSnapshot)
}

func (m *Service) UpdateFilter(sess service.Session, field filter.Field, value any) (model.FilterSnapshot, error) {
	args := m.Called(sess, field, value)
	return args.Get(0).(model.FilterSnapshot), args.Error(1)
}

func (m *Service) ApplyPreset(sess service.Session, name string) (model.FilterSnapshot, error) {
	args := m.Called(sess, name)
	return args.Get(0).(model.FilterSnapshot), args.Error(1)
}

func (m *Service) ClearFilters(sess service.Session) model.FilterSnapshot {
	args := m.Called(sess)
	return args.Get(0).(model.FilterSnapshot)
}

func (m *Service) SearchOffices(sess service.Session, text string) model.SearchState {
	args := m.Called(sess, text)
	return args.Get(0).(model.SearchState)
}

func (m *Service) SubmitOfficeSearch(sess service.Session, text string) (model.SearchState, error) {
	args := m.Called(sess, text)
	return args.Get(0).(model.SearchState), args.Error(1)
}

func (m *Service) OfficeResults(sess service.Session) model.SearchState {
	args := m.Called(sess)
	return args.Get(0).(model.SearchState)
}

func (m *Service) Apply(ctx context.Context, sess service.Session) (model.DashboardView, error) {
	args := m.Called(ctx, sess)
	return args.Get(0).(model.DashboardView), args.Error(1)
}

func (m *Service) View(sess service.Session) model.DashboardView {
	args := m.Called(sess)
	return args.Get(0).(model.DashboardView)
}

func (m *Service) SweepIdle(ctx context.Context, every time.Duration) error {
	args := m.Called(ctx, every)
	return args.Error(0)
}

func (m *Service) Shutdown() {
	m.Called()
}
