package mockrepository

import (
	"context"

	"exchange-analytics-dashboard/internal/model"
	"exchange-analytics-dashboard/internal/repository"

	"github.com/stretchr/testify/mock"
)

type Repository struct {
	mock.Mock
}

// Interface compliance check
var _ repository.AnalyticsRepository = &Repository{}

func (m *Repository) Health(ctx context.Context) (model.HealthResponse, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.HealthResponse), args.Error(1)
}

func (m *Repository) AuthStatus(ctx context.Context) (model.AuthStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.AuthStatus), args.Error(1)
}

func (m *Repository) LoginURL(next string) string {
	args := m.Called(next)
	return args.String(0)
}

func (m *Repository) Logout(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *Repository) SearchOffices(ctx context.Context, query string) ([]model.EntityCandidate, error) {
	args := m.Called(ctx, query)
	candidates, _ := args.Get(0).([]model.EntityCandidate)
	return candidates, args.Error(1)
}

func (m *Repository) FetchAnalytics(ctx context.Context, query model.Query) (model.AnalyticsResult, error) {
	args := m.Called(ctx, query)
	result, _ := args.Get(0).(model.AnalyticsResult)
	return result, args.Error(1)
}
