package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"exchange-analytics-dashboard/internal/metrics"
	"exchange-analytics-dashboard/internal/model"
)

const responseBodyLimit int64 = 4 << 20

var (
	// ErrPermissionDenied marks a 406 from entity search: the signed-in
	// account type cannot search entities.
	ErrPermissionDenied = errors.New("account type not permitted")
	ErrInvalidQuery     = errors.New("invalid analytics query")
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.Status)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// AnalyticsRepository is the dashboard's view of the backend API.
type AnalyticsRepository interface {
	// Health probes backend liveness.
	Health(ctx context.Context) (model.HealthResponse, error)

	// AuthStatus reports whether the forwarded session is signed in.
	AuthStatus(ctx context.Context) (model.AuthStatus, error)

	// LoginURL is where the browser goes to sign in, returning to next.
	LoginURL(next string) string

	// Logout ends the backend session.
	Logout(ctx context.Context) error

	// SearchOffices looks up entity candidates by free text.
	SearchOffices(ctx context.Context, query string) ([]model.EntityCandidate, error)

	// FetchAnalytics runs an analytics query.
	FetchAnalytics(ctx context.Context, query model.Query) (model.AnalyticsResult, error)
}

type analyticsRepository struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Upstream
	validate   *validator.Validate
}

// Option configures optional repository behavior.
type Option func(*analyticsRepository)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(r *analyticsRepository) {
		if client != nil {
			r.httpClient = client
		}
	}
}

// WithMetrics records every call on m.
func WithMetrics(m *metrics.Upstream) Option {
	return func(r *analyticsRepository) {
		r.metrics = m
	}
}

// NewAnalyticsRepository creates an AnalyticsRepository for the backend
// rooted at baseURL (for example http://localhost:8000/api).
func NewAnalyticsRepository(baseURL string, opts ...Option) AnalyticsRepository {
	r := &analyticsRepository{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		validate:   validator.New(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

type credentialsKey struct{}

// WithCredentials attaches the browser's Cookie header so backend calls
// made under ctx carry the user's session.
func WithCredentials(ctx context.Context, cookieHeader string) context.Context {
	return context.WithValue(ctx, credentialsKey{}, cookieHeader)
}

// CredentialsFrom returns the Cookie header attached by WithCredentials.
func CredentialsFrom(ctx context.Context) string {
	v, _ := ctx.Value(credentialsKey{}).(string)
	return v
}

func (r *analyticsRepository) Health(ctx context.Context) (model.HealthResponse, error) {
	var resp model.HealthResponse
	if err := r.do(ctx, "health", http.MethodGet, "/health", nil, &resp); err != nil {
		return model.HealthResponse{}, fmt.Errorf("health: %w", err)
	}
	return resp, nil
}

func (r *analyticsRepository) AuthStatus(ctx context.Context) (model.AuthStatus, error) {
	var resp model.AuthStatus
	if err := r.do(ctx, "auth_status", http.MethodGet, "/auth/status", nil, &resp); err != nil {
		return model.AuthStatus{}, fmt.Errorf("auth status: %w", err)
	}
	return resp, nil
}

func (r *analyticsRepository) LoginURL(next string) string {
	if !strings.HasPrefix(next, "/") {
		next = "/"
	}
	return r.baseURL + "/auth/login?" + url.Values{"next": {next}}.Encode()
}

func (r *analyticsRepository) Logout(ctx context.Context) error {
	if err := r.do(ctx, "logout", http.MethodPost, "/auth/logout", nil, nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (r *analyticsRepository) SearchOffices(ctx context.Context, query string) ([]model.EntityCandidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.EntityCandidate{}, nil
	}

	var resp model.OfficeListResponse
	err := r.do(ctx, "office_search", http.MethodGet, "/office", url.Values{"q": {query}}, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			switch apiErr.Status {
			case http.StatusNotAcceptable:
				return nil, fmt.Errorf("search offices: %w: %w", ErrPermissionDenied, err)
			case http.StatusNotFound:
				// The backend answers 404 when nothing matches.
				return []model.EntityCandidate{}, nil
			}
		}
		return nil, fmt.Errorf("search offices: %w", err)
	}
	if resp.Offices == nil {
		resp.Offices = []model.EntityCandidate{}
	}
	return resp.Offices, nil
}

func (r *analyticsRepository) FetchAnalytics(ctx context.Context, query model.Query) (model.AnalyticsResult, error) {
	if err := r.validate.Struct(query); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}

	var resp model.AnalyticsResponse
	if err := r.do(ctx, "analytics", http.MethodGet, "/analytics", query.Values(), &resp); err != nil {
		return nil, fmt.Errorf("fetch analytics: %w", err)
	}
	if resp.Analytics == nil {
		resp.Analytics = model.AnalyticsResult{}
	}
	return resp.Analytics, nil
}

func (r *analyticsRepository) do(ctx context.Context, operation, method, path string, params url.Values, dest any) (err error) {
	start := time.Now()
	defer func() {
		r.metrics.Observe(operation, outcome(err), time.Since(start))
	}()

	target := r.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if cookies := CredentialsFrom(ctx); cookies != "" {
		req.Header.Set("Cookie", cookies)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyLimit))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	if dest == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func outcome(err error) string {
	if err == nil {
		return metrics.OutcomeSuccess
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusNotAcceptable) {
		return metrics.OutcomeDenied
	}
	return metrics.OutcomeFailure
}
