package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for upstream calls.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeDenied  = "denied"
)

// Upstream records calls made to the analytics backend and how the
// dashboard components consumed them.
type Upstream struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	stale    *prometheus.CounterVec
}

// NewUpstream registers the collectors on a fresh registry.
func NewUpstream() *Upstream {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_upstream_requests_total",
		Help: "Backend API calls by operation and outcome.",
	}, []string{"operation", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dashboard_upstream_request_duration_seconds",
		Help:    "Backend API call latency by operation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	stale := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_stale_responses_total",
		Help: "Responses discarded because a newer request superseded them.",
	}, []string{"component"})
	registry.MustRegister(requests, duration, stale)
	return &Upstream{
		registry: registry,
		requests: requests,
		duration: duration,
		stale:    stale,
	}
}

// Observe records one finished backend call.
func (u *Upstream) Observe(operation, outcome string, elapsed time.Duration) {
	if u == nil {
		return
	}
	u.requests.WithLabelValues(normalizeLabel(operation), outcome).Inc()
	u.duration.WithLabelValues(normalizeLabel(operation)).Observe(elapsed.Seconds())
}

// IncStale counts a discarded superseded response.
func (u *Upstream) IncStale(component string) {
	if u == nil {
		return
	}
	u.stale.WithLabelValues(normalizeLabel(component)).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (u *Upstream) Handler() http.Handler {
	if u == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(u.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for gathering in tests.
func (u *Upstream) Registry() *prometheus.Registry {
	return u.registry
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
