package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"exchange-analytics-dashboard/internal/logger"
	"exchange-analytics-dashboard/internal/model"
)

// HealthProber probes backend liveness.
type HealthProber interface {
	Health(ctx context.Context) (model.HealthResponse, error)
}

// HealthMonitor tracks whether the backend is reachable. A new probe
// cancels the one in flight.
type HealthMonitor struct {
	prober HealthProber
	log    *logger.Logger

	mu     sync.Mutex
	state  model.ServerStatus
	seq    uint64
	cancel context.CancelFunc
}

func NewHealthMonitor(prober HealthProber, log *logger.Logger) *HealthMonitor {
	if log == nil {
		log = logger.Nop()
	}
	return &HealthMonitor{
		prober: prober,
		log:    log,
		state:  model.ServerStatus{Status: model.StatusOffline},
	}
}

// Refresh probes the backend and returns the resulting status. If the
// probe is cancelled, by ctx or by a newer Refresh, the previous status
// stays.
func (m *HealthMonitor) Refresh(ctx context.Context) model.ServerStatus {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	m.seq++
	seq := m.seq
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.state.Loading = true
	m.mu.Unlock()
	defer cancel()

	resp, err := m.prober.Health(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if seq != m.seq {
		return m.state
	}
	m.cancel = nil
	m.state.Loading = false

	switch {
	case errors.Is(err, context.Canceled):
	case err != nil:
		m.state.Status = model.StatusOffline
		m.log.Warn(ctx, "backend health probe failed", err)
	case resp.Status == "ok":
		m.state.Status = model.StatusOnline
		if resp.Timestamp != "" {
			m.state.Timestamp = resp.Timestamp
		}
	default:
		m.state.Status = model.StatusOffline
		if resp.Timestamp != "" {
			m.state.Timestamp = resp.Timestamp
		}
	}
	return m.state
}

// State returns the last known status.
func (m *HealthMonitor) State() model.ServerStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Poll refreshes every interval until ctx is done. A non-positive
// interval disables polling.
func (m *HealthMonitor) Poll(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			status := m.Refresh(ctx)
			m.log.Debug(m.log.WithField(ctx, "status", status.Status), "backend health polled")
		}
	}
}

// Close cancels the probe in flight.
func (m *HealthMonitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.state.Loading = false
}
