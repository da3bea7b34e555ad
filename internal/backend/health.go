package backend

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/joeblew999/plat-geochat/internal/session"
)

// HealthInterval is the fixed liveness poll interval.
const HealthInterval = 30 * time.Second

// Prober is the liveness probe half of the backend client.
type Prober interface {
	Health(ctx context.Context) error
}

// Monitor polls the backend probe and drives the store's connected/demo
// indicator. It has no effect on core state beyond that indicator.
type Monitor struct {
	store    *session.Store
	probe    Prober
	interval time.Duration
	logger   *zap.Logger
}

// NewMonitor creates a monitor polling probe every HealthInterval.
func NewMonitor(store *session.Store, probe Prober, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{store: store, probe: probe, interval: HealthInterval, logger: logger}
}

// Run checks once immediately, then on every tick until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	m.check(ctx)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

func (m *Monitor) check(ctx context.Context) {
	err := m.probe.Health(ctx)
	if err != nil {
		m.logger.Debug("health probe failed", zap.Error(err))
	}
	m.store.SetConnected(err == nil)
}
