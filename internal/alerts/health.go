package alerts

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/safeops/alertfeed/pkg/logger"
)

// HealthChecker probes the upstream collection service.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthStatus is the latest upstream health observation.
type HealthStatus struct {
	Healthy     bool      `json:"healthy"`
	LastChecked time.Time `json:"lastChecked"`
	LastError   string    `json:"lastError,omitempty"`
}

// HealthMonitor polls upstream health on its own interval, independent of the
// alert poll cycle.
type HealthMonitor struct {
	checker  HealthChecker
	interval time.Duration
	log      logger.Logger

	mu      sync.RWMutex
	status  HealthStatus
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewHealthMonitor creates a monitor that probes checker every interval.
func NewHealthMonitor(checker HealthChecker, interval time.Duration, log logger.Logger) *HealthMonitor {
	return &HealthMonitor{
		checker:  checker,
		interval: interval,
		log:      log,
	}
}

// Start launches the probe loop. The first probe runs immediately.
func (m *HealthMonitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return errors.New("health monitor already running")
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})

	go m.run(m.stopCh, m.doneCh)
	return nil
}

// Stop halts the probe loop.
func (m *HealthMonitor) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	close(m.stopCh)
	doneCh := m.doneCh
	m.mu.Unlock()

	<-doneCh
	return nil
}

// Status returns the latest observation.
func (m *HealthMonitor) Status() HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *HealthMonitor) run(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.probe()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			m.probe()
		}
	}
}

func (m *HealthMonitor) probe() {
	ctx, cancel := context.WithTimeout(context.Background(), m.interval)
	defer cancel()

	err := m.checker.Health(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.status = HealthStatus{
		Healthy:     err == nil,
		LastChecked: time.Now(),
	}
	if err != nil {
		m.status.LastError = err.Error()
		m.log.Warn("Upstream health probe failed", "error", err.Error())
	}
}
