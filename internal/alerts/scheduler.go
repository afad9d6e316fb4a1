package alerts

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/safeops/alertfeed/internal/monitoring"
	"github.com/safeops/alertfeed/pkg/logger"
)

// State is the poll scheduler's lifecycle state.
type State string

const (
	// StateIdle means the scheduler has not started its first cycle yet
	StateIdle State = "idle"
	// StateLoading means an aggregation cycle is in flight
	StateLoading State = "loading"
	// StateReady means the latest cycle succeeded
	StateReady State = "ready"
	// StateReadyStale means the latest cycle failed and the exposed snapshot
	// is from an earlier successful cycle
	StateReadyStale State = "ready_stale"
)

// LoadingState is the scheduler's externally visible status.
type LoadingState struct {
	State         State     `json:"state"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
	LastError     string    `json:"lastError,omitempty"`
}

// AggregateFunc runs one aggregation cycle.
type AggregateFunc func(ctx context.Context) (Snapshot, error)

// Scheduler drives aggregation on a fixed interval and on demand. At most one
// cycle is in flight at a time: the run loop executes cycles serially, and a
// refresh requested mid-cycle is coalesced into a single follow-up cycle. A
// generation counter guards against a stale cycle's result being applied
// after Stop or after a newer cycle has started.
type Scheduler struct {
	interval  time.Duration
	aggregate AggregateFunc
	log       logger.Logger

	mu          sync.RWMutex
	state       State
	snapshot    Snapshot
	lastUpdated time.Time
	lastErr     error
	generation  uint64
	running     bool

	refreshCh chan struct{}
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewScheduler creates a scheduler that runs aggregate every interval.
func NewScheduler(interval time.Duration, aggregate AggregateFunc, log logger.Logger) *Scheduler {
	return &Scheduler{
		interval:  interval,
		aggregate: aggregate,
		log:       log,
		state:     StateIdle,
		snapshot:  NewSnapshot(nil),
		refreshCh: make(chan struct{}, 1),
	}
}

// Start launches the run loop. The first cycle runs immediately.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("scheduler already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.run(s.stopCh, s.doneCh)

	s.log.Info("Poll scheduler started", "interval", s.interval)
	return nil
}

// Stop halts further polls and waits for the loop to exit. An in-flight cycle
// is allowed to complete but its result is discarded.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	// Invalidate any in-flight cycle before the loop observes stopCh.
	s.generation++
	close(s.stopCh)
	doneCh := s.doneCh
	s.mu.Unlock()

	<-doneCh
	s.log.Info("Poll scheduler stopped")
	return nil
}

// RequestRefresh collapses any pending wait and triggers a cycle as soon as
// the loop is free. Requests arriving while a cycle is in flight coalesce
// into one follow-up cycle.
func (s *Scheduler) RequestRefresh() {
	select {
	case s.refreshCh <- struct{}{}:
	default:
		// A refresh is already queued.
	}
}

// Snapshot returns the latest successfully aggregated snapshot.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// LoadingState returns the current lifecycle state.
func (s *Scheduler) LoadingState() LoadingState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ls := LoadingState{
		State:         s.state,
		LastUpdatedAt: s.lastUpdated,
	}
	if s.lastErr != nil {
		ls.LastError = s.lastErr.Error()
	}
	return ls
}

func (s *Scheduler) run(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-timer.C:
		case <-s.refreshCh:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}

		s.cycle(stopCh)

		timer.Reset(s.interval)
	}
}

// cycle runs one aggregation and applies its result unless the scheduler was
// stopped (or superseded) while the cycle was in flight.
func (s *Scheduler) cycle(stopCh chan struct{}) {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.state = StateLoading
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	start := time.Now()
	snapshot, err := s.aggregate(ctx)
	monitoring.RecordAggregationCycle(time.Since(start), err == nil)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		// A stop or newer cycle superseded this one; drop the result.
		s.log.Debug("Discarding stale aggregation result", "generation", gen)
		return
	}

	if err != nil {
		// Total failure degrades softly: the previous snapshot stays exposed
		// and the failure is only visible through the state flag.
		s.state = StateReadyStale
		s.lastErr = err
		s.log.Error("Aggregation cycle failed", "error", err.Error())
		return
	}

	s.snapshot = snapshot
	s.state = StateReady
	s.lastErr = nil
	s.lastUpdated = time.Now()
}
