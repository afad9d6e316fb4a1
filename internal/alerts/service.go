package alerts

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/safeops/alertfeed/internal/monitoring"
	"github.com/safeops/alertfeed/pkg/logger"
)

// ErrAlertNotFound is returned when a mutation targets an id absent from the
// current effective snapshot. No backend call is issued.
var ErrAlertNotFound = errors.New("alert not found in current snapshot")

// Mutator issues read/resolve calls back to the owning source.
type Mutator interface {
	MarkMessageRead(ctx context.Context, id string) error
	ResolveSOS(ctx context.Context, id string) error
	ResolveIncident(ctx context.Context, id string) error
}

// FeedConfig carries the tunables for a Feed.
type FeedConfig struct {
	PollInterval      time.Duration
	HealthInterval    time.Duration
	MutationRetention time.Duration
}

// Feed assembles the unification engine: aggregator, poll scheduler, local
// mutation overlay, and health monitor. It is the single interface the
// presentation surfaces consume.
type Feed struct {
	scheduler *Scheduler
	overlay   *Overlay
	health    *HealthMonitor
	mutator   Mutator
	log       logger.Logger
}

// NewFeed wires a feed over the given collaborators.
func NewFeed(sources Sources, mutator Mutator, checker HealthChecker, cfg FeedConfig, log logger.Logger) *Feed {
	aggregator := NewAggregator(sources, log)

	return &Feed{
		scheduler: NewScheduler(cfg.PollInterval, aggregator.Aggregate, log),
		overlay:   NewOverlay(cfg.MutationRetention, log),
		health:    NewHealthMonitor(checker, cfg.HealthInterval, log),
		mutator:   mutator,
		log:       log,
	}
}

// Start launches polling and health monitoring.
func (f *Feed) Start() error {
	if err := f.scheduler.Start(); err != nil {
		return errors.Wrap(err, "failed to start poll scheduler")
	}
	if err := f.health.Start(); err != nil {
		_ = f.scheduler.Stop()
		return errors.Wrap(err, "failed to start health monitor")
	}
	return nil
}

// Stop halts polling and health monitoring. In-flight work is discarded.
func (f *Feed) Stop() error {
	schedErr := f.scheduler.Stop()
	healthErr := f.health.Stop()
	if schedErr != nil {
		return schedErr
	}
	return healthErr
}

// Snapshot returns the effective snapshot: the latest aggregated snapshot
// with all still-pending operator mutations replayed over it.
func (f *Feed) Snapshot() Snapshot {
	return f.overlay.Apply(f.scheduler.Snapshot())
}

// LoadingState returns the poll scheduler's state.
func (f *Feed) LoadingState() LoadingState {
	return f.scheduler.LoadingState()
}

// HealthStatus returns the latest upstream health observation.
func (f *Feed) HealthStatus() HealthStatus {
	return f.health.Status()
}

// RequestRefresh triggers an immediate aggregation cycle, collapsing any
// pending interval wait.
func (f *Feed) RequestRefresh() {
	f.scheduler.RequestRefresh()
}

// MarkRead marks one alert as read, optimistically and on the owning source.
func (f *Feed) MarkRead(ctx context.Context, alertID string) error {
	return f.mutate(ctx, alertID, MutationMarkRead)
}

// Resolve resolves one alert, optimistically and on the owning source.
func (f *Feed) Resolve(ctx context.Context, alertID string) error {
	return f.mutate(ctx, alertID, MutationResolve)
}

// mutate validates the target, routes the backend call by source type, and
// records the optimistic overlay entry only after the backend accepted the
// change. A failed call leaves no overlay state behind.
func (f *Feed) mutate(ctx context.Context, alertID string, kind MutationKind) error {
	alert, ok := f.Snapshot().Find(alertID)
	if !ok {
		return ErrAlertNotFound
	}

	if corroborates(alert, kind) {
		// Already in the intended post-state; no duplicate backend call.
		return nil
	}

	if err := f.route(ctx, alert); err != nil {
		monitoring.RecordMutation(string(kind), false)
		f.log.Error("Backend rejected mutation",
			"alertId", alertID,
			"kind", string(kind),
			"source", string(alert.SourceType),
			"error", err.Error())
		return errors.Wrapf(err, "mutation rejected for alert %s", alertID)
	}

	f.overlay.Record(alertID, kind)
	monitoring.RecordMutation(string(kind), true)

	f.log.Info("Alert mutation applied",
		"alertId", alertID,
		"kind", string(kind),
		"source", string(alert.SourceType))
	return nil
}

// route dispatches to the owning source's endpoint using the backend id.
func (f *Feed) route(ctx context.Context, alert Alert) error {
	switch alert.SourceType {
	case SourceSOS:
		return f.mutator.ResolveSOS(ctx, alert.BackendID)
	case SourceIncident:
		return f.mutator.ResolveIncident(ctx, alert.BackendID)
	case SourceMessage:
		return f.mutator.MarkMessageRead(ctx, alert.BackendID)
	default:
		return errors.Errorf("unknown source type: %s", alert.SourceType)
	}
}
