package alerts

import (
	"sync"
	"time"

	"github.com/safeops/alertfeed/internal/monitoring"
	"github.com/safeops/alertfeed/pkg/logger"
)

// MutationKind identifies an operator-issued state transition.
type MutationKind string

const (
	MutationMarkRead MutationKind = "mark_read"
	MutationResolve  MutationKind = "resolve"
)

// PendingMutation is an optimistic change not yet corroborated by a poll.
type PendingMutation struct {
	AlertID   string       `json:"alertId"`
	Kind      MutationKind `json:"kind"`
	AppliedAt time.Time    `json:"appliedAt"`
}

// Overlay holds the pending-mutation set and replays it over every incoming
// snapshot, so a poll that has not yet caught up with an operator action can
// never visibly undo it. A mutation is discarded once the canonical data
// corroborates it or once the retention window elapses (a backend write that
// silently failed must not lie to the operator forever).
type Overlay struct {
	mu        sync.Mutex
	pending   map[string]PendingMutation
	retention time.Duration
	now       func() time.Time
	log       logger.Logger
}

// NewOverlay creates an overlay with the given retention window.
func NewOverlay(retention time.Duration, log logger.Logger) *Overlay {
	return &Overlay{
		pending:   make(map[string]PendingMutation),
		retention: retention,
		now:       time.Now,
		log:       log,
	}
}

// Record stores a pending mutation for an alert. A resolve supersedes a
// pending mark-read for the same alert; a mark-read never downgrades a
// pending resolve.
func (o *Overlay) Record(alertID string, kind MutationKind) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if existing, ok := o.pending[alertID]; ok && existing.Kind == MutationResolve && kind == MutationMarkRead {
		return
	}

	o.pending[alertID] = PendingMutation{
		AlertID:   alertID,
		Kind:      kind,
		AppliedAt: o.now(),
	}
	monitoring.SetPendingMutations(len(o.pending))
}

// Apply replays all still-pending mutations over a snapshot and returns the
// effective snapshot with stats recomputed from the full overridden sequence.
// Corroborated and expired mutations are garbage-collected in the same pass.
func (o *Overlay) Apply(snapshot Snapshot) Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.pending) == 0 {
		return snapshot
	}

	now := o.now()
	for id, mut := range o.pending {
		if now.Sub(mut.AppliedAt) > o.retention {
			// Treated as lost: the real data wins and the alert re-surfaces
			// as unresolved.
			o.log.Warn("Dropping expired pending mutation",
				"alertId", id,
				"kind", string(mut.Kind))
			delete(o.pending, id)
			continue
		}

		if a, ok := snapshot.Find(id); ok && corroborates(a, mut.Kind) {
			o.log.Debug("Pending mutation corroborated by poll",
				"alertId", id,
				"kind", string(mut.Kind))
			delete(o.pending, id)
		}
	}
	monitoring.SetPendingMutations(len(o.pending))

	if len(o.pending) == 0 {
		return snapshot
	}

	// Override into a copy; the incoming snapshot stays immutable.
	overridden := make([]Alert, len(snapshot.Alerts))
	copy(overridden, snapshot.Alerts)

	for i := range overridden {
		mut, ok := o.pending[overridden[i].ID]
		if !ok {
			continue
		}
		overridden[i] = override(overridden[i], mut.Kind)
	}

	return NewSnapshot(overridden)
}

// PendingCount reports the number of uncorroborated mutations.
func (o *Overlay) PendingCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}

// corroborates reports whether the canonical alert data already reflects the
// intended post-mutation state.
func corroborates(a Alert, kind MutationKind) bool {
	switch kind {
	case MutationResolve:
		return a.IsRead && a.Status == resolvedStatus(a.SourceType, a.Status)
	default:
		return a.IsRead
	}
}

// override applies one mutation's post-state to an alert.
func override(a Alert, kind MutationKind) Alert {
	a.IsRead = true
	if kind == MutationResolve {
		a.Status = resolvedStatus(a.SourceType, a.Status)
	}
	return a
}

// resolvedStatus maps a source to the status its resolve endpoint writes.
// Messages carry no lifecycle status, so theirs passes through.
func resolvedStatus(source SourceType, current string) string {
	switch source {
	case SourceSOS:
		return sosStatusSafe
	case SourceIncident:
		return incidentStatusResolved
	default:
		return current
	}
}
