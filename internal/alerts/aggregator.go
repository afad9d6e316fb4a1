package alerts

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/safeops/alertfeed/internal/monitoring"
	"github.com/safeops/alertfeed/internal/upstream"
	"github.com/safeops/alertfeed/pkg/logger"
)

// ErrAllSourcesFailed indicates every source fetch failed in one cycle. The
// accompanying snapshot is still valid (empty); the error only feeds the
// scheduler's error flag.
var ErrAllSourcesFailed = errors.New("all alert sources failed")

// Sources is the slice of the upstream client the aggregator needs.
type Sources interface {
	FetchMessages(ctx context.Context) ([]upstream.MessageRecord, error)
	FetchSOS(ctx context.Context) ([]upstream.SOSRecord, error)
	FetchIncidents(ctx context.Context) ([]upstream.IncidentRecord, error)
}

// Aggregator fetches all three sources concurrently, tolerates partial
// failure, and folds the normalized alerts into one atomic snapshot.
type Aggregator struct {
	sources Sources
	log     logger.Logger
}

// NewAggregator creates an aggregator over the given sources.
func NewAggregator(sources Sources, log logger.Logger) *Aggregator {
	return &Aggregator{
		sources: sources,
		log:     log,
	}
}

// Aggregate runs one full aggregation cycle. A failing source contributes an
// empty collection instead of aborting the cycle; the returned snapshot is
// always valid. ErrAllSourcesFailed is returned alongside an empty snapshot
// only when every fetch failed.
func (a *Aggregator) Aggregate(ctx context.Context) (Snapshot, error) {
	var (
		wg        sync.WaitGroup
		messages  []Alert
		sos       []Alert
		incidents []Alert
		errs      [3]error
	)

	wg.Add(3)

	go func() {
		defer wg.Done()
		recs, err := a.sources.FetchMessages(ctx)
		if err != nil {
			errs[0] = err
			return
		}
		messages = make([]Alert, 0, len(recs))
		for _, rec := range recs {
			messages = append(messages, NormalizeMessage(rec))
		}
	}()

	go func() {
		defer wg.Done()
		recs, err := a.sources.FetchSOS(ctx)
		if err != nil {
			errs[1] = err
			return
		}
		sos = make([]Alert, 0, len(recs))
		for _, rec := range recs {
			sos = append(sos, NormalizeSOS(rec))
		}
	}()

	go func() {
		defer wg.Done()
		recs, err := a.sources.FetchIncidents(ctx)
		if err != nil {
			errs[2] = err
			return
		}
		incidents = make([]Alert, 0, len(recs))
		for _, rec := range recs {
			incidents = append(incidents, NormalizeIncident(rec))
		}
	}()

	wg.Wait()

	failed := 0
	for i, name := range [3]string{"messages", "sos", "incidents"} {
		if errs[i] != nil {
			failed++
			monitoring.RecordSourceFetchFailure(name)
			a.log.Warn("Source fetch failed, contributing empty data",
				"source", name,
				"error", errs[i].Error())
		}
	}

	// Concatenation order fixes the tie order for the stable sort below:
	// Message, SOS, Incident.
	merged := make([]Alert, 0, len(messages)+len(sos)+len(incidents))
	merged = append(merged, messages...)
	merged = append(merged, sos...)
	merged = append(merged, incidents...)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})

	snapshot := NewSnapshot(merged)

	if failed == 3 {
		return snapshot, ErrAllSourcesFailed
	}

	a.log.Debug("Aggregation cycle completed",
		"total", snapshot.Stats.Total,
		"unread", snapshot.Stats.Unread,
		"failedSources", failed)

	return snapshot, nil
}
