package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safeops/alertfeed/internal/upstream"
	"github.com/safeops/alertfeed/pkg/logger"
)

// fakeSources returns canned data or errors per source.
type fakeSources struct {
	messages     []upstream.MessageRecord
	sos          []upstream.SOSRecord
	incidents    []upstream.IncidentRecord
	messagesErr  error
	sosErr       error
	incidentsErr error
}

func (f *fakeSources) FetchMessages(context.Context) ([]upstream.MessageRecord, error) {
	return f.messages, f.messagesErr
}

func (f *fakeSources) FetchSOS(context.Context) ([]upstream.SOSRecord, error) {
	return f.sos, f.sosErr
}

func (f *fakeSources) FetchIncidents(context.Context) ([]upstream.IncidentRecord, error) {
	return f.incidents, f.incidentsErr
}

// assertStatsConsistent checks the snapshot-level invariant.
func assertStatsConsistent(t *testing.T, snap Snapshot) {
	t.Helper()
	assert.Equal(t, len(snap.Alerts), snap.Stats.Total)

	unread := 0
	byKind := 0
	for _, a := range snap.Alerts {
		if !a.IsRead {
			unread++
		}
	}
	for _, n := range snap.Stats.ByKind {
		byKind += n
	}
	assert.Equal(t, unread, snap.Stats.Unread)
	assert.Equal(t, snap.Stats.Total, byKind)
}

func TestAggregator_Aggregate(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("merges all three sources sorted descending by creation time", func(t *testing.T) {
		sources := &fakeSources{
			messages: []upstream.MessageRecord{
				{ID: "m1", Type: "GENERAL", Title: "t", Content: "c", CreatedAt: t0.Add(1 * time.Minute)},
			},
			sos: []upstream.SOSRecord{
				{ID: "s1", Ability: "BLIND", Status: "NEED_HELP", CreatedAt: t0.Add(3 * time.Minute)},
			},
			incidents: []upstream.IncidentRecord{
				{ID: "i1", Type: "FALL", Status: "PENDING", CreatedAt: t0.Add(2 * time.Minute)},
			},
		}

		snap, err := NewAggregator(sources, logger.Nop()).Aggregate(context.Background())
		require.NoError(t, err)

		require.Len(t, snap.Alerts, 3)
		assert.Equal(t, "s1", snap.Alerts[0].ID)
		assert.Equal(t, "i1", snap.Alerts[1].ID)
		assert.Equal(t, "m1", snap.Alerts[2].ID)
		assertStatsConsistent(t, snap)
	})

	t.Run("ties keep message, sos, incident order", func(t *testing.T) {
		sources := &fakeSources{
			messages:  []upstream.MessageRecord{{ID: "m1", Type: "GENERAL", Title: "t", Content: "c", CreatedAt: t0}},
			sos:       []upstream.SOSRecord{{ID: "s1", Ability: "BLIND", Status: "NEED_HELP", CreatedAt: t0}},
			incidents: []upstream.IncidentRecord{{ID: "i1", Type: "FALL", Status: "PENDING", CreatedAt: t0}},
		}

		snap, err := NewAggregator(sources, logger.Nop()).Aggregate(context.Background())
		require.NoError(t, err)

		require.Len(t, snap.Alerts, 3)
		assert.Equal(t, "m1", snap.Alerts[0].ID)
		assert.Equal(t, "s1", snap.Alerts[1].ID)
		assert.Equal(t, "i1", snap.Alerts[2].ID)
	})

	t.Run("one failing source contributes empty data", func(t *testing.T) {
		sources := &fakeSources{
			messages:  []upstream.MessageRecord{{ID: "m1", Type: "GENERAL", Title: "t", Content: "c", CreatedAt: t0}},
			sosErr:    errors.New("sos service down"),
			incidents: []upstream.IncidentRecord{{ID: "i1", Type: "FALL", Status: "PENDING", CreatedAt: t0}},
		}

		snap, err := NewAggregator(sources, logger.Nop()).Aggregate(context.Background())
		require.NoError(t, err)

		require.Len(t, snap.Alerts, 2)
		for _, a := range snap.Alerts {
			assert.NotEqual(t, SourceSOS, a.SourceType)
		}
		assertStatsConsistent(t, snap)
	})

	t.Run("total failure yields empty snapshot and error flag", func(t *testing.T) {
		sources := &fakeSources{
			messagesErr:  errors.New("down"),
			sosErr:       errors.New("down"),
			incidentsErr: errors.New("down"),
		}

		snap, err := NewAggregator(sources, logger.Nop()).Aggregate(context.Background())

		assert.ErrorIs(t, err, ErrAllSourcesFailed)
		assert.Equal(t, 0, snap.Stats.Total)
		assert.Empty(t, snap.Alerts)
		assertStatsConsistent(t, snap)
	})

	t.Run("empty collections are normal, not an error", func(t *testing.T) {
		snap, err := NewAggregator(&fakeSources{}, logger.Nop()).Aggregate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, snap.Stats.Total)
		assertStatsConsistent(t, snap)
	})

	t.Run("stats count kinds and unread", func(t *testing.T) {
		sources := &fakeSources{
			messages: []upstream.MessageRecord{
				{ID: "m1", Type: "GENERAL", Title: "t", Content: "c", IsRead: true, CreatedAt: t0},
			},
			sos: []upstream.SOSRecord{
				{ID: "s1", Ability: "BLIND", Status: "NEED_HELP", CreatedAt: t0},
				{ID: "s2", Ability: "DEAF", Status: "SAFE", CreatedAt: t0},
			},
			incidents: []upstream.IncidentRecord{
				{ID: "i1", Type: "FALL", Status: "PENDING", CreatedAt: t0},
			},
		}

		snap, err := NewAggregator(sources, logger.Nop()).Aggregate(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 4, snap.Stats.Total)
		assert.Equal(t, 2, snap.Stats.Unread)
		assert.Equal(t, 2, snap.Stats.ByKind[KindSOS])
		assert.Equal(t, 1, snap.Stats.ByKind[KindIncident])
		assert.Equal(t, 1, snap.Stats.ByKind[KindGeneral])
		assertStatsConsistent(t, snap)
	})
}
