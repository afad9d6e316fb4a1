// Package alerts is the multi-source alert unification engine: it polls the
// three upstream collections, normalizes their records into one canonical
// alert schema, overlays locally pending operator mutations, and exposes a
// single consistent snapshot to presentation surfaces.
package alerts

import "time"

// SourceType identifies the upstream collection an alert came from.
type SourceType string

const (
	SourceMessage  SourceType = "MESSAGE"
	SourceSOS      SourceType = "SOS"
	SourceIncident SourceType = "INCIDENT"
)

// Kind is the normalized alert category used for stats and icons.
type Kind string

const (
	KindSOS      Kind = "SOS"
	KindIncident Kind = "INCIDENT"
	KindGeneral  Kind = "GENERAL"
)

// Severity is the normalized severity scale.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Location is an optional geographic position for an alert.
type Location struct {
	// Latitude is the geographic latitude coordinate
	Latitude float64 `json:"latitude"`

	// Longitude is the geographic longitude coordinate
	Longitude float64 `json:"longitude"`
}

// Alert is the normalized representation of one safety event from any source.
// This is the common format all source adapters must convert their records into.
type Alert struct {
	// ID is the stable identifier, copied verbatim from the upstream record
	ID string `json:"id"`

	// SourceType records provenance and is immutable
	SourceType SourceType `json:"sourceType"`

	// Kind is the normalized category
	Kind Kind `json:"alertKind"`

	// Title is the display headline, synthesized per source when absent
	Title string `json:"title"`

	// Content is the display body, synthesized per source when absent
	Content string `json:"content"`

	// Severity is normalized from the source-specific vocabulary
	Severity Severity `json:"severity"`

	// IsRead is the normalized resolved/acknowledged flag; how it is derived
	// differs per source but the field itself is source-agnostic
	IsRead bool `json:"isRead"`

	// Status preserves the free-form upstream status string for display and
	// for routing the correct resolve action
	Status string `json:"status"`

	// Location is present only when the source reported coordinates
	Location *Location `json:"location,omitempty"`

	// CreatedAt orders alerts globally
	CreatedAt time.Time `json:"createdAt"`

	// BackendID is the identifier used when issuing a resolve/read mutation
	// back to the owning source (may equal ID)
	BackendID string `json:"backendId"`
}

// Stats is a pure fold over one snapshot's alert sequence. It must always be
// internally consistent with the sequence it was computed from.
type Stats struct {
	Total  int          `json:"total"`
	Unread int          `json:"unread"`
	ByKind map[Kind]int `json:"byKind"`
}

// Snapshot is one atomic, internally consistent result of a full aggregation
// cycle: alerts in descending CreatedAt order plus their stats.
type Snapshot struct {
	Alerts []Alert `json:"alerts"`
	Stats  Stats   `json:"stats"`
}

// NewSnapshot builds a snapshot from an already-ordered alert sequence,
// computing stats from the full sequence so the two can never drift.
func NewSnapshot(alerts []Alert) Snapshot {
	return Snapshot{
		Alerts: alerts,
		Stats:  ComputeStats(alerts),
	}
}

// ComputeStats folds an alert sequence into Stats.
func ComputeStats(alerts []Alert) Stats {
	stats := Stats{
		Total: len(alerts),
		ByKind: map[Kind]int{
			KindSOS:      0,
			KindIncident: 0,
			KindGeneral:  0,
		},
	}

	for _, a := range alerts {
		if !a.IsRead {
			stats.Unread++
		}
		stats.ByKind[a.Kind]++
	}

	return stats
}

// Find returns the alert with the given id and whether it exists.
func (s Snapshot) Find(id string) (Alert, bool) {
	for _, a := range s.Alerts {
		if a.ID == id {
			return a, true
		}
	}
	return Alert{}, false
}
