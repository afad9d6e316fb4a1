// Package views derives the per-screen shapes (dashboard summary, alert
// list, alert detail) from the effective snapshot. Projections are read-only
// and never fetch anything themselves.
package views

import (
	"time"

	"github.com/safeops/alertfeed/internal/alerts"
)

// Summary is the dashboard header: counts plus feed and upstream status.
type Summary struct {
	Total         int                 `json:"total"`
	Unread        int                 `json:"unread"`
	ByKind        map[alerts.Kind]int `json:"byKind"`
	State         alerts.State        `json:"state"`
	LastUpdatedAt time.Time           `json:"lastUpdatedAt"`
	Upstream      alerts.HealthStatus `json:"upstream"`
}

// BuildSummary projects the dashboard summary.
func BuildSummary(snap alerts.Snapshot, ls alerts.LoadingState, hs alerts.HealthStatus) Summary {
	return Summary{
		Total:         snap.Stats.Total,
		Unread:        snap.Stats.Unread,
		ByKind:        snap.Stats.ByKind,
		State:         ls.State,
		LastUpdatedAt: ls.LastUpdatedAt,
		Upstream:      hs,
	}
}

// ListFilter narrows and pages the alert list. A zero filter returns
// everything.
type ListFilter struct {
	Kind       alerts.Kind
	UnreadOnly bool
	Limit      int
	Offset     int
}

// Page is one page of the alert list plus the filtered total.
type Page struct {
	Alerts []alerts.Alert `json:"alerts"`
	Total  int            `json:"total"`
}

// BuildList projects a filtered, paged alert list. Ordering follows the
// snapshot (descending by creation time).
func BuildList(snap alerts.Snapshot, filter ListFilter) Page {
	filtered := make([]alerts.Alert, 0, len(snap.Alerts))
	for _, a := range snap.Alerts {
		if filter.Kind != "" && a.Kind != filter.Kind {
			continue
		}
		if filter.UnreadOnly && a.IsRead {
			continue
		}
		filtered = append(filtered, a)
	}

	total := len(filtered)

	if filter.Offset > 0 {
		if filter.Offset >= total {
			filtered = nil
		} else {
			filtered = filtered[filter.Offset:]
		}
	}
	if filter.Limit > 0 && filter.Limit < len(filtered) {
		filtered = filtered[:filter.Limit]
	}

	return Page{Alerts: filtered, Total: total}
}

// BuildDetail projects a single alert by id.
func BuildDetail(snap alerts.Snapshot, id string) (alerts.Alert, bool) {
	return snap.Find(id)
}
