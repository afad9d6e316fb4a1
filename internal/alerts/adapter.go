package alerts

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/safeops/alertfeed/internal/upstream"
)

// Upstream status values that count as acknowledged.
const (
	sosStatusSafe          = "SAFE"
	incidentStatusResolved = "RESOLVED"
	incidentStatusVerified = "VERIFIED"
)

// NormalizeMessage converts a direct message into a canonical Alert.
// The message's own type tag selects the kind; the read flag is copied as-is.
func NormalizeMessage(rec upstream.MessageRecord) Alert {
	kind := KindGeneral
	switch rec.Type {
	case "SOS":
		kind = KindSOS
	case "INCIDENT":
		kind = KindIncident
	}

	title := rec.Title
	if title == "" {
		title = defaultMessageTitle(kind)
	}
	content := rec.Content
	if content == "" {
		content = title
	}

	id := fallbackID(rec.ID)

	return Alert{
		ID:         id,
		SourceType: SourceMessage,
		Kind:       kind,
		Title:      title,
		Content:    content,
		Severity:   messageSeverity(kind),
		IsRead:     rec.IsRead,
		Status:     "",
		CreatedAt:  rec.CreatedAt,
		BackendID:  id,
	}
}

// NormalizeSOS converts an SOS record into a canonical Alert. SOS is always
// critical, and the read flag is derived from the lifecycle status: only a
// record that reached SAFE counts as acknowledged.
func NormalizeSOS(rec upstream.SOSRecord) Alert {
	id := fallbackID(rec.ID)

	return Alert{
		ID:         id,
		SourceType: SourceSOS,
		Kind:       KindSOS,
		Title:      fmt.Sprintf("SOS Alert (%s)", rec.Ability),
		Content:    fmt.Sprintf("Status: %s", rec.Status),
		Severity:   SeverityCritical,
		IsRead:     rec.Status == sosStatusSafe,
		Status:     rec.Status,
		Location:   location(rec.Latitude, rec.Longitude),
		CreatedAt:  rec.CreatedAt,
		BackendID:  id,
	}
}

// NormalizeIncident converts an incident report into a canonical Alert.
// Severity is the lower-cased upstream risk level, defaulting to medium.
func NormalizeIncident(rec upstream.IncidentRecord) Alert {
	id := fallbackID(rec.ID)

	content := rec.Description
	if content == "" {
		content = fmt.Sprintf("Incident reported with status %s", rec.Status)
	}

	return Alert{
		ID:         id,
		SourceType: SourceIncident,
		Kind:       KindIncident,
		Title:      fmt.Sprintf("Incident: %s", rec.Type),
		Content:    content,
		Severity:   incidentSeverity(rec.RiskLevel),
		IsRead:     rec.Status == incidentStatusResolved || rec.Status == incidentStatusVerified,
		Status:     rec.Status,
		Location:   location(rec.Latitude, rec.Longitude),
		CreatedAt:  rec.CreatedAt,
		BackendID:  id,
	}
}

func defaultMessageTitle(kind Kind) string {
	switch kind {
	case KindSOS:
		return "SOS Alert"
	case KindIncident:
		return "Incident Report"
	default:
		return "New Message"
	}
}

func messageSeverity(kind Kind) Severity {
	switch kind {
	case KindSOS:
		return SeverityCritical
	case KindIncident:
		return SeverityHigh
	default:
		return SeverityLow
	}
}

func incidentSeverity(riskLevel string) Severity {
	switch strings.ToLower(riskLevel) {
	case "low":
		return SeverityLow
	case "high":
		return SeverityHigh
	case "critical":
		return SeverityCritical
	case "medium":
		return SeverityMedium
	default:
		return SeverityMedium
	}
}

func location(lat, lng float64) *Location {
	if lat == 0 && lng == 0 {
		return nil
	}
	return &Location{Latitude: lat, Longitude: lng}
}

// fallbackID returns the upstream id when present. A missing id gets a
// synthesized one so downstream code never sees an empty identifier, but such
// ids are not stable across refetches of the same logical record; the upstream
// services are expected to always populate ids.
func fallbackID(id string) string {
	if id != "" {
		return id
	}
	return "local-" + uuid.NewString()
}
