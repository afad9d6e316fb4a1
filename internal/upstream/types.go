package upstream

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageRecord is a direct message reported by a client application.
// CreatedAt is parsed from epoch milliseconds during JSON unmarshaling.
type MessageRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Type      string    `json:"type"` // SOS, INCIDENT, GENERAL
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"-"`
}

// UnmarshalJSON parses createdAt from epoch milliseconds.
func (r *MessageRecord) UnmarshalJSON(data []byte) error {
	// Type alias avoids infinite recursion when calling json.Unmarshal
	type Alias MessageRecord
	aux := &struct {
		CreatedAtMs int64 `json:"createdAt"`
		*Alias
	}{
		Alias: (*Alias)(r),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if aux.CreatedAtMs > 0 {
		r.CreatedAt = time.Unix(0, aux.CreatedAtMs*int64(time.Millisecond)).UTC()
	}
	return nil
}

// SOSRecord is an active or resolved SOS call. Status is a lifecycle string
// (e.g. NEED_HELP, IN_PROGRESS, SAFE) rather than a read flag.
type SOSRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Ability   string    `json:"ability"`
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lng"`
	Battery   int       `json:"battery"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"-"`
}

// UnmarshalJSON parses createdAt from epoch milliseconds.
func (r *SOSRecord) UnmarshalJSON(data []byte) error {
	type Alias SOSRecord
	aux := &struct {
		CreatedAtMs int64 `json:"createdAt"`
		*Alias
	}{
		Alias: (*Alias)(r),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if aux.CreatedAtMs > 0 {
		r.CreatedAt = time.Unix(0, aux.CreatedAtMs*int64(time.Millisecond)).UTC()
	}
	return nil
}

// IncidentRecord is a field incident report. RiskLevel carries the upstream
// severity vocabulary (LOW, MEDIUM, HIGH, CRITICAL).
type IncidentRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Latitude    float64   `json:"lat"`
	Longitude   float64   `json:"lng"`
	RiskLevel   string    `json:"riskLevel"`
	RiskScore   float64   `json:"riskScore"`
	Status      string    `json:"status"`
	ImageURL    string    `json:"imageUrl"`
	CreatedAt   time.Time `json:"-"`
}

// UnmarshalJSON parses createdAt from epoch milliseconds.
func (r *IncidentRecord) UnmarshalJSON(data []byte) error {
	type Alias IncidentRecord
	aux := &struct {
		CreatedAtMs int64 `json:"createdAt"`
		*Alias
	}{
		Alias: (*Alias)(r),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if aux.CreatedAtMs > 0 {
		r.CreatedAt = time.Unix(0, aux.CreatedAtMs*int64(time.Millisecond)).UTC()
	}
	return nil
}

// messagesResponse is the envelope returned by the messages endpoint.
type messagesResponse struct {
	Messages []MessageRecord `json:"messages"`
}

// sosResponse is the envelope returned by the SOS endpoint.
type sosResponse struct {
	Records []SOSRecord `json:"records"`
}

// incidentsResponse is the envelope returned by the incidents endpoint.
type incidentsResponse struct {
	Incidents []IncidentRecord `json:"incidents"`
}

// APIError is the error payload returned by the collection service.
// Format: {"error": {"code": "NOT_FOUND", "message": "..."}}
type APIError struct {
	Detail ErrorDetail `json:"error"`
}

// ErrorDetail carries the code and message of an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface for APIError.
func (e *APIError) Error() string {
	if e.Detail.Code != "" {
		return fmt.Sprintf("%s: %s", e.Detail.Code, e.Detail.Message)
	}
	return "unknown API error"
}
