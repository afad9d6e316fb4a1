package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safeops/alertfeed/internal/alerts"
	"github.com/safeops/alertfeed/internal/views"
	"github.com/safeops/alertfeed/pkg/logger"
)

// fakeFeed serves a fixed snapshot and records mutation calls.
type fakeFeed struct {
	snapshot    alerts.Snapshot
	refreshes   int
	markReadErr error
	resolveErr  error
	markReadIDs []string
	resolveIDs  []string
}

func (f *fakeFeed) Snapshot() alerts.Snapshot { return f.snapshot }

func (f *fakeFeed) LoadingState() alerts.LoadingState {
	return alerts.LoadingState{State: alerts.StateReady, LastUpdatedAt: time.Now()}
}

func (f *fakeFeed) HealthStatus() alerts.HealthStatus {
	return alerts.HealthStatus{Healthy: true, LastChecked: time.Now()}
}

func (f *fakeFeed) RequestRefresh() { f.refreshes++ }

func (f *fakeFeed) MarkRead(_ context.Context, id string) error {
	f.markReadIDs = append(f.markReadIDs, id)
	return f.markReadErr
}

func (f *fakeFeed) Resolve(_ context.Context, id string) error {
	f.resolveIDs = append(f.resolveIDs, id)
	return f.resolveErr
}

func newTestFeed() *fakeFeed {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &fakeFeed{
		snapshot: alerts.NewSnapshot([]alerts.Alert{
			{ID: "s1", SourceType: alerts.SourceSOS, Kind: alerts.KindSOS, Title: "SOS Alert (BLIND)", Content: "Status: NEED_HELP", Severity: alerts.SeverityCritical, Status: "NEED_HELP", CreatedAt: t0, BackendID: "s1"},
			{ID: "m1", SourceType: alerts.SourceMessage, Kind: alerts.KindGeneral, Title: "t", Content: "c", Severity: alerts.SeverityLow, IsRead: true, CreatedAt: t0.Add(-time.Minute), BackendID: "m1"},
		}),
	}
}

func doRequest(t *testing.T, handler http.Handler, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_Authorization(t *testing.T) {
	router := NewServer(newTestFeed(), "secret", logger.Nop()).Router()

	t.Run("missing token is rejected", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/api/v1/summary", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong token is rejected", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/api/v1/summary", "wrong")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token passes", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/api/v1/summary", "secret")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("liveness needs no token", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/healthz", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestServer_Handlers(t *testing.T) {
	feed := newTestFeed()
	router := NewServer(feed, "", logger.Nop()).Router()

	t.Run("summary reflects the snapshot", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/api/v1/summary", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var summary views.Summary
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
		assert.Equal(t, 2, summary.Total)
		assert.Equal(t, 1, summary.Unread)
	})

	t.Run("list supports filters", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/api/v1/alerts?unread=true", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var page views.Page
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		require.Len(t, page.Alerts, 1)
		assert.Equal(t, "s1", page.Alerts[0].ID)
	})

	t.Run("list rejects bad parameters", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, doRequest(t, router, http.MethodGet, "/api/v1/alerts?unread=maybe", "").Code)
		assert.Equal(t, http.StatusBadRequest, doRequest(t, router, http.MethodGet, "/api/v1/alerts?limit=-1", "").Code)
	})

	t.Run("detail returns one alert or 404", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/api/v1/alerts/s1", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var a alerts.Alert
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
		assert.Equal(t, alerts.KindSOS, a.Kind)

		assert.Equal(t, http.StatusNotFound, doRequest(t, router, http.MethodGet, "/api/v1/alerts/missing", "").Code)
	})

	t.Run("mutations dispatch to the feed", func(t *testing.T) {
		require.Equal(t, http.StatusOK, doRequest(t, router, http.MethodPost, "/api/v1/alerts/m1/read", "").Code)
		require.Equal(t, http.StatusOK, doRequest(t, router, http.MethodPost, "/api/v1/alerts/s1/resolve", "").Code)
		assert.Equal(t, []string{"m1"}, feed.markReadIDs)
		assert.Equal(t, []string{"s1"}, feed.resolveIDs)
	})

	t.Run("refresh is accepted", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, "/api/v1/refresh", "")
		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, 1, feed.refreshes)
	})

	t.Run("status reports loading and upstream health", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/api/v1/status", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "ready")
	})
}

func TestServer_MutationErrors(t *testing.T) {
	t.Run("unknown alert maps to 404", func(t *testing.T) {
		feed := newTestFeed()
		feed.markReadErr = alerts.ErrAlertNotFound
		router := NewServer(feed, "", logger.Nop()).Router()

		rec := doRequest(t, router, http.MethodPost, "/api/v1/alerts/x/read", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("upstream rejection maps to 502", func(t *testing.T) {
		feed := newTestFeed()
		feed.resolveErr = assert.AnError
		router := NewServer(feed, "", logger.Nop()).Router()

		rec := doRequest(t, router, http.MethodPost, "/api/v1/alerts/s1/resolve", "")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}
