// Package api exposes the alert feed over HTTP for the dashboard frontend.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/safeops/alertfeed/internal/alerts"
	"github.com/safeops/alertfeed/internal/monitoring"
	"github.com/safeops/alertfeed/internal/views"
	"github.com/safeops/alertfeed/pkg/logger"
)

// Feed is the slice of the alert feed the API serves.
type Feed interface {
	Snapshot() alerts.Snapshot
	LoadingState() alerts.LoadingState
	HealthStatus() alerts.HealthStatus
	RequestRefresh()
	MarkRead(ctx context.Context, alertID string) error
	Resolve(ctx context.Context, alertID string) error
}

// Server holds the HTTP handlers for the dashboard API.
type Server struct {
	feed  Feed
	token string
	log   logger.Logger
}

// NewServer creates an API server over the given feed. An empty token
// disables authentication (development only).
func NewServer(feed Feed, token string, log logger.Logger) *Server {
	return &Server{
		feed:  feed,
		token: token,
		log:   log,
	}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(monitoring.HTTPMetricsMiddleware)

	router.Handle("/metrics", monitoring.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.handleLiveness).Methods(http.MethodGet)

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(s.authorizationRequired)

	apiRouter.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet)
	apiRouter.HandleFunc("/alerts", s.handleList).Methods(http.MethodGet)
	apiRouter.HandleFunc("/alerts/{id}", s.handleDetail).Methods(http.MethodGet)
	apiRouter.HandleFunc("/alerts/{id}/read", s.handleMarkRead).Methods(http.MethodPost)
	apiRouter.HandleFunc("/alerts/{id}/resolve", s.handleResolve).Methods(http.MethodPost)
	apiRouter.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)
	apiRouter.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)

	return router
}

// authorizationRequired rejects requests without the configured API token.
func (s *Server) authorizationRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
			http.Error(w, "Not authorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	summary := views.BuildSummary(s.feed.Snapshot(), s.feed.LoadingState(), s.feed.HealthStatus())
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	filter := views.ListFilter{}

	q := r.URL.Query()
	if kind := q.Get("kind"); kind != "" {
		filter.Kind = alerts.Kind(kind)
	}
	if unread := q.Get("unread"); unread != "" {
		only, err := strconv.ParseBool(unread)
		if err != nil {
			http.Error(w, "invalid unread parameter", http.StatusBadRequest)
			return
		}
		filter.UnreadOnly = only
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		http.Error(w, "invalid limit parameter", http.StatusBadRequest)
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		http.Error(w, "invalid offset parameter", http.StatusBadRequest)
		return
	}

	s.writeJSON(w, http.StatusOK, views.BuildList(s.feed.Snapshot(), filter))
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	alert, ok := views.BuildDetail(s.feed.Snapshot(), id)
	if !ok {
		http.Error(w, "alert not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, alert)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	s.handleMutation(w, r, s.feed.MarkRead)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	s.handleMutation(w, r, s.feed.Resolve)
}

func (s *Server) handleMutation(w http.ResponseWriter, r *http.Request, mutate func(context.Context, string) error) {
	id := mux.Vars(r)["id"]

	err := mutate(r.Context(), id)
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case errors.Is(err, alerts.ErrAlertNotFound):
		http.Error(w, "alert not found", http.StatusNotFound)
	default:
		// The owning source refused the mutation; nothing was applied locally.
		s.log.Error("Mutation failed", "alertId", id, "error", err.Error())
		http.Error(w, "mutation rejected by upstream", http.StatusBadGateway)
	}
}

func (s *Server) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	s.feed.RequestRefresh()
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh requested"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"loading":  s.feed.LoadingState(),
		"upstream": s.feed.HealthStatus(),
	})
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("invalid integer parameter")
	}
	return n, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("Failed to encode response", "error", err.Error())
	}
}
