// Package api exposes the broker's HTTP surface: the /ws upgrade
// endpoint, health/metrics, and a small read-only analytics API over
// session history. Grounded on the teacher's internal/api/server.go
// CORS+JSON middleware pattern.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/classbridge/broker/internal/metrics"
	"github.com/classbridge/broker/pkg/interfaces"
)

// WebSocketHandler is implemented by *app.Application.
type WebSocketHandler interface {
	HandleWebSocket(w http.ResponseWriter, r *http.Request)
}

// Server builds the broker's HTTP mux.
type Server struct {
	mux *http.ServeMux
	log *zap.SugaredLogger
}

// New constructs the mux: /ws for the websocket upgrade, /healthz and
// /metrics for operability, /api/sessions for read-only analytics.
func New(app WebSocketHandler, store interfaces.SessionStore, log *zap.SugaredLogger) *Server {
	s := &Server{mux: http.NewServeMux(), log: log}

	reg := prometheus.NewRegistry()
	for _, c := range metrics.Registry() {
		reg.MustRegister(c)
	}

	s.mux.HandleFunc("/ws", withCORS(app.HandleWebSocket))
	s.mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	s.mux.HandleFunc("/healthz", withCORS(s.healthHandler(store)))
	s.mux.HandleFunc("/api/sessions", withCORS(s.sessionsHandler(store)))

	return s
}

// Handler returns the http.Handler to mount on an *http.Server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func withCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}

func (s *Server) healthHandler(store interfaces.SessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := "ok"
		code := http.StatusOK
		if err := store.HealthCheck(ctx); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
	}
}

func (s *Server) sessionsHandler(store interfaces.SessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions, err := store.ListActiveSessions(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(sessions)
	}
}
