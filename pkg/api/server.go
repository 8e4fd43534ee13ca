package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/psantana5/bot-sentry/internal/supervisor"
	"github.com/psantana5/bot-sentry/pkg/logging"
	"github.com/psantana5/bot-sentry/pkg/store"
)

// StatusProvider exposes the supervisor's current snapshot
type StatusProvider interface {
	Status() supervisor.Status
}

// Server serves the read-only observability endpoints
type Server struct {
	httpServer *http.Server
	logger     *logging.Logger
	status     StatusProvider
	history    store.Store
}

// NewServer creates the observability HTTP server. history may be nil.
func NewServer(addr string, status StatusProvider, history store.Store, metricsHandler http.Handler, logger *logging.Logger) *Server {
	s := &Server{
		logger:  logger,
		status:  status,
		history: history,
	}

	router := mux.NewRouter()
	router.Handle("/metrics", metricsHandler).Methods("GET")
	router.HandleFunc("/status", s.handleStatus).Methods("GET")
	router.HandleFunc("/runs", s.handleRuns).Methods("GET")
	router.HandleFunc("/healthz", s.handleHealthz).Methods("GET")

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

// Handler returns the router (used by tests)
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe runs the server until Shutdown
func (s *Server) ListenAndServe() error {
	s.logger.Info("Observability server listening", map[string]interface{}{
		"addr": s.httpServer.Addr,
	})
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status.Status())
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}

	runs, err := s.history.ListRuns(50)
	if err != nil {
		http.Error(w, "failed to list runs: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.history != nil {
		if err := s.history.HealthCheck(); err != nil {
			http.Error(w, "store unhealthy: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers already sent; nothing useful left to do
		return
	}
}
