package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/psantana5/bot-sentry/internal/supervisor"
	"github.com/psantana5/bot-sentry/pkg/logging"
	"github.com/psantana5/bot-sentry/pkg/metrics"
	"github.com/psantana5/bot-sentry/pkg/models"
	"github.com/psantana5/bot-sentry/pkg/store"
)

type fakeStatus struct {
	status supervisor.Status
}

func (f *fakeStatus) Status() supervisor.Status {
	return f.status
}

func newTestServer(t *testing.T, history store.Store) *Server {
	t.Helper()

	logger := logging.NewLogger(logging.FATAL, false)
	logger.SetOutput(io.Discard)

	status := &fakeStatus{status: supervisor.Status{
		State:      supervisor.StateRunning,
		StartedAt:  time.Now().Add(-time.Hour),
		Iterations: 12,
		WorkerPID:  4242,
	}}

	return NewServer("127.0.0.1:0", status, history, metrics.NewExporter(), logger)
}

func TestStatusEndpoint(t *testing.T) {
	server := newTestServer(t, nil)

	req := httptest.NewRequest("GET", "/status", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/status returned %d", rr.Code)
	}

	var status supervisor.Status
	if err := json.NewDecoder(rr.Body).Decode(&status); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	if status.State != supervisor.StateRunning {
		t.Errorf("state = %q, want %q", status.State, supervisor.StateRunning)
	}
	if status.Iterations != 12 {
		t.Errorf("iterations = %d, want 12", status.Iterations)
	}
}

func TestRunsEndpoint(t *testing.T) {
	history := store.NewMemoryStore()
	now := time.Now()
	history.RecordRun(&models.RunRecord{
		StartedAt:  now.Add(-time.Minute),
		FinishedAt: now,
		PID:        100,
		ExitCode:   1,
		Sync:       models.SyncApplied,
	})

	server := newTestServer(t, history)

	req := httptest.NewRequest("GET", "/runs", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/runs returned %d", rr.Code)
	}

	var runs []*models.RunRecord
	if err := json.NewDecoder(rr.Body).Decode(&runs); err != nil {
		t.Fatalf("decoding runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	if runs[0].ExitCode != 1 {
		t.Errorf("exit code = %d, want 1", runs[0].ExitCode)
	}
}

func TestRunsEndpointWithoutStore(t *testing.T) {
	server := newTestServer(t, nil)

	req := httptest.NewRequest("GET", "/runs", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/runs without store returned %d", rr.Code)
	}
}

func TestHealthzEndpoint(t *testing.T) {
	server := newTestServer(t, store.NewMemoryStore())

	req := httptest.NewRequest("GET", "/healthz", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/healthz returned %d", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server := newTestServer(t, nil)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics returned %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	if !strings.Contains(string(body), "botsentry_uptime_seconds") {
		t.Error("metrics output missing botsentry_uptime_seconds")
	}
}
