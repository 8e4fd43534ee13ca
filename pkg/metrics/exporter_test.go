package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func scrape(t *testing.T, e *Exporter) string {
	t.Helper()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if rr.Code != 200 {
		t.Fatalf("metrics endpoint returned %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	return string(body)
}

func TestExporterCounters(t *testing.T) {
	e := NewExporter()

	e.IterationStarted()
	e.IterationStarted()
	e.SyncApplied()
	e.SyncSkipped()
	e.WorkerExited(0)
	e.WorkerExited(1)
	e.WorkerStartFailed()

	body := scrape(t, e)

	wantLines := []string{
		`botsentry_iterations_total 2`,
		`botsentry_syncs_total{outcome="applied"} 1`,
		`botsentry_syncs_total{outcome="skipped"} 1`,
		`botsentry_syncs_total{outcome="failed"} 0`,
		`botsentry_worker_exits_total{result="success"} 1`,
		`botsentry_worker_exits_total{result="failure"} 1`,
		`botsentry_worker_start_failures_total 1`,
	}
	for _, line := range wantLines {
		if !strings.Contains(body, line) {
			t.Errorf("metrics output missing %q", line)
		}
	}
}

func TestExporterSignalExit(t *testing.T) {
	e := NewExporter()
	e.WorkerExited(-1)

	body := scrape(t, e)
	if !strings.Contains(body, `botsentry_worker_exits_total{result="signal"} 1`) {
		t.Error("signal exit not counted under result=signal")
	}
}

func TestExporterGauges(t *testing.T) {
	e := NewExporter()

	body := scrape(t, e)
	if !strings.Contains(body, "botsentry_uptime_seconds") {
		t.Error("metrics output missing uptime gauge")
	}
	if !strings.Contains(body, "botsentry_worker_running 0") {
		t.Error("worker_running should be 0 before any run")
	}
	if strings.Contains(body, "botsentry_worker_last_exit_code") {
		t.Error("last_exit_code exported before any worker exited")
	}

	e.WorkerStarted(999)
	body = scrape(t, e)
	if !strings.Contains(body, "botsentry_worker_running 1") {
		t.Error("worker_running should be 1 while a worker runs")
	}

	e.WorkerExited(4)
	body = scrape(t, e)
	if !strings.Contains(body, "botsentry_worker_running 0") {
		t.Error("worker_running should drop back to 0 after exit")
	}
	if !strings.Contains(body, "botsentry_worker_last_exit_code 4") {
		t.Error("last_exit_code gauge missing after exit")
	}
}
