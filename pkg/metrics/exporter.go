package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sync"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Exporter exports Prometheus metrics for the supervisor at /metrics.
// It implements the supervisor's Metrics interface.
type Exporter struct {
	startTime time.Time

	registry      *promclient.Registry
	iterations    promclient.Counter
	syncs         *promclient.CounterVec
	workerExits   *promclient.CounterVec
	startFailures promclient.Counter

	mu           sync.RWMutex
	workerPID    int
	lastExitCode int
	hasExited    bool
}

// NewExporter creates a new supervisor metrics exporter
func NewExporter() *Exporter {
	registry := promclient.NewRegistry()

	e := &Exporter{
		startTime: time.Now(),
		registry:  registry,
		iterations: promclient.NewCounter(promclient.CounterOpts{
			Name: "botsentry_iterations_total",
			Help: "Total supervisor loop iterations",
		}),
		syncs: promclient.NewCounterVec(promclient.CounterOpts{
			Name: "botsentry_syncs_total",
			Help: "Working-tree sync attempts by outcome",
		}, []string{"outcome"}),
		workerExits: promclient.NewCounterVec(promclient.CounterOpts{
			Name: "botsentry_worker_exits_total",
			Help: "Worker exits by result",
		}, []string{"result"}),
		startFailures: promclient.NewCounter(promclient.CounterOpts{
			Name: "botsentry_worker_start_failures_total",
			Help: "Worker invocations that failed to start at all",
		}),
	}

	registry.MustRegister(e.iterations, e.syncs, e.workerExits, e.startFailures)

	// Pre-create label values so every series exists from the first scrape
	for _, outcome := range []string{"applied", "skipped", "failed"} {
		e.syncs.WithLabelValues(outcome)
	}
	for _, result := range []string{"success", "failure", "signal"} {
		e.workerExits.WithLabelValues(result)
	}

	return e
}

// IterationStarted records the start of a loop iteration
func (e *Exporter) IterationStarted() {
	e.iterations.Inc()
}

// SyncApplied records a successful fetch + reset
func (e *Exporter) SyncApplied() {
	e.syncs.WithLabelValues("applied").Inc()
}

// SyncSkipped records a sync skipped because the tree was dirty
func (e *Exporter) SyncSkipped() {
	e.syncs.WithLabelValues("skipped").Inc()
}

// SyncFailed records a failed reset
func (e *Exporter) SyncFailed() {
	e.syncs.WithLabelValues("failed").Inc()
}

// WorkerStarted records the worker PID for the gauge
func (e *Exporter) WorkerStarted(pid int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.workerPID = pid
}

// WorkerExited records a worker exit
func (e *Exporter) WorkerExited(exitCode int) {
	result := "failure"
	switch {
	case exitCode == 0:
		result = "success"
	case exitCode < 0:
		result = "signal"
	}
	e.workerExits.WithLabelValues(result).Inc()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.workerPID = 0
	e.lastExitCode = exitCode
	e.hasExited = true
}

// WorkerStartFailed records a failure to start the worker process
func (e *Exporter) WorkerStartFailed() {
	e.startFailures.Inc()
}

// ServeHTTP serves Prometheus-compatible metrics at /metrics
func (e *Exporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	e.mu.RLock()
	workerPID := e.workerPID
	lastExitCode := e.lastExitCode
	hasExited := e.hasExited
	e.mu.RUnlock()

	// botsentry_uptime_seconds
	fmt.Fprintf(w, "# HELP botsentry_uptime_seconds Time since the supervisor started\n")
	fmt.Fprintf(w, "# TYPE botsentry_uptime_seconds gauge\n")
	fmt.Fprintf(w, "botsentry_uptime_seconds %.0f\n", time.Since(e.startTime).Seconds())

	// botsentry_worker_running
	running := 0
	if workerPID > 0 {
		running = 1
	}
	fmt.Fprintf(w, "\n# HELP botsentry_worker_running Whether a worker process is currently running\n")
	fmt.Fprintf(w, "# TYPE botsentry_worker_running gauge\n")
	fmt.Fprintf(w, "botsentry_worker_running %d\n", running)

	if hasExited {
		fmt.Fprintf(w, "\n# HELP botsentry_worker_last_exit_code Exit code of the most recent worker run\n")
		fmt.Fprintf(w, "# TYPE botsentry_worker_last_exit_code gauge\n")
		fmt.Fprintf(w, "botsentry_worker_last_exit_code %d\n", lastExitCode)
	}

	// Host metrics (best effort; skip on error)
	if cpuPercent, err := cpu.Percent(0, false); err == nil && len(cpuPercent) > 0 {
		fmt.Fprintf(w, "\n# HELP botsentry_host_cpu_usage Host CPU usage percentage (0-100)\n")
		fmt.Fprintf(w, "# TYPE botsentry_host_cpu_usage gauge\n")
		fmt.Fprintf(w, "botsentry_host_cpu_usage %.2f\n", cpuPercent[0])
	}

	if vmStat, err := mem.VirtualMemory(); err == nil {
		fmt.Fprintf(w, "\n# HELP botsentry_host_memory_used_bytes Host memory in use\n")
		fmt.Fprintf(w, "# TYPE botsentry_host_memory_used_bytes gauge\n")
		fmt.Fprintf(w, "botsentry_host_memory_used_bytes %d\n", vmStat.Used)

		fmt.Fprintf(w, "\n# HELP botsentry_host_memory_used_percent Host memory usage percentage\n")
		fmt.Fprintf(w, "# TYPE botsentry_host_memory_used_percent gauge\n")
		fmt.Fprintf(w, "botsentry_host_memory_used_percent %.2f\n", vmStat.UsedPercent)
	}

	// Now append the registered counters via the text encoder
	fmt.Fprintf(w, "\n")

	metricFamilies, err := e.registry.Gather()
	if err != nil {
		fmt.Fprintf(w, "# Error gathering Prometheus metrics: %v\n", err)
		return
	}

	var buf bytes.Buffer
	encoder := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, mf := range metricFamilies {
		if err := encoder.Encode(mf); err != nil {
			fmt.Fprintf(w, "# Error encoding metric %s: %v\n", mf.GetName(), err)
		}
	}

	w.Write(buf.Bytes())
}
