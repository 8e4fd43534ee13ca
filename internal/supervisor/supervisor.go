package supervisor

// Keep restarting no matter what. A dirty tree, a failed fetch, a crashed
// worker: every outcome ends the iteration and starts the next one.

import (
	"context"
	"sync"
	"time"

	"github.com/psantana5/bot-sentry/internal/worker"
	"github.com/psantana5/bot-sentry/pkg/logging"
	"github.com/psantana5/bot-sentry/pkg/models"
	"github.com/psantana5/bot-sentry/pkg/store"
)

// Syncer resynchronizes the working tree before a run
type Syncer interface {
	// Dirty reports whether any local modification is pending
	Dirty(ctx context.Context) (bool, error)
	// Sync fetches the tracking branch and hard-resets to it
	Sync(ctx context.Context) error
}

// Runner starts the worker and blocks until it exits
type Runner interface {
	Run(ctx context.Context) (*worker.Result, error)
}

// Metrics receives loop events. pkg/metrics implements it; tests use fakes.
type Metrics interface {
	IterationStarted()
	SyncApplied()
	SyncSkipped()
	SyncFailed()
	WorkerStarted(pid int)
	WorkerExited(exitCode int)
	WorkerStartFailed()
}

// State is the externally visible phase of the loop
type State string

const (
	StateStarting State = "starting"
	StateSyncing  State = "syncing"
	StateRunning  State = "running"
	StateStopped  State = "stopped"
)

// Status is a point-in-time snapshot served by the status endpoint
type Status struct {
	State      State             `json:"state"`
	StartedAt  time.Time         `json:"started_at"`
	Iterations uint64            `json:"iterations"`
	WorkerPID  int               `json:"worker_pid,omitempty"`
	LastRun    *models.RunRecord `json:"last_run,omitempty"`
}

// Config holds supervisor tunables. The zero value means no restart delay
// and no history cap.
type Config struct {
	// RestartDelay is slept between iterations. Zero means loop immediately.
	RestartDelay time.Duration
	// HistoryLimit caps the run-history store. Zero means unbounded.
	HistoryLimit int
}

// Supervisor drives the resync-then-run loop
type Supervisor struct {
	syncer  Syncer
	runner  Runner
	config  Config
	logger  *logging.Logger
	metrics Metrics
	history store.Store

	mu         sync.RWMutex
	state      State
	startedAt  time.Time
	iterations uint64
	workerPID  int
	lastRun    *models.RunRecord
}

// New creates a Supervisor. metrics and history may be nil.
func New(syncer Syncer, runner Runner, config Config, logger *logging.Logger, metrics Metrics, history store.Store) *Supervisor {
	return &Supervisor{
		syncer:  syncer,
		runner:  runner,
		config:  config,
		logger:  logger,
		metrics: metrics,
		history: history,
		state:   StateStarting,
	}
}

// Status returns a snapshot of the loop
func (s *Supervisor) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := Status{
		State:      s.state,
		StartedAt:  s.startedAt,
		Iterations: s.iterations,
		WorkerPID:  s.workerPID,
	}
	if s.lastRun != nil {
		copied := *s.lastRun
		status.LastRun = &copied
	}
	return status
}

// Run executes the loop until ctx is cancelled. That cancellation is the
// only exit path: the loop has no termination condition of its own.
func (s *Supervisor) Run(ctx context.Context) error {
	s.mu.Lock()
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("Supervisor started")

	for {
		select {
		case <-ctx.Done():
			s.setState(StateStopped)
			s.logger.Info("Supervisor stopped", map[string]interface{}{
				"iterations": s.Status().Iterations,
			})
			return ctx.Err()
		default:
		}

		s.iterate(ctx)

		if s.config.RestartDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.config.RestartDelay):
			}
		}
	}
}

// iterate runs one full cycle: dirty check, optional sync, one worker run
func (s *Supervisor) iterate(ctx context.Context) {
	s.mu.Lock()
	s.iterations++
	iteration := s.iterations
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.IterationStarted()
	}

	outcome, syncErr := s.resync(ctx)

	record := s.runWorker(ctx, outcome, syncErr)

	s.record(iteration, record)
}

// resync decides whether the tree may be reset and performs the reset.
// A dirty tree is authoritative: local changes are never discarded.
func (s *Supervisor) resync(ctx context.Context) (models.SyncOutcome, error) {
	s.setState(StateSyncing)

	dirty, err := s.syncer.Dirty(ctx)
	if err != nil {
		// If the status check itself fails, leave the tree alone
		s.logger.Warn("Working-tree status check failed, skipping sync", map[string]interface{}{
			"error": err.Error(),
		})
		if s.metrics != nil {
			s.metrics.SyncSkipped()
		}
		return models.SyncSkipped, nil
	}

	if dirty {
		s.logger.Info("Working tree has local modifications, skipping sync")
		if s.metrics != nil {
			s.metrics.SyncSkipped()
		}
		return models.SyncSkipped, nil
	}

	if err := s.syncer.Sync(ctx); err != nil {
		s.logger.Warn("Sync failed, running worker anyway", map[string]interface{}{
			"error": err.Error(),
		})
		if s.metrics != nil {
			s.metrics.SyncFailed()
		}
		return models.SyncFailed, err
	}

	s.logger.Info("Working tree reset to remote branch")
	if s.metrics != nil {
		s.metrics.SyncApplied()
	}
	return models.SyncApplied, nil
}

// runWorker executes one worker run and builds its history record
func (s *Supervisor) runWorker(ctx context.Context, outcome models.SyncOutcome, syncErr error) *models.RunRecord {
	s.setState(StateRunning)

	record := &models.RunRecord{Sync: outcome}
	if syncErr != nil {
		record.SyncError = syncErr.Error()
	}

	result, err := s.runner.Run(ctx)
	if err != nil {
		// Start failure: absorbed like any other worker failure
		s.logger.Error("Worker failed to start", map[string]interface{}{
			"error": err.Error(),
		})
		if s.metrics != nil {
			s.metrics.WorkerStartFailed()
		}
		now := time.Now()
		record.StartedAt = now
		record.FinishedAt = now
		record.ExitCode = -1
		return record
	}

	s.mu.Lock()
	s.workerPID = result.PID
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.WorkerStarted(result.PID)
		s.metrics.WorkerExited(result.ExitCode)
	}

	record.StartedAt = result.StartedAt
	record.FinishedAt = result.FinishedAt
	record.PID = result.PID
	record.ExitCode = result.ExitCode
	record.DurationSec = result.Duration().Seconds()

	s.logger.Info("Worker exited", map[string]interface{}{
		"pid":       result.PID,
		"exit_code": result.ExitCode,
		"duration":  result.Duration().String(),
	})

	return record
}

// record persists the run. Best effort: a store failure never stops the loop.
func (s *Supervisor) record(iteration uint64, record *models.RunRecord) {
	s.mu.Lock()
	s.lastRun = record
	s.workerPID = 0
	s.mu.Unlock()

	if s.history == nil {
		return
	}

	if err := s.history.RecordRun(record); err != nil {
		s.logger.Warn("Failed to record run", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	if s.config.HistoryLimit > 0 && iteration%50 == 0 {
		if err := s.history.Prune(s.config.HistoryLimit); err != nil {
			s.logger.Warn("Failed to prune run history", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}

func (s *Supervisor) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}
