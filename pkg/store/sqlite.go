package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/psantana5/bot-sentry/pkg/models"
)

// SQLiteStore is a SQLite-based implementation of the run-history store
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Configure SQLite connection string for a single sequential writer
	// - _journal_mode=WAL: readers (status/history commands) don't block the writer
	// - _busy_timeout=10000: wait up to 10 seconds when database is locked
	// - _synchronous=NORMAL: balance between safety and performance
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=10000&_synchronous=NORMAL", dbPath)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer to avoid SQLITE_BUSY; the supervisor writes one row per run
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the database schema
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		pid INTEGER NOT NULL,
		exit_code INTEGER NOT NULL,
		duration_seconds REAL NOT NULL,
		sync TEXT NOT NULL,
		sync_error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// RecordRun persists a completed worker run
func (s *SQLiteStore) RecordRun(run *models.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		INSERT INTO runs (started_at, finished_at, pid, exit_code, duration_seconds, sync, sync_error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt.UTC(), run.FinishedAt.UTC(), run.PID, run.ExitCode,
		run.DurationSec, string(run.Sync), run.SyncError,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read run id: %w", err)
	}
	run.ID = id

	return nil
}

// GetRun returns a single run by ID
func (s *SQLiteStore) GetRun(id int64) (*models.RunRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, started_at, finished_at, pid, exit_code, duration_seconds, sync, sync_error
		FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return run, err
}

// ListRuns returns the most recent runs, newest first
func (s *SQLiteStore) ListRuns(limit int) ([]*models.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, pid, exit_code, duration_seconds, sync, sync_error
		FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// LastRun returns the most recent run, or ErrNotFound if none exist
func (s *SQLiteStore) LastRun() (*models.RunRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, started_at, finished_at, pid, exit_code, duration_seconds, sync, sync_error
		FROM runs ORDER BY id DESC LIMIT 1`)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return run, err
}

// CountRuns returns the total number of recorded runs
func (s *SQLiteStore) CountRuns() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return count, nil
}

// Prune deletes all but the newest keep runs
func (s *SQLiteStore) Prune(keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep < 0 {
		keep = 0
	}

	_, err := s.db.Exec(`
		DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return fmt.Errorf("failed to prune runs: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// HealthCheck verifies the database is reachable
func (s *SQLiteStore) HealthCheck() error {
	return s.db.Ping()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*models.RunRecord, error) {
	var run models.RunRecord
	var syncOutcome string
	var syncError sql.NullString

	err := row.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.PID,
		&run.ExitCode, &run.DurationSec, &syncOutcome, &syncError)
	if err != nil {
		return nil, err
	}

	run.Sync = models.SyncOutcome(syncOutcome)
	if syncError.Valid {
		run.SyncError = syncError.String
	}

	return &run, nil
}
