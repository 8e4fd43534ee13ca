package store

import (
	"github.com/psantana5/bot-sentry/pkg/models"
)

// Store defines the interface for run-history persistence
// Both SQLite and the in-memory store implement this interface
type Store interface {
	// RecordRun persists a completed worker run and fills in its ID
	RecordRun(run *models.RunRecord) error
	GetRun(id int64) (*models.RunRecord, error)
	// ListRuns returns the most recent runs, newest first
	ListRuns(limit int) ([]*models.RunRecord, error)
	LastRun() (*models.RunRecord, error)
	CountRuns() (int, error)
	// Prune deletes all but the newest keep runs
	Prune(keep int) error

	// Lifecycle
	Close() error
	HealthCheck() error
}

// Config holds store configuration
type Config struct {
	Type string // "sqlite" or "memory"
	Path string // database file path for sqlite
}

// NewStore creates a store based on configuration
func NewStore(config Config) (Store, error) {
	switch config.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite", "":
		path := config.Path
		if path == "" {
			path = "botsentry.db"
		}
		return NewSQLiteStore(path)
	default:
		return nil, ErrUnsupportedStore
	}
}

var ErrUnsupportedStore = NewError("unsupported store type")

// ErrNotFound is returned when a run ID does not exist
var ErrNotFound = NewError("run not found")

// NewError creates a new error with message
func NewError(message string) error {
	return &storeError{message: message}
}

type storeError struct {
	message string
}

func (e *storeError) Error() string {
	return e.message
}
