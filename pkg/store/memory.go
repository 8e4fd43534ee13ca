package store

import (
	"sync"

	"github.com/psantana5/bot-sentry/pkg/models"
)

// MemoryStore is an in-memory implementation of the run-history store,
// used in tests and when no database path is wanted
type MemoryStore struct {
	mu     sync.RWMutex
	runs   []*models.RunRecord
	nextID int64
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

// RecordRun persists a completed worker run
func (s *MemoryStore) RecordRun(run *models.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run.ID = s.nextID
	s.nextID++

	stored := *run
	s.runs = append(s.runs, &stored)
	return nil
}

// GetRun returns a single run by ID
func (s *MemoryStore) GetRun(id int64) (*models.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, run := range s.runs {
		if run.ID == id {
			copied := *run
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

// ListRuns returns the most recent runs, newest first
func (s *MemoryStore) ListRuns(limit int) ([]*models.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	var runs []*models.RunRecord
	for i := len(s.runs) - 1; i >= 0 && len(runs) < limit; i-- {
		copied := *s.runs[i]
		runs = append(runs, &copied)
	}
	return runs, nil
}

// LastRun returns the most recent run, or ErrNotFound if none exist
func (s *MemoryStore) LastRun() (*models.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.runs) == 0 {
		return nil, ErrNotFound
	}
	copied := *s.runs[len(s.runs)-1]
	return &copied, nil
}

// CountRuns returns the total number of recorded runs
func (s *MemoryStore) CountRuns() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs), nil
}

// Prune deletes all but the newest keep runs
func (s *MemoryStore) Prune(keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep < 0 {
		keep = 0
	}
	if len(s.runs) > keep {
		s.runs = s.runs[len(s.runs)-keep:]
	}
	return nil
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}

// HealthCheck always succeeds for the in-memory store
func (s *MemoryStore) HealthCheck() error {
	return nil
}
