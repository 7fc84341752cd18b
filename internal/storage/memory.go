package storage

import (
	"context"
	"slices"
	"sync"
)

const maxMemoryRuns = 500

// MemoryStorage keeps settings and recent runs in-memory and guards access with a RWMutex.
type MemoryStorage struct {
	mu       sync.RWMutex
	settings Settings
	runs     []Run
}

var _ Storage = (*MemoryStorage)(nil)

// NewMemoryStorage initialises storage with the default settings.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		settings: DefaultSettings(),
	}
}

// GetSettings returns the current settings.
func (s *MemoryStorage) GetSettings(_ context.Context) (Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.settings, nil
}

// SetSettings validates and stores the provided settings.
func (s *MemoryStorage) SetSettings(_ context.Context, settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()

	return nil
}

// SaveRun stores a copy of run, dropping the oldest runs beyond the retention cap.
func (s *MemoryStorage) SaveRun(_ context.Context, run Run) (Run, error) {
	run = prepareRun(run)
	run.Result = slices.Clone(run.Result)

	s.mu.Lock()
	s.runs = append(s.runs, run)
	if len(s.runs) > maxMemoryRuns {
		s.runs = slices.Delete(s.runs, 0, len(s.runs)-maxMemoryRuns)
	}
	s.mu.Unlock()

	return run, nil
}

// GetRun returns the run with the given id.
func (s *MemoryStorage) GetRun(_ context.Context, id string) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, run := range s.runs {
		if run.ID == id {
			run.Result = slices.Clone(run.Result)
			return run, nil
		}
	}
	return Run{}, ErrRunNotFound
}

// ListRuns returns up to limit runs, newest first, without their results.
func (s *MemoryStorage) ListRuns(_ context.Context, limit int) ([]Run, error) {
	limit = clampLimit(limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Run, 0, min(limit, len(s.runs)))
	for i := len(s.runs) - 1; i >= 0 && len(out) < limit; i-- {
		run := s.runs[i]
		run.Result = nil
		out = append(out, run)
	}
	return out, nil
}

// Close is a no-op for in-memory storage.
func (s *MemoryStorage) Close() error {
	return nil
}
