// Package memory implements the job store as an in-process map. One
// goroutine (the job's continuation) writes a given job; pollers only
// read, and they receive value snapshots.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sitescope/sitescope/internal/analysis"
)

// Store keeps comprehensive analysis jobs in a mutex-guarded map.
type Store struct {
	mu    sync.RWMutex
	jobs  map[string]analysis.Job
	clock analysis.Clock
}

// NewStore constructs a Store.
func NewStore(clock analysis.Clock) *Store {
	return &Store{
		jobs:  make(map[string]analysis.Job),
		clock: clock,
	}
}

// CreateJob stores a new job.
func (s *Store) CreateJob(_ context.Context, job analysis.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	s.jobs[job.ID] = job
	return nil
}

// GetJob returns a snapshot of the job. Pointer fields are treated as
// immutable once stored, so sharing them with callers is safe.
func (s *Store) GetJob(_ context.Context, jobID string) (analysis.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return analysis.Job{}, analysis.ErrNotFound
	}
	return job, nil
}

// UpdateJob folds an update into the stored job. Terminal jobs reject
// further updates; progress never moves backwards.
func (s *Store) UpdateJob(_ context.Context, jobID string, update analysis.JobUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return analysis.ErrNotFound
	}
	if job.Status.Terminal() {
		return fmt.Errorf("job %s is %s and can no longer change", jobID, job.Status)
	}
	job.Apply(update, s.clock.Now())
	s.jobs[jobID] = job
	return nil
}

// Len reports how many jobs are held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// StartSweeper evicts terminal jobs older than ttl every interval until
// the context ends. Long-lived processes would otherwise accumulate
// finished jobs without bound.
func (s *Store) StartSweeper(ctx context.Context, ttl, interval time.Duration, logger *zap.Logger) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := s.sweep(ttl); removed > 0 {
					logger.Debug("swept finished jobs", zap.Int("count", removed))
				}
			}
		}
	}()
}

func (s *Store) sweep(ttl time.Duration) int {
	cutoff := s.clock.Now().Add(-ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, job := range s.jobs {
		if job.Status.Terminal() && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}
