// Package postgres implements the job store on Postgres so multiple
// processes can share comprehensive analysis state.
//
// Expected schema:
//
//	CREATE TABLE analysis_jobs (
//	    id           UUID PRIMARY KEY,
//	    domain       TEXT NOT NULL,
//	    status       TEXT NOT NULL,
//	    progress     INT NOT NULL,
//	    created_at   TIMESTAMPTZ NOT NULL,
//	    completed_at TIMESTAMPTZ,
//	    payload      JSONB NOT NULL
//	);
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/sitescope/sitescope/internal/analysis"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store persists jobs as JSONB payloads with scalar columns mirrored
// for indexing and sweeping. The payload is the source of truth.
type Store struct {
	pool  pgxPool
	clock analysis.Clock
}

// NewStore connects a pool and returns a Store.
func NewStore(ctx context.Context, cfg Config, clock analysis.Clock) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("jobs.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool, clock: clock}, nil
}

// NewStoreWithPool constructs a Store from an existing pool (primarily
// for testing).
func NewStoreWithPool(pool pgxPool, clock analysis.Clock) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool, clock: clock}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// CreateJob inserts a new job row.
func (s *Store) CreateJob(ctx context.Context, job analysis.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	query := `
INSERT INTO analysis_jobs (id, domain, status, progress, created_at, payload)
VALUES ($1,$2,$3,$4,$5,$6)`
	if _, err := s.pool.Exec(ctx, query,
		job.ID,
		job.Domain,
		string(job.Status),
		job.Progress,
		job.CreatedAt,
		payload,
	); err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetJob loads a job snapshot by ID.
func (s *Store) GetJob(ctx context.Context, jobID string) (analysis.Job, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM analysis_jobs WHERE id = $1`, jobID,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return analysis.Job{}, analysis.ErrNotFound
	}
	if err != nil {
		return analysis.Job{}, fmt.Errorf("select job: %w", err)
	}

	var job analysis.Job
	if err := json.Unmarshal(payload, &job); err != nil {
		return analysis.Job{}, fmt.Errorf("decode job payload: %w", err)
	}
	return job, nil
}

// UpdateJob folds an update into the stored job. The read-modify-write
// needs no transaction because a job's continuation is its only writer.
func (s *Store) UpdateJob(ctx context.Context, jobID string, update analysis.JobUpdate) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return fmt.Errorf("job %s is %s and can no longer change", jobID, job.Status)
	}
	job.Apply(update, s.clock.Now())

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	query := `
UPDATE analysis_jobs
SET status = $2, progress = $3, completed_at = $4, payload = $5
WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query,
		jobID,
		string(job.Status),
		job.Progress,
		job.CompletedAt,
		payload,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return analysis.ErrNotFound
	}
	return nil
}

// Sweep deletes terminal jobs that finished before now minus ttl and
// reports how many rows went away.
func (s *Store) Sweep(ctx context.Context, ttl time.Duration) (int64, error) {
	cutoff := s.clock.Now().Add(-ttl)
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM analysis_jobs WHERE status IN ('completed','failed') AND completed_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("sweep jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// StartSweeper runs Sweep every interval until the context ends.
func (s *Store) StartSweeper(ctx context.Context, ttl, interval time.Duration, logger *zap.Logger) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := s.Sweep(ctx, ttl)
				if err != nil {
					logger.Warn("job sweep failed", zap.Error(err))
					continue
				}
				if removed > 0 {
					logger.Debug("swept finished jobs", zap.Int64("count", removed))
				}
			}
		}
	}()
}
