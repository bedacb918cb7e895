package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitescope/sitescope/internal/analysis"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewStoreWithPool(mock, fixedClock{now: testNow})
	require.NoError(t, err)
	return store, mock
}

func runningJob(id string) analysis.Job {
	return analysis.Job{
		ID:        id,
		Domain:    "example.com",
		Status:    analysis.JobStatusRunning,
		Progress:  10,
		CreatedAt: testNow.Add(-time.Minute),
	}
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestCreateJobInsertsRow(t *testing.T) {
	t.Parallel()

	store, mock := newTestStore(t)
	job := runningJob("job-1")

	mock.ExpectExec("INSERT INTO analysis_jobs").
		WithArgs(job.ID, job.Domain, "running", 10, job.CreatedAt, mustMarshal(t, job)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.CreateJob(context.Background(), job))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetJobDecodesPayload(t *testing.T) {
	t.Parallel()

	store, mock := newTestStore(t)
	job := runningJob("job-1")

	mock.ExpectQuery("SELECT payload FROM analysis_jobs").
		WithArgs("job-1").
		WillReturnRows(pgxmock.NewRows([]string{"payload"}).AddRow(mustMarshal(t, job)))

	got, err := store.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, "example.com", got.Domain)
	assert.Equal(t, analysis.JobStatusRunning, got.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetJobNotFound(t *testing.T) {
	t.Parallel()

	store, mock := newTestStore(t)

	mock.ExpectQuery("SELECT payload FROM analysis_jobs").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.GetJob(context.Background(), "missing")
	assert.ErrorIs(t, err, analysis.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateJobAppliesAndPersists(t *testing.T) {
	t.Parallel()

	store, mock := newTestStore(t)
	job := runningJob("job-1")

	update := analysis.JobUpdate{
		Progress: 100,
		Status:   analysis.JobStatusCompleted,
		BasicAnalysis: &analysis.Result{
			Domain:   "example.com",
			SEOScore: 74,
		},
	}

	applied := job
	applied.Apply(update, testNow)

	mock.ExpectQuery("SELECT payload FROM analysis_jobs").
		WithArgs("job-1").
		WillReturnRows(pgxmock.NewRows([]string{"payload"}).AddRow(mustMarshal(t, job)))
	mock.ExpectExec("UPDATE analysis_jobs").
		WithArgs("job-1", "completed", 100, applied.CompletedAt, mustMarshal(t, applied)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.UpdateJob(context.Background(), "job-1", update))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateJobRejectsTerminal(t *testing.T) {
	t.Parallel()

	store, mock := newTestStore(t)
	job := runningJob("job-1")
	job.Status = analysis.JobStatusFailed

	mock.ExpectQuery("SELECT payload FROM analysis_jobs").
		WithArgs("job-1").
		WillReturnRows(pgxmock.NewRows([]string{"payload"}).AddRow(mustMarshal(t, job)))

	err := store.UpdateJob(context.Background(), "job-1", analysis.JobUpdate{Progress: 50})
	assert.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepDeletesOldTerminalJobs(t *testing.T) {
	t.Parallel()

	store, mock := newTestStore(t)

	mock.ExpectExec("DELETE FROM analysis_jobs").
		WithArgs(testNow.Add(-24 * time.Hour)).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	removed, err := store.Sweep(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
	require.NoError(t, mock.ExpectationsWereMet())
}
