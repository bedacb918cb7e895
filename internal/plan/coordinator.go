package plan

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sitescope/sitescope/internal/analysis"
	"github.com/sitescope/sitescope/internal/archive"
	"github.com/sitescope/sitescope/internal/metrics"
	"github.com/sitescope/sitescope/internal/progress"
)

// Runner is the slice of the analysis pipeline the coordinator needs.
type Runner interface {
	Run(ctx context.Context, rawURL string) (analysis.Result, error)
}

// CoordinatorConfig controls the comprehensive job continuation.
type CoordinatorConfig struct {
	// Topic receives the terminal event for every job.
	Topic string
	// JobTimeout bounds one continuation end to end.
	JobTimeout time.Duration
}

// Coordinator owns comprehensive jobs: it creates them, advances them
// through fixed checkpoints in a background continuation, and publishes
// the terminal event. Each job is written only by its own continuation;
// pollers read snapshots through the store.
type Coordinator struct {
	runner  Runner
	store   analysis.JobStore
	gen     *Generator
	ids     analysis.IDGenerator
	clock   analysis.Clock
	archive *archive.Store
	pub     analysis.Publisher
	emitter progress.Emitter
	cfg     CoordinatorConfig
	logger  *zap.Logger
}

// NewCoordinator constructs a Coordinator. A nil publisher disables the
// terminal event, a nil archive disables snapshots.
func NewCoordinator(
	runner Runner,
	store analysis.JobStore,
	gen *Generator,
	ids analysis.IDGenerator,
	clock analysis.Clock,
	archive *archive.Store,
	pub analysis.Publisher,
	emitter progress.Emitter,
	cfg CoordinatorConfig,
	logger *zap.Logger,
) *Coordinator {
	if cfg.Topic == "" {
		cfg.Topic = "analysis.completed"
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Minute
	}
	return &Coordinator{
		runner:  runner,
		store:   store,
		gen:     gen,
		ids:     ids,
		clock:   clock,
		archive: archive,
		pub:     pub,
		emitter: emitter,
		cfg:     cfg,
		logger:  logger,
	}
}

// Start validates the URL, persists a fresh running job, and spawns the
// continuation. It returns the job snapshot immediately; callers poll
// the store for progress.
func (c *Coordinator) Start(ctx context.Context, rawURL string) (analysis.Job, error) {
	pageURL, domain, err := analysis.NormalizeURL(rawURL)
	if err != nil {
		return analysis.Job{}, err
	}

	id, err := c.ids.NewID()
	if err != nil {
		return analysis.Job{}, fmt.Errorf("new job id: %w", err)
	}
	job := analysis.Job{
		ID:        id,
		Domain:    domain,
		Status:    analysis.JobStatusRunning,
		CreatedAt: c.clock.Now().UTC(),
	}
	if err := c.store.CreateJob(ctx, job); err != nil {
		return analysis.Job{}, fmt.Errorf("create job: %w", err)
	}

	metrics.IncActiveJobs()
	c.logger.Info("comprehensive analysis started",
		zap.String("job_id", job.ID),
		zap.String("domain", job.Domain))
	go c.continuation(pageURL, job)
	return job, nil
}

// continuation advances one job through its fixed checkpoints. Panics
// are recovered into a failed status so a bug in one stage cannot leave
// a job running forever.
func (c *Coordinator) continuation(pageURL string, job analysis.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.JobTimeout)
	defer cancel()
	defer metrics.DecActiveJobs()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("comprehensive job panicked",
				zap.String("job_id", job.ID),
				zap.Any("panic", r))
			c.fail(job, fmt.Sprintf("internal error: %v", r))
		}
	}()

	c.advance(ctx, job, analysis.JobUpdate{Progress: 10})

	result, err := c.runner.Run(ctx, pageURL)
	if err != nil {
		c.fail(job, err.Error())
		return
	}
	c.advance(ctx, job, analysis.JobUpdate{Progress: 25, BasicAnalysis: &result})

	agents := RunAgents(result)
	c.advance(ctx, job, analysis.JobUpdate{Progress: 50, AgentResults: agents})

	actionPlan := c.gen.Generate(ctx, result, agents)
	c.advance(ctx, job, analysis.JobUpdate{Progress: 70, ActionPlan: &actionPlan})

	competitive := BuildCompetitiveIntelligence(result)
	c.advance(ctx, job, analysis.JobUpdate{Progress: 85, CompetitiveIntel: &competitive})

	contentStrategy := BuildContentStrategy(result)
	c.advance(ctx, job, analysis.JobUpdate{Progress: 95, ContentStrategy: &contentStrategy})

	tracking := BuildProgressTracking(result, actionPlan)
	c.advance(ctx, job, analysis.JobUpdate{
		Progress:         100,
		Status:           analysis.JobStatusCompleted,
		ProgressTracking: &tracking,
	})
	c.logger.Info("comprehensive analysis completed",
		zap.String("job_id", job.ID),
		zap.String("domain", job.Domain))
	c.finalize(job.ID)
}

// advance applies one checkpoint update and emits the matching event. A
// store failure is logged and the continuation keeps going; pollers see
// stale progress rather than a dead job.
func (c *Coordinator) advance(ctx context.Context, job analysis.Job, update analysis.JobUpdate) {
	if err := c.store.UpdateJob(ctx, job.ID, update); err != nil {
		c.logger.Error("job update failed",
			zap.String("job_id", job.ID),
			zap.Int("progress", update.Progress),
			zap.Error(err))
	}
	c.emit(progress.Event{
		Stage:    progress.StageJobCheckpoint,
		Domain:   job.Domain,
		JobID:    job.ID,
		Progress: update.Progress,
	})
}

// fail marks the job failed. Terminal writes use a fresh context so a
// timed-out continuation can still record its own failure.
func (c *Coordinator) fail(job analysis.Job, errText string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.store.UpdateJob(ctx, job.ID, analysis.JobUpdate{
		Status: analysis.JobStatusFailed,
		Error:  errText,
	}); err != nil {
		c.logger.Error("job failure update failed",
			zap.String("job_id", job.ID),
			zap.Error(err))
	}
	c.logger.Warn("comprehensive analysis failed",
		zap.String("job_id", job.ID),
		zap.String("domain", job.Domain),
		zap.String("error", errText))
	c.emit(progress.Event{
		Stage:  progress.StageRunError,
		Domain: job.Domain,
		JobID:  job.ID,
		Note:   errText,
	})
	c.finalize(job.ID)
}

// finalize reads the terminal snapshot, archives it, and publishes the
// completion event.
func (c *Coordinator) finalize(jobID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snapshot, err := c.store.GetJob(ctx, jobID)
	if err != nil {
		c.logger.Error("job snapshot read failed", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	metrics.ObserveJob(string(snapshot.Status))

	if uri, err := c.archive.SaveJob(ctx, snapshot); err != nil {
		c.logger.Warn("job snapshot archive failed", zap.String("job_id", jobID), zap.Error(err))
	} else if uri != "" {
		c.logger.Debug("job archived", zap.String("job_id", jobID), zap.String("uri", uri))
	}

	if c.pub == nil {
		return
	}
	payload := map[string]any{
		"analysis_id": snapshot.ID,
		"domain":      snapshot.Domain,
		"status":      string(snapshot.Status),
		"progress":    snapshot.Progress,
		"created_at":  snapshot.CreatedAt.Format(time.RFC3339),
	}
	if snapshot.CompletedAt != nil {
		payload["completed_at"] = snapshot.CompletedAt.Format(time.RFC3339)
	}
	if _, err := c.pub.Publish(ctx, c.cfg.Topic, payload); err != nil {
		c.logger.Warn("completion publish failed", zap.String("job_id", jobID), zap.Error(err))
	}
}

func (c *Coordinator) emit(evt progress.Event) {
	if c.emitter == nil {
		return
	}
	evt.TS = c.clock.Now().UTC()
	c.emitter.Emit(evt)
}
