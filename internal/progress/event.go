package progress

import (
	"errors"
	"fmt"
	"time"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart      Stage = "RUN_START"
	StageRunDone       Stage = "RUN_DONE"
	StageRunError      Stage = "RUN_ERROR"
	StageProviderDone  Stage = "PROVIDER_DONE"
	StageJobCheckpoint Stage = "JOB_CHECKPOINT"
)

// Event captures a single milestone of analysis progress.
type Event struct {
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which lifecycle milestone occurred.
	Stage Stage
	// Domain is the site under analysis.
	Domain string
	// JobID scopes checkpoint events to a comprehensive job; ad-hoc runs
	// leave it empty.
	JobID string
	// Provider names the data source for PROVIDER_DONE events.
	Provider string
	// Mode records how the provider produced its data (real, demo, failed).
	Mode string
	// Progress carries the checkpoint percentage for JOB_CHECKPOINT events.
	Progress int
	// Dur captures execution latency for providers and completed runs.
	Dur time.Duration
	// Note lets emitters attach low-volume debug context (e.g. error text).
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	if e.Domain == "" {
		return errors.New("domain is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone, StageRunError:
	case StageProviderDone:
		if e.Provider == "" {
			return errors.New("provider done requires provider")
		}
		if e.Mode == "" {
			return errors.New("provider done requires mode")
		}
	case StageJobCheckpoint:
		if e.JobID == "" {
			return errors.New("job checkpoint requires job id")
		}
		if e.Progress < 0 || e.Progress > 100 {
			return fmt.Errorf("job checkpoint progress %d out of range", e.Progress)
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}
