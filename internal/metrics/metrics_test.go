package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInit(t *testing.T) {
	// Reset collectors for testing purposes.
	cacheEventsTotal = nil
	jobsTotal = nil
	jobsActive = nil
	synthesisTotal = nil
	httpRequestsTotal = nil
	httpRequestDurationSeconds = nil

	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if cacheEventsTotal == nil || jobsTotal == nil || jobsActive == nil ||
		synthesisTotal == nil || httpRequestsTotal == nil ||
		httpRequestDurationSeconds == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}

	// A simple check to see if a metric can be used.
	ObserveCacheEvent("hit")
	if val := testutil.ToFloat64(cacheEventsTotal.WithLabelValues("hit")); val != 1 {
		t.Errorf("Expected cacheEventsTotal{hit} to be 1, got %f", val)
	}
}

func TestJobGauge(t *testing.T) {
	Init()

	before := testutil.ToFloat64(jobsActive)
	IncActiveJobs()
	IncActiveJobs()
	DecActiveJobs()
	if got := testutil.ToFloat64(jobsActive); got != before+1 {
		t.Errorf("Expected jobsActive to be %f, got %f", before+1, got)
	}

	ObserveJob("completed")
	if val := testutil.ToFloat64(jobsTotal.WithLabelValues("completed")); val < 1 {
		t.Errorf("Expected jobsTotal{completed} >= 1, got %f", val)
	}
}

func TestObserveSynthesis(t *testing.T) {
	Init()

	ObserveSynthesis("valid")
	if val := testutil.ToFloat64(synthesisTotal.WithLabelValues("valid")); val < 1 {
		t.Errorf("Expected synthesisTotal{valid} >= 1, got %f", val)
	}
}
