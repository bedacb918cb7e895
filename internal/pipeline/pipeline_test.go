package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sitescope/sitescope/internal/analysis"
	"github.com/sitescope/sitescope/internal/archive"
	archivemem "github.com/sitescope/sitescope/internal/archive/memory"
	"github.com/sitescope/sitescope/internal/metrics"
	"github.com/sitescope/sitescope/internal/progress"
	"github.com/sitescope/sitescope/internal/provider"
)

func TestRunRejectsInvalidURL(t *testing.T) {
	t.Parallel()
	metrics.Init()

	env := newEnv()
	p := env.pipeline(t)

	_, err := p.Run(context.Background(), "not a url")
	require.Error(t, err)
	assert.ErrorIs(t, err, analysis.ErrInvalidURL)
	assert.Zero(t, env.performance.calls.Load())
	assert.Zero(t, env.intel.calls.Load())
}

func TestRunAssemblesRealResult(t *testing.T) {
	t.Parallel()
	metrics.Init()

	env := newEnv()
	env.performance.outcome = provider.Real(analysis.PageSpeed{
		Mobile:                 80,
		Desktop:                90,
		FirstContentfulPaint:   1.4,
		LargestContentfulPaint: 2.1,
		CumulativeLayoutShift:  0.05,
	})
	env.competitors.outcome = provider.Real([]analysis.Competitor{
		{Name: "rival-one.example", Score: 84, Ranking: 1},
		{Name: "example.com", Score: 61, Ranking: 2},
		{Name: "rival-two.example", Score: 52, Ranking: 3},
	})
	env.keywords.outcome = provider.Real([]analysis.KeywordMetric{
		{Keyword: "plumber austin", Position: 4, Difficulty: "medium", Volume: 2400},
	})
	env.presence.outcome = provider.Real(analysis.SERPPresence{
		Organic: analysis.OrganicPresence{Found: true, Position: 4},
	})
	p := env.pipeline(t)

	result, err := p.Run(context.Background(), "example.com")
	require.NoError(t, err)

	assert.Equal(t, "example.com", result.Domain)
	// 0.3*80 + 0.2*90 + 0.3*100 + 0.2*61 = 84.2 -> 84
	assert.Equal(t, 84, result.SEOScore)
	assert.Equal(t, 100, result.TechnicalSEO.Score)
	assert.Empty(t, result.TechnicalSEO.Issues)
	assert.Len(t, result.Competitors, 3)
	assert.Equal(t, 2, result.MarketPosition.Rank)
	assert.Equal(t, 3, result.MarketPosition.TotalCompetitors)
	assert.InDelta(t, 20.0, result.MarketPosition.MarketShare, 0.001)
	assert.False(t, result.IsDemoMode)
	assert.Empty(t, result.DemoMessage)
	assert.Empty(t, result.Improvements)
	assert.Equal(t, env.clock.Now().UTC(), result.GeneratedAt)

	stored, ok, err := env.cache.Get(context.Background(), "example.com")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, result, stored)
}

func TestRunReturnsCachedResultWithoutProviders(t *testing.T) {
	t.Parallel()
	metrics.Init()

	env := newEnv()
	cached := analysis.Result{Domain: "example.com", SEOScore: 77}
	require.NoError(t, env.cache.Set(context.Background(), "example.com", cached))
	p := env.pipeline(t)

	result, err := p.Run(context.Background(), "https://example.com/pricing")
	require.NoError(t, err)
	assert.Equal(t, cached, result)
	assert.Zero(t, env.intel.calls.Load())
	assert.Zero(t, env.performance.calls.Load())
	assert.Zero(t, env.competitors.calls.Load())
}

func TestRunCacheErrorIsTreatedAsMiss(t *testing.T) {
	t.Parallel()
	metrics.Init()

	env := newEnv()
	env.cache.getErr = errors.New("backend down")
	p := env.pipeline(t)

	result, err := p.Run(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, "example.com", result.Domain)
	assert.Equal(t, int64(1), env.performance.calls.Load())
}

func TestRunCacheWriteFailureDoesNotFailRun(t *testing.T) {
	t.Parallel()
	metrics.Init()

	env := newEnv()
	env.cache.setErr = errors.New("write refused")
	p := env.pipeline(t)

	result, err := p.Run(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, "example.com", result.Domain)
}

func TestRunFlagsDemoModeWhenAnyStageDegraded(t *testing.T) {
	t.Parallel()
	metrics.Init()

	env := newEnv()
	env.keywords.outcome = provider.Demo([]analysis.KeywordMetric{
		{Keyword: "demo keyword", Difficulty: "medium", Volume: 1200},
	}, "no credential")
	p := env.pipeline(t)

	result, err := p.Run(context.Background(), "example.com")
	require.NoError(t, err)
	assert.True(t, result.IsDemoMode)
	assert.NotEmpty(t, result.DemoMessage)
	assert.NotEmpty(t, result.Improvements)
}

func TestRunDeduplicatesConcurrentMisses(t *testing.T) {
	t.Parallel()
	metrics.Init()

	env := newEnv()
	release := make(chan struct{})
	env.performance.block = release
	p := env.pipeline(t)

	var wg sync.WaitGroup
	results := make([]analysis.Result, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = p.Run(context.Background(), "example.com")
		}(i)
	}

	// Hold the stage until both callers have missed the cache, so the
	// second joins the first's flight instead of starting its own.
	require.Eventually(t, func() bool {
		return env.cache.gets.Load() >= 2 && env.performance.calls.Load() >= 1
	}, time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, results[0], results[1])
	assert.Equal(t, int64(1), env.intel.calls.Load())
	assert.Equal(t, int64(1), env.performance.calls.Load())
}

func TestRunEmitsProgressEvents(t *testing.T) {
	t.Parallel()
	metrics.Init()

	env := newEnv()
	p := env.pipeline(t)

	_, err := p.Run(context.Background(), "example.com")
	require.NoError(t, err)

	events := env.emitter.snapshot()
	require.NotEmpty(t, events)
	assert.Equal(t, progress.StageRunStart, events[0].Stage)
	assert.Equal(t, progress.StageRunDone, events[len(events)-1].Stage)

	providers := map[string]bool{}
	for _, evt := range events {
		require.NoError(t, evt.Validate())
		assert.Equal(t, "example.com", evt.Domain)
		if evt.Stage == progress.StageProviderDone {
			providers[evt.Provider] = true
		}
	}
	assert.Len(t, providers, 4)
}

func TestRunRecoversStagePanic(t *testing.T) {
	t.Parallel()
	metrics.Init()

	env := newEnv()
	env.competitors.panicWith = "nil map write"
	p := env.pipeline(t)

	_, err := p.Run(context.Background(), "example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	assert.NotErrorIs(t, err, analysis.ErrInvalidURL)

	var sawError bool
	for _, evt := range env.emitter.snapshot() {
		if evt.Stage == progress.StageRunError {
			sawError = true
		}
	}
	assert.True(t, sawError)
}

func TestRunArchivesSnapshot(t *testing.T) {
	t.Parallel()
	metrics.Init()

	env := newEnv()
	blobs := archivemem.NewBlobStore()
	env.archive = archive.New(blobs, "analyses", env.clock)
	p := env.pipeline(t)

	_, err := p.Run(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, blobs.Len())
}

func TestRunStageTimeoutYieldsDegradedResult(t *testing.T) {
	t.Parallel()
	metrics.Init()

	env := newEnv()
	env.presence.waitForCtx = true
	p := env.pipelineWithConfig(t, Config{ProviderTimeout: 20 * time.Millisecond})

	result, err := p.Run(context.Background(), "example.com")
	require.NoError(t, err)
	assert.True(t, result.IsDemoMode)
}

// --- fakes ---

type env struct {
	cache       *stubCache
	intel       *stubIntel
	performance *stubPerformance
	competitors *stubCompetitors
	keywords    *stubKeywords
	presence    *stubPresence
	emitter     *captureEmitter
	archive     *archive.Store
	clock       *fakeClock
}

func newEnv() *env {
	return &env{
		cache:       newStubCache(),
		intel:       &stubIntel{},
		performance: &stubPerformance{outcome: provider.Real(analysis.PageSpeed{Mobile: 75, Desktop: 85, FirstContentfulPaint: 1.5, LargestContentfulPaint: 2.4, CumulativeLayoutShift: 0.04})},
		competitors: &stubCompetitors{outcome: provider.Real([]analysis.Competitor{
			{Name: "rival.example", Score: 80, Ranking: 1},
			{Name: "example.com", Score: 65, Ranking: 2},
		})},
		keywords: &stubKeywords{outcome: provider.Real([]analysis.KeywordMetric{
			{Keyword: "example keyword", Difficulty: "medium", Volume: 1000},
		})},
		presence: &stubPresence{outcome: provider.Real(analysis.SERPPresence{
			Organic: analysis.OrganicPresence{Found: true, Position: 2},
		})},
		emitter: &captureEmitter{},
		clock:   newFakeClock(),
	}
}

func (e *env) pipeline(t *testing.T) *Pipeline {
	t.Helper()
	return e.pipelineWithConfig(t, Config{})
}

func (e *env) pipelineWithConfig(t *testing.T, cfg Config) *Pipeline {
	t.Helper()
	return New(
		e.cache,
		e.intel,
		e.performance,
		e.competitors,
		e.keywords,
		e.presence,
		e.archive,
		e.emitter,
		e.clock,
		cfg,
		zap.NewNop(),
	)
}

type stubCache struct {
	mu      sync.Mutex
	entries map[string]analysis.Result
	gets    atomic.Int64
	getErr  error
	setErr  error
}

func newStubCache() *stubCache {
	return &stubCache{entries: make(map[string]analysis.Result)}
}

func (c *stubCache) Get(_ context.Context, domain string) (analysis.Result, bool, error) {
	c.gets.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return analysis.Result{}, false, c.getErr
	}
	result, ok := c.entries[domain]
	return result, ok, nil
}

func (c *stubCache) Set(_ context.Context, domain string, result analysis.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[domain] = result
	return nil
}

type stubIntel struct {
	calls atomic.Int64
}

func (s *stubIntel) Analyze(_ context.Context, _ string) analysis.BusinessIntelligence {
	s.calls.Add(1)
	return analysis.BusinessIntelligence{
		BusinessType: "business",
		Industry:     "general",
		Keywords:     []string{"example keyword"},
		Description:  "A business.",
	}
}

type stubPerformance struct {
	calls   atomic.Int64
	outcome provider.Outcome[analysis.PageSpeed]
	block   chan struct{}
}

func (s *stubPerformance) Measure(_ context.Context, _ string) provider.Outcome[analysis.PageSpeed] {
	s.calls.Add(1)
	if s.block != nil {
		<-s.block
	}
	return s.outcome
}

type stubCompetitors struct {
	calls     atomic.Int64
	outcome   provider.Outcome[[]analysis.Competitor]
	panicWith string
}

func (s *stubCompetitors) Discover(_ context.Context, _ string, _ analysis.BusinessIntelligence) provider.Outcome[[]analysis.Competitor] {
	s.calls.Add(1)
	if s.panicWith != "" {
		panic(s.panicWith)
	}
	return s.outcome
}

type stubKeywords struct {
	calls   atomic.Int64
	outcome provider.Outcome[[]analysis.KeywordMetric]
}

func (s *stubKeywords) Research(_ context.Context, _ string, _ analysis.BusinessIntelligence) provider.Outcome[[]analysis.KeywordMetric] {
	s.calls.Add(1)
	return s.outcome
}

type stubPresence struct {
	calls      atomic.Int64
	outcome    provider.Outcome[analysis.SERPPresence]
	waitForCtx bool
}

func (s *stubPresence) Check(ctx context.Context, _ string, _ analysis.BusinessIntelligence) provider.Outcome[analysis.SERPPresence] {
	s.calls.Add(1)
	if s.waitForCtx {
		<-ctx.Done()
		return provider.Failed(analysis.SERPPresence{}, ctx.Err())
	}
	return s.outcome
}

type captureEmitter struct {
	mu     sync.Mutex
	events []progress.Event
}

func (c *captureEmitter) Emit(evt progress.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
}

func (c *captureEmitter) snapshot() []progress.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]progress.Event(nil), c.events...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}
