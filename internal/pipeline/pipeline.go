// Package pipeline orchestrates the multi-stage analysis run: business
// intelligence first, then the provider stages fanned out concurrently,
// then score assembly and caching.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/sitescope/sitescope/internal/analysis"
	"github.com/sitescope/sitescope/internal/archive"
	"github.com/sitescope/sitescope/internal/metrics"
	"github.com/sitescope/sitescope/internal/progress"
	"github.com/sitescope/sitescope/internal/provider"
)

// demoMessage is attached to results that contain sample or fallback data.
const demoMessage = "Some metrics are sample data. Configure provider API keys to see live results."

// IntelExtractor builds a business profile from the site's own pages.
type IntelExtractor interface {
	Analyze(ctx context.Context, pageURL string) analysis.BusinessIntelligence
}

// PerformanceProvider measures page speed for a domain.
type PerformanceProvider interface {
	Measure(ctx context.Context, domain string) provider.Outcome[analysis.PageSpeed]
}

// CompetitorProvider discovers the ranked competitive landscape.
type CompetitorProvider interface {
	Discover(ctx context.Context, domain string, bi analysis.BusinessIntelligence) provider.Outcome[[]analysis.Competitor]
}

// KeywordProvider researches target keywords for a domain.
type KeywordProvider interface {
	Research(ctx context.Context, domain string, bi analysis.BusinessIntelligence) provider.Outcome[[]analysis.KeywordMetric]
}

// PresenceProvider checks how the domain shows up on a results page.
type PresenceProvider interface {
	Check(ctx context.Context, domain string, bi analysis.BusinessIntelligence) provider.Outcome[analysis.SERPPresence]
}

// Config controls Pipeline timeouts.
type Config struct {
	// ProviderTimeout bounds each provider stage individually.
	ProviderTimeout time.Duration
	// RunTimeout bounds a full shared execution, intel crawl included.
	RunTimeout time.Duration
}

// Pipeline runs the fixed stage sequence for one URL and assembles the
// result. Safe for concurrent use; concurrent misses on the same domain
// share a single execution.
type Pipeline struct {
	cache       analysis.ResultCache
	intel       IntelExtractor
	performance PerformanceProvider
	competitors CompetitorProvider
	keywords    KeywordProvider
	presence    PresenceProvider
	archive     *archive.Store
	emitter     progress.Emitter
	clock       analysis.Clock
	cfg         Config
	logger      *zap.Logger

	flight singleflight.Group
}

// New constructs a Pipeline. A nil archive disables snapshots and a nil
// emitter disables progress events.
func New(
	cache analysis.ResultCache,
	intel IntelExtractor,
	performance PerformanceProvider,
	competitors CompetitorProvider,
	keywords KeywordProvider,
	presence PresenceProvider,
	archive *archive.Store,
	emitter progress.Emitter,
	clock analysis.Clock,
	cfg Config,
	logger *zap.Logger,
) *Pipeline {
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 10 * time.Second
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 90 * time.Second
	}
	return &Pipeline{
		cache:       cache,
		intel:       intel,
		performance: performance,
		competitors: competitors,
		keywords:    keywords,
		presence:    presence,
		archive:     archive,
		emitter:     emitter,
		clock:       clock,
		cfg:         cfg,
		logger:      logger,
	}
}

// Run analyzes one URL. Within the cache TTL, repeated calls for the same
// domain return the stored result without touching any provider.
func (p *Pipeline) Run(ctx context.Context, rawURL string) (analysis.Result, error) {
	pageURL, domain, err := analysis.NormalizeURL(rawURL)
	if err != nil {
		return analysis.Result{}, err
	}

	if result, ok := p.lookup(ctx, domain); ok {
		return result, nil
	}

	// Concurrent misses join one in-flight execution. The shared run is
	// detached from the first caller's context so one canceled request
	// cannot fail the others waiting on the same domain.
	value, err, shared := p.flight.Do(domain, func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.RunTimeout)
		defer cancel()
		return p.execute(runCtx, pageURL, domain)
	})
	if err != nil {
		return analysis.Result{}, err
	}
	if shared {
		p.logger.Debug("joined in-flight analysis", zap.String("domain", domain))
	}
	return value.(analysis.Result), nil
}

// execute performs one full analysis. It never fails on provider
// degradation; the only error path is a recovered panic, which keeps a
// bug in one stage from tearing down every request joined on the flight.
func (p *Pipeline) execute(ctx context.Context, pageURL, domain string) (result analysis.Result, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analysis run panicked: %v", r)
			p.logger.Error("analysis run panicked",
				zap.String("domain", domain),
				zap.Any("panic", r))
			p.emit(progress.Event{
				Stage:  progress.StageRunError,
				Domain: domain,
				Dur:    time.Since(start),
				Note:   err.Error(),
			})
		}
	}()

	p.emit(progress.Event{Stage: progress.StageRunStart, Domain: domain})
	p.logger.Info("analysis started", zap.String("domain", domain), zap.String("url", pageURL))

	bi := p.intel.Analyze(ctx, pageURL)

	var (
		perf provider.Outcome[analysis.PageSpeed]
		comp provider.Outcome[[]analysis.Competitor]
		kw   provider.Outcome[[]analysis.KeywordMetric]
		pres provider.Outcome[analysis.SERPPresence]
	)
	g, groupCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		perf = runStage(p, groupCtx, domain, "pagespeed", func(stageCtx context.Context) provider.Outcome[analysis.PageSpeed] {
			return p.performance.Measure(stageCtx, domain)
		})
		return nil
	})
	g.Go(func() error {
		comp = runStage(p, groupCtx, domain, "competitors", func(stageCtx context.Context) provider.Outcome[[]analysis.Competitor] {
			return p.competitors.Discover(stageCtx, domain, bi)
		})
		return nil
	})
	g.Go(func() error {
		kw = runStage(p, groupCtx, domain, "keywords", func(stageCtx context.Context) provider.Outcome[[]analysis.KeywordMetric] {
			return p.keywords.Research(stageCtx, domain, bi)
		})
		return nil
	})
	g.Go(func() error {
		pres = runStage(p, groupCtx, domain, "serp_presence", func(stageCtx context.Context) provider.Outcome[analysis.SERPPresence] {
			return p.presence.Check(stageCtx, domain, bi)
		})
		return nil
	})
	_ = g.Wait()

	result = assemble(domain, bi, perf, comp, kw, pres, p.clock.Now().UTC())

	p.store(ctx, domain, result)
	if uri, archiveErr := p.archive.SaveResult(ctx, result); archiveErr != nil {
		p.logger.Warn("result snapshot failed", zap.String("domain", domain), zap.Error(archiveErr))
	} else if uri != "" {
		p.logger.Debug("result archived", zap.String("domain", domain), zap.String("uri", uri))
	}

	p.emit(progress.Event{Stage: progress.StageRunDone, Domain: domain, Dur: time.Since(start)})
	p.logger.Info("analysis finished",
		zap.String("domain", domain),
		zap.Int("seo_score", result.SEOScore),
		zap.Bool("demo_mode", result.IsDemoMode),
		zap.Duration("took", time.Since(start)))
	return result, nil
}

// runStage bounds one provider call with the stage timeout and emits its
// completion event. Free function because methods cannot be generic.
func runStage[T any](p *Pipeline, ctx context.Context, domain, name string, call func(context.Context) provider.Outcome[T]) provider.Outcome[T] {
	stageCtx, cancel := context.WithTimeout(ctx, p.cfg.ProviderTimeout)
	defer cancel()

	start := time.Now()
	out := call(stageCtx)
	took := time.Since(start)

	note := ""
	if out.Err != nil {
		note = out.Err.Error()
	}
	p.emit(progress.Event{
		Stage:    progress.StageProviderDone,
		Domain:   domain,
		Provider: name,
		Mode:     string(out.Mode),
		Dur:      took,
		Note:     note,
	})
	p.logger.Debug("stage finished",
		zap.String("domain", domain),
		zap.String("provider", name),
		zap.String("mode", string(out.Mode)),
		zap.Duration("took", took))
	return out
}

func (p *Pipeline) lookup(ctx context.Context, domain string) (analysis.Result, bool) {
	result, ok, err := p.cache.Get(ctx, domain)
	if err != nil {
		metrics.ObserveCacheEvent("error")
		p.logger.Warn("cache read failed", zap.String("domain", domain), zap.Error(err))
		return analysis.Result{}, false
	}
	if !ok {
		metrics.ObserveCacheEvent("miss")
		return analysis.Result{}, false
	}
	metrics.ObserveCacheEvent("hit")
	p.logger.Debug("cache hit", zap.String("domain", domain))
	return result, true
}

func (p *Pipeline) store(ctx context.Context, domain string, result analysis.Result) {
	if err := p.cache.Set(ctx, domain, result); err != nil {
		metrics.ObserveCacheEvent("error")
		p.logger.Warn("cache write failed", zap.String("domain", domain), zap.Error(err))
	}
}

func (p *Pipeline) emit(evt progress.Event) {
	if p.emitter == nil {
		return
	}
	evt.TS = p.clock.Now().UTC()
	p.emitter.Emit(evt)
}
