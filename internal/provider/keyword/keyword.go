// Package keyword researches target keywords. A dedicated volume API
// supplies reported volume and competition when configured; otherwise
// difficulty and volume are derived from SERP characteristics.
package keyword

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/sitescope/sitescope/internal/analysis"
	"github.com/sitescope/sitescope/internal/provider"
	"github.com/sitescope/sitescope/internal/provider/serp"
)

// SearchClient is the slice of the SERP client this provider needs.
type SearchClient interface {
	Configured() bool
	Search(ctx context.Context, query string) (serp.Result, error)
}

// maxTargets bounds how many profile keywords are researched.
const maxTargets = 6

// Config points at the optional keyword volume API.
type Config struct {
	VolumeAPIKey  string
	VolumeBaseURL string
	Timeout       time.Duration
}

// Provider researches keywords for a domain.
type Provider struct {
	cfg        Config
	search     SearchClient
	httpClient *http.Client
	logger     *zap.Logger
}

// New builds a Provider.
func New(cfg Config, search SearchClient, logger *zap.Logger) *Provider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Provider{
		cfg:        cfg,
		search:     search,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Research measures the target keywords. The volume API takes priority
// over SERP-derived estimates; with neither configured, deterministic
// demo metrics are generated.
func (p *Provider) Research(ctx context.Context, domain string, bi analysis.BusinessIntelligence) provider.Outcome[[]analysis.KeywordMetric] {
	targets := targetKeywords(bi)

	switch {
	case p.cfg.VolumeAPIKey != "":
		return p.researchVolume(ctx, targets)
	case p.search.Configured():
		return p.researchSERP(ctx, domain, targets)
	default:
		return provider.Demo(demoKeywords(domain, targets), "keyword credential not configured")
	}
}

// targetKeywords picks the profile's own keywords, or falls back to a
// generic industry template. Targets are never random.
func targetKeywords(bi analysis.BusinessIntelligence) []string {
	if len(bi.Keywords) > 0 {
		targets := bi.Keywords
		if len(targets) > maxTargets {
			targets = targets[:maxTargets]
		}
		return targets
	}
	industry := bi.Industry
	if industry == "" {
		industry = "business"
	}
	return []string{
		industry + " services",
		industry + " solutions",
		industry + " company",
	}
}

func (p *Provider) researchSERP(ctx context.Context, domain string, targets []string) provider.Outcome[[]analysis.KeywordMetric] {
	var (
		metrics []analysis.KeywordMetric
		lastErr error
	)
	for _, target := range targets {
		result, err := p.search.Search(ctx, target)
		if err != nil {
			p.logger.Warn("keyword serp lookup failed",
				zap.String("keyword", target),
				zap.Error(err))
			lastErr = err
			continue
		}
		metrics = append(metrics, metricFromSERP(domain, target, result))
	}
	if len(metrics) == 0 {
		if lastErr == nil {
			lastErr = errors.New("keyword research produced no data")
		}
		return provider.Failed(fallbackKeywords(targets), lastErr)
	}
	return provider.Real(metrics)
}

func (p *Provider) researchVolume(ctx context.Context, targets []string) provider.Outcome[[]analysis.KeywordMetric] {
	var (
		metrics []analysis.KeywordMetric
		lastErr error
	)
	for _, target := range targets {
		volume, competition, err := p.lookupVolume(ctx, target)
		if err != nil {
			p.logger.Warn("keyword volume lookup failed",
				zap.String("keyword", target),
				zap.Error(err))
			lastErr = err
			continue
		}
		metrics = append(metrics, analysis.KeywordMetric{
			Keyword:    target,
			Difficulty: competition,
			Volume:     volume,
		})
	}
	if len(metrics) == 0 {
		if lastErr == nil {
			lastErr = errors.New("keyword research produced no data")
		}
		return provider.Failed(fallbackKeywords(targets), lastErr)
	}
	return provider.Real(metrics)
}

func (p *Provider) lookupVolume(ctx context.Context, keyword string) (int, string, error) {
	endpoint, err := url.Parse(p.cfg.VolumeBaseURL)
	if err != nil {
		return 0, "", fmt.Errorf("parse keyword base url: %w", err)
	}
	params := url.Values{}
	params.Set("keyword", keyword)
	params.Set("api_key", p.cfg.VolumeAPIKey)
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return 0, "", err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, "", fmt.Errorf("keyword API returned %d", resp.StatusCode)
	}

	var payload struct {
		Volume      int    `json:"volume"`
		Competition string `json:"competition"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, "", fmt.Errorf("decode keyword response: %w", err)
	}

	competition := payload.Competition
	switch competition {
	case "low", "medium", "high":
	default:
		competition = "medium"
	}
	return payload.Volume, competition, nil
}

// metricFromSERP derives difficulty from domain diversity and volume
// from the presence of ads, news and related searches.
func metricFromSERP(domain, target string, result serp.Result) analysis.KeywordMetric {
	metric := analysis.KeywordMetric{
		Keyword:    target,
		Difficulty: difficultyFromDiversity(result),
		Volume:     estimateVolume(result),
	}
	for _, hit := range result.Organic {
		if hit.Domain == domain {
			metric.Position = hit.Position
			break
		}
	}
	return metric
}

func difficultyFromDiversity(result serp.Result) string {
	seen := make(map[string]bool, len(result.Organic))
	for _, hit := range result.Organic {
		if hit.Domain != "" {
			seen[hit.Domain] = true
		}
	}
	switch {
	case len(seen) >= 8:
		return "high"
	case len(seen) >= 5:
		return "medium"
	default:
		return "low"
	}
}

func estimateVolume(result serp.Result) int {
	volume := 1000
	if result.HasAds {
		volume += 2000
	}
	if result.HasNews {
		volume += 1500
	}
	return volume + 300*len(result.RelatedSearches)
}

func demoKeywords(domain string, targets []string) []analysis.KeywordMetric {
	seed := provider.NewDemoSeed(domain)
	difficulties := []string{"low", "medium", "high"}

	metrics := make([]analysis.KeywordMetric, 0, len(targets))
	for _, target := range targets {
		metric := analysis.KeywordMetric{
			Keyword:    target,
			Difficulty: difficulties[seed.IntBetween("keyword.difficulty."+target, 0, 2)],
			Volume:     seed.IntBetween("keyword.volume."+target, 600, 4800),
		}
		if seed.Chance("keyword.ranks."+target, 50) {
			metric.Position = seed.IntBetween("keyword.position."+target, 1, 20)
		}
		metrics = append(metrics, metric)
	}
	return metrics
}

func fallbackKeywords(targets []string) []analysis.KeywordMetric {
	metrics := make([]analysis.KeywordMetric, 0, len(targets))
	for _, target := range targets {
		metrics = append(metrics, analysis.KeywordMetric{
			Keyword:    target,
			Difficulty: "medium",
			Volume:     1000,
		})
	}
	return metrics
}
