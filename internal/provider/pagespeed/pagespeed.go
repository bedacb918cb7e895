// Package pagespeed measures page performance through a PageSpeed
// Insights style API. Without a credential it produces deterministic
// demo measurements seeded by the domain.
package pagespeed

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/sitescope/sitescope/internal/analysis"
	"github.com/sitescope/sitescope/internal/provider"
)

// Config points at the measurement API. An empty APIKey selects demo mode.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Provider measures mobile and desktop performance for a domain.
type Provider struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// New builds a Provider.
func New(cfg Config, logger *zap.Logger) *Provider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Provider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Measure runs one mobile and one desktop measurement. Core web vitals
// come from the mobile run.
func (p *Provider) Measure(ctx context.Context, domain string) provider.Outcome[analysis.PageSpeed] {
	if p.cfg.APIKey == "" {
		return provider.Demo(demoPageSpeed(domain), "pagespeed credential not configured")
	}

	mobile, err := p.measure(ctx, domain, "mobile")
	if err != nil {
		p.logger.Warn("pagespeed mobile measurement failed",
			zap.String("domain", domain),
			zap.Error(err))
		return provider.Failed(fallbackPageSpeed(), err)
	}
	desktop, err := p.measure(ctx, domain, "desktop")
	if err != nil {
		p.logger.Warn("pagespeed desktop measurement failed",
			zap.String("domain", domain),
			zap.Error(err))
		return provider.Failed(fallbackPageSpeed(), err)
	}

	return provider.Real(analysis.PageSpeed{
		Mobile:                 mobile.score,
		Desktop:                desktop.score,
		FirstContentfulPaint:   mobile.fcp,
		LargestContentfulPaint: mobile.lcp,
		CumulativeLayoutShift:  mobile.cls,
	})
}

type measurement struct {
	score int
	fcp   float64
	lcp   float64
	cls   float64
}

func (p *Provider) measure(ctx context.Context, domain, strategy string) (measurement, error) {
	endpoint, err := url.Parse(p.cfg.BaseURL)
	if err != nil {
		return measurement{}, fmt.Errorf("parse pagespeed base url: %w", err)
	}
	params := url.Values{}
	params.Set("url", "https://"+domain)
	params.Set("strategy", strategy)
	params.Set("key", p.cfg.APIKey)
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return measurement{}, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return measurement{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return measurement{}, fmt.Errorf("pagespeed API returned %d", resp.StatusCode)
	}

	var payload struct {
		LighthouseResult struct {
			Categories struct {
				Performance struct {
					Score float64 `json:"score"`
				} `json:"performance"`
			} `json:"categories"`
			Audits struct {
				FirstContentfulPaint struct {
					NumericValue float64 `json:"numericValue"`
				} `json:"first-contentful-paint"`
				LargestContentfulPaint struct {
					NumericValue float64 `json:"numericValue"`
				} `json:"largest-contentful-paint"`
				CumulativeLayoutShift struct {
					NumericValue float64 `json:"numericValue"`
				} `json:"cumulative-layout-shift"`
			} `json:"audits"`
		} `json:"lighthouseResult"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return measurement{}, fmt.Errorf("decode pagespeed response: %w", err)
	}

	lh := payload.LighthouseResult
	return measurement{
		score: int(math.Round(lh.Categories.Performance.Score * 100)),
		fcp:   millisToSeconds(lh.Audits.FirstContentfulPaint.NumericValue),
		lcp:   millisToSeconds(lh.Audits.LargestContentfulPaint.NumericValue),
		cls:   round2(lh.Audits.CumulativeLayoutShift.NumericValue),
	}, nil
}

func millisToSeconds(ms float64) float64 {
	return round2(ms / 1000)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func demoPageSpeed(domain string) analysis.PageSpeed {
	seed := provider.NewDemoSeed(domain)
	return analysis.PageSpeed{
		Mobile:                 seed.IntBetween("pagespeed.mobile", 45, 79),
		Desktop:                seed.IntBetween("pagespeed.desktop", 55, 89),
		FirstContentfulPaint:   seed.FloatBetween("pagespeed.fcp", 1.2, 3.0),
		LargestContentfulPaint: seed.FloatBetween("pagespeed.lcp", 2.0, 4.5),
		CumulativeLayoutShift:  seed.FloatBetween("pagespeed.cls", 0.02, 0.25),
	}
}

// fallbackPageSpeed stands in when a live measurement fails mid-flight.
func fallbackPageSpeed() analysis.PageSpeed {
	return analysis.PageSpeed{
		Mobile:                 60,
		Desktop:                72,
		FirstContentfulPaint:   2.2,
		LargestContentfulPaint: 3.4,
		CumulativeLayoutShift:  0.12,
	}
}
