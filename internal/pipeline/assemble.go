package pipeline

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sitescope/sitescope/internal/analysis"
	"github.com/sitescope/sitescope/internal/provider"
)

const (
	// defaultOwnScore substitutes for the analyzed domain's competitor
	// score when the domain is absent from the competitor list.
	defaultOwnScore = 70
	// maxImprovements caps the improvements list on the result.
	maxImprovements = 4
	// maxResultOfferings and maxResultKeywords bound the business
	// profile projection carried on the result.
	maxResultOfferings = 6
	maxResultKeywords  = 10
)

// assemble folds the stage outcomes into one immutable result.
func assemble(
	domain string,
	bi analysis.BusinessIntelligence,
	perf provider.Outcome[analysis.PageSpeed],
	comp provider.Outcome[[]analysis.Competitor],
	kw provider.Outcome[[]analysis.KeywordMetric],
	pres provider.Outcome[analysis.SERPPresence],
	generatedAt time.Time,
) analysis.Result {
	speed := perf.Data
	technical := technicalAssessment(speed)
	competitors := comp.Data
	degraded := perf.Degraded() || comp.Degraded() || kw.Degraded() || pres.Degraded()

	result := analysis.Result{
		SEOScore:             blendScore(speed, technical.Score, ownCompetitorScore(competitors, domain)),
		Domain:               domain,
		PageSpeed:            speed,
		TechnicalSEO:         technical,
		Competitors:          competitors,
		Keywords:             kw.Data,
		Improvements:         improvements(technical.Issues, degraded),
		MarketPosition:       marketPosition(competitors, domain),
		SERPPresence:         pres.Data,
		BusinessIntelligence: trimProfile(bi),
		IsDemoMode:           degraded,
		GeneratedAt:          generatedAt,
	}
	if degraded {
		result.DemoMessage = demoMessage
	}
	return result
}

// technicalAssessment scores technical health purely from performance
// thresholds. Start at 100, deduct per finding, floor at 0.
func technicalAssessment(speed analysis.PageSpeed) analysis.TechnicalSEO {
	score := 100
	var issues []analysis.Issue

	switch {
	case speed.Mobile < 50:
		score -= 20
		issues = append(issues, analysis.Issue{
			Title:       "Slow mobile performance",
			Description: fmt.Sprintf("Mobile performance scores %d/100. Most search traffic is mobile; aim for 70 or higher.", speed.Mobile),
			Priority:    analysis.PriorityCritical,
		})
	case speed.Mobile < 70:
		score -= 10
		issues = append(issues, analysis.Issue{
			Title:       "Mobile performance below target",
			Description: fmt.Sprintf("Mobile performance scores %d/100; aim for 70 or higher.", speed.Mobile),
			Priority:    analysis.PriorityHigh,
		})
	}
	if speed.Desktop < 50 {
		score -= 15
		issues = append(issues, analysis.Issue{
			Title:       "Slow desktop performance",
			Description: fmt.Sprintf("Desktop performance scores %d/100; aim for 70 or higher.", speed.Desktop),
			Priority:    analysis.PriorityHigh,
		})
	}
	if speed.LargestContentfulPaint > 4.0 {
		score -= 15
		issues = append(issues, analysis.Issue{
			Title:       "Largest Contentful Paint too slow",
			Description: fmt.Sprintf("The largest element takes %.1fs to render; keep it under 4s.", speed.LargestContentfulPaint),
			Priority:    analysis.PriorityHigh,
		})
	}
	if speed.CumulativeLayoutShift > 0.25 {
		score -= 10
		issues = append(issues, analysis.Issue{
			Title:       "Layout shifts during load",
			Description: fmt.Sprintf("Cumulative layout shift measures %.2f; keep it under 0.25 so content does not jump around.", speed.CumulativeLayoutShift),
			Priority:    analysis.PriorityMedium,
		})
	}
	if speed.FirstContentfulPaint > 3.0 {
		score -= 10
		issues = append(issues, analysis.Issue{
			Title:       "First Contentful Paint too slow",
			Description: fmt.Sprintf("First content appears after %.1fs; keep it under 3s.", speed.FirstContentfulPaint),
			Priority:    analysis.PriorityMedium,
		})
	}
	if score < 0 {
		score = 0
	}
	return analysis.TechnicalSEO{Score: score, Issues: issues}
}

// blendScore computes the weighted overall score, clamped to [0,100].
func blendScore(speed analysis.PageSpeed, technical, ownScore int) int {
	blend := 0.3*float64(speed.Mobile) +
		0.2*float64(speed.Desktop) +
		0.3*float64(technical) +
		0.2*float64(ownScore)
	score := int(math.Round(blend))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func ownCompetitorScore(competitors []analysis.Competitor, domain string) int {
	for _, c := range competitors {
		if c.Name == domain {
			return c.Score
		}
	}
	return defaultOwnScore
}

// marketPosition locates the analyzed domain in the competitor set. A
// domain missing from the list ranks last.
func marketPosition(competitors []analysis.Competitor, domain string) analysis.MarketPosition {
	total := len(competitors)
	if total == 0 {
		return analysis.MarketPosition{}
	}
	rank := total
	for _, c := range competitors {
		if c.Name == domain {
			rank = c.Ranking
			break
		}
	}
	share := 100 / (float64(rank) * 2.5)
	if share < 1 {
		share = 1
	}
	return analysis.MarketPosition{
		Rank:             rank,
		TotalCompetitors: total,
		MarketShare:      math.Round(share*100) / 100,
	}
}

var priorityOrder = map[string]int{
	analysis.PriorityCritical: 0,
	analysis.PriorityHigh:     1,
	analysis.PriorityMedium:   2,
	analysis.PriorityLow:      3,
}

// genericImprovements pads the improvements list when performance is
// clean but some stage ran on sample or fallback data.
var genericImprovements = []analysis.Issue{
	{
		Title:       "Connect live data providers",
		Description: "Parts of this report use sample data. Configure provider credentials to base recommendations on live metrics.",
		Priority:    analysis.PriorityHigh,
	},
	{
		Title:       "Refresh page titles and meta descriptions",
		Description: "Write unique, keyword-informed titles and descriptions for the top landing pages.",
		Priority:    analysis.PriorityMedium,
	},
	{
		Title:       "Publish content for researched keywords",
		Description: "Cover the highest-volume keywords from this report with dedicated pages or posts.",
		Priority:    analysis.PriorityMedium,
	},
	{
		Title:       "Claim business listings",
		Description: "Keep name, address, and hours consistent across the major directories.",
		Priority:    analysis.PriorityLow,
	},
}

// improvements selects the top technical issues by priority, at most
// four, padding from the generic pool when stages were degraded.
func improvements(issues []analysis.Issue, degraded bool) []analysis.Issue {
	out := make([]analysis.Issue, len(issues))
	copy(out, issues)
	sort.SliceStable(out, func(i, j int) bool {
		return priorityOrder[out[i].Priority] < priorityOrder[out[j].Priority]
	})
	if len(out) >= maxImprovements {
		return out[:maxImprovements]
	}
	if degraded {
		for _, generic := range genericImprovements {
			if len(out) == maxImprovements {
				break
			}
			out = append(out, generic)
		}
	}
	return out
}

// trimProfile bounds the business profile carried on the result; the
// full profile stays internal to the run.
func trimProfile(bi analysis.BusinessIntelligence) analysis.BusinessIntelligence {
	bi.Products = clip(bi.Products, maxResultOfferings)
	bi.Services = clip(bi.Services, maxResultOfferings)
	bi.Keywords = clip(bi.Keywords, maxResultKeywords)
	return bi
}

func clip(values []string, limit int) []string {
	if len(values) <= limit {
		return values
	}
	return values[:limit:limit]
}
