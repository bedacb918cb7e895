// Package competitor discovers the competitive landscape around a
// domain through search results.
package competitor

import (
	"context"
	"sort"
	"strings"

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

// maxCompetitors bounds the field before the analyzed domain is added.
const maxCompetitors = 4

// Provider ranks competitor domains discovered via search.
type Provider struct {
	search SearchClient
	logger *zap.Logger
}

// New builds a Provider.
func New(search SearchClient, logger *zap.Logger) *Provider {
	return &Provider{search: search, logger: logger}
}

// Discover returns up to four competitors plus the analyzed domain,
// ranked contiguously from 1.
func (p *Provider) Discover(ctx context.Context, domain string, bi analysis.BusinessIntelligence) provider.Outcome[[]analysis.Competitor] {
	if !p.search.Configured() {
		return provider.Demo(demoCompetitors(domain), "search credential not configured")
	}

	aggregates := make(map[string]*aggregate)
	var lastErr error
	succeeded := 0
	for _, query := range competitorQueries(bi) {
		result, err := p.search.Search(ctx, query)
		if err != nil {
			p.logger.Warn("competitor query failed",
				zap.String("query", query),
				zap.Error(err))
			lastErr = err
			continue
		}
		succeeded++
		collect(aggregates, result, domain)
	}
	if succeeded == 0 {
		return provider.Failed(fallbackCompetitors(domain), lastErr)
	}

	return provider.Real(rank(aggregates, domain))
}

type aggregate struct {
	name        string
	score       int
	appearances int
}

// collect folds one result page into the aggregate map, skipping the
// analyzed domain and anything sharing its name token.
func collect(aggregates map[string]*aggregate, result serp.Result, domain string) {
	baseTerm := analysis.NameToken(domain)
	for i, hit := range result.Organic {
		if hit.Domain == "" || excluded(hit.Domain, domain, baseTerm) {
			continue
		}
		score := positionScore(i)
		if baseTerm != "" && strings.Contains(strings.ToLower(hit.Title), baseTerm) {
			score += 10
		}
		agg, ok := aggregates[hit.Domain]
		if !ok {
			aggregates[hit.Domain] = &aggregate{name: hit.Domain, score: score, appearances: 1}
			continue
		}
		agg.appearances++
		if score > agg.score {
			agg.score = score
		}
	}
}

func excluded(hitDomain, domain, baseTerm string) bool {
	if hitDomain == domain {
		return true
	}
	return baseTerm != "" && analysis.NameToken(hitDomain) == baseTerm
}

// rank orders aggregates by appearances times score, keeps the top
// four, slots the analyzed domain in by its own estimated score and
// renumbers rankings contiguously.
func rank(aggregates map[string]*aggregate, domain string) []analysis.Competitor {
	list := make([]*aggregate, 0, len(aggregates))
	for _, agg := range aggregates {
		list = append(list, agg)
	}
	sort.SliceStable(list, func(i, j int) bool {
		wi := list[i].appearances * list[i].score
		wj := list[j].appearances * list[j].score
		if wi != wj {
			return wi > wj
		}
		return list[i].name < list[j].name
	})
	if len(list) > maxCompetitors {
		list = list[:maxCompetitors]
	}

	ownScore := ownDomainScore(len(list))
	competitors := make([]analysis.Competitor, 0, len(list)+1)
	inserted := false
	for _, agg := range list {
		if !inserted && ownScore > agg.score {
			competitors = append(competitors, analysis.Competitor{Name: domain, Score: ownScore})
			inserted = true
		}
		competitors = append(competitors, analysis.Competitor{Name: agg.name, Score: agg.score})
	}
	if !inserted {
		competitors = append(competitors, analysis.Competitor{Name: domain, Score: ownScore})
	}
	for i := range competitors {
		competitors[i].Ranking = i + 1
	}
	return competitors
}

// competitorQueries builds up to three distinct queries from the
// business profile.
func competitorQueries(bi analysis.BusinessIntelligence) []string {
	candidates := make([]string, 0, 2+len(bi.Keywords))
	if bi.Location != "" {
		candidates = append(candidates, bi.BusinessType+" "+bi.Location)
	} else {
		candidates = append(candidates, bi.BusinessType+" companies")
	}
	candidates = append(candidates, bi.Industry)
	candidates = append(candidates, bi.Keywords...)

	seen := map[string]bool{"": true}
	queries := make([]string, 0, 3)
	for _, q := range candidates {
		q = strings.TrimSpace(q)
		key := strings.ToLower(q)
		if seen[key] {
			continue
		}
		seen[key] = true
		queries = append(queries, q)
		if len(queries) == 3 {
			break
		}
	}
	return queries
}

func positionScore(index int) int {
	score := 100 - index*8
	if score < 20 {
		return 20
	}
	return score
}

// ownDomainScore estimates the analyzed domain's standing from how
// crowded the field is.
func ownDomainScore(competitorCount int) int {
	score := 85 - 8*competitorCount
	if score < 45 {
		return 45
	}
	return score
}

func demoCompetitors(domain string) []analysis.Competitor {
	return []analysis.Competitor{
		{Name: "Demo Competitor A", Score: 78, Ranking: 1},
		{Name: "Demo Competitor B", Score: 71, Ranking: 2},
		{Name: "Demo Competitor C", Score: 64, Ranking: 3},
		{Name: "Demo Competitor D", Score: 58, Ranking: 4},
		{Name: domain, Score: ownDomainScore(4), Ranking: 5},
	}
}

func fallbackCompetitors(domain string) []analysis.Competitor {
	return []analysis.Competitor{
		{Name: "Competitor A", Score: 78, Ranking: 1},
		{Name: "Competitor B", Score: 71, Ranking: 2},
		{Name: "Competitor C", Score: 64, Ranking: 3},
		{Name: "Competitor D", Score: 58, Ranking: 4},
		{Name: domain, Score: ownDomainScore(4), Ranking: 5},
	}
}
