package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitescope/sitescope/internal/analysis"
	"github.com/sitescope/sitescope/internal/provider"
)

func TestTechnicalAssessment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		speed      analysis.PageSpeed
		wantScore  int
		wantIssues int
	}{
		{
			name:      "clean",
			speed:     analysis.PageSpeed{Mobile: 75, Desktop: 80, FirstContentfulPaint: 1.5, LargestContentfulPaint: 2.5, CumulativeLayoutShift: 0.05},
			wantScore: 100,
		},
		{
			name:       "mobile below fifty",
			speed:      analysis.PageSpeed{Mobile: 42, Desktop: 80, FirstContentfulPaint: 1.5, LargestContentfulPaint: 2.5, CumulativeLayoutShift: 0.05},
			wantScore:  80,
			wantIssues: 1,
		},
		{
			name:       "mobile below seventy",
			speed:      analysis.PageSpeed{Mobile: 61, Desktop: 80, FirstContentfulPaint: 1.5, LargestContentfulPaint: 2.5, CumulativeLayoutShift: 0.05},
			wantScore:  90,
			wantIssues: 1,
		},
		{
			name:       "slow desktop",
			speed:      analysis.PageSpeed{Mobile: 75, Desktop: 44, FirstContentfulPaint: 1.5, LargestContentfulPaint: 2.5, CumulativeLayoutShift: 0.05},
			wantScore:  85,
			wantIssues: 1,
		},
		{
			name:       "slow largest contentful paint",
			speed:      analysis.PageSpeed{Mobile: 75, Desktop: 80, FirstContentfulPaint: 1.5, LargestContentfulPaint: 4.6, CumulativeLayoutShift: 0.05},
			wantScore:  85,
			wantIssues: 1,
		},
		{
			name:       "layout shifts",
			speed:      analysis.PageSpeed{Mobile: 75, Desktop: 80, FirstContentfulPaint: 1.5, LargestContentfulPaint: 2.5, CumulativeLayoutShift: 0.31},
			wantScore:  90,
			wantIssues: 1,
		},
		{
			name:       "slow first contentful paint",
			speed:      analysis.PageSpeed{Mobile: 75, Desktop: 80, FirstContentfulPaint: 3.4, LargestContentfulPaint: 2.5, CumulativeLayoutShift: 0.05},
			wantScore:  90,
			wantIssues: 1,
		},
		{
			name:       "everything slow",
			speed:      analysis.PageSpeed{Mobile: 30, Desktop: 35, FirstContentfulPaint: 4.0, LargestContentfulPaint: 6.0, CumulativeLayoutShift: 0.4},
			wantScore:  30,
			wantIssues: 5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := technicalAssessment(tt.speed)
			assert.Equal(t, tt.wantScore, got.Score)
			assert.Len(t, got.Issues, tt.wantIssues)
			for _, issue := range got.Issues {
				assert.NotEmpty(t, issue.Title)
				assert.NotEmpty(t, issue.Description)
				assert.NotEmpty(t, issue.Priority)
			}
		})
	}
}

func TestTechnicalAssessmentPriorities(t *testing.T) {
	t.Parallel()

	got := technicalAssessment(analysis.PageSpeed{Mobile: 30, Desktop: 80, FirstContentfulPaint: 1.0, LargestContentfulPaint: 2.0, CumulativeLayoutShift: 0.01})
	require.Len(t, got.Issues, 1)
	assert.Equal(t, analysis.PriorityCritical, got.Issues[0].Priority)

	got = technicalAssessment(analysis.PageSpeed{Mobile: 60, Desktop: 80, FirstContentfulPaint: 1.0, LargestContentfulPaint: 2.0, CumulativeLayoutShift: 0.01})
	require.Len(t, got.Issues, 1)
	assert.Equal(t, analysis.PriorityHigh, got.Issues[0].Priority)
}

func TestBlendScore(t *testing.T) {
	t.Parallel()

	// 0.3*80 + 0.2*90 + 0.3*100 + 0.2*61 = 84.2
	assert.Equal(t, 84, blendScore(analysis.PageSpeed{Mobile: 80, Desktop: 90}, 100, 61))
	// 0.3*55 + 0.2*65 + 0.3*70 + 0.2*70 = 64.5 rounds up
	assert.Equal(t, 65, blendScore(analysis.PageSpeed{Mobile: 55, Desktop: 65}, 70, 70))
	assert.Equal(t, 0, blendScore(analysis.PageSpeed{}, 0, 0))
	assert.Equal(t, 100, blendScore(analysis.PageSpeed{Mobile: 100, Desktop: 100}, 100, 100))
}

func TestOwnCompetitorScore(t *testing.T) {
	t.Parallel()

	competitors := []analysis.Competitor{
		{Name: "rival.example", Score: 88, Ranking: 1},
		{Name: "example.com", Score: 53, Ranking: 2},
	}
	assert.Equal(t, 53, ownCompetitorScore(competitors, "example.com"))
	assert.Equal(t, defaultOwnScore, ownCompetitorScore(competitors, "other.example"))
	assert.Equal(t, defaultOwnScore, ownCompetitorScore(nil, "example.com"))
}

func TestMarketPosition(t *testing.T) {
	t.Parallel()

	field := []analysis.Competitor{
		{Name: "a.example", Score: 90, Ranking: 1},
		{Name: "b.example", Score: 80, Ranking: 2},
		{Name: "example.com", Score: 70, Ranking: 3},
		{Name: "c.example", Score: 60, Ranking: 4},
		{Name: "d.example", Score: 50, Ranking: 5},
	}

	got := marketPosition(field, "example.com")
	assert.Equal(t, 3, got.Rank)
	assert.Equal(t, 5, got.TotalCompetitors)
	assert.InDelta(t, 13.33, got.MarketShare, 0.001)

	first := marketPosition(field[:1], "a.example")
	assert.Equal(t, 1, first.Rank)
	assert.InDelta(t, 40.0, first.MarketShare, 0.001)

	// A domain missing from the list ranks last.
	missing := marketPosition(field, "unknown.example")
	assert.Equal(t, 5, missing.Rank)
	assert.InDelta(t, 8.0, missing.MarketShare, 0.001)

	assert.Zero(t, marketPosition(nil, "example.com"))
}

func TestMarketShareNeverBelowOne(t *testing.T) {
	t.Parallel()

	field := make([]analysis.Competitor, 50)
	for i := range field {
		field[i] = analysis.Competitor{Name: "x.example", Score: 50, Ranking: i + 1}
	}
	field[49].Name = "example.com"

	got := marketPosition(field, "example.com")
	assert.Equal(t, 50, got.Rank)
	assert.Equal(t, 1.0, got.MarketShare)
}

func TestImprovementsCapsAndSorts(t *testing.T) {
	t.Parallel()

	issues := []analysis.Issue{
		{Title: "medium one", Priority: analysis.PriorityMedium},
		{Title: "critical", Priority: analysis.PriorityCritical},
		{Title: "low", Priority: analysis.PriorityLow},
		{Title: "high", Priority: analysis.PriorityHigh},
		{Title: "medium two", Priority: analysis.PriorityMedium},
	}

	got := improvements(issues, false)
	require.Len(t, got, maxImprovements)
	assert.Equal(t, "critical", got[0].Title)
	assert.Equal(t, "high", got[1].Title)
	assert.Equal(t, "medium one", got[2].Title)
	assert.Equal(t, "medium two", got[3].Title)
}

func TestImprovementsPadsWhenDegraded(t *testing.T) {
	t.Parallel()

	got := improvements(nil, true)
	require.Len(t, got, maxImprovements)
	assert.Equal(t, genericImprovements[0].Title, got[0].Title)

	one := []analysis.Issue{{Title: "slow mobile", Priority: analysis.PriorityCritical}}
	got = improvements(one, true)
	require.Len(t, got, maxImprovements)
	assert.Equal(t, "slow mobile", got[0].Title)
	assert.Equal(t, genericImprovements[0].Title, got[1].Title)
}

func TestImprovementsEmptyWhenCleanAndLive(t *testing.T) {
	t.Parallel()

	assert.Empty(t, improvements(nil, false))
}

func TestTrimProfile(t *testing.T) {
	t.Parallel()

	many := make([]string, 20)
	for i := range many {
		many[i] = "entry"
	}
	bi := analysis.BusinessIntelligence{
		BusinessType: "restaurant",
		Industry:     "food & dining",
		Location:     "Austin, TX",
		Products:     many,
		Services:     many,
		Keywords:     many,
		Description:  "A restaurant in Austin.",
	}

	got := trimProfile(bi)
	assert.Len(t, got.Products, maxResultOfferings)
	assert.Len(t, got.Services, maxResultOfferings)
	assert.Len(t, got.Keywords, maxResultKeywords)
	assert.Equal(t, bi.BusinessType, got.BusinessType)
	assert.Equal(t, bi.Location, got.Location)
	assert.Equal(t, bi.Description, got.Description)
}

func TestAssembleDegradationAndMessage(t *testing.T) {
	t.Parallel()

	generated := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	speed := provider.Real(analysis.PageSpeed{Mobile: 75, Desktop: 85, FirstContentfulPaint: 1.5, LargestContentfulPaint: 2.4, CumulativeLayoutShift: 0.04})
	comps := provider.Real([]analysis.Competitor{{Name: "example.com", Score: 70, Ranking: 1}})
	kws := provider.Real([]analysis.KeywordMetric{{Keyword: "k", Difficulty: "low", Volume: 1000}})

	live := assemble("example.com", analysis.BusinessIntelligence{}, speed, comps, kws,
		provider.Real(analysis.SERPPresence{}), generated)
	assert.False(t, live.IsDemoMode)
	assert.Empty(t, live.DemoMessage)
	assert.Equal(t, generated, live.GeneratedAt)

	degraded := assemble("example.com", analysis.BusinessIntelligence{}, speed, comps, kws,
		provider.Failed(analysis.SERPPresence{}, assert.AnError), generated)
	assert.True(t, degraded.IsDemoMode)
	assert.Equal(t, demoMessage, degraded.DemoMessage)
}
