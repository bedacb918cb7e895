package plan

import (
	"fmt"

	"github.com/sitescope/sitescope/internal/analysis"
)

// BuildCompetitiveIntelligence summarizes the domain's standing against
// the discovered field. Pure function of the result.
func BuildCompetitiveIntelligence(result analysis.Result) analysis.CompetitiveIntelligence {
	mp := result.MarketPosition
	ci := analysis.CompetitiveIntelligence{
		MarketRank:       mp.Rank,
		TotalCompetitors: mp.TotalCompetitors,
	}
	if mp.TotalCompetitors == 0 {
		ci.Summary = "No competitive field discovered yet."
		ci.Opportunities = []string{"Re-run the analysis with search credentials configured to map the field"}
		return ci
	}
	ci.Summary = fmt.Sprintf("%s ranks %d of %d in its discovered field with an estimated %.2f%% market share.",
		result.Domain, mp.Rank, mp.TotalCompetitors, mp.MarketShare)

	if result.TechnicalSEO.Score >= 80 {
		ci.Strengths = append(ci.Strengths,
			fmt.Sprintf("Solid technical foundation (score %d)", result.TechnicalSEO.Score))
	}
	if result.SERPPresence.Organic.Found {
		ci.Strengths = append(ci.Strengths,
			fmt.Sprintf("Visible in organic results at position %d", result.SERPPresence.Organic.Position))
	}
	if mp.Rank == 1 {
		ci.Strengths = append(ci.Strengths, "Leads the discovered competitive field")
	}
	if len(ci.Strengths) == 0 {
		ci.Strengths = []string{"Established web presence to build on"}
	}

	if mp.Rank > 1 {
		if leader := fieldLeader(result.Competitors, result.Domain); leader != nil {
			gap := leader.Score - competitorScore(result.Competitors, result.Domain)
			ci.Weaknesses = append(ci.Weaknesses,
				fmt.Sprintf("Trails %s by %d points", leader.Name, gap))
		}
	}
	if n := len(result.TechnicalSEO.Issues); n > 0 {
		ci.Weaknesses = append(ci.Weaknesses,
			fmt.Sprintf("%d technical issues hold back rankings", n))
	}
	if !result.SERPPresence.Organic.Found {
		ci.Weaknesses = append(ci.Weaknesses, "Not yet visible for the core search query")
	}

	if unranked := unrankedKeywords(result.Keywords); unranked > 0 {
		ci.Opportunities = append(ci.Opportunities,
			fmt.Sprintf("%d researched keywords have no ranking page yet", unranked))
	}
	if !result.SERPPresence.FeaturedSnippet {
		ci.Opportunities = append(ci.Opportunities,
			"Featured snippet is unclaimed; concise structured answers could win it")
	}
	if !result.SERPPresence.LocalPack && result.BusinessIntelligence.Location != "" {
		ci.Opportunities = append(ci.Opportunities,
			fmt.Sprintf("Local pack placement available in %s", result.BusinessIntelligence.Location))
	}
	if len(ci.Opportunities) == 0 {
		ci.Opportunities = []string{"Broaden keyword coverage beyond the current set"}
	}
	return ci
}

// BuildContentStrategy lays a four-week editorial calendar over the
// keyword research. Pure function of the result.
func BuildContentStrategy(result analysis.Result) analysis.ContentStrategy {
	themes := contentThemes(result)

	formats := []struct {
		label string
		typ   string
	}{
		{"Guide", "guide"},
		{"FAQ", "faq"},
		{"Case study", "case_study"},
		{"Checklist", "checklist"},
	}

	calendar := make([]analysis.ContentWeek, 0, 4)
	for week := 1; week <= 4; week++ {
		format := formats[week-1]
		primary := weekKeyword(result, 2*(week-1))
		secondary := weekKeyword(result, 2*(week-1)+1)
		calendar = append(calendar, analysis.ContentWeek{
			Week:  week,
			Theme: themes[(week-1)%len(themes)],
			Pieces: []analysis.ContentPiece{
				{
					Title:         fmt.Sprintf("%s: %s", format.label, primary),
					Type:          format.typ,
					TargetKeyword: primary,
				},
				{
					Title:         fmt.Sprintf("Supporting post: %s", secondary),
					Type:          "blog_post",
					TargetKeyword: secondary,
				},
			},
		})
	}
	return analysis.ContentStrategy{Themes: themes, Calendar: calendar}
}

// BuildProgressTracking tells the user what to measure while executing
// the plan.
func BuildProgressTracking(result analysis.Result, actionPlan analysis.ActionPlan) analysis.ProgressTracking {
	tracking := analysis.ProgressTracking{
		MetricsToMonitor: []string{
			"Organic search traffic",
			"Average position for researched keywords",
			"Mobile performance score",
			"Click-through rate from search results",
		},
	}
	if len(actionPlan.QuickWins) > 0 {
		tracking.Milestones = append(tracking.Milestones, analysis.Milestone{
			Label:     "Quick wins completed",
			Target:    fmt.Sprintf("%d items", len(actionPlan.QuickWins)),
			Timeframe: TimeframeThisWeek,
		})
	}
	tracking.Milestones = append(tracking.Milestones,
		analysis.Milestone{
			Label:     "Technical issues resolved",
			Target:    fmt.Sprintf("technical score %d to 90+", result.TechnicalSEO.Score),
			Timeframe: TimeframeThisMonth,
		},
		analysis.Milestone{
			Label:     "Overall score improved",
			Target:    fmt.Sprintf("%d to %d", actionPlan.OverallScore, actionPlan.PotentialScore),
			Timeframe: TimeframeNextQuarter,
		},
	)
	return tracking
}

func contentThemes(result analysis.Result) []string {
	bi := result.BusinessIntelligence
	industry := bi.Industry
	if industry == "" {
		industry = "your industry"
	}

	themes := []string{
		fmt.Sprintf("Answers to common %s questions", industry),
		"Service and product spotlights",
	}
	if bi.Location != "" {
		themes = append(themes, fmt.Sprintf("Serving %s: local stories and guides", bi.Location))
	} else {
		themes = append(themes, "Industry trends and commentary")
	}
	themes = append(themes, "Customer results and proof")
	return themes
}

// weekKeyword rotates through the researched keywords, falling back to
// a profile-derived phrase when research came back empty.
func weekKeyword(result analysis.Result, index int) string {
	if len(result.Keywords) == 0 {
		bt := result.BusinessIntelligence.BusinessType
		if bt == "" {
			bt = "business"
		}
		return bt + " services"
	}
	return result.Keywords[index%len(result.Keywords)].Keyword
}

func fieldLeader(competitors []analysis.Competitor, domain string) *analysis.Competitor {
	for i, c := range competitors {
		if c.Ranking == 1 && c.Name != domain {
			return &competitors[i]
		}
	}
	return nil
}

func competitorScore(competitors []analysis.Competitor, domain string) int {
	for _, c := range competitors {
		if c.Name == domain {
			return c.Score
		}
	}
	return 70
}

func unrankedKeywords(keywords []analysis.KeywordMetric) int {
	n := 0
	for _, kw := range keywords {
		if kw.Position == 0 {
			n++
		}
	}
	return n
}
