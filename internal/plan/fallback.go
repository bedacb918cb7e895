package plan

import (
	"fmt"

	"github.com/sitescope/sitescope/internal/analysis"
)

// fallbackItems builds the fixed plan used when synthesis is unavailable
// or its output fails validation. The items are generic but reference
// the result's own findings where they can, and the set always contains
// quick wins and long-term goals.
func fallbackItems(result analysis.Result) []analysis.ActionItem {
	technicalDescription := "Work through the technical findings from this report, highest priority first."
	if len(result.TechnicalSEO.Issues) > 0 {
		technicalDescription = fmt.Sprintf("Start with %q and work through the remaining technical findings in priority order.",
			result.TechnicalSEO.Issues[0].Title)
	}

	keywordTarget := "the researched keywords"
	if len(result.Keywords) > 0 {
		keywordTarget = fmt.Sprintf("%q and the other researched keywords", result.Keywords[0].Keyword)
	}

	return []analysis.ActionItem{
		{
			ID:          "meta-refresh",
			Title:       "Refresh page titles and meta descriptions",
			Description: "Rewrite titles and descriptions on the most-visited pages so each one states the offering and location in plain language.",
			Priority:    analysis.PriorityHigh,
			Impact:      LevelHigh,
			Effort:      LevelLow,
			Category:    CategoryContent,
			Timeframe:   TimeframeImmediate,
			Steps: []string{
				"List the ten most-visited pages",
				"Write a unique title under 60 characters for each",
				"Write a meta description under 155 characters for each",
			},
			ExpectedImprovement: "Higher click-through from existing rankings within weeks",
		},
		{
			ID:          "image-weight",
			Title:       "Compress and lazy-load images",
			Description: "Oversized images are the most common cause of slow pages; compressing them is cheap and usually safe.",
			Priority:    analysis.PriorityMedium,
			Impact:      LevelMedium,
			Effort:      LevelLow,
			Category:    CategoryTechnical,
			Timeframe:   TimeframeThisWeek,
			Steps: []string{
				"Convert hero images to a modern format",
				"Add lazy loading to below-the-fold images",
			},
			ExpectedImprovement: "Faster load times on image-heavy pages",
			Tools:               []string{"image optimizer", "performance audit"},
		},
		{
			ID:          "technical-fixes",
			Title:       "Resolve the reported technical issues",
			Description: technicalDescription,
			Priority:    analysis.PriorityHigh,
			Impact:      LevelHigh,
			Effort:      LevelMedium,
			Category:    CategoryTechnical,
			Timeframe:   TimeframeThisWeek,
			Steps: []string{
				"Reproduce each reported issue",
				"Fix in priority order",
				"Re-run the analysis to confirm the technical score improved",
			},
			ExpectedImprovement: "Technical score toward 90+",
		},
		{
			ID:          "keyword-pages",
			Title:       "Publish pages for researched keywords",
			Description: fmt.Sprintf("Create a dedicated page for %s so searchers land on content built for their query.", keywordTarget),
			Priority:    analysis.PriorityMedium,
			Impact:      LevelHigh,
			Effort:      LevelMedium,
			Category:    CategoryKeywords,
			Timeframe:   TimeframeThisMonth,
			Steps: []string{
				"Pick the three easiest keywords from the research",
				"Draft one page per keyword answering the search intent",
				"Interlink the new pages from existing content",
			},
			ExpectedImprovement: "First rankings for currently unranked keywords",
			DependsOn:           []string{"meta-refresh"},
		},
		{
			ID:          "content-series",
			Title:       "Run a recurring content series",
			Description: "A steady publishing cadence compounds; one useful piece per week outperforms sporadic bursts.",
			Priority:    analysis.PriorityMedium,
			Impact:      LevelHigh,
			Effort:      LevelMedium,
			Category:    CategoryContent,
			Timeframe:   TimeframeNextQuarter,
			Steps: []string{
				"Commit to a weekly publishing slot",
				"Work through the content calendar in this report",
			},
			ExpectedImprovement: "Compounding organic traffic growth over the quarter",
			DependsOn:           []string{"keyword-pages"},
		},
		{
			ID:          "local-visibility",
			Title:       "Strengthen local visibility",
			Description: "Consistent listings and reviews move local rankings more than on-page tweaks.",
			Priority:    analysis.PriorityLow,
			Impact:      LevelMedium,
			Effort:      LevelLow,
			Category:    CategoryLocalSEO,
			Timeframe:   TimeframeThisMonth,
			Steps: []string{
				"Claim or update the business profile",
				"Align name, address, and hours across directories",
				"Ask recent customers for reviews",
			},
			ExpectedImprovement: "Better placement in map and local results",
		},
	}
}
