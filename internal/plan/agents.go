package plan

import (
	"fmt"

	"github.com/sitescope/sitescope/internal/analysis"
)

// Agent names reported on AgentAnalysis records, in execution order.
const (
	AgentTechnical   = "technical_seo"
	AgentContent     = "content"
	AgentKeyword     = "keywords"
	AgentCompetitive = "competitive"
)

// RunAgents executes the four specialist passes over a basic result.
// Every agent is a pure function of the result, so repeated runs over
// the same result report identical findings.
func RunAgents(result analysis.Result) []analysis.AgentAnalysis {
	return []analysis.AgentAnalysis{
		technicalAgent(result),
		contentAgent(result),
		keywordAgent(result),
		competitiveAgent(result),
	}
}

func technicalAgent(result analysis.Result) analysis.AgentAnalysis {
	agent := analysis.AgentAnalysis{
		Agent: AgentTechnical,
		Score: clampScore(result.TechnicalSEO.Score),
	}
	if len(result.TechnicalSEO.Issues) == 0 {
		agent.Findings = []string{"No technical blockers detected from performance data"}
		agent.Recommendations = []string{"Keep performance budgets in place for future releases"}
		return agent
	}
	for _, issue := range result.TechnicalSEO.Issues {
		agent.Findings = append(agent.Findings, fmt.Sprintf("%s (%s priority)", issue.Title, issue.Priority))
		agent.Recommendations = append(agent.Recommendations, issue.Description)
	}
	return agent
}

func contentAgent(result analysis.Result) analysis.AgentAnalysis {
	bi := result.BusinessIntelligence
	offerings := len(bi.Products) + len(bi.Services)
	ranked := 0
	for _, kw := range result.Keywords {
		if kw.Position > 0 {
			ranked++
		}
	}

	score := 50
	if bi.Description != "" {
		score += 5
	}
	score += min(offerings*3, 15)
	score += min(len(result.Keywords)*2, 20)
	if ranked > 0 {
		score += 10
	}

	agent := analysis.AgentAnalysis{
		Agent: AgentContent,
		Score: clampScore(score),
		Findings: []string{
			fmt.Sprintf("Business profile identifies %d offerings", offerings),
		},
	}
	if ranked > 0 {
		agent.Findings = append(agent.Findings,
			fmt.Sprintf("%d of %d researched keywords already rank", ranked, len(result.Keywords)))
	} else {
		agent.Findings = append(agent.Findings, "No researched keywords currently rank")
		agent.Recommendations = append(agent.Recommendations,
			"Create a dedicated page for each researched keyword without a ranking page")
	}
	if offerings < 3 {
		agent.Recommendations = append(agent.Recommendations,
			"Describe individual products and services on their own pages so search engines can match them to queries")
	}
	if bi.Location != "" {
		agent.Recommendations = append(agent.Recommendations,
			fmt.Sprintf("Reference %s on key pages to reinforce local relevance", bi.Location))
	} else {
		agent.Recommendations = append(agent.Recommendations,
			"State the service area on the homepage and contact page")
	}
	return agent
}

func keywordAgent(result analysis.Result) analysis.AgentAnalysis {
	var topTen, high, medium, low int
	for _, kw := range result.Keywords {
		if kw.Position >= 1 && kw.Position <= 10 {
			topTen++
		}
		switch kw.Difficulty {
		case "high":
			high++
		case "medium":
			medium++
		default:
			low++
		}
	}

	score := 50 + min(topTen*8, 32) + min(low*2, 10) - min(high*3, 15)

	agent := analysis.AgentAnalysis{
		Agent: AgentKeyword,
		Score: clampScore(score),
		Findings: []string{
			fmt.Sprintf("%d keywords researched (%d high, %d medium, %d low difficulty)",
				len(result.Keywords), high, medium, low),
			fmt.Sprintf("%d keywords rank in the top ten", topTen),
		},
	}
	if low > 0 {
		agent.Recommendations = append(agent.Recommendations,
			"Target low-difficulty keywords first for the fastest ranking gains")
	}
	if high > 0 {
		agent.Recommendations = append(agent.Recommendations,
			"Build supporting content and links before chasing high-difficulty terms")
	}
	agent.Recommendations = append(agent.Recommendations,
		"Track positions for every researched keyword weekly")
	return agent
}

func competitiveAgent(result analysis.Result) analysis.AgentAnalysis {
	mp := result.MarketPosition
	ownScore := 70
	var leader *analysis.Competitor
	for i, c := range result.Competitors {
		if c.Name == result.Domain {
			ownScore = c.Score
		}
		if c.Ranking == 1 {
			leader = &result.Competitors[i]
		}
	}

	agent := analysis.AgentAnalysis{
		Agent: AgentCompetitive,
		Score: clampScore(ownScore),
	}
	if mp.TotalCompetitors == 0 {
		agent.Findings = []string{"No competitive field discovered"}
		agent.Recommendations = []string{"Re-run the analysis once search credentials are configured"}
		return agent
	}
	agent.Findings = []string{
		fmt.Sprintf("Ranked %d of %d in the discovered field", mp.Rank, mp.TotalCompetitors),
		fmt.Sprintf("Estimated market share %.2f%%", mp.MarketShare),
	}
	if mp.Rank == 1 {
		agent.Recommendations = append(agent.Recommendations,
			"Defend the lead: keep publishing and monitor challengers monthly")
		return agent
	}
	if leader != nil && leader.Name != result.Domain {
		agent.Findings = append(agent.Findings,
			fmt.Sprintf("Field leader is %s (score %d)", leader.Name, leader.Score))
		agent.Recommendations = append(agent.Recommendations,
			fmt.Sprintf("Review %s for topics and features your site lacks", leader.Name))
	}
	agent.Recommendations = append(agent.Recommendations,
		"Differentiate on the offerings competitors cover thinly")
	return agent
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
