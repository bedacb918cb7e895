// Package plan turns a basic analysis result into specialist agent
// findings, a prioritized action plan, and the strategy artifacts of a
// comprehensive job.
package plan

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sitescope/sitescope/internal/analysis"
	"github.com/sitescope/sitescope/internal/metrics"
	"github.com/sitescope/sitescope/internal/synth"
)

// Timeframes, levels and categories used on plan items. The JSON schema
// in schema.go carries the same vocabulary.
const (
	TimeframeImmediate   = "immediate"
	TimeframeThisWeek    = "this_week"
	TimeframeThisMonth   = "this_month"
	TimeframeNextQuarter = "next_quarter"

	LevelHigh   = "high"
	LevelMedium = "medium"
	LevelLow    = "low"

	CategoryTechnical      = "technical"
	CategoryContent        = "content"
	CategoryKeywords       = "keywords"
	CategoryCompetitors    = "competitors"
	CategoryUserExperience = "user_experience"
	CategoryLocalSEO       = "local_seo"
)

// maxHighlights caps the quick-win and long-term selections.
const maxHighlights = 5

// Generator assembles action plans, preferring synthesized items and
// falling back to the deterministic set when synthesis cannot deliver.
type Generator struct {
	synth  synth.Synthesizer
	logger *zap.Logger
}

// NewGenerator builds a Generator.
func NewGenerator(synthesizer synth.Synthesizer, logger *zap.Logger) *Generator {
	return &Generator{synth: synthesizer, logger: logger}
}

// Generate produces the action plan for one result. Scores are computed
// locally so they stay reproducible even when synthesis is degraded.
func (g *Generator) Generate(ctx context.Context, result analysis.Result, agents []analysis.AgentAnalysis) analysis.ActionPlan {
	items := g.synthesizedItems(ctx, result, agents)
	if items == nil {
		items = fallbackItems(result)
	}

	overall := overallScore(result.SEOScore, agents)
	wins := quickWins(items)
	goals := longTermGoals(items)
	return analysis.ActionPlan{
		OverallScore:   overall,
		PotentialScore: potentialScore(overall, len(wins), len(goals)),
		Items:          items,
		QuickWins:      wins,
		LongTermGoals:  goals,
	}
}

// synthesizedItems returns nil whenever the fallback should be used.
func (g *Generator) synthesizedItems(ctx context.Context, result analysis.Result, agents []analysis.AgentAnalysis) []analysis.ActionItem {
	raw, err := g.synth.Synthesize(ctx, buildPrompt(result, agents))
	if err != nil {
		if errors.Is(err, synth.ErrUnavailable) {
			metrics.ObserveSynthesis("disabled")
			g.logger.Debug("synthesis unavailable, using fallback plan", zap.String("domain", result.Domain))
		} else {
			metrics.ObserveSynthesis("error")
			g.logger.Warn("synthesis failed, using fallback plan",
				zap.String("domain", result.Domain), zap.Error(err))
		}
		return nil
	}

	items, err := parseItems(raw)
	if err != nil {
		metrics.ObserveSynthesis("invalid")
		g.logger.Warn("synthesized plan rejected, using fallback plan",
			zap.String("domain", result.Domain), zap.Error(err))
		return nil
	}
	metrics.ObserveSynthesis("valid")
	return items
}

// buildPrompt flattens the result and agent output into plain text plus
// the output contract.
func buildPrompt(result analysis.Result, agents []analysis.AgentAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Prepare an SEO action plan for %s (current score %d/100, technical score %d).\n",
		result.Domain, result.SEOScore, result.TechnicalSEO.Score)

	if len(result.TechnicalSEO.Issues) > 0 {
		b.WriteString("\nTechnical findings:\n")
		for _, issue := range result.TechnicalSEO.Issues {
			fmt.Fprintf(&b, "- [%s] %s: %s\n", issue.Priority, issue.Title, issue.Description)
		}
	}
	if len(result.Keywords) > 0 {
		b.WriteString("\nResearched keywords (keyword, position, difficulty, volume):\n")
		for _, kw := range result.Keywords {
			fmt.Fprintf(&b, "- %s, %d, %s, %d\n", kw.Keyword, kw.Position, kw.Difficulty, kw.Volume)
		}
	}
	if len(result.Competitors) > 0 {
		b.WriteString("\nCompetitive field:\n")
		for _, c := range result.Competitors {
			fmt.Fprintf(&b, "- #%d %s (score %d)\n", c.Ranking, c.Name, c.Score)
		}
	}
	for _, agent := range agents {
		fmt.Fprintf(&b, "\n%s agent (score %d):\n", agent.Agent, agent.Score)
		for _, finding := range agent.Findings {
			fmt.Fprintf(&b, "- finding: %s\n", finding)
		}
		for _, rec := range agent.Recommendations {
			fmt.Fprintf(&b, "- recommendation: %s\n", rec)
		}
	}

	b.WriteString("\nReturn JSON only, shaped as {\"items\": [...]} with 8 to 12 items. " +
		"Each item needs title, description, priority (critical|high|medium|low), " +
		"impact (high|medium|low), effort (high|medium|low), " +
		"category (technical|content|keywords|competitors|user_experience|local_seo), " +
		"timeframe (immediate|this_week|this_month|next_quarter), " +
		"steps (non-empty array of strings) and expectedImprovement. " +
		"Optional: id, tools, dependsOn (ids of earlier items only).\n")
	return b.String()
}

// overallScore folds each agent score into the basic score one at a
// time: score = (score + agent) / 2, in agent order.
func overallScore(base int, agents []analysis.AgentAnalysis) int {
	score := base
	for _, agent := range agents {
		score = (score + agent.Score) / 2
	}
	return clampScore(score)
}

// potentialScore estimates the reachable score if the plan is executed.
// Capped at 98.
func potentialScore(overall, wins, goals int) int {
	potential := overall + 4*wins + 2*goals
	if potential > 98 {
		return 98
	}
	return potential
}

// quickWins selects low-effort, near-term, high-value items, keeping
// plan order, capped at five.
func quickWins(items []analysis.ActionItem) []analysis.ActionItem {
	var wins []analysis.ActionItem
	for _, item := range items {
		if len(wins) == maxHighlights {
			break
		}
		nearTerm := item.Timeframe == TimeframeImmediate || item.Timeframe == TimeframeThisWeek
		valuable := item.Impact == LevelHigh || item.Impact == LevelMedium
		if nearTerm && valuable && item.Effort == LevelLow {
			wins = append(wins, item)
		}
	}
	return wins
}

// longTermGoals selects high-impact items on the month-or-longer
// horizon, keeping plan order, capped at five.
func longTermGoals(items []analysis.ActionItem) []analysis.ActionItem {
	var goals []analysis.ActionItem
	for _, item := range items {
		if len(goals) == maxHighlights {
			break
		}
		longHorizon := item.Timeframe == TimeframeThisMonth || item.Timeframe == TimeframeNextQuarter
		if longHorizon && item.Impact == LevelHigh {
			goals = append(goals, item)
		}
	}
	return goals
}
