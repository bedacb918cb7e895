// Package analysis defines core types shared across subsystems.
package analysis

import (
	"time"
)

// JobStatus represents the lifecycle state of a comprehensive analysis job.
type JobStatus string

// Job status values persisted in the job store.
const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Issue priorities, ordered from most to least urgent.
const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
	PriorityLow      = "low"
)

// BusinessIntelligence is the profile extracted from a site's own pages.
// Every field is always populated; extraction degrades to generic values
// rather than failing.
type BusinessIntelligence struct {
	BusinessType string   `json:"businessType"`
	Industry     string   `json:"industry"`
	Location     string   `json:"location"`
	Products     []string `json:"products"`
	Services     []string `json:"services"`
	Keywords     []string `json:"keywords"`
	Description  string   `json:"description"`
}

// PageSpeed holds performance measurements for one domain.
type PageSpeed struct {
	Mobile                 int     `json:"mobile"`
	Desktop                int     `json:"desktop"`
	FirstContentfulPaint   float64 `json:"firstContentfulPaint"`
	LargestContentfulPaint float64 `json:"largestContentfulPaint"`
	CumulativeLayoutShift  float64 `json:"cumulativeLayoutShift"`
}

// Issue describes a single finding surfaced to the user.
type Issue struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// TechnicalSEO scores the technical health derived from performance data.
type TechnicalSEO struct {
	Score  int     `json:"score"`
	Issues []Issue `json:"issues"`
}

// Competitor is one ranked entry in the competitive landscape, the
// analyzed domain included.
type Competitor struct {
	Name    string `json:"name"`
	Score   int    `json:"score"`
	Ranking int    `json:"ranking"`
}

// KeywordMetric describes one researched keyword. Position zero means the
// domain does not rank for it.
type KeywordMetric struct {
	Keyword    string `json:"keyword"`
	Position   int    `json:"position"`
	Difficulty string `json:"difficulty"`
	Volume     int    `json:"volume"`
}

// MarketPosition locates the domain inside its competitor set.
type MarketPosition struct {
	Rank             int     `json:"rank"`
	TotalCompetitors int     `json:"totalCompetitors"`
	MarketShare      float64 `json:"marketShare"`
}

// OrganicPresence reports whether and where the domain appears in
// organic results.
type OrganicPresence struct {
	Found    bool `json:"found"`
	Position int  `json:"position"`
}

// SERPPresence maps search result page features to presence flags.
type SERPPresence struct {
	Organic         OrganicPresence `json:"organic"`
	LocalPack       bool            `json:"localPack"`
	FeaturedSnippet bool            `json:"featuredSnippet"`
	PeopleAlsoAsk   bool            `json:"peopleAlsoAsk"`
	ImageResults    bool            `json:"imageResults"`
	NewsResults     bool            `json:"newsResults"`
	VideoResults    bool            `json:"videoResults"`
	AdsPresent      bool            `json:"adsPresent"`
}

// Result is the complete output of one pipeline run for one domain.
type Result struct {
	SEOScore             int                  `json:"seoScore"`
	Domain               string               `json:"domain"`
	PageSpeed            PageSpeed            `json:"pageSpeed"`
	TechnicalSEO         TechnicalSEO         `json:"technicalSEO"`
	Competitors          []Competitor         `json:"competitors"`
	Keywords             []KeywordMetric      `json:"keywords"`
	Improvements         []Issue              `json:"improvements"`
	MarketPosition       MarketPosition       `json:"marketPosition"`
	SERPPresence         SERPPresence         `json:"serpPresence"`
	BusinessIntelligence BusinessIntelligence `json:"businessIntelligence"`
	IsDemoMode           bool                 `json:"isDemoMode"`
	DemoMessage          string               `json:"demoMessage,omitempty"`
	GeneratedAt          time.Time            `json:"generatedAt"`
}

// AgentAnalysis is the output of one specialist pass over a basic result.
type AgentAnalysis struct {
	Agent           string   `json:"agent"`
	Score           int      `json:"score"`
	Findings        []string `json:"findings"`
	Recommendations []string `json:"recommendations"`
}

// ActionItem is one prioritized step in an action plan.
type ActionItem struct {
	ID                  string   `json:"id"`
	Title               string   `json:"title"`
	Description         string   `json:"description"`
	Priority            string   `json:"priority"`
	Impact              string   `json:"impact"`
	Effort              string   `json:"effort"`
	Category            string   `json:"category"`
	Timeframe           string   `json:"timeframe"`
	Steps               []string `json:"steps"`
	ExpectedImprovement string   `json:"expectedImprovement"`
	Tools               []string `json:"tools,omitempty"`
	DependsOn           []string `json:"dependsOn,omitempty"`
}

// ActionPlan is the prioritized roadmap assembled for a comprehensive job.
type ActionPlan struct {
	OverallScore   int          `json:"overallScore"`
	PotentialScore int          `json:"potentialScore"`
	Items          []ActionItem `json:"items"`
	QuickWins      []ActionItem `json:"quickWins"`
	LongTermGoals  []ActionItem `json:"longTermGoals"`
}

// CompetitiveIntelligence summarizes the domain's standing against the
// discovered competitor set.
type CompetitiveIntelligence struct {
	MarketRank       int      `json:"marketRank"`
	TotalCompetitors int      `json:"totalCompetitors"`
	Summary          string   `json:"summary"`
	Strengths        []string `json:"strengths"`
	Weaknesses       []string `json:"weaknesses"`
	Opportunities    []string `json:"opportunities"`
}

// ContentPiece is one planned piece of content.
type ContentPiece struct {
	Title         string `json:"title"`
	Type          string `json:"type"`
	TargetKeyword string `json:"targetKeyword"`
}

// ContentWeek groups planned content under a weekly theme.
type ContentWeek struct {
	Week   int            `json:"week"`
	Theme  string         `json:"theme"`
	Pieces []ContentPiece `json:"pieces"`
}

// ContentStrategy is the four-week editorial plan derived from keyword
// research.
type ContentStrategy struct {
	Themes   []string      `json:"themes"`
	Calendar []ContentWeek `json:"calendar"`
}

// Milestone is one measurable checkpoint on the improvement roadmap.
type Milestone struct {
	Label     string `json:"label"`
	Target    string `json:"target"`
	Timeframe string `json:"timeframe"`
}

// ProgressTracking tells the user what to measure while executing the plan.
type ProgressTracking struct {
	MetricsToMonitor []string    `json:"metricsToMonitor"`
	Milestones       []Milestone `json:"milestones"`
}

// Job represents the state of one comprehensive analysis, persisted in the
// job store and returned verbatim by the polling endpoint.
type Job struct {
	ID               string                   `json:"analysisId"`
	Domain           string                   `json:"domain"`
	Status           JobStatus                `json:"status"`
	Progress         int                      `json:"progress"`
	CreatedAt        time.Time                `json:"createdAt"`
	CompletedAt      *time.Time               `json:"completedAt,omitempty"`
	Error            string                   `json:"error,omitempty"`
	BasicAnalysis    *Result                  `json:"basicAnalysis,omitempty"`
	AgentResults     []AgentAnalysis          `json:"agentResults,omitempty"`
	ActionPlan       *ActionPlan              `json:"actionPlan,omitempty"`
	CompetitiveIntel *CompetitiveIntelligence `json:"competitiveIntelligence,omitempty"`
	ContentStrategy  *ContentStrategy         `json:"contentStrategy,omitempty"`
	ProgressTracking *ProgressTracking        `json:"progressTracking,omitempty"`
}

// JobUpdate carries the fields a job's continuation may set as it advances.
// Zero values leave the stored field untouched; Progress below the stored
// value is ignored so progress never moves backwards.
type JobUpdate struct {
	Progress         int
	Status           JobStatus
	Error            string
	BasicAnalysis    *Result
	AgentResults     []AgentAnalysis
	ActionPlan       *ActionPlan
	CompetitiveIntel *CompetitiveIntelligence
	ContentStrategy  *ContentStrategy
	ProgressTracking *ProgressTracking
}

// Terminal reports whether the status can no longer change.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed:
		return true
	default:
		return false
	}
}

// Apply folds an update into the job. Progress only moves forward, and a
// terminal status stamps CompletedAt.
func (j *Job) Apply(update JobUpdate, now time.Time) {
	if update.Progress > j.Progress {
		j.Progress = update.Progress
	}
	if update.Status != "" {
		j.Status = update.Status
		if update.Status.Terminal() {
			completed := now
			j.CompletedAt = &completed
		}
	}
	if update.Error != "" {
		j.Error = update.Error
	}
	if update.BasicAnalysis != nil {
		j.BasicAnalysis = update.BasicAnalysis
	}
	if update.AgentResults != nil {
		j.AgentResults = update.AgentResults
	}
	if update.ActionPlan != nil {
		j.ActionPlan = update.ActionPlan
	}
	if update.CompetitiveIntel != nil {
		j.CompetitiveIntel = update.CompetitiveIntel
	}
	if update.ContentStrategy != nil {
		j.ContentStrategy = update.ContentStrategy
	}
	if update.ProgressTracking != nil {
		j.ProgressTracking = update.ProgressTracking
	}
}
