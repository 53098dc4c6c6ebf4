// Package history persists analysis runs in SQLite and derives score trends
// from them.
package history

import "time"

// SchemaVersion is the newest migration this build understands.
const SchemaVersion = 1

// Run is one stored analysis of a project.
type Run struct {
	ID           string         `json:"id"`
	ProjectKey   string         `json:"project_key"`
	StartedAt    time.Time      `json:"started_at"`
	Duration     time.Duration  `json:"duration"`
	Files        int            `json:"files"`
	TotalIssues  int            `json:"total_issues"`
	OverallScore int            `json:"overall_score"`
	AverageScore float64        `json:"average_score"`
	Breakdown    map[string]int `json:"breakdown"`
	FileScores   []FileScore    `json:"file_scores,omitempty"`
}

type FileScore struct {
	Path       string `json:"file"`
	Score      int    `json:"score"`
	IssueCount int    `json:"issue_count"`
}

// Trend compares the newest run against the ones before it.
type Trend struct {
	Runs          int     `json:"runs"`
	HasPrevious   bool    `json:"has_previous"`
	ScoreDelta    int     `json:"score_delta"`
	IssueDelta    int     `json:"issue_delta"`
	WindowAverage float64 `json:"window_average"`
}

// BuildTrend expects runs oldest first. The window average covers every run
// passed in.
func BuildTrend(runs []Run) Trend {
	trend := Trend{Runs: len(runs)}
	if len(runs) == 0 {
		return trend
	}

	total := 0
	for _, run := range runs {
		total += run.OverallScore
	}
	trend.WindowAverage = float64(total) / float64(len(runs))

	if len(runs) < 2 {
		return trend
	}
	last, prev := runs[len(runs)-1], runs[len(runs)-2]
	trend.HasPrevious = true
	trend.ScoreDelta = last.OverallScore - prev.OverallScore
	trend.IssueDelta = last.TotalIssues - prev.TotalIssues
	return trend
}
