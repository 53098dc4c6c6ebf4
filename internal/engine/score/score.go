// Package score turns issues into per-file and project scores using a
// penalty table.
package score

import (
	"nexalint/internal/core/errors"
	"nexalint/internal/engine/analysis"
	"nexalint/internal/engine/rules"
	"strings"
)

// InitialScore is the score of a file with no issues.
const InitialScore = 100

// BreakdownOther collects issues of kinds without a dedicated bucket.
const BreakdownOther = "other"

// Penalties maps (kind, severity) to the points deducted per issue. Missing
// pairs cost nothing.
type Penalties map[rules.Kind]map[rules.Severity]int

// DefaultPenalties returns a fresh copy of the built-in table.
func DefaultPenalties() Penalties {
	return Penalties{
		rules.KindQuality:     {rules.SeverityLow: 1, rules.SeverityMedium: 3, rules.SeverityHigh: 5},
		rules.KindSecurity:    {rules.SeverityLow: 2, rules.SeverityMedium: 5, rules.SeverityHigh: 10},
		rules.KindPerformance: {rules.SeverityLow: 2, rules.SeverityMedium: 4, rules.SeverityHigh: 4},
	}
}

// ParsePenalties converts a kind -> severity -> points table read from
// configuration. Severity keys accept either vocabulary.
func ParsePenalties(raw map[string]map[string]int) (Penalties, error) {
	out := make(Penalties, len(raw))
	for kind, bySeverity := range raw {
		k := rules.Kind(strings.ToLower(strings.TrimSpace(kind)))
		if out[k] == nil {
			out[k] = make(map[rules.Severity]int, len(bySeverity))
		}
		for sev, points := range bySeverity {
			severity, ok := rules.ParseSeverity(sev)
			if !ok {
				return nil, errors.AddContext(errors.Newf(errors.CodeValidationError, "unknown severity %q", sev), errors.CtxSetting, "scoring.penalties."+kind)
			}
			if points < 0 {
				return nil, errors.AddContext(errors.Newf(errors.CodeValidationError, "penalty must be >= 0, got %d", points), errors.CtxSetting, "scoring.penalties."+kind)
			}
			out[k][severity] = points
		}
	}
	return out, nil
}

// Lookup returns the deduction for one issue.
func (p Penalties) Lookup(kind rules.Kind, severity rules.Severity) int {
	return p[kind][severity]
}

// Engine computes scores. It is stateless and safe to share.
type Engine struct {
	initial   int
	penalties Penalties
}

// NewEngine falls back to InitialScore and DefaultPenalties for zero values.
// The initial score is capped at InitialScore so every score stays in
// [0, 100].
func NewEngine(initial int, penalties Penalties) *Engine {
	if initial <= 0 || initial > InitialScore {
		initial = InitialScore
	}
	if penalties == nil {
		penalties = DefaultPenalties()
	}
	return &Engine{initial: initial, penalties: penalties}
}

// Initial returns the starting score.
func (e *Engine) Initial() int {
	return e.initial
}

// FileScore deducts each issue's penalty from the initial score, floored
// at 0.
func (e *Engine) FileScore(issues []rules.Issue) int {
	score := e.initial
	for _, issue := range issues {
		score -= e.penalties.Lookup(issue.Kind, issue.Severity)
	}
	return max(score, 0)
}

// FileScore is the score of one report.
type FileScore struct {
	Path       string `json:"file"`
	Score      int    `json:"score"`
	IssueCount int    `json:"issue_count"`
}

// ProjectScore aggregates a run.
type ProjectScore struct {
	OverallScore     int            `json:"overall_score"`
	AverageFileScore float64        `json:"average_file_score"`
	FileScores       []FileScore    `json:"file_scores"`
	TotalIssues      int            `json:"total_issues"`
	IssueBreakdown   map[string]int `json:"issue_breakdown"`
}

// NewBreakdown returns a breakdown with the fixed buckets set to zero.
func NewBreakdown() map[string]int {
	return map[string]int{
		string(rules.KindQuality):     0,
		string(rules.KindSecurity):    0,
		string(rules.KindPerformance): 0,
	}
}

// Project scores every report. The overall score is the truncated mean of
// the file scores; an empty run scores the initial value.
func (e *Engine) Project(reports []analysis.FileReport) ProjectScore {
	out := ProjectScore{
		OverallScore:     e.initial,
		AverageFileScore: float64(e.initial),
		FileScores:       make([]FileScore, 0, len(reports)),
		IssueBreakdown:   NewBreakdown(),
	}
	if len(reports) == 0 {
		return out
	}

	total := 0
	for _, report := range reports {
		s := e.FileScore(report.Issues)
		total += s
		out.TotalIssues += len(report.Issues)
		out.FileScores = append(out.FileScores, FileScore{Path: report.Path, Score: s, IssueCount: len(report.Issues)})
		for _, issue := range report.Issues {
			out.IssueBreakdown[bucket(issue.Kind)]++
		}
	}

	out.AverageFileScore = float64(total) / float64(len(reports))
	out.OverallScore = max(total/len(reports), 0)
	return out
}

func bucket(kind rules.Kind) string {
	switch kind {
	case rules.KindQuality, rules.KindSecurity, rules.KindPerformance:
		return string(kind)
	default:
		return BreakdownOther
	}
}
