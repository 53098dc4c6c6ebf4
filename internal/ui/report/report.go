// Package report renders analysis results as text, JSON or SARIF.
package report

import (
	"nexalint/internal/core/app"
	"nexalint/internal/data/history"
	"nexalint/internal/engine/analysis"
	"nexalint/internal/engine/score"
	"time"
)

const ToolName = "nexalint"

// Summary is the project-level overview of one run.
type Summary struct {
	TotalFiles       int              `json:"total_files"`
	CodeFiles        int              `json:"code_files"`
	TotalIssues      int              `json:"total_issues"`
	OverallScore     int              `json:"overall_score"`
	AverageFileScore float64          `json:"average_file_score"`
	IssueBreakdown   map[string]int   `json:"issue_breakdown"`
	Severity         analysis.Summary `json:"severity"`
	FilesByExtension map[string]int   `json:"files_by_extension"`
	FileIssueCounts  map[string]int   `json:"file_issue_counts"`
	ReadErrors       int              `json:"read_errors"`
}

// Document is everything a renderer needs.
type Document struct {
	Tool        string                `json:"tool"`
	Version     string                `json:"version"`
	RunID       string                `json:"run_id,omitempty"`
	GeneratedAt time.Time             `json:"generated_at"`
	Summary     Summary               `json:"summary"`
	Score       score.ProjectScore    `json:"score"`
	Trend       *history.Trend        `json:"trend,omitempty"`
	Files       []analysis.FileReport `json:"files"`
}

// Build derives the document for result. Skipped files count toward the
// total but not toward code files.
func Build(result app.Result, version string) Document {
	summary := Summary{
		TotalFiles:       len(result.Scan.Files) + result.Scan.Skipped,
		CodeFiles:        len(result.Reports),
		TotalIssues:      result.Score.TotalIssues,
		OverallScore:     result.Score.OverallScore,
		AverageFileScore: result.Score.AverageFileScore,
		IssueBreakdown:   result.Score.IssueBreakdown,
		FilesByExtension: result.Scan.ByExtension,
		FileIssueCounts:  make(map[string]int, len(result.Reports)),
	}
	if summary.FilesByExtension == nil {
		summary.FilesByExtension = map[string]int{}
	}
	if summary.IssueBreakdown == nil {
		summary.IssueBreakdown = score.NewBreakdown()
	}

	files := result.Reports
	if files == nil {
		files = []analysis.FileReport{}
	}
	for _, report := range files {
		summary.FileIssueCounts[report.Path] = len(report.Issues)
		summary.Severity.Total += report.Summary.Total
		summary.Severity.High += report.Summary.High
		summary.Severity.Medium += report.Summary.Medium
		summary.Severity.Low += report.Summary.Low
		if report.ReadError != "" {
			summary.ReadErrors++
		}
	}

	return Document{
		Tool:        ToolName,
		Version:     version,
		RunID:       result.RunID,
		GeneratedAt: time.Now().UTC(),
		Summary:     summary,
		Score:       result.Score,
		Trend:       result.Trend,
		Files:       files,
	}
}
