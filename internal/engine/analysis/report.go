// Package analysis runs the rule engines across many files and produces one
// report per file.
package analysis

import "nexalint/internal/engine/rules"

// Summary counts a file's issues by severity.
type Summary struct {
	Total  int `json:"total"`
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// Summarize counts issues by severity.
func Summarize(issues []rules.Issue) Summary {
	s := Summary{Total: len(issues)}
	for _, issue := range issues {
		switch issue.Severity {
		case rules.SeverityHigh:
			s.High++
		case rules.SeverityMedium:
			s.Medium++
		default:
			s.Low++
		}
	}
	return s
}

// FileReport holds the findings for one input path.
type FileReport struct {
	Path      string        `json:"file"`
	Issues    []rules.Issue `json:"issues"`
	Summary   Summary       `json:"summary"`
	ReadError string        `json:"read_error,omitempty"`
}

func newReport(path string, issues []rules.Issue) FileReport {
	if issues == nil {
		issues = []rules.Issue{}
	}
	return FileReport{Path: path, Issues: issues, Summary: Summarize(issues)}
}
