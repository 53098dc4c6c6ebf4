package ports

import (
	"context"
	"nexalint/internal/data/history"
	"time"
)

// SourceReader returns the decoded text of a source file. Implementations
// bound the amount read and replace undecodable bytes.
type SourceReader interface {
	ReadSource(ctx context.Context, path string) (string, error)
}

// ScanRequest lists the roots a FileCollector should walk.
type ScanRequest struct {
	Roots []string
}

// ScanResult is the ordered list of files eligible for analysis.
type ScanResult struct {
	Files       []string
	ByExtension map[string]int
	Skipped     int
}

// FileCollector enumerates source files. A walk error is fatal to the run.
type FileCollector interface {
	Collect(ctx context.Context, req ScanRequest) (ScanResult, error)
}

// HistoryStore persists run snapshots for trend reporting.
type HistoryStore interface {
	SaveRun(ctx context.Context, projectKey string, run history.Run) error
	LoadRuns(ctx context.Context, projectKey string, since time.Time, limit int) ([]history.Run, error)
}
