// Package app wires configuration, file collection, analysis, scoring and
// run history into one-shot and watch-mode runs.
package app

import (
	"context"
	"io"
	"log/slog"
	"nexalint/internal/core/config"
	"nexalint/internal/core/ports"
	"nexalint/internal/core/watcher"
	"nexalint/internal/data/history"
	"nexalint/internal/data/queue"
	"nexalint/internal/engine/analysis"
	"nexalint/internal/engine/score"
	"nexalint/internal/shared/observability"
	"nexalint/internal/shared/util"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Result is the outcome of one run or one watch-mode update.
type Result struct {
	RunID    string
	Scan     ports.ScanResult
	Reports  []analysis.FileReport
	Score    score.ProjectScore
	Trend    *history.Trend
	Duration time.Duration
}

// Dependencies overrides the adapters New would build from config. Nil
// fields fall back to the defaults.
type Dependencies struct {
	Reader    ports.SourceReader
	Collector ports.FileCollector
	History   ports.HistoryStore
}

type App struct {
	Config *config.Config

	mu        sync.RWMutex
	analyzer  *analysis.Engine
	scorer    *score.Engine
	reader    ports.SourceReader
	collector ports.FileCollector
	history   ports.HistoryStore
	closer    io.Closer

	// Latest report per path, kept for incremental watch updates.
	reports map[string]analysis.FileReport
	scan    ports.ScanResult
	last    *Result

	writeQueue   *queue.MemoryQueue[history.Run]
	workerCancel context.CancelFunc
	workerDone   chan struct{}

	activeWatcher *watcher.Watcher

	updateMu sync.RWMutex
	onUpdate func(Result)
}

// New builds an App from cfg, opening the history database when enabled.
func New(cfg *config.Config) (*App, error) {
	deps := Dependencies{}
	var closer io.Closer
	if cfg.DB.Enabled {
		store, err := history.Open(cfg.DB.Path, cfg.DB.BusyTimeout)
		if err != nil {
			return nil, err
		}
		deps.History = store
		closer = store
	}
	a, err := NewWithDependencies(cfg, deps)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, err
	}
	a.closer = closer
	return a, nil
}

func NewWithDependencies(cfg *config.Config, deps Dependencies) (*App, error) {
	a := &App{
		Config:  cfg,
		history: deps.History,
		reports: make(map[string]analysis.FileReport),
	}
	if err := a.configure(cfg, deps.Reader, deps.Collector); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) configure(cfg *config.Config, reader ports.SourceReader, collector ports.FileCollector) error {
	if reader == nil {
		reader = analysis.NewFileReader(cfg.Analysis.MaxFileBytes, util.NewReadLimiter(cfg.Analysis.ReadsPerSecond))
	}
	if collector == nil {
		c, err := NewCollector(cfg.Scan)
		if err != nil {
			return err
		}
		collector = c
	}
	analyzer, err := analysis.NewEngine(cfg.AnalysisConfig(), reader)
	if err != nil {
		return err
	}
	scorer, err := cfg.ScoreEngine()
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.Config = cfg
	a.reader = reader
	a.collector = collector
	a.analyzer = analyzer
	a.scorer = scorer
	return nil
}

// Reconfigure swaps in engines built from cfg. History settings are fixed for
// the lifetime of the App. Cached reports are dropped so the next run starts
// clean.
func (a *App) Reconfigure(cfg *config.Config) error {
	if err := a.configure(cfg, nil, nil); err != nil {
		return err
	}
	a.mu.Lock()
	a.reports = make(map[string]analysis.FileReport)
	a.mu.Unlock()
	if a.activeWatcher != nil {
		a.activeWatcher.SetDebounce(cfg.Watch.Debounce)
	}
	return nil
}

func (a *App) SetUpdateHandler(handler func(Result)) {
	a.updateMu.Lock()
	defer a.updateMu.Unlock()
	a.onUpdate = handler
}

func (a *App) emitUpdate(result Result) {
	a.updateMu.RLock()
	handler := a.onUpdate
	a.updateMu.RUnlock()
	if handler != nil {
		handler(result)
	}
}

// CurrentConfig returns the config in effect, which changes on Reconfigure.
func (a *App) CurrentConfig() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.Config
}

// LastResult returns the most recent run, if any.
func (a *App) LastResult() (Result, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.last == nil {
		return Result{}, false
	}
	return *a.last, true
}

// RunOnce collects, analyses and scores every file under the scan roots.
// Only collection failures and cancellation are returned as errors.
func (a *App) RunOnce(ctx context.Context) (Result, error) {
	start := time.Now()
	a.mu.RLock()
	cfg, collector, analyzer := a.Config, a.collector, a.analyzer
	a.mu.RUnlock()

	ctx, span := observability.Tracer.Start(ctx, "app.RunOnce", trace.WithAttributes(
		attribute.Int("roots", len(cfg.Scan.Roots)),
	))
	defer span.End()

	scan, err := collector.Collect(ctx, ports.ScanRequest{Roots: cfg.Scan.Roots})
	if err != nil {
		span.RecordError(err)
		return Result{}, err
	}
	slog.Debug("collected files", "files", len(scan.Files), "skipped", scan.Skipped)

	reports, err := analyzer.Analyze(ctx, scan.Files)
	if err != nil {
		span.RecordError(err)
		return Result{}, err
	}

	a.mu.Lock()
	a.scan = scan
	a.reports = make(map[string]analysis.FileReport, len(reports))
	for _, report := range reports {
		a.reports[report.Path] = report
	}
	a.mu.Unlock()

	return a.finish(ctx, scan, reports, start), nil
}

// HandleChanges re-analyses changed paths against the cached reports of the
// previous run. Deleted or no longer eligible files drop out of the project.
func (a *App) HandleChanges(ctx context.Context, paths []string) (Result, error) {
	start := time.Now()
	a.mu.RLock()
	analyzer, collector := a.analyzer, a.collector
	a.mu.RUnlock()

	ctx, span := observability.Tracer.Start(ctx, "app.HandleChanges", trace.WithAttributes(
		attribute.Int("changed", len(paths)),
	))
	defer span.End()

	var toAnalyze, removed []string
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil || !accepts(collector, path) {
			removed = append(removed, path)
			continue
		}
		toAnalyze = append(toAnalyze, path)
	}

	fresh, err := analyzer.Analyze(ctx, toAnalyze)
	if err != nil {
		return Result{}, err
	}

	a.mu.Lock()
	for _, path := range removed {
		delete(a.reports, path)
	}
	for _, report := range fresh {
		a.reports[report.Path] = report
	}
	reports := make([]analysis.FileReport, 0, len(a.reports))
	byExt := make(map[string]int)
	files := make([]string, 0, len(a.reports))
	for _, path := range util.SortedStringKeys(a.reports) {
		reports = append(reports, a.reports[path])
		files = append(files, path)
		byExt[util.Extension(path)]++
	}
	a.scan = ports.ScanResult{Files: files, ByExtension: byExt, Skipped: a.scan.Skipped}
	scan := a.scan
	a.mu.Unlock()

	slog.Info("re-analysed changed files", "analysed", len(toAnalyze), "removed", len(removed))
	return a.finish(ctx, scan, reports, start), nil
}

func accepts(collector ports.FileCollector, path string) bool {
	if f, ok := collector.(interface{ Accepts(string) bool }); ok {
		return f.Accepts(path)
	}
	return true
}

func (a *App) finish(ctx context.Context, scan ports.ScanResult, reports []analysis.FileReport, start time.Time) Result {
	a.mu.RLock()
	scorer, cfg := a.scorer, a.Config
	a.mu.RUnlock()

	project := scorer.Project(reports)
	observability.ProjectScore.Set(float64(project.OverallScore))

	result := Result{
		RunID:    history.NewRunID(),
		Scan:     scan,
		Reports:  reports,
		Score:    project,
		Duration: time.Since(start),
	}

	if a.history != nil {
		run := toRun(result, cfg.DB.ProjectKey, start)
		result.Trend = a.trend(ctx, cfg, run)
		a.persistRun(ctx, run)
	}

	a.mu.Lock()
	a.last = &result
	a.mu.Unlock()

	a.emitUpdate(result)
	return result
}

func toRun(result Result, projectKey string, start time.Time) history.Run {
	run := history.Run{
		ID:           result.RunID,
		ProjectKey:   projectKey,
		StartedAt:    start.UTC(),
		Duration:     result.Duration,
		Files:        len(result.Reports),
		TotalIssues:  result.Score.TotalIssues,
		OverallScore: result.Score.OverallScore,
		AverageScore: result.Score.AverageFileScore,
		Breakdown:    result.Score.IssueBreakdown,
		FileScores:   make([]history.FileScore, 0, len(result.Score.FileScores)),
	}
	for _, fs := range result.Score.FileScores {
		run.FileScores = append(run.FileScores, history.FileScore{Path: fs.Path, Score: fs.Score, IssueCount: fs.IssueCount})
	}
	return run
}

// trend combines stored runs with the current one, which may not be written
// yet when persistence is queued.
func (a *App) trend(ctx context.Context, cfg *config.Config, current history.Run) *history.Trend {
	window := max(cfg.DB.TrendWindow, 1)
	previous, err := a.history.LoadRuns(ctx, cfg.DB.ProjectKey, time.Time{}, window)
	if err != nil {
		slog.Warn("failed to load run history", "error", err)
		return nil
	}
	runs := append(previous, current)
	if len(runs) > window {
		runs = runs[len(runs)-window:]
	}
	trend := history.BuildTrend(runs)
	return &trend
}
