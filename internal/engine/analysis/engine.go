package analysis

import (
	"context"
	"log/slog"
	"nexalint/internal/core/errors"
	"nexalint/internal/core/ports"
	"nexalint/internal/engine/rules"
	"nexalint/internal/engine/scan"
	"nexalint/internal/shared/observability"
	"nexalint/internal/shared/util"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Config selects which rule sets run on which files.
type Config struct {
	// SupportedExtensions are eligible for the security set. Empty means every
	// file is eligible.
	SupportedExtensions []string
	// DeepCheckExtensions additionally run the quality, performance and style
	// sets.
	DeepCheckExtensions []string
	RuleSets            []string
	Rules               rules.Config
	// Syntax maps an extension to a scan syntax profile name.
	Syntax  map[string]string
	Workers int
}

// Engine analyses files on a bounded worker pool. It holds no per-run state
// and may be reused.
type Engine struct {
	reader    ports.SourceReader
	security  *rules.Engine
	deep      *rules.Engine
	supported map[string]bool
	deepExt   map[string]bool
	syntax    map[string]scan.Syntax
	workers   int
}

// NewEngine builds the rule engines for cfg. Unknown rule set names are a
// validation error.
func NewEngine(cfg Config, reader ports.SourceReader) (*Engine, error) {
	sets := cfg.RuleSets
	if len(sets) == 0 {
		sets = rules.DefaultSets
	}

	var securityRules, deepRules []rules.Rule
	for _, name := range sets {
		if !rules.KnownSet(name) {
			return nil, errors.AddContext(errors.Newf(errors.CodeValidationError, "unknown rule set %q", name), errors.CtxSetting, "analysis.rule_sets")
		}
		if rules.IsDeepSet(name) {
			deepRules = append(deepRules, rules.NewSet(name)...)
		} else {
			securityRules = append(securityRules, rules.NewSet(name)...)
		}
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	syntax := make(map[string]scan.Syntax, len(cfg.Syntax))
	for ext, name := range cfg.Syntax {
		syntax[util.NormalizeExtension(ext)] = scan.LookupSyntax(name)
	}

	return &Engine{
		reader:    reader,
		security:  rules.NewEngine(securityRules, cfg.Rules),
		deep:      rules.NewEngine(deepRules, cfg.Rules),
		supported: util.ExtensionSet(cfg.SupportedExtensions),
		deepExt:   util.ExtensionSet(cfg.DeepCheckExtensions),
		syntax:    syntax,
		workers:   workers,
	}, nil
}

// RuleIDs returns the active security and deep-check rule IDs.
func (e *Engine) RuleIDs() (security, deep []string) {
	return e.security.RuleIDs(), e.deep.RuleIDs()
}

// Analyze returns one report per path in input order. Per-file problems are
// recorded in the reports; only cancellation of ctx is returned.
func (e *Engine) Analyze(ctx context.Context, paths []string) ([]FileReport, error) {
	ctx, span := observability.Tracer.Start(ctx, "analysis.Analyze", trace.WithAttributes(
		attribute.Int("files", len(paths)),
	))
	defer span.End()
	start := time.Now()
	defer func() {
		observability.AnalysisDuration.WithLabelValues("project").Observe(time.Since(start).Seconds())
	}()

	reports := make([]FileReport, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reports[i] = e.AnalyzeFile(gctx, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return reports, nil
}

// AnalyzeFile reads and analyses one file. A read failure yields an empty
// report carrying the error text.
func (e *Engine) AnalyzeFile(ctx context.Context, path string) FileReport {
	ext := util.Extension(path)
	ctx, span := observability.Tracer.Start(ctx, "analysis.AnalyzeFile", trace.WithAttributes(
		attribute.String("path", path),
		attribute.String("extension", ext),
	))
	defer span.End()

	if !e.eligible(ext) {
		slog.Debug("skipping unsupported file", "path", path)
		return newReport(path, nil)
	}

	text, err := e.reader.ReadSource(ctx, path)
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("failed to read source", "path", path, "error", err)
			observability.ReadErrorsTotal.Inc()
			span.RecordError(err)
		}
		report := newReport(path, nil)
		report.ReadError = err.Error()
		return report
	}

	start := time.Now()
	issues := e.AnalyzeSource(path, text)
	observability.FileAnalysisDuration.WithLabelValues(ext).Observe(time.Since(start).Seconds())
	observability.FilesAnalyzedTotal.WithLabelValues(ext).Inc()
	span.SetAttributes(attribute.Int("issues", len(issues)))
	return newReport(path, issues)
}

// AnalyzeSource runs the applicable rule engines over already decoded text.
// Security rules always run; the deep-check sets only for allowlisted
// extensions.
func (e *Engine) AnalyzeSource(path, text string) []rules.Issue {
	ext := util.Extension(path)
	src := rules.Source{Path: path, Text: text, Syntax: e.syntaxFor(ext)}

	results := e.security.Run(src)
	if e.deepExt[ext] {
		results = append(results, e.deep.Run(src)...)
	}
	for _, failed := range rules.Failed(results) {
		slog.Warn("rule failed", "path", path, "rule", failed.Rule, "error", failed.Err)
		observability.RuleFailuresTotal.WithLabelValues(failed.Rule).Inc()
	}

	issues := rules.Flatten(results)
	for _, issue := range issues {
		observability.IssuesTotal.WithLabelValues(string(issue.Kind), issue.Severity.String()).Inc()
	}
	return issues
}

func (e *Engine) eligible(ext string) bool {
	return len(e.supported) == 0 || e.supported[ext]
}

func (e *Engine) syntaxFor(ext string) scan.Syntax {
	if syn, ok := e.syntax[ext]; ok {
		return syn
	}
	return scan.PythonSyntax
}
