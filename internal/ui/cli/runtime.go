package cli

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	coreapp "nexalint/internal/core/app"
	"nexalint/internal/core/config"
	"nexalint/internal/core/errors"
	"nexalint/internal/shared/observability"
	"nexalint/internal/shared/util"
	"nexalint/internal/ui/report"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"
)

const shutdownTimeout = 5 * time.Second

func Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseOptions(args, stderr)
	if err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	if opts.version {
		fmt.Fprintf(stdout, "nexalint v%s\n", versionString)
		return 0
	}

	configureLogging(stderr, opts.verbose)

	cfg, cfgPath, err := loadConfig(opts.configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	config.ApplyEnvOverrides(cfg)
	if err := applyOptions(&opts, cfg); err != nil {
		slog.Error("invalid configuration", "error", err)
		return 1
	}

	shutdownTracing, err := observability.SetupTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Observability.EnableTracing,
		Endpoint:    cfg.Observability.OTLPEndpoint,
		ServiceName: report.ToolName,
		Version:     versionString,
	})
	if err != nil {
		slog.Error("failed to set up tracing", "error", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}()

	a, err := coreapp.New(cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		return 1
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			slog.Warn("failed to close app", "error", err)
		}
	}()

	if cfg.Observability.Enabled {
		server := NewObservabilityServer(cfg.Observability.Address, a)
		if err := server.Start(ctx); err != nil {
			slog.Error("failed to start observability server", "error", err)
			return 1
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = server.Stop(stopCtx)
		}()
	}

	out := &reportWriter{stdout: stdout, verbose: opts.verbose}
	result, err := a.RunOnce(ctx)
	if err != nil {
		slog.Error("analysis failed", "error", err)
		return 1
	}
	if err := out.write(a.CurrentConfig(), result); err != nil {
		slog.Error("failed to write report", "error", err)
		return 1
	}

	if !opts.watch {
		return gate(cfg, result)
	}
	return runWatch(ctx, a, out, opts, cfgPath)
}

// runWatch blocks until ctx is cancelled, rendering a fresh report for every
// batch of changes and applying config edits as they are saved.
func runWatch(ctx context.Context, a *coreapp.App, out *reportWriter, opts cliOptions, cfgPath string) int {
	a.SetUpdateHandler(func(result coreapp.Result) {
		if err := out.write(a.CurrentConfig(), result); err != nil {
			slog.Warn("failed to write report", "error", err)
		}
	})
	if err := a.StartWatcher(ctx); err != nil {
		slog.Error("failed to start watcher", "error", err)
		return 1
	}

	if cfgPath != "" {
		reloader := config.NewReloader(cfgPath, a.CurrentConfig(), func(next *config.Config) {
			if err := applyOptions(&opts, next); err != nil {
				slog.Warn("reloaded configuration rejected", "error", err)
				return
			}
			if err := a.Reconfigure(next); err != nil {
				slog.Warn("failed to apply reloaded configuration", "error", err)
				return
			}
			if _, err := a.RunOnce(ctx); err != nil {
				slog.Warn("analysis after reload failed", "error", err)
			}
		})
		if err := reloader.Start(ctx); err != nil {
			slog.Warn("config hot reload disabled", "path", cfgPath, "error", err)
		} else {
			defer reloader.Stop()
		}
	}

	slog.Info("watching for changes", "roots", a.CurrentConfig().Scan.Roots)
	<-ctx.Done()
	slog.Info("shutting down")
	return 0
}

// gate fails the run when the overall score is below output.min_score.
func gate(cfg *config.Config, result coreapp.Result) int {
	if result.Score.OverallScore < cfg.Output.MinScore {
		slog.Error("score below minimum", "score", result.Score.OverallScore, "min_score", cfg.Output.MinScore)
		return 1
	}
	return 0
}

// loadConfig reads path. A missing default config file falls back to the
// built-in defaults, in which case the returned path is empty.
func loadConfig(path string) (*config.Config, string, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, path, nil
	}
	if path == config.DefaultConfigFile && errors.IsCode(err, errors.CodeNotFound) {
		slog.Debug("no config file found, using defaults", "path", path)
		return config.DefaultConfig(), "", nil
	}
	return nil, "", err
}

// applyOptions layers command line values over cfg and validates the
// result. Positional arguments replace the scan roots.
func applyOptions(opts *cliOptions, cfg *config.Config) error {
	if len(opts.args) > 0 {
		roots := make([]string, 0, len(opts.args))
		for _, arg := range opts.args {
			abs, err := filepath.Abs(arg)
			if err != nil {
				return errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "resolve root"), errors.CtxPath, arg)
			}
			roots = append(roots, abs)
		}
		cfg.Scan.Roots = roots
	}
	if opts.format != "" {
		cfg.Output.Format = opts.format
	}
	if opts.outPath != "" {
		abs, err := filepath.Abs(opts.outPath)
		if err != nil {
			return errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "resolve output path"), errors.CtxPath, opts.outPath)
		}
		cfg.Output.Path = abs
	}
	if opts.minScore >= 0 {
		cfg.Output.MinScore = opts.minScore
	}
	return config.Validate(cfg)
}

// reportWriter renders results to output.path or stdout. Watch-mode updates
// and the initial run share it.
type reportWriter struct {
	mu      sync.Mutex
	stdout  io.Writer
	verbose bool
}

func (w *reportWriter) write(cfg *config.Config, result coreapp.Result) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	doc := report.Build(result, versionString)
	opts := report.Options{Root: reportRoot(cfg.Scan.Roots), Verbose: w.verbose}

	if cfg.Output.Path == "" {
		return report.Write(w.stdout, cfg.Output.Format, doc, opts)
	}
	var buf bytes.Buffer
	if err := report.Write(&buf, cfg.Output.Format, doc, opts); err != nil {
		return err
	}
	if err := util.WriteFileAtomic(cfg.Output.Path, buf.Bytes(), 0o644); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "write report"), errors.CtxPath, cfg.Output.Path)
	}
	slog.Info("report written", "path", cfg.Output.Path, "format", cfg.Output.Format)
	return nil
}

// reportRoot anchors relative paths in reports: the single scan root when it
// is a directory, otherwise the working directory.
func reportRoot(roots []string) string {
	if len(roots) == 1 {
		if info, err := os.Stat(roots[0]); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(roots[0]); err == nil {
				return abs
			}
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return cwd
}

func configureLogging(w io.Writer, verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
}
