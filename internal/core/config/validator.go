package config

import (
	"fmt"
	"nexalint/internal/core/errors"
	"nexalint/internal/engine/rules"
	"nexalint/internal/engine/scan"
	"nexalint/internal/engine/score"
	"strings"

	"github.com/gobwas/glob"
)

// Validate checks cfg and returns the first problem found.
func Validate(cfg *Config) error {
	for _, check := range []func(*Config) error{
		validateVersion,
		validateScan,
		validateAnalysis,
		validateScoring,
		validateDatabase,
		validateWatch,
		validateOutput,
	} {
		if err := check(cfg); err != nil {
			return err
		}
	}
	return nil
}

func invalid(setting, format string, args ...any) error {
	return errors.AddContext(errors.New(errors.CodeValidationError, fmt.Sprintf(format, args...)), errors.CtxSetting, setting)
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return invalid("version", "unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateScan(cfg *Config) error {
	for i, root := range cfg.Scan.Roots {
		if strings.TrimSpace(root) == "" {
			return invalid(fmt.Sprintf("scan.roots[%d]", i), "root must not be empty")
		}
	}
	if len(cfg.Scan.SupportedExtensions) == 0 {
		return invalid("scan.supported_extensions", "at least one extension is required")
	}
	for _, pattern := range append(append([]string(nil), cfg.Scan.ExcludeDirs...), cfg.Scan.ExcludeFiles...) {
		if _, err := glob.Compile(pattern); err != nil {
			return invalid("scan.exclude", "invalid glob %q: %v", pattern, err)
		}
	}
	return nil
}

func validateAnalysis(cfg *Config) error {
	for _, set := range cfg.Analysis.RuleSets {
		if !rules.KnownSet(set) {
			return invalid("analysis.rule_sets", "unknown rule set %q; expected security, quality, performance or style", set)
		}
	}
	if cfg.Analysis.ReadsPerSecond < 0 {
		return invalid("analysis.reads_per_second", "must be >= 0")
	}
	for ext, name := range cfg.Analysis.Syntax {
		if name != scan.SyntaxPython && scan.LookupSyntax(name).Name == scan.SyntaxPython {
			return invalid("analysis.syntax", "unknown syntax %q for %s; expected %s or %s", name, ext, scan.SyntaxPython, scan.SyntaxCLike)
		}
	}
	return nil
}

func validateScoring(cfg *Config) error {
	if cfg.Scoring.InitialScore < 1 || cfg.Scoring.InitialScore > score.InitialScore {
		return invalid("scoring.initial_score", "must be between 1 and %d", score.InitialScore)
	}
	if _, err := score.ParsePenalties(cfg.Scoring.Penalties); err != nil {
		return err
	}
	return nil
}

func validateDatabase(cfg *Config) error {
	if !cfg.DB.Enabled {
		return nil
	}
	if cfg.DB.Path == "" {
		return invalid("db.path", "must not be empty when db.enabled is true")
	}
	if cfg.DB.ProjectKey == "" {
		return invalid("db.project_key", "must not be empty")
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return invalid("watch.debounce", "must be >= 0")
	}
	return nil
}

func validateOutput(cfg *Config) error {
	switch cfg.Output.Format {
	case "text", "json", "sarif":
	default:
		return invalid("output.format", "must be one of: text, json, sarif")
	}
	if cfg.Output.MinScore < 0 || cfg.Output.MinScore > cfg.Scoring.InitialScore {
		return invalid("output.min_score", "must be between 0 and %d", cfg.Scoring.InitialScore)
	}
	return nil
}
