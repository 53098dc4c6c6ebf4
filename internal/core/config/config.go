// Package config loads the nexalint TOML configuration.
package config

import (
	"nexalint/internal/engine/analysis"
	"nexalint/internal/engine/rules"
	"nexalint/internal/engine/score"
	"time"
)

const (
	DefaultConfigFile = "nexalint.toml"
	DefaultDBPath     = ".nexalint/history.db"
)

type Config struct {
	Version       int           `toml:"version"`
	Scan          Scan          `toml:"scan"`
	Analysis      Analysis      `toml:"analysis"`
	Rules         rules.Config  `toml:"rules"`
	RulesFile     string        `toml:"rules_file"`
	Scoring       Scoring       `toml:"scoring"`
	DB            Database      `toml:"db"`
	Watch         Watch         `toml:"watch"`
	Observability Observability `toml:"observability"`
	Output        Output        `toml:"output"`
}

type Scan struct {
	Roots               []string `toml:"roots"`
	SupportedExtensions []string `toml:"supported_extensions"`
	ExcludeDirs         []string `toml:"exclude_dirs"`
	ExcludeFiles        []string `toml:"exclude_files"`
}

type Analysis struct {
	DeepCheckExtensions []string          `toml:"deep_check_extensions"`
	RuleSets            []string          `toml:"rule_sets"`
	Workers             int               `toml:"workers"`
	MaxFileBytes        int64             `toml:"max_file_bytes"`
	ReadsPerSecond      float64           `toml:"reads_per_second"`
	Syntax              map[string]string `toml:"syntax"`
}

type Scoring struct {
	InitialScore int                       `toml:"initial_score"`
	Penalties    map[string]map[string]int `toml:"penalties"`
}

type Database struct {
	Enabled     bool          `toml:"enabled"`
	Path        string        `toml:"path"`
	ProjectKey  string        `toml:"project_key"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
	TrendWindow int           `toml:"trend_window"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

type Observability struct {
	Enabled       bool   `toml:"enabled"`
	Address       string `toml:"address"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
	EnableTracing bool   `toml:"enable_tracing"`
}

type Output struct {
	Format   string `toml:"format"`
	Path     string `toml:"path"`
	MinScore int    `toml:"min_score"`
}

// DefaultConfig returns a fully defaulted configuration for runs without a
// config file.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	normalize(cfg, ".")
	return cfg
}

// AnalysisConfig projects the settings consumed by the analysis engine.
func (c *Config) AnalysisConfig() analysis.Config {
	return analysis.Config{
		SupportedExtensions: c.Scan.SupportedExtensions,
		DeepCheckExtensions: c.Analysis.DeepCheckExtensions,
		RuleSets:            c.Analysis.RuleSets,
		Rules:               c.Rules,
		Syntax:              c.Analysis.Syntax,
		Workers:             c.Analysis.Workers,
	}
}

// ScoreEngine builds the scorer for the configured penalty table.
func (c *Config) ScoreEngine() (*score.Engine, error) {
	if len(c.Scoring.Penalties) == 0 {
		return score.NewEngine(c.Scoring.InitialScore, nil), nil
	}
	penalties, err := score.ParsePenalties(c.Scoring.Penalties)
	if err != nil {
		return nil, err
	}
	return score.NewEngine(c.Scoring.InitialScore, penalties), nil
}
