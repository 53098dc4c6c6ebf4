package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"nexalint/internal/core/errors"
	"nexalint/internal/engine/rules"
	"nexalint/internal/shared/util"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

var (
	defaultSupportedExtensions = []string{".py", ".js", ".java", ".cpp", ".ts"}
	defaultExcludeDirs         = []string{".git", "node_modules", "__pycache__", "venv", ".venv", "dist", "build"}
)

// Load reads, defaults and validates the config file at path. Relative paths
// inside the file resolve against its directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "config file"), errors.CtxPath, path)
		}
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeReadFailed, "config file"), errors.CtxPath, path)
	}
	cfg, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	return cfg, nil
}

// Parse decodes TOML data. baseDir anchors relative paths.
func Parse(data []byte, baseDir string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "decode toml")
	}

	applyDefaults(&cfg)
	normalize(&cfg, baseDir)

	loadRulesFile(&cfg)
	pruneUnknownRules(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if len(cfg.Scan.Roots) == 0 {
		cfg.Scan.Roots = []string{"."}
	}
	if len(cfg.Scan.SupportedExtensions) == 0 {
		cfg.Scan.SupportedExtensions = append([]string(nil), defaultSupportedExtensions...)
	}
	if cfg.Scan.ExcludeDirs == nil {
		cfg.Scan.ExcludeDirs = append([]string(nil), defaultExcludeDirs...)
	}

	if len(cfg.Analysis.DeepCheckExtensions) == 0 {
		cfg.Analysis.DeepCheckExtensions = []string{".py"}
	}
	if len(cfg.Analysis.RuleSets) == 0 {
		cfg.Analysis.RuleSets = append([]string(nil), rules.DefaultSets...)
	}
	if cfg.Analysis.Workers <= 0 {
		cfg.Analysis.Workers = runtime.NumCPU()
	}
	if cfg.Analysis.MaxFileBytes <= 0 {
		cfg.Analysis.MaxFileBytes = 2 << 20
	}

	if cfg.Scoring.InitialScore <= 0 {
		cfg.Scoring.InitialScore = 100
	}

	if strings.TrimSpace(cfg.DB.Path) == "" {
		cfg.DB.Path = DefaultDBPath
	}
	if strings.TrimSpace(cfg.DB.ProjectKey) == "" {
		cfg.DB.ProjectKey = "default"
	}
	if cfg.DB.BusyTimeout <= 0 {
		cfg.DB.BusyTimeout = 2 * time.Second
	}
	if cfg.DB.TrendWindow <= 0 {
		cfg.DB.TrendWindow = 10
	}

	// Default debounce if not set.
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}

	if strings.TrimSpace(cfg.Observability.Address) == "" {
		cfg.Observability.Address = "127.0.0.1:9464"
	}

	if strings.TrimSpace(cfg.Output.Format) == "" {
		cfg.Output.Format = "text"
	}
	if cfg.Rules == nil {
		cfg.Rules = rules.Config{}
	}
}

func normalize(cfg *Config, baseDir string) {
	cfg.Scan.SupportedExtensions = normalizeExtensions(cfg.Scan.SupportedExtensions)
	cfg.Analysis.DeepCheckExtensions = normalizeExtensions(cfg.Analysis.DeepCheckExtensions)

	for i, root := range cfg.Scan.Roots {
		cfg.Scan.Roots[i] = ResolveRelative(baseDir, root)
	}
	for i, set := range cfg.Analysis.RuleSets {
		cfg.Analysis.RuleSets[i] = strings.ToLower(strings.TrimSpace(set))
	}
	if len(cfg.Analysis.Syntax) > 0 {
		syntax := make(map[string]string, len(cfg.Analysis.Syntax))
		for ext, name := range cfg.Analysis.Syntax {
			syntax[util.NormalizeExtension(ext)] = strings.ToLower(strings.TrimSpace(name))
		}
		cfg.Analysis.Syntax = syntax
	}

	upper := make(rules.Config, len(cfg.Rules))
	for id, opts := range cfg.Rules {
		upper[strings.ToUpper(strings.TrimSpace(id))] = opts
	}
	cfg.Rules = upper

	if cfg.RulesFile = strings.TrimSpace(cfg.RulesFile); cfg.RulesFile != "" {
		cfg.RulesFile = ResolveRelative(baseDir, cfg.RulesFile)
	}
	cfg.DB.Path = ResolveRelative(baseDir, strings.TrimSpace(cfg.DB.Path))
	cfg.DB.ProjectKey = strings.TrimSpace(cfg.DB.ProjectKey)
	cfg.Output.Format = strings.ToLower(strings.TrimSpace(cfg.Output.Format))
	if cfg.Output.Path = strings.TrimSpace(cfg.Output.Path); cfg.Output.Path != "" {
		cfg.Output.Path = ResolveRelative(baseDir, cfg.Output.Path)
	}
	cfg.Observability.Address = strings.TrimSpace(cfg.Observability.Address)
	cfg.Observability.OTLPEndpoint = strings.TrimSpace(cfg.Observability.OTLPEndpoint)
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	seen := make(map[string]bool, len(exts))
	for _, ext := range exts {
		n := util.NormalizeExtension(ext)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// loadRulesFile layers the TOML [rules] tables over a JSON rules file of the
// form {"RULE_ID": {"enabled": true, "max_lines": 50}}. A rules file that
// cannot be read or decoded is skipped with a warning; the affected rules
// keep their built-in defaults.
func loadRulesFile(cfg *Config) {
	if cfg.RulesFile == "" {
		return
	}
	data, err := os.ReadFile(cfg.RulesFile)
	if err != nil {
		slog.Warn("ignoring unreadable rules file", "path", cfg.RulesFile, "error", err)
		return
	}
	fileRules, err := ParseRulesJSON(data)
	if err != nil {
		slog.Warn("ignoring malformed rules file", "path", cfg.RulesFile, "error", err)
		return
	}
	cfg.Rules = fileRules.Merge(cfg.Rules)
}

// pruneUnknownRules drops option tables for rule IDs no rule answers to.
func pruneUnknownRules(cfg *Config) {
	for id := range cfg.Rules {
		if !rules.KnownID(id) {
			slog.Warn("ignoring options for unknown rule", "rule", id)
			delete(cfg.Rules, id)
		}
	}
}

// ParseRulesJSON decodes a JSON rules file. Numbers keep their textual form
// so integer options survive intact.
func ParseRulesJSON(data []byte) (rules.Config, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "decode rules json")
	}
	out := make(rules.Config, len(raw))
	for id, opts := range raw {
		out[strings.ToUpper(strings.TrimSpace(id))] = rules.Options(opts)
	}
	return out, nil
}

// ResolveRelative joins value onto base unless value is empty or absolute.
func ResolveRelative(base, value string) string {
	if value == "" {
		return ""
	}
	if filepath.IsAbs(value) {
		return filepath.Clean(value)
	}
	if base == "" {
		base = "."
	}
	return filepath.Clean(filepath.Join(base, value))
}
