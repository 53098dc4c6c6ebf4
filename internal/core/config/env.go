package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: NEXALINT_[SECTION]_[KEY] (e.g., NEXALINT_OUTPUT_FORMAT).
// Overridden values are not re-validated; call Validate afterwards.
func ApplyEnvOverrides(cfg *Config) {
	// Analysis
	setEnvInt(&cfg.Analysis.Workers, "NEXALINT_ANALYSIS_WORKERS")
	setEnvInt64(&cfg.Analysis.MaxFileBytes, "NEXALINT_ANALYSIS_MAX_FILE_BYTES")
	setEnvFloat64(&cfg.Analysis.ReadsPerSecond, "NEXALINT_ANALYSIS_READS_PER_SECOND")
	setEnvList(&cfg.Analysis.RuleSets, "NEXALINT_ANALYSIS_RULE_SETS")

	// Database
	setEnvBool(&cfg.DB.Enabled, "NEXALINT_DB_ENABLED")
	setEnvString(&cfg.DB.Path, "NEXALINT_DB_PATH")
	setEnvString(&cfg.DB.ProjectKey, "NEXALINT_DB_PROJECT_KEY")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "NEXALINT_WATCH_DEBOUNCE")

	// Observability
	setEnvBool(&cfg.Observability.Enabled, "NEXALINT_OBSERVABILITY_ENABLED")
	setEnvString(&cfg.Observability.Address, "NEXALINT_OBSERVABILITY_ADDRESS")
	setEnvString(&cfg.Observability.OTLPEndpoint, "NEXALINT_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.EnableTracing, "NEXALINT_OBSERVABILITY_ENABLE_TRACING")

	// Output
	setEnvString(&cfg.Output.Format, "NEXALINT_OUTPUT_FORMAT")
	setEnvString(&cfg.Output.Path, "NEXALINT_OUTPUT_PATH")
	setEnvInt(&cfg.Output.MinScore, "NEXALINT_OUTPUT_MIN_SCORE")
	cfg.Output.Format = strings.ToLower(cfg.Output.Format)
}

func logOverride(key, val string) {
	slog.Debug("applying env override", "key", key, "value", val)
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		logOverride(key, val)
		*target = strings.TrimSpace(val)
	}
}

func setEnvList(target *[]string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		var items []string
		for _, item := range strings.Split(val, ",") {
			if item = strings.ToLower(strings.TrimSpace(item)); item != "" {
				items = append(items, item)
			}
		}
		if len(items) > 0 {
			logOverride(key, val)
			*target = items
		}
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			logOverride(key, val)
			*target = i
		}
	}
}

func setEnvInt64(target *int64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			logOverride(key, val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			logOverride(key, val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			logOverride(key, val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			logOverride(key, val)
			*target = d
		}
	}
}
