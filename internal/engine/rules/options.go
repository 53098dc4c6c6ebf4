package rules

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Options are the raw settings for one rule as decoded from TOML or JSON.
// Accessors never fail: a missing or malformed value yields the default.
type Options map[string]any

// Int reads a positive integer option.
func (o Options) Int(key string, def int) int {
	raw, ok := o[key]
	if !ok {
		return def
	}
	var n int
	switch v := raw.(type) {
	case int:
		n = v
	case int64:
		n = int(v)
	case float64:
		if v != math.Trunc(v) {
			return def
		}
		n = int(v)
	case json.Number:
		parsed, err := v.Int64()
		if err != nil {
			return def
		}
		n = int(parsed)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return def
		}
		n = parsed
	default:
		return def
	}
	if n <= 0 {
		return def
	}
	return n
}

// Float reads a positive number option.
func (o Options) Float(key string, def float64) float64 {
	raw, ok := o[key]
	if !ok {
		return def
	}
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return def
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return def
		}
		f = parsed
	default:
		return def
	}
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return f
}

// Bool reads a boolean option.
func (o Options) Bool(key string, def bool) bool {
	raw, ok := o[key]
	if !ok {
		return def
	}
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return def
		}
		return parsed
	default:
		return def
	}
}

// Strings reads a list of non-empty strings. An explicitly empty list is
// honoured; a list with no usable entries is not.
func (o Options) Strings(key string, def []string) []string {
	raw, ok := o[key]
	if !ok {
		return def
	}
	var out []string
	switch v := raw.(type) {
	case []string:
		if len(v) == 0 {
			return []string{}
		}
		for _, s := range v {
			if s != "" {
				out = append(out, s)
			}
		}
	case []any:
		if len(v) == 0 {
			return []string{}
		}
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
	default:
		return def
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// Config maps rule IDs to their options.
type Config map[string]Options

// Enabled reports whether id is switched on. Rules are enabled unless their
// options say "enabled = false".
func (c Config) Enabled(id string) bool {
	return c.For(id).Bool("enabled", true)
}

// For returns the options for id, never nil.
func (c Config) For(id string) Options {
	if opts, ok := c[id]; ok && opts != nil {
		return opts
	}
	return Options{}
}

// Merge returns a copy of c with the keys of other layered on top.
func (c Config) Merge(other Config) Config {
	out := make(Config, len(c)+len(other))
	for id, opts := range c {
		out[id] = cloneOptions(opts)
	}
	for id, opts := range other {
		merged := out[id]
		if merged == nil {
			merged = Options{}
		}
		for k, v := range opts {
			merged[k] = v
		}
		out[id] = merged
	}
	return out
}

func cloneOptions(opts Options) Options {
	out := make(Options, len(opts))
	for k, v := range opts {
		out[k] = v
	}
	return out
}
