// Package rules holds the heuristic detectors and the engine that runs a
// configured set of them over one source text.
package rules

import (
	"encoding/json"
	"fmt"
	"iter"
	"nexalint/internal/engine/scan"
	"strings"
)

// Kind groups issues for scoring.
type Kind string

const (
	KindQuality     Kind = "quality"
	KindSecurity    Kind = "security"
	KindPerformance Kind = "performance"
	KindStyle       Kind = "style"
)

// Severity is a three-level ordinal. The info/warning/error vocabulary maps
// onto low/medium/high.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
)

func (s Severity) String() string {
	switch s {
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return "low"
	}
}

// ParseSeverity accepts both vocabularies, case-insensitively.
func ParseSeverity(value string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "low", "info":
		return SeverityLow, true
	case "medium", "warning", "warn":
		return SeverityMedium, true
	case "high", "error":
		return SeverityHigh, true
	default:
		return SeverityLow, false
	}
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	parsed, ok := ParseSeverity(string(text))
	if !ok {
		return fmt.Errorf("unknown severity %q", string(text))
	}
	*s = parsed
	return nil
}

// Issue is a single finding. Line is 1-based; 0 means the issue applies to
// the whole file.
type Issue struct {
	Rule     string   `json:"rule"`
	Kind     Kind     `json:"type"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Line     int      `json:"line"`
}

type issueJSON struct {
	Rule     string   `json:"rule"`
	Kind     Kind     `json:"type"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Line     *int     `json:"line"`
}

func (i Issue) MarshalJSON() ([]byte, error) {
	out := issueJSON{Rule: i.Rule, Kind: i.Kind, Severity: i.Severity, Message: i.Message}
	if i.Line > 0 {
		line := i.Line
		out.Line = &line
	}
	return json.Marshal(out)
}

func (i *Issue) UnmarshalJSON(data []byte) error {
	var in issueJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*i = Issue{Rule: in.Rule, Kind: in.Kind, Severity: in.Severity, Message: in.Message}
	if in.Line != nil {
		i.Line = *in.Line
	}
	return nil
}

// Source is the decoded text of one file plus the syntax profile used to read
// it.
type Source struct {
	Path   string
	Text   string
	Syntax scan.Syntax
}

// NewSource builds a Source using the Python syntax profile.
func NewSource(path, text string) Source {
	return Source{Path: path, Text: text, Syntax: scan.PythonSyntax}
}

// Lines returns the classified lines of the source.
func (s Source) Lines() iter.Seq[scan.ClassifiedLine] {
	return scan.Source(s.Text, s.syntax())
}

func (s Source) syntax() scan.Syntax {
	if s.Syntax.Name == "" {
		return scan.PythonSyntax
	}
	return s.Syntax
}

// Rule is a detector. Evaluate must not retain state between calls.
type Rule interface {
	ID() string
	Evaluate(src Source) ([]Issue, error)
}

// Configurable rules accept per-rule options once, before first use.
type Configurable interface {
	Configure(opts Options)
}

// Profile sets the kind and severity a rule stamps on its issues, so one
// detector can serve several rule sets.
type Profile struct {
	Kind     Kind
	Severity Severity
}

func (p Profile) issue(rule string, line int, format string, args ...any) Issue {
	return Issue{
		Rule:     rule,
		Kind:     p.Kind,
		Severity: p.Severity,
		Message:  fmt.Sprintf(format, args...),
		Line:     line,
	}
}
