package rules

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

type failingRule struct{}

func (failingRule) ID() string { return "FAILING" }

func (failingRule) Evaluate(Source) ([]Issue, error) {
	return nil, errors.New("boom")
}

type panickingRule struct{}

func (panickingRule) ID() string { return "PANICKING" }

func (panickingRule) Evaluate(Source) ([]Issue, error) {
	var lines []int
	_ = lines[3]
	return nil, nil
}

func TestEngine_IsolatesFailures(t *testing.T) {
	engine := NewEngine([]Rule{failingRule{}, NewNamingConvention(style()), panickingRule{}}, nil)
	src := NewSource("a.py", "def BadName():\n    pass")

	results := engine.Run(src)
	if len(results) != 3 {
		t.Fatalf("expected one result per rule, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 2 {
		t.Fatalf("expected 2 failed results, got %d", len(failed))
	}

	issues := engine.Analyze(src)
	if len(issues) != 3 {
		t.Fatalf("expected 3 issues, got %+v", issues)
	}
	if issues[0].Rule != "FAILING" || !strings.HasPrefix(issues[0].Message, "Rule failed safely: ") || !strings.Contains(issues[0].Message, "boom") {
		t.Fatalf("unexpected failure issue %+v", issues[0])
	}
	if issues[0].Severity != SeverityLow || issues[0].Line != 0 {
		t.Fatalf("expected low severity without line, got %+v", issues[0])
	}
	if issues[1].Rule != IDNamingConvention {
		t.Fatalf("expected naming issue second, got %+v", issues[1])
	}
	if issues[2].Rule != "PANICKING" || !strings.Contains(issues[2].Message, "panic") {
		t.Fatalf("unexpected panic issue %+v", issues[2])
	}
}

func TestEngine_ConfigureAndDisable(t *testing.T) {
	cfg := Config{
		IDFunctionLength:   {"max_lines": 2},
		IDNamingConvention: {"enabled": false},
	}
	engine := NewEngine([]Rule{NewNamingConvention(style()), NewFunctionLength(style())}, cfg)
	if ids := engine.RuleIDs(); !reflect.DeepEqual(ids, []string{IDFunctionLength}) {
		t.Fatalf("unexpected active rules %v", ids)
	}

	issues := engine.Analyze(NewSource("a.py", "def Bad():\n    a = 1\n    b = 2\n"))
	if len(issues) != 1 || issues[0].Rule != IDFunctionLength {
		t.Fatalf("expected only a length issue, got %+v", issues)
	}
}

func TestEngine_MalformedOptionsFallBack(t *testing.T) {
	rule := NewFunctionLength(style())
	NewEngine([]Rule{rule}, Config{IDFunctionLength: {"max_lines": "lots"}})
	if rule.MaxLines != DefaultMaxLines {
		t.Fatalf("expected default max lines, got %d", rule.MaxLines)
	}
}

func TestEngine_Idempotent(t *testing.T) {
	var all []Rule
	for _, set := range []string{SetSecurity, SetQuality, SetPerformance, SetStyle} {
		all = append(all, NewSet(set)...)
	}
	engine := NewEngine(all, nil)
	text := strings.Join([]string{
		"def Handler(a, b, c, d, e, f):",
		"    for x in a:",
		"        for y in b:",
		"            eval(y)",
		"    password = 'hunter2'",
		"    return x",
	}, "\n")

	first := engine.Analyze(NewSource("a.py", text))
	second := engine.Analyze(NewSource("a.py", text))
	if len(first) == 0 {
		t.Fatal("expected findings")
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical results:\n%+v\n%+v", first, second)
	}
}

func TestOptions_Accessors(t *testing.T) {
	opts := Options{
		"float":    float64(7),
		"fraction": 2.5,
		"negative": -1,
		"text":     "12",
		"list":     []any{"a", 3, ""},
		"empty":    []any{},
		"junk":     []any{1, 2},
		"flag":     "false",
	}
	if opts.Int("float", 1) != 7 || opts.Int("fraction", 1) != 1 || opts.Int("negative", 4) != 4 || opts.Int("text", 1) != 12 {
		t.Fatal("unexpected Int results")
	}
	if got := opts.Strings("list", nil); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("unexpected Strings result %v", got)
	}
	if got := opts.Strings("empty", []string{"x"}); len(got) != 0 {
		t.Fatalf("expected explicit empty list, got %v", got)
	}
	if got := opts.Strings("junk", []string{"x"}); !reflect.DeepEqual(got, []string{"x"}) {
		t.Fatalf("expected default for unusable list, got %v", got)
	}
	if opts.Bool("flag", true) || !opts.Bool("missing", true) {
		t.Fatal("unexpected Bool results")
	}

	merged := Config{IDLargeFile: {"max_file_lines": 10}}.Merge(Config{IDLargeFile: {"enabled": false}})
	if merged.Enabled(IDLargeFile) || merged.For(IDLargeFile).Int("max_file_lines", 0) != 10 {
		t.Fatalf("unexpected merge result %v", merged)
	}
}
