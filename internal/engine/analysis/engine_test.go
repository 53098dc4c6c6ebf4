package analysis

import (
	"context"
	"fmt"
	"nexalint/internal/core/errors"
	"nexalint/internal/engine/rules"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func defaultConfig() Config {
	return Config{
		SupportedExtensions: []string{".py", ".js", ".java", ".cpp", ".ts"},
		DeepCheckExtensions: []string{".py"},
		Workers:             2,
	}
}

func TestEngine_AnalyzeMixedBatch(t *testing.T) {
	dir := t.TempDir()
	py := writeFile(t, dir, "a.py", "password = \"abc123\"\nfor a in x:\n    for b in y:\n        pass\n")
	js := writeFile(t, dir, "b.js", "eval(input)\nfor a in x:\n    for b in y:\n        pass\n")
	txt := writeFile(t, dir, "notes.txt", "eval(x)\n")
	missing := filepath.Join(dir, "missing.py")

	engine, err := NewEngine(defaultConfig(), NewFileReader(0, nil))
	require.NoError(t, err)

	paths := []string{py, missing, js, txt}
	reports, err := engine.Analyze(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, reports, len(paths))

	for i, report := range reports {
		assert.Equal(t, paths[i], report.Path, "reports must keep input order")
	}

	pyReport := reports[0]
	require.Len(t, pyReport.Issues, 2)
	assert.Equal(t, rules.IDHardcodedCredential, pyReport.Issues[0].Rule)
	assert.Equal(t, rules.IDNestedLoop, pyReport.Issues[1].Rule)
	assert.Equal(t, 3, pyReport.Issues[1].Line)
	assert.Equal(t, Summary{Total: 2, High: 2}, pyReport.Summary)

	missingReport := reports[1]
	assert.Empty(t, missingReport.Issues)
	assert.NotEmpty(t, missingReport.ReadError)

	jsReport := reports[2]
	require.Len(t, jsReport.Issues, 1, "only security rules run outside the deep-check allowlist")
	assert.Equal(t, rules.IDRiskyCall, jsReport.Issues[0].Rule)

	assert.Empty(t, reports[3].Issues)
	assert.Empty(t, reports[3].ReadError)
}

type mapReader map[string]string

func (m mapReader) ReadSource(_ context.Context, path string) (string, error) {
	text, ok := m[path]
	if !ok {
		return "", errors.New(errors.CodeNotFound, path)
	}
	return text, nil
}

func TestEngine_PreservesOrderAcrossWorkers(t *testing.T) {
	reader := mapReader{}
	var paths []string
	for i := range 40 {
		path := fmt.Sprintf("f%02d.py", i)
		reader[path] = strings.Repeat("eval(x)\n", i%4)
		paths = append(paths, path)
	}

	cfg := defaultConfig()
	cfg.Workers = 4
	engine, err := NewEngine(cfg, reader)
	require.NoError(t, err)

	reports, err := engine.Analyze(context.Background(), paths)
	require.NoError(t, err)
	for i, report := range reports {
		require.Equal(t, paths[i], report.Path)
		require.Equal(t, i%4, report.Summary.Total, "file %s", report.Path)
	}
}

func TestEngine_CancelledContext(t *testing.T) {
	engine, err := NewEngine(defaultConfig(), mapReader{"a.py": "x = 1"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = engine.Analyze(ctx, []string{"a.py"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestEngine_UnknownRuleSet(t *testing.T) {
	cfg := defaultConfig()
	cfg.RuleSets = []string{"security", "vibes"}
	_, err := NewEngine(cfg, mapReader{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestEngine_StyleSetAndSyntaxProfile(t *testing.T) {
	cfg := defaultConfig()
	cfg.RuleSets = []string{rules.SetStyle}
	cfg.DeepCheckExtensions = []string{".py", ".js"}
	cfg.Syntax = map[string]string{"js": "c-like"}
	cfg.Rules = rules.Config{
		rules.IDDeadCode:      {"enabled": false},
		rules.IDDocstring:     {"enabled": false},
		rules.IDComplexity:    {"enabled": false},
		rules.IDDuplicateCode: {"enabled": false},
	}
	engine, err := NewEngine(cfg, mapReader{})
	require.NoError(t, err)

	security, deep := engine.RuleIDs()
	assert.Empty(t, security)
	assert.Equal(t, []string{rules.IDFunctionLength, rules.IDNamingConvention, rules.IDParameterCount}, deep)

	issues := engine.AnalyzeSource("web/app.js", "function BadName(a) {\n  return a;\n}\n")
	require.Len(t, issues, 1)
	assert.Equal(t, rules.IDNamingConvention, issues[0].Rule)
	assert.Equal(t, rules.KindStyle, issues[0].Kind)
	assert.Equal(t, rules.SeverityMedium, issues[0].Severity)
}

func TestFileReader_BoundsAndDecoding(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "big.py", "abc\xffdef"+strings.Repeat("x", 100))

	text, err := NewFileReader(7, nil).ReadSource(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "abc\uFFFDdef", text)

	_, err = NewFileReader(0, nil).ReadSource(context.Background(), filepath.Join(dir, "nope.py"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestSummarize(t *testing.T) {
	issues := []rules.Issue{
		{Severity: rules.SeverityHigh},
		{Severity: rules.SeverityLow},
		{Severity: rules.SeverityMedium},
		{Severity: rules.SeverityHigh},
	}
	assert.Equal(t, Summary{Total: 4, High: 2, Medium: 1, Low: 1}, Summarize(issues))
}
