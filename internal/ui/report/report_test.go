package report

import (
	"bytes"
	"encoding/json"
	"nexalint/internal/core/app"
	"nexalint/internal/core/errors"
	"nexalint/internal/core/ports"
	"nexalint/internal/data/history"
	"nexalint/internal/engine/analysis"
	"nexalint/internal/engine/rules"
	"nexalint/internal/engine/score"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult(root string) app.Result {
	a := filepath.Join(root, "a.py")
	b := filepath.Join(root, "b.py")
	c := filepath.Join(root, "web", "c.js")

	reports := []analysis.FileReport{
		{
			Path: a,
			Issues: []rules.Issue{
				{Rule: rules.IDHardcodedCredential, Kind: rules.KindSecurity, Severity: rules.SeverityHigh, Message: "Hardcoded credential", Line: 3},
				{Rule: rules.IDLargeFile, Kind: rules.KindQuality, Severity: rules.SeverityLow, Message: "File too large"},
			},
			Summary: analysis.Summary{Total: 2, High: 1, Low: 1},
		},
		{Path: b, Issues: []rules.Issue{}},
		{
			Path: c,
			Issues: []rules.Issue{
				{Rule: rules.IDRiskyCall, Kind: rules.KindSecurity, Severity: rules.SeverityMedium, Message: "Risky call: eval(", Line: 1},
			},
			Summary: analysis.Summary{Total: 1, Medium: 1},
		},
		{Path: filepath.Join(root, "gone.py"), Issues: []rules.Issue{}, ReadError: "file not found"},
	}

	return app.Result{
		RunID: "run-1",
		Scan: ports.ScanResult{
			Files:       []string{a, b, c, filepath.Join(root, "gone.py")},
			ByExtension: map[string]int{".py": 3, ".js": 1},
			Skipped:     2,
		},
		Reports: reports,
		Score:   score.NewEngine(0, nil).Project(reports),
		Trend:   &history.Trend{Runs: 3, HasPrevious: true, ScoreDelta: 4, IssueDelta: -2, WindowAverage: 88.5},
	}
}

func TestBuild_Summary(t *testing.T) {
	doc := Build(sampleResult("/proj"), "1.2.3")

	assert.Equal(t, ToolName, doc.Tool)
	assert.Equal(t, "1.2.3", doc.Version)
	assert.Equal(t, "run-1", doc.RunID)
	assert.Equal(t, 6, doc.Summary.TotalFiles)
	assert.Equal(t, 4, doc.Summary.CodeFiles)
	assert.Equal(t, 3, doc.Summary.TotalIssues)
	assert.Equal(t, analysis.Summary{Total: 3, High: 1, Medium: 1, Low: 1}, doc.Summary.Severity)
	assert.Equal(t, 1, doc.Summary.ReadErrors)
	assert.Equal(t, 2, doc.Summary.FileIssueCounts["/proj/a.py"])
	assert.Equal(t, 0, doc.Summary.FileIssueCounts["/proj/b.py"])
	assert.Equal(t, 2, doc.Summary.IssueBreakdown["security"])
	assert.Equal(t, 1, doc.Summary.IssueBreakdown["quality"])
}

func TestBuild_EmptyResult(t *testing.T) {
	doc := Build(app.Result{}, "dev")
	assert.NotNil(t, doc.Files)
	assert.NotNil(t, doc.Summary.FilesByExtension)
	assert.Equal(t, 0, doc.Summary.IssueBreakdown["performance"])

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, doc))
	assert.Contains(t, buf.String(), `"files": []`)
}

func TestWriteText(t *testing.T) {
	doc := Build(sampleResult("/proj"), "1.2.3")

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatText, doc, Options{Root: "/proj"}))
	out := buf.String()

	assert.Contains(t, out, "nexalint 1.2.3")
	assert.Contains(t, out, "Files: 4 code files of 6 found (.js 1, .py 3)")
	assert.Contains(t, out, "Issues: 3 (high 1, medium 1, low 1)")
	assert.Contains(t, out, "Trend: +4 vs previous run, issues -2, average 88.5 over 3 runs")
	assert.Contains(t, out, "Read errors: 1 files could not be read")
	assert.Contains(t, out, "a.py score 89 2 issues")
	assert.Contains(t, out, "  [HIGH] line 3 HARDCODED_CREDENTIAL: Hardcoded credential")
	assert.Contains(t, out, "  [LOW] line - LARGE_FILE: File too large")
	assert.Contains(t, out, filepath.Join("web", "c.js")+" score 95 1 issue")
	assert.NotContains(t, out, "b.py", "clean files are hidden unless verbose")

	buf.Reset()
	require.NoError(t, Write(&buf, FormatText, doc, Options{Root: "/proj", Verbose: true}))
	assert.Contains(t, buf.String(), "b.py score 100 0 issues")
}

func TestWriteJSON_WholeFileIssueHasNullLine(t *testing.T) {
	doc := Build(sampleResult("/proj"), "1.2.3")

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, doc, Options{}))

	var decoded struct {
		Summary Summary `json:"summary"`
		Files   []struct {
			Path   string           `json:"file"`
			Issues []map[string]any `json:"issues"`
		} `json:"files"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Files, 4)
	assert.Equal(t, 3, decoded.Summary.TotalIssues)

	issues := decoded.Files[0].Issues
	require.Len(t, issues, 2)
	assert.Equal(t, float64(3), issues[0]["line"])
	line, ok := issues[1]["line"]
	assert.True(t, ok)
	assert.Nil(t, line)
	assert.Equal(t, "high", issues[0]["severity"])
	assert.Equal(t, "security", issues[0]["type"])
}

func TestWriteSARIF(t *testing.T) {
	doc := Build(sampleResult("/proj"), "1.2.3")

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatSARIF, doc, Options{Root: "/proj"}))

	var decoded sarifReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Runs, 1)
	run := decoded.Runs[0]

	assert.Equal(t, sarifVersion, decoded.Version)
	assert.Equal(t, "nexalint", run.Tool.Driver.Name)
	assert.Equal(t, "1.2.3", run.Tool.Driver.Version)

	ruleIDs := make([]string, 0, len(run.Tool.Driver.Rules))
	for _, r := range run.Tool.Driver.Rules {
		ruleIDs = append(ruleIDs, r.ID)
	}
	assert.Equal(t, []string{rules.IDHardcodedCredential, rules.IDLargeFile, rules.IDRiskyCall}, ruleIDs)

	require.Len(t, run.Results, 3)
	assert.Equal(t, "error", run.Results[0].Level)
	assert.Equal(t, "a.py", run.Results[0].Locations[0].PhysicalLocation.ArtifactLocation.URI)
	require.NotNil(t, run.Results[0].Locations[0].PhysicalLocation.Region)
	assert.Equal(t, 3, run.Results[0].Locations[0].PhysicalLocation.Region.StartLine)

	assert.Equal(t, "note", run.Results[1].Level)
	assert.Nil(t, run.Results[1].Locations[0].PhysicalLocation.Region)

	assert.Equal(t, "warning", run.Results[2].Level)
	assert.Equal(t, "web/c.js", run.Results[2].Locations[0].PhysicalLocation.ArtifactLocation.URI)
}

func TestWrite_UnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, "yaml", Document{}, Options{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}
