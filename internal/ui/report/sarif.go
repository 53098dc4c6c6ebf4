package report

import (
	"encoding/json"
	"fmt"
	"io"
	"nexalint/internal/engine/rules"
	"path/filepath"
	"sort"
)

// SARIF v2.1.0, schema at https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json

const (
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
	sarifVersion = "2.1.0"
)

// sarifReport is the top-level SARIF document.
type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	ShortDescription sarifMessage           `json:"shortDescription"`
	DefaultConfig    sarifRuleDefaultConfig `json:"defaultConfiguration"`
	Properties       map[string]string      `json:"properties,omitempty"`
}

type sarifRuleDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI       string `json:"uri"`
	URIBaseID string `json:"uriBaseId"`
}

type sarifRegion struct {
	StartLine int `json:"startLine,omitempty"`
}

// WriteSARIF emits one result per issue. File URIs are made relative to
// opts.Root so reports are safe to share.
func WriteSARIF(w io.Writer, doc Document, opts Options) error {
	results := make([]sarifResult, 0, doc.Summary.TotalIssues)
	seen := make(map[string]rules.Issue)

	for _, file := range doc.Files {
		for _, issue := range file.Issues {
			if _, ok := seen[issue.Rule]; !ok {
				seen[issue.Rule] = issue
			}
			loc := sarifLocation{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{
						URI:       relativeURI(opts.Root, file.Path),
						URIBaseID: "%SRCROOT%",
					},
				},
			}
			if issue.Line > 0 {
				loc.PhysicalLocation.Region = &sarifRegion{StartLine: issue.Line}
			}
			results = append(results, sarifResult{
				RuleID:    issue.Rule,
				Level:     severityToLevel(issue.Severity),
				Message:   sarifMessage{Text: issue.Message},
				Locations: []sarifLocation{loc},
			})
		}
	}

	report := sarifReport{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:    doc.Tool,
						Version: doc.Version,
						Rules:   buildSARIFRules(seen),
					},
				},
				Results: results,
			},
		},
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode sarif report: %w", err)
	}
	return nil
}

// buildSARIFRules describes only the rules that produced results, ordered by
// ID.
func buildSARIFRules(seen map[string]rules.Issue) []sarifRule {
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]sarifRule, 0, len(ids))
	for _, id := range ids {
		first := seen[id]
		out = append(out, sarifRule{
			ID:               id,
			Name:             id,
			ShortDescription: sarifMessage{Text: ruleDescriptions[id]},
			DefaultConfig:    sarifRuleDefaultConfig{Level: severityToLevel(first.Severity)},
			Properties:       map[string]string{"kind": string(first.Kind)},
		})
	}
	return out
}

var ruleDescriptions = map[string]string{
	rules.IDNamingConvention:    "Function names should be snake_case.",
	rules.IDFunctionLength:      "Function body exceeds the configured line limit.",
	rules.IDParameterCount:      "Function declares more parameters than allowed.",
	rules.IDComplexity:          "Function has too many branching statements.",
	rules.IDDocstring:           "Function has no docstring.",
	rules.IDDeadCode:            "Function is defined but never called.",
	rules.IDDuplicateCode:       "Identical code line repeated across the file.",
	rules.IDRiskyCall:           "Call to a dangerous builtin or shell API.",
	rules.IDHardcodedCredential: "Credential assigned from a literal.",
	rules.IDLargeFile:           "File exceeds the configured line limit.",
	rules.IDNestedLoop:          "Loop nested inside another loop.",
	rules.IDSecretToken:         "Token or high-entropy string that looks like a secret.",
}

// relativeURI converts an absolute file path to a forward-slash relative URI
// anchored at projectRoot.
func relativeURI(projectRoot, filePath string) string {
	if projectRoot != "" && filepath.IsAbs(filePath) {
		rel, err := filepath.Rel(projectRoot, filePath)
		if err == nil {
			filePath = rel
		}
	}
	return filepath.ToSlash(filePath)
}

func severityToLevel(sev rules.Severity) string {
	switch sev {
	case rules.SeverityHigh:
		return "error"
	case rules.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}
