package rules

import (
	"nexalint/internal/engine/scan"
	"regexp"
	"strings"
)

const (
	IDNamingConvention = "NAMING_CONVENTION"
	IDFunctionLength   = "FUNCTION_LENGTH"
	IDParameterCount   = "PARAMETER_COUNT"
	IDComplexity       = "COMPLEXITY"
	IDDocstring        = "DOCSTRING_MISSING"

	DefaultMaxLines    = 50
	DefaultMaxParams   = 5
	DefaultMaxBranches = 10
)

var snakeCaseRE = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// NamingConvention flags function names that are not snake_case.
type NamingConvention struct {
	Profile
}

func NewNamingConvention(p Profile) *NamingConvention {
	return &NamingConvention{Profile: p}
}

func (r *NamingConvention) ID() string { return IDNamingConvention }

func (r *NamingConvention) Evaluate(src Source) ([]Issue, error) {
	var issues []Issue
	for _, span := range scan.Spans(src.Text, src.syntax()) {
		if !snakeCaseRE.MatchString(span.Name) {
			issues = append(issues, r.issue(r.ID(), span.HeaderLine, "Function '%s' is not snake_case", span.Name))
		}
	}
	return issues, nil
}

// FunctionLength flags spans longer than MaxLines.
type FunctionLength struct {
	Profile
	MaxLines int
}

func NewFunctionLength(p Profile) *FunctionLength {
	return &FunctionLength{Profile: p, MaxLines: DefaultMaxLines}
}

func (r *FunctionLength) ID() string { return IDFunctionLength }

func (r *FunctionLength) Configure(opts Options) {
	r.MaxLines = opts.Int("max_lines", DefaultMaxLines)
}

func (r *FunctionLength) Evaluate(src Source) ([]Issue, error) {
	var issues []Issue
	for _, span := range scan.Spans(src.Text, src.syntax()) {
		if span.LineCount > r.MaxLines {
			issues = append(issues, r.issue(r.ID(), span.HeaderLine,
				"Function '%s' exceeds %d lines (%d)", span.Name, r.MaxLines, span.LineCount))
		}
	}
	return issues, nil
}

// ParameterCount flags declarations with more than MaxParams parameters.
// Commas inside default values are counted too.
type ParameterCount struct {
	Profile
	MaxParams int
}

func NewParameterCount(p Profile) *ParameterCount {
	return &ParameterCount{Profile: p, MaxParams: DefaultMaxParams}
}

func (r *ParameterCount) ID() string { return IDParameterCount }

func (r *ParameterCount) Configure(opts Options) {
	r.MaxParams = opts.Int("max_params", DefaultMaxParams)
}

func (r *ParameterCount) Evaluate(src Source) ([]Issue, error) {
	var issues []Issue
	for _, span := range scan.Spans(src.Text, src.syntax()) {
		count := CountParams(span.Params)
		if count > r.MaxParams {
			issues = append(issues, r.issue(r.ID(), span.HeaderLine,
				"Function '%s' has %d parameters", span.Name, count))
		}
	}
	return issues, nil
}

// CountParams returns the number of comma-separated entries in params.
func CountParams(params string) int {
	if strings.TrimSpace(params) == "" {
		return 0
	}
	return strings.Count(params, ",") + 1
}

// Complexity counts branch lines inside each function and reports functions
// above MaxBranches when they close.
type Complexity struct {
	Profile
	MaxBranches int
}

func NewComplexity(p Profile) *Complexity {
	return &Complexity{Profile: p, MaxBranches: DefaultMaxBranches}
}

func (r *Complexity) ID() string { return IDComplexity }

func (r *Complexity) Configure(opts Options) {
	r.MaxBranches = opts.Int("max_branches", DefaultMaxBranches)
}

func (r *Complexity) Evaluate(src Source) ([]Issue, error) {
	syn := src.syntax()
	tracker := scan.NewScopeTracker(syn)
	var issues []Issue
	branches := 0

	report := func(span *scan.FunctionSpan) {
		if span != nil && branches > r.MaxBranches {
			issues = append(issues, r.issue(r.ID(), span.HeaderLine,
				"Function '%s' has high branching complexity (%d branches)", span.Name, branches))
		}
	}

	for line := range src.Lines() {
		step := tracker.Observe(line)
		if step.Closed != nil {
			report(step.Closed)
			branches = 0
		}
		if step.Opened != nil {
			branches = 0
			continue
		}
		if step.InFunction && line.IsCode() && syn.IsBranch(line.Code) {
			branches++
		}
	}
	report(tracker.Finish())
	return issues, nil
}

// Docstring flags functions whose first body line is not a docstring.
type Docstring struct {
	Profile
}

func NewDocstring(p Profile) *Docstring {
	return &Docstring{Profile: p}
}

func (r *Docstring) ID() string { return IDDocstring }

func (r *Docstring) Evaluate(src Source) ([]Issue, error) {
	var issues []Issue
	for _, span := range scan.Spans(src.Text, src.syntax()) {
		if !span.HasDocstring {
			issues = append(issues, r.issue(r.ID(), span.HeaderLine,
				"Function '%s' is missing a docstring", span.Name))
		}
	}
	return issues, nil
}
