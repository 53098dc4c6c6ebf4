package rules

import (
	"fmt"
	"nexalint/internal/core/errors"
)

// Result is the outcome of one rule over one source. Err is set when the rule
// returned an error or panicked; Issues then holds whatever it produced first.
type Result struct {
	Rule   string
	Issues []Issue
	Err    error
}

// Engine runs an ordered, configured set of rules. It is safe for concurrent
// use once built.
type Engine struct {
	rules []Rule
}

// NewEngine keeps the enabled rules in order and applies their options.
func NewEngine(rules []Rule, cfg Config) *Engine {
	e := &Engine{rules: make([]Rule, 0, len(rules))}
	for _, r := range rules {
		if r == nil || !cfg.Enabled(r.ID()) {
			continue
		}
		if c, ok := r.(Configurable); ok {
			c.Configure(cfg.For(r.ID()))
		}
		e.rules = append(e.rules, r)
	}
	return e
}

// RuleIDs returns the IDs of the active rules in evaluation order.
func (e *Engine) RuleIDs() []string {
	ids := make([]string, 0, len(e.rules))
	for _, r := range e.rules {
		ids = append(ids, r.ID())
	}
	return ids
}

// Run evaluates every rule and returns one result per rule.
func (e *Engine) Run(src Source) []Result {
	results := make([]Result, 0, len(e.rules))
	for _, r := range e.rules {
		issues, err := evaluate(r, src)
		results = append(results, Result{Rule: r.ID(), Issues: issues, Err: err})
	}
	return results
}

// Analyze flattens Run in rule order. A failed rule contributes a single
// low-severity issue describing the failure instead of its findings.
func (e *Engine) Analyze(src Source) []Issue {
	return Flatten(e.Run(src))
}

// Flatten concatenates results in order, replacing failed results with
// their failure issue.
func Flatten(results []Result) []Issue {
	var issues []Issue
	for _, res := range results {
		if res.Err != nil {
			issues = append(issues, FailureIssue(res.Rule, res.Err))
			continue
		}
		issues = append(issues, res.Issues...)
	}
	return issues
}

// Failed returns the results that carry an error.
func Failed(results []Result) []Result {
	var out []Result
	for _, res := range results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// FailureIssue is the synthetic issue recorded for a failed rule.
func FailureIssue(rule string, err error) Issue {
	return Issue{
		Rule:     rule,
		Kind:     KindStyle,
		Severity: SeverityLow,
		Message:  fmt.Sprintf("Rule failed safely: %v", err),
	}
}

func evaluate(r Rule, src Source) (issues []Issue, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.AddContext(errors.Newf(errors.CodeRuleFailed, "panic: %v", rec), errors.CtxRule, r.ID())
		}
	}()
	issues, err = r.Evaluate(src)
	if err != nil {
		err = errors.AddContext(errors.Wrap(err, errors.CodeRuleFailed, "evaluate"), errors.CtxRule, r.ID())
	}
	return issues, err
}
