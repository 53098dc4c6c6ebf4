package rules

import "regexp"

const (
	IDDeadCode      = "DEAD_CODE"
	IDDuplicateCode = "DUPLICATE_CODE"

	DefaultMinDuplicates = 3
)

var callSiteRE = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\(`)

// DeadCode flags declared functions whose name never appears as a call site.
// Indirect calls, decorators and exported APIs are not seen.
type DeadCode struct {
	Profile
}

func NewDeadCode(p Profile) *DeadCode {
	return &DeadCode{Profile: p}
}

func (r *DeadCode) ID() string { return IDDeadCode }

func (r *DeadCode) Evaluate(src Source) ([]Issue, error) {
	syn := src.syntax()
	type declared struct {
		name string
		line int
	}
	var decls []declared
	seen := make(map[string]bool)
	calls := make(map[string]bool)

	for line := range src.Lines() {
		if !line.IsCode() {
			continue
		}
		if decl, ok := syn.ParseDeclaration(line.Code); ok {
			if !seen[decl.Name] {
				seen[decl.Name] = true
				decls = append(decls, declared{name: decl.Name, line: line.Number})
			}
			continue
		}
		for _, m := range callSiteRE.FindAllStringSubmatch(line.Code, -1) {
			calls[m[1]] = true
		}
	}

	var issues []Issue
	for _, d := range decls {
		if !calls[d.name] {
			issues = append(issues, r.issue(r.ID(), d.line, "Function '%s' is defined but never used", d.name))
		}
	}
	return issues, nil
}

// DuplicateCode flags code lines repeated at least MinDuplicates times.
type DuplicateCode struct {
	Profile
	MinDuplicates int
}

func NewDuplicateCode(p Profile) *DuplicateCode {
	return &DuplicateCode{Profile: p, MinDuplicates: DefaultMinDuplicates}
}

func (r *DuplicateCode) ID() string { return IDDuplicateCode }

func (r *DuplicateCode) Configure(opts Options) {
	r.MinDuplicates = opts.Int("min_duplicates", DefaultMinDuplicates)
}

func (r *DuplicateCode) Evaluate(src Source) ([]Issue, error) {
	type group struct {
		first int
		count int
	}
	var order []string
	groups := make(map[string]*group)

	for line := range src.Lines() {
		if !line.IsCode() {
			continue
		}
		g, ok := groups[line.Trimmed]
		if !ok {
			g = &group{first: line.Number}
			groups[line.Trimmed] = g
			order = append(order, line.Trimmed)
		}
		g.count++
	}

	var issues []Issue
	for _, text := range order {
		if g := groups[text]; g.count >= r.MinDuplicates {
			issues = append(issues, r.issue(r.ID(), g.first, "Duplicate line appears %d times", g.count))
		}
	}
	return issues, nil
}
