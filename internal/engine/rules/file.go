package rules

import "nexalint/internal/engine/scan"

const (
	IDLargeFile  = "LARGE_FILE"
	IDNestedLoop = "NESTED_LOOP"

	DefaultMaxFileLines = 400
)

// LargeFile flags a file once when it has more than MaxLines lines.
type LargeFile struct {
	Profile
	MaxLines int
}

func NewLargeFile(p Profile) *LargeFile {
	return &LargeFile{Profile: p, MaxLines: DefaultMaxFileLines}
}

func (r *LargeFile) ID() string { return IDLargeFile }

func (r *LargeFile) Configure(opts Options) {
	r.MaxLines = opts.Int("max_file_lines", DefaultMaxFileLines)
}

func (r *LargeFile) Evaluate(src Source) ([]Issue, error) {
	total := scan.CountLines(src.Text)
	if total <= r.MaxLines {
		return nil, nil
	}
	return []Issue{r.issue(r.ID(), 0, "File too large (%d lines), consider splitting into modules", total)}, nil
}

// NestedLoop flags loops opened while another loop is still open.
type NestedLoop struct {
	Profile
}

func NewNestedLoop(p Profile) *NestedLoop {
	return &NestedLoop{Profile: p}
}

func (r *NestedLoop) ID() string { return IDNestedLoop }

func (r *NestedLoop) Evaluate(src Source) ([]Issue, error) {
	stack := scan.NewLoopStack(src.syntax())
	var issues []Issue
	for line := range src.Lines() {
		if _, nested := stack.Observe(line); nested {
			issues = append(issues, r.issue(r.ID(), line.Number, "Possible nested loop detected (O(n^2) risk)"))
		}
	}
	return issues, nil
}
