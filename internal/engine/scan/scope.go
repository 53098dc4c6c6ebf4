package scan

// FunctionSpan is the inferred extent of one function-like declaration.
type FunctionSpan struct {
	Name         string
	Params       string
	HeaderLine   int
	Indent       int
	EndLine      int // Exclusive
	LineCount    int // EndLine - HeaderLine
	HasDocstring bool
}

// Step reports what a single observed line changed. Closed is set when the
// line ended the previous span, Opened when the line is a declaration.
type Step struct {
	Closed *FunctionSpan
	Opened *FunctionSpan
	// InFunction is true when the line belongs to the open span's body.
	InFunction bool
}

// ScopeTracker infers function spans from a stream of classified lines. Only
// one span is open at a time: a nested declaration closes its parent.
type ScopeTracker struct {
	syntax     Syntax
	open       *FunctionSpan
	docDecided bool
	lastLine   int
}

// NewScopeTracker returns a tracker for the given syntax profile.
func NewScopeTracker(syn Syntax) *ScopeTracker {
	return &ScopeTracker{syntax: syn}
}

// Current returns the open span, or nil.
func (t *ScopeTracker) Current() *FunctionSpan {
	return t.open
}

// Observe feeds the next line. Lines must arrive in order.
func (t *ScopeTracker) Observe(line ClassifiedLine) Step {
	t.lastLine = line.Number
	var step Step

	if t.open != nil && !t.docDecided && !line.IsBlank() && line.Number > t.open.HeaderLine {
		t.open.HasDocstring = startsDocstring(line.Trimmed)
		t.docDecided = true
	}

	if !line.IsCode() {
		step.InFunction = t.open != nil
		return step
	}

	decl, isDecl := t.syntax.ParseDeclaration(line.Code)
	if t.open != nil && (isDecl || line.Indent <= t.open.Indent) {
		step.Closed = t.close(line.Number)
	}

	if isDecl {
		t.open = &FunctionSpan{
			Name:       decl.Name,
			Params:     decl.Params,
			HeaderLine: line.Number,
			Indent:     line.Indent,
		}
		t.docDecided = false
		step.Opened = t.open
		return step
	}

	step.InFunction = t.open != nil
	return step
}

// Finish closes the span still open at end of input, if any.
func (t *ScopeTracker) Finish() *FunctionSpan {
	if t.open == nil {
		return nil
	}
	return t.close(t.lastLine + 1)
}

func (t *ScopeTracker) close(endLine int) *FunctionSpan {
	span := t.open
	span.EndLine = endLine
	span.LineCount = endLine - span.HeaderLine
	t.open = nil
	t.docDecided = false
	return span
}

func startsDocstring(trimmed string) bool {
	return len(trimmed) >= 3 && (trimmed[:3] == tripleDouble || trimmed[:3] == tripleSingle)
}

// Spans runs a tracker over text and returns every closed span in order.
func Spans(text string, syn Syntax) []FunctionSpan {
	tracker := NewScopeTracker(syn)
	var spans []FunctionSpan
	for line := range Source(text, syn) {
		if step := tracker.Observe(line); step.Closed != nil {
			spans = append(spans, *step.Closed)
		}
	}
	if last := tracker.Finish(); last != nil {
		spans = append(spans, *last)
	}
	return spans
}

// LoopStack tracks the indentation of enclosing loops.
type LoopStack struct {
	syntax  Syntax
	indents []int
}

// NewLoopStack returns an empty stack for the given syntax profile.
func NewLoopStack(syn Syntax) *LoopStack {
	return &LoopStack{syntax: syn}
}

// Observe updates the stack for line. Loops whose indentation is at or deeper
// than the line are popped before the line itself is considered; nested is
// true when a loop opens while another is still on the stack.
func (s *LoopStack) Observe(line ClassifiedLine) (isLoop, nested bool) {
	if !line.IsCode() {
		return false, false
	}
	for len(s.indents) > 0 && s.indents[len(s.indents)-1] >= line.Indent {
		s.indents = s.indents[:len(s.indents)-1]
	}
	if !s.syntax.IsLoop(line.Code) {
		return false, false
	}
	nested = len(s.indents) > 0
	s.indents = append(s.indents, line.Indent)
	return true, nested
}

// Depth returns the number of open loops.
func (s *LoopStack) Depth() int {
	return len(s.indents)
}
