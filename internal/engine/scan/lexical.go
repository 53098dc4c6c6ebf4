package scan

import (
	"iter"
	"strings"
)

// LexicalState tracks whether the scanner is inside a triple-quoted literal.
type LexicalState int

const (
	StateCode LexicalState = iota
	StateTripleDouble
	StateTripleSingle
)

func (s LexicalState) String() string {
	switch s {
	case StateTripleDouble:
		return "triple-double"
	case StateTripleSingle:
		return "triple-single"
	default:
		return "code"
	}
}

// LineContext is the lexical classification of a single line.
type LineContext int

const (
	ContextCode LineContext = iota
	ContextString
	ContextComment
	ContextBlank
)

func (c LineContext) String() string {
	switch c {
	case ContextString:
		return "string"
	case ContextComment:
		return "comment"
	case ContextBlank:
		return "blank"
	default:
		return "code"
	}
}

const (
	tripleDouble = `"""`
	tripleSingle = `'''`
)

// Classify computes the state after line and the line's context from the state
// before it. Any line that touches a triple-quote delimiter is treated as part
// of a string, including a line that opens and closes a literal in one go.
func Classify(prev LexicalState, line SourceLine, syn Syntax) (LexicalState, LineContext) {
	if line.IsBlank() {
		return prev, ContextBlank
	}

	doubles := strings.Count(line.Raw, tripleDouble)
	singles := strings.Count(line.Raw, tripleSingle)

	switch prev {
	case StateTripleDouble:
		if doubles%2 == 1 {
			return StateCode, ContextString
		}
		return prev, ContextString
	case StateTripleSingle:
		if singles%2 == 1 {
			return StateCode, ContextString
		}
		return prev, ContextString
	}

	switch {
	case doubles%2 == 1:
		return StateTripleDouble, ContextString
	case singles%2 == 1:
		return StateTripleSingle, ContextString
	case doubles > 0 || singles > 0:
		return StateCode, ContextString
	}

	if syn.IsComment(line.Trimmed) {
		return StateCode, ContextComment
	}
	return StateCode, ContextCode
}

// ClassifiedLine is a SourceLine with its lexical context. Code holds the
// comment-stripped, trimmed text and is empty unless Context is ContextCode.
type ClassifiedLine struct {
	SourceLine
	Context LineContext
	Code    string
}

// IsCode reports whether the line takes part in structural analysis.
func (l ClassifiedLine) IsCode() bool {
	return l.Context == ContextCode
}

// Source yields classified lines for text. Like Lines it is lazy and can be
// ranged over repeatedly.
func Source(text string, syn Syntax) iter.Seq[ClassifiedLine] {
	return func(yield func(ClassifiedLine) bool) {
		state := StateCode
		for line := range Lines(text) {
			var ctx LineContext
			state, ctx = Classify(state, line, syn)
			cl := ClassifiedLine{SourceLine: line, Context: ctx}
			if ctx == ContextCode {
				cl.Code = syn.StripComment(line.Trimmed)
			}
			if !yield(cl) {
				return
			}
		}
	}
}
