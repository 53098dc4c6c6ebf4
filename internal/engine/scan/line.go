// Package scan turns raw source text into classified lines and infers coarse
// structure (function spans, loop nesting) from indentation and keyword cues.
package scan

import (
	"iter"
	"strings"
)

// SourceLine is one physical line of a source text.
type SourceLine struct {
	Number  int    // 1-based
	Raw     string // Line without its terminator
	Trimmed string
	Indent  int // len(Raw) - len(Raw with leading whitespace removed)
}

// IsBlank reports whether the line has no visible content.
func (l SourceLine) IsBlank() bool {
	return l.Trimmed == ""
}

// NewSourceLine builds the record for raw at the given 1-based line number.
func NewSourceLine(number int, raw string) SourceLine {
	left := strings.TrimLeft(raw, " \t\f\v")
	return SourceLine{
		Number:  number,
		Raw:     raw,
		Trimmed: strings.TrimSpace(left),
		Indent:  len(raw) - len(left),
	}
}

// Lines yields the lines of text lazily. The sequence can be ranged over any
// number of times and holds no state between iterations. A trailing newline
// does not produce an extra empty line.
func Lines(text string) iter.Seq[SourceLine] {
	return func(yield func(SourceLine) bool) {
		rest := text
		number := 0
		for rest != "" {
			number++
			raw, tail, found := strings.Cut(rest, "\n")
			raw = strings.TrimSuffix(raw, "\r")
			if !yield(NewSourceLine(number, raw)) {
				return
			}
			if !found {
				return
			}
			rest = tail
		}
	}
}

// CountLines returns the number of lines Lines would yield for text.
func CountLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}
