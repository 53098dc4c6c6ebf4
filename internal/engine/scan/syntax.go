package scan

import "strings"

// Syntax describes the textual cues used to infer structure for a family of
// languages.
type Syntax struct {
	Name                string
	CommentMarkers      []string
	FunctionIntroducers []string
	BlockOpener         string
	LoopIntroducers     []string
	BranchKeywords      []string
}

const (
	SyntaxPython = "python"
	SyntaxCLike  = "c-like"
)

// PythonSyntax is the default indentation-based profile.
var PythonSyntax = Syntax{
	Name:                SyntaxPython,
	CommentMarkers:      []string{"#"},
	FunctionIntroducers: []string{"def ", "async def "},
	BlockOpener:         ":",
	LoopIntroducers:     []string{"for "},
	BranchKeywords:      []string{"if ", "for ", "while ", "elif ", "except ", "case "},
}

// CLikeSyntax covers brace languages whose functions open with a keyword
// (JavaScript/TypeScript "function", Go "func"). Declarations without an
// introducer keyword (Java, C++) are not recognised.
var CLikeSyntax = Syntax{
	Name:                SyntaxCLike,
	CommentMarkers:      []string{"//"},
	FunctionIntroducers: []string{"function ", "async function ", "func "},
	BlockOpener:         "{",
	LoopIntroducers:     []string{"for ", "for("},
	BranchKeywords: []string{
		"if ", "if(", "else if", "for ", "for(", "while ", "while(",
		"catch ", "catch(", "case ", "switch ", "switch(",
	},
}

// LookupSyntax returns the named profile, falling back to PythonSyntax.
func LookupSyntax(name string) Syntax {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case SyntaxCLike, "c", "clike", "brace":
		return CLikeSyntax
	default:
		return PythonSyntax
	}
}

// IsComment reports whether trimmed starts with one of the comment markers.
func (s Syntax) IsComment(trimmed string) bool {
	for _, marker := range s.CommentMarkers {
		if strings.HasPrefix(trimmed, marker) {
			return true
		}
	}
	return false
}

// StripComment cuts text at the first comment marker and trims the rest. It
// does not know about string literals, so a marker inside a literal also cuts.
func (s Syntax) StripComment(text string) string {
	cut := len(text)
	for _, marker := range s.CommentMarkers {
		if i := strings.Index(text, marker); i >= 0 && i < cut {
			cut = i
		}
	}
	return strings.TrimSpace(text[:cut])
}

// IsLoop reports whether a code part opens a loop block.
func (s Syntax) IsLoop(code string) bool {
	if !strings.HasSuffix(code, s.BlockOpener) {
		return false
	}
	return hasAnyPrefix(code, s.LoopIntroducers)
}

// IsBranch reports whether a code part starts with a branch keyword.
func (s Syntax) IsBranch(code string) bool {
	return hasAnyPrefix(code, s.BranchKeywords)
}

// Declaration is a function header recognised on a single line.
type Declaration struct {
	Name   string
	Params string // Text between the first '(' and the last ')'
}

// ParseDeclaration recognises a function header in a comment-stripped code
// part: an introducer prefix and a trailing block opener.
func (s Syntax) ParseDeclaration(code string) (Declaration, bool) {
	if s.BlockOpener == "" || !strings.HasSuffix(code, s.BlockOpener) {
		return Declaration{}, false
	}
	for _, intro := range s.FunctionIntroducers {
		if !strings.HasPrefix(code, intro) {
			continue
		}
		rest := strings.TrimSuffix(code[len(intro):], s.BlockOpener)
		name, _, _ := strings.Cut(rest, "(")
		decl := Declaration{Name: strings.TrimSpace(name)}
		open := strings.Index(rest, "(")
		closing := strings.LastIndex(rest, ")")
		if open >= 0 && closing > open {
			decl.Params = rest[open+1 : closing]
		}
		return decl, true
	}
	return Declaration{}, false
}

func hasAnyPrefix(text string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(text, p) {
			return true
		}
	}
	return false
}
