package rules

import (
	"slices"
	"strings"
)

// Rule set names accepted in analysis.rule_sets.
const (
	SetSecurity    = "security"
	SetQuality     = "quality"
	SetPerformance = "performance"
	SetStyle       = "style"
	SetSecrets     = "secrets"
)

// DefaultSets are the rule sets enabled when none are configured.
var DefaultSets = []string{SetSecurity, SetQuality, SetPerformance}

// IDs lists every known rule ID.
var IDs = []string{
	IDNamingConvention,
	IDFunctionLength,
	IDParameterCount,
	IDComplexity,
	IDDocstring,
	IDDeadCode,
	IDDuplicateCode,
	IDRiskyCall,
	IDHardcodedCredential,
	IDLargeFile,
	IDNestedLoop,
	IDSecretToken,
}

// KnownID reports whether id names a rule.
func KnownID(id string) bool {
	return slices.Contains(IDs, id)
}

// KnownSet reports whether name is a rule set.
func KnownSet(name string) bool {
	switch strings.ToLower(name) {
	case SetSecurity, SetQuality, SetPerformance, SetStyle, SetSecrets:
		return true
	}
	return false
}

// IsDeepSet reports whether a set only runs on deep-check extensions.
func IsDeepSet(name string) bool {
	switch strings.ToLower(name) {
	case SetSecurity, SetSecrets:
		return false
	}
	return true
}

// NewSet builds fresh rule instances for a named set. Every call returns new
// values so engines never share configured rules.
func NewSet(name string) []Rule {
	switch strings.ToLower(name) {
	case SetSecurity:
		high := Profile{Kind: KindSecurity, Severity: SeverityHigh}
		return []Rule{NewRiskyCall(high), NewHardcodedCredential(high)}
	case SetQuality:
		medium := Profile{Kind: KindQuality, Severity: SeverityMedium}
		return []Rule{
			NewLargeFile(medium),
			NewParameterCount(medium),
			NewFunctionLength(medium),
			NewDocstring(Profile{Kind: KindQuality, Severity: SeverityLow}),
		}
	case SetPerformance:
		return []Rule{NewNestedLoop(Profile{Kind: KindPerformance, Severity: SeverityHigh})}
	case SetStyle:
		warning := Profile{Kind: KindStyle, Severity: SeverityMedium}
		return []Rule{
			NewComplexity(warning),
			NewDeadCode(warning),
			NewDocstring(Profile{Kind: KindStyle, Severity: SeverityLow}),
			NewDuplicateCode(warning),
			NewFunctionLength(Profile{Kind: KindStyle, Severity: SeverityHigh}),
			NewNamingConvention(warning),
			NewParameterCount(warning),
		}
	case SetSecrets:
		return []Rule{NewSecretToken(Profile{Kind: KindSecurity, Severity: SeverityMedium})}
	default:
		return nil
	}
}

// New builds a single rule by ID with the given profile.
func New(id string, p Profile) (Rule, bool) {
	switch id {
	case IDNamingConvention:
		return NewNamingConvention(p), true
	case IDFunctionLength:
		return NewFunctionLength(p), true
	case IDParameterCount:
		return NewParameterCount(p), true
	case IDComplexity:
		return NewComplexity(p), true
	case IDDocstring:
		return NewDocstring(p), true
	case IDDeadCode:
		return NewDeadCode(p), true
	case IDDuplicateCode:
		return NewDuplicateCode(p), true
	case IDRiskyCall:
		return NewRiskyCall(p), true
	case IDHardcodedCredential:
		return NewHardcodedCredential(p), true
	case IDLargeFile:
		return NewLargeFile(p), true
	case IDNestedLoop:
		return NewNestedLoop(p), true
	case IDSecretToken:
		return NewSecretToken(p), true
	default:
		return nil, false
	}
}
