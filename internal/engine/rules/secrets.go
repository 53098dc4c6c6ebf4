package rules

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

const IDSecretToken = "SECRET_TOKEN"

const (
	DefaultEntropyThreshold = 4.0
	DefaultMinTokenLength   = 20
)

type secretPattern struct {
	name     string
	severity Severity
	re       *regexp.Regexp
}

var builtinSecretPatterns = []secretPattern{
	{name: "AWS access key", severity: SeverityHigh, re: regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`)},
	{name: "GitHub token", severity: SeverityHigh, re: regexp.MustCompile(`\bghp_[A-Za-z0-9]{36}\b`)},
	{name: "GitHub fine-grained token", severity: SeverityHigh, re: regexp.MustCompile(`\bgithub_pat_[A-Za-z0-9_]{82}\b`)},
	{name: "Stripe live key", severity: SeverityHigh, re: regexp.MustCompile(`\bsk_live_[A-Za-z0-9]{16,}\b`)},
	{name: "Slack token", severity: SeverityHigh, re: regexp.MustCompile(`\bxox[baprs]-[A-Za-z0-9-]{10,}\b`)},
	{name: "private key block", severity: SeverityHigh, re: regexp.MustCompile(`-----BEGIN (?:RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY-----`)},
}

var (
	quotedTokenRE   = regexp.MustCompile(`"([A-Za-z0-9_\-+=:/.]{12,})"|'([A-Za-z0-9_\-+=:/.]{12,})'`)
	placeholderHint = []string{"example", "sample", "dummy", "placeholder", "changeme", "notasecret", "test"}
)

// SecretToken flags well-known token formats and high-entropy quoted
// strings. Unlike HardcodedCredential it looks at every physical line,
// comments and docstrings included. Known formats keep their own severity;
// entropy hits use the profile severity.
type SecretToken struct {
	Profile
	EntropyThreshold float64
	MinTokenLength   int
}

func NewSecretToken(p Profile) *SecretToken {
	return &SecretToken{Profile: p, EntropyThreshold: DefaultEntropyThreshold, MinTokenLength: DefaultMinTokenLength}
}

func (r *SecretToken) ID() string { return IDSecretToken }

func (r *SecretToken) Configure(opts Options) {
	r.EntropyThreshold = opts.Float("entropy_threshold", DefaultEntropyThreshold)
	r.MinTokenLength = opts.Int("min_token_length", DefaultMinTokenLength)
}

func (r *SecretToken) Evaluate(src Source) ([]Issue, error) {
	var issues []Issue
	for line := range src.Lines() {
		matched := false
		for _, pattern := range builtinSecretPatterns {
			value := pattern.re.FindString(line.Raw)
			if value == "" || isPlaceholder(value) {
				continue
			}
			issue := r.issue(r.ID(), line.Number, "Possible %s: %s", pattern.name, MaskSecret(value))
			issue.Severity = pattern.severity
			issues = append(issues, issue)
			matched = true
		}
		if matched {
			continue
		}
		for _, match := range quotedTokenRE.FindAllStringSubmatch(line.Raw, -1) {
			candidate := match[1]
			if candidate == "" {
				candidate = match[2]
			}
			if len(candidate) < r.MinTokenLength || isPlaceholder(candidate) || !hasLetterAndDigit(candidate) {
				continue
			}
			if ShannonEntropy(candidate) < r.EntropyThreshold {
				continue
			}
			issues = append(issues, r.issue(r.ID(), line.Number, "High-entropy string may be a secret: %s", MaskSecret(candidate)))
			break
		}
	}
	return issues, nil
}

// ShannonEntropy returns the entropy of value in bits per rune.
func ShannonEntropy(value string) float64 {
	runes := []rune(value)
	if len(runes) == 0 {
		return 0
	}
	freq := make(map[rune]float64)
	for _, r := range runes {
		freq[r]++
	}
	length := float64(len(runes))
	entropy := 0.0
	for _, count := range freq {
		p := count / length
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// MaskSecret keeps the first and last four bytes of long values.
func MaskSecret(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 8 {
		return strings.Repeat("*", len(value))
	}
	return value[:4] + "..." + value[len(value)-4:]
}

func isPlaceholder(value string) bool {
	lower := strings.ToLower(value)
	for _, hint := range placeholderHint {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

func hasLetterAndDigit(value string) bool {
	var letter, digit bool
	for _, r := range value {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
		if letter && digit {
			return true
		}
	}
	return false
}
