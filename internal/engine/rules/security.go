package rules

import "strings"

const (
	IDRiskyCall           = "RISKY_CALL"
	IDHardcodedCredential = "HARDCODED_CREDENTIAL"
)

var (
	DefaultRiskyCalls         = []string{"eval(", "exec(", "os.system(", "subprocess.call(", "pickle.load("}
	DefaultCredentialPatterns = []string{"password =", "api_key =", "secret ="}
	DefaultSafePatterns       = []string{"os.getenv", "os.environ", "environ.get", "Config."}
)

// RiskyCall flags code lines containing a dangerous call prefix. Each
// matching prefix on a line yields its own issue.
type RiskyCall struct {
	Profile
	Calls []string
}

func NewRiskyCall(p Profile) *RiskyCall {
	return &RiskyCall{Profile: p, Calls: DefaultRiskyCalls}
}

func (r *RiskyCall) ID() string { return IDRiskyCall }

func (r *RiskyCall) Configure(opts Options) {
	r.Calls = opts.Strings("risky_calls", DefaultRiskyCalls)
}

func (r *RiskyCall) Evaluate(src Source) ([]Issue, error) {
	var issues []Issue
	for line := range src.Lines() {
		if !line.IsCode() {
			continue
		}
		for _, call := range r.Calls {
			if strings.Contains(line.Code, call) {
				display := strings.Replace(call, "(", "()", 1)
				issues = append(issues, r.issue(r.ID(), line.Number, "%s usage detected", display))
			}
		}
	}
	return issues, nil
}

// HardcodedCredential flags assignment-like credential patterns unless the
// same line also mentions a safe accessor.
type HardcodedCredential struct {
	Profile
	Patterns []string
	Safe     []string
}

func NewHardcodedCredential(p Profile) *HardcodedCredential {
	return &HardcodedCredential{Profile: p, Patterns: DefaultCredentialPatterns, Safe: DefaultSafePatterns}
}

func (r *HardcodedCredential) ID() string { return IDHardcodedCredential }

func (r *HardcodedCredential) Configure(opts Options) {
	r.Patterns = opts.Strings("credential_patterns", DefaultCredentialPatterns)
	r.Safe = opts.Strings("safe_patterns", DefaultSafePatterns)
}

func (r *HardcodedCredential) Evaluate(src Source) ([]Issue, error) {
	var issues []Issue
	for line := range src.Lines() {
		if !line.IsCode() || containsAny(line.Code, r.Safe) {
			continue
		}
		for _, pattern := range r.Patterns {
			if strings.Contains(line.Code, pattern) {
				issues = append(issues, r.issue(r.ID(), line.Number, "Potential hardcoded credential detected"))
			}
		}
	}
	return issues, nil
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
