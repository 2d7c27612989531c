package keywords

import (
	"regexp"
	"strings"
)

// intentRule pairs a task-intent label with its trigger pattern.
type intentRule struct {
	label string
	re    *regexp.Regexp
}

// intentRules is evaluated in order and the first match wins. The ordering
// is a deliberate tie-break policy: "auth issue" classifies as debugging,
// not auth, because debugging is listed earlier. Do not reorder.
var intentRules = []intentRule{
	{"testing", regexp.MustCompile(`\b(test|pytest|jest|spec|vitest|testing)\b`)},
	{"debugging", regexp.MustCompile(`\b(debug|trace|breakpoint|stack|error|issue)\b`)},
	{"fix", regexp.MustCompile(`\b(fix|bug|broken|patch|resolve)\b`)},
	{"refactor", regexp.MustCompile(`\b(refactor|cleanup|reorganize|restructure|clean)\b`)},
	{"docs", regexp.MustCompile(`\b(doc|readme|documentation|comment)\b`)},
	{"review", regexp.MustCompile(`\b(review|pr|pull[- ]request)\b`)},
	{"devops", regexp.MustCompile(`\b(deploy|docker|k8s|terraform|ci|cd|pipeline)\b`)},
	{"api", regexp.MustCompile(`\b(api|endpoint|route|controller)\b`)},
	{"ui", regexp.MustCompile(`\b(ui|frontend|component|style|css)\b`)},
	{"database", regexp.MustCompile(`\b(database|db|sql|query|migration)\b`)},
	{"auth", regexp.MustCompile(`\b(auth|login|password|session|token)\b`)},
	{"setup", regexp.MustCompile(`\b(config|setup|install|configure)\b`)},
}

// InferIntent classifies text into one of the fixed task-intent categories.
// Returns the empty string when no category matches.
func InferIntent(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range intentRules {
		if rule.re.MatchString(lower) {
			return rule.label
		}
	}
	return ""
}
