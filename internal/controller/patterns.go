package controller

import (
	"regexp"
	"strings"
)

// Marker prefixes the titler writes into titles it owns. Recognizing them
// lets the AI phase overwrite the keyword phase without ever touching a
// user-authored title.
const (
	// KeywordMarker prefixes phase-1 heuristic titles.
	KeywordMarker = "◦ "
	// AIMarker prefixes phase-2 generated titles.
	AIMarker = "✦ "
)

// titleRule pairs a default-title pattern with a name for debugging. The
// list is evaluated in order and the first match wins; the ordering is part
// of the contract, not an implementation detail.
type titleRule struct {
	name string
	re   *regexp.Regexp
}

var defaultTitleRules = []titleRule{
	{"iso-date", regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)},
	{"us-date", regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{2,4}`)},
	{"month-day", regexp.MustCompile(`^(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.? \d{1,2}`)},
	{"session-n", regexp.MustCompile(`^session\s+\d+$`)},
	{"new-session", regexp.MustCompile(`^new\s+session`)},
	{"untitled", regexp.MustCompile(`^untitled`)},
}

// ShouldModifyTitle reports whether a session title is ours to rewrite:
// empty, a recognized auto-generated default, or one of this plugin's own
// prior writes. Anything else is a user's custom title and is never
// touched.
func ShouldModifyTitle(title string) bool {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return true
	}

	if strings.HasPrefix(trimmed, KeywordMarker) || strings.HasPrefix(trimmed, AIMarker) {
		return true
	}

	lower := strings.ToLower(trimmed)
	for _, rule := range defaultTitleRules {
		if rule.re.MatchString(lower) {
			return true
		}
	}

	return false
}
