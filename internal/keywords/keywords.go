// Package keywords derives cheap, local title material from raw message
// text: salient keyword extraction, task-intent classification, and the
// heuristic fallback title used before any model call completes.
package keywords

import (
	"regexp"
	"strings"
)

const maxKeywords = 6

var (
	nonWordRe    = regexp.MustCompile(`[^\w\s]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// stopWords holds tokens that never carry title-worthy meaning: articles,
// auxiliary verbs, pronouns, generic request verbs, and a secondary set of
// semantically empty common verbs.
var stopWords = map[string]struct{}{
	// Articles, conjunctions, prepositions.
	"the": {}, "and": {}, "but": {}, "for": {}, "nor": {}, "yet": {},
	"with": {}, "from": {}, "into": {}, "onto": {}, "about": {}, "over": {},
	"under": {}, "after": {}, "before": {}, "between": {}, "through": {},
	// Auxiliary verbs.
	"are": {}, "was": {}, "were": {}, "been": {}, "being": {}, "has": {},
	"have": {}, "had": {}, "does": {}, "did": {}, "will": {}, "would": {},
	"could": {}, "should": {}, "can": {}, "may": {}, "might": {}, "must": {},
	"shall": {}, "not": {},
	// Pronouns and demonstratives.
	"you": {}, "your": {}, "yours": {}, "its": {}, "our": {}, "ours": {},
	"they": {}, "them": {}, "their": {}, "this": {}, "that": {}, "these": {},
	"those": {}, "what": {}, "which": {}, "who": {}, "whom": {}, "how": {},
	"why": {}, "when": {}, "where": {}, "there": {}, "here": {},
	// Generic request verbs.
	"help": {}, "want": {}, "need": {}, "please": {}, "create": {},
	"make": {}, "get": {}, "got": {}, "let": {}, "like": {},
	// Semantically empty common verbs.
	"came": {}, "come": {}, "went": {}, "use": {}, "used": {}, "using": {},
	"find": {}, "found": {}, "try": {}, "tried": {}, "work": {}, "works": {},
	"working": {}, "thing": {}, "things": {}, "way": {}, "also": {},
	"very": {}, "really": {}, "just": {}, "some": {}, "any": {}, "all": {},
	"something": {}, "someone": {},
}

// ExtractKeywords returns up to 6 salient tokens from text in
// first-occurrence order. Tokens are lowercased, deduplicated, and filtered
// against the stop-word set; tokens of length <= 2 are dropped.
func ExtractKeywords(text string) []string {
	normalized := nonWordRe.ReplaceAllString(strings.ToLower(text), " ")

	var tokens []string
	seen := make(map[string]struct{})

	for _, token := range strings.Fields(normalized) {
		if len(token) <= 2 {
			continue
		}
		if _, stop := stopWords[token]; stop {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}

		tokens = append(tokens, token)
		if len(tokens) == maxKeywords {
			break
		}
	}

	return tokens
}
