package keywords

import (
	"regexp"
	"strings"
)

// disallowedRe matches everything the sanitizer strips from a title
// candidate. Dots and hyphens survive so filenames like package.json and
// flags like --force stay readable.
var disallowedRe = regexp.MustCompile(`[^\w\s.-]`)

// SanitizeTitle strips disallowed characters, collapses whitespace, trims,
// and truncates the result to maxLength. Shared by the fallback builder and
// the AI title path so both phases produce structurally identical output.
func SanitizeTitle(s string, maxLength int) string {
	s = disallowedRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	if runes := []rune(s); len(runes) > maxLength {
		s = strings.TrimSpace(string(runes[:maxLength]))
	}

	return s
}

// GenerateFallbackTitle derives a title from text without any model call.
// Returns the empty string when the input carries no usable content.
func GenerateFallbackTitle(text string, maxLength int) string {
	// Short-message shortcut: naturally short prompts title-case cleanly
	// without keyword mangling.
	cleaned := strings.TrimSpace(whitespaceRe.ReplaceAllString(nonWordRe.ReplaceAllString(text, " "), " "))
	if len(cleaned) > 3 && len(cleaned) <= maxLength {
		return SanitizeTitle(titleCase(cleaned), maxLength)
	}

	tokens := ExtractKeywords(text)
	if len(tokens) == 0 {
		return ""
	}

	// Greedy concatenation in original order, stopping just before the
	// running string would exceed maxLength.
	var b strings.Builder
	for _, token := range tokens {
		word := titleCase(token)
		next := len(word)
		if b.Len() > 0 {
			next += b.Len() + 1
		}
		if next > maxLength {
			break
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(word)
	}

	return SanitizeTitle(b.String(), maxLength)
}

// titleCase upper-cases the first letter of every whitespace-separated word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		runes := []rune(word)
		if len(runes) > 0 {
			runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
			words[i] = string(runes)
		}
	}
	return strings.Join(words, " ")
}
