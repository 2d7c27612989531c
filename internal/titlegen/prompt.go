package titlegen

import (
	"fmt"
	"strings"
)

const (
	maxUserContext      = 300
	maxAssistantContext = 400
)

// defaultInstruction is the preamble of the generation prompt. Deployments
// can override it through the config file; the formatting rules and the
// conversation context are always appended by buildPrompt.
const defaultInstruction = `You are a title generator for coding sessions. Output ONLY the title, nothing else.`

// buildPrompt assembles the single-shot generation prompt from the opening
// conversation turn.
func buildPrompt(instruction, userText, assistantText string, maxLength int) string {
	var b strings.Builder

	b.WriteString(strings.TrimSpace(instruction))
	b.WriteString("\n\nRules:\n")
	fmt.Fprintf(&b, "- At most %d characters, shorter is better\n", maxLength)
	b.WriteString("- Title case, plain words only, no quotes or trailing punctuation\n")
	b.WriteString("- Prefer concrete specifics (names, technologies, files) over generic descriptions\n")
	b.WriteString("- If the request mentions a ticket or issue reference like ABC-123, start the title with it verbatim\n")

	b.WriteString("\nUser request:\n")
	b.WriteString(truncate(userText, maxUserContext))

	if assistantText != "" {
		b.WriteString("\n\nAssistant response:\n")
		b.WriteString(truncate(assistantText, maxAssistantContext))
	}

	b.WriteString("\n\nTitle:")

	return b.String()
}

func truncate(s string, limit int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit])
}
