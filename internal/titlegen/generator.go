// Package titlegen produces the AI-phase session title: it runs one
// generation request through an ephemeral scratch session and sanitizes the
// response into a title candidate. Every failure path degrades to "no
// title"; nothing here ever propagates an error to the event handlers.
package titlegen

import (
	"context"
	"log/slog"
	"strings"

	"github.com/eternisai/enchanted-titler/internal/host"
	"github.com/eternisai/enchanted-titler/internal/keywords"
	"github.com/eternisai/enchanted-titler/internal/logger"
)

// overshootTolerance accepts candidates slightly above the configured
// maximum before sanitization truncates them.
const overshootTolerance = 20

// Host is the slice of the host API the generator needs.
type Host interface {
	CreateSession(ctx context.Context) (*host.Session, error)
	DeleteSession(ctx context.Context, id string) error
	Generate(ctx context.Context, sessionID, prompt string, model *host.ModelRef) (*host.GenerateResponse, error)
}

// Generator turns an opening conversation turn into a title candidate.
type Generator struct {
	host        Host
	instruction string
	logger      *logger.Logger
}

// NewGenerator creates a generator. An empty instruction uses the built-in
// prompt preamble.
func NewGenerator(h Host, instruction string, log *logger.Logger) *Generator {
	if strings.TrimSpace(instruction) == "" {
		instruction = defaultInstruction
	}
	return &Generator{
		host:        h,
		instruction: instruction,
		logger:      log.WithComponent("titlegen"),
	}
}

// GenerateTitle runs one generation request and returns a sanitized title,
// or the empty string when no usable title could be obtained. A nil model
// uses the host's default.
func (g *Generator) GenerateTitle(ctx context.Context, turn host.Turn, model *host.ModelRef, maxLength int) string {
	log := g.logger.WithContext(ctx)

	scratch, err := g.host.CreateSession(ctx)
	if err != nil {
		log.Warn("scratch session creation failed", slog.String("error", err.Error()))
		return ""
	}

	// The scratch session must go away on every exit path. Deletion is
	// best-effort: a leaked session on the host is logged, never escalated.
	defer func() {
		if err := g.host.DeleteSession(context.WithoutCancel(ctx), scratch.ID); err != nil {
			log.Warn("scratch session cleanup failed",
				slog.String("scratch_id", scratch.ID),
				slog.String("error", err.Error()))
		}
	}()

	prompt := buildPrompt(g.instruction, turn.UserText, turn.AssistantText, maxLength)

	resp, err := g.host.Generate(ctx, scratch.ID, prompt, model)
	if err != nil {
		log.Warn("title generation request failed",
			slog.Bool("transient", isRetryableError(err)),
			slog.String("error", err.Error()))
		return ""
	}

	candidate := parseCandidate(resp, maxLength)
	if candidate == "" {
		log.Debug("generation response yielded no usable title")
		return ""
	}

	title := keywords.SanitizeTitle(candidate, maxLength)
	if title == "" {
		return ""
	}

	log.Debug("ai title generated", slog.String("title", title))
	return title
}

// parseCandidate extracts the title candidate from a generation response:
// the first non-empty line of the structured text if its length is
// plausible, else the flat content field some host versions return.
func parseCandidate(resp *host.GenerateResponse, maxLength int) string {
	if candidate := firstNonEmptyLine(resp.Text()); plausibleLength(candidate, maxLength) {
		return candidate
	}
	if candidate := firstNonEmptyLine(resp.Content); plausibleLength(candidate, maxLength) {
		return candidate
	}
	return ""
}

func plausibleLength(s string, maxLength int) bool {
	n := len([]rune(s))
	return n >= 1 && n <= maxLength+overshootTolerance
}

func firstNonEmptyLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// isRetryableError reports whether an error looks transient. The titler
// never retries generation (cost bounding), but the distinction is worth a
// log attribute when diagnosing flaky hosts.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	retryablePatterns := []string{
		"timeout", "timed out", "connection refused", "connection reset",
		"no such host", "EOF", "503", "502", "504", "429", "500",
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
