// Package controller owns the per-session titling state machine. It decides
// when the keyword phase runs, when the AI phase runs, and how the two
// reconcile across overlapping events, without ever overwriting a title the
// user set by hand.
package controller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/eternisai/enchanted-titler/internal/host"
	"github.com/eternisai/enchanted-titler/internal/keywords"
	"github.com/eternisai/enchanted-titler/internal/logger"
	"github.com/eternisai/enchanted-titler/internal/metrics"
)

// HostAPI is the slice of the host client the controller needs.
type HostAPI interface {
	GetSession(ctx context.Context, id string) (*host.Session, error)
	ListMessages(ctx context.Context, id string) ([]host.Message, error)
	UpdateSessionTitle(ctx context.Context, id, title string) error
}

// ModelResolver yields the memoized title-generation model, nil for the
// host default.
type ModelResolver interface {
	Resolve(ctx context.Context) *host.ModelRef
}

// TitleGenerator produces an AI title candidate, empty string on failure.
type TitleGenerator interface {
	GenerateTitle(ctx context.Context, turn host.Turn, model *host.ModelRef, maxLength int) string
}

// Config carries the controller's tunables.
type Config struct {
	// MaxLength bounds every title the controller writes, marker included.
	MaxLength int
	// Disabled turns the whole pipeline inert.
	Disabled bool
}

// Controller tracks per-session titling progress. All state is process
// local: a restart may re-title a session, which the custom-title check
// makes harmless.
type Controller struct {
	host      HostAPI
	resolver  ModelResolver
	generator TitleGenerator
	cfg       Config
	logger    *logger.Logger
	metrics   *metrics.Metrics

	mu            sync.Mutex
	keywordTitled map[string]struct{}
	aiTitled      map[string]struct{}
	pendingAI     map[string]time.Time
}

// New creates a controller.
func New(h HostAPI, resolver ModelResolver, generator TitleGenerator, cfg Config, log *logger.Logger, m *metrics.Metrics) *Controller {
	return &Controller{
		host:          h,
		resolver:      resolver,
		generator:     generator,
		cfg:           cfg,
		logger:        log.WithComponent("controller"),
		metrics:       m,
		keywordTitled: make(map[string]struct{}),
		aiTitled:      make(map[string]struct{}),
		pendingAI:     make(map[string]time.Time),
	}
}

// HandleMessagePart runs the keyword phase when the first user message of a
// session appears. Safe to call repeatedly and concurrently for the same
// session.
func (c *Controller) HandleMessagePart(ctx context.Context, sessionID, text, role string) {
	if c.cfg.Disabled {
		return
	}
	c.metrics.EventsReceived.WithLabelValues("message.part.updated").Inc()

	if role != "user" || text == "" {
		return
	}

	log := c.logger.WithContext(ctx)

	c.mu.Lock()
	_, keyworded := c.keywordTitled[sessionID]
	_, terminal := c.aiTitled[sessionID]
	c.mu.Unlock()
	if keyworded || terminal {
		return
	}

	if !c.claimable(ctx, sessionID, log) {
		return
	}

	budget := c.cfg.MaxLength - len([]rune(KeywordMarker))
	fallback := keywords.GenerateFallbackTitle(text, budget)
	if fallback == "" {
		log.Debug("no fallback title derivable")
		return
	}

	title := KeywordMarker + fallback
	if err := c.host.UpdateSessionTitle(ctx, sessionID, title); err != nil {
		log.Warn("fallback title write failed", slog.String("error", err.Error()))
		return
	}

	c.mu.Lock()
	c.keywordTitled[sessionID] = struct{}{}
	c.mu.Unlock()

	c.metrics.FallbackTitles.Inc()
	log.Info("fallback title set",
		slog.String("title", title),
		slog.String("intent", keywords.InferIntent(text)))
}

// HandleSessionIdle runs the AI phase once the assistant has responded. At
// most one attempt is in flight per session; terminal sessions are never
// revisited.
func (c *Controller) HandleSessionIdle(ctx context.Context, sessionID string) {
	if c.cfg.Disabled {
		return
	}
	c.metrics.EventsReceived.WithLabelValues("session.idle").Inc()

	log := c.logger.WithContext(ctx)

	c.mu.Lock()
	if _, terminal := c.aiTitled[sessionID]; terminal {
		c.mu.Unlock()
		return
	}
	if _, inflight := c.pendingAI[sessionID]; inflight {
		c.mu.Unlock()
		return
	}
	c.pendingAI[sessionID] = time.Now()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pendingAI, sessionID)
		c.mu.Unlock()
	}()

	// The title may have changed since the keyword phase; re-check before
	// spending a generation call.
	if !c.claimable(ctx, sessionID, log) {
		return
	}

	messages, err := c.host.ListMessages(ctx, sessionID)
	if err != nil {
		log.Warn("message listing failed", slog.String("error", err.Error()))
		messages = nil
	}

	turn := host.ExtractTurn(messages)
	if turn.UserText == "" {
		// Nothing to summarize yet; a later idle event retries.
		log.Debug("no user text found, leaving session eligible for retry")
		return
	}

	model := c.resolver.Resolve(ctx)
	budget := c.cfg.MaxLength - len([]rune(AIMarker))

	title := c.generator.GenerateTitle(ctx, turn, model, budget)
	if title == "" {
		c.metrics.GenerationFailures.Inc()
		c.mu.Lock()
		if _, keyworded := c.keywordTitled[sessionID]; keyworded {
			// The fallback title stands as final; don't spend another
			// generation call on this session.
			c.aiTitled[sessionID] = struct{}{}
			log.Info("keeping fallback title as final")
		}
		c.mu.Unlock()
		return
	}

	full := AIMarker + title
	if err := c.host.UpdateSessionTitle(ctx, sessionID, full); err != nil {
		log.Warn("ai title write failed", slog.String("error", err.Error()))
		return
	}

	c.mu.Lock()
	c.aiTitled[sessionID] = struct{}{}
	delete(c.keywordTitled, sessionID)
	c.mu.Unlock()

	c.metrics.AITitles.Inc()
	log.Info("ai title set", slog.String("title", full))
}

// claimable fetches the session's current title and reports whether it is
// ours to rewrite. A custom title moves the session to its terminal state
// as a side effect. Fetch failures are treated as "no title" per the
// fail-soft contract.
func (c *Controller) claimable(ctx context.Context, sessionID string, log *logger.Logger) bool {
	var title string
	if session, err := c.host.GetSession(ctx, sessionID); err != nil {
		log.Debug("session fetch failed, treating title as empty", slog.String("error", err.Error()))
	} else {
		title = session.Title
	}

	if ShouldModifyTitle(title) {
		return true
	}

	c.mu.Lock()
	c.aiTitled[sessionID] = struct{}{}
	delete(c.keywordTitled, sessionID)
	c.mu.Unlock()

	c.metrics.SkippedCustom.Inc()
	log.Debug("custom title detected, leaving session alone", slog.String("title", title))
	return false
}

// SweepStalePending clears in-flight markers older than cutoff. An attempt
// whose handler never returned would otherwise block that session's AI
// phase forever.
func (c *Controller) SweepStalePending(cutoff time.Duration) int {
	now := time.Now()

	c.mu.Lock()
	var swept int
	for sessionID, started := range c.pendingAI {
		if now.Sub(started) > cutoff {
			delete(c.pendingAI, sessionID)
			swept++
		}
	}
	c.mu.Unlock()

	if swept > 0 {
		c.metrics.StalePendingSwept.Add(float64(swept))
		c.logger.Warn("cleared stale in-flight title attempts", slog.Int("count", swept))
	}
	return swept
}
