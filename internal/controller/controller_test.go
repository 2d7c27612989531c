package controller

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/eternisai/enchanted-titler/internal/host"
	"github.com/eternisai/enchanted-titler/internal/logger"
	"github.com/eternisai/enchanted-titler/internal/metrics"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: slog.LevelError})
}

type titleUpdate struct {
	sessionID string
	title     string
}

type fakeHost struct {
	mu        sync.Mutex
	titles    map[string]string
	messages  map[string][]host.Message
	getErr    error
	updateErr error
	updates   []titleUpdate
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		titles:   make(map[string]string),
		messages: make(map[string][]host.Message),
	}
}

func (f *fakeHost) GetSession(ctx context.Context, id string) (*host.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &host.Session{ID: id, Title: f.titles[id]}, nil
}

func (f *fakeHost) ListMessages(ctx context.Context, id string) ([]host.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messages[id], nil
}

func (f *fakeHost) UpdateSessionTitle(ctx context.Context, id, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.titles[id] = title
	f.updates = append(f.updates, titleUpdate{sessionID: id, title: title})
	return nil
}

func (f *fakeHost) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

func (f *fakeHost) currentTitle(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.titles[id]
}

type fakeResolver struct {
	model *host.ModelRef
}

func (f *fakeResolver) Resolve(ctx context.Context) *host.ModelRef {
	return f.model
}

type fakeGenerator struct {
	mu      sync.Mutex
	title   string
	calls   int
	release chan struct{}
}

func (f *fakeGenerator) GenerateTitle(ctx context.Context, turn host.Turn, model *host.ModelRef, maxLength int) string {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.release != nil {
		<-f.release
	}
	return f.title
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newController(h *fakeHost, g *fakeGenerator) *Controller {
	return New(h, &fakeResolver{}, g, Config{MaxLength: 50}, testLogger(), metrics.New(prometheus.NewRegistry()))
}

func fullTurn(id string, f *fakeHost, userText, assistantText string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[id] = []host.Message{
		{Role: "user", Parts: []host.MessagePart{{Type: "text", Text: userText}}},
		{Role: "assistant", Parts: []host.MessagePart{{Type: "text", Text: assistantText}}},
	}
}

func TestKeywordPhaseWritesMarkedTitle(t *testing.T) {
	h := newFakeHost()
	h.titles["ses_1"] = "New Session"
	c := newController(h, &fakeGenerator{})

	c.HandleMessagePart(context.Background(), "ses_1", "Help me set up authentication with JWT in my Express app", "user")

	if h.updateCount() != 1 {
		t.Fatalf("expected 1 title write, got %d", h.updateCount())
	}
	title := h.currentTitle("ses_1")
	if !strings.HasPrefix(title, KeywordMarker) {
		t.Errorf("title %q missing keyword marker", title)
	}
	if len([]rune(title)) > 50 {
		t.Errorf("title %q exceeds max length", title)
	}
}

func TestKeywordPhaseIdempotent(t *testing.T) {
	h := newFakeHost()
	h.titles["ses_1"] = "New Session"
	c := newController(h, &fakeGenerator{})

	text := "fix the login bug"
	c.HandleMessagePart(context.Background(), "ses_1", text, "user")
	c.HandleMessagePart(context.Background(), "ses_1", text, "user")

	if h.updateCount() != 1 {
		t.Errorf("expected exactly 1 title write, got %d", h.updateCount())
	}
}

func TestKeywordPhaseIgnoresNonUserMessages(t *testing.T) {
	h := newFakeHost()
	h.titles["ses_1"] = "New Session"
	c := newController(h, &fakeGenerator{})

	c.HandleMessagePart(context.Background(), "ses_1", "I fixed the bug", "assistant")
	c.HandleMessagePart(context.Background(), "ses_1", "", "user")

	if h.updateCount() != 0 {
		t.Errorf("expected no title writes, got %d", h.updateCount())
	}
}

func TestCustomTitleNeverTouched(t *testing.T) {
	h := newFakeHost()
	h.titles["ses_1"] = "My custom title"
	fullTurn("ses_1", h, "fix the login bug", "done")
	c := newController(h, &fakeGenerator{title: "Fix Login Bug"})

	c.HandleMessagePart(context.Background(), "ses_1", "fix the login bug", "user")
	c.HandleSessionIdle(context.Background(), "ses_1")

	if h.updateCount() != 0 {
		t.Fatalf("custom title was overwritten: %v", h.updates)
	}
	if h.currentTitle("ses_1") != "My custom title" {
		t.Errorf("title changed to %q", h.currentTitle("ses_1"))
	}
}

func TestTwoPhaseEndToEnd(t *testing.T) {
	h := newFakeHost()
	h.titles["ses_1"] = "New Session"
	g := &fakeGenerator{title: "ABC-123 Add JWT Auth To Express"}
	c := newController(h, g)

	userText := "Help me set up authentication with JWT in my Express app"
	c.HandleMessagePart(context.Background(), "ses_1", userText, "user")

	phase1 := h.currentTitle("ses_1")
	if !strings.HasPrefix(phase1, KeywordMarker) {
		t.Fatalf("phase 1 title %q missing keyword marker", phase1)
	}
	lower := strings.ToLower(phase1)
	if !strings.Contains(lower, "jwt") && !strings.Contains(lower, "express") {
		t.Errorf("phase 1 title %q carries no salient keyword", phase1)
	}

	fullTurn("ses_1", h, userText, "Sure, first install jsonwebtoken...")
	c.HandleSessionIdle(context.Background(), "ses_1")

	phase2 := h.currentTitle("ses_1")
	if !strings.HasPrefix(phase2, AIMarker) {
		t.Fatalf("phase 2 title %q missing ai marker", phase2)
	}
	if len([]rune(phase2)) > 50 {
		t.Errorf("phase 2 title %q exceeds max length", phase2)
	}

	// Terminal: neither handler may write again.
	c.HandleMessagePart(context.Background(), "ses_1", userText, "user")
	c.HandleSessionIdle(context.Background(), "ses_1")
	if h.updateCount() != 2 {
		t.Errorf("expected exactly 2 title writes, got %d", h.updateCount())
	}
	if g.callCount() != 1 {
		t.Errorf("expected exactly 1 generation call, got %d", g.callCount())
	}
}

func TestIdleMutualExclusion(t *testing.T) {
	h := newFakeHost()
	h.titles["ses_1"] = "New Session"
	fullTurn("ses_1", h, "fix the login bug", "done")

	g := &fakeGenerator{title: "Fix Login Bug", release: make(chan struct{})}
	c := newController(h, g)

	done := make(chan struct{})
	go func() {
		c.HandleSessionIdle(context.Background(), "ses_1")
		close(done)
	}()

	// Wait until the first attempt has claimed the in-flight slot.
	deadline := time.After(2 * time.Second)
	for {
		c.mu.Lock()
		_, inflight := c.pendingAI["ses_1"]
		c.mu.Unlock()
		if inflight {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first idle handler never claimed the in-flight slot")
		case <-time.After(time.Millisecond):
		}
	}

	// Second idle while the first is in flight must be a no-op.
	c.HandleSessionIdle(context.Background(), "ses_1")
	if g.callCount() != 1 {
		t.Fatalf("expected 1 generation call during overlap, got %d", g.callCount())
	}

	close(g.release)
	<-done

	if h.updateCount() != 1 {
		t.Errorf("expected 1 title write, got %d", h.updateCount())
	}
}

func TestIdleWithoutUserTextStaysRetryable(t *testing.T) {
	h := newFakeHost()
	h.titles["ses_1"] = "New Session"
	g := &fakeGenerator{title: "Fix Login Bug"}
	c := newController(h, g)

	// No messages yet: quiet no-op, no generation spent.
	c.HandleSessionIdle(context.Background(), "ses_1")
	if g.callCount() != 0 {
		t.Fatalf("generation attempted without user text")
	}

	// Once the turn exists, a later idle event succeeds.
	fullTurn("ses_1", h, "fix the login bug", "done")
	c.HandleSessionIdle(context.Background(), "ses_1")
	if g.callCount() != 1 {
		t.Errorf("expected 1 generation call after user text appeared, got %d", g.callCount())
	}
	if !strings.HasPrefix(h.currentTitle("ses_1"), AIMarker) {
		t.Errorf("title %q missing ai marker", h.currentTitle("ses_1"))
	}
}

func TestNullResultKeepsFallbackAsFinal(t *testing.T) {
	h := newFakeHost()
	h.titles["ses_1"] = "New Session"
	fullTurn("ses_1", h, "fix the login bug", "done")
	g := &fakeGenerator{title: ""}
	c := newController(h, g)

	c.HandleMessagePart(context.Background(), "ses_1", "fix the login bug", "user")
	c.HandleSessionIdle(context.Background(), "ses_1")

	if !strings.HasPrefix(h.currentTitle("ses_1"), KeywordMarker) {
		t.Fatalf("fallback title lost: %q", h.currentTitle("ses_1"))
	}

	// Terminal now: no further generation attempts.
	c.HandleSessionIdle(context.Background(), "ses_1")
	if g.callCount() != 1 {
		t.Errorf("expected 1 generation call, got %d", g.callCount())
	}
}

func TestNullResultWithoutFallbackRetries(t *testing.T) {
	h := newFakeHost()
	h.titles["ses_1"] = "New Session"
	fullTurn("ses_1", h, "fix the login bug", "done")
	g := &fakeGenerator{title: ""}
	c := newController(h, g)

	// Neither phase produced a title: the session stays eligible.
	c.HandleSessionIdle(context.Background(), "ses_1")
	c.HandleSessionIdle(context.Background(), "ses_1")

	if g.callCount() != 2 {
		t.Errorf("expected 2 generation calls, got %d", g.callCount())
	}
}

func TestGetSessionFailureTreatedAsEmptyTitle(t *testing.T) {
	h := newFakeHost()
	h.getErr = errors.New("host down")
	c := newController(h, &fakeGenerator{})

	c.HandleMessagePart(context.Background(), "ses_1", "fix the login bug", "user")

	// With the fetch failing soft to "no title", the keyword phase still
	// runs; only the write matters.
	if h.updateCount() != 1 {
		t.Errorf("expected 1 title write, got %d", h.updateCount())
	}
}

func TestDisabledControllerIsInert(t *testing.T) {
	h := newFakeHost()
	h.titles["ses_1"] = "New Session"
	fullTurn("ses_1", h, "fix the login bug", "done")
	g := &fakeGenerator{title: "Fix Login Bug"}
	c := New(h, &fakeResolver{}, g, Config{MaxLength: 50, Disabled: true}, testLogger(), metrics.New(prometheus.NewRegistry()))

	c.HandleMessagePart(context.Background(), "ses_1", "fix the login bug", "user")
	c.HandleSessionIdle(context.Background(), "ses_1")

	if h.updateCount() != 0 || g.callCount() != 0 {
		t.Errorf("disabled controller did work: %d writes, %d generations", h.updateCount(), g.callCount())
	}
}

func TestSweepStalePending(t *testing.T) {
	h := newFakeHost()
	c := newController(h, &fakeGenerator{})

	c.mu.Lock()
	c.pendingAI["stuck"] = time.Now().Add(-time.Hour)
	c.pendingAI["fresh"] = time.Now()
	c.mu.Unlock()

	if swept := c.SweepStalePending(10 * time.Minute); swept != 1 {
		t.Fatalf("SweepStalePending() = %d, expected 1", swept)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pendingAI["stuck"]; ok {
		t.Error("stale entry survived the sweep")
	}
	if _, ok := c.pendingAI["fresh"]; !ok {
		t.Error("fresh entry was swept")
	}
}
