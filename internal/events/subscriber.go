// Package events subscribes to the host runtime's event stream and routes
// the two event kinds the titler reacts to. Payload-shape knowledge lives
// here, away from the controller's state machine.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/eternisai/enchanted-titler/internal/logger"
)

// defaultSubject is the wildcard subject the host publishes session events
// on.
const defaultSubject = "event.>"

// Handler receives decoded events. Implementations must tolerate
// overlapping invocations; the subscriber dispatches each event on its own
// goroutine so a slow generation call never stalls the stream.
type Handler interface {
	HandleMessagePart(ctx context.Context, sessionID, text, role string)
	HandleSessionIdle(ctx context.Context, sessionID string)
}

// Subscriber bridges the NATS event stream to a Handler.
type Subscriber struct {
	nc           *nats.Conn
	handler      Handler
	subject      string
	logger       *logger.Logger
	subscription *nats.Subscription
}

// NewSubscriber creates a subscriber on the given connection. An empty
// subject uses the default wildcard.
func NewSubscriber(nc *nats.Conn, handler Handler, subject string, log *logger.Logger) *Subscriber {
	if subject == "" {
		subject = defaultSubject
	}
	return &Subscriber{
		nc:      nc,
		handler: handler,
		subject: subject,
		logger:  log.WithComponent("events"),
	}
}

// Start begins listening for host events.
func (s *Subscriber) Start() error {
	sub, err := s.nc.Subscribe(s.subject, s.handleMessage)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.subject, err)
	}

	s.subscription = sub
	s.logger.Info("event subscription started", slog.String("subject", s.subject))

	return nil
}

// Stop drains the subscription.
func (s *Subscriber) Stop() error {
	if s.subscription != nil {
		if err := s.subscription.Drain(); err != nil {
			return fmt.Errorf("drain subscription: %w", err)
		}
	}
	s.logger.Info("event subscription stopped")
	return nil
}

func (s *Subscriber) handleMessage(msg *nats.Msg) {
	var envelope Envelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		s.logger.Debug("ignoring malformed event", slog.String("error", err.Error()))
		return
	}

	switch envelope.Type {
	case TypeMessagePartUpdated, TypeSessionIdle:
	default:
		return
	}

	sessionID := SessionID(envelope.Properties)
	if sessionID == "" {
		s.logger.Debug("event without session id", slog.String("type", envelope.Type))
		return
	}

	ctx := logger.WithRequestID(context.Background(), logger.GenerateRequestID())
	ctx = logger.WithSessionID(ctx, sessionID)

	switch envelope.Type {
	case TypeMessagePartUpdated:
		text, role := MessageText(envelope.Properties)
		go s.handler.HandleMessagePart(ctx, sessionID, text, role)
	case TypeSessionIdle:
		go s.handler.HandleSessionIdle(ctx, sessionID)
	}
}
