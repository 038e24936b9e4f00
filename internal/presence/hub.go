package presence

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/alphabot-ai/debateboard/internal/apperr"
	"github.com/alphabot-ai/debateboard/internal/clock"
)

// EventType of a chat event
type EventType string

const (
	EventJoin  EventType = "JOIN"
	EventLeave EventType = "LEAVE"
	EventChat  EventType = "CHAT"
)

// Event is published on the public topic
type Event struct {
	Type    EventType `json:"type"`
	Sender  string    `json:"sender"`
	Message string    `json:"message,omitempty"`
	Time    time.Time `json:"time"`
}

// Hub couples the registry with event publishing. Publish failures are logged and never
// fail the caller.
type Hub struct {
	registry  *Registry
	publisher Publisher
	clock     clock.Clock
	logger    *slog.Logger
}

func NewHub(registry *Registry, publisher Publisher, c clock.Clock, logger *slog.Logger) *Hub {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if c == nil {
		c = clock.System{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		registry:  registry,
		publisher: publisher,
		clock:     c,
		logger:    logger.With("component", "presence"),
	}
}

// Registry returns the underlying registry
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Join registers the session and announces it
func (h *Hub) Join(ctx context.Context, sessionID, displayName, sourceAddress string) (Snapshot, error) {
	sessionID = strings.TrimSpace(sessionID)
	displayName = strings.TrimSpace(displayName)
	if sessionID == "" || displayName == "" {
		return nil, apperr.New(apperr.KindValidation, "session_id and display_name are required")
	}

	snap := h.registry.Join(sessionID, displayName, sourceAddress)
	h.logger.Info("chat join", "session_id", sessionID, "display_name", displayName, "online", len(snap))

	h.publish(ctx, TopicPublic, Event{Type: EventJoin, Sender: displayName, Time: h.clock.Now()})
	h.publish(ctx, TopicUsers, snap)
	return snap, nil
}

// Leave unregisters the session. Leaving an unknown session changes nothing and
// publishes nothing.
func (h *Hub) Leave(ctx context.Context, sessionID string) Snapshot {
	entry, ok, snap := h.registry.Leave(sessionID)
	if !ok {
		return snap
	}
	h.logger.Info("chat leave", "session_id", sessionID, "display_name", entry.DisplayName, "online", len(snap))

	h.publish(ctx, TopicPublic, Event{Type: EventLeave, Sender: entry.DisplayName, Time: h.clock.Now()})
	h.publish(ctx, TopicUsers, snap)
	return snap
}

// Say publishes a chat message
func (h *Hub) Say(ctx context.Context, sender, message string) (Event, error) {
	sender = strings.TrimSpace(sender)
	message = strings.TrimSpace(message)
	if sender == "" || message == "" {
		return Event{}, apperr.New(apperr.KindValidation, "sender and message are required")
	}

	ev := Event{Type: EventChat, Sender: sender, Message: message, Time: h.clock.Now()}
	h.publish(ctx, TopicPublic, ev)
	return ev, nil
}

func (h *Hub) publish(ctx context.Context, topic string, payload any) {
	if err := h.publisher.Publish(ctx, topic, payload); err != nil {
		h.logger.Warn("publish failed", "topic", topic, "error", err)
	}
}
