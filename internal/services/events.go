package services

import (
	"encoding/json"
	"log/slog"
	"time"
)

// Routing keys of the domain events.
const (
	EventPostCreated   = "daily_scrum.created"
	EventPostUpdated   = "daily_scrum.updated"
	EventPostDeleted   = "daily_scrum.deleted"
	EventReviewCreated = "daily_scrum.review.created"
	EventReviewUpdated = "daily_scrum.review.updated"
	EventReviewDeleted = "daily_scrum.review.deleted"
	EventTitleCreated  = "title.created"
	EventTitleUpdated  = "title.updated"
	EventTitleDeleted  = "title.deleted"
)

// EventPublisher delivers an encoded event under a routing key.
type EventPublisher interface {
	Publish(routingKey string, body []byte) error
}

// Event is the body published after every committed mutation.
type Event struct {
	Type     string    `json:"type"`
	ID       string    `json:"id"`
	ParentID string    `json:"parent_id,omitempty"`
	UserID   string    `json:"user_id"`
	At       time.Time `json:"at"`
}

type emitter struct {
	pub    EventPublisher
	logger *slog.Logger
}

// emit publishes ev; failures are logged and never reach the caller.
func (e emitter) emit(ev Event) {
	if e.pub == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		e.logger.Warn("failed to encode event", "type", ev.Type, "error", err)
		return
	}
	if err := e.pub.Publish(ev.Type, body); err != nil {
		e.logger.Warn("failed to publish event", "type", ev.Type, "id", ev.ID, "error", err)
	}
}
