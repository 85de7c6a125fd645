package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered     EventType = "user_registered"
	EventContentPublished   EventType = "content_published"
	EventContentUnpublished EventType = "content_unpublished"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ActorID   *int64      `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
}

// ContentPublishedPayload payload.
type ContentPublishedPayload struct {
	Kind      string `json:"kind"`
	ContentID int64  `json:"content_id"`
	Title     string `json:"title"`
}
