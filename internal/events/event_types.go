package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/user-directory/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserCreated EventType = "user_created"
	EventUserUpdated EventType = "user_updated"
	EventUserDeleted EventType = "user_deleted"
)

// Event represents a change to the users table.
type Event struct {
	ID        string       `json:"id"`
	Type      EventType    `json:"type"`
	UserID    int64        `json:"user_id"`
	Timestamp time.Time    `json:"timestamp"`
	User      *domain.User `json:"user,omitempty"`
}

// NewUserEvent stamps an event with a fresh id and the current time. user is
// nil for deletions.
func NewUserEvent(eventType EventType, userID int64, user *domain.User) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		User:      user,
	}
}
