package events

import (
	"time"

	"github.com/spec-kit/account-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered     EventType = "user_registered"
	EventUserDeleted        EventType = "user_deleted"
	EventUserSuspended      EventType = "user_suspended"
	EventSuspensionLifted   EventType = "suspension_lifted"
	EventNotificationAdded  EventType = "notification_added"
	EventPreferencesChanged EventType = "preferences_changed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id"`
	ActorID   string      `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NotificationPayload carries the message that was attached to the user.
type NotificationPayload struct {
	NotificationID string `json:"notification_id"`
	Message        string `json:"message"`
}

// UserSuspendedPayload payload.
type UserSuspendedPayload struct {
	Until  string `json:"until"`
	Reason string `json:"reason"`
	NotificationPayload
}

// PreferencesChangedPayload payload.
type PreferencesChangedPayload struct {
	Preferences domain.UserPreferences `json:"preferences"`
}
