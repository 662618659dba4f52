package models

import "time"

type EventType string

const (
	EventUserRegistered EventType = "user.registered"
	EventUserOnboarded  EventType = "user.onboarded"
	EventGoalCreated    EventType = "goal.created"
	EventGoalUpdated    EventType = "goal.updated"
	EventGoalDeleted    EventType = "goal.deleted"
	EventChatReplied    EventType = "chat.replied"
	EventChatCleared    EventType = "chat.cleared"
)

// Event is published to the events topic after a state change commits.
type Event struct {
	Type       EventType `json:"type"`
	UserID     string    `json:"user_id"`
	SubjectID  string    `json:"subject_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
