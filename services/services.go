// Package services implements the account, goal, chat and snapshot
// operations on top of storage and the advice generator.
package services

import (
	"context"
	"errors"

	"fintrack/api/llm"
	"fintrack/api/models"
)

// UserRepository persists users. Lookups return (nil, nil) when nothing matches.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	// UpdateProfile atomically overwrites the financial profile and, when
	// completeOnboarding is set, marks onboarding done. It returns the
	// updated user or nil if the user does not exist.
	UpdateProfile(ctx context.Context, userID string, profile models.FinancialProfile, completeOnboarding bool) (*models.User, error)
}

// GoalRepository persists goals. Every lookup is scoped to the owner.
type GoalRepository interface {
	CreateGoal(ctx context.Context, goal *models.Goal) error
	GetGoal(ctx context.Context, userID, goalID string) (*models.Goal, error)
	ListGoals(ctx context.Context, userID string) ([]models.Goal, error)
	// ReplaceGoal reports false when no goal with that id belongs to goal.UserID.
	ReplaceGoal(ctx context.Context, goal *models.Goal) (bool, error)
	DeleteGoal(ctx context.Context, userID, goalID string) (bool, error)
}

type ChatRepository interface {
	GetChat(ctx context.Context, userID string) (*models.ChatSession, error)
	// AppendMessages adds msgs to the user's session, creating it if needed.
	AppendMessages(ctx context.Context, userID string, msgs ...models.Message) error
	// DeleteChat removes the session. Deleting a missing session is not an error.
	DeleteChat(ctx context.Context, userID string) error
}

type SnapshotRepository interface {
	CreateSnapshot(ctx context.Context, snapshot *models.FinancialSnapshot) error
	LatestSnapshot(ctx context.Context, userID string) (*models.FinancialSnapshot, error)
}

// AdviceGenerator produces the text the assistant shows to users.
type AdviceGenerator interface {
	ChatReply(ctx context.Context, user *models.User, history []models.Message, area string) (string, error)
	GoalStrategy(ctx context.Context, user *models.User, goal *models.Goal) (string, error)
}

// TokenIssuer issues session tokens.
type TokenIssuer interface {
	Issue(userID, username, email string) (string, error)
}

// EventSink receives domain events after state changes commit. Publish must
// not block the caller.
type EventSink interface {
	Publish(event models.Event)
}

// NopSink discards events.
type NopSink struct{}

func (NopSink) Publish(models.Event) {}

// FanOut publishes every event to each sink in order.
type FanOut []EventSink

func (f FanOut) Publish(event models.Event) {
	for _, sink := range f {
		sink.Publish(event)
	}
}

// generationError maps advice generator failures onto client-facing errors.
func generationError(err error) error {
	if errors.Is(err, llm.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return ErrGeneratorTimeout
	}
	return ErrGenerationFailed
}
