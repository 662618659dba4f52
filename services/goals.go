package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"fintrack/api/logger"
	"fintrack/api/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

type CreateGoalInput struct {
	Type          models.GoalType
	TargetAmount  float64
	CurrentAmount float64
	TargetDate    string
}

// UpdateGoalInput holds the fields to change; nil fields are left alone.
type UpdateGoalInput struct {
	Type          *models.GoalType
	TargetAmount  *float64
	CurrentAmount *float64
	TargetDate    *string
	Strategy      *string
}

type GoalService struct {
	users     UserRepository
	goals     GoalRepository
	generator AdviceGenerator
	events    EventSink
	now       func() time.Time
}

func NewGoalService(users UserRepository, goals GoalRepository, generator AdviceGenerator, events EventSink) *GoalService {
	if events == nil {
		events = NopSink{}
	}
	return &GoalService{users: users, goals: goals, generator: generator, events: events, now: time.Now}
}

// ParseTargetDate accepts a calendar date or an RFC 3339 timestamp.
func ParseTargetDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidTargetDate
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, ErrInvalidTargetDate
}

func validAmounts(target, current float64) bool {
	if math.IsNaN(target) || math.IsInf(target, 0) || math.IsNaN(current) || math.IsInf(current, 0) {
		return false
	}
	return target > 0 && current >= 0
}

func (s *GoalService) owner(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// CreateGoal stores a new goal. The strategy is best effort: if the generator
// fails the goal is still created with an empty strategy.
func (s *GoalService) CreateGoal(ctx context.Context, userID string, in CreateGoalInput) (*models.Goal, error) {
	if !in.Type.Valid() {
		return nil, ErrInvalidGoalType
	}
	if !validAmounts(in.TargetAmount, in.CurrentAmount) {
		return nil, ErrInvalidAmount
	}
	targetDate, err := ParseTargetDate(in.TargetDate)
	if err != nil {
		return nil, err
	}

	user, err := s.owner(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	goal := &models.Goal{
		ID:            bson.NewObjectID(),
		UserID:        user.ID,
		Type:          in.Type,
		TargetAmount:  in.TargetAmount,
		CurrentAmount: in.CurrentAmount,
		TargetDate:    targetDate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	goal.RecomputeProgress()

	strategy, err := s.generator.GoalStrategy(ctx, user, goal)
	if err != nil {
		logger.Get().Warn("goal strategy generation failed, saving goal without strategy",
			zap.String("user_id", userID),
			zap.Error(err))
		strategy = ""
	}
	goal.Strategy = strategy

	if err := s.goals.CreateGoal(ctx, goal); err != nil {
		return nil, fmt.Errorf("create goal: %w", err)
	}

	s.events.Publish(models.Event{Type: models.EventGoalCreated, UserID: userID, SubjectID: goal.ID.Hex(), OccurredAt: now})
	return goal, nil
}

func (s *GoalService) ListGoals(ctx context.Context, userID string) ([]models.Goal, error) {
	if _, err := s.owner(ctx, userID); err != nil {
		return nil, err
	}
	goals, err := s.goals.ListGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	if goals == nil {
		goals = []models.Goal{}
	}
	return goals, nil
}

// GetGoal returns ErrGoalNotFound both for missing goals and for goals owned
// by someone else.
func (s *GoalService) GetGoal(ctx context.Context, userID, goalID string) (*models.Goal, error) {
	_, goal, err := s.owned(ctx, userID, goalID)
	return goal, err
}

func (s *GoalService) owned(ctx context.Context, userID, goalID string) (*models.User, *models.Goal, error) {
	user, err := s.owner(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	goal, err := s.goals.GetGoal(ctx, userID, goalID)
	if err != nil {
		return nil, nil, fmt.Errorf("get goal: %w", err)
	}
	if goal == nil {
		return nil, nil, ErrGoalNotFound
	}
	return user, goal, nil
}

func (s *GoalService) UpdateGoal(ctx context.Context, userID, goalID string, in UpdateGoalInput) (*models.Goal, error) {
	goal, err := s.GetGoal(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}

	if in.Type != nil {
		if !in.Type.Valid() {
			return nil, ErrInvalidGoalType
		}
		goal.Type = *in.Type
	}
	if in.TargetAmount != nil {
		goal.TargetAmount = *in.TargetAmount
	}
	if in.CurrentAmount != nil {
		goal.CurrentAmount = *in.CurrentAmount
	}
	if !validAmounts(goal.TargetAmount, goal.CurrentAmount) {
		return nil, ErrInvalidAmount
	}
	if in.TargetDate != nil {
		if goal.TargetDate, err = ParseTargetDate(*in.TargetDate); err != nil {
			return nil, err
		}
	}
	if in.Strategy != nil {
		goal.Strategy = *in.Strategy
	}
	goal.RecomputeProgress()
	goal.UpdatedAt = s.now()

	found, err := s.goals.ReplaceGoal(ctx, goal)
	if err != nil {
		return nil, fmt.Errorf("replace goal: %w", err)
	}
	if !found {
		return nil, ErrGoalNotFound
	}

	s.events.Publish(models.Event{Type: models.EventGoalUpdated, UserID: userID, SubjectID: goalID, OccurredAt: goal.UpdatedAt})
	return goal, nil
}

func (s *GoalService) DeleteGoal(ctx context.Context, userID, goalID string) error {
	if _, err := s.owner(ctx, userID); err != nil {
		return err
	}
	deleted, err := s.goals.DeleteGoal(ctx, userID, goalID)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	if !deleted {
		return ErrGoalNotFound
	}
	s.events.Publish(models.Event{Type: models.EventGoalDeleted, UserID: userID, SubjectID: goalID, OccurredAt: s.now()})
	return nil
}

// RegenerateStrategy asks the generator for a new strategy. Unlike creation,
// a generator failure is returned and the stored strategy is kept.
func (s *GoalService) RegenerateStrategy(ctx context.Context, userID, goalID string) (*models.Goal, error) {
	user, goal, err := s.owned(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}

	strategy, err := s.generator.GoalStrategy(ctx, user, goal)
	if err != nil {
		logger.Get().Error("goal strategy generation failed",
			zap.String("user_id", userID),
			zap.String("goal_id", goalID),
			zap.Error(err))
		return nil, generationError(err)
	}
	if strings.TrimSpace(strategy) == "" {
		return nil, ErrGenerationFailed
	}

	goal.Strategy = strategy
	goal.UpdatedAt = s.now()
	found, err := s.goals.ReplaceGoal(ctx, goal)
	if err != nil {
		return nil, fmt.Errorf("replace goal: %w", err)
	}
	if !found {
		return nil, ErrGoalNotFound
	}

	s.events.Publish(models.Event{Type: models.EventGoalUpdated, UserID: userID, SubjectID: goalID, OccurredAt: goal.UpdatedAt})
	return goal, nil
}
