package services

import (
	"context"
	"fmt"
	"time"

	"fintrack/api/models"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type SnapshotInput struct {
	Income      float64
	Expenses    map[string]float64
	Savings     float64
	Investments map[string]float64
}

type SnapshotService struct {
	users     UserRepository
	snapshots SnapshotRepository
	now       func() time.Time
}

func NewSnapshotService(users UserRepository, snapshots SnapshotRepository) *SnapshotService {
	return &SnapshotService{users: users, snapshots: snapshots, now: time.Now}
}

// CreateSnapshot validates the figures with the same rules as a profile and
// appends a snapshot to the user's history.
func (s *SnapshotService) CreateSnapshot(ctx context.Context, userID string, in SnapshotInput) (*models.FinancialSnapshot, error) {
	figures := models.FinancialProfile{AnnualIncome: in.Income, MonthlyExpenses: in.Expenses, CurrentSavings: in.Savings}
	if err := figures.Normalize(); err != nil {
		return nil, withMessage(ErrInvalidSnapshot, err.Error())
	}
	investments := models.FinancialProfile{MonthlyExpenses: in.Investments}
	if err := investments.Normalize(); err != nil {
		return nil, withMessage(ErrInvalidSnapshot, "investments: must be named, non-negative amounts")
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	snapshot := &models.FinancialSnapshot{
		ID:          bson.NewObjectID(),
		UserID:      user.ID,
		Income:      figures.AnnualIncome,
		Expenses:    figures.MonthlyExpenses,
		Savings:     figures.CurrentSavings,
		Investments: investments.MonthlyExpenses,
		CreatedAt:   s.now(),
	}
	if err := s.snapshots.CreateSnapshot(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("create snapshot: %w", err)
	}
	return snapshot, nil
}

func (s *SnapshotService) LatestSnapshot(ctx context.Context, userID string) (*models.FinancialSnapshot, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	snapshot, err := s.snapshots.LatestSnapshot(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	if snapshot == nil {
		return nil, ErrSnapshotNotFound
	}
	return snapshot, nil
}
