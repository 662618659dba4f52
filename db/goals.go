package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fintrack/api/models"
)

const goalColumns = `id, user_id, type, target_amount, current_amount, target_date,
	progress, strategy, created_at, updated_at`

type goalRow struct {
	ID            string    `db:"id"`
	UserID        string    `db:"user_id"`
	Type          string    `db:"type"`
	TargetAmount  float64   `db:"target_amount"`
	CurrentAmount float64   `db:"current_amount"`
	TargetDate    time.Time `db:"target_date"`
	Progress      float64   `db:"progress"`
	Strategy      string    `db:"strategy"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r *goalRow) goal() models.Goal {
	return models.Goal{
		ID:            parseID(r.ID),
		UserID:        parseID(r.UserID),
		Type:          models.GoalType(r.Type),
		TargetAmount:  r.TargetAmount,
		CurrentAmount: r.CurrentAmount,
		TargetDate:    r.TargetDate.UTC(),
		Progress:      r.Progress,
		Strategy:      r.Strategy,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

func (s *Store) CreateGoal(ctx context.Context, goal *models.Goal) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO goals (`+goalColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		goal.ID.Hex(), goal.UserID.Hex(), string(goal.Type), goal.TargetAmount, goal.CurrentAmount,
		goal.TargetDate, goal.Progress, goal.Strategy, goal.CreatedAt, goal.UpdatedAt)
	if err != nil {
		return wrapWrite("insert goal", err)
	}
	return nil
}

func (s *Store) GetGoal(ctx context.Context, userID, goalID string) (*models.Goal, error) {
	if !validID(userID) || !validID(goalID) {
		return nil, nil
	}
	var row goalRow
	err := s.db.GetContext(ctx, &row, `SELECT `+goalColumns+` FROM goals WHERE id = $1 AND user_id = $2`, goalID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select goal %s: %w", goalID, err)
	}
	g := row.goal()
	return &g, nil
}

func (s *Store) ListGoals(ctx context.Context, userID string) ([]models.Goal, error) {
	if !validID(userID) {
		return []models.Goal{}, nil
	}
	var rows []goalRow
	err := s.db.SelectContext(ctx, &rows, `SELECT `+goalColumns+` FROM goals
		WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("select goals for user %s: %w", userID, err)
	}
	goals := make([]models.Goal, 0, len(rows))
	for i := range rows {
		goals = append(goals, rows[i].goal())
	}
	return goals, nil
}

func (s *Store) ReplaceGoal(ctx context.Context, goal *models.Goal) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE goals SET
			type = $3, target_amount = $4, current_amount = $5, target_date = $6,
			progress = $7, strategy = $8, updated_at = $9
		WHERE id = $1 AND user_id = $2`,
		goal.ID.Hex(), goal.UserID.Hex(), string(goal.Type), goal.TargetAmount, goal.CurrentAmount,
		goal.TargetDate, goal.Progress, goal.Strategy, goal.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("update goal %s: %w", goal.ID.Hex(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected for goal %s: %w", goal.ID.Hex(), err)
	}
	return n > 0, nil
}

func (s *Store) DeleteGoal(ctx context.Context, userID, goalID string) (bool, error) {
	if !validID(userID) || !validID(goalID) {
		return false, nil
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM goals WHERE id = $1 AND user_id = $2`, goalID, userID)
	if err != nil {
		return false, fmt.Errorf("delete goal %s: %w", goalID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected for goal %s: %w", goalID, err)
	}
	return n > 0, nil
}
