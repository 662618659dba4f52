package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fintrack/api/models"

	"github.com/jmoiron/sqlx/types"
)

type snapshotRow struct {
	ID          string         `db:"id"`
	UserID      string         `db:"user_id"`
	Income      float64        `db:"income"`
	Expenses    types.JSONText `db:"expenses"`
	Savings     float64        `db:"savings"`
	Investments types.JSONText `db:"investments"`
	CreatedAt   time.Time      `db:"created_at"`
}

func (s *Store) CreateSnapshot(ctx context.Context, snapshot *models.FinancialSnapshot) error {
	expenses, err := toJSON(nonNil(snapshot.Expenses))
	if err != nil {
		return fmt.Errorf("encode expenses: %w", err)
	}
	investments, err := toJSON(nonNil(snapshot.Investments))
	if err != nil {
		return fmt.Errorf("encode investments: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO financial_snapshots
			(id, user_id, income, expenses, savings, investments, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		snapshot.ID.Hex(), snapshot.UserID.Hex(), snapshot.Income, expenses,
		snapshot.Savings, investments, snapshot.CreatedAt)
	if err != nil {
		return wrapWrite("insert snapshot", err)
	}
	return nil
}

func (s *Store) LatestSnapshot(ctx context.Context, userID string) (*models.FinancialSnapshot, error) {
	if !validID(userID) {
		return nil, nil
	}
	var row snapshotRow
	err := s.db.GetContext(ctx, &row, `SELECT id, user_id, income, expenses, savings, investments, created_at
		FROM financial_snapshots WHERE user_id = $1
		ORDER BY created_at DESC, id DESC LIMIT 1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select latest snapshot for user %s: %w", userID, err)
	}

	expenses, err := amounts(row.Expenses)
	if err != nil {
		return nil, fmt.Errorf("decode expenses for snapshot %s: %w", row.ID, err)
	}
	investments, err := amounts(row.Investments)
	if err != nil {
		return nil, fmt.Errorf("decode investments for snapshot %s: %w", row.ID, err)
	}
	return &models.FinancialSnapshot{
		ID:          parseID(row.ID),
		UserID:      parseID(row.UserID),
		Income:      row.Income,
		Expenses:    expenses,
		Savings:     row.Savings,
		Investments: investments,
		CreatedAt:   row.CreatedAt.UTC(),
	}, nil
}

func nonNil(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}
