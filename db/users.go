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

const userColumns = `id, username, email, password, annual_income, monthly_expenses,
	current_savings, financial_goals, risk_tolerance, onboarding_completed, created_at, updated_at`

type userRow struct {
	ID                  string         `db:"id"`
	Username            string         `db:"username"`
	Email               string         `db:"email"`
	Password            string         `db:"password"`
	AnnualIncome        float64        `db:"annual_income"`
	MonthlyExpenses     types.JSONText `db:"monthly_expenses"`
	CurrentSavings      float64        `db:"current_savings"`
	FinancialGoals      types.JSONText `db:"financial_goals"`
	RiskTolerance       string         `db:"risk_tolerance"`
	OnboardingCompleted bool           `db:"onboarding_completed"`
	CreatedAt           time.Time      `db:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at"`
}

func (r *userRow) user() (*models.User, error) {
	expenses, err := amounts(r.MonthlyExpenses)
	if err != nil {
		return nil, fmt.Errorf("decode monthly_expenses for user %s: %w", r.ID, err)
	}
	goals := []models.FinancialGoal{}
	if len(r.FinancialGoals) > 0 {
		if err := r.FinancialGoals.Unmarshal(&goals); err != nil {
			return nil, fmt.Errorf("decode financial_goals for user %s: %w", r.ID, err)
		}
	}
	return &models.User{
		ID:           parseID(r.ID),
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.Password,
		FinancialProfile: models.FinancialProfile{
			AnnualIncome:    r.AnnualIncome,
			MonthlyExpenses: expenses,
			CurrentSavings:  r.CurrentSavings,
			FinancialGoals:  goals,
			RiskTolerance:   models.RiskTolerance(r.RiskTolerance),
		},
		OnboardingCompleted: r.OnboardingCompleted,
		CreatedAt:           r.CreatedAt.UTC(),
		UpdatedAt:           r.UpdatedAt.UTC(),
	}, nil
}

func profileJSON(p models.FinancialProfile) (expenses, goals string, err error) {
	if p.MonthlyExpenses == nil {
		p.MonthlyExpenses = map[string]float64{}
	}
	if p.FinancialGoals == nil {
		p.FinancialGoals = []models.FinancialGoal{}
	}
	if expenses, err = toJSON(p.MonthlyExpenses); err != nil {
		return "", "", err
	}
	if goals, err = toJSON(p.FinancialGoals); err != nil {
		return "", "", err
	}
	return expenses, goals, nil
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	expenses, goals, err := profileJSON(user.FinancialProfile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		user.ID.Hex(), user.Username, user.Email, user.PasswordHash,
		user.AnnualIncome, expenses, user.CurrentSavings, goals, string(user.RiskTolerance),
		user.OnboardingCompleted, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return wrapWrite("insert user", err)
	}
	return nil
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE `+where+` = $1`, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select user by %s: %w", where, err)
	}
	return row.user()
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	if !validID(userID) {
		return nil, nil
	}
	return s.getUser(ctx, "id", userID)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "email", email)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUser(ctx, "username", username)
}

// UpdateProfile overwrites the profile columns in one statement. The
// onboarding flag is only ever set, never cleared.
func (s *Store) UpdateProfile(ctx context.Context, userID string, profile models.FinancialProfile, completeOnboarding bool) (*models.User, error) {
	if !validID(userID) {
		return nil, nil
	}
	expenses, goals, err := profileJSON(profile)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}

	var row userRow
	err = s.db.GetContext(ctx, &row, `UPDATE users SET
			annual_income = $2, monthly_expenses = $3, current_savings = $4,
			financial_goals = $5, risk_tolerance = $6,
			onboarding_completed = onboarding_completed OR $7, updated_at = $8
		WHERE id = $1
		RETURNING `+userColumns,
		userID, profile.AnnualIncome, expenses, profile.CurrentSavings,
		goals, string(profile.RiskTolerance), completeOnboarding, s.now().UTC())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update profile for user %s: %w", userID, err)
	}
	return row.user()
}
