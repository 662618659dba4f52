package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type RiskTolerance string

const (
	RiskLow    RiskTolerance = "low"
	RiskMedium RiskTolerance = "medium"
	RiskHigh   RiskTolerance = "high"
)

func (r RiskTolerance) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// FinancialGoal is one of the tags a user picks during onboarding.
type FinancialGoal string

const (
	FinancialGoalRetirement   FinancialGoal = "retirement"
	FinancialGoalHomePurchase FinancialGoal = "homePurchase"
	FinancialGoalDebtPayoff   FinancialGoal = "debtPayoff"
	FinancialGoalInvestment   FinancialGoal = "investment"
	FinancialGoalOther        FinancialGoal = "other"
)

func (g FinancialGoal) Valid() bool {
	switch g {
	case FinancialGoalRetirement, FinancialGoalHomePurchase, FinancialGoalDebtPayoff,
		FinancialGoalInvestment, FinancialGoalOther:
		return true
	}
	return false
}

// FinancialProfile is the part of a user written by onboarding and profile edits.
type FinancialProfile struct {
	AnnualIncome    float64            `bson:"annual_income" json:"annualIncome"`
	MonthlyExpenses map[string]float64 `bson:"monthly_expenses" json:"monthlyExpenses"`
	CurrentSavings  float64            `bson:"current_savings" json:"currentSavings"`
	FinancialGoals  []FinancialGoal    `bson:"financial_goals" json:"financialGoals"`
	RiskTolerance   RiskTolerance      `bson:"risk_tolerance" json:"riskTolerance"`
}

type User struct {
	ID                  bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Username            string        `bson:"username" json:"username"`
	Email               string        `bson:"email" json:"email"`
	PasswordHash        string        `bson:"password" json:"-"`
	FinancialProfile    `bson:",inline"`
	OnboardingCompleted bool      `bson:"onboarding_completed" json:"onboardingCompleted"`
	CreatedAt           time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt           time.Time `bson:"updated_at" json:"updatedAt"`
}

// NewUser returns a user with the profile defaults applied.
func NewUser(username, email, passwordHash string, now time.Time) *User {
	return &User{
		ID:           bson.NewObjectID(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		FinancialProfile: FinancialProfile{
			MonthlyExpenses: map[string]float64{},
			FinancialGoals:  []FinancialGoal{},
			RiskTolerance:   RiskMedium,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
