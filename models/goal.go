package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type GoalType string

const (
	GoalTypeRetirement   GoalType = "retirement"
	GoalTypeHomePurchase GoalType = "homePurchase"
	GoalTypeEducation    GoalType = "education"
	GoalTypeOther        GoalType = "other"
)

func (t GoalType) Valid() bool {
	switch t {
	case GoalTypeRetirement, GoalTypeHomePurchase, GoalTypeEducation, GoalTypeOther:
		return true
	}
	return false
}

type Goal struct {
	ID            bson.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        bson.ObjectID `bson:"user" json:"user"`
	Type          GoalType      `bson:"type" json:"type"`
	TargetAmount  float64       `bson:"target_amount" json:"targetAmount"`
	CurrentAmount float64       `bson:"current_amount" json:"currentAmount"`
	TargetDate    time.Time     `bson:"target_date" json:"targetDate"`
	Progress      float64       `bson:"progress" json:"progress"`
	Strategy      string        `bson:"strategy" json:"strategy"`
	CreatedAt     time.Time     `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time     `bson:"updated_at" json:"updatedAt"`
}

// RecomputeProgress sets Progress from the current amounts. It must run after
// any change to TargetAmount or CurrentAmount.
func (g *Goal) RecomputeProgress() {
	g.Progress = Progress(g.CurrentAmount, g.TargetAmount)
}

// Progress returns current/target*100. A non-positive target yields 0.
func Progress(current, target float64) float64 {
	if target <= 0 {
		return 0
	}
	return decimal.NewFromFloat(current).
		Div(decimal.NewFromFloat(target)).
		Mul(decimal.NewFromInt(100)).
		InexactFloat64()
}
