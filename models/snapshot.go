package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// FinancialSnapshot is a point-in-time record of a user's finances. Snapshots
// are append-only; the dashboard shows the latest one.
type FinancialSnapshot struct {
	ID          bson.ObjectID      `bson:"_id,omitempty" json:"id"`
	UserID      bson.ObjectID      `bson:"user" json:"user"`
	Income      float64            `bson:"income" json:"income"`
	Expenses    map[string]float64 `bson:"expenses" json:"expenses"`
	Savings     float64            `bson:"savings" json:"savings"`
	Investments map[string]float64 `bson:"investments" json:"investments"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
}

type SnapshotSummary struct {
	TotalExpenses    float64 `json:"totalExpenses"`
	TotalInvestments float64 `json:"totalInvestments"`
	NetWorth         float64 `json:"netWorth"`
}

func (s *FinancialSnapshot) Summary() SnapshotSummary {
	expenses := sum(s.Expenses)
	investments := sum(s.Investments)
	return SnapshotSummary{
		TotalExpenses:    expenses.InexactFloat64(),
		TotalInvestments: investments.InexactFloat64(),
		NetWorth:         decimal.NewFromFloat(s.Savings).Add(investments).InexactFloat64(),
	}
}

func sum(m map[string]float64) decimal.Decimal {
	total := decimal.Zero
	for _, v := range m {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total
}
