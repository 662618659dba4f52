package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgress(t *testing.T) {
	assert.Equal(t, 25.0, Progress(250, 1000))
	assert.Equal(t, 50.0, Progress(500, 1000))
	assert.Equal(t, 150.0, Progress(1500, 1000))
	assert.Equal(t, 0.0, Progress(0, 1000))
	assert.Equal(t, 0.0, Progress(10, 0))
}

func TestRecomputeProgress(t *testing.T) {
	g := &Goal{TargetAmount: 1000, CurrentAmount: 250}
	g.RecomputeProgress()
	assert.Equal(t, 25.0, g.Progress)

	g.CurrentAmount = 500
	g.RecomputeProgress()
	assert.Equal(t, 50.0, g.Progress)
}

func TestWindow(t *testing.T) {
	var msgs []Message
	for i := 0; i < 13; i++ {
		msgs = append(msgs, Message{Role: RoleUser, Content: fmt.Sprint(i)})
	}

	w := Window(msgs, ContextWindow)
	require.Len(t, w, ContextWindow)
	assert.Equal(t, "3", w[0].Content)
	assert.Equal(t, "12", w[9].Content)

	assert.Len(t, Window(msgs[:4], ContextWindow), 4)
}

func TestProfileNormalize(t *testing.T) {
	p := FinancialProfile{
		AnnualIncome:    85000,
		MonthlyExpenses: map[string]float64{" housing ": 1500, "food": 400},
		CurrentSavings:  12000,
		FinancialGoals:  []FinancialGoal{FinancialGoalRetirement, FinancialGoalInvestment, FinancialGoalRetirement},
	}
	require.NoError(t, p.Normalize())

	assert.Equal(t, map[string]float64{"housing": 1500, "food": 400}, p.MonthlyExpenses)
	assert.Equal(t, []FinancialGoal{FinancialGoalRetirement, FinancialGoalInvestment}, p.FinancialGoals)
	assert.Equal(t, RiskMedium, p.RiskTolerance)
}

func TestProfileNormalizeRejects(t *testing.T) {
	tests := []struct {
		name    string
		profile FinancialProfile
		want    string
	}{
		{"negative income", FinancialProfile{AnnualIncome: -1}, "annualIncome"},
		{"negative savings", FinancialProfile{CurrentSavings: -5}, "currentSavings"},
		{"negative expense", FinancialProfile{MonthlyExpenses: map[string]float64{"rent": -10}}, "monthlyExpenses.rent"},
		{"blank category", FinancialProfile{MonthlyExpenses: map[string]float64{"  ": 10}}, "category name"},
		{"unknown goal", FinancialProfile{FinancialGoals: []FinancialGoal{"yacht"}}, "unknown goal"},
		{"bad risk", FinancialProfile{RiskTolerance: "extreme"}, "riskTolerance"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.Normalize()
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestSnapshotSummary(t *testing.T) {
	s := &FinancialSnapshot{
		Income:      5000,
		Expenses:    map[string]float64{"rent": 1200.10, "food": 300.20},
		Savings:     10000,
		Investments: map[string]float64{"index": 2500.5},
	}
	sum := s.Summary()
	assert.Equal(t, 1500.3, sum.TotalExpenses)
	assert.Equal(t, 2500.5, sum.TotalInvestments)
	assert.Equal(t, 12500.5, sum.NetWorth)
}
