package models

import (
	"fmt"
	"math"
	"strings"
)

// Normalize validates the profile in place: amounts must be finite and
// non-negative, goal tags are deduplicated and an empty risk tolerance
// becomes medium.
func (p *FinancialProfile) Normalize() error {
	if err := checkAmount("annualIncome", p.AnnualIncome); err != nil {
		return err
	}
	if err := checkAmount("currentSavings", p.CurrentSavings); err != nil {
		return err
	}

	expenses := make(map[string]float64, len(p.MonthlyExpenses))
	for category, amount := range p.MonthlyExpenses {
		category = strings.TrimSpace(category)
		if category == "" {
			return fmt.Errorf("monthlyExpenses: category name cannot be empty")
		}
		if err := checkAmount("monthlyExpenses."+category, amount); err != nil {
			return err
		}
		expenses[category] = amount
	}
	p.MonthlyExpenses = expenses

	seen := make(map[FinancialGoal]bool, len(p.FinancialGoals))
	goals := make([]FinancialGoal, 0, len(p.FinancialGoals))
	for _, g := range p.FinancialGoals {
		if !g.Valid() {
			return fmt.Errorf("financialGoals: unknown goal %q", g)
		}
		if seen[g] {
			continue
		}
		seen[g] = true
		goals = append(goals, g)
	}
	p.FinancialGoals = goals

	if p.RiskTolerance == "" {
		p.RiskTolerance = RiskMedium
	}
	if !p.RiskTolerance.Valid() {
		return fmt.Errorf("riskTolerance: must be one of low, medium, high")
	}
	return nil
}

func checkAmount(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s: must be a finite number", field)
	}
	if v < 0 {
		return fmt.Errorf("%s: must not be negative", field)
	}
	return nil
}
