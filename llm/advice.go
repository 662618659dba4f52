package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"fintrack/api/models"
)

const chatInstructions = `Given the user prompt and user profile, answer the user's question. If the question is general, give a general answer.
If the user asks for advice or other help, use the profile to tailor the answer, and build on the earlier conversation. Do not give advice that was not asked for.
Structure the response in Markdown. Do not start the response with "Assistant" or "Response".`

const strategyInstructions = `Given the user's financial profile and goal details, write a personalized strategy to help them reach this goal. Include specific recommendations, potential challenges and actionable steps. Structure the response in Markdown.
Do not address the reader as "Dear Client" and do not leave placeholders such as [User name]. Do not start the response with "Assistant" or "Response".`

// ChatReply answers the last message of history. The profile and area of
// interest go in the system prompt; history is sent as the conversation.
func (c *Client) ChatReply(ctx context.Context, user *models.User, history []models.Message, area string) (string, error) {
	var sb strings.Builder
	writeProfile(&sb, user)
	fmt.Fprintf(&sb, "\nArea of Interest: %s\n\n%s", area, chatInstructions)

	msgs := make([]Message, 0, len(history))
	for _, m := range history {
		msgs = append(msgs, Message{Role: string(m.Role), Content: m.Content})
	}
	return c.Complete(ctx, sb.String(), msgs)
}

func (c *Client) GoalStrategy(ctx context.Context, user *models.User, goal *models.Goal) (string, error) {
	var sb strings.Builder
	writeProfile(&sb, user)
	sb.WriteString("\nGoal Details:\n")
	fmt.Fprintf(&sb, "- Type: %s\n", goal.Type)
	fmt.Fprintf(&sb, "- Target Amount: $%.2f\n", goal.TargetAmount)
	fmt.Fprintf(&sb, "- Current Amount: $%.2f\n", goal.CurrentAmount)
	fmt.Fprintf(&sb, "- Target Date: %s\n\n", goal.TargetDate.Format("January 2, 2006"))
	sb.WriteString(strategyInstructions)

	return c.Complete(ctx, "", []Message{{Role: "user", Content: sb.String()}})
}

func writeProfile(sb *strings.Builder, user *models.User) {
	expenses, err := json.Marshal(user.MonthlyExpenses)
	if err != nil || user.MonthlyExpenses == nil {
		expenses = []byte("{}")
	}
	goals := make([]string, 0, len(user.FinancialGoals))
	for _, g := range user.FinancialGoals {
		goals = append(goals, string(g))
	}

	sb.WriteString("User Profile:\n")
	fmt.Fprintf(sb, "- Annual Income: $%.2f\n", user.AnnualIncome)
	fmt.Fprintf(sb, "- Monthly Expenses: %s\n", expenses)
	fmt.Fprintf(sb, "- Current Savings: $%.2f\n", user.CurrentSavings)
	fmt.Fprintf(sb, "- Financial Goals: %s\n", strings.Join(goals, ", "))
	fmt.Fprintf(sb, "- Risk Tolerance: %s\n", user.RiskTolerance)
}
