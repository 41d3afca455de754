// Package goals projects savings and debt goals forward in time.
package goals

import (
	"time"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

// Project computes how far a goal is from its target and the monthly pace
// needed. A deadline later than the current month replaces the stated
// contribution with remaining/monthsLeft.
func Project(goal core.Goal, now time.Time) core.GoalProjection {
	remaining := core.NonNegative(goal.TargetAmount.Sub(goal.CurrentAmount))
	contribution := core.NonNegative(goal.MonthlyContribution)

	p := core.GoalProjection{
		GoalID:           goal.ID,
		Remaining:        remaining,
		PressurePerMonth: contribution,
	}

	if contribution.IsPositive() {
		months := int(remaining.Div(contribution).Ceil().IntPart())
		p.MonthsToTarget = &months
		done := core.AddMonths(now, months)
		p.ProjectedCompletion = &done
	}

	if goal.Deadline != nil {
		if left := core.MonthsBetween(now, *goal.Deadline); left > 0 {
			p.PressurePerMonth = remaining.Div(decimal.NewFromInt(int64(left))).Round(2)
		}
	}
	return p
}

// ProjectAll projects every goal, keeping input order.
func ProjectAll(goals []core.Goal, now time.Time) []core.GoalProjection {
	out := make([]core.GoalProjection, 0, len(goals))
	for _, g := range goals {
		out = append(out, Project(g, now))
	}
	return out
}
