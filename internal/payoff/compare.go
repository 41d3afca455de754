package payoff

import (
	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

// Heuristics are the built-in strategies Compare runs, in tie-break order.
var Heuristics = []core.Strategy{core.Snowball, core.Avalanche, core.Balanced}

// Comparison holds one result per heuristic and the one that finishes first.
type Comparison struct {
	Results []core.SimulationResult `json:"results"`
	Best    core.Strategy           `json:"best"`
}

// Compare simulates the same debts under every heuristic. A nil MonthsToZero
// ranks after any finite value; ties keep the Heuristics order. The plan's
// PriorityOrder would make every run identical, so only its minimum
// overrides and budget override are applied.
func Compare(debts []core.DebtObligation, monthlyBudget decimal.Decimal, plan *core.CustomPlan) Comparison {
	var runPlan *core.CustomPlan
	if plan != nil {
		runPlan = &core.CustomPlan{
			ExtraPerDebt:          plan.ExtraPerDebt,
			MonthlyBudgetOverride: plan.MonthlyBudgetOverride,
		}
	}

	cmp := Comparison{Results: make([]core.SimulationResult, 0, len(Heuristics))}
	bestIdx := -1
	for i, s := range Heuristics {
		res := Simulate(debts, monthlyBudget, s, runPlan)
		cmp.Results = append(cmp.Results, res)
		if bestIdx < 0 || finishesBefore(res.MonthsToZero, cmp.Results[bestIdx].MonthsToZero) {
			bestIdx = i
		}
	}
	cmp.Best = Heuristics[bestIdx]
	return cmp
}

func finishesBefore(a, b *int) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return *a < *b
	}
}
