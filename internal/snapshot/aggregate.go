// Package snapshot reduces the financial record collections into one summary.
package snapshot

import (
	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

var maxPressure = decimal.NewFromInt(2)

// Inputs are the collections a snapshot is computed from. FixedCosts holds
// manually entered items, DetectedFixedCosts the ones derived from buckets.
type Inputs struct {
	Income             []core.LedgerItem
	FixedCosts         []core.LedgerItem
	DetectedFixedCosts []core.LedgerItem
	Variable           []core.LedgerItem
	Debts              []core.DebtObligation
	Assets             []core.LedgerItem
	Goals              []core.Goal
}

// Aggregate computes the snapshot. A positive detected fixed-cost total takes
// precedence over the manual one.
func Aggregate(in Inputs) core.FinancialSnapshot {
	s := core.FinancialSnapshot{
		NetIncome:         sumItems(in.Income),
		FixedCostSource:   core.SourceManual,
		VariableSpending:  sumItems(in.Variable),
		FixedCostPressure: decimal.Zero,
		TotalAssets:       sumItems(in.Assets),
		GoalsCount:        len(in.Goals),
	}

	s.FixedCosts = sumItems(in.FixedCosts)
	if detected := sumItems(in.DetectedFixedCosts); detected.IsPositive() {
		s.FixedCosts = detected
		s.FixedCostSource = core.SourceDetected
	}

	s.TotalDebts = decimal.Zero
	for _, d := range in.Debts {
		s.TotalDebts = s.TotalDebts.Add(core.NonNegative(d.RemainingBalance))
	}

	s.FreeCash = s.NetIncome.Sub(s.FixedCosts)
	if s.NetIncome.IsPositive() {
		s.FixedCostPressure = core.Clamp(s.FixedCosts.Div(s.NetIncome), decimal.Zero, maxPressure)
	}
	if s.FixedCosts.IsPositive() && s.TotalAssets.IsPositive() {
		buffer := s.TotalAssets.Div(s.FixedCosts)
		s.BufferMonths = &buffer
	}
	return s
}

func sumItems(items []core.LedgerItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(core.NonNegative(it.Amount))
	}
	return total
}
