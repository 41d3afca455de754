package payoff

import (
	"testing"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		name   string
		debts  []core.DebtObligation
		budget int64
		want   core.Strategy
	}{
		{
			// Snowball wastes 90 in month one finishing the small debt.
			name:   "avalanche wins",
			debts:  []core.DebtObligation{debt("A", 940, 0), debt("B", 10, 5)},
			budget: 100,
			want:   core.Avalanche,
		},
		{
			name:   "tie keeps snowball",
			debts:  []core.DebtObligation{debt("A", 500, 10), debt("B", 100, 10)},
			budget: 120,
			want:   core.Snowball,
		},
		{
			name:   "nothing finishes",
			debts:  []core.DebtObligation{debt("A", 500, 10)},
			budget: 0,
			want:   core.Snowball,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmp := Compare(tt.debts, d(tt.budget), nil)
			if len(cmp.Results) != len(Heuristics) {
				t.Fatalf("len(Results) = %d, want %d", len(cmp.Results), len(Heuristics))
			}
			for i, r := range cmp.Results {
				if r.Strategy != Heuristics[i] {
					t.Errorf("Results[%d].Strategy = %s, want %s", i, r.Strategy, Heuristics[i])
				}
			}
			if cmp.Best != tt.want {
				t.Errorf("Best = %s, want %s", cmp.Best, tt.want)
			}
		})
	}
}

func TestCompare_AvalancheMonths(t *testing.T) {
	cmp := Compare([]core.DebtObligation{debt("A", 940, 0), debt("B", 10, 5)}, d(100), nil)
	want := map[core.Strategy]int{core.Snowball: 11, core.Avalanche: 10, core.Balanced: 11}
	for _, r := range cmp.Results {
		if months(r) != want[r.Strategy] {
			t.Errorf("%s: MonthsToZero = %d, want %d", r.Strategy, months(r), want[r.Strategy])
		}
	}
}

func TestCompare_IgnoresPriorityOrder(t *testing.T) {
	debts := []core.DebtObligation{debt("A", 500, 10), debt("B", 100, 10)}
	budget := decimal.NewFromInt(120)
	plan := &core.CustomPlan{PriorityOrder: []string{"A"}, MonthlyBudgetOverride: &budget}
	cmp := Compare(debts, decimal.Zero, plan)
	if cmp.Results[0].PaidOffMonth["B"] != 1 {
		t.Errorf("snowball should still clear B in month 1, got %d", cmp.Results[0].PaidOffMonth["B"])
	}
}
