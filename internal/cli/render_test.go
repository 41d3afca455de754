package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
	"bilancio/internal/payoff"
)

func intPtr(n int) *int { return &n }

func TestRenderTable(t *testing.T) {
	out := RenderTable(Table{
		Title:   "Debts",
		Headers: []string{"Name", "Balance"},
		Rows:    [][]string{{"Card", "1200.00"}, {"Car loan", "9.50"}},
	})

	for _, want := range []string{"Debts", "Name", "Balance", "Card", "Car loan", "1200.00", "╭", "╯"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderTable() missing %q in:\n%s", want, out)
		}
	}
	if got := strings.Count(out, "\n"); got != 7 {
		t.Errorf("RenderTable() lines = %d, want 7 (title, 2 rules, header, 2 rows, bottom)", got)
	}
	if RenderTable(Table{}) != "" {
		t.Error("RenderTable(empty) should be empty")
	}
}

func TestFormatters(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"money", FormatMoney(decimal.RequireFromString("12.5")), "12.50"},
		{"money negative", FormatMoney(decimal.RequireFromString("-3")), "-3.00"},
		{"months", FormatMonths(intPtr(14)), "14"},
		{"months nil", FormatMonths(nil), "never"},
		{"percent", formatPercent(decimal.RequireFromString("0.305")), "30.5%"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestRenderSimulation(t *testing.T) {
	res := core.SimulationResult{
		Strategy:       core.Snowball,
		TotalDebtStart: decimal.NewFromInt(150),
		MonthsToZero:   intPtr(2),
		Schedule: []core.MonthPlan{
			{Month: 1, Paid: decimal.NewFromInt(100), Payments: []core.DebtPayment{
				{DebtID: "a", Paid: decimal.NewFromInt(50), Balance: decimal.Zero},
				{DebtID: "b", Paid: decimal.NewFromInt(50), Balance: decimal.NewFromInt(50)},
			}},
			{Month: 2, Paid: decimal.NewFromInt(50), Payments: []core.DebtPayment{
				{DebtID: "b", Paid: decimal.NewFromInt(50), Balance: decimal.Zero},
			}},
		},
		PaidOffMonth: map[string]int{"a": 1, "b": 2},
	}
	out := RenderSimulation(res, map[string]string{"a": "Card"})

	for _, want := range []string{"SNOWBALL", "150.00", "Paid off", "Card", "Schedule", "50.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderSimulation() missing %q", want)
		}
	}
}

func TestRenderOthers(t *testing.T) {
	cmp := payoff.Comparison{
		Results: []core.SimulationResult{{Strategy: core.Snowball}, {Strategy: core.Avalanche, MonthsToZero: intPtr(3)}},
		Best:    core.Avalanche,
	}
	if out := RenderComparison(cmp); !strings.Contains(out, "best") || !strings.Contains(out, "never") {
		t.Errorf("RenderComparison() = %s", out)
	}

	out := RenderBuckets([]core.Bucket{{Label: "Netflix", Type: core.BucketFixed, Recurring: true, UserLocked: true, TransactionCount: 3}})
	if !strings.Contains(out, "Netflix *") || !strings.Contains(out, "1 found") {
		t.Errorf("RenderBuckets() = %s", out)
	}

	done := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	out = RenderProjections(
		[]core.Goal{{ID: "g", Label: "Holiday"}},
		[]core.GoalProjection{{GoalID: "g", MonthsToTarget: intPtr(6), ProjectedCompletion: &done}},
	)
	if !strings.Contains(out, "Holiday") || !strings.Contains(out, "2025-09") {
		t.Errorf("RenderProjections() = %s", out)
	}

	buffer := decimal.NewFromInt(3)
	out = RenderSnapshot(core.FinancialSnapshot{
		NetIncome: decimal.NewFromInt(1000), FixedCosts: decimal.NewFromInt(300),
		FixedCostSource: core.SourceDetected, FixedCostPressure: decimal.RequireFromString("0.3"),
		BufferMonths: &buffer,
	})
	for _, want := range []string{"Fixed costs (detected)", "300.00", "30.0%", "3.0"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderSnapshot() missing %q", want)
		}
	}
}
