package snapshot

import (
	"testing"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

func item(kind core.LedgerKind, amount string) core.LedgerItem {
	return core.LedgerItem{ID: string(kind) + amount, Kind: kind, Label: "x", Amount: decimal.RequireFromString(amount)}
}

func TestAggregate_FixedCostPrecedence(t *testing.T) {
	tests := []struct {
		name       string
		manual     []core.LedgerItem
		detected   []core.LedgerItem
		want       string
		wantSource core.LedgerSource
	}{
		{"detected wins", []core.LedgerItem{item(core.KindFixedCost, "500")}, []core.LedgerItem{item(core.KindFixedCost, "300")}, "300", core.SourceDetected},
		{"no detected", []core.LedgerItem{item(core.KindFixedCost, "500")}, nil, "500", core.SourceManual},
		{"zero detected", []core.LedgerItem{item(core.KindFixedCost, "500")}, []core.LedgerItem{item(core.KindFixedCost, "0")}, "500", core.SourceManual},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Aggregate(Inputs{FixedCosts: tt.manual, DetectedFixedCosts: tt.detected})
			if !s.FixedCosts.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("FixedCosts = %s, want %s", s.FixedCosts, tt.want)
			}
			if s.FixedCostSource != tt.wantSource {
				t.Errorf("FixedCostSource = %s, want %s", s.FixedCostSource, tt.wantSource)
			}
		})
	}
}

func TestAggregate_Totals(t *testing.T) {
	s := Aggregate(Inputs{
		Income:     []core.LedgerItem{item(core.KindIncome, "2000"), item(core.KindIncome, "500")},
		FixedCosts: []core.LedgerItem{item(core.KindFixedCost, "1000")},
		Variable:   []core.LedgerItem{item(core.KindVariable, "320.50")},
		Debts: []core.DebtObligation{
			{ID: "a", RemainingBalance: decimal.NewFromInt(4000)},
			{ID: "b", RemainingBalance: decimal.NewFromInt(600)},
		},
		Assets: []core.LedgerItem{item(core.KindAsset, "3000")},
		Goals:  []core.Goal{{ID: "1"}, {ID: "2"}, {ID: "3"}},
	})

	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"NetIncome", s.NetIncome, "2500"},
		{"FixedCosts", s.FixedCosts, "1000"},
		{"VariableSpending", s.VariableSpending, "320.5"},
		{"FreeCash", s.FreeCash, "1500"},
		{"FixedCostPressure", s.FixedCostPressure, "0.4"},
		{"TotalDebts", s.TotalDebts, "4600"},
		{"TotalAssets", s.TotalAssets, "3000"},
	}
	for _, c := range checks {
		if !c.got.Equal(decimal.RequireFromString(c.want)) {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}
	if s.BufferMonths == nil || !s.BufferMonths.Equal(decimal.NewFromInt(3)) {
		t.Errorf("BufferMonths = %v, want 3", s.BufferMonths)
	}
	if s.GoalsCount != 3 {
		t.Errorf("GoalsCount = %d, want 3", s.GoalsCount)
	}
}

func TestAggregate_BufferNullSafety(t *testing.T) {
	tests := []struct {
		name   string
		in     Inputs
		isNull bool
	}{
		{"no fixed costs", Inputs{Assets: []core.LedgerItem{item(core.KindAsset, "1000")}}, true},
		{"no assets", Inputs{FixedCosts: []core.LedgerItem{item(core.KindFixedCost, "100")}}, true},
		{"both", Inputs{FixedCosts: []core.LedgerItem{item(core.KindFixedCost, "100")}, Assets: []core.LedgerItem{item(core.KindAsset, "250")}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Aggregate(tt.in)
			if (s.BufferMonths == nil) != tt.isNull {
				t.Errorf("BufferMonths = %v, want null=%v", s.BufferMonths, tt.isNull)
			}
		})
	}
}

func TestAggregate_PressureClamp(t *testing.T) {
	tests := []struct {
		name   string
		income string
		fixed  string
		want   string
		free   string
	}{
		{"over income", "100", "1000", "2", "-900"},
		{"no income", "0", "1000", "0", "-1000"},
		{"normal", "1000", "250", "0.25", "750"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Aggregate(Inputs{
				Income:     []core.LedgerItem{item(core.KindIncome, tt.income)},
				FixedCosts: []core.LedgerItem{item(core.KindFixedCost, tt.fixed)},
			})
			if !s.FixedCostPressure.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("FixedCostPressure = %s, want %s", s.FixedCostPressure, tt.want)
			}
			if !s.FreeCash.Equal(decimal.RequireFromString(tt.free)) {
				t.Errorf("FreeCash = %s, want %s", s.FreeCash, tt.free)
			}
		})
	}
}

func TestAggregate_Empty(t *testing.T) {
	s := Aggregate(Inputs{})
	if !s.NetIncome.IsZero() || !s.FreeCash.IsZero() || s.BufferMonths != nil || s.GoalsCount != 0 {
		t.Fatalf("unexpected empty snapshot: %+v", s)
	}
}
