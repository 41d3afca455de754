package services

import (
	"context"
	"testing"

	"bilancio/internal/core"
)

func TestSuggestionGate_Apply(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	if err := store.SaveGoal(ctx, core.Goal{ID: "existing", Type: core.GoalSavings, TargetAmount: d("100")}); err != nil {
		t.Fatalf("SaveGoal() error = %v", err)
	}
	// Detected items do not count as a started list.
	if err := store.SaveLedgerItem(ctx, core.LedgerItem{ID: "det", Kind: core.KindFixedCost, Label: "Gym", Amount: d("30"), Source: core.SourceDetected}); err != nil {
		t.Fatalf("SaveLedgerItem() error = %v", err)
	}

	gate := NewSuggestionGate(store, 0.6)
	suggestions := []Suggestion{
		{Target: TargetDebts, Confidence: 0.9, Debt: &core.DebtObligation{Label: "Card", RemainingBalance: d("800"), MinimumPayment: d("25")}},
		{Target: TargetDebts, Confidence: 0.6, Debt: &core.DebtObligation{ID: "loan", Label: "Loan", RemainingBalance: d("2000"), MinimumPayment: d("80")}},
		{Target: TargetDebts, Confidence: 0.59, Debt: &core.DebtObligation{ID: "weak", RemainingBalance: d("1")}},
		{Target: TargetGoals, Confidence: 0.95, Goal: &core.Goal{ID: "new", Type: core.GoalSavings, TargetAmount: d("10")}},
		{Target: TargetFixedCosts, Confidence: 0.8, FixedCost: &core.LedgerItem{Label: "Rent", Amount: d("900")}},
		{Target: TargetFixedCosts, Confidence: 0.8},
		{Target: TargetDebts, Confidence: 0.9, Debt: &core.DebtObligation{ID: "neg", RemainingBalance: d("-1")}},
		{Target: "pets", Confidence: 1},
	}

	outcomes, err := gate.Apply(ctx, suggestions)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	tests := []struct {
		index   int
		applied bool
		reason  string
	}{
		{0, true, ""},
		{1, true, ""},
		{2, false, ReasonLowConfidence},
		{3, false, ReasonListNotEmpty},
		{4, true, ""},
		{5, false, ReasonMissingRecord},
		{6, false, ReasonInvalidRecord},
		{7, false, ReasonUnknownTarget},
	}
	if len(outcomes) != len(tests) {
		t.Fatalf("len(outcomes) = %d, want %d", len(outcomes), len(tests))
	}
	for _, tt := range tests {
		got := outcomes[tt.index]
		if got.Applied != tt.applied || got.Reason != tt.reason {
			t.Errorf("outcome[%d] = %+v, want applied=%v reason=%q", tt.index, got, tt.applied, tt.reason)
		}
	}
	if outcomes[0].ID == "" || outcomes[1].ID != "loan" {
		t.Errorf("applied IDs = %q, %q, want generated and loan", outcomes[0].ID, outcomes[1].ID)
	}

	debts, _ := store.ListDebts(ctx)
	if len(debts) != 2 {
		t.Errorf("stored debts = %d, want 2", len(debts))
	}
	fixed, _ := store.ListLedger(ctx, core.KindFixedCost)
	if len(fixed) != 2 {
		t.Errorf("fixed cost items = %d, want detected plus suggested", len(fixed))
	}

	// The debt list is no longer empty, so a second round is refused.
	outcomes, err = gate.Apply(ctx, suggestions[:1])
	if err != nil {
		t.Fatalf("Apply() second round error = %v", err)
	}
	if outcomes[0].Applied || outcomes[0].Reason != ReasonListNotEmpty {
		t.Errorf("second round outcome = %+v, want list_not_empty", outcomes[0])
	}
}

func TestNewSuggestionGate_DefaultConfidence(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0.75, 0.75},
		{0, 0},
		{-1, DefaultMinConfidence},
		{1.5, DefaultMinConfidence},
	}
	for _, tt := range tests {
		if got := NewSuggestionGate(nil, tt.in).minConfidence; got != tt.want {
			t.Errorf("NewSuggestionGate(%v).minConfidence = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSuggestionGate_IDConflict(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	if err := store.SaveLedgerItem(ctx, core.LedgerItem{ID: "pay", Kind: core.KindIncome, Label: "Salary", Amount: d("2500")}); err != nil {
		t.Fatalf("SaveLedgerItem() error = %v", err)
	}
	if err := store.ReplaceDetected(ctx, map[core.LedgerKind][]core.LedgerItem{
		core.KindFixedCost: {{ID: "det", Label: "Gym", Amount: d("30")}},
	}); err != nil {
		t.Fatalf("ReplaceDetected() error = %v", err)
	}

	gate := NewSuggestionGate(store, 0.5)
	outcomes, err := gate.Apply(ctx, []Suggestion{
		{Target: TargetFixedCosts, Confidence: 0.9, FixedCost: &core.LedgerItem{ID: "pay", Label: "Rent", Amount: d("900")}},
		{Target: TargetFixedCosts, Confidence: 0.9, FixedCost: &core.LedgerItem{ID: "det", Label: "Gym", Amount: d("35")}},
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	for i, out := range outcomes {
		if out.Applied || out.Reason != ReasonIDConflict {
			t.Errorf("outcome[%d] = %+v, want reason %q", i, out, ReasonIDConflict)
		}
	}

	income, _ := store.ListLedger(ctx, core.KindIncome)
	if len(income) != 1 || income[0].Label != "Salary" {
		t.Errorf("income after conflict = %+v, want the salary untouched", income)
	}
	fixed, _ := store.ListLedger(ctx, core.KindFixedCost)
	if len(fixed) != 1 || fixed[0].Source != core.SourceDetected || !fixed[0].Amount.Equal(d("30")) {
		t.Errorf("fixed after conflict = %+v, want the detected gym untouched", fixed)
	}
}
