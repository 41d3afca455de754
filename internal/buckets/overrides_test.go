package buckets

import (
	"testing"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

func TestApplyOverrides(t *testing.T) {
	derived := Derive(fixture(), Options{Now: now})
	groceries := find(t, derived, "Groceries")

	label := "Food"
	typ := core.BucketFixed
	avg := decimal.NewFromInt(250)
	recurring := true
	overrides := []core.BucketOverride{
		{BucketID: groceries.ID, Label: &label},
		{BucketID: groceries.ID, Label: &label, Type: &typ, MonthlyAverage: &avg, Recurring: &recurring},
		{BucketID: "missing"},
	}

	got := ApplyOverrides(derived, overrides)
	if len(got) != len(derived) {
		t.Fatalf("len = %d, want %d", len(got), len(derived))
	}

	food := find(t, got, "Food")
	if !food.UserLocked {
		t.Errorf("overridden bucket should be UserLocked")
	}
	if food.Type != core.BucketFixed || !food.Recurring || !food.MonthlyAverage.Equal(avg) {
		t.Errorf("override not applied: %+v", food)
	}
	// Derived fields are kept.
	if !food.LastAmount.Equal(groceries.LastAmount) || food.TransactionCount != groceries.TransactionCount {
		t.Errorf("derived fields changed: %+v", food)
	}

	for _, b := range got {
		if b.ID != groceries.ID && b.UserLocked {
			t.Errorf("%s locked without an override", b.Label)
		}
	}

	// Input is untouched.
	if find(t, derived, "Groceries").UserLocked {
		t.Errorf("ApplyOverrides mutated its input")
	}
	got[0].SampleTransactionIDs[0] = "changed"
	if derived[0].SampleTransactionIDs[0] == "changed" {
		t.Errorf("ApplyOverrides shares sample slices with its input")
	}
}

func TestSumTotals(t *testing.T) {
	buckets := []core.Bucket{
		{Type: core.BucketIncome, MonthlyAverage: decimal.NewFromInt(2000)},
		{Type: core.BucketFixed, MonthlyAverage: decimal.NewFromInt(700)},
		{Type: core.BucketFixed, MonthlyAverage: decimal.RequireFromString("49.99")},
		{Type: core.BucketVariable, MonthlyAverage: decimal.NewFromInt(300)},
		{Type: core.BucketOther, MonthlyAverage: decimal.NewFromInt(1000)},
	}
	got := SumTotals(buckets)
	if !got.Income.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("Income = %s, want 2000", got.Income)
	}
	if !got.Fixed.Equal(decimal.RequireFromString("749.99")) {
		t.Errorf("Fixed = %s, want 749.99", got.Fixed)
	}
	if !got.Variable.Equal(decimal.NewFromInt(300)) {
		t.Errorf("Variable = %s, want 300", got.Variable)
	}
}

func TestLedgerItems(t *testing.T) {
	derived := Derive(fixture(), Options{Now: now})

	fixed := FixedCostItems(derived)
	if len(fixed) != 1 || fixed[0].Label != "Netflix" {
		t.Fatalf("FixedCostItems() = %+v, want Netflix only", fixed)
	}
	if fixed[0].Kind != core.KindFixedCost || fixed[0].Source != core.SourceDetected {
		t.Errorf("unexpected kind/source: %+v", fixed[0])
	}

	variable := VariableItems(derived)
	if len(variable) != 2 {
		t.Fatalf("VariableItems() = %+v, want 2 items", variable)
	}
	for _, v := range variable {
		if v.Kind != core.KindVariable {
			t.Errorf("Kind = %s, want variable", v.Kind)
		}
	}
}
