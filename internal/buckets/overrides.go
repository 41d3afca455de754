package buckets

import (
	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

// ApplyOverrides returns a copy of buckets with user overrides merged in.
// Overridden buckets are marked UserLocked; derived fields are not recomputed.
// When several overrides target one bucket the last one wins.
func ApplyOverrides(buckets []core.Bucket, overrides []core.BucketOverride) []core.Bucket {
	byID := make(map[string]core.BucketOverride, len(overrides))
	for _, o := range overrides {
		byID[o.BucketID] = o
	}

	out := make([]core.Bucket, len(buckets))
	for i, b := range buckets {
		b.SampleTransactionIDs = append([]string(nil), b.SampleTransactionIDs...)
		if o, ok := byID[b.ID]; ok {
			if o.Label != nil {
				b.Label = *o.Label
			}
			if o.Type != nil {
				b.Type = *o.Type
			}
			if o.MonthlyAverage != nil {
				b.MonthlyAverage = *o.MonthlyAverage
			}
			if o.Recurring != nil {
				b.Recurring = *o.Recurring
			}
			b.UserLocked = true
		}
		out[i] = b
	}
	return out
}

// Totals sums MonthlyAverage per bucket type. Other buckets are left out.
type Totals struct {
	Income   decimal.Decimal `json:"income"`
	Fixed    decimal.Decimal `json:"fixed"`
	Variable decimal.Decimal `json:"variable"`
}

func SumTotals(buckets []core.Bucket) Totals {
	t := Totals{Income: decimal.Zero, Fixed: decimal.Zero, Variable: decimal.Zero}
	for _, b := range buckets {
		switch b.Type {
		case core.BucketIncome:
			t.Income = t.Income.Add(b.MonthlyAverage)
		case core.BucketFixed:
			t.Fixed = t.Fixed.Add(b.MonthlyAverage)
		case core.BucketVariable:
			t.Variable = t.Variable.Add(b.MonthlyAverage)
		}
	}
	return t
}

// FixedCostItems turns fixed buckets into detected ledger items for the snapshot.
func FixedCostItems(buckets []core.Bucket) []core.LedgerItem {
	var items []core.LedgerItem
	for _, b := range buckets {
		if b.Type != core.BucketFixed {
			continue
		}
		items = append(items, core.LedgerItem{
			ID:     b.ID,
			Kind:   core.KindFixedCost,
			Label:  b.Label,
			Amount: b.MonthlyAverage,
			Source: core.SourceDetected,
		})
	}
	return items
}

// VariableItems turns variable buckets into ledger items.
func VariableItems(buckets []core.Bucket) []core.LedgerItem {
	var items []core.LedgerItem
	for _, b := range buckets {
		if b.Type != core.BucketVariable {
			continue
		}
		items = append(items, core.LedgerItem{
			ID:     b.ID,
			Kind:   core.KindVariable,
			Label:  b.Label,
			Amount: b.MonthlyAverage,
			Source: core.SourceDetected,
		})
	}
	return items
}
