package payoff

import (
	"sort"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

// MaxMonths bounds a simulation. Reaching it leaves MonthsToZero nil.
const MaxMonths = 600

type debtState struct {
	id        string
	remaining decimal.Decimal
	minimum   decimal.Decimal
}

// Simulate runs the payoff month by month until every balance is zero or
// MaxMonths is reached. The input slice is never modified.
//
// Each month the clamped minimums are paid first, scaled down pro rata when
// the budget cannot cover them. Whatever is left goes to a single target
// chosen by the strategy, or by plan.PriorityOrder when given.
func Simulate(debts []core.DebtObligation, monthlyBudget decimal.Decimal, strategy core.Strategy, plan *core.CustomPlan) core.SimulationResult {
	budget := monthlyBudget
	if plan != nil && plan.MonthlyBudgetOverride != nil {
		budget = *plan.MonthlyBudgetOverride
	}
	budget = core.NonNegative(budget)

	states := make([]*debtState, 0, len(debts))
	for _, d := range debts {
		minimum := d.MinimumPayment
		if plan != nil {
			if override, ok := plan.ExtraPerDebt[d.ID]; ok {
				minimum = override
			}
		}
		states = append(states, &debtState{
			id:        d.ID,
			remaining: core.NonNegative(d.RemainingBalance),
			minimum:   core.NonNegative(minimum),
		})
	}

	result := core.SimulationResult{
		Strategy:           strategy,
		TotalDebtStart:     totalRemaining(states),
		MonthlyPressureNow: decimal.Zero,
		FreeRoomNow:        budget,
		PressureByMonth:    []decimal.Decimal{},
		FreeRoomByMonth:    []decimal.Decimal{},
		PaidOffMonth:       map[string]int{},
	}
	result.TotalDebtRemaining = result.TotalDebtStart

	if result.TotalDebtStart.IsZero() {
		zero := 0
		result.MonthsToZero = &zero
		return result
	}
	if !budget.IsPositive() {
		return result
	}

	orderer, err := GetOrderer(strategy)
	if err != nil {
		orderer = SnowballOrderer{}
	}
	var priority []string
	if plan != nil {
		priority = plan.PriorityOrder
	}

	for month := 1; month <= MaxMonths; month++ {
		active := activeDebts(states)
		if len(active) == 0 {
			break
		}

		payments := payMinimums(active, budget)
		paid := core.Sum(payments...)
		budgetLeft := core.NonNegative(budget.Sub(paid))

		if budgetLeft.IsPositive() {
			for _, idx := range targetOrder(active, orderer, priority) {
				s := active[idx]
				if !s.remaining.IsPositive() {
					continue
				}
				extra := decimal.Min(budgetLeft, s.remaining)
				s.remaining = s.remaining.Sub(extra)
				payments[idx] = payments[idx].Add(extra)
				paid = paid.Add(extra)
				break
			}
		}

		mp := core.MonthPlan{
			Month:    month,
			Payments: make([]core.DebtPayment, 0, len(active)),
			Paid:     paid,
			FreeRoom: budget.Sub(paid),
		}
		for i, s := range active {
			mp.Payments = append(mp.Payments, core.DebtPayment{DebtID: s.id, Paid: payments[i], Balance: s.remaining})
			if !s.remaining.IsPositive() {
				result.PaidOffMonth[s.id] = month
			}
		}

		result.PressureByMonth = append(result.PressureByMonth, mp.Paid)
		result.FreeRoomByMonth = append(result.FreeRoomByMonth, mp.FreeRoom)
		result.Schedule = append(result.Schedule, mp)

		if totalRemaining(states).IsZero() {
			m := month
			result.MonthsToZero = &m
			break
		}
	}

	result.TotalDebtRemaining = totalRemaining(states)
	if len(result.PressureByMonth) > 0 {
		result.MonthlyPressureNow = result.PressureByMonth[0]
		result.FreeRoomNow = result.FreeRoomByMonth[0]
	}
	return result
}

func activeDebts(states []*debtState) []*debtState {
	active := make([]*debtState, 0, len(states))
	for _, s := range states {
		if s.remaining.IsPositive() {
			active = append(active, s)
		}
	}
	return active
}

// payMinimums applies this month's minimum payments and returns them in the
// order of active. When the budget is short every clamped minimum is scaled
// by budget/totalMin; the last debt absorbs the rounding so the month never
// spends more than the budget.
func payMinimums(active []*debtState, budget decimal.Decimal) []decimal.Decimal {
	clamped := make([]decimal.Decimal, len(active))
	for i, s := range active {
		clamped[i] = decimal.Min(s.minimum, s.remaining)
	}
	totalMin := core.Sum(clamped...)

	payments := make([]decimal.Decimal, len(active))
	if budget.GreaterThanOrEqual(totalMin) {
		copy(payments, clamped)
	} else {
		spent := decimal.Zero
		for i := range active {
			var p decimal.Decimal
			if i == len(active)-1 {
				p = core.Clamp(budget.Sub(spent), decimal.Zero, clamped[i])
			} else {
				p = clamped[i].Mul(budget).Div(totalMin).Truncate(2)
			}
			payments[i] = p
			spent = spent.Add(p)
		}
	}

	for i, s := range active {
		s.remaining = s.remaining.Sub(payments[i])
	}
	return payments
}

// targetOrder returns indexes into active in surplus targeting order.
// With a priority list, listed ids come first and the rest follow in input order.
func targetOrder(active []*debtState, orderer Orderer, priority []string) []int {
	order := make([]int, 0, len(active))
	if len(priority) > 0 {
		byID := make(map[string]int, len(active))
		for i, s := range active {
			if _, dup := byID[s.id]; !dup {
				byID[s.id] = i
			}
		}
		used := make(map[int]bool, len(active))
		for _, id := range priority {
			if i, ok := byID[id]; ok && !used[i] {
				order = append(order, i)
				used[i] = true
			}
		}
		for i := range active {
			if !used[i] {
				order = append(order, i)
			}
		}
		return order
	}

	// Ordering uses balances after this month's minimums.
	for i := range active {
		order = append(order, i)
	}
	sort.SliceStable(order, func(x, y int) bool {
		a, b := active[order[x]], active[order[y]]
		return orderer.Less(
			Candidate{ID: a.id, Remaining: a.remaining, Minimum: a.minimum},
			Candidate{ID: b.id, Remaining: b.remaining, Minimum: b.minimum},
		)
	})
	return order
}

func totalRemaining(states []*debtState) decimal.Decimal {
	total := decimal.Zero
	for _, s := range states {
		total = total.Add(s.remaining)
	}
	return total
}
