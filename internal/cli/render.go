package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"bilancio/internal/core"
	"bilancio/internal/payoff"
)

var (
	colorBorder = lipgloss.Color("#575653")
	colorText   = lipgloss.Color("#FFFCF0")
	colorAccent = lipgloss.Color("#3AA99F")
	colorGreen  = lipgloss.Color("#879A39")
	colorOrange = lipgloss.Color("#DA702C")
	colorRed    = lipgloss.Color("#D14D41")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorText).Align(lipgloss.Center)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	valueStyle  = lipgloss.NewStyle().Foreground(colorText)
	dimStyle    = lipgloss.NewStyle().Foreground(colorBorder)
	goodStyle   = lipgloss.NewStyle().Foreground(colorGreen)
	warnStyle   = lipgloss.NewStyle().Foreground(colorOrange)
	badStyle    = lipgloss.NewStyle().Foreground(colorRed)
)

// Table is a bordered text table. Every column after the first is right-aligned.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// RenderTitle renders a centered title in a rounded box.
func RenderTitle(title string) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Width(55).
		Align(lipgloss.Center).
		Padding(0, 1)
	return box.Render(titleStyle.Render(title))
}

// RenderTable renders t with box-drawing borders.
func RenderTable(t Table) string {
	numCols := len(t.Headers)
	if numCols == 0 && len(t.Rows) > 0 {
		numCols = len(t.Rows[0])
	}
	if numCols == 0 {
		return ""
	}

	widths := make([]int, numCols)
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i := 0; i < numCols && i < len(row); i++ {
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  " + headerStyle.Render(t.Title) + "\n")
	}

	rule := func(left, mid, right string) {
		b.WriteString(dimStyle.Render(left))
		for i, w := range widths {
			b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render(mid))
			}
		}
		b.WriteString(dimStyle.Render(right) + "\n")
	}
	line := func(cells []string, style lipgloss.Style) {
		b.WriteString(dimStyle.Render("│"))
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			pad := strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
			if i == 0 {
				b.WriteString(style.Render(" " + cell + pad + " "))
			} else {
				b.WriteString(style.Render(" " + pad + cell + " "))
			}
			if i < numCols-1 {
				b.WriteString(dimStyle.Render("│"))
			}
		}
		b.WriteString(dimStyle.Render("│") + "\n")
	}

	rule("╭", "┬", "╮")
	if len(t.Headers) > 0 {
		line(t.Headers, headerStyle)
		rule("├", "┼", "┤")
	}
	for _, row := range t.Rows {
		line(row, valueStyle)
	}
	rule("╰", "┴", "╯")
	return b.String()
}

// FormatMoney renders an amount with two decimals.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatMonths renders a months-to-zero value; nil means never within the cap.
func FormatMonths(m *int) string {
	if m == nil {
		return "never"
	}
	return strconv.Itoa(*m)
}

func formatPercent(ratio decimal.Decimal) string {
	return ratio.Mul(decimal.NewFromInt(100)).StringFixed(1) + "%"
}

// RenderSimulation renders the headline numbers and the month-by-month schedule.
func RenderSimulation(res core.SimulationResult, labels map[string]string) string {
	var b strings.Builder
	b.WriteString(RenderTitle("PAYOFF PLAN  " + strings.ToUpper(string(res.Strategy))))
	b.WriteString("\n\n")

	months := FormatMonths(res.MonthsToZero)
	if res.MonthsToZero == nil {
		months = badStyle.Render(months)
	} else {
		months = goodStyle.Render(months)
	}
	summary := Table{
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Total debt", FormatMoney(res.TotalDebtStart)},
			{"Remaining after plan", FormatMoney(res.TotalDebtRemaining)},
			{"Monthly pressure now", FormatMoney(res.MonthlyPressureNow)},
			{"Free room now", FormatMoney(res.FreeRoomNow)},
			{"Months to zero", months},
		},
	}
	b.WriteString(RenderTable(summary))

	if len(res.PaidOffMonth) > 0 {
		paid := Table{Title: "Paid off", Headers: []string{"Debt", "Month"}}
		for _, m := range res.Schedule {
			for _, p := range m.Payments {
				if res.PaidOffMonth[p.DebtID] == m.Month {
					paid.Rows = append(paid.Rows, []string{labelFor(p.DebtID, labels), strconv.Itoa(m.Month)})
				}
			}
		}
		b.WriteString("\n" + RenderTable(paid))
	}

	if len(res.Schedule) > 0 {
		sched := Table{Title: "Schedule", Headers: []string{"Month", "Paid", "Free room", "Remaining"}}
		for _, m := range res.Schedule {
			remaining := decimal.Zero
			for _, p := range m.Payments {
				remaining = remaining.Add(p.Balance)
			}
			sched.Rows = append(sched.Rows, []string{
				strconv.Itoa(m.Month), FormatMoney(m.Paid), FormatMoney(m.FreeRoom), FormatMoney(remaining),
			})
		}
		b.WriteString("\n" + RenderTable(sched))
	}
	return b.String()
}

func labelFor(id string, labels map[string]string) string {
	if l, ok := labels[id]; ok && l != "" {
		return l
	}
	return id
}

// RenderComparison renders one row per heuristic and marks the best.
func RenderComparison(cmp payoff.Comparison) string {
	t := Table{Headers: []string{"Strategy", "Months", "Pressure now", "Remaining", ""}}
	for _, r := range cmp.Results {
		mark := ""
		if r.Strategy == cmp.Best {
			mark = goodStyle.Render("best")
		}
		t.Rows = append(t.Rows, []string{
			string(r.Strategy), FormatMonths(r.MonthsToZero), FormatMoney(r.MonthlyPressureNow),
			FormatMoney(r.TotalDebtRemaining), mark,
		})
	}
	return RenderTitle("STRATEGY COMPARISON") + "\n\n" + RenderTable(t)
}

// RenderBuckets renders derived buckets, largest first as given.
func RenderBuckets(bs []core.Bucket) string {
	t := Table{Headers: []string{"Bucket", "Type", "Monthly", "Last", "Count", "Recurring"}}
	for _, bk := range bs {
		recurring := ""
		if bk.Recurring {
			recurring = "yes"
		}
		label := bk.Label
		if bk.UserLocked {
			label += " *"
		}
		t.Rows = append(t.Rows, []string{
			label, string(bk.Type), FormatMoney(bk.MonthlyAverage), FormatMoney(bk.LastAmount),
			strconv.Itoa(bk.TransactionCount), recurring,
		})
	}
	return RenderTitle(fmt.Sprintf("SPENDING BUCKETS  %d found", len(bs))) + "\n\n" + RenderTable(t)
}

// RenderProjections renders goal projections next to their goals.
func RenderProjections(gs []core.Goal, projs []core.GoalProjection) string {
	labels := make(map[string]string, len(gs))
	for _, g := range gs {
		labels[g.ID] = g.Label
	}
	t := Table{Headers: []string{"Goal", "Remaining", "Months", "Per month", "Done by"}}
	for _, p := range projs {
		done := "-"
		if p.ProjectedCompletion != nil {
			done = p.ProjectedCompletion.Format("2006-01")
		}
		t.Rows = append(t.Rows, []string{
			labelFor(p.GoalID, labels), FormatMoney(p.Remaining), FormatMonths(p.MonthsToTarget),
			FormatMoney(p.PressurePerMonth), done,
		})
	}
	return RenderTitle("GOAL PROJECTIONS") + "\n\n" + RenderTable(t)
}

// RenderSnapshot renders the financial snapshot. Fixed-cost pressure above
// half of income is highlighted.
func RenderSnapshot(s core.FinancialSnapshot) string {
	pressure := formatPercent(s.FixedCostPressure)
	switch {
	case s.FixedCostPressure.GreaterThan(decimal.NewFromFloat(0.7)):
		pressure = badStyle.Render(pressure)
	case s.FixedCostPressure.GreaterThan(decimal.NewFromFloat(0.5)):
		pressure = warnStyle.Render(pressure)
	}
	buffer := "-"
	if s.BufferMonths != nil {
		buffer = s.BufferMonths.StringFixed(1)
	}
	t := Table{
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Net income", FormatMoney(s.NetIncome)},
			{"Fixed costs (" + string(s.FixedCostSource) + ")", FormatMoney(s.FixedCosts)},
			{"Variable spending", FormatMoney(s.VariableSpending)},
			{"Free cash", FormatMoney(s.FreeCash)},
			{"Fixed-cost pressure", pressure},
			{"Total debts", FormatMoney(s.TotalDebts)},
			{"Total assets", FormatMoney(s.TotalAssets)},
			{"Buffer months", buffer},
			{"Goals", strconv.Itoa(s.GoalsCount)},
		},
	}
	return RenderTitle("FINANCIAL SNAPSHOT") + "\n\n" + RenderTable(t)
}
