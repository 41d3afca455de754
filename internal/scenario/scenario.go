// Package scenario reads "what if" TOML files for bilancioctl and serves
// their records as an in-memory store.
package scenario

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"

	"bilancio/internal/buckets"
	"bilancio/internal/core"
)

// Scenario is one decoded file. Money accepts TOML strings or numbers;
// dates are TOML local dates.
type Scenario struct {
	Now           time.Time       `toml:"now"`
	Strategy      core.Strategy   `toml:"strategy"`
	MonthlyBudget decimal.Decimal `toml:"monthly_budget"`

	Plan    *Plan          `toml:"plan"`
	Buckets BucketSettings `toml:"buckets"`

	Debts        []Debt        `toml:"debts"`
	Goals        []Goal        `toml:"goals"`
	Income       []Item        `toml:"income"`
	FixedCosts   []Item        `toml:"fixed_costs"`
	Variable     []Item        `toml:"variable"`
	Assets       []Item        `toml:"assets"`
	Transactions []Transaction `toml:"transactions"`
	Overrides    []Override    `toml:"overrides"`
}

type Plan struct {
	PriorityOrder         []string                   `toml:"priority_order"`
	ExtraPerDebt          map[string]decimal.Decimal `toml:"extra_per_debt"`
	MonthlyBudgetOverride *decimal.Decimal           `toml:"monthly_budget_override"`
}

type BucketSettings struct {
	WindowMonths       int     `toml:"window_months"`
	RecurringThreshold float64 `toml:"recurring_threshold"`
}

type Debt struct {
	ID               string          `toml:"id"`
	Label            string          `toml:"label"`
	RemainingBalance decimal.Decimal `toml:"remaining_balance"`
	MinimumPayment   decimal.Decimal `toml:"minimum_payment"`
}

type Goal struct {
	ID                  string          `toml:"id"`
	Type                core.GoalType   `toml:"type"`
	Label               string          `toml:"label"`
	TargetAmount        decimal.Decimal `toml:"target_amount"`
	CurrentAmount       decimal.Decimal `toml:"current_amount"`
	MonthlyContribution decimal.Decimal `toml:"monthly_contribution"`
	Deadline            *time.Time      `toml:"deadline"`
	LinkedBuckets       []string        `toml:"linked_buckets"`
}

type Item struct {
	ID     string          `toml:"id"`
	Label  string          `toml:"label"`
	Amount decimal.Decimal `toml:"amount"`
}

// Transaction keeps date and amount as written; bucketing parses them.
type Transaction struct {
	ID           string `toml:"id"`
	Date         string `toml:"date"`
	Amount       string `toml:"amount"`
	Description  string `toml:"description"`
	Counterparty string `toml:"counterparty"`
	AccountID    string `toml:"account_id"`
}

// Override edits the bucket whose transactions match Match, a description
// as it appears on the statement.
type Override struct {
	Match          string           `toml:"match"`
	Label          *string          `toml:"label"`
	Type           *core.BucketType `toml:"type"`
	MonthlyAverage *decimal.Decimal `toml:"monthly_average"`
	Recurring      *bool            `toml:"recurring"`
}

// Load decodes and validates the scenario at path.
func Load(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()

	s, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return s, nil
}

// Decode reads a scenario. Unknown keys are an error so typos do not
// silently drop records.
func Decode(r io.Reader) (*Scenario, error) {
	var s Scenario
	md, err := toml.NewDecoder(r).Decode(&s)
	if err != nil {
		return nil, fmt.Errorf("parse toml: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}

	s.normalize()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// normalize fills generated IDs and moves local dates to UTC midnight.
func (s *Scenario) normalize() {
	if s.Strategy == "" {
		s.Strategy = core.Snowball
	}
	if !s.Now.IsZero() {
		s.Now = utcDate(s.Now)
	}
	for i := range s.Debts {
		if s.Debts[i].ID == "" {
			s.Debts[i].ID = fmt.Sprintf("debt-%d", i+1)
		}
	}
	for i := range s.Goals {
		if s.Goals[i].ID == "" {
			s.Goals[i].ID = fmt.Sprintf("goal-%d", i+1)
		}
		if s.Goals[i].Deadline != nil {
			d := utcDate(*s.Goals[i].Deadline)
			s.Goals[i].Deadline = &d
		}
	}
	fillItemIDs(s.Income, "income")
	fillItemIDs(s.FixedCosts, "fixed")
	fillItemIDs(s.Variable, "variable")
	fillItemIDs(s.Assets, "asset")
	for i := range s.Transactions {
		if s.Transactions[i].ID == "" {
			s.Transactions[i].ID = fmt.Sprintf("tx-%d", i+1)
		}
	}
}

func fillItemIDs(items []Item, prefix string) {
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = fmt.Sprintf("%s-%d", prefix, i+1)
		}
	}
}

func utcDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Validate checks every record and reports all problems at once.
func (s *Scenario) Validate() error {
	var errs []error
	add := func(section string, i int, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s[%d]: %w", section, i, err))
		}
	}

	if !s.Strategy.Valid() {
		errs = append(errs, fmt.Errorf("strategy %q: %w", s.Strategy, core.ErrInvalidStrategy))
	}
	if s.MonthlyBudget.IsNegative() {
		errs = append(errs, fmt.Errorf("monthly_budget: %w", core.ErrNegativeAmount))
	}
	if s.Buckets.WindowMonths < 0 || s.Buckets.WindowMonths > 60 {
		errs = append(errs, fmt.Errorf("buckets.window_months %d: must be between 1 and 60 when set", s.Buckets.WindowMonths))
	}
	if s.Buckets.RecurringThreshold < 0 || s.Buckets.RecurringThreshold > 1 {
		errs = append(errs, fmt.Errorf("buckets.recurring_threshold %v: must be in (0, 1]", s.Buckets.RecurringThreshold))
	}

	for i, d := range s.DebtRecords() {
		add("debts", i, d.Validate())
	}
	for i, g := range s.GoalRecords() {
		add("goals", i, g.Validate())
	}
	for _, kind := range []core.LedgerKind{core.KindIncome, core.KindFixedCost, core.KindVariable, core.KindAsset} {
		for i, it := range s.LedgerItems(kind) {
			add(sectionFor(kind), i, it.Validate())
		}
	}
	for i, tx := range s.TransactionRecords() {
		add("transactions", i, tx.Validate())
	}
	for i, o := range s.Overrides {
		if strings.TrimSpace(o.Match) == "" {
			add("overrides", i, errors.New("match is required"))
			continue
		}
		add("overrides", i, s.override(o).Validate())
	}
	return errors.Join(errs...)
}

func sectionFor(kind core.LedgerKind) string {
	switch kind {
	case core.KindIncome:
		return "income"
	case core.KindFixedCost:
		return "fixed_costs"
	case core.KindVariable:
		return "variable"
	default:
		return "assets"
	}
}

func (s *Scenario) DebtRecords() []core.DebtObligation {
	out := make([]core.DebtObligation, len(s.Debts))
	for i, d := range s.Debts {
		out[i] = core.DebtObligation{
			ID:               d.ID,
			Label:            d.Label,
			RemainingBalance: d.RemainingBalance,
			MinimumPayment:   d.MinimumPayment,
		}
	}
	return out
}

func (s *Scenario) GoalRecords() []core.Goal {
	out := make([]core.Goal, len(s.Goals))
	for i, g := range s.Goals {
		out[i] = core.Goal{
			ID:                  g.ID,
			Type:                g.Type,
			Label:               g.Label,
			TargetAmount:        g.TargetAmount,
			CurrentAmount:       g.CurrentAmount,
			MonthlyContribution: g.MonthlyContribution,
			Deadline:            g.Deadline,
			LinkedBucketIDs:     g.LinkedBuckets,
		}
	}
	return out
}

// LedgerItems returns the manual items of kind.
func (s *Scenario) LedgerItems(kind core.LedgerKind) []core.LedgerItem {
	var src []Item
	switch kind {
	case core.KindIncome:
		src = s.Income
	case core.KindFixedCost:
		src = s.FixedCosts
	case core.KindVariable:
		src = s.Variable
	case core.KindAsset:
		src = s.Assets
	}
	out := make([]core.LedgerItem, len(src))
	for i, it := range src {
		out[i] = core.LedgerItem{ID: it.ID, Kind: kind, Label: it.Label, Amount: it.Amount, Source: core.SourceManual}
	}
	return out
}

func (s *Scenario) TransactionRecords() []core.TransactionRecord {
	out := make([]core.TransactionRecord, len(s.Transactions))
	for i, tx := range s.Transactions {
		out[i] = core.TransactionRecord(tx)
	}
	return out
}

// OverrideRecords resolves each Match to its bucket ID.
func (s *Scenario) OverrideRecords() []core.BucketOverride {
	out := make([]core.BucketOverride, len(s.Overrides))
	for i, o := range s.Overrides {
		out[i] = s.override(o)
	}
	return out
}

func (s *Scenario) override(o Override) core.BucketOverride {
	key := buckets.GroupKey(core.TransactionRecord{Description: o.Match})
	return core.BucketOverride{
		BucketID:       buckets.BucketID(key),
		Label:          o.Label,
		Type:           o.Type,
		MonthlyAverage: o.MonthlyAverage,
		Recurring:      o.Recurring,
	}
}

// CustomPlan returns nil when the file has no [plan] table.
func (s *Scenario) CustomPlan() *core.CustomPlan {
	if s.Plan == nil {
		return nil
	}
	return &core.CustomPlan{
		PriorityOrder:         s.Plan.PriorityOrder,
		ExtraPerDebt:          s.Plan.ExtraPerDebt,
		MonthlyBudgetOverride: s.Plan.MonthlyBudgetOverride,
	}
}

// BucketOptions returns deriver options as of now. Unset fields keep the
// deriver defaults.
func (s *Scenario) BucketOptions(now time.Time) buckets.Options {
	opts := buckets.Options{Now: now, WindowMonths: s.Buckets.WindowMonths}
	if s.Buckets.RecurringThreshold > 0 {
		opts.RecurringThreshold = decimal.NewFromFloat(s.Buckets.RecurringThreshold)
	}
	return opts
}

// NowOr returns the scenario date, or fallback when the file sets none.
func (s *Scenario) NowOr(fallback time.Time) time.Time {
	if s.Now.IsZero() {
		return fallback
	}
	return s.Now
}
