package scenario

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bilancio/internal/buckets"
	"bilancio/internal/core"
	"bilancio/internal/services"
)

func TestLoad(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "household.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if want := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC); !s.Now.Equal(want) {
		t.Errorf("Now = %v, want %v", s.Now, want)
	}
	if s.Strategy != core.Avalanche || !s.MonthlyBudget.Equal(decimal.NewFromInt(400)) {
		t.Errorf("strategy/budget = %s/%s", s.Strategy, s.MonthlyBudget)
	}

	debts := s.DebtRecords()
	if len(debts) != 2 || !debts[1].RemainingBalance.Equal(decimal.NewFromInt(2500)) {
		t.Errorf("DebtRecords() = %+v, numeric TOML values should decode", debts)
	}

	goals := s.GoalRecords()
	if len(goals) != 1 || goals[0].ID != "goal-1" || goals[0].Deadline == nil {
		t.Fatalf("GoalRecords() = %+v", goals)
	}
	if want := time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC); !goals[0].Deadline.Equal(want) {
		t.Errorf("Deadline = %v, want %v", goals[0].Deadline, want)
	}

	plan := s.CustomPlan()
	if plan == nil || !plan.ExtraPerDebt["card"].Equal(decimal.NewFromInt(60)) {
		t.Errorf("CustomPlan() = %+v", plan)
	}

	fixed := s.LedgerItems(core.KindFixedCost)
	if len(fixed) != 1 || fixed[0].ID != "fixed-1" || fixed[0].Source != core.SourceManual {
		t.Errorf("LedgerItems(fixed_cost) = %+v", fixed)
	}

	txs := s.TransactionRecords()
	if len(txs) != 4 || txs[3].ID != "tx-4" || txs[3].Amount != "-45,50" {
		t.Errorf("TransactionRecords() = %+v", txs)
	}

	ov := s.OverrideRecords()
	if len(ov) != 1 || ov[0].BucketID != buckets.BucketID("rent march street") {
		t.Errorf("OverrideRecords() = %+v", ov)
	}

	opts := s.BucketOptions(s.Now)
	if opts.WindowMonths != 3 || !opts.RecurringThreshold.Equal(decimal.NewFromFloat(0.2)) {
		t.Errorf("BucketOptions() = %+v", opts)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
		target  error
	}{
		{
			name:    "malformed",
			input:   `monthly_budget = `,
			wantErr: "parse toml",
		},
		{
			name:    "unknown key",
			input:   "monthly_budgte = 100\n",
			wantErr: "unknown keys: monthly_budgte",
		},
		{
			name:   "invalid strategy",
			input:  `strategy = "yolo"`,
			target: core.ErrInvalidStrategy,
		},
		{
			name:    "negative debt",
			input:   "[[debts]]\nremaining_balance = -5\nminimum_payment = 1\n",
			wantErr: "debts[0]",
			target:  core.ErrNegativeAmount,
		},
		{
			name:    "bad transaction date",
			input:   "[[transactions]]\ndate = \"soon\"\namount = \"-1\"\ndescription = \"x\"\n",
			wantErr: "transactions[0]",
			target:  core.ErrInvalidDate,
		},
		{
			name:    "override without match",
			input:   "[[overrides]]\nlabel = \"Rent\"\n",
			wantErr: "match is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("Decode() error = nil, want error")
			}
			if tt.wantErr != "" && !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Decode() error = %q, want it to contain %q", err, tt.wantErr)
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("Decode() error = %v, want errors.Is %v", err, tt.target)
			}
		})
	}
}

func TestDecode_Defaults(t *testing.T) {
	s, err := Decode(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Decode(empty) error = %v", err)
	}
	if s.Strategy != core.Snowball {
		t.Errorf("Strategy = %q, want snowball", s.Strategy)
	}
	fallback := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := s.NowOr(fallback); !got.Equal(fallback) {
		t.Errorf("NowOr() = %v, want fallback", got)
	}
	if s.CustomPlan() != nil {
		t.Error("CustomPlan() should be nil without a [plan] table")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want ErrNotExist", err)
	}
}

func TestStore_RunsPlanner(t *testing.T) {
	ctx := context.Background()
	s, err := Load(filepath.Join("testdata", "household.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	st := NewStore(s)

	cfg := services.DefaultRefreshProcessorConfig()
	cfg.Buckets = s.BucketOptions(s.Now)
	res, err := services.NewRefreshProcessor(st, cfg).Refresh(ctx, s.Now)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if res.FixedCosts != 1 || res.Variable != 1 {
		t.Errorf("Refresh() = %+v, want one fixed and one variable bucket", res)
	}

	fixed, _ := st.ListLedger(ctx, core.KindFixedCost)
	if len(fixed) != 2 || fixed[1].Source != core.SourceDetected || fixed[1].Label != "Rent" {
		t.Fatalf("fixed costs after refresh = %+v", fixed)
	}

	planner := services.NewPlanner(st, services.WithBucketOptions(s.BucketOptions(s.Now)))
	snap, err := planner.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	// Detected fixed costs win over the manual estimate.
	if snap.FixedCostSource != core.SourceDetected || !snap.FixedCosts.Equal(decimal.NewFromInt(300)) {
		t.Errorf("snapshot fixed costs = %s (%s), want 300 detected", snap.FixedCosts, snap.FixedCostSource)
	}
	if !snap.TotalDebts.Equal(decimal.NewFromInt(3700)) || !snap.TotalAssets.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("snapshot totals = %+v", snap)
	}

	sim, err := planner.Simulate(ctx, services.SimulationRequest{
		Strategy:      s.Strategy,
		MonthlyBudget: s.MonthlyBudget,
		CustomPlan:    s.CustomPlan(),
	})
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}
	if sim.MonthsToZero == nil {
		t.Errorf("Simulate() MonthsToZero = nil, want a finite payoff")
	}

	// Refresh is idempotent over the in-memory store.
	if _, err := services.NewRefreshProcessor(st, cfg).Refresh(ctx, s.Now); err != nil {
		t.Fatalf("second Refresh() error = %v", err)
	}
	fixed, _ = st.ListLedger(ctx, core.KindFixedCost)
	if len(fixed) != 2 {
		t.Errorf("fixed costs after second refresh = %d, want 2", len(fixed))
	}
}

func TestStore_Writes(t *testing.T) {
	ctx := context.Background()
	st := NewStore(&Scenario{})

	n, _ := st.InsertTransactions(ctx, "b", []core.TransactionRecord{
		{ID: "a", Date: "2025-01-01"}, {ID: "b", Date: "2025-02-01"}, {ID: "a", Date: "2025-01-01"},
	})
	if n != 2 {
		t.Errorf("InsertTransactions() = %d, want 2", n)
	}
	since, _ := st.ListTransactions(ctx, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))
	if len(since) != 1 || since[0].ID != "b" {
		t.Errorf("ListTransactions(since) = %+v", since)
	}

	_ = st.SaveDebt(ctx, core.DebtObligation{ID: "x", RemainingBalance: decimal.NewFromInt(1)})
	_ = st.SaveDebt(ctx, core.DebtObligation{ID: "x", RemainingBalance: decimal.NewFromInt(2)})
	debts, _ := st.ListDebts(ctx)
	if len(debts) != 1 || !debts[0].RemainingBalance.Equal(decimal.NewFromInt(2)) {
		t.Errorf("SaveDebt() upsert = %+v", debts)
	}

	_ = st.SaveLedgerItem(ctx, core.LedgerItem{ID: "i", Kind: core.KindIncome, Label: "Pay", Amount: decimal.NewFromInt(1)})
	income, _ := st.ListLedger(ctx, core.KindIncome)
	if len(income) != 1 || income[0].Source != core.SourceManual {
		t.Errorf("SaveLedgerItem() = %+v", income)
	}
}

func TestStore_LedgerIDs(t *testing.T) {
	ctx := context.Background()
	st := NewStore(&Scenario{})

	if err := st.SaveLedgerItem(ctx, core.LedgerItem{ID: "x", Kind: core.KindIncome, Label: "Pay", Amount: decimal.NewFromInt(1)}); err != nil {
		t.Fatalf("SaveLedgerItem() error = %v", err)
	}
	err := st.SaveLedgerItem(ctx, core.LedgerItem{ID: "x", Kind: core.KindAsset, Label: "Cash", Amount: decimal.NewFromInt(2)})
	if !errors.Is(err, core.ErrIDConflict) {
		t.Errorf("SaveLedgerItem() other kind error = %v, want ErrIDConflict", err)
	}

	item := core.LedgerItem{ID: "bucket-1", Label: "Netflix", Amount: decimal.RequireFromString("12.99")}
	steps := []map[core.LedgerKind][]core.LedgerItem{
		{core.KindFixedCost: nil, core.KindVariable: {item}},
		{core.KindFixedCost: {item}, core.KindVariable: nil},
	}
	for _, step := range steps {
		if err := st.ReplaceDetected(ctx, step); err != nil {
			t.Fatalf("ReplaceDetected() error = %v", err)
		}
	}
	fixed, _ := st.ListLedger(ctx, core.KindFixedCost)
	variable, _ := st.ListLedger(ctx, core.KindVariable)
	if len(fixed) != 1 || fixed[0].ID != "bucket-1" || len(variable) != 0 {
		t.Errorf("after kind move fixed = %+v, variable = %+v", fixed, variable)
	}

	// A manual item keeps its ID.
	if err := st.ReplaceDetected(ctx, map[core.LedgerKind][]core.LedgerItem{core.KindFixedCost: {{ID: "x", Label: "Other"}}}); err != nil {
		t.Fatalf("ReplaceDetected() error = %v", err)
	}
	income, _ := st.ListLedger(ctx, core.KindIncome)
	fixed, _ = st.ListLedger(ctx, core.KindFixedCost)
	if len(income) != 1 || income[0].Label != "Pay" || len(fixed) != 0 {
		t.Errorf("manual collision income = %+v, fixed = %+v", income, fixed)
	}
}
