package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"bilancio/internal/buckets"
	"bilancio/internal/cache"
	"bilancio/internal/core"
	"bilancio/internal/goals"
	"bilancio/internal/log"
	"bilancio/internal/payoff"
	"bilancio/internal/snapshot"
)

// SimulationRequest is the input of a payoff run. Nil Debts means the stored debts.
type SimulationRequest struct {
	Strategy      core.Strategy         `json:"strategy"`
	MonthlyBudget decimal.Decimal       `json:"monthlyBudget"`
	Debts         []core.DebtObligation `json:"debts,omitempty"`
	CustomPlan    *core.CustomPlan      `json:"customPlan,omitempty"`
}

type PlannerStore interface {
	DebtStore
	GoalStore
	TransactionStore
	OverrideStore
	ListLedger(ctx context.Context, kind core.LedgerKind) ([]core.LedgerItem, error)
}

// Planner runs the engine over stored records. Simulation and comparison
// results are memoized by request content when caches are set.
type Planner struct {
	store       PlannerStore
	results     cache.Cache[core.SimulationResult]
	comparisons cache.Cache[payoff.Comparison]
	bucketOpts  buckets.Options
}

type PlannerOption func(*Planner)

func WithResultCache(c cache.Cache[core.SimulationResult]) PlannerOption {
	return func(p *Planner) { p.results = c }
}

func WithComparisonCache(c cache.Cache[payoff.Comparison]) PlannerOption {
	return func(p *Planner) { p.comparisons = c }
}

func WithBucketOptions(o buckets.Options) PlannerOption {
	return func(p *Planner) { p.bucketOpts = o }
}

func NewPlanner(store PlannerStore, opts ...PlannerOption) *Planner {
	p := &Planner{store: store}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Planner) debtsFor(ctx context.Context, req SimulationRequest) ([]core.DebtObligation, error) {
	if req.Debts != nil {
		for i, d := range req.Debts {
			if err := d.Validate(); err != nil {
				return nil, fmt.Errorf("debt %d: %w", i, err)
			}
		}
		return req.Debts, nil
	}
	debts, err := p.store.ListDebts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}
	return debts, nil
}

// Simulate runs one strategy. Unknown strategies are rejected with core.ErrInvalidStrategy.
func (p *Planner) Simulate(ctx context.Context, req SimulationRequest) (core.SimulationResult, error) {
	if req.Strategy == "" {
		req.Strategy = core.Snowball
	}
	if !req.Strategy.Valid() {
		return core.SimulationResult{}, fmt.Errorf("%w: %q", core.ErrInvalidStrategy, req.Strategy)
	}
	debts, err := p.debtsFor(ctx, req)
	if err != nil {
		return core.SimulationResult{}, err
	}

	key := requestKey("sim", req.Strategy, req.MonthlyBudget, debts, req.CustomPlan)
	if p.results != nil {
		if res, ok := p.results.Get(key); ok {
			slog.DebugContext(ctx, "Simulation served from cache", log.FieldComponent, log.ComponentPlanner, log.FieldCacheHit, true)
			return res, nil
		}
	}

	res := payoff.Simulate(debts, req.MonthlyBudget, req.Strategy, req.CustomPlan)
	if p.results != nil {
		p.results.Set(key, res)
	}

	fields := log.NewFields().
		WithComponent(log.ComponentPlanner).
		WithOperation(log.OpSimulate).
		WithSimulation(string(req.Strategy), req.MonthlyBudget, len(debts), res.MonthsToZero)
	slog.InfoContext(ctx, "Simulation complete", fields.ToSlice()...)
	return res, nil
}

// Compare runs every heuristic strategy over the same debts and budget.
func (p *Planner) Compare(ctx context.Context, req SimulationRequest) (payoff.Comparison, error) {
	debts, err := p.debtsFor(ctx, req)
	if err != nil {
		return payoff.Comparison{}, err
	}

	key := requestKey("cmp", "", req.MonthlyBudget, debts, req.CustomPlan)
	if p.comparisons != nil {
		if cmp, ok := p.comparisons.Get(key); ok {
			return cmp, nil
		}
	}

	cmp := payoff.Compare(debts, req.MonthlyBudget, req.CustomPlan)
	if p.comparisons != nil {
		p.comparisons.Set(key, cmp)
	}

	slog.InfoContext(ctx, "Strategy comparison complete",
		log.FieldComponent, log.ComponentPlanner,
		log.FieldOperation, log.OpCompare,
		log.FieldDebtCount, len(debts),
		"best", cmp.Best)
	return cmp, nil
}

// Buckets derives buckets from stored transactions with overrides applied.
// A window of zero uses the configured window.
func (p *Planner) Buckets(ctx context.Context, now time.Time, window int) ([]core.Bucket, error) {
	opts := p.bucketOpts
	opts.Now = now
	if window > 0 {
		opts.WindowMonths = window
	}
	if opts.WindowMonths <= 0 {
		opts.WindowMonths = buckets.DefaultWindowMonths
	}

	var (
		txs       []core.TransactionRecord
		overrides []core.BucketOverride
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = p.store.ListTransactions(gctx, core.AddMonths(now, -(opts.WindowMonths-1)))
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		overrides, err = p.store.ListOverrides(gctx)
		if err != nil {
			return fmt.Errorf("list bucket overrides: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return buckets.ApplyOverrides(buckets.Derive(txs, opts), overrides), nil
}

// Projections projects every stored goal as of now.
func (p *Planner) Projections(ctx context.Context, now time.Time) ([]core.GoalProjection, error) {
	gs, err := p.store.ListGoals(ctx)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return goals.ProjectAll(gs, now), nil
}

// Snapshot aggregates every stored collection. The loads run concurrently.
func (p *Planner) Snapshot(ctx context.Context) (core.FinancialSnapshot, error) {
	var (
		in    snapshot.Inputs
		fixed []core.LedgerItem
	)

	g, gctx := errgroup.WithContext(ctx)
	ledger := func(kind core.LedgerKind, dst *[]core.LedgerItem) func() error {
		return func() error {
			items, err := p.store.ListLedger(gctx, kind)
			if err != nil {
				return fmt.Errorf("list %s items: %w", kind, err)
			}
			*dst = items
			return nil
		}
	}
	g.Go(ledger(core.KindIncome, &in.Income))
	g.Go(ledger(core.KindFixedCost, &fixed))
	g.Go(ledger(core.KindVariable, &in.Variable))
	g.Go(ledger(core.KindAsset, &in.Assets))
	g.Go(func() error {
		debts, err := p.store.ListDebts(gctx)
		if err != nil {
			return fmt.Errorf("list debts: %w", err)
		}
		in.Debts = debts
		return nil
	})
	g.Go(func() error {
		gs, err := p.store.ListGoals(gctx)
		if err != nil {
			return fmt.Errorf("list goals: %w", err)
		}
		in.Goals = gs
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.FinancialSnapshot{}, err
	}

	for _, it := range fixed {
		if it.Source == core.SourceDetected {
			in.DetectedFixedCosts = append(in.DetectedFixedCosts, it)
		} else {
			in.FixedCosts = append(in.FixedCosts, it)
		}
	}

	snap := snapshot.Aggregate(in)
	slog.DebugContext(ctx, "Snapshot aggregated",
		log.FieldComponent, log.ComponentPlanner,
		log.FieldOperation, log.OpSnapshot,
		"fixed_cost_source", snap.FixedCostSource)
	return snap, nil
}

func requestKey(prefix string, strategy core.Strategy, budget decimal.Decimal, debts []core.DebtObligation, plan *core.CustomPlan) string {
	raw, _ := json.Marshal(struct {
		Strategy core.Strategy         `json:"s"`
		Budget   string                `json:"b"`
		Debts    []core.DebtObligation `json:"d"`
		Plan     *core.CustomPlan      `json:"p"`
	}{strategy, budget.String(), debts, plan})
	sum := sha256.Sum256(raw)
	return prefix + ":" + hex.EncodeToString(sum[:])
}
