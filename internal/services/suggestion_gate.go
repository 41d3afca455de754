package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"bilancio/internal/core"
	"bilancio/internal/log"
)

type SuggestionTarget string

const (
	TargetDebts      SuggestionTarget = "debts"
	TargetGoals      SuggestionTarget = "goals"
	TargetFixedCosts SuggestionTarget = "fixed_costs"
)

// DefaultMinConfidence is the lowest confidence a suggestion may carry.
const DefaultMinConfidence = 0.6

// Suggestion is a candidate record proposed by an assistant. Only the record
// matching Target is read.
type Suggestion struct {
	Target     SuggestionTarget     `json:"target"`
	Confidence float64              `json:"confidence"`
	Debt       *core.DebtObligation `json:"debt,omitempty"`
	Goal       *core.Goal           `json:"goal,omitempty"`
	FixedCost  *core.LedgerItem     `json:"fixedCost,omitempty"`
}

// Rejection reasons
const (
	ReasonLowConfidence = "low_confidence"
	ReasonListNotEmpty  = "list_not_empty"
	ReasonMissingRecord = "missing_record"
	ReasonInvalidRecord = "invalid_record"
	ReasonUnknownTarget = "unknown_target"
	ReasonIDConflict    = "id_conflict"
)

type SuggestionOutcome struct {
	Index   int              `json:"index"`
	Target  SuggestionTarget `json:"target"`
	Applied bool             `json:"applied"`
	ID      string           `json:"id,omitempty"`
	Reason  string           `json:"reason,omitempty"`
}

type SuggestionStore interface {
	DebtStore
	GoalStore
	ListLedger(ctx context.Context, kind core.LedgerKind) ([]core.LedgerItem, error)
	SaveLedgerItem(ctx context.Context, it core.LedgerItem) error
}

// SuggestionGate applies suggestions only to lists the user has not started
// filling, and only when the assistant is confident enough.
type SuggestionGate struct {
	store         SuggestionStore
	minConfidence float64
}

// NewSuggestionGate builds a gate. A minConfidence outside [0, 1] uses DefaultMinConfidence.
func NewSuggestionGate(store SuggestionStore, minConfidence float64) *SuggestionGate {
	if minConfidence < 0 || minConfidence > 1 {
		minConfidence = DefaultMinConfidence
	}
	return &SuggestionGate{store: store, minConfidence: minConfidence}
}

// Apply judges every suggestion against the list state before the call, so
// several suggestions for one empty list are all applied.
func (g *SuggestionGate) Apply(ctx context.Context, suggestions []Suggestion) ([]SuggestionOutcome, error) {
	empty, err := g.emptyTargets(ctx, suggestions)
	if err != nil {
		return nil, err
	}

	outcomes := make([]SuggestionOutcome, 0, len(suggestions))
	applied := 0
	for i, s := range suggestions {
		out := SuggestionOutcome{Index: i, Target: s.Target}
		switch {
		case !knownTarget(s.Target):
			out.Reason = ReasonUnknownTarget
		case s.Confidence < g.minConfidence:
			out.Reason = ReasonLowConfidence
		case !empty[s.Target]:
			out.Reason = ReasonListNotEmpty
		default:
			id, reason, err := g.save(ctx, s)
			if err != nil {
				return outcomes, fmt.Errorf("apply suggestion %d: %w", i, err)
			}
			out.ID, out.Reason = id, reason
			out.Applied = reason == ""
		}
		if out.Applied {
			applied++
		}
		outcomes = append(outcomes, out)
	}

	slog.InfoContext(ctx, "Suggestions processed",
		log.FieldComponent, log.ComponentPlanner,
		log.FieldOperation, log.OpSuggest,
		"received", len(suggestions),
		"applied", applied)
	return outcomes, nil
}

func knownTarget(t SuggestionTarget) bool {
	switch t {
	case TargetDebts, TargetGoals, TargetFixedCosts:
		return true
	}
	return false
}

// emptyTargets loads each targeted list once. Detected fixed costs do not
// count as the user having started the list.
func (g *SuggestionGate) emptyTargets(ctx context.Context, suggestions []Suggestion) (map[SuggestionTarget]bool, error) {
	empty := make(map[SuggestionTarget]bool)
	for _, s := range suggestions {
		if _, seen := empty[s.Target]; seen || !knownTarget(s.Target) {
			continue
		}
		var n int
		switch s.Target {
		case TargetDebts:
			debts, err := g.store.ListDebts(ctx)
			if err != nil {
				return nil, fmt.Errorf("list debts: %w", err)
			}
			n = len(debts)
		case TargetGoals:
			gs, err := g.store.ListGoals(ctx)
			if err != nil {
				return nil, fmt.Errorf("list goals: %w", err)
			}
			n = len(gs)
		case TargetFixedCosts:
			items, err := g.store.ListLedger(ctx, core.KindFixedCost)
			if err != nil {
				return nil, fmt.Errorf("list fixed costs: %w", err)
			}
			for _, it := range items {
				if it.Source != core.SourceDetected {
					n++
				}
			}
		}
		empty[s.Target] = n == 0
	}
	return empty, nil
}

// save stores the suggested record. A non-empty reason means the record was
// unusable; err is reserved for storage failures.
func (g *SuggestionGate) save(ctx context.Context, s Suggestion) (id, reason string, err error) {
	switch s.Target {
	case TargetDebts:
		if s.Debt == nil {
			return "", ReasonMissingRecord, nil
		}
		d := *s.Debt
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		if d.Validate() != nil {
			return "", ReasonInvalidRecord, nil
		}
		return d.ID, "", g.store.SaveDebt(ctx, d)
	case TargetGoals:
		if s.Goal == nil {
			return "", ReasonMissingRecord, nil
		}
		goal := *s.Goal
		if goal.ID == "" {
			goal.ID = uuid.NewString()
		}
		if goal.Validate() != nil {
			return "", ReasonInvalidRecord, nil
		}
		return goal.ID, "", g.store.SaveGoal(ctx, goal)
	case TargetFixedCosts:
		if s.FixedCost == nil {
			return "", ReasonMissingRecord, nil
		}
		it := *s.FixedCost
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		it.Kind = core.KindFixedCost
		it.Source = core.SourceManual
		if it.Validate() != nil {
			return "", ReasonInvalidRecord, nil
		}
		if err := g.store.SaveLedgerItem(ctx, it); err != nil {
			if errors.Is(err, core.ErrIDConflict) {
				return "", ReasonIDConflict, nil
			}
			return "", "", err
		}
		return it.ID, "", nil
	}
	return "", ReasonUnknownTarget, nil
}
