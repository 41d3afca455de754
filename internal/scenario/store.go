package scenario

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"bilancio/internal/core"
)

// Store holds a scenario's records in memory. It satisfies the same
// interfaces as the SQLite repository, so the planner and the refresh
// processor run over a file exactly as they run over the database.
type Store struct {
	mu           sync.RWMutex
	debts        []core.DebtObligation
	goals        []core.Goal
	ledger       map[core.LedgerKind][]core.LedgerItem
	transactions []core.TransactionRecord
	overrides    []core.BucketOverride
}

// NewStore copies the scenario records into a fresh store.
func NewStore(s *Scenario) *Store {
	st := &Store{
		debts:        s.DebtRecords(),
		goals:        s.GoalRecords(),
		ledger:       make(map[core.LedgerKind][]core.LedgerItem),
		transactions: s.TransactionRecords(),
		overrides:    s.OverrideRecords(),
	}
	for _, kind := range []core.LedgerKind{core.KindIncome, core.KindFixedCost, core.KindVariable, core.KindAsset} {
		st.ledger[kind] = s.LedgerItems(kind)
	}
	return st
}

func (s *Store) ListDebts(_ context.Context) ([]core.DebtObligation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.debts), nil
}

func (s *Store) SaveDebt(_ context.Context, d core.DebtObligation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debts = upsert(s.debts, d, func(x core.DebtObligation) bool { return x.ID == d.ID })
	return nil
}

func (s *Store) ListGoals(_ context.Context) ([]core.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.goals), nil
}

func (s *Store) SaveGoal(_ context.Context, g core.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals = upsert(s.goals, g, func(x core.Goal) bool { return x.ID == g.ID })
	return nil
}

func (s *Store) ListLedger(_ context.Context, kind core.LedgerKind) ([]core.LedgerItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.ledger[kind]), nil
}

// SaveLedgerItem rejects an ID already held by an item of another kind or
// source with core.ErrIDConflict.
func (s *Store) SaveLedgerItem(_ context.Context, it core.LedgerItem) error {
	if it.Source == "" {
		it.Source = core.SourceManual
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if held, ok := s.findLedger(it.ID); ok && (held.Kind != it.Kind || held.Source != it.Source) {
		return fmt.Errorf("save %s item %s: %w", it.Kind, it.ID, core.ErrIDConflict)
	}
	s.ledger[it.Kind] = upsert(s.ledger[it.Kind], it, func(x core.LedgerItem) bool { return x.ID == it.ID })
	return nil
}

// ReplaceDetected drops the detected items of every kind in detected and
// appends the new ones. A detected item may move between kinds; one whose ID
// is held by a manual item is skipped.
func (s *Store) ReplaceDetected(_ context.Context, detected map[core.LedgerKind][]core.LedgerItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for kind := range detected {
		s.ledger[kind] = slices.DeleteFunc(slices.Clone(s.ledger[kind]), func(x core.LedgerItem) bool {
			return x.Source == core.SourceDetected
		})
	}
	for _, kind := range slices.Sorted(maps.Keys(detected)) {
		for _, it := range detected[kind] {
			if held, ok := s.findLedger(it.ID); ok {
				if held.Source == core.SourceManual {
					continue
				}
				s.ledger[held.Kind] = slices.DeleteFunc(s.ledger[held.Kind], func(x core.LedgerItem) bool { return x.ID == it.ID })
			}
			it.Kind = kind
			it.Source = core.SourceDetected
			s.ledger[kind] = append(s.ledger[kind], it)
		}
	}
	return nil
}

func (s *Store) findLedger(id string) (core.LedgerItem, bool) {
	for _, items := range s.ledger {
		if i := slices.IndexFunc(items, func(x core.LedgerItem) bool { return x.ID == id }); i >= 0 {
			return items[i], true
		}
	}
	return core.LedgerItem{}, false
}

// InsertTransactions skips records whose ID is already present.
func (s *Store) InsertTransactions(_ context.Context, _ string, txs []core.TransactionRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := 0
	for _, tx := range txs {
		if slices.ContainsFunc(s.transactions, func(x core.TransactionRecord) bool { return x.ID == tx.ID }) {
			continue
		}
		s.transactions = append(s.transactions, tx)
		inserted++
	}
	return inserted, nil
}

// ListTransactions returns records dated on or after since. Unparseable
// dates are kept; the deriver skips them.
func (s *Store) ListTransactions(_ context.Context, since time.Time) ([]core.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if since.IsZero() {
		return slices.Clone(s.transactions), nil
	}
	var out []core.TransactionRecord
	for _, tx := range s.transactions {
		if d, err := core.ParseDate(tx.Date); err == nil && d.Before(since) {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func (s *Store) ListOverrides(_ context.Context) ([]core.BucketOverride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.overrides), nil
}

func upsert[T any](list []T, v T, match func(T) bool) []T {
	if i := slices.IndexFunc(list, match); i >= 0 {
		list[i] = v
		return list
	}
	return append(list, v)
}
