// Package payoff simulates month-by-month debt reduction.
//
// This file implements the Strategy Pattern for surplus targeting. Each
// strategy (snowball, avalanche, balanced) has an Orderer that decides which
// debt receives the budget left after minimum payments.
package payoff

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

// Candidate is the view of an active debt an Orderer works with.
type Candidate struct {
	ID        string
	Remaining decimal.Decimal
	Minimum   decimal.Decimal
}

// Orderer is the strategy interface for surplus targeting.
// Less must be a strict weak ordering; equal candidates keep input order.
type Orderer interface {
	Less(a, b Candidate) bool
}

// SnowballOrderer targets the smallest remaining balance first.
type SnowballOrderer struct{}

func (SnowballOrderer) Less(a, b Candidate) bool {
	return a.Remaining.LessThan(b.Remaining)
}

// AvalancheOrderer targets the largest remaining balance first.
type AvalancheOrderer struct{}

func (AvalancheOrderer) Less(a, b Candidate) bool {
	return a.Remaining.GreaterThan(b.Remaining)
}

// BalancedOrderer targets the highest minimum payment first, then the largest balance.
type BalancedOrderer struct{}

func (BalancedOrderer) Less(a, b Candidate) bool {
	if !a.Minimum.Equal(b.Minimum) {
		return a.Minimum.GreaterThan(b.Minimum)
	}
	return a.Remaining.GreaterThan(b.Remaining)
}

var (
	orderersMu sync.RWMutex
	// custom without a priority order behaves like snowball.
	orderers = map[core.Strategy]Orderer{
		core.Snowball:  SnowballOrderer{},
		core.Avalanche: AvalancheOrderer{},
		core.Balanced:  BalancedOrderer{},
		core.Custom:    SnowballOrderer{},
	}
)

// GetOrderer returns the orderer registered for a strategy.
// Returns an error if the strategy is not registered.
func GetOrderer(strategy core.Strategy) (Orderer, error) {
	orderersMu.RLock()
	defer orderersMu.RUnlock()
	o, ok := orderers[strategy]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrInvalidStrategy, strategy)
	}
	return o, nil
}

// RegisterOrderer registers an orderer for a new strategy, or replaces an existing one.
func RegisterOrderer(strategy core.Strategy, o Orderer) {
	orderersMu.Lock()
	defer orderersMu.Unlock()
	orderers[strategy] = o
}
