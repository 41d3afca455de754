package services

import (
	"context"
	"time"

	"bilancio/internal/core"
)

// Each service declares the slice of storage it needs; *storage.SQLiteRepository
// satisfies all of them.

type DebtStore interface {
	ListDebts(ctx context.Context) ([]core.DebtObligation, error)
	SaveDebt(ctx context.Context, d core.DebtObligation) error
}

type GoalStore interface {
	ListGoals(ctx context.Context) ([]core.Goal, error)
	SaveGoal(ctx context.Context, g core.Goal) error
}

type LedgerStore interface {
	ListLedger(ctx context.Context, kind core.LedgerKind) ([]core.LedgerItem, error)
	SaveLedgerItem(ctx context.Context, it core.LedgerItem) error
	ReplaceDetected(ctx context.Context, detected map[core.LedgerKind][]core.LedgerItem) error
}

type TransactionStore interface {
	InsertTransactions(ctx context.Context, batchID string, txs []core.TransactionRecord) (int, error)
	ListTransactions(ctx context.Context, since time.Time) ([]core.TransactionRecord, error)
}

type OverrideStore interface {
	ListOverrides(ctx context.Context) ([]core.BucketOverride, error)
}

// Store is everything the services use together.
type Store interface {
	DebtStore
	GoalStore
	LedgerStore
	TransactionStore
	OverrideStore
}

// Publisher announces stored import batches to the refresh worker.
type Publisher interface {
	PublishTransactionsImported(ctx context.Context, batchID string, count int) error
}
