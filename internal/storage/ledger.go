package storage

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"bilancio/internal/core"
)

// ListLedger returns the items of one kind in insertion order, manual and detected.
func (r *SQLiteRepository) ListLedger(ctx context.Context, kind core.LedgerKind) ([]core.LedgerItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, label, amount, source FROM ledger_items
		WHERE kind = ? ORDER BY rowid`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list %s items: %w", kind, err)
	}
	defer rows.Close()

	var items []core.LedgerItem
	for rows.Next() {
		var it core.LedgerItem
		if err := rows.Scan(&it.ID, &it.Kind, &it.Label, &it.Amount, &it.Source); err != nil {
			return nil, fmt.Errorf("scan ledger item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// SaveLedgerItem inserts or updates an item. An empty Source is stored as
// manual. IDs are unique across kinds: an ID held by an item of another kind
// or source is rejected with core.ErrIDConflict.
func (r *SQLiteRepository) SaveLedgerItem(ctx context.Context, it core.LedgerItem) error {
	source := it.Source
	if source == "" {
		source = core.SourceManual
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO ledger_items (id, kind, label, amount, source)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			label = excluded.label,
			amount = excluded.amount
		WHERE ledger_items.kind = excluded.kind AND ledger_items.source = excluded.source`,
		it.ID, string(it.Kind), it.Label, it.Amount.String(), string(source))
	if err != nil {
		return fmt.Errorf("save %s item %s: %w", it.Kind, it.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("save %s item %s: %w", it.Kind, it.ID, core.ErrIDConflict)
	}
	return nil
}

func (r *SQLiteRepository) DeleteLedgerItem(ctx context.Context, kind core.LedgerKind, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM ledger_items WHERE kind = ? AND id = ?`, string(kind), id)
	if err != nil {
		return fmt.Errorf("delete %s item %s: %w", kind, id, err)
	}
	return affected(res)
}

// ReplaceDetected swaps every detected item of each kind in detected for the
// given items, all in one transaction. An item may move between kinds from
// one call to the next. Manual items are left alone, and a detected item whose
// ID is held by a manual item is skipped.
func (r *SQLiteRepository) ReplaceDetected(ctx context.Context, detected map[core.LedgerKind][]core.LedgerItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	kinds := slices.Sorted(maps.Keys(detected))
	for _, kind := range kinds {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM ledger_items WHERE kind = ? AND source = ?`, string(kind), string(core.SourceDetected)); err != nil {
			return fmt.Errorf("clear detected %s items: %w", kind, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ledger_items (id, kind, label, amount, source)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			label = excluded.label,
			amount = excluded.amount
		WHERE ledger_items.source = excluded.source`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, kind := range kinds {
		for _, it := range detected[kind] {
			if _, err := stmt.ExecContext(ctx, it.ID, string(kind), it.Label, it.Amount.String(), string(core.SourceDetected)); err != nil {
				return fmt.Errorf("insert detected %s item %s: %w", kind, it.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
