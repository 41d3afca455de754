package storage

import (
	"context"
	"fmt"
	"time"

	"bilancio/internal/core"
)

// InsertTransactions stores a batch of records under batchID. Records whose
// ID is already stored are skipped; the number actually inserted is returned.
func (r *SQLiteRepository) InsertTransactions(ctx context.Context, batchID string, txs []core.TransactionRecord) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (id, date, amount, description, counterparty, account_id, batch_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, t := range txs {
		res, err := stmt.ExecContext(ctx, t.ID, t.Date, t.Amount, t.Description, t.Counterparty, t.AccountID, batchID)
		if err != nil {
			return 0, fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return inserted, nil
}

// ListTransactions returns records dated on or after since, oldest first.
// A zero since returns everything.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, since time.Time) ([]core.TransactionRecord, error) {
	from := ""
	if !since.IsZero() {
		from = since.UTC().Format(dateLayout)
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, date, amount, description, counterparty, account_id
		FROM transactions WHERE date >= ? ORDER BY date, rowid`, from)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.TransactionRecord
	for rows.Next() {
		var t core.TransactionRecord
		if err := rows.Scan(&t.ID, &t.Date, &t.Amount, &t.Description, &t.Counterparty, &t.AccountID); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CountTransactions returns the number of records in a batch.
func (r *SQLiteRepository) CountTransactions(ctx context.Context, batchID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE batch_id = ?`, batchID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}
