package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record to update or delete does not exist.
var ErrNotFound = errors.New("record not found")

const dateLayout = "2006-01-02"

type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens the database at dsn and migrates it. dsn is a
// file path or a "file:" URI such as "file:test?mode=memory&cache=shared".
func NewSQLiteRepository(dsn string) (*SQLiteRepository, error) {
	if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection for readiness probes.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListDebts returns debts in insertion order.
func (r *SQLiteRepository) ListDebts(ctx context.Context) ([]core.DebtObligation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, label, remaining_balance, minimum_payment FROM debts ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}
	defer rows.Close()

	var debts []core.DebtObligation
	for rows.Next() {
		var d core.DebtObligation
		if err := rows.Scan(&d.ID, &d.Label, &d.RemainingBalance, &d.MinimumPayment); err != nil {
			return nil, fmt.Errorf("scan debt: %w", err)
		}
		debts = append(debts, d)
	}
	return debts, rows.Err()
}

// SaveDebt inserts the debt or updates it in place.
func (r *SQLiteRepository) SaveDebt(ctx context.Context, d core.DebtObligation) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO debts (id, label, remaining_balance, minimum_payment)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			label = excluded.label,
			remaining_balance = excluded.remaining_balance,
			minimum_payment = excluded.minimum_payment,
			updated_at = CURRENT_TIMESTAMP`,
		d.ID, d.Label, d.RemainingBalance.String(), d.MinimumPayment.String())
	if err != nil {
		return fmt.Errorf("save debt %s: %w", d.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteDebt(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM debts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete debt %s: %w", id, err)
	}
	return affected(res)
}

func (r *SQLiteRepository) ListGoals(ctx context.Context) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, label, target_amount, current_amount, monthly_contribution, deadline, linked_bucket_ids
		FROM goals ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var goals []core.Goal
	for rows.Next() {
		var (
			g        core.Goal
			deadline sql.NullString
			linked   string
		)
		if err := rows.Scan(&g.ID, &g.Type, &g.Label, &g.TargetAmount, &g.CurrentAmount, &g.MonthlyContribution, &deadline, &linked); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		if deadline.Valid {
			t, err := time.Parse(dateLayout, deadline.String)
			if err != nil {
				return nil, fmt.Errorf("parse deadline of goal %s: %w", g.ID, err)
			}
			g.Deadline = &t
		}
		if err := json.Unmarshal([]byte(linked), &g.LinkedBucketIDs); err != nil {
			return nil, fmt.Errorf("decode linked buckets of goal %s: %w", g.ID, err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func (r *SQLiteRepository) SaveGoal(ctx context.Context, g core.Goal) error {
	var deadline sql.NullString
	if g.Deadline != nil {
		deadline = sql.NullString{String: g.Deadline.UTC().Format(dateLayout), Valid: true}
	}
	linked := g.LinkedBucketIDs
	if linked == nil {
		linked = []string{}
	}
	linkedJSON, err := json.Marshal(linked)
	if err != nil {
		return fmt.Errorf("encode linked buckets: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO goals (id, type, label, target_amount, current_amount, monthly_contribution, deadline, linked_bucket_ids)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			label = excluded.label,
			target_amount = excluded.target_amount,
			current_amount = excluded.current_amount,
			monthly_contribution = excluded.monthly_contribution,
			deadline = excluded.deadline,
			linked_bucket_ids = excluded.linked_bucket_ids,
			updated_at = CURRENT_TIMESTAMP`,
		g.ID, string(g.Type), g.Label, g.TargetAmount.String(), g.CurrentAmount.String(),
		g.MonthlyContribution.String(), deadline, string(linkedJSON))
	if err != nil {
		return fmt.Errorf("save goal %s: %w", g.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete goal %s: %w", id, err)
	}
	return affected(res)
}

// ListOverrides returns every stored bucket override.
func (r *SQLiteRepository) ListOverrides(ctx context.Context) ([]core.BucketOverride, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT bucket_id, label, type, monthly_average, recurring
		FROM bucket_overrides ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list bucket overrides: %w", err)
	}
	defer rows.Close()

	var out []core.BucketOverride
	for rows.Next() {
		var (
			o         core.BucketOverride
			label     sql.NullString
			typ       sql.NullString
			avg       decimal.NullDecimal
			recurring sql.NullBool
		)
		if err := rows.Scan(&o.BucketID, &label, &typ, &avg, &recurring); err != nil {
			return nil, fmt.Errorf("scan bucket override: %w", err)
		}
		if label.Valid {
			o.Label = &label.String
		}
		if typ.Valid {
			t := core.BucketType(typ.String)
			o.Type = &t
		}
		if avg.Valid {
			o.MonthlyAverage = &avg.Decimal
		}
		if recurring.Valid {
			o.Recurring = &recurring.Bool
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// SaveOverride stores an override, replacing any previous one for the bucket.
func (r *SQLiteRepository) SaveOverride(ctx context.Context, o core.BucketOverride) error {
	var (
		label     sql.NullString
		typ       sql.NullString
		avg       sql.NullString
		recurring sql.NullBool
	)
	if o.Label != nil {
		label = sql.NullString{String: *o.Label, Valid: true}
	}
	if o.Type != nil {
		typ = sql.NullString{String: string(*o.Type), Valid: true}
	}
	if o.MonthlyAverage != nil {
		avg = sql.NullString{String: o.MonthlyAverage.String(), Valid: true}
	}
	if o.Recurring != nil {
		recurring = sql.NullBool{Bool: *o.Recurring, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO bucket_overrides (bucket_id, label, type, monthly_average, recurring)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(bucket_id) DO UPDATE SET
			label = excluded.label,
			type = excluded.type,
			monthly_average = excluded.monthly_average,
			recurring = excluded.recurring,
			updated_at = CURRENT_TIMESTAMP`,
		o.BucketID, label, typ, avg, recurring)
	if err != nil {
		return fmt.Errorf("save bucket override %s: %w", o.BucketID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteOverride(ctx context.Context, bucketID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bucket_overrides WHERE bucket_id = ?`, bucketID)
	if err != nil {
		return fmt.Errorf("delete bucket override %s: %w", bucketID, err)
	}
	return affected(res)
}
