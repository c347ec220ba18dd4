// Package ledger persists finished transactions. Amounts are stored as
// integer minor units per ISO-4217 so arithmetic downstream stays exact.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/ledger-lens/pkg/money"
)

// Entry is one stored transaction row.
type Entry struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	AmountMinor      int64
	CurrencyCode     string
	Description      string
	CategoryID       *uuid.UUID
	IsIncome         bool
	OccurredAt       time.Time
	Source           string
	OriginalAmount   *int64
	OriginalCurrency *string
	ExchangeRate     *decimal.Decimal
	CreatedAt        time.Time
}

// PgxIface is the subset of pgxpool.Pool the repository needs.
type PgxIface interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository writes and reads ledger entries on PostgreSQL.
type Repository struct {
	db PgxIface
}

func NewRepository(db PgxIface) *Repository {
	return &Repository{db: db}
}

// Insert stores an entry. A nil ID is assigned before the write.
func (r *Repository) Insert(ctx context.Context, e *Entry) error {
	query := `
		INSERT INTO ledger_entries (id, user_id, amount_minor, currency_code, description,
			category_id, is_income, occurred_at, source, original_amount_minor, original_currency, exchange_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at`

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	err := r.db.QueryRow(ctx, query,
		e.ID,
		e.UserID,
		e.AmountMinor,
		e.CurrencyCode,
		e.Description,
		e.CategoryID,
		e.IsIncome,
		e.OccurredAt,
		e.Source,
		e.OriginalAmount,
		e.OriginalCurrency,
		e.ExchangeRate,
	).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return nil
}

// CategoryTotal is an aggregated spend for one category in one currency.
// Categories recorded in several currencies appear once per currency.
type CategoryTotal struct {
	CategoryID uuid.UUID
	Total      *money.Money
}

// SumByCategory aggregates spending per category over a period. Income
// entries are excluded.
func (r *Repository) SumByCategory(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]CategoryTotal, error) {
	query := `
		SELECT category_id, currency_code, SUM(amount_minor)
		FROM ledger_entries
		WHERE user_id = $1 AND NOT is_income AND occurred_at >= $2 AND occurred_at < $3 AND category_id IS NOT NULL
		GROUP BY category_id, currency_code
		ORDER BY SUM(amount_minor) DESC`

	rows, err := r.db.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to sum ledger entries: %w", err)
	}
	defer rows.Close()

	var totals []CategoryTotal
	for rows.Next() {
		var (
			categoryID uuid.UUID
			code       string
			minor      int64
		)
		if err := rows.Scan(&categoryID, &code, &minor); err != nil {
			return nil, fmt.Errorf("failed to scan ledger sum: %w", err)
		}
		totals = append(totals, CategoryTotal{CategoryID: categoryID, Total: money.New(minor, code)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ledger sums: %w", err)
	}
	return totals, nil
}
