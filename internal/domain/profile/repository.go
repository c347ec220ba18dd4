// Package profile stores per-user settings that steer message handling:
// the currency assumed for bare amounts, the main currency conversions
// target, and whether conversions happen automatically.
package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Profile holds the settings for one user. A user without a stored row
// gets the zero Profile, which disables defaults and auto-conversion.
type Profile struct {
	UserID       uuid.UUID
	Currency     string
	MainCurrency string
	AutoConvert  bool
}

// PgxIface is the subset of pgxpool.Pool the repository needs.
type PgxIface interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository implements profile and subscription lookups on PostgreSQL.
type Repository struct {
	db PgxIface
}

func NewRepository(db PgxIface) *Repository {
	return &Repository{db: db}
}

// Get returns the stored profile for a user, or the zero Profile when
// none exists yet.
func (r *Repository) Get(ctx context.Context, userID uuid.UUID) (Profile, error) {
	query := `
		SELECT user_id, currency, main_currency, auto_convert
		FROM user_profiles
		WHERE user_id = $1`

	var p Profile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&p.Currency,
		&p.MainCurrency,
		&p.AutoConvert,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{UserID: userID}, nil
	}
	if err != nil {
		return Profile{}, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// Upsert creates or replaces the stored profile for a user.
func (r *Repository) Upsert(ctx context.Context, p Profile) error {
	query := `
		INSERT INTO user_profiles (user_id, currency, main_currency, auto_convert)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET currency = EXCLUDED.currency,
			main_currency = EXCLUDED.main_currency,
			auto_convert = EXCLUDED.auto_convert,
			updated_at = now()`

	rows, err := r.db.Query(ctx, query, p.UserID, p.Currency, p.MainCurrency, p.AutoConvert)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	rows.Close()
	return rows.Err()
}

// HasActiveSubscription reports whether the user has a subscription row
// that has not yet expired.
func (r *Repository) HasActiveSubscription(ctx context.Context, userID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM subscriptions
			WHERE user_id = $1 AND expires_at > now()
		)`

	var active bool
	if err := r.db.QueryRow(ctx, query, userID).Scan(&active); err != nil {
		return false, fmt.Errorf("failed to check subscription: %w", err)
	}
	return active, nil
}
