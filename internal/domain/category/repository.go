package category

import (
	"context"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Category is one entry of a user's spending category set, together with the
// keywords learned for it over time.
type Category struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Name     string
	Keywords []string
	IsOther  bool // the default bucket unmatched labels fall into
}

// DefaultOtherName is the display name given to the fallback category when it
// has to be created on demand.
const DefaultOtherName = "Other Expenses"

// Store is the category collaborator the resolver reads from and the learner
// writes to.
type Store interface {
	// ListActive returns the user's categories with their keywords, the
	// "Other" bucket sorted last.
	ListActive(ctx context.Context, userID uuid.UUID) ([]Category, error)
	Create(ctx context.Context, cat *Category) error
	AddKeyword(ctx context.Context, categoryID uuid.UUID, keyword string) error
	RemoveKeyword(ctx context.Context, categoryID uuid.UUID, keyword string) error
}

// PgxIface is the pool surface the repository needs. Both *pgxpool.Pool and
// pgxmock satisfy it.
type PgxIface interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository is the Postgres-backed Store.
type Repository struct {
	db PgxIface
}

func NewRepository(db PgxIface) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListActive(ctx context.Context, userID uuid.UUID) ([]Category, error) {
	query := `
		SELECT c.id, c.user_id, c.name, c.is_other,
		       COALESCE(array_agg(k.keyword ORDER BY k.keyword) FILTER (WHERE k.keyword IS NOT NULL), '{}')
		FROM categories c
		LEFT JOIN category_keywords k ON k.category_id = c.id
		WHERE c.user_id = $1 AND c.archived_at IS NULL
		GROUP BY c.id
		ORDER BY c.is_other ASC, c.name ASC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.IsOther, &c.Keywords); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}

	return cats, rows.Err()
}

func (r *Repository) Create(ctx context.Context, cat *Category) error {
	query := `
		INSERT INTO categories (user_id, name, is_other)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	return r.db.QueryRow(ctx, query, cat.UserID, cat.Name, cat.IsOther).Scan(&cat.ID)
}

func (r *Repository) AddKeyword(ctx context.Context, categoryID uuid.UUID, keyword string) error {
	query := `
		INSERT INTO category_keywords (category_id, keyword)
		VALUES ($1, $2)
		ON CONFLICT (category_id, keyword) DO NOTHING
	`

	rows, err := r.db.Query(ctx, query, categoryID, strings.ToLower(keyword))
	if err != nil {
		return err
	}
	rows.Close()
	return rows.Err()
}

func (r *Repository) RemoveKeyword(ctx context.Context, categoryID uuid.UUID, keyword string) error {
	query := `
		DELETE FROM category_keywords
		WHERE category_id = $1 AND keyword = $2
	`

	rows, err := r.db.Query(ctx, query, categoryID, strings.ToLower(keyword))
	if err != nil {
		return err
	}
	rows.Close()
	return rows.Err()
}

// normalizeName strips any leading pictograph/emoji decoration, lowercases
// and trims, so "☕ Cafe" and "cafe" compare equal.
func normalizeName(name string) string {
	trimmed := strings.TrimLeftFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.ToLower(strings.TrimSpace(trimmed))
}
