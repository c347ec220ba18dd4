package category

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_ListActive(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	cafeID := uuid.New()
	otherID := uuid.New()

	mock.ExpectQuery(`SELECT c.id, c.user_id, c.name, c.is_other`).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "name", "is_other", "keywords"}).
			AddRow(cafeID, userID, "☕ Cafe", false, []string{"latte", "espresso"}).
			AddRow(otherID, userID, "Other Expenses", true, []string{}))

	repo := NewRepository(mock)
	cats, err := repo.ListActive(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, cats, 2)

	assert.Equal(t, cafeID, cats[0].ID)
	assert.Equal(t, []string{"latte", "espresso"}, cats[0].Keywords)
	assert.False(t, cats[0].IsOther)

	assert.True(t, cats[1].IsOther, "the fallback bucket sorts last")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	newID := uuid.New()

	mock.ExpectQuery(`INSERT INTO categories`).
		WithArgs(userID, DefaultOtherName, true).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(newID))

	repo := NewRepository(mock)
	cat := &Category{UserID: userID, Name: DefaultOtherName, IsOther: true}
	require.NoError(t, repo.Create(context.Background(), cat))
	assert.Equal(t, newID, cat.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_AddKeywordLowercases(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	categoryID := uuid.New()

	mock.ExpectQuery(`INSERT INTO category_keywords`).
		WithArgs(categoryID, "latte").
		WillReturnRows(pgxmock.NewRows([]string{}))

	repo := NewRepository(mock)
	require.NoError(t, repo.AddKeyword(context.Background(), categoryID, "LATTE"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_RemoveKeyword(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	categoryID := uuid.New()

	mock.ExpectQuery(`DELETE FROM category_keywords`).
		WithArgs(categoryID, "latte").
		WillReturnRows(pgxmock.NewRows([]string{}))

	repo := NewRepository(mock)
	require.NoError(t, repo.RemoveKeyword(context.Background(), categoryID, "latte"))
	require.NoError(t, mock.ExpectationsWereMet())
}
