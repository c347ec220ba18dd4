package category

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestIndex(t *testing.T, cats []Category) *SearchIndex {
	t.Helper()
	index, err := NewSearchIndex()
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	require.NoError(t, index.IndexCategories(cats))
	return index
}

func TestSearchIndex_BestByName(t *testing.T) {
	userID := uuid.New()
	groceries := newCategory(userID, "🛒 Groceries")
	index := buildTestIndex(t, []Category{
		newCategory(userID, "Travel"),
		groceries,
	})

	hit, ok, err := index.Best("groceries")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, groceries.ID, hit.CategoryID)
}

func TestSearchIndex_MatchesLearnedKeywords(t *testing.T) {
	userID := uuid.New()
	cafe := newCategory(userID, "Eating Out", "latte", "espresso")
	index := buildTestIndex(t, []Category{
		newCategory(userID, "Travel"),
		cafe,
	})

	hit, ok, err := index.Best("latte")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cafe.ID, hit.CategoryID)
}

func TestSearchIndex_TypoTolerance(t *testing.T) {
	userID := uuid.New()
	travel := newCategory(userID, "Travel")
	index := buildTestIndex(t, []Category{travel})

	// one edit away
	hit, ok, err := index.Best("trave")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, travel.ID, hit.CategoryID)
}

func TestSearchIndex_OtherExcluded(t *testing.T) {
	userID := uuid.New()
	index := buildTestIndex(t, []Category{
		{ID: uuid.New(), UserID: userID, Name: "Other Expenses", IsOther: true},
	})

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Zero(t, count)

	_, ok, err := index.Best("other")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSearchIndex_ReindexReplaces(t *testing.T) {
	userID := uuid.New()
	travel := newCategory(userID, "Travel")
	index := buildTestIndex(t, []Category{travel})

	groceries := newCategory(userID, "Groceries")
	require.NoError(t, index.IndexCategories([]Category{groceries}))

	_, ok, err := index.Best("travel")
	require.NoError(t, err)
	assert.False(t, ok)

	hit, ok, err := index.Best("groceries")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, groceries.ID, hit.CategoryID)
}
