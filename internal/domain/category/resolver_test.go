package category

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory Store for resolver and learner tests.
type fakeStore struct {
	mu      sync.Mutex
	cats    []Category
	added   []string // "categoryID/keyword" in call order
	removed []string
	listErr error
}

func (s *fakeStore) ListActive(_ context.Context, userID uuid.UUID) ([]Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]Category, 0, len(s.cats))
	for _, c := range s.cats {
		if c.UserID == userID {
			copied := c
			copied.Keywords = append([]string(nil), c.Keywords...)
			out = append(out, copied)
		}
	}
	return out, nil
}

func (s *fakeStore) Create(_ context.Context, cat *Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cat.ID = uuid.New()
	s.cats = append(s.cats, *cat)
	return nil
}

func (s *fakeStore) AddKeyword(_ context.Context, categoryID uuid.UUID, keyword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cats {
		if s.cats[i].ID == categoryID {
			s.cats[i].Keywords = append(s.cats[i].Keywords, keyword)
		}
	}
	s.added = append(s.added, categoryID.String()+"/"+keyword)
	return nil
}

func (s *fakeStore) RemoveKeyword(_ context.Context, categoryID uuid.UUID, keyword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cats {
		if s.cats[i].ID != categoryID {
			continue
		}
		kept := s.cats[i].Keywords[:0]
		for _, kw := range s.cats[i].Keywords {
			if kw != keyword {
				kept = append(kept, kw)
			}
		}
		s.cats[i].Keywords = kept
	}
	s.removed = append(s.removed, categoryID.String()+"/"+keyword)
	return nil
}

func newCategory(userID uuid.UUID, name string, keywords ...string) Category {
	return Category{ID: uuid.New(), UserID: userID, Name: name, Keywords: keywords}
}

func testResolver(store Store) *Resolver {
	return NewResolver(store, slog.New(slog.DiscardHandler))
}

func TestResolver_ExactMatchStripsEmojiAndCase(t *testing.T) {
	userID := uuid.New()
	cafe := newCategory(userID, "☕ Cafe")
	store := &fakeStore{cats: []Category{
		cafe,
		newCategory(userID, "🛒 Groceries"),
	}}

	got, err := testResolver(store).Resolve(context.Background(), userID, "cafe")
	require.NoError(t, err)
	assert.Equal(t, cafe.ID, got.ID)
}

func TestResolver_SubstringMatch(t *testing.T) {
	userID := uuid.New()
	taxi := newCategory(userID, "🚕 Taxi")
	store := &fakeStore{cats: []Category{
		newCategory(userID, "☕ Cafe"),
		taxi,
	}}

	got, err := testResolver(store).Resolve(context.Background(), userID, "taxi rides")
	require.NoError(t, err)
	assert.Equal(t, taxi.ID, got.ID)
}

func TestResolver_LearnedKeywordMatch(t *testing.T) {
	userID := uuid.New()
	groceries := newCategory(userID, "🛒 Groceries", "lidl", "aldi")
	store := &fakeStore{cats: []Category{
		newCategory(userID, "☕ Cafe"),
		groceries,
	}}

	got, err := testResolver(store).Resolve(context.Background(), userID, "Lidl")
	require.NoError(t, err)
	assert.Equal(t, groceries.ID, got.ID)
}

func TestResolver_LongerKeywordWins(t *testing.T) {
	userID := uuid.New()
	market := newCategory(userID, "Flea Finds", "market")
	groceries := newCategory(userID, "Weekly Shop", "supermarket")
	store := &fakeStore{cats: []Category{market, groceries}}

	got, err := testResolver(store).Resolve(context.Background(), userID, "supermarket run")
	require.NoError(t, err)
	assert.Equal(t, groceries.ID, got.ID)
}

func TestResolver_ConceptTableMatch(t *testing.T) {
	userID := uuid.New()
	gas := newCategory(userID, "⛽ Gas Station")
	store := &fakeStore{cats: []Category{
		newCategory(userID, "☕ Cafe"),
		gas,
	}}

	got, err := testResolver(store).Resolve(context.Background(), userID, "petrol")
	require.NoError(t, err)
	assert.Equal(t, gas.ID, got.ID)
}

func TestResolver_CafeOverride(t *testing.T) {
	userID := uuid.New()
	restaurant := newCategory(userID, "🍽 Ресторан")
	store := &fakeStore{cats: []Category{
		newCategory(userID, "🛒 Продукты"),
		restaurant,
	}}

	got, err := testResolver(store).Resolve(context.Background(), userID, "кофешоп")
	require.NoError(t, err)
	assert.Equal(t, restaurant.ID, got.ID)
}

func TestResolver_TypoRescue(t *testing.T) {
	userID := uuid.New()
	groceries := newCategory(userID, "Groceries")
	store := &fakeStore{cats: []Category{
		newCategory(userID, "Travel"),
		groceries,
	}}

	got, err := testResolver(store).Resolve(context.Background(), userID, "grocerys")
	require.NoError(t, err)
	assert.Equal(t, groceries.ID, got.ID)
}

func TestResolver_UnmatchedFallsToOther(t *testing.T) {
	userID := uuid.New()
	other := Category{ID: uuid.New(), UserID: userID, Name: "Other Expenses", IsOther: true}
	store := &fakeStore{cats: []Category{
		newCategory(userID, "☕ Cafe"),
		other,
	}}

	got, err := testResolver(store).Resolve(context.Background(), userID, "xylophone lessons")
	require.NoError(t, err)
	assert.Equal(t, other.ID, got.ID)
}

func TestResolver_CreatesOtherOnDemand(t *testing.T) {
	userID := uuid.New()
	store := &fakeStore{cats: []Category{newCategory(userID, "Travel")}}

	got, err := testResolver(store).Resolve(context.Background(), userID, "zzz unknown zzz")
	require.NoError(t, err)
	assert.True(t, got.IsOther)
	assert.Equal(t, DefaultOtherName, got.Name)
	assert.NotEqual(t, uuid.Nil, got.ID)
}

func TestResolver_EmptyLabelGoesToOther(t *testing.T) {
	userID := uuid.New()
	other := Category{ID: uuid.New(), UserID: userID, Name: "Other", IsOther: true}
	store := &fakeStore{cats: []Category{other}}

	got, err := testResolver(store).Resolve(context.Background(), userID, "   ")
	require.NoError(t, err)
	assert.Equal(t, other.ID, got.ID)
}

func TestResolver_OtherNeverWinsOnSimilarity(t *testing.T) {
	userID := uuid.New()
	other := Category{ID: uuid.New(), UserID: userID, Name: "Other Expenses", IsOther: true}
	store := &fakeStore{cats: []Category{other}}

	// "Others" is nearly identical to the bucket name, but the bucket must
	// be reached through the fallback branch, not through matching.
	got, err := testResolver(store).Resolve(context.Background(), userID, "mothers day flowers")
	require.NoError(t, err)
	assert.Equal(t, other.ID, got.ID)
}
