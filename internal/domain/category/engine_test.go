package category

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordEngine_LearnedBeatsNameToken(t *testing.T) {
	userID := uuid.New()
	books := newCategory(userID, "Station Books") // name token "station"
	transport := newCategory(userID, "Getting Around", "station")

	engine := NewKeywordEngine([]Category{books, transport})

	match := engine.Match("station kiosk")
	require.NotNil(t, match)
	assert.Equal(t, transport.ID, match.CategoryID)
	assert.True(t, match.Learned)
}

func TestKeywordEngine_SharedKeywordPrefersLearned(t *testing.T) {
	userID := uuid.New()
	a := newCategory(userID, "Snacks", "pretzel")
	b := newCategory(userID, "Pretzel Stand") // same pattern via name token

	engine := NewKeywordEngine([]Category{a, b})

	match := engine.Match("pretzel")
	require.NotNil(t, match)
	assert.Equal(t, a.ID, match.CategoryID)
}

func TestKeywordEngine_ShortNameTokensIgnored(t *testing.T) {
	userID := uuid.New()
	gas := newCategory(userID, "Gas") // 3 runes, would over-fire as substring

	engine := NewKeywordEngine([]Category{gas})

	assert.Nil(t, engine.Match("sunglasses"))
	assert.True(t, engine.IsEmpty())
}

func TestKeywordEngine_OtherBucketExcluded(t *testing.T) {
	userID := uuid.New()
	other := Category{ID: uuid.New(), UserID: userID, Name: "Other Expenses", IsOther: true, Keywords: []string{"misc"}}

	engine := NewKeywordEngine([]Category{other})

	assert.Nil(t, engine.Match("misc stuff"))
}

func TestKeywordEngine_RebuildReplacesPatterns(t *testing.T) {
	userID := uuid.New()
	cafe := newCategory(userID, "Cafe Corner", "latte")
	engine := NewKeywordEngine([]Category{cafe})
	require.NotNil(t, engine.Match("latte"))

	engine.Build(nil)
	assert.Nil(t, engine.Match("latte"))
	assert.True(t, engine.IsEmpty())
}
