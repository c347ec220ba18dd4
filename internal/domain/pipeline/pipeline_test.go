package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/ledger-lens/internal/domain/category"
	"github.com/FACorreiaa/ledger-lens/internal/domain/classify"
	"github.com/FACorreiaa/ledger-lens/internal/domain/currency"
	"github.com/FACorreiaa/ledger-lens/internal/domain/nlp"
	"github.com/FACorreiaa/ledger-lens/internal/domain/parse"
)

type memStore struct {
	mu   sync.Mutex
	cats []category.Category
}

func (s *memStore) ListActive(_ context.Context, userID uuid.UUID) ([]category.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]category.Category, 0, len(s.cats))
	for _, c := range s.cats {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memStore) Create(_ context.Context, cat *category.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cat.ID = uuid.New()
	s.cats = append(s.cats, *cat)
	return nil
}

func (s *memStore) AddKeyword(context.Context, uuid.UUID, string) error    { return nil }
func (s *memStore) RemoveKeyword(context.Context, uuid.UUID, string) error { return nil }

type fakeProfiles struct {
	profile Profile
	err     error
}

func (f *fakeProfiles) Profile(context.Context, uuid.UUID) (Profile, error) {
	return f.profile, f.err
}

type fixedRates struct {
	rates map[string]decimal.Decimal
}

func (f *fixedRates) Name() currency.Source { return currency.SourcePrimary }

func (f *fixedRates) FetchTable(_ context.Context, date time.Time) (*currency.Table, error) {
	return &currency.Table{Base: "USD", Date: date, Rates: f.rates}, nil
}

type fixture struct {
	pipeline *Pipeline
	store    *memStore
	userID   uuid.UUID
	registry *prometheus.Registry
	metrics  *Metrics
}

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	userID := uuid.New()

	store := &memStore{cats: []category.Category{
		{ID: uuid.New(), UserID: userID, Name: "☕ Cafe"},
		{ID: uuid.New(), UserID: userID, Name: "Other Expenses", IsOther: true},
	}}

	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	cfg := Config{
		Intents:    classify.NewIntentDetector(),
		Classifier: classify.NewClassifier(nlp.NewLexiconTagger(nil)),
		Extractor:  parse.NewExtractor(nil, logger),
		Resolver:   category.NewResolver(store, logger),
		Profiles:   &fakeProfiles{profile: Profile{Currency: "USD"}},
		Metrics:    metrics,
		Logger:     logger,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	return &fixture{
		pipeline: New(cfg),
		store:    store,
		userID:   userID,
		registry: registry,
		metrics:  metrics,
	}
}

func (f *fixture) handle(text string) Outcome {
	return f.pipeline.Handle(context.Background(), Message{UserID: f.userID, Text: text})
}

func TestPipeline_RecordPath(t *testing.T) {
	f := newFixture(t, nil)

	outcome := f.handle("Coffee 200")
	require.Equal(t, OutcomeRecord, outcome.Kind)
	require.NotNil(t, outcome.Transaction)
	assert.Equal(t, "200", outcome.Transaction.Amount.String())
	assert.Equal(t, "USD", outcome.Transaction.Currency)
	assert.Equal(t, "Coffee", outcome.Transaction.Description)
	assert.GreaterOrEqual(t, outcome.Classification.Confidence, 0.7)

	require.NotNil(t, outcome.Category)
	assert.Equal(t, "☕ Cafe", outcome.Category.Name)
	assert.Equal(t, "☕ Cafe", outcome.Transaction.CategoryLabel)
	assert.Nil(t, outcome.Conversion, "no auto-convert configured")
}

func TestPipeline_UnmatchedCategoryFallsToOther(t *testing.T) {
	f := newFixture(t, nil)

	outcome := f.handle("Xylophone lessons 900")
	require.Equal(t, OutcomeRecord, outcome.Kind)
	require.NotNil(t, outcome.Category)
	assert.True(t, outcome.Category.IsOther)
}

func TestPipeline_ChatShortCircuits(t *testing.T) {
	f := newFixture(t, nil)

	outcome := f.handle("How much did coffee cost last year?")
	assert.Equal(t, OutcomeChat, outcome.Kind)
	assert.Equal(t, classify.LabelChat, outcome.Classification.Label)
	assert.Nil(t, outcome.Transaction)
}

func TestPipeline_ShowIntentBypassesClassifier(t *testing.T) {
	f := newFixture(t, nil)

	outcome := f.handle("show my expenses for last month")
	require.Equal(t, OutcomeReport, outcome.Kind)
	require.NotNil(t, outcome.Intent)
	assert.True(t, outcome.Intent.IsShowRequest)
	require.NotNil(t, outcome.Intent.Period)
}

func TestPipeline_ClarificationReasons(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name   string
		text   string
		reason string
	}{
		{"zero amount", "Dinner 0", ClarifyInvalidAmount},
		{"bare amount", "500", ClarifyNoDescription},
		{"no amount", "groceries please", ClarifyNoAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := f.handle(tt.text)
			require.Equal(t, OutcomeClarify, outcome.Kind)
			assert.Equal(t, tt.reason, outcome.ClarifyReason)
		})
	}
}

func TestPipeline_DeniedByCheck(t *testing.T) {
	f := newFixture(t, func(cfg *Config) {
		cfg.Checks = []Check{NewRateLimitCheck(0, 0)}
	})

	outcome := f.handle("Coffee 200")
	assert.Equal(t, OutcomeDenied, outcome.Kind)
	assert.Equal(t, "rate_limited", outcome.DenyReason)
	assert.Nil(t, outcome.Transaction)
}

func TestPipeline_AutoConvert(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	rub := decimal.RequireFromString("100") // 1 USD buys 100 RUB
	converter := currency.NewConverter(&fixedRates{rates: map[string]decimal.Decimal{"RUB": rub}}, nil, logger)

	f := newFixture(t, func(cfg *Config) {
		cfg.Converter = converter
		cfg.Profiles = &fakeProfiles{profile: Profile{
			Currency:     "RUB",
			MainCurrency: "USD",
			AutoConvert:  true,
		}}
	})

	outcome := f.handle("Taxi 500 rub")
	require.Equal(t, OutcomeRecord, outcome.Kind)
	require.NotNil(t, outcome.Conversion)
	require.NotNil(t, outcome.Conversion.ExchangeRate)
	assert.Equal(t, "USD", outcome.Conversion.Currency)
	assert.Equal(t, "5", outcome.Conversion.Amount.String())
	require.NotNil(t, outcome.Conversion.OriginalCurrency)
	assert.Equal(t, "RUB", *outcome.Conversion.OriginalCurrency)
}

func TestPipeline_ProfileOutageFailsOpen(t *testing.T) {
	f := newFixture(t, func(cfg *Config) {
		cfg.Profiles = &fakeProfiles{err: errors.New("settings store down")}
	})

	outcome := f.handle("Coffee 200")
	require.Equal(t, OutcomeRecord, outcome.Kind)
	assert.Empty(t, outcome.Transaction.Currency, "no default currency available")
}

func TestPipeline_MetricsCountOutcomes(t *testing.T) {
	f := newFixture(t, nil)

	f.handle("Coffee 200")
	f.handle("How much did I spend?")

	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.outcomes.WithLabelValues("record")))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.outcomes.WithLabelValues("chat")))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.classified.WithLabelValues("record")))
}
