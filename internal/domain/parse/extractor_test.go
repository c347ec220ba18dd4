package parse

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAI struct {
	tx    *Transaction
	err   error
	calls int
	delay time.Duration
}

func (s *stubAI) ParseTransaction(ctx context.Context, _ string, _ RequestContext) (*Transaction, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.tx, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestExtractor_HeuristicPreferred(t *testing.T) {
	ai := &stubAI{tx: &Transaction{Amount: decimal.NewFromInt(999)}}
	e := NewExtractor(ai, testLogger())

	tx, err := e.Extract(context.Background(), "Coffee 200", Options{DefaultCurrency: "EUR"})
	require.NoError(t, err)
	assert.Equal(t, SourceHeuristic, tx.Source)
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(200)))
	assert.Zero(t, ai.calls, "a confident heuristic parse must not spend an AI call")
}

func TestExtractor_AIFallbackOnNoAmount(t *testing.T) {
	ai := &stubAI{tx: &Transaction{
		Amount:        decimal.NewFromInt(1200),
		Description:   "Lunch for two",
		CategoryLabel: "cafe",
	}}
	e := NewExtractor(ai, testLogger())

	tx, err := e.Extract(context.Background(), "lunch for two twelve hundred", Options{DefaultCurrency: "EUR"})
	require.NoError(t, err)
	assert.Equal(t, SourceAI, tx.Source)
	assert.Equal(t, "EUR", tx.Currency, "missing AI currency falls back to the default")
	assert.False(t, tx.Date.IsZero())
	assert.Equal(t, 1, ai.calls)
}

func TestExtractor_AIFailureDegradesToHeuristicError(t *testing.T) {
	ai := &stubAI{err: errors.New("quota exceeded")}
	e := NewExtractor(ai, testLogger())

	_, err := e.Extract(context.Background(), "mysterious words", Options{})
	assert.ErrorIs(t, err, ErrNoAmount)
	assert.Equal(t, 1, ai.calls)
}

func TestExtractor_AITimeoutIsBounded(t *testing.T) {
	ai := &stubAI{delay: time.Minute, tx: &Transaction{Amount: decimal.NewFromInt(5)}}
	e := NewExtractor(ai, testLogger())
	e.aiTimeout = 10 * time.Millisecond

	start := time.Now()
	_, err := e.Extract(context.Background(), "mysterious words", Options{})
	assert.ErrorIs(t, err, ErrNoAmount)
	assert.Less(t, time.Since(start), time.Second)
}

func TestExtractor_NilAIService(t *testing.T) {
	e := NewExtractor(nil, testLogger())

	_, err := e.Extract(context.Background(), "mysterious words", Options{})
	assert.ErrorIs(t, err, ErrNoAmount)
}

func TestExtractor_AIRejectsNonPositiveAmount(t *testing.T) {
	ai := &stubAI{tx: &Transaction{Amount: decimal.Zero}}
	e := NewExtractor(ai, testLogger())

	_, err := e.Extract(context.Background(), "mysterious words", Options{})
	assert.ErrorIs(t, err, ErrNoAmount)
}
