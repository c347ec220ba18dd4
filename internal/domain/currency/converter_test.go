package currency

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

type stubSource struct {
	name   Source
	table  *Table
	err    error
	calls  int
	gotDay time.Time
}

func (s *stubSource) Name() Source { return s.name }

func (s *stubSource) FetchTable(_ context.Context, date time.Time) (*Table, error) {
	s.calls++
	s.gotDay = date
	if s.err != nil {
		return nil, s.err
	}
	t := *s.table
	t.Date = date
	return &t, nil
}

func rubTable() *Table {
	return &Table{
		Base: "RUB",
		Rates: map[string]decimal.Decimal{
			"USD": decimal.RequireFromString("0.01"),
			"EUR": decimal.RequireFromString("0.009"),
			"KZT": decimal.RequireFromString("5"),
		},
	}
}

func converterAt(primary, fallback RateSource, today time.Time) *Converter {
	c := NewConverter(primary, fallback, slog.New(slog.DiscardHandler))
	c.now = func() time.Time { return today }
	return c
}

var wednesday = time.Date(2024, time.March, 13, 12, 0, 0, 0, time.UTC)

func TestConverter_InversionCorrectness(t *testing.T) {
	// The raw table reports 1 RUB = 0.01 USD. One USD must therefore cost
	// 100 RUB, not 0.01.
	primary := &stubSource{name: SourcePrimary, table: rubTable()}
	c := converterAt(primary, nil, wednesday)

	rate := c.GetRate(context.Background(), "USD", "RUB", wednesday)
	require.NotNil(t, rate)
	got, _ := rate.Rate.Float64()
	assert.InDelta(t, 100, got, 0.1)
	assert.Equal(t, SourcePrimary, rate.Source)
}

func TestConverter_CrossRateThroughBase(t *testing.T) {
	primary := &stubSource{name: SourcePrimary, table: rubTable()}
	c := converterAt(primary, nil, wednesday)

	// 1 USD = 100 RUB, 1 EUR = 111.11 RUB, so USD->EUR = 100/111.11 = 0.9.
	rate := c.GetRate(context.Background(), "USD", "EUR", wednesday)
	require.NotNil(t, rate)
	got, _ := rate.Rate.Float64()
	assert.InDelta(t, 0.9, got, 0.001)
}

func TestConverter_ExoticHistoricalRefusal(t *testing.T) {
	primary := &stubSource{name: SourcePrimary, table: rubTable()}
	c := converterAt(primary, nil, wednesday)

	yesterday := wednesday.AddDate(0, 0, -1)
	rate := c.GetRate(context.Background(), "KZT", "RUB", yesterday)
	assert.Nil(t, rate)
	assert.Zero(t, primary.calls, "no fetch may be attempted for an unconvertible pair")

	// Same pair today is fine.
	rate = c.GetRate(context.Background(), "KZT", "RUB", wednesday)
	assert.NotNil(t, rate)
}

func TestConverter_ExoticTodayOnWeekendConverts(t *testing.T) {
	// A today-dated exotic request made on a Sunday is not historical: the
	// refusal looks at the requested day, while fetching backs up to Friday.
	primary := &stubSource{name: SourcePrimary, table: rubTable()}
	sunday := time.Date(2024, time.March, 17, 9, 0, 0, 0, time.UTC)
	c := converterAt(primary, nil, sunday)

	rate := c.GetRate(context.Background(), "KZT", "RUB", sunday)
	require.NotNil(t, rate)
	friday := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, friday, rate.Date)

	// Saturday of the same weekend must refuse: it is a past day by then.
	saturday := sunday.AddDate(0, 0, -1)
	assert.Nil(t, c.GetRate(context.Background(), "KZT", "RUB", saturday))
}

func TestConverter_ConvertPreservesOriginalOnSkip(t *testing.T) {
	primary := &stubSource{name: SourcePrimary, table: rubTable()}
	c := converterAt(primary, nil, wednesday)

	amount := decimal.NewFromInt(5000)
	yesterday := wednesday.AddDate(0, 0, -1)

	conv := c.Convert(context.Background(), amount, "KZT", "RUB", yesterday)
	assert.True(t, conv.Amount.Equal(amount))
	assert.Equal(t, "KZT", conv.Currency)
	assert.Nil(t, conv.OriginalAmount)
	assert.Nil(t, conv.OriginalCurrency)
	assert.Nil(t, conv.ExchangeRate)
}

func TestConverter_ConvertSetsProvenance(t *testing.T) {
	primary := &stubSource{name: SourcePrimary, table: rubTable()}
	c := converterAt(primary, nil, wednesday)

	conv := c.Convert(context.Background(), decimal.NewFromInt(20), "USD", "RUB", wednesday)
	assert.True(t, conv.Amount.Equal(decimal.NewFromInt(2000)), "got %s", conv.Amount)
	assert.Equal(t, "RUB", conv.Currency)
	require.NotNil(t, conv.OriginalAmount)
	assert.True(t, conv.OriginalAmount.Equal(decimal.NewFromInt(20)))
	require.NotNil(t, conv.OriginalCurrency)
	assert.Equal(t, "USD", *conv.OriginalCurrency)
	require.NotNil(t, conv.ExchangeRate)
}

func TestConverter_SameCurrencyPassthrough(t *testing.T) {
	primary := &stubSource{name: SourcePrimary, table: rubTable()}
	c := converterAt(primary, nil, wednesday)

	conv := c.Convert(context.Background(), decimal.NewFromInt(10), "EUR", "EUR", wednesday)
	assert.Equal(t, "EUR", conv.Currency)
	assert.Nil(t, conv.ExchangeRate)
	assert.Zero(t, primary.calls)
}

func TestConverter_FallbackChain(t *testing.T) {
	primary := &stubSource{name: SourcePrimary, err: errors.New("connection refused")}
	fallback := &stubSource{name: SourceFallback, table: rubTable()}
	c := converterAt(primary, fallback, wednesday)

	rate := c.GetRate(context.Background(), "USD", "RUB", wednesday)
	require.NotNil(t, rate)
	assert.Equal(t, SourceFallback, rate.Source)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestConverter_BothSourcesDown(t *testing.T) {
	primary := &stubSource{name: SourcePrimary, err: errors.New("down")}
	fallback := &stubSource{name: SourceFallback, err: errors.New("down too")}
	c := converterAt(primary, fallback, wednesday)

	assert.Nil(t, c.GetRate(context.Background(), "USD", "RUB", wednesday))
}

func TestConverter_CachesDayTable(t *testing.T) {
	primary := &stubSource{name: SourcePrimary, table: rubTable()}
	c := converterAt(primary, nil, wednesday)

	for i := 0; i < 5; i++ {
		require.NotNil(t, c.GetRate(context.Background(), "USD", "RUB", wednesday))
	}
	assert.Equal(t, 1, primary.calls)
}

func TestConverter_WeekendUsesPrecedingFriday(t *testing.T) {
	primary := &stubSource{name: SourcePrimary, table: rubTable()}
	sunday := time.Date(2024, time.March, 17, 9, 0, 0, 0, time.UTC)
	c := converterAt(primary, nil, sunday)

	rate := c.GetRate(context.Background(), "USD", "RUB", sunday)
	require.NotNil(t, rate)
	friday := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, friday, primary.gotDay)
	assert.Equal(t, friday, rate.Date)
}

func TestConverter_Prefetch(t *testing.T) {
	primary := &stubSource{name: SourcePrimary, table: rubTable()}
	c := converterAt(primary, nil, wednesday)

	require.NoError(t, c.Prefetch(context.Background(), wednesday))
	require.NotNil(t, c.GetRate(context.Background(), "USD", "RUB", wednesday))
	assert.Equal(t, 1, primary.calls, "prefetched table must be served from cache")
}
