// Package currency resolves exchange rates through a primary/fallback source
// chain with caching, direction inversion and graceful degradation.
package currency

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// exoticCurrencies are unsupported by the fallback source for historical
// dates. For these the chain refuses to guess: a past-date request yields no
// rate at all and the caller keeps the original amount unconverted.
var exoticCurrencies = map[string]struct{}{
	"KZT": {}, "UZS": {}, "KGS": {}, "TJS": {}, "AMD": {}, "GEL": {}, "BYN": {},
}

// Rate is a resolved exchange rate: one unit of From costs Rate units of To.
type Rate struct {
	From   string
	To     string
	Date   time.Time
	Rate   decimal.Decimal
	Source Source
}

// Conversion is the outcome of a conversion attempt. When conversion was
// skipped the amount passes through unchanged and all provenance fields stay
// nil, which is how downstream code tells "skipped" from "rate was 1".
type Conversion struct {
	Amount           decimal.Decimal
	Currency         string
	OriginalAmount   *decimal.Decimal
	OriginalCurrency *string
	ExchangeRate     *decimal.Decimal
}

// Converter resolves rates via a primary source, falling back to a secondary
// one. Fetched day tables are cached for 24h per (date, source); concurrent
// fetches for the same key are collapsed through singleflight.
type Converter struct {
	primary  RateSource
	fallback RateSource
	cache    *tableCache
	group    singleflight.Group
	logger   *slog.Logger
	now      func() time.Time
}

// NewConverter wires the source chain. fallback may be nil.
func NewConverter(primary, fallback RateSource, logger *slog.Logger) *Converter {
	return &Converter{
		primary:  primary,
		fallback: fallback,
		cache:    newTableCache(),
		logger:   logger,
		now:      time.Now,
	}
}

// GetRate resolves the rate for one unit of `from` expressed in `to` on the
// given date. A nil result means no rate could be produced; that is policy,
// not an error, and callers must degrade gracefully.
func (c *Converter) GetRate(ctx context.Context, from, to string, on time.Time) *Rate {
	if from == "" || to == "" || from == to {
		return nil
	}

	requested := truncateDay(on)
	today := truncateDay(c.now())

	// Exotic currencies have no trustworthy historical source. Refusing to
	// convert beats inventing a rate. The check looks at the requested day,
	// not the business day it backs up to: a today-dated request on a weekend
	// still converts off Friday's table.
	if requested.Before(today) && (isExotic(from) || isExotic(to)) {
		c.logger.Debug("skipping conversion for exotic currency on past date",
			slog.String("from", from), slog.String("to", to))
		return nil
	}

	date := businessDay(requested)

	table, source := c.tableFor(ctx, date)
	if table == nil {
		return nil
	}

	rate, ok := crossRate(table, from, to)
	if !ok {
		return nil
	}
	return &Rate{From: from, To: to, Date: date, Rate: rate, Source: source}
}

// Convert attempts to re-denominate amount into `to`. On any failure the
// original amount passes through with nil provenance.
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, from, to string, on time.Time) Conversion {
	passthrough := Conversion{Amount: amount, Currency: from}
	if from == to || from == "" || to == "" {
		return passthrough
	}

	rate := c.GetRate(ctx, from, to, on)
	if rate == nil {
		return passthrough
	}

	converted := amount.Mul(rate.Rate).Round(2)
	return Conversion{
		Amount:           converted,
		Currency:         to,
		OriginalAmount:   &amount,
		OriginalCurrency: &from,
		ExchangeRate:     &rate.Rate,
	}
}

// Prefetch warms the cache with the primary table for the given date. Used
// by the daily scheduler so the first message of the day pays no fetch.
func (c *Converter) Prefetch(ctx context.Context, on time.Time) error {
	date := businessDay(truncateDay(on))
	table, err := c.primary.FetchTable(ctx, date)
	if err != nil {
		return err
	}
	c.cache.set(date, c.primary.Name(), table)
	return nil
}

// tableFor returns the day table from cache or via the source chain:
// primary first, then one silent retry against the fallback.
func (c *Converter) tableFor(ctx context.Context, date time.Time) (*Table, Source) {
	if t := c.cache.get(date, c.primary.Name()); t != nil {
		return t, c.primary.Name()
	}
	if c.fallback != nil {
		if t := c.cache.get(date, c.fallback.Name()); t != nil {
			return t, c.fallback.Name()
		}
	}

	type fetched struct {
		table  *Table
		source Source
	}

	v, err, _ := c.group.Do(date.Format("2006-01-02"), func() (any, error) {
		table, err := c.primary.FetchTable(ctx, date)
		if err == nil {
			c.cache.set(date, c.primary.Name(), table)
			return fetched{table, c.primary.Name()}, nil
		}
		c.logger.Warn("primary rate source failed",
			slog.String("date", date.Format("2006-01-02")), slog.Any("error", err))

		if c.fallback == nil {
			return nil, err
		}
		table, ferr := c.fallback.FetchTable(ctx, date)
		if ferr != nil {
			c.logger.Warn("fallback rate source failed", slog.Any("error", ferr))
			return nil, ferr
		}
		c.cache.set(date, c.fallback.Name(), table)
		return fetched{table, c.fallback.Name()}, nil
	})
	if err != nil {
		return nil, ""
	}
	f := v.(fetched)
	return f.table, f.source
}

// crossRate derives from→to through the table's base currency. The raw table
// says "1 base = X quote"; unit value of a quote currency in base terms is
// therefore 1/X, and the inversion is load-bearing.
func crossRate(table *Table, from, to string) (decimal.Decimal, bool) {
	fromUnit, ok := unitValue(table, from)
	if !ok {
		return decimal.Decimal{}, false
	}
	toUnit, ok := unitValue(table, to)
	if !ok || toUnit.IsZero() {
		return decimal.Decimal{}, false
	}
	return fromUnit.DivRound(toUnit, 8), true
}

// unitValue is the value of one unit of code expressed in the table's base.
func unitValue(table *Table, code string) (decimal.Decimal, bool) {
	if code == table.Base {
		return decimal.NewFromInt(1), true
	}
	quoted, ok := table.Rates[code]
	if !ok || quoted.IsZero() {
		return decimal.Decimal{}, false
	}
	return decimal.NewFromInt(1).DivRound(quoted, 8), true
}

// businessDay backs weekend dates up to the preceding Friday, since rate
// providers publish no weekend tables.
func businessDay(date time.Time) time.Time {
	switch date.Weekday() {
	case time.Saturday:
		return date.AddDate(0, 0, -1)
	case time.Sunday:
		return date.AddDate(0, 0, -2)
	default:
		return date
	}
}

func isExotic(code string) bool {
	_, ok := exoticCurrencies[code]
	return ok
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
