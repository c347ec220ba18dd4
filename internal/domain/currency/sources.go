package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// Source identifies which provider produced a rate.
type Source string

const (
	SourcePrimary  Source = "primary"
	SourceFallback Source = "fallback"
)

// Table reports, for one base currency on one day, how many units of each
// quote currency a single unit of the base buys. Note the direction: the
// converter must invert these values to express quotes in base terms.
type Table struct {
	Base  string
	Date  time.Time
	Rates map[string]decimal.Decimal
}

// RateSource fetches a daily rate table. Implementations wrap external HTTP
// providers and must honor the context deadline.
type RateSource interface {
	Name() Source
	FetchTable(ctx context.Context, date time.Time) (*Table, error)
}

type tableDTO struct {
	Base  string             `json:"base"`
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

// HTTPSource fetches day tables from a JSON endpoint shaped like the common
// open exchange-rate APIs: GET {base_url}/{date}?base=XXX returning
// {"base":"EUR","date":"2024-03-15","rates":{"USD":1.09,...}}.
type HTTPSource struct {
	name    Source
	baseURL string
	base    string
	client  *http.Client
}

// NewHTTPSource builds a source. base is the table's base currency.
func NewHTTPSource(name Source, baseURL, base string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{
		name:    name,
		baseURL: baseURL,
		base:    base,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name implements RateSource.
func (s *HTTPSource) Name() Source { return s.name }

// FetchTable implements RateSource.
func (s *HTTPSource) FetchTable(ctx context.Context, date time.Time) (*Table, error) {
	endpoint := fmt.Sprintf("%s/%s?base=%s", s.baseURL, date.Format("2006-01-02"), url.QueryEscape(s.base))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build rate request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s rates: %w", s.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s rates: unexpected status %d", s.name, resp.StatusCode)
	}

	var dto tableDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return nil, fmt.Errorf("decode %s rates: %w", s.name, err)
	}

	table := &Table{
		Base:  dto.Base,
		Date:  date,
		Rates: make(map[string]decimal.Decimal, len(dto.Rates)),
	}
	for code, rate := range dto.Rates {
		if rate <= 0 {
			continue
		}
		table.Rates[code] = decimal.NewFromFloat(rate)
	}
	if len(table.Rates) == 0 {
		return nil, fmt.Errorf("fetch %s rates: empty table", s.name)
	}
	return table, nil
}
