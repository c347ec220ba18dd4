// Package parse extracts a structured transaction candidate from free text:
// amount, currency, optional embedded date and income/expense direction.
package parse

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Sentinel errors. ErrNoAmount means "ask the user for the amount";
// ErrInvalidAmount means a number was found but failed validation. Callers
// must distinguish the two for user-facing messaging.
var (
	ErrNoAmount      = errors.New("no amount found")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrNoDescription = errors.New("no description")
)

// Source identifies which engine produced a transaction candidate.
type Source string

const (
	SourceHeuristic Source = "heuristic"
	SourceAI        Source = "ai"
)

// Transaction is the parsed candidate handed to the persistence layer.
type Transaction struct {
	Amount        decimal.Decimal
	Currency      string
	Description   string
	CategoryLabel string
	Date          time.Time
	IsIncome      bool
	Confidence    float64
	Source        Source
}

// Options tune a single parse call.
type Options struct {
	// DefaultCurrency is the user's locale currency, applied when the text
	// names none.
	DefaultCurrency string
	// AllowBareAmount permits input that is only a number, used after a
	// clarification prompt where the description is already known.
	AllowBareAmount bool
	// Today anchors relative and default dates; zero means time.Now.
	Today time.Time
}

// maxAmount rejects absurd values before they reach storage.
var maxAmount = decimal.NewFromInt(1_000_000_000)

// currencySuffixes maps amount suffix words and symbols to ISO-4217 codes.
var currencySuffixes = map[string]string{
	"rub": "RUB", "rubles": "RUB", "р": "RUB", "₽": "RUB", "руб": "RUB",
	"tenge": "KZT", "тг": "KZT", "kzt": "KZT",
	"$": "USD", "usd": "USD", "dollar": "USD", "dollars": "USD",
	"€": "EUR", "eur": "EUR", "euro": "EUR", "euros": "EUR",
	"£": "GBP", "gbp": "GBP", "pound": "GBP", "pounds": "GBP",
	"uah": "UAH", "грн": "UAH",
}

var (
	// Trailing amount: optional plus sign, integer part with optional
	// space-grouped thousands, optional decimal part, optional suffix.
	amountRe = regexp.MustCompile(`(\+\s*)?\b([1-9]\d{0,2}(?:[ \x{00a0}]\d{3})+|\d+)(?:[.,](\d{1,2}))?\s*(%|[^\s\d]{1,7})?\s*$`)
	// Embedded explicit date inside the description.
	embeddedDateRe = regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})(?:\.(\d{2,4}))?\b`)
	spaceRe        = regexp.MustCompile(`\s+`)
)

// Parser is the heuristic extractor. It is pure and cheap; the AI path only
// runs when this one is not confident.
type Parser struct{}

// NewParser creates a heuristic parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse splits `<description> <amount>[<currency>]` input. It returns
// ErrNoAmount when no plausible number exists, ErrInvalidAmount for zero,
// negative, overflowing or malformed amounts, and ErrNoDescription for a
// bare amount when Options.AllowBareAmount is off.
func (p *Parser) Parse(text string, opts Options) (*Transaction, error) {
	// Trailing sentence punctuation would otherwise be captured as an
	// unknown currency suffix ("Taxi 500." must parse, "room 12b" must not).
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimSpace(strings.TrimRight(trimmed, ".,!;:…"))
	if trimmed == "" {
		return nil, ErrNoAmount
	}

	today := opts.Today
	if today.IsZero() {
		today = time.Now()
	}

	m := amountRe.FindStringSubmatchIndex(trimmed)
	if m == nil {
		return nil, ErrNoAmount
	}

	tx := &Transaction{
		Currency:   opts.DefaultCurrency,
		Date:       truncateDay(today),
		Source:     SourceHeuristic,
		Confidence: 0.9,
	}

	// Suffix token, if any, must be a known currency word or a percent sign;
	// otherwise the match is not a trailing amount at all (e.g. "room 12b").
	if m[8] >= 0 {
		suffix := strings.ToLower(trimmed[m[8]:m[9]])
		if suffix != "%" {
			code, known := currencySuffixes[suffix]
			if !known {
				return nil, ErrNoAmount
			}
			tx.Currency = code
			tx.Confidence = 0.95
		}
	} else {
		tx.Confidence = 0.85
	}

	// Income marker: a "+" directly before the number, or separated from it
	// only by whitespace ("Salary + 5000", "Salary +5000", "+ 5000").
	start := m[0]
	if m[2] >= 0 {
		tx.IsIncome = true
	}

	// Amount value: strip thousands spaces, normalize the decimal comma.
	intPart := strings.NewReplacer(" ", "", " ", "").Replace(trimmed[m[4]:m[5]])
	raw := intPart
	if m[6] >= 0 {
		raw += "." + trimmed[m[6]:m[7]]
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, ErrInvalidAmount
	}
	if amount.Sign() <= 0 || amount.GreaterThan(maxAmount) {
		return nil, ErrInvalidAmount
	}
	tx.Amount = amount

	// Whatever precedes the amount is the description, minus any embedded
	// explicit date, which becomes the transaction date.
	desc := trimmed[:start]
	if dm := embeddedDateRe.FindStringSubmatch(desc); dm != nil {
		if d := parseEmbeddedDate(dm, today); d != nil {
			tx.Date = *d
			desc = strings.Replace(desc, dm[0], " ", 1)
		}
	}
	tx.Description = cleanDescription(desc)

	if tx.Description == "" && !opts.AllowBareAmount {
		return nil, ErrNoDescription
	}
	return tx, nil
}

// parseEmbeddedDate validates a DD.MM[.YYYY] token. A two-digit year is
// pivoted into 20xx. Returns nil when the token is not a real date.
func parseEmbeddedDate(m []string, today time.Time) *time.Time {
	dayNum, _ := strconv.Atoi(m[1])
	monthNum, _ := strconv.Atoi(m[2])
	if dayNum < 1 || dayNum > 31 || monthNum < 1 || monthNum > 12 {
		return nil
	}
	year := today.Year()
	if m[3] != "" {
		year, _ = strconv.Atoi(m[3])
		if year < 100 {
			year += 2000
		}
	}
	t := time.Date(year, time.Month(monthNum), dayNum, 0, 0, 0, 0, today.Location())
	if t.Day() != dayNum || t.Month() != time.Month(monthNum) {
		return nil
	}
	return &t
}

func cleanDescription(desc string) string {
	desc = strings.Trim(spaceRe.ReplaceAllString(desc, " "), " -–,.")
	if desc == "" {
		return ""
	}
	// Capitalize the first letter for display.
	runes := []rune(desc)
	return strings.ToUpper(string(runes[0])) + string(runes[1:])
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
