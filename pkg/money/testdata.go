package money

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

// TestDataGenerator produces realistic expense-bot fixtures using gofakeit:
// free-form chat messages and the ledger entries they should become.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

// NewTestDataGenerator creates a new test data generator with a random seed.
func NewTestDataGenerator() *TestDataGenerator {
	return &TestDataGenerator{
		faker: gofakeit.New(0), // Random seed
	}
}

// NewTestDataGeneratorWithSeed creates a generator with a specific seed for reproducibility.
func NewTestDataGeneratorWithSeed(seed int64) *TestDataGenerator {
	return &TestDataGenerator{
		faker: gofakeit.New(seed),
	}
}

// TestEntry is a generated transaction the way the bot would record one.
type TestEntry struct {
	ID          uuid.UUID
	Date        time.Time
	Description string
	Amount      *Money
	Category    string
	IsIncome    bool
}

var expenseCategories = []string{
	"☕ Cafe", "Groceries", "Taxi", "Gas Station", "Entertainment",
	"Health", "Clothes", "Utilities", "Travel", "Electronics",
	"Beauty", "Pets", "Education", "Gifts", "Sport",
}

var expenseDescriptions = []string{
	"coffee", "latte and croissant", "weekly groceries", "taxi home",
	"metro pass", "petrol fill-up", "pharmacy", "cinema tickets",
	"gym membership", "phone bill", "new sneakers", "dog food",
	"flowers", "lunch with friends", "haircut",
}

var incomeDescriptions = []string{
	"salary", "freelance payment", "cashback", "tax refund", "bonus",
}

// Entry generates a single random expense entry in the given currency.
func (g *TestDataGenerator) Entry(currency string) TestEntry {
	return TestEntry{
		ID:          uuid.New(),
		Date:        g.faker.DateRange(time.Now().AddDate(0, -1, 0), time.Now()),
		Description: g.pick(expenseDescriptions),
		Amount:      g.RandomAmount(currency, 100, 500000),
		Category:    g.pick(expenseCategories),
	}
}

// IncomeEntry generates a random income entry.
func (g *TestDataGenerator) IncomeEntry(currency string) TestEntry {
	e := g.Entry(currency)
	e.Description = g.pick(incomeDescriptions)
	e.Amount = g.RandomAmount(currency, 10000000, 50000000)
	e.Category = ""
	e.IsIncome = true
	return e
}

// Message renders an entry the way a user would type it: description,
// amount, and sometimes an explicit currency.
func (g *TestDataGenerator) Message(e TestEntry) string {
	if g.faker.Bool() {
		return fmt.Sprintf("%s %s %s", e.Description, e.Amount.String(), e.Amount.Currency())
	}
	return fmt.Sprintf("%s %s", e.Description, e.Amount.String())
}

// RandomAmount generates a random Money value within a minor-unit range.
func (g *TestDataGenerator) RandomAmount(currency string, minMinor, maxMinor int64) *Money {
	if minMinor > maxMinor {
		minMinor, maxMinor = maxMinor, minMinor
	}
	minor := g.faker.Int64() % (maxMinor - minMinor + 1)
	if minor < 0 {
		minor = -minor
	}
	return New(minMinor+minor, currency)
}

// MonthlyEntrySet generates a realistic month of ledger entries: one or
// two income deposits plus a few dozen daily expenses.
func (g *TestDataGenerator) MonthlyEntrySet(currency string) []TestEntry {
	entries := make([]TestEntry, 0, 45)

	paychecks := g.faker.Number(1, 2)
	for i := 0; i < paychecks; i++ {
		entries = append(entries, g.IncomeEntry(currency))
	}

	expenses := g.faker.Number(20, 40)
	for i := 0; i < expenses; i++ {
		entries = append(entries, g.Entry(currency))
	}

	return entries
}

func (g *TestDataGenerator) pick(options []string) string {
	return options[g.faker.Number(0, len(options)-1)]
}
