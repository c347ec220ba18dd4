package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/ledger-lens/internal/domain/category"
	"github.com/FACorreiaa/ledger-lens/internal/domain/parse"
)

const (
	// DefaultBaseURL is the Gemini REST endpoint root.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// RequestTimeout for generate requests.
	RequestTimeout = 10 * time.Second
)

// ErrEmptyResponse is returned when the model answers with no usable text.
var ErrEmptyResponse = errors.New("ai: empty model response")

// Client talks to the generative-text API. It implements
// parse.TextService and category.KeywordAdvisor.
type Client struct {
	client  *http.Client
	baseURL string
	model   string
	keys    *KeyRing
	logger  *slog.Logger
}

// NewClient creates a client for the given model. baseURL may be empty to
// use the public endpoint.
func NewClient(baseURL, model string, keys *KeyRing, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		client:  &http.Client{Timeout: RequestTimeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		keys:    keys,
		logger:  logger,
	}
}

// Wire shapes of the generateContent API.

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// parsedTransactionDTO is the JSON object the model is instructed to reply
// with for parse requests.
type parsedTransactionDTO struct {
	Amount      json.Number `json:"amount"`
	Currency    string      `json:"currency"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	IsIncome    bool        `json:"is_income"`
	Date        string      `json:"date"`
	Confidence  float64     `json:"confidence"`
}

// ParseTransaction asks the model to extract a structured transaction from
// free text. The caller bounds the context; failures must be treated as
// best-effort by contract.
func (c *Client) ParseTransaction(ctx context.Context, text string, rc parse.RequestContext) (*parse.Transaction, error) {
	prompt := buildParsePrompt(text, rc)

	raw, err := c.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var dto parsedTransactionDTO
	if err := json.Unmarshal([]byte(extractJSON(raw)), &dto); err != nil {
		return nil, fmt.Errorf("ai: malformed parse response: %w", err)
	}

	amount, err := decimal.NewFromString(dto.Amount.String())
	if err != nil {
		return nil, fmt.Errorf("ai: unparseable amount %q: %w", dto.Amount, err)
	}

	tx := &parse.Transaction{
		Amount:        amount,
		Currency:      strings.ToUpper(strings.TrimSpace(dto.Currency)),
		Description:   strings.TrimSpace(dto.Description),
		CategoryLabel: strings.TrimSpace(dto.Category),
		IsIncome:      dto.IsIncome,
		Confidence:    dto.Confidence,
		Source:        parse.SourceAI,
	}
	if dto.Date != "" {
		if date, err := time.Parse("2006-01-02", dto.Date); err == nil {
			tx.Date = date
		}
	}
	return tx, nil
}

// keywordChangesDTO is the reply shape for advisor requests.
type keywordChangesDTO struct {
	Changes []struct {
		Category string `json:"category"`
		Keyword  string `json:"keyword"`
		Remove   bool   `json:"remove"`
	} `json:"changes"`
}

// SuggestKeywords asks the model for keyword additions and removals across
// the whole category set. Suggestions naming unknown categories are dropped.
func (c *Client) SuggestKeywords(ctx context.Context, cats []category.Category) ([]category.KeywordChange, error) {
	prompt := buildAdvisorPrompt(cats)

	raw, err := c.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var dto keywordChangesDTO
	if err := json.Unmarshal([]byte(extractJSON(raw)), &dto); err != nil {
		return nil, fmt.Errorf("ai: malformed advisor response: %w", err)
	}

	byName := make(map[string]uuid.UUID, len(cats))
	for _, cat := range cats {
		byName[strings.ToLower(strings.TrimSpace(cat.Name))] = cat.ID
	}

	changes := make([]category.KeywordChange, 0, len(dto.Changes))
	for _, ch := range dto.Changes {
		id, ok := byName[strings.ToLower(strings.TrimSpace(ch.Category))]
		if !ok || ch.Keyword == "" {
			continue
		}
		changes = append(changes, category.KeywordChange{
			CategoryID: id,
			Keyword:    ch.Keyword,
			Remove:     ch.Remove,
		})
	}
	return changes, nil
}

// generate performs one generateContent call and returns the first
// candidate's text.
func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("ai: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.keys.Next())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("ai: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ai: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ai: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("ai request rejected", "status", resp.StatusCode, "model", c.model)
		return "", fmt.Errorf("ai: unexpected status %d", resp.StatusCode)
	}

	var gen generateResponse
	if err := json.Unmarshal(body, &gen); err != nil {
		return "", fmt.Errorf("ai: decode response: %w", err)
	}
	if len(gen.Candidates) == 0 || len(gen.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}

	text := gen.Candidates[0].Content.Parts[0].Text
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func buildParsePrompt(text string, rc parse.RequestContext) string {
	var b strings.Builder
	b.WriteString("Extract one financial transaction from the message below. ")
	b.WriteString("Reply with a single JSON object with keys: amount (number), currency (ISO 4217), ")
	b.WriteString("description (string), category (string), is_income (bool), date (YYYY-MM-DD or empty), confidence (0..1).\n")
	if rc.DefaultCurrency != "" {
		fmt.Fprintf(&b, "Default currency: %s.\n", rc.DefaultCurrency)
	}
	if len(rc.Currencies) > 0 {
		fmt.Fprintf(&b, "Known currencies: %s.\n", strings.Join(rc.Currencies, ", "))
	}
	if len(rc.Categories) > 0 {
		fmt.Fprintf(&b, "Pick the category from: %s.\n", strings.Join(rc.Categories, ", "))
	}
	fmt.Fprintf(&b, "Message: %q", text)
	return b.String()
}

func buildAdvisorPrompt(cats []category.Category) string {
	var b strings.Builder
	b.WriteString("The user tracks expenses under the categories below, each with learned keywords. ")
	b.WriteString("Suggest keyword additions that reduce ambiguity between categories, and removals for keywords ")
	b.WriteString(`that fit several categories. Reply with one JSON object: {"changes":[{"category":"...","keyword":"...","remove":false}]}.` + "\n")
	for _, cat := range cats {
		fmt.Fprintf(&b, "- %s: %s\n", cat.Name, strings.Join(cat.Keywords, ", "))
	}
	return b.String()
}

// extractJSON cuts the outermost JSON object out of a model reply, which may
// wrap it in prose or a code fence.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}
