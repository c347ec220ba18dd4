package parse

import (
	"context"
	"log/slog"
	"time"
)

// highConfidence is the cutoff above which the heuristic result is kept
// without consulting the AI service. AI is the fallback, not the primary
// path; every call costs money and latency.
const highConfidence = 0.8

// defaultAITimeout bounds the AI call so a slow collaborator can never stall
// message handling.
const defaultAITimeout = 8 * time.Second

// TextService is the AI collaborator that parses ambiguous input. It must be
// treated as best-effort: any error from it degrades to the heuristic result.
type TextService interface {
	ParseTransaction(ctx context.Context, text string, rc RequestContext) (*Transaction, error)
}

// RequestContext gives the AI service the vocabulary to answer in.
type RequestContext struct {
	Categories      []string
	Currencies      []string
	DefaultCurrency string
}

// Extractor combines the heuristic parser with the AI fallback.
type Extractor struct {
	parser    *Parser
	ai        TextService
	aiTimeout time.Duration
	logger    *slog.Logger

	// Categories supplies the user's category names for the AI context.
	// Optional; nil means no category hints.
	Categories func(ctx context.Context) []string
}

// NewExtractor wires the heuristic parser with an optional AI fallback.
// A nil TextService disables the fallback entirely.
func NewExtractor(ai TextService, logger *slog.Logger) *Extractor {
	return &Extractor{
		parser:    NewParser(),
		ai:        ai,
		aiTimeout: defaultAITimeout,
		logger:    logger,
	}
}

// Extract parses the text, preferring the heuristic result whenever it is
// confident. AI failures are logged and swallowed; the caller only ever sees
// the heuristic error taxonomy.
func (e *Extractor) Extract(ctx context.Context, text string, opts Options) (*Transaction, error) {
	heuristic, herr := e.parser.Parse(text, opts)
	if herr == nil && heuristic.Confidence >= highConfidence {
		return heuristic, nil
	}

	if e.ai != nil {
		if tx := e.tryAI(ctx, text, opts); tx != nil {
			return tx, nil
		}
	}

	return heuristic, herr
}

func (e *Extractor) tryAI(ctx context.Context, text string, opts Options) *Transaction {
	aiCtx, cancel := context.WithTimeout(ctx, e.aiTimeout)
	defer cancel()

	rc := RequestContext{DefaultCurrency: opts.DefaultCurrency}
	if e.Categories != nil {
		rc.Categories = e.Categories(ctx)
	}

	tx, err := e.ai.ParseTransaction(aiCtx, text, rc)
	if err != nil {
		e.logger.Warn("ai parse fallback failed", slog.Any("error", err))
		return nil
	}
	if tx == nil || tx.Amount.Sign() <= 0 {
		return nil
	}
	if tx.Currency == "" {
		tx.Currency = opts.DefaultCurrency
	}
	if tx.Date.IsZero() {
		today := opts.Today
		if today.IsZero() {
			today = time.Now()
		}
		tx.Date = truncateDay(today)
	}
	tx.Source = SourceAI
	return tx
}
