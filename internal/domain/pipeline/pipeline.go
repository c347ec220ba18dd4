// Package pipeline orchestrates the message flow: capability checks, intent
// detection, classification, extraction, category resolution and optional
// currency conversion. It produces a structured outcome for the bot layer
// and never lets a collaborator failure escape as a panic or a lost message.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/FACorreiaa/ledger-lens/internal/domain/category"
	"github.com/FACorreiaa/ledger-lens/internal/domain/classify"
	"github.com/FACorreiaa/ledger-lens/internal/domain/currency"
	"github.com/FACorreiaa/ledger-lens/internal/domain/parse"
)

// showIntentThreshold is the confidence above which a show-request bypasses
// the classifier entirely, so an obvious report query never costs an AI call.
const showIntentThreshold = 0.7

// OutcomeKind says which branch the message took.
type OutcomeKind int

const (
	OutcomeRecord OutcomeKind = iota
	OutcomeChat
	OutcomeReport
	OutcomeClarify
	OutcomeDenied
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeRecord:
		return "record"
	case OutcomeChat:
		return "chat"
	case OutcomeReport:
		return "report"
	case OutcomeClarify:
		return "clarify"
	case OutcomeDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Clarification reasons handed to the reply layer.
const (
	ClarifyNoAmount      = "amount_missing"
	ClarifyInvalidAmount = "amount_invalid"
	ClarifyNoDescription = "description_missing"
)

// Outcome is the pipeline's verdict for one message.
type Outcome struct {
	Kind           OutcomeKind
	Transaction    *parse.Transaction
	Category       *category.Category
	Conversion     *currency.Conversion
	Classification classify.Result
	Intent         *classify.ShowIntent
	ClarifyReason  string
	DenyReason     string
}

// Profile is the slice of user settings the pipeline needs.
type Profile struct {
	Currency     string // currency new records default to
	MainCurrency string // currency to auto-convert into
	AutoConvert  bool
}

// ProfileStore supplies per-user settings.
type ProfileStore interface {
	Profile(ctx context.Context, userID uuid.UUID) (Profile, error)
}

// Message is one inbound message. Voice messages arrive here already
// transcribed; the pipeline makes no distinction.
type Message struct {
	UserID uuid.UUID
	Text   string
}

// Pipeline wires the stages together.
type Pipeline struct {
	intents    *classify.IntentDetector
	classifier *classify.Classifier
	extractor  *parse.Extractor
	resolver   *category.Resolver
	converter  *currency.Converter
	profiles   ProfileStore
	checks     []Check
	metrics    *Metrics
	tracer     trace.Tracer
	logger     *slog.Logger
	now        func() time.Time
}

// Config carries the pipeline's collaborators. Converter and Metrics are
// optional; everything else is required.
type Config struct {
	Intents    *classify.IntentDetector
	Classifier *classify.Classifier
	Extractor  *parse.Extractor
	Resolver   *category.Resolver
	Converter  *currency.Converter
	Profiles   ProfileStore
	Checks     []Check
	Metrics    *Metrics
	Tracer     trace.Tracer
	Logger     *slog.Logger
}

func New(cfg Config) *Pipeline {
	return &Pipeline{
		intents:    cfg.Intents,
		classifier: cfg.Classifier,
		extractor:  cfg.Extractor,
		resolver:   cfg.Resolver,
		converter:  cfg.Converter,
		profiles:   cfg.Profiles,
		checks:     cfg.Checks,
		metrics:    cfg.Metrics,
		tracer:     cfg.Tracer,
		logger:     cfg.Logger,
		now:        time.Now,
	}
}

// Handle runs one message through the full flow.
func (p *Pipeline) Handle(ctx context.Context, msg Message) Outcome {
	ctx, span := p.startSpan(ctx, msg)
	defer span.End()

	for _, check := range p.checks {
		if decision := check.Allow(ctx, msg.UserID); !decision.Allowed {
			p.metrics.observeDenial(decision.Reason)
			return p.finish(span, Outcome{Kind: OutcomeDenied, DenyReason: decision.Reason})
		}
	}

	intent := p.intents.Detect(msg.Text)
	if intent.IsShowRequest && intent.Confidence >= showIntentThreshold {
		return p.finish(span, Outcome{Kind: OutcomeReport, Intent: &intent})
	}

	cls := p.classifier.Classify(msg.Text)
	p.metrics.observeLabel(string(cls.Label))
	if cls.Label == classify.LabelChat {
		return p.finish(span, Outcome{Kind: OutcomeChat, Classification: cls})
	}

	profile := p.profileFor(ctx, msg.UserID)

	tx, err := p.extractor.Extract(ctx, msg.Text, parse.Options{
		DefaultCurrency: profile.Currency,
		Today:           p.now(),
	})
	if err != nil {
		reason := clarifyReason(err)
		p.metrics.observeClarification(reason)
		return p.finish(span, Outcome{Kind: OutcomeClarify, Classification: cls, ClarifyReason: reason})
	}
	if tx.Source == parse.SourceAI {
		p.metrics.observeAIFallback()
	}

	outcome := Outcome{
		Kind:           OutcomeRecord,
		Transaction:    tx,
		Classification: cls,
	}

	label := tx.CategoryLabel
	if label == "" {
		label = tx.Description
	}
	cat, err := p.resolver.Resolve(ctx, msg.UserID, label)
	if err != nil {
		// The record still goes through with its raw label; categorizing
		// later is better than losing the entry now.
		p.logger.Warn("category resolution failed", "user_id", msg.UserID, "error", err)
	} else {
		outcome.Category = cat
		tx.CategoryLabel = cat.Name
	}

	if p.shouldConvert(profile, tx) {
		conv := p.converter.Convert(ctx, tx.Amount, tx.Currency, profile.MainCurrency, tx.Date)
		p.metrics.observeConversion(conv.ExchangeRate == nil)
		outcome.Conversion = &conv
	}

	return p.finish(span, outcome)
}

func (p *Pipeline) shouldConvert(profile Profile, tx *parse.Transaction) bool {
	return p.converter != nil &&
		profile.AutoConvert &&
		profile.MainCurrency != "" &&
		tx.Currency != profile.MainCurrency
}

// profileFor fails open with an empty profile: a settings-store outage must
// not block recording, it only costs the currency default.
func (p *Pipeline) profileFor(ctx context.Context, userID uuid.UUID) Profile {
	profile, err := p.profiles.Profile(ctx, userID)
	if err != nil {
		p.logger.Warn("profile lookup failed", "user_id", userID, "error", err)
		return Profile{}
	}
	return profile
}

func clarifyReason(err error) string {
	switch {
	case errors.Is(err, parse.ErrInvalidAmount):
		return ClarifyInvalidAmount
	case errors.Is(err, parse.ErrNoDescription):
		return ClarifyNoDescription
	default:
		return ClarifyNoAmount
	}
}

func (p *Pipeline) startSpan(ctx context.Context, msg Message) (context.Context, trace.Span) {
	if p.tracer == nil {
		return noop.NewTracerProvider().Tracer("").Start(ctx, "pipeline.handle")
	}
	return p.tracer.Start(ctx, "pipeline.handle",
		trace.WithAttributes(attribute.Int("message.length", len(msg.Text))))
}

func (p *Pipeline) finish(span trace.Span, outcome Outcome) Outcome {
	span.SetAttributes(attribute.String("pipeline.outcome", outcome.Kind.String()))
	p.metrics.observeOutcome(outcome.Kind)
	return outcome
}
