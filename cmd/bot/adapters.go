package main

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/FACorreiaa/ledger-lens/internal/bot"
	"github.com/FACorreiaa/ledger-lens/internal/domain/classify"
	"github.com/FACorreiaa/ledger-lens/internal/domain/ledger"
	"github.com/FACorreiaa/ledger-lens/internal/domain/pipeline"
	"github.com/FACorreiaa/ledger-lens/internal/domain/profile"
	"github.com/FACorreiaa/ledger-lens/pkg/money"
)

// profileAdapter adapts profile.Repository to the pipeline's ProfileStore
// and SubscriptionStore interfaces.
type profileAdapter struct {
	repo *profile.Repository
}

func newProfileAdapter(repo *profile.Repository) *profileAdapter {
	return &profileAdapter{repo: repo}
}

// Profile implements pipeline.ProfileStore
func (a *profileAdapter) Profile(ctx context.Context, userID uuid.UUID) (pipeline.Profile, error) {
	p, err := a.repo.Get(ctx, userID)
	if err != nil {
		return pipeline.Profile{}, err
	}
	return pipeline.Profile{
		Currency:     p.Currency,
		MainCurrency: p.MainCurrency,
		AutoConvert:  p.AutoConvert,
	}, nil
}

// HasActive implements pipeline.SubscriptionStore
func (a *profileAdapter) HasActive(ctx context.Context, userID uuid.UUID) (bool, error) {
	return a.repo.HasActiveSubscription(ctx, userID)
}

// ledgerRecorder adapts ledger.Repository to bot.Recorder, converting
// decimal amounts to integer minor units on the way in.
type ledgerRecorder struct {
	repo *ledger.Repository
}

func newLedgerRecorder(repo *ledger.Repository) bot.Recorder {
	return &ledgerRecorder{repo: repo}
}

// Record implements bot.Recorder
func (r *ledgerRecorder) Record(ctx context.Context, rec bot.Record) error {
	tx := rec.Transaction

	entry := &ledger.Entry{
		UserID:       rec.UserID,
		AmountMinor:  money.NewFromDecimal(tx.Amount, tx.Currency).Amount(),
		CurrencyCode: tx.Currency,
		Description:  tx.Description,
		CategoryID:   rec.CategoryID,
		IsIncome:     tx.IsIncome,
		OccurredAt:   tx.Date,
		Source:       string(tx.Source),
	}

	if conv := rec.Conversion; conv != nil && conv.OriginalAmount != nil && conv.OriginalCurrency != nil {
		entry.AmountMinor = money.NewFromDecimal(conv.Amount, conv.Currency).Amount()
		entry.CurrencyCode = conv.Currency
		origMinor := money.NewFromDecimal(*conv.OriginalAmount, *conv.OriginalCurrency).Amount()
		entry.OriginalAmount = &origMinor
		entry.OriginalCurrency = conv.OriginalCurrency
		entry.ExchangeRate = conv.ExchangeRate
	}

	return r.repo.Insert(ctx, entry)
}

// logReplier stands in for the chat transport, which lives outside this
// service. Each outcome is logged where a sender would render it.
type logReplier struct {
	logger *slog.Logger
}

func newLogReplier(logger *slog.Logger) bot.Replier {
	return &logReplier{logger: logger}
}

func (r *logReplier) Clarify(_ context.Context, userID uuid.UUID, reason string) error {
	r.logger.Info("clarification requested", "user_id", userID, "reason", reason)
	return nil
}

func (r *logReplier) Chat(_ context.Context, userID uuid.UUID, result classify.Result) error {
	r.logger.Info("chat reply", "user_id", userID, "confidence", result.Confidence)
	return nil
}

func (r *logReplier) Report(_ context.Context, userID uuid.UUID, intent classify.ShowIntent) error {
	r.logger.Info("report requested", "user_id", userID, "has_period", intent.Period != nil)
	return nil
}

func (r *logReplier) Deny(_ context.Context, userID uuid.UUID, reason string) error {
	r.logger.Info("message denied", "user_id", userID, "reason", reason)
	return nil
}

func (r *logReplier) Confirm(_ context.Context, userID uuid.UUID, rec bot.Record) error {
	amount := money.NewFromDecimal(rec.Transaction.Amount, rec.Transaction.Currency)
	r.logger.Info("transaction recorded",
		"user_id", userID,
		"amount", amount.Display(),
		"category", rec.Transaction.CategoryLabel,
	)
	return nil
}
