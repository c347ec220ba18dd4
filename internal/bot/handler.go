// Package bot glues the messaging surface to the pipeline. It owns no
// Telegram specifics: transport, rendering and persistence live behind the
// Recorder and Replier collaborators.
package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/FACorreiaa/ledger-lens/internal/domain/classify"
	"github.com/FACorreiaa/ledger-lens/internal/domain/currency"
	"github.com/FACorreiaa/ledger-lens/internal/domain/parse"
	"github.com/FACorreiaa/ledger-lens/internal/domain/pipeline"
)

// Record is the persisted form of a parsed transaction, including conversion
// provenance when auto-convert ran.
type Record struct {
	UserID      uuid.UUID
	Transaction *parse.Transaction
	CategoryID  *uuid.UUID
	Conversion  *currency.Conversion
}

// Recorder persists finished records. The handler never writes storage
// directly.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// Replier delivers the non-record outcomes back to the user.
type Replier interface {
	Clarify(ctx context.Context, userID uuid.UUID, reason string) error
	Chat(ctx context.Context, userID uuid.UUID, result classify.Result) error
	Report(ctx context.Context, userID uuid.UUID, intent classify.ShowIntent) error
	Deny(ctx context.Context, userID uuid.UUID, reason string) error
	Confirm(ctx context.Context, userID uuid.UUID, rec Record) error
}

// Learner reinforces category keywords when the user manually moves a
// recorded entry to a different category. Automatic resolutions never feed
// back into it.
type Learner interface {
	Reinforce(ctx context.Context, userID, categoryID uuid.UUID, description string) error
}

// Handler routes one inbound message end to end.
type Handler struct {
	pipeline *pipeline.Pipeline
	recorder Recorder
	replier  Replier
	learner  Learner
	logger   *slog.Logger
}

func NewHandler(p *pipeline.Pipeline, recorder Recorder, replier Replier, logger *slog.Logger) *Handler {
	return &Handler{pipeline: p, recorder: recorder, replier: replier, logger: logger}
}

// WithLearner enables keyword reinforcement on manual re-categorization.
func (h *Handler) WithLearner(l Learner) *Handler {
	h.learner = l
	return h
}

// HandleRecategorize runs when the user moves an already recorded entry to a
// different category. The correction is the one signal worth learning from,
// so it is the only path that teaches keywords.
func (h *Handler) HandleRecategorize(ctx context.Context, userID, categoryID uuid.UUID, description string) error {
	if h.learner == nil {
		return nil
	}
	if err := h.learner.Reinforce(ctx, userID, categoryID, description); err != nil {
		return fmt.Errorf("reinforce keywords: %w", err)
	}
	return nil
}

// HandleText processes a typed message.
func (h *Handler) HandleText(ctx context.Context, userID uuid.UUID, text string) error {
	return h.dispatch(ctx, pipeline.Message{UserID: userID, Text: text})
}

// HandleTranscript processes a voice message that upstream speech-to-text
// already turned into plain text. Transcripts get no special treatment.
func (h *Handler) HandleTranscript(ctx context.Context, userID uuid.UUID, transcript string) error {
	return h.dispatch(ctx, pipeline.Message{UserID: userID, Text: transcript})
}

func (h *Handler) dispatch(ctx context.Context, msg pipeline.Message) error {
	outcome := h.pipeline.Handle(ctx, msg)

	switch outcome.Kind {
	case pipeline.OutcomeRecord:
		rec := Record{
			UserID:      msg.UserID,
			Transaction: outcome.Transaction,
			Conversion:  outcome.Conversion,
		}
		if outcome.Category != nil {
			id := outcome.Category.ID
			rec.CategoryID = &id
		}
		if err := h.recorder.Record(ctx, rec); err != nil {
			return fmt.Errorf("persist record: %w", err)
		}
		return h.replier.Confirm(ctx, msg.UserID, rec)

	case pipeline.OutcomeChat:
		return h.replier.Chat(ctx, msg.UserID, outcome.Classification)

	case pipeline.OutcomeReport:
		return h.replier.Report(ctx, msg.UserID, *outcome.Intent)

	case pipeline.OutcomeClarify:
		return h.replier.Clarify(ctx, msg.UserID, outcome.ClarifyReason)

	case pipeline.OutcomeDenied:
		return h.replier.Deny(ctx, msg.UserID, outcome.DenyReason)

	default:
		h.logger.Error("unhandled pipeline outcome", "kind", outcome.Kind)
		return fmt.Errorf("unhandled outcome kind %d", outcome.Kind)
	}
}
