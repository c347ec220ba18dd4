// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/FACorreiaa/ledger-lens/internal/domain/currency"
)

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron      *cron.Cron
	converter *currency.Converter
	logger    *slog.Logger
}

// NewScheduler creates a new job scheduler.
func NewScheduler(converter *currency.Converter, logger *slog.Logger) *Scheduler {
	// Create cron with seconds disabled (standard 5-field format)
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:      c,
		converter: converter,
		logger:    logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	// Rate prefetch: runs daily at 6:00 AM, after providers publish
	// the day's table.
	_, err := s.cron.AddFunc("0 6 * * *", s.prefetchRates)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers the rate prefetch (for startup warm-up/admin).
func (s *Scheduler) RunNow() {
	go s.prefetchRates()
}

// prefetchRates warms the converter cache with today's exchange-rate
// table so the first conversion of the day never blocks on a provider.
func (s *Scheduler) prefetchRates() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	s.logger.Info("starting daily rate prefetch")

	if err := s.converter.Prefetch(ctx, time.Now()); err != nil {
		s.logger.Error("rate prefetch failed", slog.Any("error", err))
		return
	}

	s.logger.Info("daily rate prefetch completed")
}
