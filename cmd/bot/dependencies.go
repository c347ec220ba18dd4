package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"

	"github.com/FACorreiaa/ledger-lens/internal/ai"
	"github.com/FACorreiaa/ledger-lens/internal/bot"
	"github.com/FACorreiaa/ledger-lens/internal/domain/category"
	"github.com/FACorreiaa/ledger-lens/internal/domain/classify"
	"github.com/FACorreiaa/ledger-lens/internal/domain/currency"
	"github.com/FACorreiaa/ledger-lens/internal/domain/ledger"
	"github.com/FACorreiaa/ledger-lens/internal/domain/nlp"
	"github.com/FACorreiaa/ledger-lens/internal/domain/parse"
	"github.com/FACorreiaa/ledger-lens/internal/domain/pipeline"
	"github.com/FACorreiaa/ledger-lens/internal/domain/profile"
	"github.com/FACorreiaa/ledger-lens/pkg/config"
	"github.com/FACorreiaa/ledger-lens/pkg/cron"
	"github.com/FACorreiaa/ledger-lens/pkg/db"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Repositories
	CategoryRepo *category.Repository
	ProfileRepo  *profile.Repository
	LedgerRepo   *ledger.Repository

	// Services
	AIClient  *ai.Client
	Resolver  *category.Resolver
	Learner   *category.Learner
	Extractor *parse.Extractor
	Converter *currency.Converter
	Pipeline  *pipeline.Pipeline
	Scheduler *cron.Scheduler

	// Handlers
	BotHandler *bot.Handler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	// Initialize database
	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	// Initialize repositories
	if err := deps.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	// Initialize services
	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	// Initialize handlers
	if err := deps.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to init handlers: %w", err)
	}

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	// Run migrations
	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() error {
	d.CategoryRepo = category.NewRepository(d.DB.Pool)
	d.ProfileRepo = profile.NewRepository(d.DB.Pool)
	d.LedgerRepo = ledger.NewRepository(d.DB.Pool)

	d.Logger.Info("repositories initialized")
	return nil
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() error {
	keys, err := ai.NewKeyRing(d.Config.AI.APIKeys)
	if err != nil {
		return fmt.Errorf("failed to init AI key ring: %w", err)
	}
	d.AIClient = ai.NewClient(d.Config.AI.BaseURL, d.Config.AI.Model, keys, d.Logger)

	// Category resolution with keyword learning on top of the AI advisor
	d.Resolver = category.NewResolver(d.CategoryRepo, d.Logger)
	d.Learner = category.NewLearner(d.CategoryRepo, d.AIClient, d.Resolver, d.Logger)

	// Transaction extraction: heuristics first, AI fallback second
	d.Extractor = parse.NewExtractor(d.AIClient, d.Logger)

	// Exchange rates with a primary provider and a fallback chain
	primary := currency.NewHTTPSource(currency.SourcePrimary, d.Config.Rates.PrimaryURL, "USD", 10*time.Second)
	fallback := currency.NewHTTPSource(currency.SourceFallback, d.Config.Rates.FallbackURL, "USD", 10*time.Second)
	d.Converter = currency.NewConverter(primary, fallback, d.Logger)

	profiles := newProfileAdapter(d.ProfileRepo)

	d.Pipeline = pipeline.New(pipeline.Config{
		Intents:    classify.NewIntentDetector(),
		Classifier: classify.NewClassifier(nlp.NewLexiconTagger(nil)),
		Extractor:  d.Extractor,
		Resolver:   d.Resolver,
		Converter:  d.Converter,
		Profiles:   profiles,
		Checks: []pipeline.Check{
			pipeline.NewSubscriptionCheck(profiles, d.Logger),
			pipeline.NewRateLimitCheck(
				float64(d.Config.Bot.RateLimitPerSecond),
				d.Config.Bot.RateLimitBurst,
			),
		},
		Metrics: pipeline.NewMetrics(prometheus.DefaultRegisterer),
		Tracer:  otel.Tracer("ledger-lens/pipeline"),
		Logger:  d.Logger,
	})

	// Daily rate prefetch keeps the first conversion of the day fast
	d.Scheduler = cron.NewScheduler(d.Converter, d.Logger)

	d.Logger.Info("services initialized")
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() error {
	d.BotHandler = bot.NewHandler(
		d.Pipeline,
		newLedgerRecorder(d.LedgerRepo),
		newLogReplier(d.Logger),
		d.Logger,
	).WithLearner(d.Learner)

	d.Logger.Info("handlers initialized")
	return nil
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
