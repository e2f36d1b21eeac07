package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"FeedDigest/internal/artifacts"
	"FeedDigest/internal/config"
	"FeedDigest/internal/dedup"
	"FeedDigest/internal/digest"
	"FeedDigest/internal/infrastructure/delivery"
	"FeedDigest/internal/infrastructure/feed"
	"FeedDigest/internal/infrastructure/llm"
	"FeedDigest/internal/infrastructure/scheduler"
	"FeedDigest/internal/infrastructure/storage"
	"FeedDigest/internal/logging"
	"FeedDigest/internal/ports"
	"FeedDigest/internal/summarize"
	"FeedDigest/internal/themes"
	"FeedDigest/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	sources, err := feed.ParseFeedList(cfg.Feeds.ListPath)
	if err != nil {
		return nil, fmt.Errorf("load feed list: %w", err)
	}

	store := dedup.NewStore(
		cfg.Dedup.StateFile,
		cfg.Dedup.LookbackDays,
		cfg.Dedup.Enabled(),
		baseLogger.With("component", "dedup"),
	)

	fetcher := feed.NewFetcher(
		sources,
		store,
		cfg.Feeds.MaxFeeds,
		cfg.Feeds.MaxItemsPerFeed,
		cfg.Feeds.Timeout,
		baseLogger.With("component", "fetcher"),
	)

	client := llm.NewClient(cfg.Models)

	var deliverer ports.Deliverer
	if cfg.Email.Enabled {
		deliverer = delivery.NewEmailSender(cfg.Email, baseLogger.With("component", "email"))
	}

	var archive ports.RunArchive
	if cfg.Database.DSN != "" {
		opened, err := storage.Open(cfg.Database.DSN)
		if err != nil {
			baseLogger.Warn("run archive unavailable", "error", err)
		} else {
			archive = opened
		}
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:      fetcher,
		Dedup:       store,
		Summarizer:  summarize.New(client, cfg.Models, baseLogger.With("component", "summarizer")),
		Linker:      themes.NewLinker(client, cfg.Models, baseLogger.With("component", "themes")),
		Synthesizer: digest.NewSynthesizer(client, cfg.Models, cfg.Pricing, baseLogger.With("component", "synthesizer")),
		Artifacts:   artifacts.NewStore(cfg.Reports.Dir),
		Deliverer:   deliverer,
		Archive:     archive,
		Logger:      baseLogger.With("component", "pipeline"),
	})

	driver := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location())

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		pipeline:  pipeline,
		scheduler: usecase.NewScheduler(driver, pipeline),
	}, nil
}

// RunOnce performs a single pipeline execution.
func (a *Application) RunOnce(ctx context.Context) error {
	_, err := a.pipeline.Run(ctx, time.Now().In(a.cfg.Scheduler.Location()))
	return err
}

// Start begins scheduled execution and blocks until the context is done.
func (a *Application) Start(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return err
	}

	a.logger.Info("scheduler started", "cron", a.cfg.Scheduler.CronExpression, "timezone", a.cfg.Scheduler.Timezone)
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return a.scheduler.Stop(stopCtx)
}
