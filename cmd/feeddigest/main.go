package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"FeedDigest/internal/app"
	"FeedDigest/internal/config"
	"FeedDigest/internal/logging"
)

func main() {
	once := flag.Bool("once", false, "run a single digest pass and exit")
	flag.Parse()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once {
		if err := application.RunOnce(ctx); err != nil {
			logger.Error("run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := application.Start(ctx); err != nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}
