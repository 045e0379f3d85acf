package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"mygovpulse/internal/app"
	"mygovpulse/internal/config"
	"mygovpulse/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	if err := app.New(cfg, logger).Run(ctx); err != nil {
		logger.Error("application stopped", "error", err)
		cancel()
		os.Exit(1)
	}
}
