package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"mygovpulse/internal/analyze"
	"mygovpulse/internal/config"
	"mygovpulse/internal/infrastructure/api"
	"mygovpulse/internal/infrastructure/llm"
	"mygovpulse/internal/infrastructure/scheduler"
	"mygovpulse/internal/infrastructure/scraper"
	"mygovpulse/internal/infrastructure/storage"
	"mygovpulse/internal/logging"
	"mygovpulse/internal/ports"
	"mygovpulse/internal/usecase"
)

// Application wires configuration to adapters and lifecycle.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	orch      *usecase.Orchestrator
	server    *api.Server
	scheduler ports.Scheduler
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	httpClient := &http.Client{Timeout: cfg.Refresh.Timeout()}
	source := scraper.NewDrupalScraper(httpClient, cfg.Refresh.MaxPages,
		baseLogger.With("component", "scraper"))

	var model ports.ModelClient
	if cfg.Gemini.Enabled() {
		model = llm.NewGeminiClient(cfg.Gemini, cfg.Refresh.Timeout())
	}
	analyzer := analyze.New(model, baseLogger.With("component", "analyzer"))

	store := storage.NewCSVStore(cfg.Storage.OutputDir, cfg.Storage.PublishDir,
		baseLogger.With("component", "storage"))

	orch := usecase.New(usecase.Deps{
		Config:       cfg,
		Source:       source,
		Analyzer:     analyzer,
		Store:        store,
		ModelEnabled: cfg.Gemini.Enabled(),
		Logger:       baseLogger.With("component", "orchestrator"),
	})

	server := api.NewServer(cfg, orch, baseLogger.With("component", "api"))
	ticker := scheduler.NewTickerScheduler(cfg.Refresh.Interval())

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		orch:      orch,
		server:    server,
		scheduler: ticker,
	}
}

// Run seeds state from disk, kicks off a first refresh per source,
// starts the periodic trigger, and serves until the listener stops.
func (a *Application) Run(ctx context.Context) error {
	a.orch.Seed(ctx)
	for _, src := range a.cfg.Sources {
		a.orch.Trigger(src.ID, true)
	}

	if err := a.scheduler.Start(ctx, func(time.Time) {
		for _, src := range a.cfg.Sources {
			a.orch.Trigger(src.ID, false)
		}
	}); err != nil {
		return err
	}
	defer func() { _ = a.scheduler.Stop(ctx) }()

	a.logger.Info("serving dashboard API", "addr", a.cfg.Server.Addr)
	return a.server.Router().Run(a.cfg.Server.Addr)
}
