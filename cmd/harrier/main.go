// Harrier - claim adjudication and fraud detection engine.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/openclaims/harrier/internal/adjudication"
	"github.com/openclaims/harrier/internal/benefits"
	"github.com/openclaims/harrier/internal/bus"
	"github.com/openclaims/harrier/internal/cache"
	"github.com/openclaims/harrier/internal/domain"
	"github.com/openclaims/harrier/internal/fraud"
	"github.com/openclaims/harrier/internal/history"
	"github.com/openclaims/harrier/internal/repository"
	"github.com/openclaims/harrier/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Load configuration
	cfg, err := domain.LoadConfig(os.Getenv("HARRIER_CONFIG"))
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Logging)

	slog.Info("starting harrier",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Benefits provider with caching in front of the repository
	provider := benefits.NewCachingProvider(
		benefits.NewRepositoryProvider(repo),
		cacheImpl,
		cfg.Engine.BenefitsCacheTTL,
	)

	// Adjudication service
	adjudicator := adjudication.NewService(
		adjudication.NewEngine(nil),
		provider,
		repo,
	)
	slog.Info("adjudication engine initialized")

	// Fraud engine backed by claim history
	historySvc := history.NewService(repo, cacheImpl, cfg.Engine.RatioCacheTTL)
	fraudEngine, err := fraud.NewEngine(historySvc, cfg.Engine.UpcodingLookbackDays)
	if err != nil {
		slog.Error("failed to initialize fraud engine", "error", err)
		os.Exit(1)
	}
	slog.Info("fraud engine initialized", "upcoding_lookback_days", cfg.Engine.UpcodingLookbackDays)

	// Start the claim pipeline worker
	asyncWorker := worker.NewWorker(busImpl, repo, adjudicator, fraudEngine)

	insurerIDs := insurers(cfg)
	if err := asyncWorker.Start(worker.Config{InsurerIDs: insurerIDs}); err != nil {
		slog.Error("failed to start worker", "error", err)
		os.Exit(1)
	}
	slog.Info("harrier is ready", "insurers", insurerIDs)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	if err := asyncWorker.Stop(); err != nil {
		slog.Error("failed to stop worker", "error", err)
	}

	slog.Info("harrier shutdown complete")
}

// insurers resolves the insurer list from config or environment, defaulting
// to a single "default" insurer for single-tenant deployments.
func insurers(cfg *domain.Config) []string {
	if env := os.Getenv("HARRIER_INSURERS"); env != "" {
		var ids []string
		for _, id := range strings.Split(env, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		if len(ids) > 0 {
			return ids
		}
	}
	if len(cfg.Worker.InsurerIDs) > 0 {
		return cfg.Worker.InsurerIDs
	}
	return []string{"default"}
}

func setupLogger(cfg domain.LoggingConfig) {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}
