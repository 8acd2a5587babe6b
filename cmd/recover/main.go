package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/infra"
	"server/internal/providers/status"
	"server/internal/reconcile"
)

// recover runs a single bulk recovery pass and exits. It is meant for cron
// schedules and manual operator use; there is no resident poller.
func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "recover")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("recover: db connection failed")
	}
	defer pool.Close()

	providers, err := initStatusProviders(cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("recover: failed to configure provider clients")
	}

	reconciler := reconcile.New(reconcile.Options{
		Store:           repo.NewJobStore(pool),
		Providers:       providers,
		Logger:          logger,
		Concurrency:     cfg.ReconcileConcurrency,
		ProviderTimeout: cfg.ProviderTimeout,
	})

	result, err := reconciler.RecoverAll(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("recover: interrupted")
			return
		}
		logger.Fatal().Err(err).Msg("recover: pass failed")
	}

	logger.Info().
		Int("checked", result.TotalChecked).
		Int("updated", result.Updated).
		Int("unresolvable", result.Unresolvable).
		Int("errored", result.Errored).
		Msg("recover: done")

	if result.Errored > 0 {
		os.Exit(1)
	}
}

func initStatusProviders(cfg *infra.Config, logger *infra.Logger) (*status.Registry, error) {
	httpClient := &http.Client{Timeout: cfg.ProviderTimeout + 10*time.Second}
	registry := status.NewRegistry()

	veo, err := status.NewVeoClient(status.VeoOptions{
		APIKey:     cfg.VeoAPIKey,
		BaseURL:    cfg.VeoBaseURL,
		HTTPClient: httpClient,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	registry.Register(veo, "veo", "veo2", "veo-2.0", "veo-3.0")

	runway, err := status.NewRunwayClient(status.RunwayOptions{
		APIKey:     cfg.RunwayAPIKey,
		BaseURL:    cfg.RunwayBaseURL,
		HTTPClient: httpClient,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	registry.Register(runway, "runway", "gen3a_turbo", "gen4_turbo")

	return registry, nil
}
