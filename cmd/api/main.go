package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/http/handlers"
	"server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/providers/status"
	"server/internal/reconcile"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "api")

	ctx := context.Background()
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	providers, err := buildProviders(cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure provider clients")
	}

	store := repo.NewJobStore(pool)
	reconciler := reconcile.New(reconcile.Options{
		Store:           store,
		Providers:       providers,
		Logger:          logger,
		Concurrency:     cfg.ReconcileConcurrency,
		ProviderTimeout: cfg.ProviderTimeout,
	})
	estimator := reconcile.NewEstimator(cfg.ProgressCapPercent, cfg.ProgressTotal)

	app := handlers.NewApp(store, reconciler, estimator, logger)
	router := httpapi.NewRouter(app, cfg)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

func buildProviders(cfg *infra.Config, logger *infra.Logger) (*status.Registry, error) {
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
