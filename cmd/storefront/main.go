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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/regions"
	"github.com/angelmondragon/storefront-backend/internal/storefront"
	"github.com/angelmondragon/storefront-backend/pkg/commerce"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/env"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	if err := cfg.Validate(config.ServiceKindStorefront); err != nil {
		logg.Error(context.Background(), "invalid config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := commerce.NewClient(
		cfg.Commerce.BackendURL,
		cfg.Commerce.PublishableKey,
		commerce.WithExtensionURL(cfg.Commerce.ExtensionBaseURL()),
		commerce.WithTimeout(cfg.Commerce.RequestTimeout),
	)
	if err != nil {
		logg.Error(ctx, "failed to build commerce client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	regionCache, err := regions.NewCache(client, cfg.Commerce.RegionTTL, metrics.NewRegionCacheMetrics(registry), logg)
	if err != nil {
		logg.Error(ctx, "failed to build region cache", err)
		os.Exit(1)
	}
	// Warm the cache so the first visitor does not pay for the region fetch.
	if _, err := regionCache.Get(ctx); err != nil {
		logg.Warn(ctx, "initial region fetch failed; retrying on first request")
	}

	storefrontService, err := storefront.NewService(client, logg)
	if err != nil {
		logg.Error(ctx, "failed to build storefront service", err)
		os.Exit(1)
	}

	handler, err := routes.NewStorefrontRouter(
		cfg,
		logg,
		regionCache,
		storefrontService,
		registry,
		metrics.NewHTTPMetrics(registry, "storefront"),
	)
	if err != nil {
		logg.Error(ctx, "failed to build storefront router", err)
		os.Exit(1)
	}

	addr := env.ListenAddr(cfg.App.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "addr": addr})
	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting storefront server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "server failed", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
