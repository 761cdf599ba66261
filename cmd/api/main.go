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

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/events"
	"github.com/angelmondragon/storefront-backend/internal/mediagroups"
	"github.com/angelmondragon/storefront-backend/internal/mediatags"
	"github.com/angelmondragon/storefront-backend/internal/moderation"
	"github.com/angelmondragon/storefront-backend/internal/optionconfigs"
	"github.com/angelmondragon/storefront-backend/internal/productforms"
	"github.com/angelmondragon/storefront-backend/internal/reviews"
	"github.com/angelmondragon/storefront-backend/internal/uploads"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/env"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/pubsub"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
	"github.com/angelmondragon/storefront-backend/pkg/storage/gcs"
	"github.com/angelmondragon/storefront-backend/pkg/vision"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	if err := cfg.Validate(config.ServiceKindAPI); err != nil {
		logg.Error(context.Background(), "invalid config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := openDatabase(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	checks := map[string]controllers.Pinger{"database": dbClient}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		checks["redis"] = redisClient
	} else {
		logg.Warn(ctx, "redis not configured; idempotency and rate limiting disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.PubSub.EventsTopic != "" {
		psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := psClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		publisher = events.NewPubSubPublisher(psClient.EventsPublisher(), logg)
		checks["pubsub"] = psClient
	}

	gormDB := dbClient.DB()
	tagsRepo := mediatags.NewRepository(gormDB)
	formsRepo := productforms.NewRepository(gormDB)

	mediaTagService, err := mediatags.NewService(tagsRepo)
	requireService(ctx, logg, "media tags", err)
	mediaGroupService, err := mediagroups.NewService(mediagroups.NewRepository(gormDB), tagsRepo)
	requireService(ctx, logg, "media groups", err)
	optionConfigService, err := optionconfigs.NewService(optionconfigs.NewRepository(gormDB))
	requireService(ctx, logg, "option configs", err)
	productFormService, err := productforms.NewService(formsRepo)
	requireService(ctx, logg, "product forms", err)
	reviewService, err := reviews.NewService(reviews.NewRepository(gormDB), publisher, logg)
	requireService(ctx, logg, "reviews", err)

	moderationMetrics := metrics.NewModerationMetrics(registry)
	moderator := moderation.NewModerator(nil, moderationMetrics, logg)
	if cfg.Moderation.Enabled {
		visionClient, err := vision.NewClient(ctx, cfg.GCP, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap vision", err)
			os.Exit(1)
		}
		if visionClient != nil {
			moderator = moderation.NewModerator(visionClient, moderationMetrics, logg).WithThreshold(cfg.Moderation.MinLikelihood)
		} else {
			logg.Warn(ctx, "vision credentials missing; uploads are stored without moderation")
		}
	}

	var uploadService uploads.Service
	if cfg.GCS.BucketName != "" {
		gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap gcs", err)
			os.Exit(1)
		}
		checks["gcs"] = gcsClient
		uploadService, err = uploads.NewService(gcsClient, moderator, productFormService, publisher, cfg.Upload, cfg.GCS.ObjectPrefix, logg)
		requireService(ctx, logg, "uploads", err)
	} else {
		logg.Warn(ctx, "gcs bucket not configured; upload routes disabled")
	}

	addr := env.ListenAddr(cfg.App.Port)
	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			checks,
			redisClient,
			registry,
			metrics.NewHTTPMetrics(registry, "api"),
			mediaTagService,
			mediaGroupService,
			optionConfigService,
			productFormService,
			reviewService,
			uploadService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serve(logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "addr": addr}), server, logg)
}

func openDatabase(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*db.Client, error) {
	if cfg.FeatureFlags.UseSQLite {
		return db.NewSQLite(ctx, cfg.DB.DSN, logg)
	}
	return db.New(ctx, cfg.DB, logg)
}

func requireService(ctx context.Context, logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(logg.WithField(ctx, "service", name), "failed to build service", err)
	os.Exit(1)
}

// serve runs the server until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, server *http.Server, logg *logger.Logger) {
	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting http server")
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
		logg.Info(ctx, "shutting down http server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
