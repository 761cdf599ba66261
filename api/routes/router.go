package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/mediagroups"
	"github.com/angelmondragon/storefront-backend/internal/mediatags"
	"github.com/angelmondragon/storefront-backend/internal/optionconfigs"
	"github.com/angelmondragon/storefront-backend/internal/productforms"
	"github.com/angelmondragon/storefront-backend/internal/reviews"
	"github.com/angelmondragon/storefront-backend/internal/uploads"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// NewRouter builds the extension API: anonymous /store routes and the
// admin-only /admin routes.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	checks map[string]controllers.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	httpMetrics *metrics.HTTPMetrics,
	mediaTagService mediatags.Service,
	mediaGroupService mediagroups.Service,
	optionConfigService optionconfigs.Service,
	productFormService productforms.Service,
	reviewService reviews.Service,
	uploadService uploads.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.Storefront.AllowedOrigins),
		middleware.Metrics(httpMetrics),
	)

	// a nil *redis.Client must not become a non-nil interface
	var idempotencyStore middleware.IdempotencyStore
	if redisClient != nil {
		idempotencyStore = redisClient
	}

	uploadPolicy := middleware.NewRateLimitPolicy("upload", cfg.Upload.RateLimitWindow, cfg.Upload.RateLimitPerIP).
		WithTrustedProxies(cfg.App.TrustedProxyHops)
	reviewPolicy := middleware.NewRateLimitPolicy("reviews", cfg.Reviews.RateLimitWindow, cfg.Reviews.RateLimitPerIP).
		WithBodyField("customer_id", cfg.Reviews.RateLimitPerCustomer).
		WithTrustedProxies(cfg.App.TrustedProxyHops)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, checks))
	})
	r.Handle("/metrics", metrics.Handler(gatherer))

	r.Route("/store", func(r chi.Router) {
		r.Get("/media_tag", controllers.StoreMediaTags(mediaTagService, logg))
		r.Get("/variant_medias", controllers.StoreVariantMedias(mediaGroupService, logg))
		r.Get("/variant_medias/trimmed", controllers.StoreTrimmedVariantMedias(mediaGroupService, logg))
		r.Get("/option_configs", controllers.StoreOptionConfigs(optionConfigService, logg))
		r.Get("/product_form", controllers.StoreProductForms(productFormService, logg))
		r.With(middleware.RateLimit(uploadPolicy, limiter(redisClient), logg)).
			Post("/product_form/fields/{fieldId}/upload", controllers.StoreFieldUpload(uploadService, logg))
		r.Get("/reviews", controllers.StoreReviews(reviewService, logg))
		r.With(middleware.RateLimit(reviewPolicy, limiter(redisClient), logg)).
			Post("/reviews", controllers.StoreSubmitReview(reviewService, logg))
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, pkgAuth.RoleAdmin))
		r.Use(middleware.Idempotency(idempotencyStore, controllers.MaxUploadRequestBytes(cfg.Upload.MaxBytes()), logg))

		r.Get("/reviews", controllers.AdminListReviews(reviewService, logg))
		r.Post("/reviews/status", controllers.AdminUpdateReviewStatus(reviewService, logg))
		r.Delete("/reviews/{reviewId}", controllers.AdminDeleteReview(reviewService, logg))
		r.Get("/upload", controllers.AdminUploadPolicy(uploadService, logg))
		r.With(middleware.RateLimit(uploadPolicy, limiter(redisClient), logg)).
			Post("/upload", controllers.AdminUpload(uploadService, logg))
		r.Post("/media_tags", controllers.AdminSetMediaTag(mediaTagService, logg))
		r.Delete("/media_tags/{variantId}", controllers.AdminDeleteMediaTag(mediaTagService, logg))
		r.Post("/media_groups", controllers.AdminCreateMediaGroup(mediaGroupService, logg))
		r.Delete("/media_groups/{groupId}", controllers.AdminDeleteMediaGroup(mediaGroupService, logg))
		r.Post("/option_configs", controllers.AdminUpsertOptionConfig(optionConfigService, logg))
		r.Delete("/option_configs/{optionId}", controllers.AdminDeleteOptionConfig(optionConfigService, logg))
		r.Post("/product_forms", controllers.AdminUpsertProductForm(productFormService, logg))
		r.Delete("/product_forms/{productId}", controllers.AdminDeleteProductForm(productFormService, logg))
	})

	return r
}

func limiter(client *redis.Client) middleware.RateLimitStore {
	if client == nil {
		return nil
	}
	return client
}
