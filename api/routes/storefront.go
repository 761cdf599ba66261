package routes

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/internal/regions"
	"github.com/angelmondragon/storefront-backend/internal/storefront"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

// NewStorefrontRouter builds the storefront edge. Every page path goes
// through region routing; paths without a local handler are proxied upstream.
func NewStorefrontRouter(
	cfg *config.Config,
	logg *logger.Logger,
	regionCache *regions.Cache,
	storefrontService storefront.Service,
	gatherer prometheus.Gatherer,
	httpMetrics *metrics.HTTPMetrics,
) (http.Handler, error) {
	upstream, err := newUpstreamProxy(cfg.Storefront.UpstreamURL, logg)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.Storefront.AllowedOrigins),
		middleware.Metrics(httpMetrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{"regions": regionPinger{regionCache}}))
	})
	r.Handle("/metrics", metrics.Handler(gatherer))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Regions(regionCache, middleware.RegionOptions{
			DefaultRegion: cfg.Commerce.DefaultRegion,
			GeoHeader:     cfg.Commerce.GeoHeader,
			CacheIDTTL:    cfg.Commerce.CacheIDTTL,
		}, logg))

		r.Post("/{countryCode}/locale", controllers.StorefrontSetLocale(cfg.Commerce.LocaleTTL, logg))
		r.Get("/{countryCode}/products/{productId}", controllers.StorefrontProduct(storefrontService, logg))
		r.NotFound(upstream.ServeHTTP)
	})

	return r, nil
}

func newUpstreamProxy(raw string, logg *logger.Logger) (http.Handler, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeNotFound, "route not found"))
		}), nil
	}

	target, err := url.Parse(raw)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid storefront upstream url %q", raw)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storefront upstream unavailable"))
	}
	return proxy, nil
}

type regionPinger struct {
	cache *regions.Cache
}

func (p regionPinger) Ping(ctx context.Context) error {
	_, err := p.cache.Get(ctx)
	return err
}
