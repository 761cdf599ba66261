package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/internal/regions"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const CacheIDCookie = "_medusa_cache_id"

type regionSource interface {
	Get(ctx context.Context) (*regions.Snapshot, error)
}

// RegionOptions configures country resolution for storefront requests.
type RegionOptions struct {
	DefaultRegion string
	GeoHeader     string
	CacheIDTTL    time.Duration
}

// Regions makes sure every storefront path starts with a known country code,
// redirecting when it does not, and attaches the resolved region to the context.
func Regions(source regionSource, opts RegionOptions, logg *logger.Logger) func(http.Handler) http.Handler {
	if opts.CacheIDTTL <= 0 {
		opts.CacheIDTTL = 24 * time.Hour
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// static assets
			if strings.Contains(r.URL.Path, ".") {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			snap, err := source.Get(ctx)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve regions"))
				return
			}

			urlCode := firstSegment(r.URL.Path)
			code := resolveCountry(snap, urlCode, r.Header.Get(opts.GeoHeader), opts.DefaultRegion)
			urlHasCode := code != "" && urlCode == code

			if urlHasCode {
				region, _ := snap.Lookup(code)
				ctx = regions.WithResolved(ctx, regions.Resolved{CountryCode: code, Region: region})
				if logg != nil {
					ctx = logg.WithCountryCode(ctx, code)
				}
				if _, err := r.Cookie(CacheIDCookie); err != nil {
					http.SetCookie(w, &http.Cookie{
						Name:     CacheIDCookie,
						Value:    uuid.NewString(),
						Path:     "/",
						MaxAge:   int(opts.CacheIDTTL.Seconds()),
						HttpOnly: true,
						SameSite: http.SameSiteLaxMode,
					})
				}
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			redirectPath := r.URL.Path
			if redirectPath == "/" {
				redirectPath = ""
			}
			target := "/" + code + redirectPath
			if r.URL.RawQuery != "" {
				target += "?" + r.URL.RawQuery
			}
			http.Redirect(w, r, target, http.StatusTemporaryRedirect)
		})
	}
}

// resolveCountry picks the URL code, then the geolocation header, then the
// default region, then the first known country.
func resolveCountry(snap *regions.Snapshot, urlCode, geo, fallback string) string {
	for _, candidate := range []string{urlCode, geo, fallback} {
		candidate = strings.ToLower(strings.TrimSpace(candidate))
		if candidate == "" {
			continue
		}
		if _, ok := snap.Lookup(candidate); ok {
			return candidate
		}
	}
	return snap.First()
}

func firstSegment(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if idx := strings.IndexByte(trimmed, '/'); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.ToLower(trimmed)
}
