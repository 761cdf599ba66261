package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/regions"
	"github.com/angelmondragon/storefront-backend/internal/storefront"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	localeCookie      = "locale"
	optionQueryPrefix = "opt_"
)

type localeRequest struct {
	Locale string `json:"locale" validate:"required"`
}

// StorefrontSetLocale stores the visitor's locale in a long-lived cookie.
func StorefrontSetLocale(ttl time.Duration, logg *logger.Logger) http.HandlerFunc {
	if ttl <= 0 {
		ttl = 365 * 24 * time.Hour
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var payload localeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		locale, err := storefront.NormalizeLocale(payload.Locale)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     localeCookie,
			Value:    locale,
			Path:     "/",
			MaxAge:   int(ttl.Seconds()),
			SameSite: http.SameSiteLaxMode,
		})
		responses.WriteSuccess(w, map[string]string{"locale": locale})
	}
}

// StorefrontProduct renders a product with the media matching the
// `opt_<optionId>=value` selections in the query string.
func StorefrontProduct(svc storefront.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "storefront service unavailable"))
			return
		}

		resolved, ok := regions.FromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "region context missing"))
			return
		}

		view, err := svc.ProductView(r.Context(), resolved.Region.ID, chi.URLParam(r, "productId"), selectedOptions(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func selectedOptions(r *http.Request) map[string]string {
	selected := map[string]string{}
	for key, values := range r.URL.Query() {
		if !strings.HasPrefix(key, optionQueryPrefix) || len(values) == 0 {
			continue
		}
		optionID := strings.TrimPrefix(key, optionQueryPrefix)
		if optionID == "" {
			continue
		}
		selected[optionID] = values[0]
	}
	return selected
}
