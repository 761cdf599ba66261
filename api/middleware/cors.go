package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// Local storefront dev servers, used when no origins are configured.
var devOrigins = []string{"http://localhost:3000", "http://localhost:8000"}

// CORS applies the browser origin policy. Entries may use a single wildcard,
// e.g. "https://*.vercel.app" for preview deployments.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = devOrigins
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type", "Idempotency-Key",
			"X-Request-Id", "X-Requested-With", "x-publishable-api-key",
		},
		ExposedHeaders:   []string{"X-Request-Id", "Retry-After", "Idempotent-Replayed", "Location"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
