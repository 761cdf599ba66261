package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// RateLimitStore increments a counter that expires after the window.
type RateLimitStore interface {
	CountInWindow(ctx context.Context, scope string, window time.Duration) (int64, error)
}

// RateLimitPolicy defines the throttling parameters for a traffic surface.
// When bodyField is set the JSON body value of that field gets its own counter.
type RateLimitPolicy struct {
	name        string
	window      time.Duration
	ipLimit     int
	bodyField   string
	fieldLimit  int
	trustedHops int
}

// NewRateLimitPolicy builds a per-IP policy.
func NewRateLimitPolicy(name string, window time.Duration, ipLimit int) RateLimitPolicy {
	return RateLimitPolicy{
		name:    strings.ToLower(strings.TrimSpace(name)),
		window:  window,
		ipLimit: ipLimit,
	}
}

// WithBodyField adds a second counter keyed by a JSON body field.
func (p RateLimitPolicy) WithBodyField(field string, limit int) RateLimitPolicy {
	p.bodyField = strings.TrimSpace(field)
	p.fieldLimit = limit
	return p
}

// WithTrustedProxies sets how many proxies in front of the service append to
// X-Forwarded-For. Zero ignores the header and counts the peer address.
func (p RateLimitPolicy) WithTrustedProxies(hops int) RateLimitPolicy {
	p.trustedHops = hops
	return p
}

func (p RateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.fieldLimit > 0)
}

func (p RateLimitPolicy) normalizedName() string {
	if p.name == "" {
		return "default"
	}
	return p.name
}

func (p RateLimitPolicy) ipKey(ip string) string {
	if ip == "" {
		return ""
	}
	return fmt.Sprintf("ip:%s:%s", p.normalizedName(), ip)
}

func (p RateLimitPolicy) fieldKey(hash string) string {
	if hash == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s:%s", p.bodyField, p.normalizedName(), hash)
}

// RateLimit enforces fixed-window counters per client IP and, optionally,
// per body field value.
func RateLimit(policy RateLimitPolicy, store RateLimitStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			ip := clientIP(r, policy.trustedHops)
			if policy.ipLimit > 0 {
				if key := policy.ipKey(ip); key != "" {
					if allowed, count, err := allow(ctx, store, key, policy.window, int64(policy.ipLimit)); err != nil {
						responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
						return
					} else if !allowed {
						respondRateLimited(ctx, logg, w, policy, "ip", ip, "", count, policy.ipLimit)
						return
					}
				}
			}

			if policy.bodyField != "" && policy.fieldLimit > 0 {
				body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, validators.MaxJSONBodyBytes))
				if err != nil {
					var maxErr *http.MaxBytesError
					if errors.As(err, &maxErr) {
						responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "request body too large").
							WithDetails(map[string]any{"max_bytes": maxErr.Limit}))
						return
					}
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))

				if value := normalizeValue(extractField(body, policy.bodyField)); value != "" {
					hash := hashValue(value)
					if allowed, count, err := allow(ctx, store, policy.fieldKey(hash), policy.window, int64(policy.fieldLimit)); err != nil {
						responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
						return
					} else if !allowed {
						respondRateLimited(ctx, logg, w, policy, policy.bodyField, "", hash, count, policy.fieldLimit)
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func allow(ctx context.Context, store RateLimitStore, scope string, window time.Duration, limit int64) (bool, int64, error) {
	count, err := store.CountInWindow(ctx, scope, window)
	if err != nil {
		return false, 0, err
	}
	return count <= limit, count, nil
}

func respondRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy RateLimitPolicy, scope, ip, valueHash string, count int64, limit int) {
	if logg != nil {
		fields := map[string]any{
			"scope":          scope,
			"policy":         policy.normalizedName(),
			"attempts":       count,
			"limit":          limit,
			"window_seconds": int(policy.window.Seconds()),
		}
		if ip != "" {
			fields["ip"] = ip
		}
		if valueHash != "" {
			fields["value_hash"] = valueHash
		}
		logg.Warn(logg.WithFields(ctx, fields), "rate limit exceeded")
	}
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded").
		WithDetails(map[string]any{"retry_after_seconds": int(policy.window.Seconds())}))
}

// clientIP returns the address the outermost trusted proxy saw. Entries left
// of that hop are written by the client and never trusted.
func clientIP(r *http.Request, trustedHops int) string {
	if r == nil {
		return ""
	}
	if trustedHops > 0 {
		var hops []string
		for _, part := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				hops = append(hops, ip)
			}
		}
		if len(hops) > 0 {
			return hops[max(len(hops)-trustedHops, 0)]
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func extractField(payload []byte, field string) string {
	var body map[string]any
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	value, _ := body[field].(string)
	return value
}

func normalizeValue(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
