package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"
	maxIdempotencyKey = 255

	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
	// how long a claimed key blocks duplicates while the first request runs
	pendingIdempotencyTTL = time.Minute
)

// IdempotencyStore persists one record per (actor, route, key).
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

type idempotencyRule struct {
	method    string
	pattern   string
	ttl       time.Duration
	multipart bool
}

// Admin mutations only; store routes are anonymous and carry no stable scope.
var idempotencyRules = []idempotencyRule{
	{method: http.MethodPost, pattern: "/admin/media_tags", ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, pattern: "/admin/media_groups", ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, pattern: "/admin/option_configs", ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, pattern: "/admin/product_forms", ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, pattern: "/admin/upload", ttl: defaultIdempotencyTTL, multipart: true},
	// review decisions emit events downstream
	{method: http.MethodPost, pattern: "/admin/reviews/status", ttl: criticalIdempotencyTTL},
}

type idempotencyRecord struct {
	Pending     bool   `json:"pending,omitempty"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        string `json:"body,omitempty"`
	RequestHash string `json:"request_hash"`
}

// Idempotency makes the covered admin POSTs safe to retry. Requests without
// an Idempotency-Key run unprotected. The first request with a key claims it,
// later requests with the same key and body replay the stored response, and a
// different body under the same key is rejected. Server errors release the key
// so the caller can retry.
//
// JSON bodies are held in memory up to validators.MaxJSONBodyBytes. Multipart
// uploads are hashed while being spooled to a temporary file, capped at
// maxUploadBytes when positive.
func Idempotency(store IdempotencyStore, maxUploadBytes int64, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rule, ok := matchIdempotencyRule(r.Method, routePattern(r))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			idempotencyKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if idempotencyKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(idempotencyKey) > maxIdempotencyKey {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key is too long").
					WithDetails(map[string]any{"max_length": maxIdempotencyKey}))
				return
			}

			var (
				requestHash string
				err         error
			)
			if rule.multipart {
				var cleanup func()
				requestHash, cleanup, err = spoolBody(w, r, maxUploadBytes)
				if cleanup != nil {
					defer cleanup()
				}
			} else {
				requestHash, err = bufferBody(w, r, validators.MaxJSONBodyBytes)
			}
			if err != nil {
				responses.WriteError(ctx, logg, w, bodyReadError(err))
				return
			}
			key := store.IdempotencyKey(buildScope(r), idempotencyKey)

			stored, err := store.Get(ctx, key)
			if err != nil && !pkgredis.IsNil(err) {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			}
			if stored != "" {
				replayOrReject(ctx, logg, w, stored, requestHash)
				return
			}

			claim, _ := json.Marshal(idempotencyRecord{Pending: true, RequestHash: requestHash})
			won, err := store.SetNX(ctx, key, string(claim), pendingIdempotencyTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !won {
				responses.WriteError(ctx, logg, w, errInProgress())
				return
			}

			rec := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			// detached so a client disconnect cannot leave the key claimed
			persistCtx := context.WithoutCancel(ctx)
			status := defaultStatus(rec.status)
			if status >= http.StatusInternalServerError {
				if err := store.Del(persistCtx, key); err != nil {
					logError(persistCtx, logg, "release idempotency key", err)
				}
				return
			}

			payload, _ := json.Marshal(idempotencyRecord{
				Status:      status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        base64.StdEncoding.EncodeToString(rec.body.Bytes()),
				RequestHash: requestHash,
			})
			if err := store.Set(persistCtx, key, string(payload), rule.ttl); err != nil {
				logError(persistCtx, logg, "persist idempotency record", err)
			}
		})
	}
}

func replayOrReject(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, stored, requestHash string) {
	var record idempotencyRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	if record.RequestHash != requestHash {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
		return
	}
	if record.Pending {
		responses.WriteError(ctx, logg, w, errInProgress())
		return
	}

	decoded, err := base64.StdEncoding.DecodeString(record.Body)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	if record.ContentType != "" {
		w.Header().Set("Content-Type", record.ContentType)
	}
	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(record.Status)
	_, _ = w.Write(decoded)
}

func errInProgress() *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeIdempotency, "a request with this Idempotency-Key is still in progress")
}

// buildScope keys records per actor so two admins cannot collide on a key.
func buildScope(r *http.Request) string {
	return strings.Join([]string{ActorIDFromContext(r.Context()), r.Method, r.URL.Path}, "|")
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// bufferBody reads at most limit bytes into memory and replaces r.Body.
func bufferBody(w http.ResponseWriter, r *http.Request, limit int64) (string, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		return "", err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return hashBody(body), nil
}

// spoolBody copies the body to a temporary file while hashing it, then serves
// the file as r.Body. The returned cleanup removes the file.
func spoolBody(w http.ResponseWriter, r *http.Request, limit int64) (string, func(), error) {
	var src io.Reader = r.Body
	if limit > 0 {
		src = http.MaxBytesReader(w, r.Body, limit)
	}
	f, err := os.CreateTemp("", "idempotency-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(f.Name())
	}

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(f, h), src); err != nil {
		return "", cleanup, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", cleanup, err
	}
	r.Body = io.NopCloser(f)
	return base64.StdEncoding.EncodeToString(h.Sum(nil)), cleanup, nil
}

func bodyReadError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return pkgerrors.New(pkgerrors.CodeValidation, "request body too large").
			WithDetails(map[string]any{"max_bytes": maxErr.Limit})
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body")
}

func defaultStatus(value int) int {
	if value == 0 {
		return http.StatusOK
	}
	return value
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		// middleware mounted on a sub-router only sees the partial "/admin/*" pattern
		if pattern := rctx.RoutePattern(); pattern != "" && !strings.HasSuffix(pattern, "*") {
			return pattern
		}
	}
	return r.URL.Path
}

func routeTTL(method, pattern string) (time.Duration, bool) {
	rule, ok := matchIdempotencyRule(method, pattern)
	return rule.ttl, ok
}

func matchIdempotencyRule(method, pattern string) (idempotencyRule, bool) {
	pattern = strings.TrimSuffix(pattern, "/")
	for _, rule := range idempotencyRules {
		if rule.method == method && rule.pattern == pattern {
			return rule, true
		}
	}
	return idempotencyRule{}, false
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
