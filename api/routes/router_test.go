package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/internal/mediatags"
	"github.com/angelmondragon/storefront-backend/internal/regions"
	"github.com/angelmondragon/storefront-backend/internal/reviews"
	"github.com/angelmondragon/storefront-backend/internal/storefront"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/commerce"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type stubMediaTagService struct {
	mediatags.Service
	gotIDs []string
}

func (s *stubMediaTagService) ListByVariants(_ context.Context, ids []string) ([]models.MediaTag, error) {
	s.gotIDs = ids
	return []models.MediaTag{}, nil
}

type stubReviewService struct {
	reviews.Service
	listed bool
}

func (s *stubReviewService) List(context.Context, reviews.ListParams) (*reviews.ListResult, error) {
	s.listed = true
	return &reviews.ListResult{Items: []reviews.ReviewItem{}}, nil
}

func (s *stubReviewService) ListApproved(_ context.Context, productID string, _ pagination.Params) (*reviews.ApprovedResult, error) {
	return &reviews.ApprovedResult{ProductID: productID}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "storefront", ExpirationMinutes: 30},
		Commerce: config.CommerceConfig{
			DefaultRegion: "us",
			GeoHeader:     "X-Country",
		},
	}
}

func newTestRouter(t *testing.T, tags mediatags.Service, revs reviews.Service, checks map[string]controllers.Pinger) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewRouter(testConfig(), nil, checks, nil, reg, metrics.NewHTTPMetrics(reg, "api"), tags, nil, nil, nil, revs, nil)
}

func adminToken(t *testing.T, role string) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(testConfig().JWT, time.Now(), pkgAuth.AccessTokenPayload{ActorID: "user_01", Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthRoutes(t *testing.T) {
	router := newTestRouter(t, nil, nil, map[string]controllers.Pinger{"db": stubPinger{}})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if rec.Header().Get("X-Storefront-Env") != "test" {
		t.Fatalf("expected env header")
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected ready 200 got %d", rec.Code)
	}

	down := newTestRouter(t, nil, nil, map[string]controllers.Pinger{"redis": stubPinger{err: io.ErrUnexpectedEOF}})
	rec = httptest.NewRecorder()
	down.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
}

func TestStoreMediaTagAcceptsBothIDForms(t *testing.T) {
	tags := &stubMediaTagService{}
	router := newTestRouter(t, tags, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/store/media_tag?ids[]=var_1&ids[]=var_2&ids=var_3,var_1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if strings.Join(tags.gotIDs, ",") != "var_1,var_2,var_3" {
		t.Fatalf("unexpected ids %v", tags.gotIDs)
	}
}

func TestStoreReviewsRequiresProduct(t *testing.T) {
	router := newTestRouter(t, nil, &stubReviewService{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/store/reviews", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/store/reviews?product_id=prod_1&limit=500", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected limit out of range 400 got %d", rec.Code)
	}
}

func TestAdminRoutesRequireAdminJWT(t *testing.T) {
	revs := &stubReviewService{}
	router := newTestRouter(t, nil, revs, nil)

	cases := []struct {
		name  string
		token string
		want  int
	}{
		{name: "missing token", want: http.StatusUnauthorized},
		{name: "non admin", token: adminToken(t, "customer"), want: http.StatusForbidden},
		{name: "admin", token: adminToken(t, pkgAuth.RoleAdmin), want: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/reviews?status=pending", nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d got %d", tc.want, rec.Code)
			}
		})
	}
	if !revs.listed {
		t.Fatalf("expected admin list to reach the service")
	}
}

func TestAdminDeleteReviewRejectsBadID(t *testing.T) {
	router := newTestRouter(t, nil, &stubReviewService{}, nil)

	req := httptest.NewRequest(http.MethodDelete, "/admin/reviews/not-a-uuid", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, pkgAuth.RoleAdmin))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, nil, nil, nil)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `route="/health/live"`) {
		t.Fatalf("expected route label in metrics output")
	}
}

type stubRegions struct{}

func (stubRegions) ListRegions(context.Context) ([]commerce.Region, error) {
	return []commerce.Region{{ID: "reg_us", Countries: []commerce.Country{{ISO2: "us"}}}}, nil
}

type stubStorefront struct {
	regionID string
	selected map[string]string
}

func (s *stubStorefront) ProductView(_ context.Context, regionID, productID string, selected map[string]string) (*storefront.ProductView, error) {
	s.regionID = regionID
	s.selected = selected
	return &storefront.ProductView{ProductID: productID}, nil
}

func newTestStorefront(t *testing.T, upstream string, svc storefront.Service) http.Handler {
	t.Helper()
	cache, err := regions.NewCache(stubRegions{}, time.Hour, nil, nil)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	cfg := testConfig()
	cfg.Storefront.UpstreamURL = upstream
	reg := prometheus.NewRegistry()
	router, err := NewStorefrontRouter(cfg, nil, cache, svc, reg, metrics.NewHTTPMetrics(reg, "storefront"))
	if err != nil {
		t.Fatalf("new storefront router: %v", err)
	}
	return router
}

func TestStorefrontProxiesKnownRegionPages(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "page:"+r.URL.Path)
	}))
	defer upstream.Close()

	router := newTestStorefront(t, upstream.URL, &stubStorefront{})

	req := httptest.NewRequest(http.MethodGet, "/us/shop", nil)
	req.AddCookie(&http.Cookie{Name: "_medusa_cache_id", Value: uuid.NewString()})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "page:/us/shop" {
		t.Fatalf("expected proxied page, got %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/shop?sort=price", nil))
	if rec.Code != http.StatusTemporaryRedirect || rec.Header().Get("Location") != "/us/shop?sort=price" {
		t.Fatalf("expected redirect, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health should bypass region routing, got %d", rec.Code)
	}
}

func TestStorefrontProductRoute(t *testing.T) {
	svc := &stubStorefront{}
	router := newTestStorefront(t, "", svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/us/products/prod_1?opt_color=red&sort=x", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.regionID != "reg_us" {
		t.Fatalf("expected region id forwarded, got %q", svc.regionID)
	}
	if len(svc.selected) != 1 || svc.selected["color"] != "red" {
		t.Fatalf("unexpected selection %v", svc.selected)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/us/unknown", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without upstream, got %d", rec.Code)
	}
}

func TestStorefrontLocaleCookie(t *testing.T) {
	router := newTestStorefront(t, "", &stubStorefront{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/us/locale", strings.NewReader(`{"locale":"EN-us"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var locale *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "locale" {
			locale = c
		}
	}
	if locale == nil || locale.Value != "en-us" {
		t.Fatalf("expected locale cookie, got %+v", rec.Result().Cookies())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/us/locale", strings.NewReader(`{"locale":"english"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
