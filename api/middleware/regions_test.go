package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/regions"
	"github.com/angelmondragon/storefront-backend/pkg/commerce"
)

type stubRegionLister struct {
	regions []commerce.Region
	err     error
}

func (s stubRegionLister) ListRegions(context.Context) ([]commerce.Region, error) {
	return s.regions, s.err
}

func newRegionCache(t *testing.T, lister stubRegionLister) *regions.Cache {
	t.Helper()
	cache, err := regions.NewCache(lister, time.Hour, nil, nil)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	return cache
}

func defaultRegions() stubRegionLister {
	return stubRegionLister{regions: []commerce.Region{
		{ID: "reg_eu", Countries: []commerce.Country{{ISO2: "fr"}, {ISO2: "de"}}},
		{ID: "reg_us", Countries: []commerce.Country{{ISO2: "us"}}},
	}}
}

func regionHandler(t *testing.T, lister stubRegionLister, opts RegionOptions) (http.Handler, *regions.Resolved) {
	t.Helper()
	var seen regions.Resolved
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if resolved, ok := regions.FromContext(r.Context()); ok {
			seen = resolved
		}
		w.WriteHeader(http.StatusOK)
	})
	return Regions(newRegionCache(t, lister), opts, nil)(next), &seen
}

func TestRegionsPassesThroughKnownCodeWithCookie(t *testing.T) {
	handler, seen := regionHandler(t, defaultRegions(), RegionOptions{DefaultRegion: "us", GeoHeader: "X-Country"})

	req := httptest.NewRequest(http.MethodGet, "/fr/shop", nil)
	req.AddCookie(&http.Cookie{Name: CacheIDCookie, Value: "existing"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("expected no cookie to be set")
	}
	if seen.CountryCode != "fr" || seen.Region.ID != "reg_eu" {
		t.Fatalf("unexpected region on context %+v", seen)
	}
}

func TestRegionsSetsCacheCookie(t *testing.T) {
	handler, _ := regionHandler(t, defaultRegions(), RegionOptions{DefaultRegion: "us"})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/de/products/abc", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != CacheIDCookie {
		t.Fatalf("expected cache id cookie, got %+v", cookies)
	}
	if cookies[0].MaxAge != 86400 || cookies[0].Value == "" {
		t.Fatalf("unexpected cookie %+v", cookies[0])
	}
}

func TestRegionsRedirects(t *testing.T) {
	cases := []struct {
		name   string
		target string
		geo    string
		def    string
		want   string
	}{
		{name: "default region keeps query", target: "/shop?page=2", def: "us", want: "/us/shop?page=2"},
		{name: "geolocation header wins over default", target: "/shop", geo: "DE", def: "us", want: "/de/shop"},
		{name: "unknown geolocation uses default", target: "/shop", geo: "jp", def: "us", want: "/us/shop"},
		{name: "root path", target: "/", def: "us", want: "/us"},
		{name: "unknown default uses first country", target: "/shop", def: "br", want: "/fr/shop"},
		{name: "unknown url code is kept in path", target: "/xx/shop", def: "us", want: "/us/xx/shop"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler, _ := regionHandler(t, defaultRegions(), RegionOptions{DefaultRegion: tc.def, GeoHeader: "X-Country"})
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.geo != "" {
				req.Header.Set("X-Country", tc.geo)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusTemporaryRedirect {
				t.Fatalf("expected 307 got %d", rec.Code)
			}
			if got := rec.Header().Get("Location"); got != tc.want {
				t.Fatalf("expected location %q got %q", tc.want, got)
			}
		})
	}
}

func TestRegionsSkipsStaticAssets(t *testing.T) {
	lister := stubRegionLister{err: errors.New("should not be called")}
	handler, _ := regionHandler(t, lister, RegionOptions{DefaultRegion: "us"})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logo.png", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestRegionsFailsWhenMapUnavailable(t *testing.T) {
	handler, _ := regionHandler(t, stubRegionLister{err: errors.New("backend down")}, RegionOptions{DefaultRegion: "us"})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/shop", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
}
