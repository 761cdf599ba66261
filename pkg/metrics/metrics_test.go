package metrics

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg, "api")
	m.Observe("/store/media_tag", http.MethodGet, http.StatusOK, 120*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchHistogramSum(mfs, "http_request_duration_seconds", "route", "/store/media_tag"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestRegionCacheMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRegionCacheMetrics(reg)
	m.RefreshSucceeded(12)
	m.RefreshFailed()
	m.RefreshFailed()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "region_cache_refresh_total", "outcome", "failure"); err != nil || got != 2 {
		t.Fatalf("expected failure=2, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "region_cache_refresh_total", "outcome", "success"); err != nil || got != 1 {
		t.Fatalf("expected success=1, got %f err=%v", got, err)
	}
}

func TestModerationMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewModerationMetrics(reg)
	m.IncDecision("rejected")
	m.IncDecision("")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "moderation_decisions_total", "decision", "rejected"); err != nil || got != 1 {
		t.Fatalf("expected rejected=1, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "moderation_decisions_total", "decision", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected unknown=1, got %f err=%v", got, err)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var h *HTTPMetrics
	h.Observe("/", http.MethodGet, 200, time.Second)
	NewRegionCacheMetrics(nil).RefreshSucceeded(1)
	NewModerationMetrics(nil).IncDecision("approved")
}

func TestHandlerServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewModerationMetrics(reg).IncDecision("approved")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "moderation_decisions_total") {
		t.Fatalf("expected metric in output")
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
