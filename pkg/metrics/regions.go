package metrics

import "github.com/prometheus/client_golang/prometheus"

// RegionCacheMetrics counts region map refreshes against the commerce backend.
type RegionCacheMetrics struct {
	refreshes *prometheus.CounterVec
	countries prometheus.Gauge
}

func NewRegionCacheMetrics(reg prometheus.Registerer) *RegionCacheMetrics {
	if reg == nil {
		return &RegionCacheMetrics{}
	}
	refreshes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "region_cache_refresh_total",
		Help: "Region map refreshes by outcome.",
	}, []string{"outcome"})
	countries := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "region_cache_countries",
		Help: "Country codes in the current region map.",
	})
	reg.MustRegister(refreshes, countries)
	return &RegionCacheMetrics{refreshes: refreshes, countries: countries}
}

func (m *RegionCacheMetrics) RefreshSucceeded(countries int) {
	if m == nil || m.refreshes == nil {
		return
	}
	m.refreshes.WithLabelValues("success").Inc()
	m.countries.Set(float64(countries))
}

func (m *RegionCacheMetrics) RefreshFailed() {
	if m == nil || m.refreshes == nil {
		return
	}
	m.refreshes.WithLabelValues("failure").Inc()
}
