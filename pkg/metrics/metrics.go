package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mwmrouter"

// Metrics groups the prometheus collectors of the engine. Every method is
// safe on a nil *Metrics so components can run without metrics.
type Metrics struct {
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	RouteSearches   *prometheus.CounterVec
	SearchDuration  *prometheus.HistogramVec
	RegionLoads     *prometheus.CounterVec
	ResidentRegions prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Number of http requests by route pattern, method and status code.",
		}, []string{"path", "method", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of http requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method"}),
		RouteSearches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_searches_total",
			Help:      "Route searches by world graph mode and outcome.",
		}, []string{"mode", "outcome"}),
		SearchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "route_search_duration_seconds",
			Help:      "Duration of one search pass.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 16),
		}, []string{"mode"}),
		RegionLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "region_loads_total",
			Help:      "Region graph materializations by outcome.",
		}, []string{"outcome"}),
		ResidentRegions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resident_regions",
			Help:      "Regions currently held in the region cache.",
		}),
	}
	reg.MustRegister(m.HTTPRequests, m.HTTPDuration, m.RouteSearches, m.SearchDuration, m.RegionLoads, m.ResidentRegions)
	return m
}

func (m *Metrics) ObserveHTTP(path, method, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(path, method, code).Inc()
	m.HTTPDuration.WithLabelValues(path, method).Observe(d.Seconds())
}

func (m *Metrics) ObserveSearch(mode, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.RouteSearches.WithLabelValues(mode, outcome).Inc()
	m.SearchDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func (m *Metrics) ObserveRegionLoad(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.RegionLoads.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetResidentRegions(n int) {
	if m == nil {
		return
	}
	m.ResidentRegions.Set(float64(n))
}
