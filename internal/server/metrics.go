package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the server's Prometheus collectors.
type Metrics struct {
	Requests       *prometheus.CounterVec
	Duration       *prometheus.HistogramVec
	Lookups        *prometheus.CounterVec
	BytesServed    prometheus.Counter
	CatalogReloads *prometheus.CounterVec
	CatalogSize    *prometheus.GaugeVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "designview",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "designview",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		Lookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "designview",
			Name:      "design_lookups_total",
			Help:      "Design lookups by result (hit, miss, invalid).",
		}, []string{"result"}),
		BytesServed: f.NewCounter(prometheus.CounterOpts{
			Namespace: "designview",
			Name:      "design_file_bytes_served_total",
			Help:      "Bytes of design files sent to clients.",
		}),
		CatalogReloads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "designview",
			Name:      "catalog_reloads_total",
			Help:      "Catalog reloads from disk by result.",
		}, []string{"result"}),
		CatalogSize: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "designview",
			Name:      "catalog_records",
			Help:      "Catalog records by kind.",
		}, []string{"kind"}),
	}
}

// ObserveReload records a catalog reload attempt. It fits
// catalog.Watcher.OnReload.
func (m *Metrics) ObserveReload(err error) {
	if err != nil {
		m.CatalogReloads.WithLabelValues("error").Inc()
		return
	}
	m.CatalogReloads.WithLabelValues("ok").Inc()
}
