// Package metrics exposes the service's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the collectors so tests can run with their own
// registry instead of the global one.
type Metrics struct {
	registry *prometheus.Registry

	Queries      *prometheus.CounterVec
	DatasetReady prometheus.Gauge
	DatasetRows  prometheus.Gauge
	LoadSeconds  prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "accidents_queries_total",
			Help: "Query operations served, by operation and outcome.",
		}, []string{"operation", "status"}),
		DatasetReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "accidents_dataset_ready",
			Help: "1 once the dataset is loaded and published.",
		}),
		DatasetRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "accidents_dataset_rows",
			Help: "Row count of the loaded dataset.",
		}),
		LoadSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "accidents_dataset_load_seconds",
			Help: "Wall time of the startup load.",
		}),
	}
	reg.MustRegister(m.Queries, m.DatasetReady, m.DatasetRows, m.LoadSeconds)
	return m
}

// Handler serves the /metrics scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
