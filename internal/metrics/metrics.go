// Package metrics holds the Prometheus collectors exposed by the dashboard.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	Registry *prometheus.Registry

	Loads          *prometheus.CounterVec
	LoadDuration   prometheus.Histogram
	RowsLoaded     prometheus.Gauge
	CacheHits      prometheus.Counter
	ChatsExported  prometheus.Counter
	Requests       *prometheus.CounterVec
	RequestLatency *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		Loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatscope",
			Name:      "pipeline_loads_total",
			Help:      "Reconciliation pipeline runs by outcome.",
		}, []string{"outcome"}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "chatscope",
			Name:      "pipeline_load_duration_seconds",
			Help:      "Time spent reading the store and reconciling messages.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		RowsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chatscope",
			Name:      "pipeline_rows",
			Help:      "Rows in the most recently reconciled message table.",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chatscope",
			Name:      "pipeline_cache_hits_total",
			Help:      "Loads served from the in-memory table cache.",
		}),
		ChatsExported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chatscope",
			Name:      "export_chats_total",
			Help:      "Transcript files written.",
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatscope",
			Name:      "http_requests_total",
			Help:      "Dashboard requests by route and status.",
		}, []string{"route", "status"}),
		RequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chatscope",
			Name:      "http_request_duration_seconds",
			Help:      "Dashboard request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Loads, m.LoadDuration, m.RowsLoaded, m.CacheHits, m.ChatsExported,
		m.Requests, m.RequestLatency,
	)
	return m
}

// ObserveLoad records one pipeline run. Safe on a nil receiver.
func (m *Metrics) ObserveLoad(d time.Duration, rows int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.Loads.WithLabelValues("error").Inc()
		return
	}
	m.Loads.WithLabelValues("ok").Inc()
	m.LoadDuration.Observe(d.Seconds())
	m.RowsLoaded.Set(float64(rows))
}

// ObserveCacheHit counts a load served from cache. Safe on a nil receiver.
func (m *Metrics) ObserveCacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

// ObserveExport counts written transcript files. Safe on a nil receiver.
func (m *Metrics) ObserveExport(files int) {
	if m == nil {
		return
	}
	m.ChatsExported.Add(float64(files))
}

// ObserveRequest records one dashboard request. Safe on a nil receiver.
func (m *Metrics) ObserveRequest(route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.RequestLatency.WithLabelValues(route).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
