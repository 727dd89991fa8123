package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for a running query server.
type Metrics struct {
	registry *prometheus.Registry

	rebuilds      *prometheus.CounterVec
	malformedRows prometheus.Gauge
	intervals     *prometheus.GaugeVec
	lastRebuild   prometheus.Gauge
	requests      *prometheus.CounterVec
	requestDur    *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.rebuilds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bargain_timeline",
		Name:      "rebuilds_total",
		Help:      "Timeline rebuilds by result",
	}, []string{"result"})
	m.malformedRows = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "bargain_timeline",
		Name:      "malformed_rows",
		Help:      "Rows skipped in the most recent successful load",
	})
	m.intervals = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "bargain_timeline",
		Name:      "intervals",
		Help:      "Derived intervals in the current timeline, by group",
	}, []string{"group"})
	m.lastRebuild = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "bargain_timeline",
		Name:      "last_rebuild_timestamp_seconds",
		Help:      "Unix time of the most recent successful rebuild",
	})
	m.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bargain_timeline",
		Name:      "http_requests_total",
		Help:      "API requests by route and status code",
	}, []string{"route", "code"})
	m.requestDur = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bargain_timeline",
		Name:      "http_request_duration_seconds",
		Help:      "API request latency by route",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	m.registry.MustRegister(m.rebuilds, m.malformedRows, m.intervals, m.lastRebuild, m.requests, m.requestDur)
	return m
}

// Rebuilt records a successful rebuild and the shape of the new timeline.
func (m *Metrics) Rebuilt(at time.Time, malformed int, perGroup map[string]int) {
	m.rebuilds.WithLabelValues("ok").Inc()
	m.malformedRows.Set(float64(malformed))
	m.lastRebuild.Set(float64(at.Unix()))
	m.intervals.Reset()
	for g, n := range perGroup {
		m.intervals.WithLabelValues(g).Set(float64(n))
	}
}

// RebuildFailed records a rebuild that kept the previous timeline.
func (m *Metrics) RebuildFailed() {
	m.rebuilds.WithLabelValues("error").Inc()
}

// Observe records one API request.
func (m *Metrics) Observe(route string, code int, d time.Duration) {
	m.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.requestDur.WithLabelValues(route).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
