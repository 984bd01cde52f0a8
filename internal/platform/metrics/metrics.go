package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the downloader.
type Metrics struct {
	registry                *prometheus.Registry
	requestsTotal           *prometheus.CounterVec
	errorsTotal             *prometheus.CounterVec
	segmentsDownloadedTotal prometheus.Counter
	segmentFailuresTotal    prometheus.Counter
	retriesTotal            prometheus.Counter
	bytesDownloadedTotal    prometheus.Counter
	manifestsSucceededTotal prometheus.Counter
	manifestsFailedTotal    prometheus.Counter
	activeRuns              prometheus.Gauge
}

// New creates and registers Prometheus metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hlsdl_status_requests_total",
			Help: "Total number of HTTP requests served by the status server",
		}, []string{"route", "code"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hlsdl_status_errors_total",
			Help: "Total number of status server responses with status 4xx or 5xx",
		}, []string{"route"}),
		segmentsDownloadedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hlsdl_segments_downloaded_total",
			Help: "Total number of media segments written to disk",
		}),
		segmentFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hlsdl_segment_failures_total",
			Help: "Total number of segments skipped after retries ran out",
		}),
		retriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hlsdl_fetch_retries_total",
			Help: "Total number of retried playlist and segment downloads",
		}),
		bytesDownloadedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hlsdl_segment_bytes_total",
			Help: "Total number of segment bytes downloaded",
		}),
		manifestsSucceededTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hlsdl_manifests_succeeded_total",
			Help: "Total number of manifests merged into an output file",
		}),
		manifestsFailedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hlsdl_manifests_failed_total",
			Help: "Total number of manifests whose run ended without output",
		}),
		activeRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hlsdl_active_runs",
			Help: "Number of manifests currently being processed",
		}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.errorsTotal,
		m.segmentsDownloadedTotal,
		m.segmentFailuresTotal,
		m.retriesTotal,
		m.bytesDownloadedTotal,
		m.manifestsSucceededTotal,
		m.manifestsFailedTotal,
		m.activeRuns,
	)

	return m
}

// ObserveRequest counts one status server response for route. Responses with
// status 4xx or 5xx also count as errors.
func (m *Metrics) ObserveRequest(route string, status int) {
	m.requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	if status >= http.StatusBadRequest {
		m.errorsTotal.WithLabelValues(route).Inc()
	}
}

// IncSegmentsDownloaded increments the downloaded segments counter.
func (m *Metrics) IncSegmentsDownloaded() {
	m.segmentsDownloadedTotal.Inc()
}

// IncSegmentFailures increments the skipped segments counter.
func (m *Metrics) IncSegmentFailures() {
	m.segmentFailuresTotal.Inc()
}

// IncRetries increments the retry counter.
func (m *Metrics) IncRetries() {
	m.retriesTotal.Inc()
}

// AddBytesDownloaded adds n to the downloaded bytes counter.
func (m *Metrics) AddBytesDownloaded(n int64) {
	if n > 0 {
		m.bytesDownloadedTotal.Add(float64(n))
	}
}

// IncManifestsSucceeded increments the merged manifests counter.
func (m *Metrics) IncManifestsSucceeded() {
	m.manifestsSucceededTotal.Inc()
}

// IncManifestsFailed increments the failed manifests counter.
func (m *Metrics) IncManifestsFailed() {
	m.manifestsFailedTotal.Inc()
}

// SetActiveRuns sets the active runs gauge.
func (m *Metrics) SetActiveRuns(n int) {
	m.activeRuns.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. active runs).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
