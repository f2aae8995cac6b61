package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics represents the collection of all Prometheus metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	ExtractionsTotal   *prometheus.CounterVec
	ExtractionDuration prometheus.Histogram
	NVDRequestsTotal   *prometheus.CounterVec
	FindingsTotal      *prometheus.CounterVec
}

// NewMetrics creates all metrics and registers them on a fresh registry,
// alongside the Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iifvs_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "iifvs_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	m.ExtractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iifvs_extractions_total",
			Help: "Firmware extractions by outcome",
		},
		[]string{"outcome"},
	)

	m.ExtractionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "iifvs_extraction_duration_seconds",
			Help:    "Wall time of the extraction tool",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	m.NVDRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iifvs_nvd_requests_total",
			Help: "NVD API requests by outcome",
		},
		[]string{"outcome"},
	)

	m.FindingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iifvs_findings_total",
			Help: "CVE findings returned, by severity",
		},
		[]string{"severity"},
	)

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ExtractionsTotal,
		m.ExtractionDuration,
		m.NVDRequestsTotal,
		m.FindingsTotal,
	)

	return m
}

// Registry exposes the underlying registry for the metrics server.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RequestTrackingMiddleware records count and latency per route pattern.
func (m *Metrics) RequestTrackingMiddleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		// r.Pattern is filled in by ServeMux; raw paths would explode cardinality.
		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rw.statusCode)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// responseWriter is a wrapper to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// ObserveExtraction records one extraction run.
func (m *Metrics) ObserveExtraction(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ExtractionsTotal.WithLabelValues(outcome).Inc()
	m.ExtractionDuration.Observe(d.Seconds())
}

// ObserveNVDRequest records one upstream lookup.
func (m *Metrics) ObserveNVDRequest(outcome string) {
	if m == nil {
		return
	}
	m.NVDRequestsTotal.WithLabelValues(outcome).Inc()
}

// AddFindings counts returned findings per severity tier.
func (m *Metrics) AddFindings(severity string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.FindingsTotal.WithLabelValues(severity).Add(float64(n))
}

// Handler returns the Prometheus HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
