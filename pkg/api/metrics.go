package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds all Prometheus metrics for the API
type Metrics struct {
	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec

	// Record pipeline metrics
	recordsIngestedTotal *prometheus.CounterVec
	recordWarningsTotal  prometheus.Counter
	extractRequestsTotal *prometheus.CounterVec

	// Store metrics
	storeRecordsTotal  prometheus.Gauge
	storeDataSizeBytes prometheus.Gauge

	// Health check metrics
	healthChecksTotal *prometheus.CounterVec
}

var (
	metricsOnce   sync.Once
	sharedMetrics *Metrics
)

// NewMetrics returns the process-wide API metrics, registering them
// with the default prometheus registerer on first use. Registration
// must happen exactly once per process.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		sharedMetrics = newMetrics()
	})
	return sharedMetrics
}

func newMetrics() *Metrics {
	m := &Metrics{
		// HTTP request metrics
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marc_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marc_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		httpRequestsInFlight: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marc_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method", "endpoint"},
		),

		// Record pipeline metrics
		recordsIngestedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marc_records_ingested_total",
				Help: "Total number of MARC records ingested",
			},
			[]string{"status"},
		),

		recordWarningsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "marc_record_warnings_total",
				Help: "Total number of parse warnings attached to ingested records",
			},
		),

		extractRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marc_extract_requests_total",
				Help: "Total number of pattern extraction requests",
			},
			[]string{"status"},
		),

		// Store metrics
		storeRecordsTotal: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "marc_store_records_total",
				Help: "Total number of records in the store",
			},
		),

		storeDataSizeBytes: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "marc_store_data_size_bytes",
				Help: "Total size of stored record data in bytes",
			},
		),

		// Health check metrics
		healthChecksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marc_health_checks_total",
				Help: "Total number of health checks",
			},
			[]string{"status"},
		),
	}

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	statusCodeStr := strconv.Itoa(statusCode)

	m.httpRequestsTotal.WithLabelValues(method, endpoint, statusCodeStr).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordIngest records the outcome of a single record ingest
func (m *Metrics) RecordIngest(success bool, warnings int) {
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.recordsIngestedTotal.WithLabelValues(status).Inc()
	m.recordWarningsTotal.Add(float64(warnings))
}

// RecordExtract records a pattern extraction request
func (m *Metrics) RecordExtract(success bool) {
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.extractRequestsTotal.WithLabelValues(status).Inc()
}

// UpdateStoreStats updates store statistics
func (m *Metrics) UpdateStoreStats(records int, dataSize int64) {
	m.storeRecordsTotal.Set(float64(records))
	m.storeDataSizeBytes.Set(float64(dataSize))
}

// RecordHealthCheck records a health check
func (m *Metrics) RecordHealthCheck(success bool) {
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.healthChecksTotal.WithLabelValues(status).Inc()
}

// InstrumentHandler instruments an HTTP handler with metrics
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Record request in flight
		gauge := m.httpRequestsInFlight.WithLabelValues(method, endpoint)
		gauge.Inc()
		defer gauge.Dec()

		// Create response writer wrapper to capture status code
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		// Call the original handler
		handler(rw, r)

		// Record metrics
		duration := time.Since(start)
		m.RecordHTTPRequest(method, endpoint, rw.statusCode, duration)
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
