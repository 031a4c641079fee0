package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	reviewReadsTotal   *prometheus.CounterVec
	reviewRunsTotal    *prometheus.CounterVec
	reportExportsTotal *prometheus.CounterVec
	verdictsTotal      *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "uwr",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "uwr",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "uwr",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	reviewReadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "uwr",
			Subsystem: "review",
			Name:      "reads_total",
			Help:      "Total review summary reads.",
		},
		[]string{"service"},
	)
	reviewRunsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "uwr",
			Subsystem: "review",
			Name:      "run_requests_total",
			Help:      "Total review run requests accepted by the API.",
		},
		[]string{"service"},
	)
	reportExportsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "uwr",
			Subsystem: "review",
			Name:      "report_exports_total",
			Help:      "Total workbook exports by status.",
		},
		[]string{"service", "status"},
	)
	verdictsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "uwr",
			Subsystem: "review",
			Name:      "verdicts_total",
			Help:      "Total submitted underwriter verdicts by decision.",
		},
		[]string{"service", "decision"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		reviewReadsTotal,
		reviewRunsTotal,
		reportExportsTotal,
		verdictsTotal,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		reviewReadsTotal:   reviewReadsTotal,
		reviewRunsTotal:    reviewRunsTotal,
		reportExportsTotal: reportExportsTotal,
		verdictsTotal:      verdictsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath collapses proposer-scoped paths so the cardinality of the
// path label stays bounded.
func normalizePath(path string) string {
	if !strings.HasPrefix(path, "/v1/proposers/") {
		return path
	}
	rest := strings.TrimPrefix(path, "/v1/proposers/")
	if idx := strings.Index(rest, "/"); idx >= 0 {
		return "/v1/proposers/{proposer_id}" + rest[idx:]
	}
	return "/v1/proposers/{proposer_id}"
}

func (m *HTTPServerMetrics) RecordReviewRead(service string) {
	m.reviewReadsTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordRunRequest(service string) {
	m.reviewRunsTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordReportExport(service string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.reportExportsTotal.WithLabelValues(service, status).Inc()
}

func (m *HTTPServerMetrics) RecordVerdict(service, decision string) {
	if decision == "" {
		decision = "unknown"
	}
	m.verdictsTotal.WithLabelValues(service, decision).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
