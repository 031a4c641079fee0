package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	documentTotal    *prometheus.CounterVec
	documentDuration *prometheus.HistogramVec
	documentInFlight prometheus.Gauge
	runTotal         *prometheus.CounterVec
	runDuration      prometheus.Histogram
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	documentTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "uwr",
			Subsystem: "worker",
			Name:      "document_process_total",
			Help:      "Total processed documents by status.",
		},
		[]string{"service", "status"},
	)
	documentDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "uwr",
			Subsystem: "worker",
			Name:      "document_process_duration_seconds",
			Help:      "Per-document extraction and analysis duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	documentInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "uwr",
			Subsystem: "worker",
			Name:      "document_process_in_flight",
			Help:      "Number of documents currently being processed.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	runTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "uwr",
			Subsystem: "worker",
			Name:      "review_run_total",
			Help:      "Total review runs by outcome.",
		},
		[]string{"service", "outcome"},
	)
	runDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "uwr",
			Subsystem: "worker",
			Name:      "review_run_duration_seconds",
			Help:      "Whole-run duration in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(documentTotal, documentDuration, documentInFlight, runTotal, runDuration)

	return &WorkerMetrics{
		registry:         registry,
		documentTotal:    documentTotal,
		documentDuration: documentDuration,
		documentInFlight: documentInFlight,
		runTotal:         runTotal,
		runDuration:      runDuration,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RunRecorder binds the per-document hooks for one service so the
// processor stays free of label plumbing.
func (m *WorkerMetrics) RunRecorder(service string) *RunRecorder {
	return &RunRecorder{metrics: m, service: service}
}

type RunRecorder struct {
	metrics *WorkerMetrics
	service string
}

func (r *RunRecorder) StartDocument() {
	r.metrics.documentInFlight.Inc()
}

func (r *RunRecorder) FinishDocument(duration time.Duration, err error) {
	r.metrics.documentInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	r.metrics.documentTotal.WithLabelValues(r.service, status).Inc()
	r.metrics.documentDuration.WithLabelValues(r.service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) RecordRun(service, outcome string, duration time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.runTotal.WithLabelValues(service, outcome).Inc()
	m.runDuration.Observe(duration.Seconds())
}
