package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	enrichTotal     *prometheus.CounterVec
	enrichDuration  *prometheus.HistogramVec
	enrichInFlight  prometheus.Gauge
	attachTotal     *prometheus.CounterVec
	fetchFailures   *prometheus.CounterVec
	previewFailures *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	enrichTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notecore",
			Subsystem: "worker",
			Name:      "note_enrich_total",
			Help:      "Total enrichment pipeline runs by outcome.",
		},
		[]string{"service", "status"},
	)
	enrichDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "notecore",
			Subsystem: "worker",
			Name:      "note_enrich_duration_seconds",
			Help:      "Enrichment pipeline duration in seconds by outcome.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	enrichInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "notecore",
			Subsystem: "worker",
			Name:      "note_enrich_in_flight",
			Help:      "Number of in-flight enrichment runs.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	attachTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notecore",
			Subsystem: "worker",
			Name:      "documents_attached_total",
			Help:      "Documents attached to notes by annotation source.",
		},
		[]string{"service", "source"},
	)
	fetchFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notecore",
			Subsystem: "worker",
			Name:      "annotation_fetch_failures_total",
			Help:      "Silently swallowed annotation fetch failures by source and stage.",
		},
		[]string{"service", "source", "stage"},
	)
	previewFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notecore",
			Subsystem: "worker",
			Name:      "preview_fetch_failures_total",
			Help:      "Preview image downloads that left the preview unset.",
		},
		[]string{"service"},
	)

	registry.MustRegister(enrichTotal, enrichDuration, enrichInFlight, attachTotal, fetchFailures, previewFailures)

	return &WorkerMetrics{
		registry:        registry,
		enrichTotal:     enrichTotal,
		enrichDuration:  enrichDuration,
		enrichInFlight:  enrichInFlight,
		attachTotal:     attachTotal,
		fetchFailures:   fetchFailures,
		previewFailures: previewFailures,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartEnrich() {
	m.enrichInFlight.Inc()
}

func (m *WorkerMetrics) FinishEnrich(service string, duration time.Duration, err error) {
	m.enrichInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.enrichTotal.WithLabelValues(service, status).Inc()
	m.enrichDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) RecordAttach(service, source string) {
	m.attachTotal.WithLabelValues(service, source).Inc()
}

func (m *WorkerMetrics) RecordFetchFailure(service, source, stage string) {
	m.fetchFailures.WithLabelValues(service, source, stage).Inc()
}

func (m *WorkerMetrics) RecordPreviewFailure(service string) {
	m.previewFailures.WithLabelValues(service).Inc()
}
