package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type APIMetrics struct {
	registry *prometheus.Registry

	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	recognitionTotal *prometheus.CounterVec
	quotaFallbacks   prometheus.Counter
}

func NewAPIMetrics(service string) *APIMetrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notecore",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "HTTP requests by path and status class.",
		},
		[]string{"service", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "notecore",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds by path.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "path"},
	)
	recognitionTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notecore",
			Subsystem: "api",
			Name:      "recognition_total",
			Help:      "Recognition calls by backend and outcome.",
		},
		[]string{"service", "backend", "status"},
	)
	quotaFallbacks := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "notecore",
			Subsystem: "api",
			Name:      "quota_fallback_total",
			Help:      "High-fidelity requests rerouted to the on-device backend.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(requestsTotal, requestDuration, recognitionTotal, quotaFallbacks)

	return &APIMetrics{
		registry:         registry,
		requestsTotal:    requestsTotal,
		requestDuration:  requestDuration,
		recognitionTotal: recognitionTotal,
		quotaFallbacks:   quotaFallbacks,
	}
}

func (m *APIMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *APIMetrics) ObserveRequest(service, path string, status int, duration time.Duration) {
	class := "2xx"
	switch {
	case status >= 500:
		class = "5xx"
	case status >= 400:
		class = "4xx"
	case status >= 300:
		class = "3xx"
	}
	m.requestsTotal.WithLabelValues(service, path, class).Inc()
	m.requestDuration.WithLabelValues(service, path).Observe(duration.Seconds())
}

func (m *APIMetrics) RecordRecognition(service, backend string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.recognitionTotal.WithLabelValues(service, backend, status).Inc()
}

func (m *APIMetrics) RecordQuotaFallback() {
	m.quotaFallbacks.Inc()
}
