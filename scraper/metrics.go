package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	RecordsTotal    *prometheus.CounterVec
	RetriesTotal    prometheus.Counter
	ErrorsTotal     *prometheus.CounterVec
	PagesFailed     *prometheus.CounterVec
	TargetsFailed   *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_requests_total",
			Help: "Total API requests issued by the scraper, by outcome.",
		},
		[]string{"outcome"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_request_duration_seconds",
			Help:    "Latency of catalog API requests.",
			Buckets: prometheus.DefBuckets,
		},
	)
	records := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_records_total",
			Help: "Normalized records collected, by city.",
		},
		[]string{"city"},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_retries_total",
			Help: "Total number of retry attempts.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Failed request attempts by error type.",
		},
		[]string{"error_type"},
	)
	pagesFailed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_pages_failed_total",
			Help: "Pages dropped after exhausting every attempt, by city.",
		},
		[]string{"city"},
	)
	targetsFailed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_targets_failed_total",
			Help: "Cities skipped entirely, by reason.",
		},
		[]string{"reason"},
	)

	registry.MustRegister(requests, requestDuration, records, retries, errorsTotal, pagesFailed, targetsFailed)

	return &Metrics{
		Registry:        registry,
		RequestsTotal:   requests,
		RequestDuration: requestDuration,
		RecordsTotal:    records,
		RetriesTotal:    retries,
		ErrorsTotal:     errorsTotal,
		PagesFailed:     pagesFailed,
		TargetsFailed:   targetsFailed,
	}
}

// IncRequest increments the requests counter for an outcome.
func (m *Metrics) IncRequest(outcome string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(outcome).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// AddRecords adds n collected records for city.
func (m *Metrics) AddRecords(city string, n int) {
	if m == nil {
		return
	}
	m.RecordsTotal.WithLabelValues(city).Add(float64(n))
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncPageFailed counts a dropped page.
func (m *Metrics) IncPageFailed(city string) {
	if m == nil {
		return
	}
	m.PagesFailed.WithLabelValues(city).Inc()
}

// IncTargetFailed counts a skipped city.
func (m *Metrics) IncTargetFailed(reason string) {
	if m == nil {
		return
	}
	m.TargetsFailed.WithLabelValues(reason).Inc()
}
