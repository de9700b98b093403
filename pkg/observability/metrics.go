// Package observability provides metrics and tracing for batch classification runs.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for classification runs.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Batch metrics
	BatchesTotal *prometheus.CounterVec
	BatchSize    prometheus.Histogram
	BatchSeconds prometheus.Histogram

	// Per-item metrics
	ClassificationsTotal  *prometheus.CounterVec
	ClassificationSeconds *prometheus.HistogramVec
	ConfidenceScore       prometheus.Histogram
	InFlight              prometheus.Gauge

	// Summary metrics
	SummariesTotal *prometheus.CounterVec
	SummarySeconds prometheus.Histogram
}

// DefaultMetrics creates metrics registered on the default registerer.
func DefaultMetrics() *Metrics {
	return NewMetrics(prometheus.DefaultRegisterer)
}

// NewMetrics creates a new set of metrics registered on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		BatchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agriclassify_batches_total",
				Help: "Total batch runs by final status",
			},
			[]string{"status"},
		),
		BatchSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "agriclassify_batch_size",
				Help:    "Number of images per batch run",
				Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
			},
		),
		BatchSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "agriclassify_batch_seconds",
				Help:    "Wall time of a batch run including summarization",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
		),
		ClassificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agriclassify_classifications_total",
				Help: "Total classification outcomes by kind and failure code",
			},
			[]string{"outcome", "code"},
		),
		ClassificationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agriclassify_classification_seconds",
				Help:    "Latency of a single classification call",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 15, 30, 60},
			},
			[]string{"outcome"},
		),
		ConfidenceScore: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "agriclassify_confidence_score",
				Help:    "Confidence of successful classifications",
				Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1.0},
			},
		),
		InFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "agriclassify_classifications_in_flight",
				Help: "Classification calls currently in flight",
			},
		),
		SummariesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agriclassify_summaries_total",
				Help: "Summary outcomes by state",
			},
			[]string{"state"},
		),
		SummarySeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "agriclassify_summary_seconds",
				Help:    "Latency of the summarization call",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
		),
	}
}

// RecordClassification records one resolved classification.
func (m *Metrics) RecordClassification(outcome, code string, elapsed time.Duration, confidence *float64) {
	if m == nil {
		return
	}
	m.ClassificationsTotal.WithLabelValues(outcome, code).Inc()
	m.ClassificationSeconds.WithLabelValues(outcome).Observe(elapsed.Seconds())
	if confidence != nil {
		m.ConfidenceScore.Observe(*confidence)
	}
}

// IncInFlight marks a classification call as dispatched.
func (m *Metrics) IncInFlight() {
	if m == nil {
		return
	}
	m.InFlight.Inc()
}

// DecInFlight marks a classification call as settled.
func (m *Metrics) DecInFlight() {
	if m == nil {
		return
	}
	m.InFlight.Dec()
}

// RecordSummary records the summary state of a finished run.
func (m *Metrics) RecordSummary(state string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SummariesTotal.WithLabelValues(state).Inc()
	if elapsed > 0 {
		m.SummarySeconds.Observe(elapsed.Seconds())
	}
}

// RecordBatch records a finished batch run.
func (m *Metrics) RecordBatch(status string, size int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.BatchesTotal.WithLabelValues(status).Inc()
	m.BatchSize.Observe(float64(size))
	m.BatchSeconds.Observe(elapsed.Seconds())
}
