// Package metrics exposes Prometheus metrics for document processing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joseph-ayodele/docs-tracker/constants"
)

// Failure reasons used as the "reason" label.
const (
	ReasonUnreadable = "unreadable"
	ReasonStorage    = "storage"
	ReasonIntake     = "intake"
)

// Metrics holds the processing metrics on their own registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	DocumentsParsed *prometheus.CounterVec
	ParseFailures   *prometheus.CounterVec
	FilesDuplicate  prometheus.Counter
	Confidence      *prometheus.HistogramVec
	ParseDuration   prometheus.Histogram
	InFlight        prometheus.Gauge
}

// New creates and registers all metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{registry: reg}

	m.DocumentsParsed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docs_tracker_documents_parsed_total",
			Help: "Documents parsed and stored, by document type",
		},
		[]string{"document_type"},
	)

	m.ParseFailures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docs_tracker_parse_failures_total",
			Help: "Files that could not be processed, by reason",
		},
		[]string{"reason"},
	)

	m.FilesDuplicate = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "docs_tracker_files_duplicate_total",
			Help: "Files skipped because their content was already ingested",
		},
	)

	m.Confidence = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docs_tracker_extraction_confidence",
			Help:    "Extraction confidence of parsed documents",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		},
		[]string{"document_type"},
	)

	m.ParseDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docs_tracker_parse_duration_seconds",
			Help:    "Time to parse one file, text acquisition included",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	m.InFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "docs_tracker_files_in_flight",
			Help: "Files currently being processed",
		},
	)

	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return m
}

// Registry returns the registry the metrics live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveParsed(t constants.DocumentType, confidence float64, took time.Duration) {
	if m == nil {
		return
	}
	m.DocumentsParsed.WithLabelValues(string(t)).Inc()
	m.Confidence.WithLabelValues(string(t)).Observe(confidence)
	m.ParseDuration.Observe(took.Seconds())
}

func (m *Metrics) ObserveFailure(reason string) {
	if m == nil {
		return
	}
	m.ParseFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveDuplicate() {
	if m == nil {
		return
	}
	m.FilesDuplicate.Inc()
}

// Track marks one file in flight until the returned func is called.
func (m *Metrics) Track() func() {
	if m == nil {
		return func() {}
	}
	m.InFlight.Inc()
	return m.InFlight.Dec
}
