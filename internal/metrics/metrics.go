// Package metrics owns the Prometheus registry exposed at /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Shimizu-Technology/result-analyser-api/internal/services/results"
)

// Analysis sources and outcomes used as label values.
const (
	SourceUpload    = "upload"
	SourceStateless = "stateless"
	SourceReload    = "reload"

	OutcomeOK         = "ok"
	OutcomeNoData     = "no_data"
	OutcomeUnreadable = "unreadable"
	OutcomeError      = "error"
)

// Metrics uses a private registry so tests can build as many as they like
// without tripping over the global default registerer.
type Metrics struct {
	registry *prometheus.Registry

	requestTotal     *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	analysesTotal    *prometheus.CounterVec
	extractedRecords prometheus.Histogram
	warningsTotal    *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "result_analyser",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "result_analyser",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	analysesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "result_analyser",
			Name:      "analyses_total",
			Help:      "Result documents analysed, by source and outcome.",
		},
		[]string{"source", "outcome"},
	)
	extractedRecords := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "result_analyser",
			Name:      "extracted_records",
			Help:      "Grade records extracted per successful analysis.",
			Buckets:   prometheus.ExponentialBuckets(10, 2, 10),
		},
	)
	warningsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "result_analyser",
			Name:      "extraction_warnings_total",
			Help:      "Data-quality warnings raised during extraction.",
		},
		[]string{"kind"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		analysesTotal,
		extractedRecords,
		warningsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		registry:         registry,
		requestTotal:     requestTotal,
		requestDuration:  requestDuration,
		analysesTotal:    analysesTotal,
		extractedRecords: extractedRecords,
		warningsTotal:    warningsTotal,
	}
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one finished HTTP request. path should be the
// route template, not the raw URL, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	m.requestTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// RecordAnalysis counts one analysis attempt.
func (m *Metrics) RecordAnalysis(source, outcome string) {
	m.analysesTotal.WithLabelValues(source, outcome).Inc()
}

// RecordExtraction records the size and warnings of a successful extraction.
func (m *Metrics) RecordExtraction(ext *results.Extraction) {
	m.extractedRecords.Observe(float64(len(ext.Records)))
	for _, w := range ext.Warnings {
		m.warningsTotal.WithLabelValues(string(w.Kind)).Inc()
	}
}
