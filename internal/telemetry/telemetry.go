// Package telemetry provides OpenTelemetry instrumentation for the catalog service.
// It exports Prometheus metrics and provides tracing capabilities.
package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonesrussell/north-cloud/catalog/infrastructure/metrics"
)

const serviceName = "catalog"

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// Metrics holds all catalog Prometheus metrics
type Metrics struct {
	// Ingestion metrics
	ObjectsIngested *prometheus.CounterVec
	IngestFailures  *prometheus.CounterVec
	ScanDuration    prometheus.Histogram

	// Classification metrics
	ObjectsClassified  *prometheus.CounterVec
	ProcessingDuration *prometheus.HistogramVec
	BatchSize          prometheus.Histogram
	QueueDepth         prometheus.Gauge
	ActiveWorkers      prometheus.Gauge

	// Scorer metrics
	ScorerCalls    *prometheus.CounterVec
	ScorerDuration *prometheus.HistogramVec
}

// Provider wraps telemetry providers
type Provider struct {
	Tracer   trace.Tracer
	Metrics  *Metrics
	HTTP     *metrics.HTTP
	gatherer prometheus.Gatherer
}

// NewProvider initializes telemetry on the default Prometheus registry.
// It must be called at most once per process.
func NewProvider() *Provider {
	return newProvider(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewProviderWithRegistry initializes telemetry on a private registry.
func NewProviderWithRegistry(reg *prometheus.Registry) *Provider {
	return newProvider(reg, reg)
}

func newProvider(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Provider {
	return &Provider{
		Tracer:   otel.Tracer(serviceName),
		Metrics:  initMetrics(promauto.With(reg)),
		HTTP:     metrics.NewHTTP(reg, serviceName),
		gatherer: gatherer,
	}
}

// Handler returns the Prometheus HTTP handler for /metrics endpoint
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}

func initMetrics(f promauto.Factory) *Metrics {
	m := &Metrics{}
	initIngestMetrics(f, m)
	initProcessingMetrics(f, m)
	initScorerMetrics(f, m)
	return m
}

func initIngestMetrics(f promauto.Factory, m *Metrics) {
	m.ObjectsIngested = f.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_objects_ingested_total",
		Help: "Total catalog entries recorded by the ingestor",
	}, []string{"source", "kind"})

	m.IngestFailures = f.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_ingest_failures_total",
		Help: "Total source files that could not be ingested",
	}, []string{"source"})

	m.ScanDuration = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_ingest_scan_duration_seconds",
		Help:    "Time to scan every source directory once",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	})
}

func initProcessingMetrics(f promauto.Factory, m *Metrics) {
	m.ObjectsClassified = f.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_objects_classified_total",
		Help: "Total entries that finished classification, by final status",
	}, []string{"source", "status"})

	m.ProcessingDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_processing_duration_seconds",
		Help:    "Time to classify a single entry",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10, 30},
	}, []string{"source"})

	m.BatchSize = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_batch_size",
		Help:    "Number of entries per classification batch",
		Buckets: []float64{1, 2, 5, 10, 15, 25, 50, 100},
	})

	m.QueueDepth = f.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_queue_depth",
		Help: "New entries fetched by the last poll",
	})

	m.ActiveWorkers = f.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_active_workers",
		Help: "Currently active worker goroutines",
	})
}

func initScorerMetrics(f promauto.Factory, m *Metrics) {
	m.ScorerCalls = f.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_scorer_calls_total",
		Help: "Total model calls by operation, content kind and outcome",
	}, []string{"op", "kind", "outcome"})

	m.ScorerDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_scorer_duration_seconds",
		Help:    "Model call latency",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"op"})
}

// RecordIngest records one recorded entry; kind is file, container, item or invalid_json.
func (p *Provider) RecordIngest(_ context.Context, source, kind string) {
	p.Metrics.ObjectsIngested.WithLabelValues(source, kind).Inc()
}

// RecordIngestFailure records a source file that could not be ingested.
func (p *Provider) RecordIngestFailure(_ context.Context, source string) {
	p.Metrics.IngestFailures.WithLabelValues(source).Inc()
}

// RecordScan records the duration of one full scan.
func (p *Provider) RecordScan(duration time.Duration) {
	p.Metrics.ScanDuration.Observe(duration.Seconds())
}

// RecordClassification records metrics for a single classification
func (p *Provider) RecordClassification(_ context.Context, source, status string, duration time.Duration) {
	p.Metrics.ObjectsClassified.WithLabelValues(source, status).Inc()
	p.Metrics.ProcessingDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordScorerCall records one model call.
func (p *Provider) RecordScorerCall(op, kind string, duration time.Duration, err error) {
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeFailure
	}
	p.Metrics.ScorerCalls.WithLabelValues(op, kind, outcome).Inc()
	p.Metrics.ScorerDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// SetQueueDepth sets the current queue depth
func (p *Provider) SetQueueDepth(depth int) {
	p.Metrics.QueueDepth.Set(float64(depth))
}

// SetActiveWorkers sets the current active worker count
func (p *Provider) SetActiveWorkers(count int) {
	p.Metrics.ActiveWorkers.Set(float64(count))
}

// RecordBatchSize records the size of a processed batch
func (p *Provider) RecordBatchSize(size int) {
	p.Metrics.BatchSize.Observe(float64(size))
}

// StartSpan starts a new trace span.
// The caller is responsible for ending the span with span.End().
//
//nolint:spancheck // Caller is responsible for ending the span
func (p *Provider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := p.Tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, span
}
