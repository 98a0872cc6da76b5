// Package metrics provides Prometheus metrics for the edusync pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the sync pipeline.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Source Metrics - remote fetch behavior
	pagesFetched         *prometheus.CounterVec
	recordsFetched       *prometheus.CounterVec
	fetchRetries         *prometheus.CounterVec
	fetchErrors          *prometheus.CounterVec
	sourceRequestSeconds *prometheus.HistogramVec

	// Transform Metrics - record-level outcomes
	recordsProcessed *prometheus.CounterVec
	recordsSkipped   *prometheus.CounterVec

	// Destination Metrics - write behavior
	batchesFlushed  *prometheus.CounterVec
	rowsUpserted    *prometheus.CounterVec
	rowsDeleted     *prometheus.CounterVec
	upsertRetries   prometheus.Counter
	batchBisections prometheus.Counter
	rowFailures     *prometheus.CounterVec
	flushSeconds    *prometheus.HistogramVec

	// Checkpoint Metrics
	checkpointSaves prometheus.Counter

	// Run Metrics
	stageSeconds *prometheus.HistogramVec
	runsTotal    *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "edusync",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.pagesFetched = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "source_pages_fetched_total",
			Help:      "Total number of source pages fetched per stream",
		},
		[]string{"stream"},
	)

	m.recordsFetched = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "source_records_fetched_total",
			Help:      "Total number of source records fetched per stream",
		},
		[]string{"stream"},
	)

	m.fetchRetries = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "source_fetch_retries_total",
			Help:      "Total number of retried source requests per stream",
		},
		[]string{"stream"},
	)

	m.fetchErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "source_fetch_errors_total",
			Help:      "Total number of source requests that exhausted retries",
		},
		[]string{"stream"},
	)

	m.sourceRequestSeconds = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "source_request_duration_seconds",
			Help:      "Source API request duration in seconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"stream"},
	)

	m.recordsProcessed = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "records_processed_total",
			Help:      "Total number of source records transformed per stream",
		},
		[]string{"stream"},
	)

	m.recordsSkipped = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "records_skipped_total",
			Help:      "Total number of records skipped, by reason",
		},
		[]string{"stream", "reason"},
	)

	m.batchesFlushed = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "batches_flushed_total",
			Help:      "Total number of batches flushed per entity kind",
		},
		[]string{"entity"},
	)

	m.rowsUpserted = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "rows_upserted_total",
			Help:      "Total number of destination rows upserted per entity kind",
		},
		[]string{"entity"},
	)

	m.rowsDeleted = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "rows_deleted_total",
			Help:      "Total number of destination rows deleted by reconciliation",
		},
		[]string{"entity"},
	)

	m.upsertRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "upsert_retries_total",
		Help:      "Total number of retried batch upserts",
	})

	m.batchBisections = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batch_bisections_total",
		Help:      "Total number of batches bisected after upsert failure",
	})

	m.rowFailures = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "row_failures_total",
			Help:      "Total number of individual rows that failed to upsert",
		},
		[]string{"entity"},
	)

	m.flushSeconds = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "flush_duration_seconds",
			Help:      "Batch flush duration in seconds per entity kind",
			Buckets:   m.histogramBuckets,
		},
		[]string{"entity"},
	)

	m.checkpointSaves = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "checkpoint_saves_total",
		Help:      "Total number of checkpoint saves",
	})

	m.stageSeconds = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"stage"},
	)

	m.runsTotal = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "runs_total",
			Help:      "Total number of sync runs by final status",
		},
		[]string{"status"},
	)
}

// Global helper functions, mirroring the Manager methods on the singleton.

// RecordPageFetched increments the fetched-page counter for a stream.
func RecordPageFetched(stream string, records int) {
	globalManager.pagesFetched.WithLabelValues(stream).Inc()
	globalManager.recordsFetched.WithLabelValues(stream).Add(float64(records))
}

// RecordFetchRetry increments the retry counter for a stream.
func RecordFetchRetry(stream string) {
	globalManager.fetchRetries.WithLabelValues(stream).Inc()
}

// RecordFetchError increments the exhausted-retries counter for a stream.
func RecordFetchError(stream string) {
	globalManager.fetchErrors.WithLabelValues(stream).Inc()
}

// RecordSourceRequestDuration observes a source request duration.
func RecordSourceRequestDuration(stream string, seconds float64) {
	globalManager.sourceRequestSeconds.WithLabelValues(stream).Observe(seconds)
}

// RecordRecordProcessed increments the processed-record counter for a stream.
func RecordRecordProcessed(stream string) {
	globalManager.recordsProcessed.WithLabelValues(stream).Inc()
}

// RecordRecordSkipped increments the skipped-record counter for a stream and reason.
func RecordRecordSkipped(stream, reason string) {
	globalManager.recordsSkipped.WithLabelValues(stream, reason).Inc()
}

// RecordBatchFlushed increments flush counters for an entity kind.
func RecordBatchFlushed(entity string, rows int) {
	globalManager.batchesFlushed.WithLabelValues(entity).Inc()
	globalManager.rowsUpserted.WithLabelValues(entity).Add(float64(rows))
}

// RecordRowsDeleted adds to the reconciliation delete counter.
func RecordRowsDeleted(entity string, rows int) {
	globalManager.rowsDeleted.WithLabelValues(entity).Add(float64(rows))
}

// RecordUpsertRetry increments the batch retry counter.
func RecordUpsertRetry() {
	globalManager.upsertRetries.Inc()
}

// RecordBatchBisection increments the bisection counter.
func RecordBatchBisection() {
	globalManager.batchBisections.Inc()
}

// RecordRowFailure increments the per-row failure counter for an entity kind.
func RecordRowFailure(entity string) {
	globalManager.rowFailures.WithLabelValues(entity).Inc()
}

// RecordFlushDuration observes a flush duration for an entity kind.
func RecordFlushDuration(entity string, seconds float64) {
	globalManager.flushSeconds.WithLabelValues(entity).Observe(seconds)
}

// RecordCheckpointSave increments the checkpoint save counter.
func RecordCheckpointSave() {
	globalManager.checkpointSaves.Inc()
}

// RecordStageDuration observes a stage duration.
func RecordStageDuration(stage string, seconds float64) {
	globalManager.stageSeconds.WithLabelValues(stage).Observe(seconds)
}

// RecordRunCompleted increments the run counter for a final status.
func RecordRunCompleted(status string) {
	globalManager.runsTotal.WithLabelValues(status).Inc()
}

// GetRegistry returns the custom registry for the metrics HTTP handler.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
