// Package observability exposes Prometheus metrics for the capture pipeline.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all pipeline counters, gauges and histograms.
type Metrics struct {
	BatchesAccepted prometheus.Counter
	BatchesRejected prometheus.Counter
	EventsRouted    *prometheus.CounterVec
	FastPathRows    prometheus.Counter
	Flushes         *prometheus.CounterVec
	FlushesDropped  prometheus.Counter
	RowsInserted    prometheus.Counter
	RowsMerged      prometheus.Counter
	ExtractionMiss  *prometheus.CounterVec
	BufferedOrigins prometheus.Gauge
	PersistLatency  prometheus.Histogram
	DBQueryLatency  *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		BatchesAccepted: factory.NewCounter(prometheus.CounterOpts{
			Name: "capture_batches_accepted_total",
			Help: "Ingest batches accepted for processing",
		}),
		BatchesRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "capture_batches_rejected_total",
			Help: "Ingest batches rejected by envelope validation",
		}),
		EventsRouted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "capture_events_routed_total",
			Help: "Events routed into origin buffers, by payload kind",
		}, []string{"kind"}),
		FastPathRows: factory.NewCounter(prometheus.CounterOpts{
			Name: "capture_fastpath_decisions_total",
			Help: "Decisions persisted via the conversation fast path",
		}),
		Flushes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "capture_buffer_flushes_total",
			Help: "Origin buffer flushes, by trigger condition",
		}, []string{"trigger"}),
		FlushesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "capture_buffer_flushes_dropped_total",
			Help: "Flushes discarded for falling below the minimum content length",
		}),
		RowsInserted: factory.NewCounter(prometheus.CounterOpts{
			Name: "capture_decision_rows_inserted_total",
			Help: "New decision rows inserted",
		}),
		RowsMerged: factory.NewCounter(prometheus.CounterOpts{
			Name: "capture_decision_rows_merged_total",
			Help: "Decision rows merged into an existing hash",
		}),
		ExtractionMiss: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "capture_extraction_misses_total",
			Help: "Extractions that produced no value for a field, by field",
		}, []string{"field"}),
		BufferedOrigins: factory.NewGauge(prometheus.GaugeOpts{
			Name: "capture_buffered_origins",
			Help: "Origins currently tracked by the buffer store",
		}),
		PersistLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "capture_persist_duration_seconds",
			Help:    "End-to-end extract-and-persist latency per flush",
			Buckets: prometheus.DefBuckets,
		}),
		DBQueryLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "capture_db_query_duration_seconds",
			Help:    "Store query latency, by operation",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}
}

// Default is the process-wide metrics instance, registered on the default
// Prometheus registry.
var Default = NewMetrics(prometheus.DefaultRegisterer)

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler { return promhttp.Handler() }

func RecordBatchAccepted()          { Default.BatchesAccepted.Inc() }
func RecordBatchRejected()          { Default.BatchesRejected.Inc() }
func RecordEventRouted(kind string) { Default.EventsRouted.WithLabelValues(kind).Inc() }
func RecordFastPathRow()            { Default.FastPathRows.Inc() }
func RecordFlush(trigger string)    { Default.Flushes.WithLabelValues(trigger).Inc() }
func RecordFlushDropped()           { Default.FlushesDropped.Inc() }
func RecordRowInserted()            { Default.RowsInserted.Inc() }
func RecordRowMerged()              { Default.RowsMerged.Inc() }
func RecordExtractionMiss(field string) {
	Default.ExtractionMiss.WithLabelValues(field).Inc()
}
func SetBufferedOrigins(n int) { Default.BufferedOrigins.Set(float64(n)) }
func ObservePersist(seconds float64) {
	Default.PersistLatency.Observe(seconds)
}
func ObserveDBQuery(op string, seconds float64) {
	Default.DBQueryLatency.WithLabelValues(op).Observe(seconds)
}
