package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Rows read by the flat-file loaders, by file and result.
	LoadRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refdata_load_rows_total",
			Help: "Total number of reference-data rows read from flat files.",
		},
		[]string{"file", "result"}, // result = "ok" | "error"
	)

	LoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "refdata_load_duration_seconds",
			Help:    "Time taken to load a reference-data file.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms → ~2s
		},
		[]string{"file"},
	)

	// Entries held by each table after the load phase.
	Entries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "refdata_entries",
			Help: "Number of entries in each reference-data table.",
		},
		[]string{"table"},
	)

	LookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refdata_lookups_total",
			Help: "Reference-data lookups by table and result.",
		},
		[]string{"table", "result"}, // result = "hit" | "miss"
	)

	WriteRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refdata_write_rejected_total",
			Help: "Writes rejected because the table was already frozen.",
		},
		[]string{"table"},
	)

	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refdata_events_published_total",
			Help: "Snapshot events published, by backend and result.",
		},
		[]string{"backend", "result"},
	)

	PublishLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "refdata_publish_latency_seconds",
			Help:    "Time taken to publish a snapshot event.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refdata_errors_total",
			Help: "Count of service-level errors by component.",
		},
		[]string{"component", "reason"},
	)

	// Unix seconds of the last successful snapshot sync to the store.
	LastSyncTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "refdata_last_sync_timestamp",
			Help: "Timestamp (unix seconds) of the last successful snapshot sync.",
		},
	)
)

// ObserveDuration records the time elapsed since start on a histogram or summary.
func ObserveDuration(v interface{}, start time.Time, labels ...string) {
	duration := time.Since(start).Seconds()

	switch metric := v.(type) {
	case *prometheus.HistogramVec:
		metric.WithLabelValues(labels...).Observe(duration)
	case *prometheus.SummaryVec:
		metric.WithLabelValues(labels...).Observe(duration)
	default:
	}
}

func IncLoadRows(file, result string, n int) {
	LoadRowsTotal.WithLabelValues(file, result).Add(float64(n))
}

func SetEntries(table string, n int) {
	Entries.WithLabelValues(table).Set(float64(n))
}

func IncLookup(table string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	LookupsTotal.WithLabelValues(table, result).Inc()
}

func IncWriteRejected(table string) {
	WriteRejectedTotal.WithLabelValues(table).Inc()
}

func IncEventPublished(backend, result string) {
	EventsPublishedTotal.WithLabelValues(backend, result).Inc()
}

func IncError(component, reason string) {
	ErrorsTotal.WithLabelValues(component, reason).Inc()
}

func SetLastSync(t time.Time) {
	LastSyncTimestamp.Set(float64(t.Unix()))
}
