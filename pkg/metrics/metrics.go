package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PulledRecords tracks how many records leave the server through pull
	// responses, labelled by table
	PulledRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_pulled_records_total",
		Help: "Total number of records returned by pull responses",
	}, []string{"table"})

	// PushedRecords tracks the per-record outcome of push batches
	// Labels allow filtering by table and outcome (success/conflict/error)
	PushedRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_pushed_records_total",
		Help: "Total number of pushed records by outcome",
	}, []string{"table", "outcome"})

	// PushBatchSize tracks the number of changes submitted per push call
	PushBatchSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sync_push_batch_size",
		Help:    "Number of changes submitted per push batch",
		Buckets: []float64{1, 5, 10, 50, 100, 500},
	}, []string{"table"})

	// PushDuration measures how long a whole push batch takes, commit
	// included
	PushDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sync_push_duration_seconds",
		Help:    "Duration of push batch processing in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"table"})
)

// ObservePushDuration starts a push timer for the given table. The returned
// function records the elapsed time when called.
func ObservePushDuration(table string) func() {
	start := time.Now()
	return func() {
		PushDuration.WithLabelValues(table).Observe(time.Since(start).Seconds())
	}
}
