// Package metrics provides Prometheus instrumentation for batch flushing.
//
// # Basic Usage
//
//	reg := prometheus.NewRegistry()
//	collector := metrics.NewCollector("colbatch", reg)
//
//	timer := metrics.NewTimer("flush")
//	err := handler.BatchProcessed(rows, batch)
//	collector.ObserveBatch("orders", rows, batch.Final, timer.Stop(), err)
//
// Each Collector registers its own vectors on the Registerer it is given, so
// tests can use a fresh registry and read values with prometheus/testutil.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Batch kinds used as the "kind" label
const (
	KindFull    = "full"
	KindPartial = "partial"
)

// Collector records rows and batches flushed per stream.
type Collector struct {
	RowsProcessed  *prometheus.CounterVec
	BatchesFlushed *prometheus.CounterVec
	BatchFailures  *prometheus.CounterVec
	BatchRows      *prometheus.HistogramVec
	FlushDuration  *prometheus.HistogramVec
}

// NewCollector creates and registers the colbatch metrics under namespace.
// A nil Registerer uses prometheus.DefaultRegisterer.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		RowsProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_processed_total",
				Help:      "Total number of rows delivered to batch consumers",
			},
			[]string{"stream"},
		),
		BatchesFlushed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "batches_flushed_total",
				Help:      "Total number of batches flushed, by kind (full or partial)",
			},
			[]string{"stream", "kind"},
		),
		BatchFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "batch_failures_total",
				Help:      "Total number of batches whose consumer returned an error",
			},
			[]string{"stream"},
		),
		BatchRows: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "batch_rows",
				Help:      "Rows per flushed batch",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
			},
			[]string{"stream"},
		),
		FlushDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "flush_duration_seconds",
				Help:      "Time spent in the batch consumer per flush",
				Buckets: []float64{
					0.0001, // 100μs
					0.001,  // 1ms
					0.01,   // 10ms
					0.1,    // 100ms
					1,      // 1s
					10,     // 10s
				},
			},
			[]string{"stream"},
		),
	}
}

// ObserveBatch records one flush
func (c *Collector) ObserveBatch(stream string, rows int, final bool, duration time.Duration, err error) {
	kind := KindFull
	if final {
		kind = KindPartial
	}

	c.BatchesFlushed.WithLabelValues(stream, kind).Inc()
	c.RowsProcessed.WithLabelValues(stream).Add(float64(rows))
	c.BatchRows.WithLabelValues(stream).Observe(float64(rows))
	c.FlushDuration.WithLabelValues(stream).Observe(duration.Seconds())
	if err != nil {
		c.BatchFailures.WithLabelValues(stream).Inc()
	}
}

// Timer provides a simple timing mechanism for measuring operation durations.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the timer name
func (t *Timer) Name() string {
	return t.name
}

// Stop returns the elapsed duration since creation. It can be called
// repeatedly.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
