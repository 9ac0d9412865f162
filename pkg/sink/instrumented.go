package sink

import (
	"github.com/ajitpratap0/colbatch/pkg/metrics"
	"github.com/ajitpratap0/colbatch/pkg/processor"
)

// Instrumented records Prometheus metrics around another handler
type Instrumented struct {
	next      processor.BatchHandler
	collector *metrics.Collector
	stream    string
}

// NewInstrumented wraps next. stream is used as the metric label.
func NewInstrumented(next processor.BatchHandler, collector *metrics.Collector, stream string) *Instrumented {
	return &Instrumented{
		next:      next,
		collector: collector,
		stream:    stream,
	}
}

// BatchProcessed times the wrapped handler and records the outcome
func (h *Instrumented) BatchProcessed(rows int, batch processor.Batch) error {
	timer := metrics.NewTimer("flush")
	err := h.next.BatchProcessed(rows, batch)
	h.collector.ObserveBatch(h.stream, rows, batch.Final, timer.Stop(), err)
	return err
}

// Close closes the wrapped handler
func (h *Instrumented) Close() error {
	return Close(h.next)
}
