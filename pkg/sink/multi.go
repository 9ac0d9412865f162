package sink

import (
	"github.com/ajitpratap0/colbatch/pkg/errors"
	"github.com/ajitpratap0/colbatch/pkg/processor"
)

// Multi hands every batch to several handlers in order. All handlers see
// the batch even when an earlier one fails; the errors are joined.
type Multi struct {
	handlers []processor.BatchHandler
}

// NewMulti creates a fan-out over handlers
func NewMulti(handlers ...processor.BatchHandler) *Multi {
	return &Multi{handlers: handlers}
}

// BatchProcessed calls each handler
func (m *Multi) BatchProcessed(rows int, batch processor.Batch) error {
	var errs []error
	for _, h := range m.handlers {
		if err := h.BatchProcessed(rows, batch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every handler that holds an output stream
func (m *Multi) Close() error {
	var errs []error
	for _, h := range m.handlers {
		if err := Close(h); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
