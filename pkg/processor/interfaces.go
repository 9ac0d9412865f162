package processor

import "github.com/ajitpratap0/colbatch/pkg/columnar"

// ParsingContext is the per-call state a parsing engine hands to a
// RowProcessor. The processor only reads header information from it.
type ParsingContext interface {
	// Headers returns the header names. ok is false when the engine has no
	// header information; an empty slice with ok true means the source
	// declares zero columns.
	Headers() (headers []string, ok bool)
	// CurrentLine returns the input line the engine last read, 1-based.
	CurrentLine() int64
	// CurrentRecord returns the index of the last data row delivered, 0-based.
	CurrentRecord() int64
}

// RowProcessor is the callback protocol a parsing engine drives. An engine
// calls ProcessStarted once, RowProcessed for every row in order, and
// ProcessEnded once, all from a single goroutine. Rows pending when an engine
// stops without calling ProcessEnded are never delivered.
type RowProcessor interface {
	ProcessStarted(ctx ParsingContext)
	RowProcessed(row []*string, ctx ParsingContext) error
	ProcessEnded(ctx ParsingContext) error
}

// Batch describes one flushed batch.
type Batch struct {
	// Sequence is the 0-based position of the batch in the stream.
	Sequence int
	// Final is set on the partial batch flushed at stream end.
	Final bool
	// Context is the engine context of the row that completed the batch, or
	// the end-of-stream context for the final batch.
	Context ParsingContext
	// Columns is valid only until BatchProcessed returns. Values are cleared
	// right after; copy anything that must outlive the call.
	Columns columnar.Reader
}

// BatchHandler consumes flushed batches. BatchProcessed runs synchronously on
// the engine's goroutine and must not drive the processor that called it.
type BatchHandler interface {
	BatchProcessed(rowsInBatch int, batch Batch) error
}

// BatchHandlerFunc adapts a function to BatchHandler
type BatchHandlerFunc func(rowsInBatch int, batch Batch) error

// BatchProcessed calls f
func (f BatchHandlerFunc) BatchProcessed(rowsInBatch int, batch Batch) error {
	return f(rowsInBatch, batch)
}
