package processor

import (
	"go.uber.org/zap"

	"github.com/ajitpratap0/colbatch/pkg/columnar"
	"github.com/ajitpratap0/colbatch/pkg/errors"
)

// State is the lifecycle state of a BatchedColumnProcessor
type State int

const (
	// StateIdle is the state before the first stream starts
	StateIdle State = iota
	// StateAccumulating means rows are being collected into the current batch
	StateAccumulating
	// StateFlushing means the batch handler is running
	StateFlushing
	// StateEnded means the last stream ended
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAccumulating:
		return "accumulating"
	case StateFlushing:
		return "flushing"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Option configures a BatchedColumnProcessor
type Option func(*BatchedColumnProcessor)

// WithLogger sets the logger used for lifecycle and flush events
func WithLogger(logger *zap.Logger) Option {
	return func(p *BatchedColumnProcessor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithName labels the processor in log output
func WithName(name string) Option {
	return func(p *BatchedColumnProcessor) {
		p.name = name
	}
}

// BatchedColumnProcessor splits rows into columns and hands them to a
// BatchHandler every rowsPerBatch rows, plus once more at stream end if rows
// are pending. The same instance can process any number of streams one after
// another; ProcessStarted resets it.
type BatchedColumnProcessor struct {
	store   *columnar.ColumnStore
	handler BatchHandler
	logger  *zap.Logger
	name    string

	rowsPerBatch     int
	batchCount       int
	batchesProcessed int
	totalRows        int64
	state            State
}

// New creates a processor. rowsPerBatch must be positive.
func New(rowsPerBatch int, handler BatchHandler, opts ...Option) (*BatchedColumnProcessor, error) {
	if rowsPerBatch <= 0 {
		return nil, errors.New(errors.ErrorTypeConfig, "rows per batch must be positive").
			WithDetail("rows_per_batch", rowsPerBatch)
	}
	if handler == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "batch handler is required")
	}

	p := &BatchedColumnProcessor{
		store:        columnar.NewColumnStore(rowsPerBatch),
		handler:      handler,
		logger:       zap.NewNop(),
		name:         "batched_column_processor",
		rowsPerBatch: rowsPerBatch,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(zap.String("processor", p.name))

	return p, nil
}

// ProcessStarted resets all counters and drops headers and values left from
// a previous stream.
func (p *BatchedColumnProcessor) ProcessStarted(ctx ParsingContext) {
	p.store.Reset()
	p.batchCount = 0
	p.batchesProcessed = 0
	p.totalRows = 0
	p.state = StateAccumulating

	p.logger.Debug("stream started", zap.Int("rows_per_batch", p.rowsPerBatch))
}

// RowProcessed appends row to the columns and flushes when the batch is full.
// A handler error is returned after the flush has completed, so the
// processor stays consistent whether or not the engine carries on.
func (p *BatchedColumnProcessor) RowProcessed(row []*string, ctx ParsingContext) error {
	if p.state == StateFlushing {
		return errors.New(errors.ErrorTypeInternal, "row delivered while a batch is being flushed")
	}
	p.state = StateAccumulating

	if !p.store.HasHeaders() && ctx != nil {
		if headers, ok := ctx.Headers(); ok {
			p.store.SetHeaders(headers)
		}
	}

	p.store.Append(row)
	p.batchCount++
	p.totalRows++

	if p.batchCount >= p.rowsPerBatch {
		err := p.flush(ctx, false)
		p.store.ClearValues()
		p.state = StateAccumulating
		return err
	}
	return nil
}

// ProcessEnded flushes the pending partial batch, if any. Values of that last
// batch stay readable until the next stream starts.
func (p *BatchedColumnProcessor) ProcessEnded(ctx ParsingContext) error {
	if p.state == StateFlushing {
		return errors.New(errors.ErrorTypeInternal, "stream ended while a batch is being flushed")
	}

	var err error
	if p.batchCount > 0 {
		err = p.flush(ctx, true)
	}
	p.state = StateEnded

	p.logger.Debug("stream ended",
		zap.Int64("rows", p.totalRows),
		zap.Int("batches", p.batchesProcessed))

	return err
}

func (p *BatchedColumnProcessor) flush(ctx ParsingContext, final bool) error {
	rows := p.batchCount
	sequence := p.batchesProcessed

	p.state = StateFlushing
	err := p.handler.BatchProcessed(rows, Batch{
		Sequence: sequence,
		Final:    final,
		Context:  ctx,
		Columns:  p.store,
	})

	p.batchCount = 0
	p.batchesProcessed++

	if err != nil {
		p.logger.Warn("batch handler failed",
			zap.Int("batch", sequence),
			zap.Int("rows", rows),
			zap.Error(err))
		return errors.Wrap(err, errors.ErrorTypeData, "batch handler failed").
			WithDetail("batch", sequence).
			WithDetail("rows", rows)
	}

	p.logger.Debug("batch flushed",
		zap.Int("batch", sequence),
		zap.Int("rows", rows),
		zap.Int64("bytes", p.store.MemoryUsage()),
		zap.Bool("final", final))
	return nil
}

// RowsPerBatch returns the configured batch size
func (p *BatchedColumnProcessor) RowsPerBatch() int {
	return p.rowsPerBatch
}

// BatchesProcessed returns how many times the handler was invoked in the
// current stream
func (p *BatchedColumnProcessor) BatchesProcessed() int {
	return p.batchesProcessed
}

// PendingRows returns the rows accumulated since the last flush
func (p *BatchedColumnProcessor) PendingRows() int {
	return p.batchCount
}

// TotalRows returns the rows seen in the current stream
func (p *BatchedColumnProcessor) TotalRows() int64 {
	return p.totalRows
}

// State returns the lifecycle state
func (p *BatchedColumnProcessor) State() State {
	return p.state
}

// Columns returns the read-only view of the column store
func (p *BatchedColumnProcessor) Columns() columnar.Reader {
	return p.store
}

// Headers returns the headers of the current stream
func (p *BatchedColumnProcessor) Headers() []string {
	return p.store.Headers()
}

// ColumnsInOrder returns the current batch's columns in header order
func (p *BatchedColumnProcessor) ColumnsInOrder() [][]*string {
	return p.store.ColumnsInOrder()
}

// ByName returns the current batch keyed by column name
func (p *BatchedColumnProcessor) ByName() map[string][]*string {
	return p.store.ByName()
}

// ByIndex returns the current batch keyed by column position
func (p *BatchedColumnProcessor) ByIndex() map[int][]*string {
	return p.store.ByIndex()
}

// PutByName stores the current batch into m keyed by column name
func (p *BatchedColumnProcessor) PutByName(m map[string][]*string) {
	p.store.PutByName(m)
}

// PutByIndex stores the current batch into m keyed by column position
func (p *BatchedColumnProcessor) PutByIndex(m map[int][]*string) {
	p.store.PutByIndex(m)
}

var _ RowProcessor = (*BatchedColumnProcessor)(nil)
