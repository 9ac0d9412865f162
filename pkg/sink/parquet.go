package sink

import (
	"io"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/ajitpratap0/colbatch/pkg/errors"
	"github.com/ajitpratap0/colbatch/pkg/processor"
)

// ParquetOption configures a ParquetWriter
type ParquetOption func(*ParquetWriter)

// WithParquetCompression sets the column chunk codec
func WithParquetCompression(codec compress.Compression) ParquetOption {
	return func(pw *ParquetWriter) {
		pw.codec = codec
	}
}

// ParquetWriter writes a Parquet file with one row group per batch. Like
// ArrowWriter, the schema comes from the first batch. Batches without
// columns are rejected, since a row group's row count comes from its
// column chunks.
type ParquetWriter struct {
	mu      sync.Mutex
	w       io.Writer
	pool    memory.Allocator
	codec   compress.Compression
	schema  *arrow.Schema
	builder *array.RecordBuilder
	writer  *pqarrow.FileWriter
	groups  int64
	closed  bool
}

// NewParquetWriter creates a Parquet writer on w. Snappy is the default codec.
func NewParquetWriter(w io.Writer, opts ...ParquetOption) *ParquetWriter {
	pw := &ParquetWriter{
		w:     w,
		pool:  memory.NewGoAllocator(),
		codec: compress.Codecs.Snappy,
	}
	for _, opt := range opts {
		opt(pw)
	}
	return pw
}

// BatchProcessed writes the batch as one row group
func (pw *ParquetWriter) BatchProcessed(rows int, batch processor.Batch) error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.closed {
		return errors.New(errors.ErrorTypeInternal, "parquet writer is closed")
	}

	columns := batch.Columns.ColumnsInOrder()
	if len(columns) == 0 {
		return errors.Newf(errors.ErrorTypeCapability,
			"batch %d has no columns, parquet cannot store %d rows without columns", batch.Sequence, rows)
	}
	if pw.writer == nil {
		if err := pw.open(batch.Columns.Headers(), len(columns)); err != nil {
			return err
		}
	}
	if len(columns) != len(pw.schema.Fields()) {
		return errors.Newf(errors.ErrorTypeData, "batch %d has %d columns, file schema has %d",
			batch.Sequence, len(columns), len(pw.schema.Fields()))
	}

	record := buildRecord(pw.builder, columns, rows)
	defer record.Release()

	if err := pw.writer.Write(record); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write parquet row group")
	}
	pw.groups++
	return nil
}

func (pw *ParquetWriter) open(headers []string, count int) error {
	pw.schema = textSchema(headers, count)

	props := parquet.NewWriterProperties(
		parquet.WithCompression(pw.codec),
		parquet.WithAllocator(pw.pool),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(pw.pool))

	// The file writer closes its sink when it is an io.Closer; the caller
	// owns w.
	fw, err := pqarrow.NewFileWriter(pw.schema, struct{ io.Writer }{pw.w}, props, arrowProps)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create parquet writer")
	}
	pw.writer = fw
	pw.builder = array.NewRecordBuilder(pw.pool, pw.schema)
	return nil
}

// Schema returns the file schema, nil before the first batch
func (pw *ParquetWriter) Schema() *arrow.Schema {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	return pw.schema
}

// RowGroupsWritten returns the number of row groups written
func (pw *ParquetWriter) RowGroupsWritten() int64 {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	return pw.groups
}

// Close writes the file footer. Nothing is written when no batch was ever
// received.
func (pw *ParquetWriter) Close() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.closed {
		return nil
	}
	pw.closed = true
	if pw.writer == nil {
		return nil
	}

	pw.builder.Release()
	if err := pw.writer.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close parquet writer")
	}
	return nil
}
