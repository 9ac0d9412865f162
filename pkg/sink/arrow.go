package sink

import (
	"io"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/colbatch/pkg/errors"
	"github.com/ajitpratap0/colbatch/pkg/processor"
)

// ArrowWriter writes an Arrow IPC stream. The schema is taken from the first
// batch: one nullable utf8 field per column. Every later batch must have the
// same column count.
type ArrowWriter struct {
	mu      sync.Mutex
	w       io.Writer
	pool    memory.Allocator
	schema  *arrow.Schema
	builder *array.RecordBuilder
	writer  *ipc.Writer
	records int64
	closed  bool
}

// NewArrowWriter creates an Arrow stream writer on w
func NewArrowWriter(w io.Writer) *ArrowWriter {
	return &ArrowWriter{
		w:    w,
		pool: memory.NewGoAllocator(),
	}
}

// BatchProcessed appends the batch as one record batch
func (aw *ArrowWriter) BatchProcessed(rows int, batch processor.Batch) error {
	aw.mu.Lock()
	defer aw.mu.Unlock()

	if aw.closed {
		return errors.New(errors.ErrorTypeInternal, "arrow writer is closed")
	}

	columns := batch.Columns.ColumnsInOrder()
	if aw.writer == nil {
		aw.open(batch.Columns.Headers(), len(columns))
	}
	if len(columns) != len(aw.schema.Fields()) {
		return errors.Newf(errors.ErrorTypeData, "batch %d has %d columns, stream schema has %d",
			batch.Sequence, len(columns), len(aw.schema.Fields()))
	}

	record := buildRecord(aw.builder, columns, rows)
	defer record.Release()

	if err := aw.writer.Write(record); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write arrow record batch")
	}
	aw.records++
	return nil
}

func (aw *ArrowWriter) open(headers []string, count int) {
	aw.schema = textSchema(headers, count)
	aw.builder = array.NewRecordBuilder(aw.pool, aw.schema)
	aw.writer = ipc.NewWriter(aw.w, ipc.WithSchema(aw.schema), ipc.WithAllocator(aw.pool))
}

// Schema returns the stream schema, nil before the first batch
func (aw *ArrowWriter) Schema() *arrow.Schema {
	aw.mu.Lock()
	defer aw.mu.Unlock()
	return aw.schema
}

// RecordsWritten returns the number of record batches written
func (aw *ArrowWriter) RecordsWritten() int64 {
	aw.mu.Lock()
	defer aw.mu.Unlock()
	return aw.records
}

// Close writes the end-of-stream marker. Nothing is written when no batch
// was ever received.
func (aw *ArrowWriter) Close() error {
	aw.mu.Lock()
	defer aw.mu.Unlock()

	if aw.closed {
		return nil
	}
	aw.closed = true
	if aw.writer == nil {
		return nil
	}

	aw.builder.Release()
	if err := aw.writer.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close arrow writer")
	}
	return nil
}

// textSchema builds one nullable utf8 field per column
func textSchema(headers []string, count int) *arrow.Schema {
	names := fieldNames(headers, count)
	fields := make([]arrow.Field, count)
	for i, name := range names {
		fields[i] = arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// buildRecord fills b with columns and returns a record of rows rows. The
// row count is what a record without columns carries. The caller releases
// the record.
func buildRecord(b *array.RecordBuilder, columns [][]*string, rows int) arrow.Record {
	arrays := make([]arrow.Array, len(columns))
	defer func() {
		for _, a := range arrays {
			if a != nil {
				a.Release()
			}
		}
	}()

	for i, values := range columns {
		sb := b.Field(i).(*array.StringBuilder)
		sb.Reserve(len(values))
		for _, v := range values {
			if v == nil {
				sb.AppendNull()
			} else {
				sb.Append(*v)
			}
		}
		arrays[i] = sb.NewArray()
	}

	nrows := int64(-1)
	if len(arrays) == 0 {
		nrows = int64(rows)
	}
	return array.NewRecord(b.Schema(), arrays, nrows)
}
