// Package processor turns a row-by-row parsing callback stream into
// fixed-size column batches.
//
// # Overview
//
// A BatchedColumnProcessor implements RowProcessor. Every row is appended
// to a columnar.ColumnStore; once rowsPerBatch rows have accumulated the
// BatchHandler is called with the row count, then the column values are
// cleared (headers are kept) and counting restarts. When the stream ends
// with rows pending, the handler is called one last time with the partial
// count. Memory is therefore bounded by one batch.
//
//	handler := processor.BatchHandlerFunc(func(rows int, b processor.Batch) error {
//	    ids, _ := b.Columns.Column("id")
//	    keep = append(keep, columnar.CopyValues(ids)...)
//	    return nil
//	})
//	p, err := processor.New(1000, handler, processor.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	err = csv.New(csv.DefaultOptions()).Parse(ctx, r, p)
//
// # Copy-Out Contract
//
// Batch.Columns and every slice obtained from it alias the processor's
// storage. They are valid only while BatchProcessed runs; the values are
// cleared as soon as it returns.
//
// # Lifecycle
//
// ProcessStarted resets the processor completely, so one instance can
// serve many streams in sequence. BatchesProcessed counts handler calls in
// the current stream, including the final partial one. An engine that
// stops without calling ProcessEnded loses the pending rows.
//
// # Concurrency
//
// The processor is driven from a single goroutine. Calling RowProcessed
// from inside BatchProcessed is rejected with an internal error.
package processor
