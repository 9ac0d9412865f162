// Package colbatch splits a row-oriented stream of delimited records into
// fixed-size batches of columns.
//
// A parsing engine reads the input and calls a row processor once per row.
// The BatchedColumnProcessor appends each row to per-column value sequences
// and, every N rows, hands the accumulated columns to a batch consumer. The
// rows left over at the end of the stream are delivered as one final partial
// batch, so a stream of R rows produces ceil(R/N) batches.
//
// # Quick Start
//
// Collect batches of 1000 rows from a CSV file:
//
//	import (
//	    "github.com/ajitpratap0/colbatch/pkg/engine/csv"
//	    "github.com/ajitpratap0/colbatch/pkg/processor"
//	    "github.com/ajitpratap0/colbatch/pkg/sink"
//	)
//
//	collector := sink.NewCollector()
//	p, err := processor.New(1000, collector)
//	if err != nil {
//	    return err
//	}
//
//	err = csv.New(csv.DefaultOptions(), logger).Parse(ctx, file, p)
//	for _, batch := range collector.Batches() {
//	    // batch.Headers, batch.Columns
//	}
//
// A consumer that implements processor.BatchHandler sees the live column
// store. Values are cleared as soon as BatchProcessed returns, so anything
// kept beyond the call must be copied (see columnar.CopyColumns).
//
// # Key Packages
//
//	pkg/columnar      - Column store with ordered, by-name and by-index views
//	pkg/processor     - BatchedColumnProcessor and the row callback protocol
//	pkg/engine        - CSV and JSON-lines parsing engines
//	pkg/sink          - Batch consumers: JSON lines, Arrow IPC, Avro OCF, Parquet
//	pkg/compression   - gzip, snappy, s2, zstd and lz4 stream codecs
//	pkg/mmap          - Memory-mapped input files
//	pkg/config        - YAML configuration with environment overrides
//	pkg/errors        - Structured error handling
//	pkg/logger        - Structured logging
//	pkg/metrics       - Prometheus batch metrics
//	pkg/observability - OpenTelemetry tracing
//	internal/pipeline - File to sink runs used by the CLI
//
// # Command Line
//
//	colbatch run --input orders.csv.gz --rows-per-batch 5000 \
//	    --output orders.arrow --output-format arrow
//	colbatch formats
//
// Environment variables prefixed with COLBATCH_ override configuration keys,
// and ${VAR_NAME} references in configuration files are expanded.
package colbatch
