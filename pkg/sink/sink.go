// Package sink provides batch consumers for the batched column processor.
//
// Every handler here copies what it needs out of the batch view before
// BatchProcessed returns, since the processor clears the values right after.
// Writers encode each batch independently and never merge batches.
//
// # Basic Usage
//
//	w, err := sink.New(sink.FormatJSON, out)
//	if err != nil {
//	    return err
//	}
//	defer sink.Close(w)
//
//	p, err := processor.New(1000, w)
package sink

import (
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/ajitpratap0/colbatch/pkg/errors"
	"github.com/ajitpratap0/colbatch/pkg/processor"
)

// Format names an output encoding
type Format string

const (
	// FormatJSON writes one JSON object per batch per line
	FormatJSON Format = "json"
	// FormatArrow writes an Arrow IPC stream, one record batch per flush
	FormatArrow Format = "arrow"
	// FormatAvro writes an Avro object container file, one record per flush
	FormatAvro Format = "avro"
	// FormatParquet writes a Parquet file, one row group per flush
	FormatParquet Format = "parquet"
	// FormatDiscard drops every batch
	FormatDiscard Format = "discard"
)

var factories = map[Format]func(io.Writer) processor.BatchHandler{
	FormatJSON:    func(w io.Writer) processor.BatchHandler { return NewJSONWriter(w) },
	FormatArrow:   func(w io.Writer) processor.BatchHandler { return NewArrowWriter(w) },
	FormatAvro:    func(w io.Writer) processor.BatchHandler { return NewAvroWriter(w) },
	FormatParquet: func(w io.Writer) processor.BatchHandler { return NewParquetWriter(w) },
	FormatDiscard: func(io.Writer) processor.BatchHandler { return Discard },
}

// Formats lists the supported output formats, sorted by name
func Formats() []Format {
	out := make([]Format, 0, len(factories))
	for f := range factories {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseFormat maps a name to a Format
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := factories[f]; !ok {
		return "", errors.Newf(errors.ErrorTypeCapability, "unsupported output format: %s", name)
	}
	return f, nil
}

// New creates a writer for format on w
func New(format Format, w io.Writer) (processor.BatchHandler, error) {
	factory, ok := factories[format]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeCapability, "unsupported output format: %s", format)
	}
	return factory(w), nil
}

// Close finalises h when it holds an output stream. Handlers without one
// are left alone.
func Close(h processor.BatchHandler) error {
	if c, ok := h.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Discard accepts and drops every batch
var Discard processor.BatchHandler = processor.BatchHandlerFunc(func(int, processor.Batch) error {
	return nil
})

// fieldNames returns a name for every column, using column_<i> where the
// stream has no name for a position.
func fieldNames(headers []string, count int) []string {
	names := make([]string, count)
	for i := range names {
		if i < len(headers) && headers[i] != "" {
			names[i] = headers[i]
		} else {
			names[i] = "column_" + strconv.Itoa(i)
		}
	}
	return names
}
