// Package csv is a CSV parsing engine that drives a processor.RowProcessor
package csv

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/colbatch/pkg/engine"
	"github.com/ajitpratap0/colbatch/pkg/processor"
)

// Options controls how CSV input is tokenized
type Options struct {
	// HasHeader treats the first record as column names
	HasHeader bool
	// Delimiter separates fields, ',' by default
	Delimiter rune
	// Comment starts a line that is skipped; zero disables comments
	Comment rune
	// EmptyAsNull turns empty fields into null cells
	EmptyAsNull bool
	// TrimSpace trims surrounding white space from fields and headers
	TrimSpace bool
	// LazyQuotes accepts quotes in unquoted fields
	LazyQuotes bool
	// MaxRecords stops after this many data rows; zero means all
	MaxRecords int64
}

// DefaultOptions returns options for a comma separated file with a header
func DefaultOptions() Options {
	return Options{
		HasHeader:   true,
		Delimiter:   ',',
		EmptyAsNull: true,
	}
}

// Engine parses CSV input
type Engine struct {
	opts   Options
	logger *zap.Logger
}

// New creates a CSV engine
func New(opts Options, logger *zap.Logger) *Engine {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		opts:   opts,
		logger: logger.With(zap.String("engine", "csv")),
	}
}

// Parse reads r to the end, or until ctx is done, and drives p. Records may
// have any width; reconciling them with the header is the processor's job.
func (e *Engine) Parse(ctx context.Context, r io.Reader, p processor.RowProcessor) error {
	reader := csv.NewReader(r)
	reader.Comma = e.opts.Delimiter
	reader.Comment = e.opts.Comment
	reader.LazyQuotes = e.opts.LazyQuotes
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	src := &source{reader: reader, opts: e.opts}
	err := engine.Run(ctx, src, p, e.opts.MaxRecords)
	if err != nil {
		e.logger.Warn("csv parsing stopped", zap.Error(err))
		return err
	}

	e.logger.Debug("csv parsing finished", zap.Int64("records", src.records))
	return nil
}

type source struct {
	reader  *csv.Reader
	opts    Options
	records int64
}

func (s *source) Header() ([]string, bool, error) {
	if !s.opts.HasHeader {
		return nil, false, nil
	}

	record, err := s.reader.Read()
	if err == io.EOF {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	headers := make([]string, len(record))
	for i, h := range record {
		if s.opts.TrimSpace {
			h = strings.TrimSpace(h)
		}
		headers[i] = h
	}
	return headers, true, nil
}

func (s *source) Next() ([]*string, int64, error) {
	record, err := s.reader.Read()
	if err != nil {
		return nil, 0, err
	}

	line, _ := s.reader.FieldPos(0)
	row := make([]*string, len(record))
	for i, field := range record {
		if s.opts.TrimSpace {
			field = strings.TrimSpace(field)
		}
		if field == "" && s.opts.EmptyAsNull {
			continue
		}
		// ReuseRecord shares the backing array, the string itself is safe to keep
		v := field
		row[i] = &v
	}
	s.records++
	return row, int64(line), nil
}
