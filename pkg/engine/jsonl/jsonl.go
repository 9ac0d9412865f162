// Package jsonl is a JSON-lines parsing engine. Every non-blank line is a
// JSON array; null elements become null cells, strings are kept as is and
// any other value is kept as its JSON text.
package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	gojson "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/ajitpratap0/colbatch/pkg/engine"
	"github.com/ajitpratap0/colbatch/pkg/processor"
)

// DefaultMaxLineSize bounds a single input line
const DefaultMaxLineSize = 16 * 1024 * 1024

// Options controls JSON-lines parsing
type Options struct {
	// HasHeader treats the first array as column names
	HasHeader bool
	// MaxRecords stops after this many data rows; zero means all
	MaxRecords int64
	// MaxLineSize bounds a single line in bytes
	MaxLineSize int
}

// DefaultOptions returns options for input with a header line
func DefaultOptions() Options {
	return Options{
		HasHeader:   true,
		MaxLineSize: DefaultMaxLineSize,
	}
}

// Engine parses JSON-lines input
type Engine struct {
	opts   Options
	logger *zap.Logger
}

// New creates a JSON-lines engine
func New(opts Options, logger *zap.Logger) *Engine {
	if opts.MaxLineSize <= 0 {
		opts.MaxLineSize = DefaultMaxLineSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		opts:   opts,
		logger: logger.With(zap.String("engine", "jsonl")),
	}
}

// Parse reads r to the end, or until ctx is done, and drives p
func (e *Engine) Parse(ctx context.Context, r io.Reader, p processor.RowProcessor) error {
	scanner := bufio.NewScanner(r)
	// the scanner's limit is the larger of the two, so the initial buffer
	// must not exceed MaxLineSize
	initial := 64 * 1024
	if initial > e.opts.MaxLineSize {
		initial = e.opts.MaxLineSize
	}
	scanner.Buffer(make([]byte, 0, initial), e.opts.MaxLineSize)

	src := &source{scanner: scanner, opts: e.opts}
	err := engine.Run(ctx, src, p, e.opts.MaxRecords)
	if err != nil {
		e.logger.Warn("jsonl parsing stopped", zap.Error(err))
		return err
	}

	e.logger.Debug("jsonl parsing finished", zap.Int64("lines", src.line))
	return nil
}

type source struct {
	scanner *bufio.Scanner
	opts    Options
	line    int64
}

// nextLine returns the next non-blank line
func (s *source) nextLine() ([]byte, error) {
	for s.scanner.Scan() {
		s.line++
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		return line, nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func (s *source) Header() ([]string, bool, error) {
	if !s.opts.HasHeader {
		return nil, false, nil
	}

	line, err := s.nextLine()
	if err == io.EOF {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	cells, err := decodeArray(line)
	if err != nil {
		return nil, false, fmt.Errorf("line %d: %w", s.line, err)
	}

	headers := make([]string, len(cells))
	for i, c := range cells {
		if c != nil {
			headers[i] = *c
		}
	}
	return headers, true, nil
}

func (s *source) Next() ([]*string, int64, error) {
	line, err := s.nextLine()
	if err != nil {
		return nil, 0, err
	}

	row, err := decodeArray(line)
	if err != nil {
		return nil, 0, fmt.Errorf("line %d: %w", s.line, err)
	}
	return row, s.line, nil
}

// decodeArray decodes a line holding exactly one JSON array
func decodeArray(line []byte) ([]*string, error) {
	if len(line) == 0 || line[0] != '[' {
		return nil, fmt.Errorf("expected a JSON array")
	}

	dec := gojson.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()

	var values []interface{}
	if err := dec.Decode(&values); err != nil {
		return nil, fmt.Errorf("expected a JSON array: %w", err)
	}
	var extra interface{}
	if err := dec.Decode(&extra); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after JSON array")
	}

	row := make([]*string, len(values))
	for i, v := range values {
		cell, err := toCell(v)
		if err != nil {
			return nil, err
		}
		row[i] = cell
	}
	return row, nil
}

func toCell(v interface{}) (*string, error) {
	var s string
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		s = val
	case gojson.Number:
		s = val.String()
	case bool:
		if val {
			s = "true"
		} else {
			s = "false"
		}
	default:
		raw, err := gojson.Marshal(val)
		if err != nil {
			return nil, err
		}
		s = string(raw)
	}
	return &s, nil
}
