// Package engine holds what the row-oriented parsing engines share: the
// ParsingContext they hand out and the loop that drives a RowProcessor.
package engine

import (
	"context"
	"io"

	"github.com/ajitpratap0/colbatch/pkg/errors"
	"github.com/ajitpratap0/colbatch/pkg/processor"
)

// Engine parses r and drives p with the rows it finds
type Engine interface {
	Parse(ctx context.Context, r io.Reader, p processor.RowProcessor) error
}

// Source is the format-specific half of an engine.
type Source interface {
	// Header is called once before any row. ok is false when the input has
	// no header.
	Header() (headers []string, ok bool, err error)
	// Next returns the next row and the input line it started on. It returns
	// io.EOF after the last row.
	Next() (row []*string, line int64, err error)
}

// Context implements processor.ParsingContext
type Context struct {
	headers    []string
	hasHeaders bool
	line       int64
	record     int64
}

// NewContext creates a context positioned before the first record
func NewContext() *Context {
	return &Context{record: -1}
}

// SetHeaders records the header names
func (c *Context) SetHeaders(headers []string) {
	c.headers = make([]string, len(headers))
	copy(c.headers, headers)
	c.hasHeaders = true
}

// Headers returns a copy of the header names
func (c *Context) Headers() ([]string, bool) {
	if !c.hasHeaders {
		return nil, false
	}
	out := make([]string, len(c.headers))
	copy(out, c.headers)
	return out, true
}

// CurrentLine returns the line of the last row read
func (c *Context) CurrentLine() int64 {
	return c.line
}

// CurrentRecord returns the index of the last row delivered
func (c *Context) CurrentRecord() int64 {
	return c.record
}

func (c *Context) advance(line int64) {
	c.line = line
	c.record++
}

// Run drives p with the rows of src. ProcessEnded is called on every exit
// path, including parse errors, handler errors and cancellation, so a
// pending partial batch is always delivered. maxRecords <= 0 means no limit.
func Run(ctx context.Context, src Source, p processor.RowProcessor, maxRecords int64) error {
	pctx := NewContext()
	p.ProcessStarted(pctx)

	err := feed(ctx, src, p, pctx, maxRecords)
	endErr := p.ProcessEnded(pctx)

	return errors.Join(err, endErr)
}

func feed(ctx context.Context, src Source, p processor.RowProcessor, pctx *Context, maxRecords int64) error {
	headers, ok, err := src.Header()
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to read header")
	}
	if ok {
		pctx.SetHeaders(headers)
	}

	var delivered int64
	for maxRecords <= 0 || delivered < maxRecords {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeTimeout, "parsing cancelled").
				WithDetail("records", delivered)
		}

		row, line, err := src.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "failed to read row").
				WithDetail("record", pctx.record+1)
		}

		pctx.advance(line)
		if err := p.RowProcessed(row, pctx); err != nil {
			return err
		}
		delivered++
	}
	return nil
}
