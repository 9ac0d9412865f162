// Package testutil provides testing utilities for colbatch
package testutil

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// TestLogger creates a test logger that writes to the test output.
// The logger is automatically cleaned up when the test completes.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// StaticContext is a fixed parsing context for driving a row processor by
// hand. It satisfies processor.ParsingContext.
type StaticContext struct {
	Names    []string
	HasNames bool
	Line     int64
	Record   int64
}

// WithHeaders returns a context that declares the given column names
func WithHeaders(names ...string) *StaticContext {
	return &StaticContext{Names: names, HasNames: true, Record: -1}
}

// NoHeaders returns a context without header information
func NoHeaders() *StaticContext {
	return &StaticContext{Record: -1}
}

// Headers returns the configured names
func (c *StaticContext) Headers() ([]string, bool) { return c.Names, c.HasNames }

// CurrentLine returns the configured line
func (c *StaticContext) CurrentLine() int64 { return c.Line }

// CurrentRecord returns the configured record index
func (c *StaticContext) CurrentRecord() int64 { return c.Record }

// Advance moves the context one row forward
func (c *StaticContext) Advance() {
	c.Line++
	c.Record++
}

// Row builds a row of non-null cells
func Row(values ...string) []*string {
	out := make([]*string, len(values))
	for i := range values {
		v := values[i]
		out[i] = &v
	}
	return out
}

// Cell returns a non-null cell holding s
func Cell(s string) *string {
	return &s
}

// Strings flattens nullable cells for assertions. Null cells become nil
// interface values so they compare distinctly from empty strings.
func Strings(values []*string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		if v != nil {
			out[i] = *v
		}
	}
	return out
}
