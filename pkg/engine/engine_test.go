package engine

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/colbatch/pkg/errors"
	"github.com/ajitpratap0/colbatch/pkg/processor"
)

type sliceSource struct {
	headers   []string
	hasHeader bool
	headerErr error
	rows      [][]*string
	failAt    int
	pos       int
}

func (s *sliceSource) Header() ([]string, bool, error) {
	return s.headers, s.hasHeader, s.headerErr
}

func (s *sliceSource) Next() ([]*string, int64, error) {
	if s.failAt > 0 && s.pos == s.failAt {
		return nil, 0, fmt.Errorf("bad quote")
	}
	if s.pos >= len(s.rows) {
		return nil, 0, io.EOF
	}
	r := s.rows[s.pos]
	s.pos++
	return r, int64(s.pos + 1), nil
}

type lifecycle struct {
	started, ended int
	rows           []int64
	headers        []string
	rowErr         error
}

func (l *lifecycle) ProcessStarted(ctx processor.ParsingContext) { l.started++ }

func (l *lifecycle) RowProcessed(row []*string, ctx processor.ParsingContext) error {
	l.rows = append(l.rows, ctx.CurrentRecord())
	l.headers, _ = ctx.Headers()
	return l.rowErr
}

func (l *lifecycle) ProcessEnded(ctx processor.ParsingContext) error {
	l.ended++
	return nil
}

func rowsOf(n int) [][]*string {
	out := make([][]*string, n)
	for i := range out {
		v := fmt.Sprint(i)
		out[i] = []*string{&v}
	}
	return out
}

func TestRun_DeliversRowsInOrder(t *testing.T) {
	src := &sliceSource{headers: []string{"n"}, hasHeader: true, rows: rowsOf(3)}
	lc := &lifecycle{}

	require.NoError(t, Run(context.Background(), src, lc, 0))

	assert.Equal(t, 1, lc.started)
	assert.Equal(t, 1, lc.ended)
	assert.Equal(t, []int64{0, 1, 2}, lc.rows)
	assert.Equal(t, []string{"n"}, lc.headers)
}

func TestRun_MaxRecords(t *testing.T) {
	src := &sliceSource{rows: rowsOf(10)}
	lc := &lifecycle{}

	require.NoError(t, Run(context.Background(), src, lc, 4))

	assert.Len(t, lc.rows, 4)
	assert.Equal(t, 1, lc.ended)
}

func TestRun_EndsStreamOnParseError(t *testing.T) {
	src := &sliceSource{rows: rowsOf(5), failAt: 2}
	lc := &lifecycle{}

	err := Run(context.Background(), src, lc, 0)

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
	assert.Contains(t, err.Error(), "bad quote")
	assert.Len(t, lc.rows, 2)
	assert.Equal(t, 1, lc.ended)
}

func TestRun_EndsStreamOnHeaderError(t *testing.T) {
	src := &sliceSource{headerErr: fmt.Errorf("truncated")}
	lc := &lifecycle{}

	err := Run(context.Background(), src, lc, 0)

	require.Error(t, err)
	assert.Empty(t, lc.rows)
	assert.Equal(t, 1, lc.started)
	assert.Equal(t, 1, lc.ended)
}

func TestRun_EndsStreamOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	lc := &lifecycle{}
	err := Run(ctx, &sliceSource{rows: rowsOf(3)}, lc, 0)

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTimeout))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, lc.rows)
	assert.Equal(t, 1, lc.ended)
}

func TestRun_StopsOnHandlerError(t *testing.T) {
	lc := &lifecycle{rowErr: fmt.Errorf("sink closed")}

	err := Run(context.Background(), &sliceSource{rows: rowsOf(3)}, lc, 0)

	require.Error(t, err)
	assert.Len(t, lc.rows, 1)
	assert.Equal(t, 1, lc.ended)
}

func TestRun_FlushesPartialBatchOnError(t *testing.T) {
	var got []int
	p, err := processor.New(2, processor.BatchHandlerFunc(func(rows int, b processor.Batch) error {
		got = append(got, rows)
		return nil
	}))
	require.NoError(t, err)

	err = Run(context.Background(), &sliceSource{rows: rowsOf(5), failAt: 3}, p, 0)

	require.Error(t, err)
	assert.Equal(t, []int{2, 1}, got)
	assert.Equal(t, 2, p.BatchesProcessed())
}

func TestContext_HeadersCopy(t *testing.T) {
	c := NewContext()
	_, ok := c.Headers()
	assert.False(t, ok)
	assert.Equal(t, int64(-1), c.CurrentRecord())

	names := []string{"a"}
	c.SetHeaders(names)
	names[0] = "changed"

	h, ok := c.Headers()
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, h)

	c.advance(7)
	assert.Equal(t, int64(7), c.CurrentLine())
	assert.Equal(t, int64(0), c.CurrentRecord())
}
