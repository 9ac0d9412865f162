package csv

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/colbatch/pkg/columnar"
	"github.com/ajitpratap0/colbatch/pkg/processor"
	"github.com/ajitpratap0/colbatch/pkg/testutil"
)

type captured struct {
	rows    int
	headers []string
	columns [][]*string
}

func collect(t *testing.T, rowsPerBatch int) (*processor.BatchedColumnProcessor, *[]captured) {
	t.Helper()
	var out []captured
	p, err := processor.New(rowsPerBatch, processor.BatchHandlerFunc(func(rows int, b processor.Batch) error {
		out = append(out, captured{
			rows:    rows,
			headers: b.Columns.Headers(),
			columns: columnar.CopyColumns(b.Columns.ColumnsInOrder()),
		})
		return nil
	}))
	require.NoError(t, err)
	return p, &out
}

func TestEngine_HeaderAndBatches(t *testing.T) {
	input := "a,b\n1,2\n3,4\n5\n"
	p, batches := collect(t, 2)

	err := New(DefaultOptions(), nil).Parse(context.Background(), strings.NewReader(input), p)
	require.NoError(t, err)

	require.Len(t, *batches, 2)
	first, second := (*batches)[0], (*batches)[1]

	assert.Equal(t, []string{"a", "b"}, first.headers)
	assert.Equal(t, 2, first.rows)
	assert.Equal(t, []interface{}{"1", "3"}, testutil.Strings(first.columns[0]))
	assert.Equal(t, []interface{}{"2", "4"}, testutil.Strings(first.columns[1]))

	assert.Equal(t, 1, second.rows)
	assert.Equal(t, []interface{}{"5"}, testutil.Strings(second.columns[0]))
	assert.Equal(t, []interface{}{nil}, testutil.Strings(second.columns[1]))
	assert.Equal(t, 2, p.BatchesProcessed())
}

func TestEngine_NoHeader(t *testing.T) {
	opts := DefaultOptions()
	opts.HasHeader = false
	p, batches := collect(t, 10)

	err := New(opts, nil).Parse(context.Background(), strings.NewReader("x,y\nz\n"), p)
	require.NoError(t, err)

	require.Len(t, *batches, 1)
	b := (*batches)[0]
	assert.Nil(t, b.headers)
	assert.Equal(t, []interface{}{"x", "z"}, testutil.Strings(b.columns[0]))
	assert.Equal(t, []interface{}{"y", nil}, testutil.Strings(b.columns[1]))
}

func TestEngine_EmptyFields(t *testing.T) {
	input := "a,b,c\n,\"\", v \n"

	t.Run("as null", func(t *testing.T) {
		opts := DefaultOptions()
		opts.TrimSpace = true
		p, batches := collect(t, 10)
		require.NoError(t, New(opts, nil).Parse(context.Background(), strings.NewReader(input), p))

		cols := (*batches)[0].columns
		assert.Equal(t, []interface{}{nil}, testutil.Strings(cols[0]))
		assert.Equal(t, []interface{}{nil}, testutil.Strings(cols[1]))
		assert.Equal(t, []interface{}{"v"}, testutil.Strings(cols[2]))
	})

	t.Run("kept", func(t *testing.T) {
		opts := DefaultOptions()
		opts.EmptyAsNull = false
		p, batches := collect(t, 10)
		require.NoError(t, New(opts, nil).Parse(context.Background(), strings.NewReader(input), p))

		cols := (*batches)[0].columns
		assert.Equal(t, []interface{}{""}, testutil.Strings(cols[0]))
		assert.Equal(t, []interface{}{""}, testutil.Strings(cols[1]))
		assert.Equal(t, []interface{}{" v "}, testutil.Strings(cols[2]))
	})
}

func TestEngine_DelimiterCommentAndLimit(t *testing.T) {
	input := "# exported\nid;name\n1;ada\n# skipped\n2;bob\n3;cy\n"
	opts := DefaultOptions()
	opts.Delimiter = ';'
	opts.Comment = '#'
	opts.MaxRecords = 2
	p, batches := collect(t, 5)

	require.NoError(t, New(opts, nil).Parse(context.Background(), strings.NewReader(input), p))

	require.Len(t, *batches, 1)
	b := (*batches)[0]
	assert.Equal(t, []string{"id", "name"}, b.headers)
	assert.Equal(t, []interface{}{"1", "2"}, testutil.Strings(b.columns[0]))
	assert.Equal(t, []interface{}{"ada", "bob"}, testutil.Strings(b.columns[1]))
}

func TestEngine_EmptyInput(t *testing.T) {
	p, batches := collect(t, 3)

	require.NoError(t, New(DefaultOptions(), nil).Parse(context.Background(), strings.NewReader(""), p))

	assert.Empty(t, *batches)
	assert.Equal(t, processor.StateEnded, p.State())
}

func TestEngine_HeaderOnly(t *testing.T) {
	p, batches := collect(t, 3)

	require.NoError(t, New(DefaultOptions(), nil).Parse(context.Background(), strings.NewReader("a,b\n"), p))

	assert.Empty(t, *batches)
	assert.Equal(t, 0, p.BatchesProcessed())
}

func TestEngine_MalformedQuoteFlushesPending(t *testing.T) {
	input := "a\n1\n2\n3\n\"broken\n"
	p, batches := collect(t, 2)

	err := New(DefaultOptions(), nil).Parse(context.Background(), strings.NewReader(input), p)

	require.Error(t, err)
	require.Len(t, *batches, 2)
	assert.Equal(t, 2, (*batches)[0].rows)
	assert.Equal(t, 1, (*batches)[1].rows)
	assert.Equal(t, []interface{}{"3"}, testutil.Strings((*batches)[1].columns[0]))
}

func TestEngine_ReusesProcessorAcrossStreams(t *testing.T) {
	p, batches := collect(t, 2)
	e := New(DefaultOptions(), nil)

	require.NoError(t, e.Parse(context.Background(), strings.NewReader("a,b\n1,2\n3,4\n5,6\n"), p))
	require.Equal(t, 2, p.BatchesProcessed())

	require.NoError(t, e.Parse(context.Background(), strings.NewReader("z\n9\n"), p))
	assert.Equal(t, 1, p.BatchesProcessed())

	last := (*batches)[len(*batches)-1]
	assert.Equal(t, []string{"z"}, last.headers)
	require.Len(t, last.columns, 1)
	assert.Equal(t, []interface{}{"9"}, testutil.Strings(last.columns[0]))
}
