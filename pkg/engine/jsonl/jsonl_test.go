package jsonl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/colbatch/pkg/columnar"
	"github.com/ajitpratap0/colbatch/pkg/processor"
	"github.com/ajitpratap0/colbatch/pkg/testutil"
)

func parse(t *testing.T, opts Options, input string, rowsPerBatch int) ([][][]*string, []string, error) {
	t.Helper()
	var batches [][][]*string
	var headers []string
	p, err := processor.New(rowsPerBatch, processor.BatchHandlerFunc(func(rows int, b processor.Batch) error {
		headers = b.Columns.Headers()
		batches = append(batches, columnar.CopyColumns(b.Columns.ColumnsInOrder()))
		return nil
	}))
	require.NoError(t, err)

	ctx, cancel := testutil.TestContext(t)
	defer cancel()
	err = New(opts, testutil.TestLogger(t)).Parse(ctx, strings.NewReader(input), p)
	return batches, headers, err
}

func TestEngine_ValuesAndNulls(t *testing.T) {
	input := `["id","name","score","active"]
["1","ada",9.5,true]

["2",null,10,false]
["3","cy"]
`
	batches, headers, err := parse(t, DefaultOptions(), input, 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name", "score", "active"}, headers)
	require.Len(t, batches, 2)

	assert.Equal(t, []interface{}{"1", "2"}, testutil.Strings(batches[0][0]))
	assert.Equal(t, []interface{}{"ada", nil}, testutil.Strings(batches[0][1]))
	assert.Equal(t, []interface{}{"9.5", "10"}, testutil.Strings(batches[0][2]))
	assert.Equal(t, []interface{}{"true", "false"}, testutil.Strings(batches[0][3]))

	assert.Equal(t, []interface{}{"3"}, testutil.Strings(batches[1][0]))
	assert.Equal(t, []interface{}{nil}, testutil.Strings(batches[1][3]))
}

func TestEngine_NestedValuesKeptAsJSON(t *testing.T) {
	opts := DefaultOptions()
	opts.HasHeader = false

	batches, headers, err := parse(t, opts, `[{"k":1},[1,2]]`+"\n", 5)
	require.NoError(t, err)

	assert.Nil(t, headers)
	require.Len(t, batches, 1)
	assert.Equal(t, []interface{}{`{"k":1}`}, testutil.Strings(batches[0][0]))
	assert.Equal(t, []interface{}{`[1,2]`}, testutil.Strings(batches[0][1]))
}

func TestEngine_RejectsNonArrayLine(t *testing.T) {
	input := "[\"a\"]\n[\"1\"]\n{\"a\":\"2\"}\n"

	batches, _, err := parse(t, DefaultOptions(), input, 10)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
	require.Len(t, batches, 1, "pending row is flushed before the error surfaces")
	assert.Equal(t, []interface{}{"1"}, testutil.Strings(batches[0][0]))
}

func TestEngine_RejectsTrailingDataAndNullLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "trailing text", input: "[\"a\"]\n[\"1\"] garbage\n"},
		{name: "second array", input: "[\"a\"]\n[\"1\"] [\"2\"]\n"},
		{name: "null line", input: "[\"a\"]\nnull\n"},
		{name: "null header", input: "null\n[\"1\"]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches, _, err := parse(t, DefaultOptions(), tt.input, 10)

			require.Error(t, err)
			assert.Empty(t, batches)
		})
	}
}

func TestEngine_EmptyArrayIsZeroWidthRow(t *testing.T) {
	opts := DefaultOptions()
	opts.HasHeader = false

	batches, _, err := parse(t, opts, "[]\n[] \n", 10)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Empty(t, batches[0])
}

func TestEngine_MaxRecords(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxRecords = 1

	batches, _, err := parse(t, opts, "[\"a\"]\n[\"1\"]\n[\"2\"]\n", 10)
	require.NoError(t, err)

	require.Len(t, batches, 1)
	assert.Equal(t, []interface{}{"1"}, testutil.Strings(batches[0][0]))
}

func TestEngine_LineTooLong(t *testing.T) {
	opts := DefaultOptions()
	opts.HasHeader = false
	opts.MaxLineSize = 16

	_, _, err := parse(t, opts, `["`+strings.Repeat("x", 64)+`"]`+"\n", 10)
	require.Error(t, err)
}
