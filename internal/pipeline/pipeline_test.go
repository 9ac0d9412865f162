package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ajitpratap0/colbatch/pkg/compression"
	"github.com/ajitpratap0/colbatch/pkg/config"
	"github.com/ajitpratap0/colbatch/pkg/errors"
	"github.com/ajitpratap0/colbatch/pkg/metrics"
	"github.com/ajitpratap0/colbatch/pkg/mmap"
	"github.com/ajitpratap0/colbatch/pkg/sink"
	"github.com/ajitpratap0/colbatch/pkg/testutil"
)

const ordersCSV = "id,name\n1,ada\n2,\n3,cy\n4,dee\n5,eve\n"

type jsonLine struct {
	Batch   int         `json:"batch"`
	Rows    int         `json:"rows"`
	Final   bool        `json:"final"`
	Headers []string    `json:"headers"`
	Columns [][]*string `json:"columns"`
}

func decodeLines(t *testing.T, r io.Reader) []jsonLine {
	t.Helper()
	var out []jsonLine
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		var l jsonLine
		require.NoError(t, gojson.Unmarshal(scanner.Bytes(), &l))
		out = append(out, l)
	}
	require.NoError(t, scanner.Err())
	return out
}

func writeCompressed(t *testing.T, path string, alg compression.Algorithm, content string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	w, err := compression.NewWriter(f, alg, compression.Default)
	require.NoError(t, err)
	_, err = io.WriteString(w, content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
}

func testConfig(rowsPerBatch int) *config.Config {
	cfg := config.NewConfig("orders")
	cfg.Processor.RowsPerBatch = rowsPerBatch
	return cfg
}

func TestRun_StdioCSVToJSON(t *testing.T) {
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	var out bytes.Buffer
	result, err := Run(ctx, testConfig(2),
		WithLogger(testutil.TestLogger(t)),
		WithStdio(strings.NewReader(ordersCSV), &out))
	require.NoError(t, err)

	assert.Equal(t, int64(5), result.Rows)
	assert.Equal(t, 3, result.Batches)
	_, err = uuid.Parse(result.StreamID)
	assert.NoError(t, err)

	lines := decodeLines(t, &out)
	require.Len(t, lines, 3)
	assert.Equal(t, []int{2, 2, 1}, []int{lines[0].Rows, lines[1].Rows, lines[2].Rows})
	assert.Equal(t, []string{"id", "name"}, lines[0].Headers)
	assert.Equal(t, []interface{}{"ada", nil}, testutil.Strings(lines[0].Columns[1]))
	assert.True(t, lines[2].Final)
	assert.Equal(t, []interface{}{"5"}, testutil.Strings(lines[2].Columns[0]))
}

func TestRun_CompressedFilesAndExtraHandler(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "orders.csv.gz")
	writeCompressed(t, in, compression.Gzip, ordersCSV)

	cfg := testConfig(3)
	cfg.Input.Path = in
	cfg.Output.Path = filepath.Join(dir, "orders.jsonl.zst")
	cfg.Output.Compression = "zstd"
	cfg.Output.CompressionLevel = "best"

	collected := sink.NewCollector()
	result, err := Run(context.Background(), cfg,
		WithLogger(testutil.TestLogger(t)),
		WithHandler(collected),
		WithStreamID("fixed"))
	require.NoError(t, err)
	assert.Equal(t, "fixed", result.StreamID)
	assert.Equal(t, 2, result.Batches)
	assert.Equal(t, 5, collected.Rows())

	f, err := os.Open(cfg.Output.Path)
	require.NoError(t, err)
	defer f.Close()
	r, err := compression.NewReader(f, compression.Zstd)
	require.NoError(t, err)
	defer r.Close()

	lines := decodeLines(t, r)
	require.Len(t, lines, 2)
	assert.Equal(t, 3, lines[0].Rows)
	assert.Equal(t, 2, lines[1].Rows)
}

func TestRun_MemoryMappedInput(t *testing.T) {
	if !mmap.Supported {
		t.Skip("memory mapping not supported on this platform")
	}
	in := filepath.Join(t.TempDir(), "orders.csv")
	require.NoError(t, os.WriteFile(in, []byte(ordersCSV), 0o600))

	cfg := testConfig(4)
	cfg.Input.Path = in
	cfg.Input.Mmap = true

	collected := sink.NewCollector()
	result, err := Run(context.Background(), cfg,
		WithLogger(testutil.TestLogger(t)),
		WithStdio(nil, io.Discard),
		WithHandler(collected))
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.Rows)
	require.Len(t, collected.Batches(), 2)
	assert.Equal(t, []string{"id", "name"}, collected.Batches()[0].Headers)
}

func TestRun_JSONLinesInput(t *testing.T) {
	cfg := testConfig(10)
	cfg.Input.Format = "jsonl"

	input := `["id","score"]` + "\n" + `[1, 9.5]` + "\n" + `[2, null]` + "\n"
	var out bytes.Buffer
	result, err := Run(context.Background(), cfg,
		WithLogger(testutil.TestLogger(t)),
		WithStdio(strings.NewReader(input), &out))
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Rows)

	lines := decodeLines(t, &out)
	require.Len(t, lines, 1)
	assert.Equal(t, []interface{}{"9.5", nil}, testutil.Strings(lines[0].Columns[1]))
}

func TestRun_MetricsAndTracing(t *testing.T) {
	collector := metrics.NewCollector("test", prometheus.NewRegistry())
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	cfg := testConfig(2)
	cfg.Output.Format = "discard"
	_, err := Run(context.Background(), cfg,
		WithLogger(testutil.TestLogger(t)),
		WithStdio(strings.NewReader(ordersCSV), io.Discard),
		WithMetrics(collector),
		WithTracing(tp.Tracer("test"), noop.NewMeterProvider().Meter("test")))
	require.NoError(t, err)

	assert.Equal(t, 5.0, promtest.ToFloat64(collector.RowsProcessed.WithLabelValues("orders")))
	assert.Equal(t, 2.0, promtest.ToFloat64(collector.BatchesFlushed.WithLabelValues("orders", metrics.KindFull)))
	assert.Equal(t, 1.0, promtest.ToFloat64(collector.BatchesFlushed.WithLabelValues("orders", metrics.KindPartial)))
	assert.Len(t, recorder.Ended(), 3)
}

func TestRun_ArrowOutput(t *testing.T) {
	cfg := testConfig(2)
	cfg.Output.Format = "arrow"

	var out bytes.Buffer
	result, err := Run(context.Background(), cfg,
		WithLogger(testutil.TestLogger(t)),
		WithStdio(strings.NewReader(ordersCSV), &out))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Batches)
	assert.NotZero(t, out.Len())
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := testConfig(0)
	_, err := Run(context.Background(), cfg, WithLogger(testutil.TestLogger(t)))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestRun_MissingInput(t *testing.T) {
	cfg := testConfig(2)
	cfg.Input.Path = filepath.Join(t.TempDir(), "missing.csv")

	_, err := Run(context.Background(), cfg, WithLogger(testutil.TestLogger(t)))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
}

func TestRun_ParseErrorKeepsDeliveredBatches(t *testing.T) {
	input := "id,name\n1,a\n2,b\n3,\"broken\n"
	var out bytes.Buffer
	result, err := Run(context.Background(), testConfig(1),
		WithLogger(testutil.TestLogger(t)),
		WithStdio(strings.NewReader(input), &out))
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Equal(t, int64(2), result.Rows)
	assert.Len(t, decodeLines(t, &out), 2)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, testConfig(2),
		WithLogger(testutil.TestLogger(t)),
		WithStdio(strings.NewReader(ordersCSV), io.Discard))
	require.Error(t, err)
	assert.True(t, errors.IsRetryable(err))
}

func TestResult_RowsPerSecond(t *testing.T) {
	assert.Zero(t, (&Result{Rows: 10}).RowsPerSecond())
	assert.Equal(t, 10.0, (&Result{Rows: 20, Duration: 2e9}).RowsPerSecond())
}
