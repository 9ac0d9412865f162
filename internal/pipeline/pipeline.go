// Package pipeline runs one colbatch stream end to end: it opens the input,
// decompresses it, parses it with the configured engine, batches the rows
// with a BatchedColumnProcessor and hands every batch to the output sink.
//
// # Basic Usage
//
//	cfg := config.NewConfig("orders")
//	cfg.Input.Path = "orders.csv.gz"
//	cfg.Output.Path = "orders.arrow"
//	cfg.Output.Format = "arrow"
//
//	result, err := pipeline.Run(ctx, cfg, pipeline.WithLogger(logger))
//
// Every run gets a fresh stream ID that is attached to its log lines and
// returned in the Result.
package pipeline

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ajitpratap0/colbatch/pkg/compression"
	"github.com/ajitpratap0/colbatch/pkg/config"
	"github.com/ajitpratap0/colbatch/pkg/engine"
	csvengine "github.com/ajitpratap0/colbatch/pkg/engine/csv"
	"github.com/ajitpratap0/colbatch/pkg/engine/jsonl"
	"github.com/ajitpratap0/colbatch/pkg/errors"
	"github.com/ajitpratap0/colbatch/pkg/logger"
	"github.com/ajitpratap0/colbatch/pkg/metrics"
	"github.com/ajitpratap0/colbatch/pkg/mmap"
	"github.com/ajitpratap0/colbatch/pkg/observability"
	"github.com/ajitpratap0/colbatch/pkg/processor"
	"github.com/ajitpratap0/colbatch/pkg/sink"
)

// Result summarises a finished run
type Result struct {
	StreamID string
	Rows     int64
	Batches  int
	Duration time.Duration
}

// RowsPerSecond returns the average throughput of the run
func (r *Result) RowsPerSecond() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Rows) / r.Duration.Seconds()
}

type options struct {
	logger   *zap.Logger
	metrics  *metrics.Collector
	tracer   trace.Tracer
	meter    metric.Meter
	stdin    io.Reader
	stdout   io.Writer
	handlers []processor.BatchHandler
	streamID string
}

// Option configures a run
type Option func(*options)

// WithLogger sets the logger; the global logger is used otherwise
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records Prometheus metrics for every batch
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) { o.metrics = c }
}

// WithTracing traces every batch with the given tracer and meter, regardless
// of the observability configuration.
func WithTracing(tracer trace.Tracer, meter metric.Meter) Option {
	return func(o *options) {
		o.tracer = tracer
		o.meter = meter
	}
}

// WithStdio replaces stdin and stdout for "-" paths
func WithStdio(in io.Reader, out io.Writer) Option {
	return func(o *options) {
		o.stdin = in
		o.stdout = out
	}
}

// WithHandler adds a consumer that receives every batch after the output sink
func WithHandler(h processor.BatchHandler) Option {
	return func(o *options) { o.handlers = append(o.handlers, h) }
}

// WithStreamID fixes the stream ID instead of generating one
func WithStreamID(id string) Option {
	return func(o *options) { o.streamID = id }
}

// Run processes one stream as described by cfg. The Result is returned even
// when the run fails part way, with the rows and batches delivered so far.
func Run(ctx context.Context, cfg *config.Config, opts ...Option) (*Result, error) {
	o := &options{
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logger.Get()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	streamID := o.streamID
	if streamID == "" {
		streamID = uuid.NewString()
	}
	ctx = context.WithValue(ctx, logger.StreamIDKey, streamID)
	log := o.logger.With(
		zap.String(string(logger.StreamIDKey), streamID),
		zap.String("name", cfg.Name),
	)

	eng, err := newEngine(cfg.Input, log)
	if err != nil {
		return nil, err
	}

	input, closeInput, err := openInput(cfg.Input, o.stdin)
	if err != nil {
		return nil, err
	}
	defer closeInput()

	out, err := openOutput(cfg.Output, o.stdout)
	if err != nil {
		return nil, err
	}

	handler, err := buildHandler(ctx, cfg, o, out)
	if err != nil {
		_ = out.Close()
		return nil, err
	}

	p, err := processor.New(cfg.Processor.RowsPerBatch, handler,
		processor.WithLogger(log),
		processor.WithName(cfg.Name))
	if err != nil {
		_ = out.Close()
		return nil, err
	}

	log.Info("stream starting",
		zap.String("input", cfg.Input.Path),
		zap.String("input_format", cfg.Input.Format),
		zap.String("output", cfg.Output.Path),
		zap.String("output_format", cfg.Output.Format),
		zap.Int("rows_per_batch", cfg.Processor.RowsPerBatch))

	start := time.Now()
	parseErr := eng.Parse(ctx, input, p)
	closeErr := errors.Join(sink.Close(handler), out.Close())

	result := &Result{
		StreamID: streamID,
		Rows:     p.TotalRows(),
		Batches:  p.BatchesProcessed(),
		Duration: time.Since(start),
	}

	if err := errors.Join(parseErr, closeErr); err != nil {
		log.Error("stream failed",
			zap.Int64("rows", result.Rows),
			zap.Int("batches", result.Batches),
			zap.Error(err))
		return result, err
	}

	log.Info("stream processed",
		zap.Int64("rows", result.Rows),
		zap.Int("batches", result.Batches),
		zap.Duration("duration", result.Duration),
		zap.Float64("rows_per_second", result.RowsPerSecond()))
	return result, nil
}

func buildHandler(ctx context.Context, cfg *config.Config, o *options, w io.Writer) (processor.BatchHandler, error) {
	format, err := sink.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, err
	}
	handler, err := sink.New(format, w)
	if err != nil {
		return nil, err
	}

	if len(o.handlers) > 0 {
		handler = sink.NewMulti(append([]processor.BatchHandler{handler}, o.handlers...)...)
	}
	if o.metrics != nil {
		handler = sink.NewInstrumented(handler, o.metrics, cfg.Name)
	}

	tracer, meter := o.tracer, o.meter
	if tracer == nil && cfg.Observability.EnableTracing {
		tracer, meter = observability.Tracer(), observability.Meter()
	}
	if tracer != nil {
		if meter == nil {
			meter = observability.Meter()
		}
		handler, err = sink.NewTraced(ctx, handler, tracer, meter, cfg.Name)
		if err != nil {
			return nil, err
		}
	}
	return handler, nil
}

func newEngine(in config.InputConfig, log *zap.Logger) (engine.Engine, error) {
	switch in.Format {
	case "csv":
		opts := csvengine.Options{
			HasHeader:   in.HasHeader,
			Delimiter:   ',',
			EmptyAsNull: in.EmptyAsNull,
			TrimSpace:   in.TrimSpace,
			LazyQuotes:  in.LazyQuotes,
			MaxRecords:  in.MaxRecords,
		}
		if r := []rune(in.Delimiter); len(r) > 0 {
			opts.Delimiter = r[0]
		}
		if r := []rune(in.Comment); len(r) > 0 {
			opts.Comment = r[0]
		}
		return csvengine.New(opts, log), nil
	case "jsonl":
		opts := jsonl.DefaultOptions()
		opts.HasHeader = in.HasHeader
		opts.MaxRecords = in.MaxRecords
		return jsonl.New(opts, log), nil
	default:
		return nil, errors.Newf(errors.ErrorTypeCapability, "unsupported input format: %s", in.Format)
	}
}

func isStdio(path string) bool {
	return path == "" || path == "-"
}

func openInput(in config.InputConfig, stdin io.Reader) (io.Reader, func(), error) {
	var (
		raw     io.Reader = stdin
		closers []io.Closer
	)
	switch {
	case isStdio(in.Path):
	case in.Mmap && mmap.Supported:
		m, err := mmap.Open(in.Path)
		if err != nil {
			return nil, nil, err
		}
		raw = m
		closers = append(closers, m)
	default:
		f, err := os.Open(in.Path)
		if err != nil {
			return nil, nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open input").
				WithDetail("path", in.Path)
		}
		raw = f
		closers = append(closers, f)
	}

	alg := compression.None
	if in.Compression == "" || in.Compression == "auto" {
		if !isStdio(in.Path) {
			alg = compression.DetectFromPath(in.Path)
		}
	} else {
		var err error
		if alg, err = compression.ParseAlgorithm(in.Compression); err != nil {
			closeAll(closers)
			return nil, nil, err
		}
	}

	r, err := compression.NewReader(raw, alg)
	if err != nil {
		closeAll(closers)
		return nil, nil, err
	}
	closers = append([]io.Closer{r}, closers...)

	return r, func() { closeAll(closers) }, nil
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		_ = c.Close()
	}
}

// output closes the compression writer and then the file beneath it
type output struct {
	io.Writer
	closers []io.Closer
}

func (o *output) Close() error {
	var errs []error
	for _, c := range o.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close output")
	}
	return nil
}

func openOutput(out config.OutputConfig, stdout io.Writer) (*output, error) {
	alg, err := compression.ParseAlgorithm(out.Compression)
	if err != nil {
		return nil, err
	}
	level, err := compression.ParseLevel(out.CompressionLevel)
	if err != nil {
		return nil, err
	}

	o := &output{}
	raw := stdout
	if !isStdio(out.Path) {
		f, err := os.Create(out.Path)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create output").
				WithDetail("path", out.Path)
		}
		raw = f
		o.closers = append(o.closers, f)
	}

	w, err := compression.NewWriter(raw, alg, level)
	if err != nil {
		closeAll(o.closers)
		return nil, err
	}
	o.Writer = w
	o.closers = append([]io.Closer{w}, o.closers...)
	return o, nil
}
