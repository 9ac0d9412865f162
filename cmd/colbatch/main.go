package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/colbatch/internal/pipeline"
	"github.com/ajitpratap0/colbatch/pkg/compression"
	"github.com/ajitpratap0/colbatch/pkg/config"
	"github.com/ajitpratap0/colbatch/pkg/errors"
	"github.com/ajitpratap0/colbatch/pkg/logger"
	"github.com/ajitpratap0/colbatch/pkg/metrics"
	"github.com/ajitpratap0/colbatch/pkg/observability"
	"github.com/ajitpratap0/colbatch/pkg/sink"
)

var version = "0.1.0"

// runFlags mirrors the run command line. Only flags the user sets override
// the configuration file.
type runFlags struct {
	configFile    string
	input         string
	inputFormat   string
	rowsPerBatch  int
	noHeader      bool
	mmap          bool
	delimiter     string
	output        string
	outputFormat  string
	compression   string
	logLevel      string
	metricsAddr   string
	enableTracing bool
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "colbatch",
		Short: "colbatch - stream delimited data into fixed-size column batches",
		Long: fmt.Sprintf(`colbatch parses CSV or JSON-lines input row by row, accumulates the rows
column by column and hands every batch of N rows, plus a final partial batch,
to an output sink (%s).`, outputFormatList()),
		SilenceUsage: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "colbatch v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "formats",
		Short: "List supported input formats, output formats and compression algorithms",
		Run: func(cmd *cobra.Command, args []string) {
			printFormats(cmd.OutOrStdout())
		},
	})

	root.AddCommand(newRunCmd())
	return root
}

// outputFormatList names every registered output format
func outputFormatList() string {
	formats := sink.Formats()
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

func printFormats(out io.Writer) {
	fmt.Fprintln(out, "Input formats:")
	for _, f := range []string{"csv", "jsonl"} {
		fmt.Fprintf(out, "  - %s\n", f)
	}
	fmt.Fprintln(out, "\nOutput formats:")
	for _, f := range sink.Formats() {
		fmt.Fprintf(out, "  - %s\n", f)
	}
	fmt.Fprintln(out, "\nCompression:")
	for _, a := range compression.Algorithms() {
		fmt.Fprintf(out, "  - %s\n", a)
	}
}

func newRunCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process one input stream",
		Long: `Process one input stream with the given configuration. Flags override
the configuration file; COLBATCH_* environment variables override both file
and defaults.

Example:
  colbatch run --input orders.csv.gz --rows-per-batch 5000 --output orders.arrow --output-format arrow`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.configFile)
			if err != nil {
				return err
			}
			applyFlags(cmd, cfg, &flags)
			return runStream(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.configFile, "config", "c", "", "Path to a YAML configuration file")
	f.StringVarP(&flags.input, "input", "i", "-", "Input file, - for stdin. Compression is detected from the extension")
	f.StringVar(&flags.inputFormat, "input-format", "csv", "Input format (csv, jsonl)")
	f.IntVarP(&flags.rowsPerBatch, "rows-per-batch", "n", 1000, "Rows handed to the sink per batch")
	f.BoolVar(&flags.noHeader, "no-header", false, "Treat the first record as data")
	f.BoolVar(&flags.mmap, "mmap", false, "Read the input file through a memory mapping")
	f.StringVar(&flags.delimiter, "delimiter", ",", "CSV field delimiter")
	f.StringVarP(&flags.output, "output", "o", "-", "Output file, - for stdout")
	f.StringVar(&flags.outputFormat, "output-format", "json", "Output format ("+outputFormatList()+")")
	f.StringVar(&flags.compression, "compression", "none", "Output compression (none, gzip, snappy, s2, zstd, lz4)")
	f.StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	f.StringVar(&flags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	f.BoolVar(&flags.enableTracing, "enable-tracing", false, "Export a span per batch to stdout")

	return cmd
}

// applyFlags copies explicitly set flags onto cfg
func applyFlags(cmd *cobra.Command, cfg *config.Config, flags *runFlags) {
	set := cmd.Flags().Changed
	if set("input") {
		cfg.Input.Path = flags.input
	}
	if set("input-format") {
		cfg.Input.Format = flags.inputFormat
	}
	if set("rows-per-batch") {
		cfg.Processor.RowsPerBatch = flags.rowsPerBatch
	}
	if set("no-header") {
		cfg.Input.HasHeader = !flags.noHeader
	}
	if set("mmap") {
		cfg.Input.Mmap = flags.mmap
	}
	if set("delimiter") {
		cfg.Input.Delimiter = flags.delimiter
	}
	if set("output") {
		cfg.Output.Path = flags.output
	}
	if set("output-format") {
		cfg.Output.Format = flags.outputFormat
	}
	if set("compression") {
		cfg.Output.Compression = flags.compression
	}
	if set("log-level") {
		cfg.Observability.LogLevel = flags.logLevel
	}
	if set("metrics-addr") {
		cfg.Observability.EnableMetrics = flags.metricsAddr != ""
		cfg.Observability.MetricsAddr = flags.metricsAddr
	}
	if set("enable-tracing") {
		cfg.Observability.EnableTracing = flags.enableTracing
	}
}

func runStream(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	// logs go to stderr so stdout stays clean for batch output
	if err := logger.Init(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Encoding:    cfg.Observability.LogEncoding,
		OutputPaths: []string{"stderr"},
	}); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get().With(zap.String("component", "colbatch-cli"))
	opts := []pipeline.Option{
		pipeline.WithLogger(logger.Get()),
		pipeline.WithStdio(os.Stdin, stdout),
	}

	if cfg.Observability.EnableMetrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		opts = append(opts, pipeline.WithMetrics(metrics.NewCollector("colbatch", reg)))

		srv := &http.Server{
			Addr:              cfg.Observability.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		log.Info("serving metrics", zap.String("addr", cfg.Observability.MetricsAddr))
	}

	if cfg.Observability.EnableTracing {
		tracing := observability.DefaultTracingConfig()
		tracing.ServiceVersion = version
		tracing.SamplingRate = cfg.Observability.TracingSampleRate
		tracing.Writer = os.Stderr
		shutdown, err := observability.InitTracing(tracing)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Warn("failed to flush traces", zap.Error(err))
			}
		}()
	}

	result, err := pipeline.Run(ctx, cfg, opts...)
	if err != nil {
		return fmt.Errorf("stream %s failed: %w", cfg.Name, err)
	}

	log.Info("run completed",
		zap.String("stream_id", result.StreamID),
		zap.Int64("rows", result.Rows),
		zap.Int("batches", result.Batches),
		zap.Duration("duration", result.Duration))
	return nil
}
