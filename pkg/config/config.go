// Package config defines the colbatch run configuration.
//
// The configuration is organized into sections:
//   - Processor: batch size
//   - Input: source file, parsing engine and its options
//   - Output: sink format and compression
//   - Observability: logging, metrics and tracing
//
// Example usage:
//
//	cfg, err := config.Load("colbatch.yml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cfg.Processor.RowsPerBatch = 5000
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/ajitpratap0/colbatch/pkg/errors"
)

// Config is the complete configuration of one colbatch run
type Config struct {
	// Name identifies the run in logs and metrics
	Name string `yaml:"name" mapstructure:"name" validate:"required"`

	Processor     ProcessorConfig     `yaml:"processor" mapstructure:"processor"`
	Input         InputConfig         `yaml:"input" mapstructure:"input"`
	Output        OutputConfig        `yaml:"output" mapstructure:"output"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
}

// ProcessorConfig controls batching
type ProcessorConfig struct {
	// RowsPerBatch is the number of rows handed to the sink per flush
	RowsPerBatch int `yaml:"rows_per_batch" mapstructure:"rows_per_batch" validate:"gt=0"`
}

// InputConfig describes the source and how to parse it
type InputConfig struct {
	// Path of the input file; "-" reads stdin
	Path string `yaml:"path" mapstructure:"path" validate:"required"`
	// Format selects the parsing engine (csv, jsonl)
	Format    string `yaml:"format" mapstructure:"format" validate:"oneof=csv jsonl"`
	HasHeader bool   `yaml:"has_header" mapstructure:"has_header"`
	// Delimiter and Comment are single characters; csv only
	Delimiter   string `yaml:"delimiter" mapstructure:"delimiter" validate:"omitempty,len=1"`
	Comment     string `yaml:"comment" mapstructure:"comment" validate:"omitempty,len=1"`
	EmptyAsNull bool   `yaml:"empty_as_null" mapstructure:"empty_as_null"`
	TrimSpace   bool   `yaml:"trim_space" mapstructure:"trim_space"`
	LazyQuotes  bool   `yaml:"lazy_quotes" mapstructure:"lazy_quotes"`
	// MaxRecords stops after this many data rows; zero reads everything
	MaxRecords int64 `yaml:"max_records" mapstructure:"max_records" validate:"gte=0"`
	// Mmap reads the input file through a memory mapping; ignored for stdin
	Mmap bool `yaml:"mmap" mapstructure:"mmap"`
	// Compression of the input; "auto" detects it from the file extension
	Compression string `yaml:"compression" mapstructure:"compression" validate:"omitempty,oneof=auto none gzip gz snappy s2 zstd zst lz4"`
}

// OutputConfig describes where batches are written
type OutputConfig struct {
	// Path of the output file; empty or "-" writes stdout
	Path             string `yaml:"path" mapstructure:"path"`
	Format           string `yaml:"format" mapstructure:"format" validate:"oneof=json arrow avro parquet discard"`
	Compression      string `yaml:"compression" mapstructure:"compression" validate:"omitempty,oneof=none gzip gz snappy s2 zstd zst lz4"`
	CompressionLevel string `yaml:"compression_level" mapstructure:"compression_level" validate:"omitempty,oneof=fastest default better best"`
}

// ObservabilityConfig contains logging, metrics and tracing settings
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level" mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogEncoding string `yaml:"log_encoding" mapstructure:"log_encoding" validate:"oneof=json console"`
	// EnableMetrics serves Prometheus metrics on MetricsAddr
	EnableMetrics bool   `yaml:"enable_metrics" mapstructure:"enable_metrics"`
	MetricsAddr   string `yaml:"metrics_addr" mapstructure:"metrics_addr" validate:"required_if=EnableMetrics true"`
	// EnableTracing exports a span per batch to stdout
	EnableTracing     bool    `yaml:"enable_tracing" mapstructure:"enable_tracing"`
	TracingSampleRate float64 `yaml:"tracing_sample_rate" mapstructure:"tracing_sample_rate" validate:"gte=0,lte=1"`
}

// NewConfig creates a Config with defaults for a run named name
func NewConfig(name string) *Config {
	return &Config{
		Name: name,
		Processor: ProcessorConfig{
			RowsPerBatch: 1000,
		},
		Input: InputConfig{
			Path:        "-",
			Format:      "csv",
			HasHeader:   true,
			Delimiter:   ",",
			EmptyAsNull: true,
			Compression: "auto",
		},
		Output: OutputConfig{
			Path:             "-",
			Format:           "json",
			Compression:      "none",
			CompressionLevel: "default",
		},
		Observability: ObservabilityConfig{
			LogLevel:          "info",
			LogEncoding:       "json",
			MetricsAddr:       ":9090",
			TracingSampleRate: 1.0,
		},
	}
}

var (
	validate *validator.Validate
	once     sync.Once
)

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// report yaml key names
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Validate checks every field against its constraints. The returned error
// is of type ErrorTypeConfig and lists each offending key.
func (c *Config) Validate() error {
	err := getValidator().Struct(c)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid configuration")
	}

	fields := make([]string, 0, len(validationErrors))
	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		key := strings.TrimPrefix(e.Namespace(), "Config.")
		fields = append(fields, key)
		messages = append(messages, key+": "+formatValidationError(e))
	}

	return errors.New(errors.ErrorTypeConfig, strings.Join(messages, "; ")).
		WithDetail("fields", fields)
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "required_if":
		return "is required"
	case "gt":
		return "must be greater than " + e.Param()
	case "gte":
		return "must be at least " + e.Param()
	case "lte":
		return "must be at most " + e.Param()
	case "len":
		return "must be exactly " + e.Param() + " character"
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "is invalid"
	}
}
