package observability

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInitTracing_ExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	config := DefaultTracingConfig()
	config.ServiceName = "colbatch-test"
	config.Writer = &buf

	shutdown, err := InitTracing(config)
	require.NoError(t, err)

	_, span := Tracer().Start(context.Background(), "test.span")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "test.span")
	assert.Contains(t, buf.String(), "colbatch-test")
}

func TestInitTracing_NeverSample(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitTracing(TracingConfig{ServiceName: "quiet", Writer: &buf})
	require.NoError(t, err)

	_, span := Tracer().Start(context.Background(), "dropped")
	assert.False(t, span.SpanContext().IsSampled())
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.NotContains(t, buf.String(), "dropped")
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.NeverSample().Description(), sampler(0).Description())
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1.5).Description())
	assert.Equal(t, sdktrace.TraceIDRatioBased(0.25).Description(), sampler(0.25).Description())
}

func TestMeter_CreatesInstruments(t *testing.T) {
	counter, err := Meter().Int64Counter("colbatch.test")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)
}
