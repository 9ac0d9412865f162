package sink

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/ajitpratap0/colbatch/pkg/errors"
	"github.com/ajitpratap0/colbatch/pkg/processor"
)

// Traced runs another handler inside an OpenTelemetry span and counts the
// rows it receives.
type Traced struct {
	ctx     context.Context
	next    processor.BatchHandler
	tracer  trace.Tracer
	rows    metric.Int64Counter
	batches metric.Int64Counter
	attrs   []attribute.KeyValue
}

// NewTraced wraps next. Spans are children of any span in ctx.
func NewTraced(ctx context.Context, next processor.BatchHandler, tracer trace.Tracer, meter metric.Meter, stream string) (*Traced, error) {
	rows, err := meter.Int64Counter("colbatch.rows",
		metric.WithDescription("Rows delivered to batch consumers"),
		metric.WithUnit("{row}"))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to create rows counter")
	}
	batches, err := meter.Int64Counter("colbatch.batches",
		metric.WithDescription("Batches delivered to batch consumers"),
		metric.WithUnit("{batch}"))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to create batches counter")
	}

	return &Traced{
		ctx:     ctx,
		next:    next,
		tracer:  tracer,
		rows:    rows,
		batches: batches,
		attrs:   []attribute.KeyValue{attribute.String("colbatch.stream", stream)},
	}, nil
}

// BatchProcessed calls the wrapped handler inside a span
func (h *Traced) BatchProcessed(rows int, batch processor.Batch) error {
	ctx, span := h.tracer.Start(h.ctx, "colbatch.batch",
		trace.WithAttributes(h.attrs...),
		trace.WithAttributes(
			attribute.Int("colbatch.batch.sequence", batch.Sequence),
			attribute.Int("colbatch.batch.rows", rows),
			attribute.Int("colbatch.batch.columns", batch.Columns.ColumnCount()),
			attribute.Bool("colbatch.batch.final", batch.Final),
		))
	defer span.End()

	err := h.next.BatchProcessed(rows, batch)

	attrs := metric.WithAttributes(append(h.attrs, attribute.Bool("final", batch.Final))...)
	h.rows.Add(ctx, int64(rows), attrs)
	h.batches.Add(ctx, 1, attrs)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// Close closes the wrapped handler
func (h *Traced) Close() error {
	return Close(h.next)
}
