package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the name of the tracer for classification runs.
	TracerName = "agriclassify"
)

// Span attribute keys
const (
	AttrBatchID    = "batch_id"
	AttrItemID     = "item_id"
	AttrItemCount  = "item_count"
	AttrMediaType  = "media_type"
	AttrExamples   = "example_labels"
	AttrOutcome    = "outcome"
	AttrLabel      = "label"
	AttrConfidence = "confidence"
	AttrErrorCode  = "error_code"
	AttrQualifying = "qualifying_count"
	AttrSummary    = "summary_state"
)

// Span names
const (
	SpanBatchRun  = "agriclassify.batch.run"
	SpanClassify  = "agriclassify.classify"
	SpanSummarize = "agriclassify.summarize"
)

// Tracer provides distributed tracing for classification runs. It uses the
// global tracer provider, so spans are no-ops until the host installs one.
// A nil *Tracer is valid and starts no spans.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a new tracer.
func NewTracer() *Tracer {
	return &Tracer{
		tracer: otel.Tracer(TracerName),
	}
}

// NewTracerWithProvider creates a tracer from an explicit provider.
func NewTracerWithProvider(tp trace.TracerProvider) *Tracer {
	return &Tracer{tracer: tp.Tracer(TracerName)}
}

func (t *Tracer) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if t == nil {
		// A span-less context yields the no-op span, so callers may End it safely.
		return ctx, trace.SpanFromContext(context.Background())
	}
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartBatchSpan starts the root span of a batch run.
func (t *Tracer) StartBatchSpan(ctx context.Context, batchID string, itemCount, exampleLabels int) (context.Context, trace.Span) {
	return t.start(ctx, SpanBatchRun,
		attribute.String(AttrBatchID, batchID),
		attribute.Int(AttrItemCount, itemCount),
		attribute.Int(AttrExamples, exampleLabels),
	)
}

// StartClassifySpan starts a span for one classification call.
func (t *Tracer) StartClassifySpan(ctx context.Context, itemID, mediaType string) (context.Context, trace.Span) {
	return t.start(ctx, SpanClassify,
		attribute.String(AttrItemID, itemID),
		attribute.String(AttrMediaType, mediaType),
	)
}

// StartSummarySpan starts a span for the summarization call.
func (t *Tracer) StartSummarySpan(ctx context.Context, qualifying int) (context.Context, trace.Span) {
	return t.start(ctx, SpanSummarize,
		attribute.Int(AttrQualifying, qualifying),
	)
}

// SetOutcome records a classification outcome on the span.
func SetOutcome(span trace.Span, outcome, label string, confidence *float64) {
	span.SetAttributes(attribute.String(AttrOutcome, outcome))
	if label != "" {
		span.SetAttributes(attribute.String(AttrLabel, label))
	}
	if confidence != nil {
		span.SetAttributes(attribute.Float64(AttrConfidence, *confidence))
	}
}

// SetError records an error on the span.
func SetError(span trace.Span, err error, code string) {
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String(AttrErrorCode, code))
	span.RecordError(err)
}

// GetTraceID returns the trace ID from the context.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
