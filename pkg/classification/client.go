// Package classification adapts a single image plus optional example groups
// into a call to the recognition service and normalizes whatever comes back
// (answer, error, timeout, panic) into a produce.Outcome.
package classification

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	agrierr "github.com/otherjamesbrown/agriclassify/pkg/errors"
	"github.com/otherjamesbrown/agriclassify/pkg/examples"
	"github.com/otherjamesbrown/agriclassify/pkg/logging"
	"github.com/otherjamesbrown/agriclassify/pkg/observability"
	"github.com/otherjamesbrown/agriclassify/pkg/produce"
	"github.com/otherjamesbrown/agriclassify/pkg/recognition"
)

const operation = "classify"

// Client classifies one image per call. It never returns an error and never
// panics; every problem becomes a Failure outcome.
type Client struct {
	recognizer recognition.Recognizer
	timeout    time.Duration
	logger     logging.Logger
	metrics    *observability.Metrics
	tracer     *observability.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each recognition call. Zero means no extra bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records per-call metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithTracer records a span per call.
func WithTracer(t *observability.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// NewClient creates a classification client over recognizer.
func NewClient(recognizer recognition.Recognizer, opts ...Option) *Client {
	c := &Client{
		recognizer: recognizer,
		logger:     logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(logging.F("component", "classification_client"))
	return c
}

// Classify classifies img, biased by set when it is non-empty. Unsupported
// media types fail fast without contacting the service. Single attempt.
func (c *Client) Classify(ctx context.Context, img produce.Image, set *examples.Set) (out produce.Outcome) {
	start := time.Now()
	ctx = logging.ContextWithItemID(ctx, img.ID)
	ctx, span := c.tracer.StartClassifySpan(ctx, img.ID, img.MediaType)
	log := c.logger.WithContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			log.Error("recognition call panicked",
				logging.F("panic", fmt.Sprint(r)),
				logging.F("stack", string(debug.Stack())))
			out = produce.Failure(agrierr.ErrInternalPanic, fmt.Sprintf("classification panicked: %v", r))
		}
		c.finish(span, out, time.Since(start))
		span.End()
	}()

	if err := img.ValidateFormat(); err != nil {
		log.Warn("rejected image before classification", logging.Err(err))
		return produce.Failure(agrierr.ErrInvalidInput, err.Error())
	}

	req := BuildRequest(img, set)

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.recognizer.Classify(callCtx, req)
	if err != nil {
		out = produce.FailureFromError(err, operation)
		log.Warn("classification failed",
			logging.Err(err),
			logging.F("code", string(out.Code)),
			logging.F("retryable", agrierr.IsRetryable(out.Code)))
		return out
	}

	out = Interpret(resp)
	if resp != nil && resp.IsProduce && resp.Confidence != nil && out.Kind == produce.KindSuccess && out.Confidence == nil {
		log.Warn("dropped out-of-range confidence", logging.F("confidence", *resp.Confidence))
	}
	log.Debug("classification resolved",
		logging.F("outcome", out.Kind.String()),
		logging.F("label", out.Label),
		logging.F("duration", time.Since(start)))
	return out
}

func (c *Client) finish(span trace.Span, out produce.Outcome, elapsed time.Duration) {
	observability.SetOutcome(span, out.Kind.String(), out.Label, out.Confidence)
	if out.Kind == produce.KindFailure {
		observability.SetError(span, fmt.Errorf("%s", out.Reason), string(out.Code))
	}
	c.metrics.RecordClassification(out.Kind.String(), string(out.Code), elapsed, out.Confidence)
}

// BuildRequest assembles the recognition request. Example groups are
// included only for a non-empty set, labels and images in insertion order.
func BuildRequest(img produce.Image, set *examples.Set) recognition.ClassifyRequest {
	req := recognition.ClassifyRequest{
		Image: recognition.ImagePayload{MediaType: img.MediaType, Data: img.Data},
	}
	if set.IsEmpty() {
		return req
	}

	groups := set.Groups()
	req.Examples = make([]recognition.ExampleGroup, 0, len(groups))
	for _, g := range groups {
		eg := recognition.ExampleGroup{
			Label:  g.Label,
			Images: make([]recognition.ImagePayload, 0, len(g.Images)),
		}
		for _, ex := range g.Images {
			eg.Images = append(eg.Images, recognition.ImagePayload{MediaType: ex.MediaType, Data: ex.Data})
		}
		req.Examples = append(req.Examples, eg)
	}
	return req
}

// Interpret maps a recognition answer to an outcome:
//   - nil answer: Failure (unparseable)
//   - not produce: NotProduce with the supplied label or the fixed marker
//   - produce labelled with the marker: NotProduce
//   - produce without a label: Failure (unparseable)
//   - produce with a label: Success, confidence kept only when in [0, 1]
func Interpret(resp *recognition.ClassifyResponse) produce.Outcome {
	if resp == nil {
		return produce.Failure(agrierr.ErrEmptyResult, produce.ReasonUnparseable)
	}
	label := strings.TrimSpace(resp.Label)
	if !resp.IsProduce || label == produce.NotProduceLabel {
		return produce.NotProduce(label)
	}
	if label == "" {
		return produce.Failure(agrierr.ErrParseError, produce.ReasonUnparseable)
	}
	return produce.Success(label, resp.Confidence)
}
