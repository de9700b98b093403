// Package summary adapts the qualifying classification results of a run into
// one call to the summarization service.
package summary

import (
	"context"
	"fmt"
	"strings"
	"time"

	agrierr "github.com/otherjamesbrown/agriclassify/pkg/errors"
	"github.com/otherjamesbrown/agriclassify/pkg/logging"
	"github.com/otherjamesbrown/agriclassify/pkg/observability"
	"github.com/otherjamesbrown/agriclassify/pkg/recognition"
)

const operation = "summarize"

// Result is the outcome of a summarization attempt. Exactly one of Summary
// or Failure is set.
type Result struct {
	Summary string            `json:"summary,omitempty" yaml:"summary,omitempty"`
	Failure string            `json:"failure,omitempty" yaml:"failure,omitempty"`
	Code    agrierr.ErrorCode `json:"code,omitempty" yaml:"code,omitempty"`
}

// OK reports whether a summary was produced.
func (r Result) OK() bool {
	return r.Failure == "" && r.Summary != ""
}

// Client summarizes scored labels. Remote problems are returned as a
// Result with Failure set, never as an error.
type Client struct {
	summarizer recognition.Summarizer
	timeout    time.Duration
	logger     logging.Logger
	tracer     *observability.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds the summarization call.
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

// WithTracer records a span per call.
func WithTracer(t *observability.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// NewClient creates a summary client over summarizer.
func NewClient(summarizer recognition.Summarizer, opts ...Option) *Client {
	c := &Client{
		summarizer: summarizer,
		logger:     logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(logging.F("component", "summary_client"))
	return c
}

// Summarize sends results, in the given order, to the summarization service.
// The only error is ErrEmptyInput for an empty list, in which case nothing is sent.
func (c *Client) Summarize(ctx context.Context, results []recognition.ScoredLabel) (res Result, err error) {
	if len(results) == 0 {
		return Result{}, agrierr.ErrEmptyInput
	}

	ctx, span := c.tracer.StartSummarySpan(ctx, len(results))
	defer span.End()
	log := c.logger.WithContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			log.Error("summarization panicked", logging.F("panic", fmt.Sprint(r)))
			res = Result{Failure: fmt.Sprintf("summarization panicked: %v", r), Code: agrierr.ErrInternalPanic}
			err = nil
		}
	}()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := recognition.SummarizeRequest{Results: append([]recognition.ScoredLabel(nil), results...)}
	resp, callErr := c.summarizer.Summarize(ctx, req)
	if callErr != nil {
		re := agrierr.ClassifyRemoteError(callErr, operation)
		observability.SetError(span, callErr, string(re.Code))
		log.Warn("summarization failed", logging.Err(callErr), logging.F("code", string(re.Code)))
		return Result{Failure: callErr.Error(), Code: re.Code}, nil
	}

	if resp == nil || strings.TrimSpace(resp.Summary) == "" {
		log.Warn("summarization returned nothing")
		return Result{Failure: "empty summary result", Code: agrierr.ErrEmptyResult}, nil
	}

	log.Debug("summarization completed", logging.F("results", len(results)))
	return Result{Summary: strings.TrimSpace(resp.Summary)}, nil
}
