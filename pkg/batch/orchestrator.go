package batch

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	agrierr "github.com/otherjamesbrown/agriclassify/pkg/errors"
	"github.com/otherjamesbrown/agriclassify/pkg/examples"
	"github.com/otherjamesbrown/agriclassify/pkg/logging"
	"github.com/otherjamesbrown/agriclassify/pkg/observability"
	"github.com/otherjamesbrown/agriclassify/pkg/produce"
	"github.com/otherjamesbrown/agriclassify/pkg/recognition"
	"github.com/otherjamesbrown/agriclassify/pkg/summary"
)

// Classifier classifies one image. Implementations must not return until the
// outcome is terminal; *classification.Client satisfies it.
type Classifier interface {
	Classify(ctx context.Context, img produce.Image, set *examples.Set) produce.Outcome
}

// Summarizer summarizes qualifying results; *summary.Client satisfies it.
type Summarizer interface {
	Summarize(ctx context.Context, results []recognition.ScoredLabel) (summary.Result, error)
}

// UpdateKind identifies what changed in an Update.
type UpdateKind int

const (
	UpdateStarted UpdateKind = iota
	UpdateItemResolved
	UpdateSummaryPending
	UpdateCompleted
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateStarted:
		return "started"
	case UpdateItemResolved:
		return "item_resolved"
	case UpdateSummaryPending:
		return "summary_pending"
	case UpdateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Update is delivered to observers as a run progresses. Item is set for
// UpdateItemResolved only.
type Update struct {
	Kind UpdateKind
	Run  Run
	Item *Item
}

// Observer receives updates in the order they happened, one at a time.
type Observer func(Update)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConcurrency caps simultaneous classification calls. Zero means one
// call per item with no cap.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records batch metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithTracer records a span per run.
func WithTracer(t *observability.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// Orchestrator owns one batch at a time: it fans classification out across
// the submitted items, tracks each item's state, and applies the summary
// threshold once every item has resolved.
type Orchestrator struct {
	classifier  Classifier
	summarizer  Summarizer
	concurrency int
	logger      logging.Logger
	metrics     *observability.Metrics
	tracer      *observability.Tracer

	mu        sync.Mutex
	id        string
	items     []Item
	set       *examples.Set
	summary   Summary
	running   bool
	ran       bool
	started   time.Time
	completed time.Time
	progress  *Progress
	observers []Observer
	updates   chan Update
}

// NewOrchestrator creates an orchestrator. Both collaborators are required.
func NewOrchestrator(classifier Classifier, summarizer Summarizer, opts ...Option) (*Orchestrator, error) {
	if classifier == nil {
		return nil, fmt.Errorf("%w: classifier is required", agrierr.ErrValidation)
	}
	if summarizer == nil {
		return nil, fmt.Errorf("%w: summarizer is required", agrierr.ErrValidation)
	}

	o := &Orchestrator{
		classifier: classifier,
		summarizer: summarizer,
		logger:     logging.NewNopLogger(),
		progress:   NewProgress(0),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With(logging.F("component", "batch_orchestrator"))
	return o, nil
}

// OnUpdate registers an observer for subsequent runs.
func (o *Orchestrator) OnUpdate(fn Observer) {
	if fn == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observers = append(o.observers, fn)
}

// Submit replaces the current batch with one pending item per image, in the
// given order. Image IDs must be non-empty and unique; on error the current
// batch is left untouched. set may be nil and is not modified.
func (o *Orchestrator) Submit(images []produce.Image, set *examples.Set) error {
	seen := make(map[string]struct{}, len(images))
	items := make([]Item, 0, len(images))
	for i, img := range images {
		if img.ID == "" {
			return fmt.Errorf("image %d: %w", i, agrierr.ErrEmptyItemID)
		}
		if _, dup := seen[img.ID]; dup {
			return fmt.Errorf("image %q: %w", img.ID, agrierr.ErrDuplicateItemID)
		}
		seen[img.ID] = struct{}{}
		items = append(items, Item{ID: img.ID, Name: img.Name, State: StatePending, image: img})
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return agrierr.ErrBatchRunning
	}

	o.id = uuid.New().String()
	o.items = items
	o.set = set
	o.summary = Summary{}
	o.ran = false
	o.started = time.Time{}
	o.completed = time.Time{}
	o.progress = NewProgress(len(items))

	o.logger.Debug("Batch submitted",
		logging.F("batch_id", o.id),
		logging.F("items", len(items)),
		logging.F("example_labels", set.Len()))
	return nil
}

// Run classifies every submitted item concurrently, waits for all of them to
// resolve, then applies the summary threshold and returns the final view.
// Individual failures never abort the run. Cancelling ctx resolves the items
// still waiting on the service as failures; the run still completes.
func (o *Orchestrator) Run(ctx context.Context) (Run, error) {
	o.mu.Lock()
	switch {
	case o.running:
		o.mu.Unlock()
		return Run{}, agrierr.ErrBatchRunning
	case len(o.items) == 0:
		o.mu.Unlock()
		return Run{}, agrierr.ErrEmptyBatch
	case o.ran:
		o.mu.Unlock()
		return Run{}, fmt.Errorf("%w: batch %s already ran, submit it again", agrierr.ErrInvalidState, o.id)
	}

	o.running = true
	o.ran = true
	o.started = time.Now()
	for i := range o.items {
		o.items[i].State = StateInFlight
	}
	o.progress.Start()

	// Updates are bounded: started, one per item, summary pending, completed.
	o.updates = make(chan Update, len(o.items)+3)
	delivered := o.startNotifier(o.observers)

	id, set, n := o.id, o.set, len(o.items)
	images := make([]produce.Image, n)
	for i, it := range o.items {
		images[i] = it.image
	}
	o.emitLocked(UpdateStarted, nil)
	o.mu.Unlock()

	ctx = logging.ContextWithBatchID(ctx, id)
	ctx, span := o.tracer.StartBatchSpan(ctx, id, n, set.Len())
	defer span.End()
	log := o.logger.WithContext(ctx)
	log.Info("Batch run started", logging.F("items", n), logging.F("concurrency", o.concurrency))

	o.dispatch(ctx, images, set)

	qualifying := o.snapshot().Qualifying()
	span.SetAttributes(attribute.Int(observability.AttrQualifying, len(qualifying)))

	summaryStart := time.Now()
	final := o.applySummaryPolicy(ctx, log, qualifying, n)
	var summaryElapsed time.Duration
	if final.State == SummaryReady || final.State == SummaryFailed {
		summaryElapsed = time.Since(summaryStart)
	}
	span.SetAttributes(attribute.String(observability.AttrSummary, final.State.String()))

	o.mu.Lock()
	o.summary = final
	o.running = false
	o.completed = time.Now()
	o.progress.Complete()
	o.emitLocked(UpdateCompleted, nil)
	close(o.updates)
	o.updates = nil
	result := o.snapshotLocked()
	o.mu.Unlock()

	<-delivered

	status := StatusCompleted
	if result.AllFailed() {
		status = StatusAllFailed
	}
	o.metrics.RecordSummary(final.State.String(), summaryElapsed)
	o.metrics.RecordBatch(status, n, result.CompletedAt.Sub(result.StartedAt))

	counts := result.Counts()
	log.Info("Batch run completed",
		logging.F("status", status),
		logging.F("succeeded", counts.Succeeded),
		logging.F("not_produce", counts.NotProduce),
		logging.F("failed", counts.Failed),
		logging.F("qualifying", len(qualifying)),
		logging.F("summary_state", final.State.String()),
		logging.F("duration", result.CompletedAt.Sub(result.StartedAt)))

	return result, nil
}

// dispatch starts one goroutine per item and returns once all have resolved.
func (o *Orchestrator) dispatch(ctx context.Context, images []produce.Image, set *examples.Set) {
	var sem chan struct{}
	if o.concurrency > 0 {
		sem = make(chan struct{}, o.concurrency)
	}

	var wg sync.WaitGroup
	for i := range images {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if sem != nil {
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					o.resolve(i, produce.FailureFromError(ctx.Err(), "classify"))
					return
				}
			}
			o.resolve(i, o.classify(ctx, images[i], set))
		}(i)
	}
	wg.Wait()
}

// classify calls the classifier, converting a panic or a non-terminal answer
// into a Failure so the join barrier always completes.
func (o *Orchestrator) classify(ctx context.Context, img produce.Image, set *examples.Set) (out produce.Outcome) {
	o.metrics.IncInFlight()
	defer o.metrics.DecInFlight()
	defer func() {
		if r := recover(); r != nil {
			o.logger.WithContext(ctx).Error("Classifier panicked",
				logging.F("item_id", img.ID),
				logging.F("panic", fmt.Sprint(r)),
				logging.F("stack", string(debug.Stack())))
			out = produce.Failure(agrierr.ErrInternalPanic, fmt.Sprintf("classification panicked: %v", r))
		}
	}()

	out = o.classifier.Classify(ctx, img, set)
	if !out.IsTerminal() {
		out = produce.Failure(agrierr.ErrEmptyResult, produce.ReasonUnparseable)
	}
	return out
}

// resolve moves item i to its terminal state. Each item is resolved by
// exactly one goroutine.
func (o *Orchestrator) resolve(i int, out produce.Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items[i].State = StateResolved
	o.items[i].Outcome = out
	o.progress.Record(out.Kind)
	item := o.items[i]
	o.emitLocked(UpdateItemResolved, &item)
}

// applySummaryPolicy summarizes only when more than one item qualified.
func (o *Orchestrator) applySummaryPolicy(ctx context.Context, log logging.Logger, qualifying []recognition.ScoredLabel, batchSize int) Summary {
	switch {
	case len(qualifying) > 1:
		o.mu.Lock()
		o.summary = Summary{State: SummaryPending}
		o.emitLocked(UpdateSummaryPending, nil)
		o.mu.Unlock()
		return o.summarize(ctx, log, qualifying)

	case len(qualifying) == 1 && batchSize > 1:
		log.Info("Summary unavailable", logging.F("reason", ReasonInsufficient))
		return Summary{State: SummaryUnavailable, Reason: ReasonInsufficient}

	default:
		return Summary{}
	}
}

func (o *Orchestrator) summarize(ctx context.Context, log logging.Logger, qualifying []recognition.ScoredLabel) (s Summary) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Summarizer panicked", logging.F("panic", fmt.Sprint(r)))
			s = Summary{State: SummaryFailed, Reason: fmt.Sprintf("summarization panicked: %v", r), Code: string(agrierr.ErrInternalPanic)}
		}
	}()

	res, err := o.summarizer.Summarize(ctx, qualifying)
	if err != nil {
		re := agrierr.ClassifyRemoteError(err, "summarize")
		return Summary{State: SummaryFailed, Reason: err.Error(), Code: string(re.Code)}
	}
	return summaryFromResult(res)
}

// Snapshot returns a consistent copy of the current batch.
func (o *Orchestrator) Snapshot() Run {
	return o.snapshot()
}

func (o *Orchestrator) snapshot() Run {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Run {
	r := Run{
		ID:          o.id,
		Items:       make([]Item, len(o.items)),
		Summary:     o.summary,
		Progress:    o.progress.Snapshot(),
		StartedAt:   o.started,
		CompletedAt: o.completed,
	}
	copy(r.Items, o.items)
	for _, it := range r.Items {
		if it.State == StateInFlight {
			r.AnyInFlight = true
			break
		}
	}
	return r
}

// emitLocked queues an update. The channel is sized for every update a run
// can produce, so it never blocks while the lock is held.
func (o *Orchestrator) emitLocked(kind UpdateKind, item *Item) {
	if o.updates == nil {
		return
	}
	o.updates <- Update{Kind: kind, Run: o.snapshotLocked(), Item: item}
}

// startNotifier delivers queued updates to observers from a single goroutine,
// keeping them ordered and letting observers call back into the orchestrator.
func (o *Orchestrator) startNotifier(observers []Observer) <-chan struct{} {
	updates := o.updates
	observers = append([]Observer(nil), observers...)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range updates {
			for _, fn := range observers {
				o.deliver(fn, u)
			}
		}
	}()
	return done
}

func (o *Orchestrator) deliver(fn Observer, u Update) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Observer panicked",
				logging.F("update", u.Kind.String()),
				logging.F("panic", fmt.Sprint(r)))
		}
	}()
	fn(u)
}
