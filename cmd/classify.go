package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/agriclassify/config"
	"github.com/otherjamesbrown/agriclassify/credentials"
	"github.com/otherjamesbrown/agriclassify/pkg/batch"
	"github.com/otherjamesbrown/agriclassify/pkg/classification"
	"github.com/otherjamesbrown/agriclassify/pkg/events"
	"github.com/otherjamesbrown/agriclassify/pkg/examples"
	"github.com/otherjamesbrown/agriclassify/pkg/logging"
	"github.com/otherjamesbrown/agriclassify/pkg/observability"
	"github.com/otherjamesbrown/agriclassify/pkg/produce"
	"github.com/otherjamesbrown/agriclassify/pkg/recognition"
	"github.com/otherjamesbrown/agriclassify/pkg/summary"
)

// Service is the remote backend used for both classification and summaries.
type Service interface {
	recognition.Recognizer
	recognition.Summarizer
}

// EventPublisher publishes run events; *events.Publisher satisfies it.
type EventPublisher interface {
	PublishItemResolved(ctx context.Context, event events.ItemResolvedEvent) error
	PublishBatchCompleted(ctx context.Context, event events.BatchCompletedEvent) error
	Close() error
}

// ClassifyCommandDeps holds the dependencies for the classify command.
type ClassifyCommandDeps struct {
	LoadConfig    func() (*config.CLIConfig, error)
	ResolveAPIKey func() (key, source string, err error)
	NewService    func(cfg *config.CLIConfig, apiKey string, logger logging.Logger) (Service, error)
	NewPublisher  func(cfg config.EventsConfig, logger logging.Logger) (EventPublisher, error)
	PushMetrics   func(cfg config.MetricsConfig, gatherer prometheus.Gatherer) error

	Out io.Writer
	Err io.Writer
}

// DefaultClassifyDeps returns the default dependencies for production use.
func DefaultClassifyDeps() *ClassifyCommandDeps {
	return &ClassifyCommandDeps{
		LoadConfig:    config.LoadConfig,
		ResolveAPIKey: credentials.NewStore().Resolve,
		NewService:    newOpenAIService,
		NewPublisher:  newRedisPublisher,
		PushMetrics:   pushMetrics,
		Out:           os.Stdout,
		Err:           os.Stderr,
	}
}

func newOpenAIService(cfg *config.CLIConfig, apiKey string, logger logging.Logger) (Service, error) {
	return recognition.NewOpenAIService(recognition.OpenAIConfig{
		APIKey:       apiKey,
		BaseURL:      cfg.Recognition.BaseURL,
		Model:        cfg.Recognition.Model,
		SummaryModel: cfg.Recognition.SummaryModel,
	}, logger)
}

func newRedisPublisher(cfg config.EventsConfig, logger logging.Logger) (EventPublisher, error) {
	return events.NewPublisherFromConfig(events.PublisherConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
}

func pushMetrics(cfg config.MetricsConfig, gatherer prometheus.Gatherer) error {
	return push.New(cfg.PushgatewayURL, cfg.JobName).Gatherer(gatherer).Push()
}

// classifyOptions holds the classify command flags.
type classifyOptions struct {
	output      string
	examples    []string
	examplesDir string
	concurrency int
	timeout     time.Duration
	model       string
	quiet       bool
	debug       bool
}

// NewClassifyCommand creates the classify command.
func NewClassifyCommand(deps *ClassifyCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultClassifyDeps()
	}
	opts := &classifyOptions{}

	cmd := &cobra.Command{
		Use:   "classify <image|dir>...",
		Short: "Classify a batch of produce images",
		Long: `Classify a batch of agricultural produce images.

Every image is sent to the recognition service concurrently and ends in one of
three states: a produce label with a confidence, "not produce", or an error
with its reason. One failing image never affects the others.

When more than one image is classified as produce with a confidence, the
results are summarized in one extra call. If exactly one image of a larger
batch qualifies, the summary is reported as unavailable.

Example sets bias the model toward your own labels. Pass them as
--example "label=a.jpg,b.jpg" (repeatable, up to 10 images per label) or as a
directory with one subdirectory per label (--examples-dir).

Directories given as arguments are expanded to the files they contain.
Supported formats: JPEG, PNG, WebP, GIF. Other files are reported as errors.`,
		Example: `  # Classify two images
  agri classify mango.jpg durian.png

  # Classify every file in a directory, four calls at a time
  agri classify ./harvest --concurrency 4

  # Bias toward custom avocado varieties
  agri classify ./harvest --example "Bơ 034=034-1.jpg,034-2.jpg" --example "Bơ sáp=sap.jpg"

  # Machine-readable output
  agri classify ./harvest --output json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd, deps, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output format: text, json, or yaml")
	cmd.Flags().StringArrayVarP(&opts.examples, "example", "e", nil, "Example set entry as label=file[,file...] (repeatable)")
	cmd.Flags().StringVar(&opts.examplesDir, "examples-dir", "", "Directory with one subdirectory of example images per label")
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "c", 0, "Maximum simultaneous classification calls (0 = unlimited)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Timeout per recognition call")
	cmd.Flags().StringVar(&opts.model, "model", "", "Vision model to use")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Do not print per-image progress")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	return cmd
}

func runClassify(cmd *cobra.Command, deps *ClassifyCommandDeps, opts *classifyOptions, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := deps.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if cmd.Flags().Changed("concurrency") {
		if opts.concurrency < 0 {
			return fmt.Errorf("--concurrency must not be negative")
		}
		cfg.Batch.Concurrency = opts.concurrency
	}
	if opts.timeout > 0 {
		cfg.Recognition.Timeout = opts.timeout
	}
	if opts.model != "" {
		cfg.Recognition.Model = opts.model
	}
	if opts.debug {
		cfg.Debug = true
	}

	format, err := resolveFormat(opts.output, cfg)
	if err != nil {
		return err
	}

	logger := newCLILogger(cfg.Debug, format != config.OutputFormatText, deps.Err)

	images, err := loadImages(args)
	if err != nil {
		return err
	}
	set, err := loadExampleSet(opts, cfg)
	if err != nil {
		return err
	}

	apiKey, _, err := deps.ResolveAPIKey()
	if err != nil {
		// Local OpenAI-compatible servers usually run without a key.
		if !errors.Is(err, credentials.ErrNoAPIKey) || cfg.Recognition.BaseURL == "" {
			return fmt.Errorf("resolving API key: %w (run 'agri auth set-key' or set %s)", err, credentials.EnvAPIKey)
		}
	}

	svc, err := deps.NewService(cfg, apiKey, logger)
	if err != nil {
		return fmt.Errorf("creating recognition service: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	tracer := observability.NewTracer()

	classifier := classification.NewClient(svc,
		classification.WithTimeout(cfg.Recognition.Timeout),
		classification.WithLogger(logger),
		classification.WithMetrics(metrics),
		classification.WithTracer(tracer))
	summarizer := summary.NewClient(svc,
		summary.WithTimeout(cfg.Recognition.Timeout),
		summary.WithLogger(logger),
		summary.WithTracer(tracer))

	orch, err := batch.NewOrchestrator(classifier, summarizer,
		batch.WithConcurrency(cfg.Batch.Concurrency),
		batch.WithLogger(logger),
		batch.WithMetrics(metrics),
		batch.WithTracer(tracer))
	if err != nil {
		return err
	}

	if format == config.OutputFormatText && !opts.quiet {
		orch.OnUpdate(progressPrinter(deps.Err))
	}

	var publisher EventPublisher
	if cfg.Events.Enabled() {
		publisher, err = deps.NewPublisher(cfg.Events, logger)
		if err != nil {
			logger.Warn("Event publishing disabled", logging.Err(err))
			publisher = nil
		} else {
			defer publisher.Close()
			orch.OnUpdate(itemEventPublisher(ctx, publisher, logger))
		}
	}

	if err := orch.Submit(images, set); err != nil {
		return err
	}
	run, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	if publisher != nil {
		if err := publisher.PublishBatchCompleted(ctx, batchCompletedEvent(run)); err != nil {
			logger.Warn("Failed to publish completion event", logging.Err(err))
		}
	}
	if cfg.Metrics.Enabled() {
		if err := deps.PushMetrics(cfg.Metrics, registry); err != nil {
			logger.Warn("Failed to push metrics", logging.Err(err), logging.F("url", cfg.Metrics.PushgatewayURL))
		}
	}

	report := classifyReport{Run: run, Notice: run.Notice()}
	return writeOutput(deps.Out, format, report, func(w io.Writer) error {
		return printRunText(w, run)
	})
}

// classifyReport is the machine-readable result of a classify run.
type classifyReport struct {
	batch.Run `yaml:",inline"`
	Notice    string `json:"notice" yaml:"notice"`
}

// newCLILogger logs warnings to w, everything with debug. Machine-readable
// output gets JSON logs.
func newCLILogger(debug, jsonLogs bool, w io.Writer) logging.Logger {
	level := logging.LevelWarn
	if debug {
		level = logging.LevelDebug
	}
	return logging.NewLogger(&logging.Config{
		Level:       level,
		ServiceName: "agriclassify",
		JSONFormat:  jsonLogs,
		Output:      w,
	})
}

// loadImages reads each path, expanding directories to their non-hidden
// files in name order.
func loadImages(paths []string) ([]produce.Image, error) {
	var images []produce.Image
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}

		files := []string{p}
		if info.IsDir() {
			entries, err := os.ReadDir(p)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", p, err)
			}
			files = files[:0]
			for _, e := range entries {
				if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
					continue
				}
				files = append(files, filepath.Join(p, e.Name()))
			}
		}

		for _, f := range files {
			img, err := produce.LoadImageFile(f)
			if err != nil {
				return nil, err
			}
			images = append(images, img)
		}
	}
	disambiguateIDs(images)
	return images, nil
}

// disambiguateIDs suffixes repeated IDs with "-2", "-3", ... in load order.
// Files with the same name, mtime and size in different directories would
// otherwise collide and fail the whole submission.
func disambiguateIDs(images []produce.Image) {
	seen := make(map[string]int, len(images))
	for _, img := range images {
		seen[img.ID] = 0
	}
	for i := range images {
		id := images[i].ID
		seen[id]++
		if seen[id] == 1 {
			continue
		}
		for n := seen[id]; ; n++ {
			candidate := fmt.Sprintf("%s-%d", id, n)
			if _, taken := seen[candidate]; !taken {
				seen[candidate] = 1
				seen[id] = n
				images[i].ID = candidate
				break
			}
		}
	}
}

// loadExampleSet builds the example set from --example flags, or failing
// that from --examples-dir or the configured directory. It may be empty.
func loadExampleSet(opts *classifyOptions, cfg *config.CLIConfig) (*examples.Set, error) {
	if len(opts.examples) > 0 {
		set := examples.New()
		for _, value := range opts.examples {
			label, paths, err := examples.ParseExampleFlag(value)
			if err != nil {
				return nil, err
			}
			if err := examples.AddFiles(set, label, paths); err != nil {
				return nil, err
			}
		}
		return set, nil
	}

	dir := opts.examplesDir
	if dir == "" {
		dir = cfg.Batch.ExamplesDir
	}
	if dir == "" {
		return examples.New(), nil
	}
	expanded, err := config.ExpandPath(dir)
	if err != nil {
		return nil, err
	}
	return examples.LoadDir(expanded)
}

// progressPrinter reports each item as it resolves.
func progressPrinter(w io.Writer) batch.Observer {
	return func(u batch.Update) {
		switch u.Kind {
		case batch.UpdateStarted:
			fmt.Fprintf(w, "Classifying %d image(s)...\n", len(u.Run.Items))
		case batch.UpdateItemResolved:
			fmt.Fprintf(w, "[%d/%d] %s: %s\n",
				u.Run.Progress.Resolved, u.Run.Progress.Total, itemName(*u.Item), u.Item.Outcome)
		case batch.UpdateSummaryPending:
			fmt.Fprintln(w, "Summarizing...")
		}
	}
}

// itemEventPublisher publishes an event for each resolved item.
func itemEventPublisher(ctx context.Context, p EventPublisher, logger logging.Logger) batch.Observer {
	return func(u batch.Update) {
		if u.Kind != batch.UpdateItemResolved || u.Item == nil {
			return
		}
		if err := p.PublishItemResolved(ctx, itemResolvedEvent(u)); err != nil {
			logger.Warn("Failed to publish item event", logging.Err(err), logging.F("item_id", u.Item.ID))
		}
	}
}

func itemResolvedEvent(u batch.Update) events.ItemResolvedEvent {
	out := u.Item.Outcome
	return events.ItemResolvedEvent{
		BatchID:       u.Run.ID,
		ItemID:        u.Item.ID,
		Name:          u.Item.Name,
		Outcome:       out.Kind.String(),
		Label:         out.Label,
		Confidence:    out.Confidence,
		Reason:        out.Reason,
		Code:          string(out.Code),
		ResolvedCount: u.Run.Progress.Resolved,
		TotalCount:    u.Run.Progress.Total,
	}
}

func batchCompletedEvent(run batch.Run) events.BatchCompletedEvent {
	counts := run.Counts()
	return events.BatchCompletedEvent{
		BatchID:         run.ID,
		TotalCount:      counts.Total,
		SucceededCount:  counts.Succeeded,
		NotProduceCount: counts.NotProduce,
		FailedCount:     counts.Failed,
		QualifyingCount: len(run.Qualifying()),
		SummaryState:    run.Summary.State.String(),
		Summary:         run.Summary.Text,
		SummaryReason:   run.Summary.Reason,
		StartedAt:       run.StartedAt,
		CompletedAt:     run.CompletedAt,
	}
}

func itemName(it batch.Item) string {
	if it.Name != "" {
		return it.Name
	}
	return it.ID
}

// printRunText renders a finished run for humans.
func printRunText(w io.Writer, run batch.Run) error {
	counts := run.Counts()
	fmt.Fprintf(w, "\nResults (%d succeeded, %d not produce, %d failed):\n\n",
		counts.Succeeded, counts.NotProduce, counts.Failed)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  IMAGE\tRESULT\tCONFIDENCE")
	for _, it := range run.Items {
		result, confidence := it.Outcome.Label, "-"
		switch it.Outcome.Kind {
		case produce.KindSuccess:
			if it.Outcome.Confidence != nil {
				confidence = fmt.Sprintf("%.0f%%", *it.Outcome.Confidence*100)
			}
		case produce.KindFailure:
			result = "error: " + it.Outcome.Reason
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", itemName(it), result, confidence)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	switch run.Summary.State {
	case batch.SummaryReady:
		fmt.Fprintf(w, "Summary:\n  %s\n\n", run.Summary.Text)
	case batch.SummaryFailed:
		fmt.Fprintf(w, "Summary failed: %s\n\n", run.Summary.Reason)
	case batch.SummaryUnavailable:
		fmt.Fprintf(w, "Summary unavailable: %s\n\n", run.Summary.Reason)
	}

	if notice := run.Notice(); notice != "" {
		fmt.Fprintf(w, "%s.\n", strings.ToUpper(notice[:1])+notice[1:])
	}
	return nil
}
