package batch

import (
	"time"

	"github.com/otherjamesbrown/agriclassify/pkg/produce"
	"github.com/otherjamesbrown/agriclassify/pkg/recognition"
	"github.com/otherjamesbrown/agriclassify/pkg/summary"
)

// ReasonInsufficient is recorded when exactly one item of a multi-item
// batch qualified for summarization.
const ReasonInsufficient = "insufficient successful classifications"

// Completion notices.
const (
	NoticeAllFailed = "all classifications failed"
	NoticeComplete  = "classification complete"
)

// ItemState is the lifecycle state of one batch item.
type ItemState int

const (
	StatePending ItemState = iota
	StateInFlight
	StateResolved
)

func (s ItemState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateInFlight:
		return "in_flight"
	case StateResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s ItemState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Item is one submitted image and its current state. Outcome is meaningful
// only once State is StateResolved.
type Item struct {
	ID      string          `json:"id" yaml:"id"`
	Name    string          `json:"name,omitempty" yaml:"name,omitempty"`
	State   ItemState       `json:"state" yaml:"state"`
	Outcome produce.Outcome `json:"outcome" yaml:"outcome"`

	image produce.Image
}

// Image returns the submitted image.
func (it Item) Image() produce.Image {
	return it.image
}

// SummaryState describes what happened to summarization for a run.
type SummaryState int

const (
	// SummaryNone means summarization was not applicable.
	SummaryNone SummaryState = iota
	SummaryPending
	SummaryReady
	SummaryFailed
	// SummaryUnavailable is a policy outcome, not a remote failure.
	SummaryUnavailable
)

func (s SummaryState) String() string {
	switch s {
	case SummaryNone:
		return "none"
	case SummaryPending:
		return "pending"
	case SummaryReady:
		return "ready"
	case SummaryFailed:
		return "failed"
	case SummaryUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s SummaryState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Summary is the summarization state of a run. Text is set when Ready,
// Reason when Failed or Unavailable.
type Summary struct {
	State  SummaryState `json:"state" yaml:"state"`
	Text   string       `json:"text,omitempty" yaml:"text,omitempty"`
	Reason string       `json:"reason,omitempty" yaml:"reason,omitempty"`
	Code   string       `json:"code,omitempty" yaml:"code,omitempty"`
}

func summaryFromResult(res summary.Result) Summary {
	if res.OK() {
		return Summary{State: SummaryReady, Text: res.Summary}
	}
	return Summary{State: SummaryFailed, Reason: res.Failure, Code: string(res.Code)}
}

// Run is a point-in-time view of one batch submission.
type Run struct {
	ID          string           `json:"id" yaml:"id"`
	Items       []Item           `json:"items" yaml:"items"`
	Summary     Summary          `json:"summary" yaml:"summary"`
	AnyInFlight bool             `json:"any_in_flight" yaml:"any_in_flight"`
	Progress    ProgressSnapshot `json:"progress" yaml:"progress"`
	StartedAt   time.Time        `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	CompletedAt time.Time        `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// Counts tallies items by state and outcome.
type Counts struct {
	Total      int
	Pending    int
	InFlight   int
	Succeeded  int
	NotProduce int
	Failed     int
}

// Counts tallies the run's items.
func (r Run) Counts() Counts {
	c := Counts{Total: len(r.Items)}
	for _, it := range r.Items {
		switch it.State {
		case StatePending:
			c.Pending++
		case StateInFlight:
			c.InFlight++
		case StateResolved:
			switch it.Outcome.Kind {
			case produce.KindSuccess:
				c.Succeeded++
			case produce.KindNotProduce:
				c.NotProduce++
			default:
				c.Failed++
			}
		}
	}
	return c
}

// Qualifying returns the summary input in submission order.
func (r Run) Qualifying() []recognition.ScoredLabel {
	var out []recognition.ScoredLabel
	for _, it := range r.Items {
		if it.State != StateResolved || !it.Outcome.Qualifies() {
			continue
		}
		out = append(out, recognition.ScoredLabel{Label: it.Outcome.Label, Confidence: *it.Outcome.Confidence})
	}
	return out
}

// Done reports whether every item has resolved and summarization settled.
func (r Run) Done() bool {
	if len(r.Items) == 0 || r.Summary.State == SummaryPending {
		return false
	}
	for _, it := range r.Items {
		if it.State != StateResolved {
			return false
		}
	}
	return true
}

// AllFailed reports whether the run finished with every item failed.
func (r Run) AllFailed() bool {
	if !r.Done() {
		return false
	}
	return r.Counts().Failed == len(r.Items)
}

// Notice returns the completion notice, or "" while the run is unfinished.
func (r Run) Notice() string {
	switch {
	case !r.Done():
		return ""
	case r.AllFailed():
		return NoticeAllFailed
	default:
		return NoticeComplete
	}
}

// Item returns the item with the given ID.
func (r Run) Item(id string) (Item, bool) {
	for _, it := range r.Items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}
