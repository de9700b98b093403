package produce

import (
	"fmt"
	"math"

	agrierr "github.com/otherjamesbrown/agriclassify/pkg/errors"
)

// NotProduceLabel is the fixed marker the recognition service uses for images
// that do not show agricultural produce.
const NotProduceLabel = "Không phải nông sản"

// ReasonUnparseable is the failure reason for empty or unusable service answers.
const ReasonUnparseable = "unparseable classification result"

// OutcomeKind identifies which variant an Outcome holds.
type OutcomeKind int

const (
	// KindUnknown is the zero value; a resolved item never carries it.
	KindUnknown OutcomeKind = iota
	// KindSuccess means the image shows produce with a definite label.
	KindSuccess
	// KindNotProduce means the image does not show produce.
	KindNotProduce
	// KindFailure means the call errored, timed out or returned unusable data.
	KindFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindNotProduce:
		return "not_produce"
	case KindFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind by name in JSON and YAML output.
func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Outcome is the terminal classification result of one image. Exactly one
// variant holds, selected by Kind.
type Outcome struct {
	Kind OutcomeKind `json:"kind" yaml:"kind"`

	// Label is the produce name (Success) or the descriptive not-produce label.
	Label string `json:"label,omitempty" yaml:"label,omitempty"`

	// Confidence is present only on Success and always lies in [0, 1].
	Confidence *float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`

	// Reason explains a Failure.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`

	// Code classifies a Failure.
	Code agrierr.ErrorCode `json:"code,omitempty" yaml:"code,omitempty"`
}

// Success builds a Success outcome. A confidence outside [0, 1] (or NaN) is
// dropped, leaving a Success that does not qualify for summarization.
func Success(label string, confidence *float64) Outcome {
	o := Outcome{Kind: KindSuccess, Label: label}
	if ValidConfidence(confidence) {
		c := *confidence
		o.Confidence = &c
	}
	return o
}

// NotProduce builds a NotProduce outcome, falling back to NotProduceLabel.
func NotProduce(label string) Outcome {
	if label == "" {
		label = NotProduceLabel
	}
	return Outcome{Kind: KindNotProduce, Label: label}
}

// Failure builds a Failure outcome.
func Failure(code agrierr.ErrorCode, reason string) Outcome {
	return Outcome{Kind: KindFailure, Reason: reason, Code: code}
}

// FailureFromError builds a Failure outcome from any error.
func FailureFromError(err error, operation string) Outcome {
	re := agrierr.ClassifyRemoteError(err, operation)
	if re == nil {
		return Failure(agrierr.ErrRemoteFailure, "unknown error")
	}
	return Failure(re.Code, err.Error())
}

// ValidConfidence reports whether c is present and lies in [0, 1].
func ValidConfidence(c *float64) bool {
	return c != nil && !math.IsNaN(*c) && *c >= 0 && *c <= 1
}

// Qualifies reports whether the outcome is eligible as summary input: a
// Success with both a label and a confidence whose label is not the
// not-produce marker.
func (o Outcome) Qualifies() bool {
	return o.Kind == KindSuccess &&
		o.Label != "" &&
		o.Label != NotProduceLabel &&
		o.Confidence != nil
}

// IsTerminal reports whether the outcome holds a resolved variant.
func (o Outcome) IsTerminal() bool {
	return o.Kind != KindUnknown
}

// String renders the outcome for human-readable output.
func (o Outcome) String() string {
	switch o.Kind {
	case KindSuccess:
		if o.Confidence != nil {
			return fmt.Sprintf("%s (%.0f%%)", o.Label, *o.Confidence*100)
		}
		return o.Label
	case KindNotProduce:
		return o.Label
	case KindFailure:
		return "error: " + o.Reason
	default:
		return "unknown"
	}
}
