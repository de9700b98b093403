// Package recognition defines the wire contract of the two remote
// collaborators (produce recognition and result summarization) and an
// OpenAI-compatible implementation of both.
package recognition

import "context"

// ImagePayload is an encoded image with its media type.
type ImagePayload struct {
	MediaType string `json:"mediaType"`
	Data      []byte `json:"data"`
}

// ExampleGroup is one custom label with its example images, in order.
type ExampleGroup struct {
	Label  string         `json:"label"`
	Images []ImagePayload `json:"images"`
}

// ClassifyRequest asks the recognizer to classify one image, optionally
// biased by example groups.
type ClassifyRequest struct {
	Image    ImagePayload   `json:"image"`
	Examples []ExampleGroup `json:"examples,omitempty"`
}

// ClassifyResponse is the recognizer's answer. Confidence is present only
// when IsProduce is true and a definite label was assigned.
type ClassifyResponse struct {
	IsProduce  bool     `json:"isProduce"`
	Label      string   `json:"classification"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// ScoredLabel is one qualifying classification handed to the summarizer.
type ScoredLabel struct {
	Label      string  `json:"productName"`
	Confidence float64 `json:"confidenceScore"`
}

// SummarizeRequest carries the qualifying results in submission order.
type SummarizeRequest struct {
	Results []ScoredLabel `json:"classificationResults"`
}

// SummarizeResponse is the summarizer's free-text answer.
type SummarizeResponse struct {
	Summary string `json:"summary"`
}

// Recognizer classifies a single image.
// A nil response with a nil error means the model produced nothing usable.
type Recognizer interface {
	Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResponse, error)
}

// Summarizer turns a list of scored labels into prose.
type Summarizer interface {
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error)
}
