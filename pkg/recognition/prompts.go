package recognition

import (
	"fmt"
	"strings"

	"github.com/otherjamesbrown/agriclassify/pkg/produce"
)

var classifySystemPrompt = `You are an expert in agricultural product recognition. Your primary task is to determine if the provided image contains an agricultural product and then classify it.

First, analyze the main image to determine if it is an agricultural product (e.g., fruit, vegetable, grain, root).
- If the image IS NOT an agricultural product (e.g., a rock, an animal, a manufactured object), set "isProduce" to false, set "classification" to "` + produce.NotProduceLabel + `", and set "confidence" to null.
- If the image IS an agricultural product, set "isProduce" to true, put the specific product in "classification" and a "confidence" score from 0.0 to 1.0.

Respond with JSON matching the output schema only.`

const examplesInstruction = `You have been provided with custom examples of specific produce types. Prioritize these examples.
If the main image clearly matches one of the custom types, use that label for "classification". Otherwise give your best general classification.`

const summarizeSystemPrompt = `You are an expert in agricultural product classification analysis.
Given the following classification results, provide a concise summary highlighting the most common products identified, any potential anomalies (e.g., unexpected products or low confidence scores), and any uncertainties in the classifications.

Respond with JSON of the form {"summary": "..."} only.`

// summarizeUserPrompt lists the results one per line in the given order.
func summarizeUserPrompt(results []ScoredLabel) string {
	var b strings.Builder
	b.WriteString("Classification Results:\n")
	for _, r := range results {
		fmt.Fprintf(&b, "- Product: %s, Confidence: %.2f\n", r.Label, r.Confidence)
	}
	return b.String()
}

var classifySchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"isProduce":      map[string]any{"type": "boolean"},
		"classification": map[string]any{"type": "string"},
		"confidence":     map[string]any{"type": []string{"number", "null"}},
	},
	"required":             []string{"isProduce", "classification", "confidence"},
	"additionalProperties": false,
}

var summarizeSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"summary": map[string]any{"type": "string"},
	},
	"required":             []string{"summary"},
	"additionalProperties": false,
}

// extractJSON strips markdown code fences some models wrap around JSON output.
func extractJSON(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
