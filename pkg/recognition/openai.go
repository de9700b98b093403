package recognition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	agrierr "github.com/otherjamesbrown/agriclassify/pkg/errors"
	"github.com/otherjamesbrown/agriclassify/pkg/logging"
	"github.com/otherjamesbrown/agriclassify/pkg/produce"
)

// OpenAIConfig configures the OpenAI-compatible recognition service.
type OpenAIConfig struct {
	APIKey string
	// BaseURL overrides the API endpoint (OpenRouter, a local vLLM, a test server).
	BaseURL string
	// Model is the vision model used for classification.
	Model string
	// SummaryModel is used for summarization; defaults to Model.
	SummaryModel string
	// Timeout bounds each HTTP request. Zero leaves it to the caller's context.
	Timeout time.Duration
	// HTTPClient is optional.
	HTTPClient *http.Client
}

// OpenAIService implements Recognizer and Summarizer over the chat
// completions API with JSON-schema structured output.
type OpenAIService struct {
	client       openai.Client
	model        string
	summaryModel string
	logger       logging.Logger
}

var (
	_ Recognizer = (*OpenAIService)(nil)
	_ Summarizer = (*OpenAIService)(nil)
)

// NewOpenAIService creates the service. Requests are sent once; the SDK's
// built-in retries are disabled.
func NewOpenAIService(cfg OpenAIConfig, logger logging.Logger) (*OpenAIService, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("recognition model is required: %w", agrierr.ErrValidation)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.With(logging.F("component", "openai_recognition"))

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	opts = append(opts, option.WithMiddleware(requestLogMiddleware(logger)))

	summaryModel := cfg.SummaryModel
	if summaryModel == "" {
		summaryModel = cfg.Model
	}

	return &OpenAIService{
		client:       openai.NewClient(opts...),
		model:        cfg.Model,
		summaryModel: summaryModel,
		logger:       logger,
	}, nil
}

func requestLogMiddleware(logger logging.Logger) option.Middleware {
	return func(req *http.Request, next option.MiddlewareNext) (*http.Response, error) {
		start := time.Now()
		resp, err := next(req)
		fields := []logging.Field{
			logging.F("method", req.Method),
			logging.F("path", req.URL.Path),
			logging.F("duration", time.Since(start)),
		}
		if err != nil {
			logger.Debug("recognition request failed", append(fields, logging.Err(err))...)
			return nil, err
		}
		logger.Debug("recognition request completed", append(fields, logging.F("status", resp.StatusCode))...)
		return resp, nil
	}
}

// Classify sends the image (and example groups, when present) to the vision
// model. An empty or unparseable answer yields (nil, nil).
func (s *OpenAIService) Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResponse, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(classifySystemPrompt),
		classifyUserMessage(req),
	}

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(s.model),
		Messages: messages,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "produce_classification",
					Schema: classifySchema,
					Strict: openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		return nil, wrapAPIError(err, "classify")
	}

	content := firstContent(resp)
	if content == "" {
		s.logger.Debug("classify returned no content")
		return nil, nil
	}

	var out ClassifyResponse
	if err := json.Unmarshal([]byte(extractJSON(content)), &out); err != nil {
		s.logger.Debug("classify returned unparseable content",
			logging.F("content", truncate(content, 200)), logging.Err(err))
		return nil, nil
	}
	return &out, nil
}

// classifyUserMessage builds the multimodal user turn: example groups first
// (labels and images in order), then the main image last.
func classifyUserMessage(req ClassifyRequest) openai.ChatCompletionMessageParamUnion {
	var parts []openai.ChatCompletionContentPartUnionParam

	if len(req.Examples) > 0 {
		parts = append(parts, textPart(examplesInstruction))
		for _, group := range req.Examples {
			parts = append(parts, textPart(fmt.Sprintf("Custom type %q examples:", group.Label)))
			for _, img := range group.Images {
				parts = append(parts, imagePart(img))
			}
		}
	}

	parts = append(parts, textPart("Main image to classify:"), imagePart(req.Image))

	return openai.ChatCompletionMessageParamUnion{
		OfUser: &openai.ChatCompletionUserMessageParam{
			Content: openai.ChatCompletionUserMessageParamContentUnion{
				OfArrayOfContentParts: parts,
			},
		},
	}
}

func textPart(text string) openai.ChatCompletionContentPartUnionParam {
	return openai.ChatCompletionContentPartUnionParam{
		OfText: &openai.ChatCompletionContentPartTextParam{Text: text},
	}
}

func imagePart(img ImagePayload) openai.ChatCompletionContentPartUnionParam {
	uri := produce.Image{MediaType: img.MediaType, Data: img.Data}.DataURI()
	return openai.ChatCompletionContentPartUnionParam{
		OfImageURL: &openai.ChatCompletionContentPartImageParam{
			ImageURL: openai.ChatCompletionContentPartImageImageURLParam{
				URL:    uri,
				Detail: "auto",
			},
		},
	}
}

// Summarize asks the summary model for prose over the scored labels.
func (s *OpenAIService) Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error) {
	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.summaryModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(summarizeSystemPrompt),
			openai.UserMessage(summarizeUserPrompt(req.Results)),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "classification_summary",
					Schema: summarizeSchema,
					Strict: openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		return nil, wrapAPIError(err, "summarize")
	}

	content := firstContent(resp)
	if content == "" {
		return &SummarizeResponse{}, nil
	}

	var out SummarizeResponse
	if err := json.Unmarshal([]byte(extractJSON(content)), &out); err != nil {
		return nil, &agrierr.RemoteError{
			Code:      agrierr.ErrParseError,
			Operation: "summarize",
			Message:   "unparseable summary: " + err.Error(),
			Cause:     err,
		}
	}
	return &out, nil
}

// wrapAPIError classifies HTTP status errors by status code. Transport and
// context errors are left for pattern classification downstream.
func wrapAPIError(err error, operation string) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &agrierr.RemoteError{
			Code:      agrierr.CodeForStatus(apiErr.StatusCode),
			Operation: operation,
			Message:   fmt.Sprintf("HTTP %d: %s", apiErr.StatusCode, http.StatusText(apiErr.StatusCode)),
			Cause:     err,
		}
	}
	return fmt.Errorf("%s request: %w", operation, err)
}

func firstContent(resp *openai.ChatCompletion) string {
	if resp == nil || len(resp.Choices) == 0 {
		return ""
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
