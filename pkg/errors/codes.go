package errors

// ErrorCodeInfo contains metadata about an error code.
type ErrorCodeInfo struct {
	Code            ErrorCode
	Retryable       bool
	Description     string
	SuggestedAction string
}

// ErrorCodeRegistry maps error codes to their metadata.
var ErrorCodeRegistry = map[ErrorCode]ErrorCodeInfo{
	ErrTimeout: {
		Code:            ErrTimeout,
		Retryable:       true,
		Description:     "Recognition service did not answer within the request timeout",
		SuggestedAction: "Raise the timeout: agri classify --timeout 2m, or set recognition.timeout in config",
	},
	ErrContextCancelled: {
		Code:            ErrContextCancelled,
		Retryable:       false,
		Description:     "Request cancelled before the service answered",
		SuggestedAction: "Check if cancellation was intentional (Ctrl-C or parent deadline)",
	},
	ErrRateLimit: {
		Code:            ErrRateLimit,
		Retryable:       true,
		Description:     "Recognition service rate limit or quota exceeded",
		SuggestedAction: "Lower the concurrency cap: agri classify --concurrency 2, or check quota with the provider",
	},
	ErrServiceUnavailable: {
		Code:            ErrServiceUnavailable,
		Retryable:       true,
		Description:     "Recognition service unreachable or unavailable",
		SuggestedAction: "Verify recognition.base_url: agri config show",
	},
	ErrUnauthenticated: {
		Code:            ErrUnauthenticated,
		Retryable:       false,
		Description:     "Recognition service rejected the API key",
		SuggestedAction: "Store a valid key: agri auth set-key",
	},
	ErrParseError: {
		Code:            ErrParseError,
		Retryable:       false,
		Description:     "Service answer could not be parsed",
		SuggestedAction: "Run with --debug to log the raw answer, or try another model",
	},
	ErrEmptyResult: {
		Code:            ErrEmptyResult,
		Retryable:       true,
		Description:     "Service produced no usable result",
		SuggestedAction: "Try again with a clearer image or another model",
	},
	ErrInvalidInput: {
		Code:            ErrInvalidInput,
		Retryable:       false,
		Description:     "Input rejected before contacting the service",
		SuggestedAction: "Use a JPEG, PNG, WebP or GIF image",
	},
	ErrInternalPanic: {
		Code:            ErrInternalPanic,
		Retryable:       false,
		Description:     "Unexpected internal failure while handling the call",
		SuggestedAction: "Run with --debug and report the logged stack",
	},
	ErrRemoteFailure: {
		Code:            ErrRemoteFailure,
		Retryable:       false,
		Description:     "Unclassified remote failure",
		SuggestedAction: "Run with --debug for details",
	},
}

// IsRetryable returns true if the given error code represents a transient error.
func IsRetryable(code ErrorCode) bool {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.Retryable
	}
	return false
}

// GetSuggestedAction returns the suggested action for the given error code.
func GetSuggestedAction(code ErrorCode) string {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.SuggestedAction
	}
	return "Run with --debug for more details"
}

// GetDescription returns the human-readable description for the given error code.
func GetDescription(code ErrorCode) string {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.Description
	}
	return "Unknown error"
}
