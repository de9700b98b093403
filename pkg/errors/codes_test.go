package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCodeRegistry_Completeness(t *testing.T) {
	// All error codes should be registered
	allCodes := []ErrorCode{
		ErrTimeout,
		ErrContextCancelled,
		ErrRateLimit,
		ErrServiceUnavailable,
		ErrUnauthenticated,
		ErrParseError,
		ErrEmptyResult,
		ErrInvalidInput,
		ErrInternalPanic,
		ErrRemoteFailure,
	}

	assert.Len(t, ErrorCodeRegistry, len(allCodes))

	for _, code := range allCodes {
		t.Run(string(code), func(t *testing.T) {
			info, ok := ErrorCodeRegistry[code]
			assert.True(t, ok, "ErrorCode %s should be in registry", code)
			assert.Equal(t, code, info.Code, "Registry entry should have matching code")
			assert.NotEmpty(t, info.Description, "Description should not be empty")
			assert.NotEmpty(t, info.SuggestedAction, "SuggestedAction should not be empty")
		})
	}
}

func TestIsRetryable_ErrorCode(t *testing.T) {
	tests := []struct {
		code      ErrorCode
		retryable bool
	}{
		{ErrTimeout, true},
		{ErrRateLimit, true},
		{ErrServiceUnavailable, true},
		{ErrEmptyResult, true},
		{ErrContextCancelled, false},
		{ErrUnauthenticated, false},
		{ErrParseError, false},
		{ErrInvalidInput, false},
		{ErrInternalPanic, false},
		{ErrRemoteFailure, false},
		{ErrorCode("unknown_code"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.retryable, IsRetryable(tt.code))
		})
	}
}

func TestGetSuggestedAction(t *testing.T) {
	assert.Contains(t, GetSuggestedAction(ErrUnauthenticated), "agri auth set-key")
	assert.Equal(t, "Run with --debug for more details", GetSuggestedAction(ErrorCode("nope")))
}

func TestGetDescription(t *testing.T) {
	assert.Equal(t, "Recognition service rejected the API key", GetDescription(ErrUnauthenticated))
	assert.Equal(t, "Unknown error", GetDescription(ErrorCode("nope")))
}
