package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyRemoteError_Nil(t *testing.T) {
	assert.Nil(t, ClassifyRemoteError(nil, "classify"))
}

func TestClassifyRemoteError_Context(t *testing.T) {
	result := ClassifyRemoteError(fmt.Errorf("post: %w", context.DeadlineExceeded), "classify")
	require.NotNil(t, result)
	assert.Equal(t, ErrTimeout, result.Code)
	assert.Equal(t, "classify", result.Operation)
	assert.Equal(t, "operation timed out", result.Message)
	assert.ErrorIs(t, result, context.DeadlineExceeded)

	result = ClassifyRemoteError(context.Canceled, "summarize")
	require.NotNil(t, result)
	assert.Equal(t, ErrContextCancelled, result.Code)
	assert.Equal(t, "operation cancelled", result.Message)
}

func TestClassifyRemoteError_Patterns(t *testing.T) {
	tests := []struct {
		name     string
		errorMsg string
		want     ErrorCode
	}{
		{"rate limit", "rate limit exceeded", ErrRateLimit},
		{"429 status", `POST "https://api.example/v1/chat/completions": 429 Too Many Requests`, ErrRateLimit},
		{"quota", "Quota exceeded for model", ErrRateLimit},
		{"unauthorized", "401 Unauthorized", ErrUnauthenticated},
		{"bad key", "Incorrect API key provided", ErrUnauthenticated},
		{"connection refused", "dial tcp 127.0.0.1:1: connect: connection refused", ErrServiceUnavailable},
		{"503", "503 Service Unavailable", ErrServiceUnavailable},
		{"dns", "dial tcp: lookup nowhere: no such host", ErrServiceUnavailable},
		{"client timeout", "Client.Timeout exceeded while awaiting headers", ErrTimeout},
		{"bad json", "invalid character 'x' looking for beginning of value", ErrParseError},
		{"no choices", "recognition returned no choices", ErrEmptyResult},
		{"unknown", "something odd happened", ErrRemoteFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ClassifyRemoteError(errors.New(tt.errorMsg), "classify")
			require.NotNil(t, result)
			assert.Equal(t, tt.want, result.Code)
			assert.Equal(t, tt.errorMsg, result.Message)
		})
	}
}

func TestClassifyRemoteError_Validation(t *testing.T) {
	result := ClassifyRemoteError(fmt.Errorf("media type %q: %w", "text/plain", ErrInvalidImageFormat), "classify")
	assert.Equal(t, ErrInvalidInput, result.Code)
}

func TestClassifyRemoteError_KeepsExisting(t *testing.T) {
	orig := NewRemoteError(ErrEmptyResult, "classify", "unparseable classification result")
	result := ClassifyRemoteError(fmt.Errorf("wrapped: %w", orig), "other")
	assert.Same(t, orig, result)
}

func TestRemoteError_Error(t *testing.T) {
	assert.Equal(t, "timeout: classify: operation timed out",
		(&RemoteError{Code: ErrTimeout, Operation: "classify", Message: "operation timed out"}).Error())
	assert.Equal(t, "parse_error: bad",
		(&RemoteError{Code: ErrParseError, Message: "bad"}).Error())
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
	assert.Equal(t, ErrTimeout, CodeOf(context.DeadlineExceeded))
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(ClassifyRemoteError(context.DeadlineExceeded, "classify")))
	assert.True(t, IsTimeout(context.DeadlineExceeded))
	assert.False(t, IsTimeout(ClassifyRemoteError(errors.New("429"), "classify")))
	assert.False(t, IsTimeout(nil))
}

func TestIsErrorRetryable(t *testing.T) {
	assert.True(t, IsErrorRetryable(ClassifyRemoteError(errors.New("503 Service Unavailable"), "classify")))
	assert.True(t, IsErrorRetryable(ClassifyRemoteError(errors.New("rate limit"), "classify")))
	assert.False(t, IsErrorRetryable(ClassifyRemoteError(errors.New("invalid character"), "classify")))
	assert.False(t, IsErrorRetryable(errors.New("plain")))
}

func TestCodeForStatus(t *testing.T) {
	tests := map[int]ErrorCode{
		400: ErrInvalidInput,
		401: ErrUnauthenticated,
		403: ErrUnauthenticated,
		404: ErrRemoteFailure,
		408: ErrTimeout,
		429: ErrRateLimit,
		500: ErrServiceUnavailable,
		503: ErrServiceUnavailable,
		504: ErrTimeout,
	}
	for status, want := range tests {
		assert.Equal(t, want, CodeForStatus(status), "status %d", status)
	}
}
