package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents a classified failure of a remote collaborator call.
type ErrorCode string

const (
	ErrTimeout            ErrorCode = "timeout"
	ErrContextCancelled   ErrorCode = "context_cancelled"
	ErrRateLimit          ErrorCode = "rate_limit"
	ErrServiceUnavailable ErrorCode = "service_unavailable"
	ErrUnauthenticated    ErrorCode = "unauthenticated"
	ErrParseError         ErrorCode = "parse_error"
	ErrEmptyResult        ErrorCode = "empty_result"
	ErrInvalidInput       ErrorCode = "invalid_input"
	ErrInternalPanic      ErrorCode = "internal_panic"
	ErrRemoteFailure      ErrorCode = "remote_failure"
)

// RemoteError is a structured error for recognition and summarization failures.
type RemoteError struct {
	Code      ErrorCode
	Operation string
	Message   string
	Duration  time.Duration
	Cause     error
}

func (e *RemoteError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Operation, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.Cause
}

// NewRemoteError builds a RemoteError with an explicit code.
func NewRemoteError(code ErrorCode, operation, message string) *RemoteError {
	return &RemoteError{Code: code, Operation: operation, Message: message}
}

// ClassifyRemoteError inspects an error and returns a *RemoteError with the appropriate code.
// Errors that are already a *RemoteError keep their code. Anything that doesn't match a
// known pattern is reported as ErrRemoteFailure.
func ClassifyRemoteError(err error, operation string) *RemoteError {
	if err == nil {
		return nil
	}

	var existing *RemoteError
	if errors.As(err, &existing) {
		return existing
	}

	re := &RemoteError{
		Operation: operation,
		Cause:     err,
	}

	if errors.Is(err, context.DeadlineExceeded) {
		re.Code = ErrTimeout
		re.Message = "operation timed out"
		return re
	}

	if errors.Is(err, context.Canceled) {
		re.Code = ErrContextCancelled
		re.Message = "operation cancelled"
		return re
	}

	if errors.Is(err, ErrValidation) {
		re.Code = ErrInvalidInput
		re.Message = err.Error()
		return re
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	re.Message = msg

	// Network patterns come first: their messages carry host:port digits
	// that could otherwise look like status codes.
	switch {
	case containsAny(lower, "timeout", "timed out", "deadline exceeded"):
		re.Code = ErrTimeout
	case containsAny(lower, "connection refused", "no such host", "connection reset", "unexpected eof"):
		re.Code = ErrServiceUnavailable
	case containsAny(lower, "rate limit", "429", "too many requests", "quota exceeded", "resource_exhausted"):
		re.Code = ErrRateLimit
	case containsAny(lower, "401", "403", "unauthorized", "invalid api key", "incorrect api key", "permission denied"):
		re.Code = ErrUnauthenticated
	case containsAny(lower, "unavailable", "502", "503", "504"):
		re.Code = ErrServiceUnavailable
	case containsAny(lower, "invalid character", "unexpected end of json", "cannot unmarshal", "unmarshal", "malformed"):
		re.Code = ErrParseError
	case containsAny(lower, "empty response", "no choices", "empty result", "no content"):
		re.Code = ErrEmptyResult
	default:
		re.Code = ErrRemoteFailure
	}
	return re
}

// CodeForStatus maps an HTTP status returned by a remote service to a code.
func CodeForStatus(status int) ErrorCode {
	switch {
	case status == 408 || status == 504:
		return ErrTimeout
	case status == 429:
		return ErrRateLimit
	case status == 401 || status == 403:
		return ErrUnauthenticated
	case status == 400 || status == 413 || status == 415 || status == 422:
		return ErrInvalidInput
	case status >= 500:
		return ErrServiceUnavailable
	default:
		return ErrRemoteFailure
	}
}

func containsAny(s string, patterns ...string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// CodeOf returns the classified code of err, or "" when err is nil.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return ClassifyRemoteError(err, "").Code
}

// IsTimeout returns true if the error is a timeout error.
func IsTimeout(err error) bool {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Code == ErrTimeout
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// IsErrorRetryable returns true if the error is likely transient.
// Runs never retry on their own; this only drives the suggested action shown to the user.
func IsErrorRetryable(err error) bool {
	var re *RemoteError
	if errors.As(err, &re) {
		return IsRetryable(re.Code)
	}
	return false
}
