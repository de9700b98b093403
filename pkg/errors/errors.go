// Package errors provides common domain error types for agriclassify.
//
// This package defines sentinel errors for caller-correctable input problems
// (duplicate labels, empty batches, unsupported image formats) that can be
// checked with errors.Is() anywhere in the module. Every input error wraps
// ErrValidation so callers can treat the whole family uniformly.
//
// Usage:
//
//	import agrierr "github.com/otherjamesbrown/agriclassify/pkg/errors"
//
//	// Return a domain error
//	return fmt.Errorf("label %q: %w", label, agrierr.ErrDuplicateLabel)
//
//	// Check for domain errors
//	if agrierr.IsValidation(err) {
//	    // report back to the caller, do not retry
//	}
package errors

import (
	"errors"
	"fmt"
)

// Domain errors - common sentinel errors for domain conditions.
var (
	// ErrValidation indicates invalid input or validation failure.
	ErrValidation = errors.New("validation error")

	// ErrInvalidState indicates the operation is not valid for the current state.
	ErrInvalidState = errors.New("invalid state")

	// ErrNotFound indicates the requested resource was not found.
	ErrNotFound = errors.New("not found")
)

// Input errors. All of them wrap ErrValidation.
var (
	// ErrInvalidImageFormat indicates the payload is not a recognized image media type.
	ErrInvalidImageFormat = fmt.Errorf("%w: invalid image format", ErrValidation)

	// ErrDuplicateLabel indicates an example label already exists (case-insensitive).
	ErrDuplicateLabel = fmt.Errorf("%w: duplicate label", ErrValidation)

	// ErrEmptyLabel indicates an example label is blank.
	ErrEmptyLabel = fmt.Errorf("%w: empty label", ErrValidation)

	// ErrEmptyImageSet indicates an example label was given no images.
	ErrEmptyImageSet = fmt.Errorf("%w: empty image set", ErrValidation)

	// ErrTooManyImages indicates an example label was given more images than allowed.
	ErrTooManyImages = fmt.Errorf("%w: too many images", ErrValidation)

	// ErrEmptyBatch indicates a run was requested with no submitted items.
	ErrEmptyBatch = fmt.Errorf("%w: empty batch", ErrValidation)

	// ErrDuplicateItemID indicates two images in one submission share an identifier.
	ErrDuplicateItemID = fmt.Errorf("%w: duplicate item id", ErrValidation)

	// ErrEmptyItemID indicates an image was submitted without an identifier.
	ErrEmptyItemID = fmt.Errorf("%w: empty item id", ErrValidation)

	// ErrEmptyInput indicates the summarizer was called with nothing to summarize.
	ErrEmptyInput = fmt.Errorf("%w: empty input", ErrValidation)
)

// ErrBatchRunning indicates a submission or run was attempted while a run is active.
var ErrBatchRunning = fmt.Errorf("%w: batch is running", ErrInvalidState)

// TooManyImagesError reports an example group over the per-label limit.
// Accepted is the limit and Rejected the number of images above it; nothing
// is added when it is returned.
type TooManyImagesError struct {
	Label    string
	Accepted int
	Rejected int
}

func (e *TooManyImagesError) Error() string {
	return fmt.Sprintf("label %q: %d images given, at most %d accepted (%d over limit): too many images",
		e.Label, e.Accepted+e.Rejected, e.Accepted, e.Rejected)
}

func (e *TooManyImagesError) Unwrap() error {
	return ErrTooManyImages
}

// IsValidation reports whether any error in err's chain is ErrValidation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidState reports whether any error in err's chain is ErrInvalidState.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsNotFound reports whether any error in err's chain is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidImageFormat reports whether any error in err's chain is ErrInvalidImageFormat.
func IsInvalidImageFormat(err error) bool {
	return errors.Is(err, ErrInvalidImageFormat)
}

// IsTooManyImages reports whether any error in err's chain is ErrTooManyImages.
func IsTooManyImages(err error) bool {
	return errors.Is(err, ErrTooManyImages)
}
