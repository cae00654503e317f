package ocr

import (
	"errors"
	"fmt"
)

// ErrConversionUnavailable means the external raster tool is not installed.
// Non-fatal: the orchestrator degrades to direct recognition.
var ErrConversionUnavailable = errors.New("pdf conversion tool unavailable")

// ConversionError means the raster tool is present but failed on this input.
// Output carries the tool's diagnostic output.
type ConversionError struct {
	Output string
	Err    error
}

func (e *ConversionError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("pdf conversion failed: %v: %s", e.Err, e.Output)
	}
	return fmt.Sprintf("pdf conversion failed: %v", e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// RecognitionError wraps an engine failure for one image. The adapter never
// retries; retry policy belongs to the caller.
type RecognitionError struct {
	Path string
	Err  error
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("recognition failed for %s: %v", e.Path, e.Err)
}

func (e *RecognitionError) Unwrap() error { return e.Err }
