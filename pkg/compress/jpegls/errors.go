package jpegls

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package wraps exactly one of
// these, test with errors.Is.
var (
	// ErrValidation reports bad caller supplied parameters.
	ErrValidation = errors.New("jpegls: invalid parameter")
	// ErrFormat reports a malformed or truncated stream.
	ErrFormat = errors.New("jpegls: malformed stream")
	// ErrRange reports a value outside its defined bounds inside the coder.
	ErrRange = errors.New("jpegls: value out of range")
	// ErrMissingEOI is recorded as a warning when DecodeOptions.AllowMissingEOI is set.
	ErrMissingEOI = fmt.Errorf("%w: missing EOI marker", ErrFormat)
)

func validationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

func formatErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrFormat}, args...)...)
}

func rangeErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrRange}, args...)...)
}
