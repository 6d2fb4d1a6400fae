package questiongen

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest is returned for requests that fail validation.
var ErrInvalidRequest = errors.New("invalid generation request")

// FormatError is returned when neither the completion nor its repaired
// form could be parsed as questions.
type FormatError struct {
	// Raw is the last completion text, kept for diagnostics.
	Raw string
	Err error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("model output is not valid question JSON after repair: %v", e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}
