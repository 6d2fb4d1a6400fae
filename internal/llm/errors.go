package llm

import (
	"fmt"
	"net/http"
)

// ErrAPI indicates the upstream call failed or returned an error payload.
// Message carries the upstream error text verbatim so it can be shown to
// the user.
type ErrAPI struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ErrAPI) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s API error: %s", e.Provider, e.Message)
}

func (e *ErrAPI) Unwrap() error { return e.Err }

// RateLimited reports whether the upstream rejected the call with 429.
func (e *ErrAPI) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// Unavailable reports whether the upstream is down or unreachable.
func (e *ErrAPI) Unavailable() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500
}
