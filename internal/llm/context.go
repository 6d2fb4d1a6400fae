package llm

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	purposeKey   contextKey = "llm_purpose"
	requestIDKey contextKey = "llm_request_id"
)

// WithPurpose attaches a purpose label to the context for event logging.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// PurposeFrom extracts the purpose label from the context.
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok {
		return v
	}
	return "unknown"
}

// WithRequestID tags the context with a fresh request ID unless one is
// already present. All LLM calls made for one generate run share it.
func WithRequestID(ctx context.Context) context.Context {
	if RequestIDFrom(ctx) != "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, uuid.NewString())
}

// RequestIDFrom returns the request ID, or "" if none was attached.
func RequestIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}
