package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/quizgen/internal/store"
)

// LoggingProvider is a decorator that records every LLM request as an event
// and emits a structured log line for it.
type LoggingProvider struct {
	inner     Provider
	name      string
	eventRepo store.EventRepo
	logger    *zap.Logger
}

// WithLogging wraps a Provider with event logging. A nil repo disables
// event persistence; a nil logger disables log output.
func WithLogging(p Provider, name string, repo store.EventRepo, logger *zap.Logger) Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingProvider{inner: p, name: name, eventRepo: repo, logger: logger}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	purpose := PurposeFrom(ctx)
	requestID := RequestIDFrom(ctx)

	resp, err := l.inner.Generate(ctx, req)

	latencyMs := time.Since(start).Milliseconds()

	data := store.LLMRequestEventData{
		RequestID:   requestID,
		Provider:    l.name,
		Model:       l.inner.ModelID(),
		Purpose:     purpose,
		LatencyMs:   latencyMs,
		Success:     err == nil,
		RequestBody: serializeRequest(req),
	}

	if resp != nil {
		data.InputTokens = resp.Usage.InputTokens
		data.OutputTokens = resp.Usage.OutputTokens
		if resp.Model != "" {
			data.Model = resp.Model
		}
		data.ResponseBody = resp.Text
	}

	fields := []zap.Field{
		zap.String("request_id", requestID),
		zap.String("provider", l.name),
		zap.String("model", data.Model),
		zap.String("purpose", purpose),
		zap.Int64("latency_ms", latencyMs),
		zap.Int("input_tokens", data.InputTokens),
		zap.Int("output_tokens", data.OutputTokens),
	}
	if err != nil {
		data.ErrorMessage = err.Error()
		l.logger.Warn("llm request failed", append(fields, zap.Error(err))...)
	} else {
		l.logger.Debug("llm request completed", fields...)
	}

	// Log the event but don't fail the request if logging fails.
	if l.eventRepo != nil {
		if logErr := l.eventRepo.AppendLLMRequest(context.WithoutCancel(ctx), data); logErr != nil {
			l.logger.Warn("failed to record llm request event", zap.Error(logErr))
		}
	}

	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

// serializeRequest builds a readable representation of the LLM request.
func serializeRequest(req Request) string {
	var b strings.Builder

	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s]\n", m.Role)
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "[params] temperature=%g top_p=%g frequency_penalty=%g presence_penalty=%g max_tokens=%d\n",
		req.Temperature, req.TopP, req.FrequencyPenalty, req.PresencePenalty, req.MaxTokens)

	return b.String()
}
