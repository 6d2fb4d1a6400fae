package questiongen

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/abhisek/quizgen/internal/llm"
)

// Purposes attached to LLM calls for event logging.
const (
	PurposeGenerate = "question-gen"
	PurposeRepair   = "json-repair"
)

// Processor generates questions from source text. It makes one completion
// call, plus one repair call when the first completion is not usable JSON.
// A Processor holds no per-request state and is safe for concurrent use.
type Processor struct {
	provider llm.Provider
	config   Config
	logger   *zap.Logger
}

// New creates a Processor. A nil logger disables logging.
func New(provider llm.Provider, cfg Config, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{provider: provider, config: cfg, logger: logger}
}

// Generate runs the generation pipeline for req.
//
// It fails with the provider's error (an *llm.ErrAPI or a context error)
// when a call fails, and with *FormatError when neither the completion nor
// its repair parses. Malformed elements are dropped, not reported as
// errors, and the result may hold more or fewer questions than requested.
func (p *Processor) Generate(ctx context.Context, req Request) (*Result, error) {
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown question type %q", ErrInvalidRequest, req.Type)
	}

	ctx = llm.WithRequestID(ctx)
	logger := p.logger.With(
		zap.String("request_id", llm.RequestIDFrom(ctx)),
		zap.String("qtype", req.Type.String()),
		zap.Int("requested", req.Count),
	)

	completion, err := p.complete(llm.WithPurpose(ctx, PurposeGenerate),
		BuildMessages(req.Type, req.Count, req.SourceText))
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}

	result := &Result{Requested: req.Count, Raw: completion}

	outcome := parseCompletion(completion)
	if !outcome.ok() {
		logger.Info("completion is not question JSON, requesting repair", zap.Error(outcome.err))

		repaired, err := p.complete(llm.WithPurpose(ctx, PurposeRepair), BuildRepairMessages(completion))
		if err != nil {
			return nil, fmt.Errorf("repair completion: %w", err)
		}

		outcome = parseCompletion(repaired)
		if !outcome.ok() {
			raw := repaired
			if strings.TrimSpace(raw) == "" {
				raw = completion
			}
			logger.Warn("repaired completion is not question JSON", zap.Error(outcome.err))
			return nil, &FormatError{Raw: raw, Err: outcome.err}
		}

		result.Repaired = true
		result.Raw = repaired
	}

	result.Questions, result.Dropped = cleanElements(req.Type, outcome.elements)

	for _, d := range result.Dropped {
		logger.Debug("dropped element", zap.Int("index", d.Index), zap.String("reason", d.Reason))
	}
	if result.CountMismatch() {
		logger.Warn("question count differs from request",
			zap.Int("generated", len(result.Questions)),
			zap.Int("dropped", len(result.Dropped)))
	}

	return result, nil
}

// complete makes a single provider call with the configured sampling
// parameters.
func (p *Processor) complete(ctx context.Context, msgs []llm.Message) (string, error) {
	resp, err := p.provider.Generate(ctx, llm.Request{
		Messages:         msgs,
		MaxTokens:        p.config.MaxTokens,
		Temperature:      p.config.Temperature,
		TopP:             p.config.TopP,
		FrequencyPenalty: p.config.FrequencyPenalty,
		PresencePenalty:  p.config.PresencePenalty,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// ParseQuestions cleans questions from JSON that was produced by Generate
// and edited by hand. It applies the same shape and element rules as the
// pipeline, without any repair.
func ParseQuestions(qtype QuestionType, data []byte) ([]Question, []Drop, error) {
	if !qtype.Valid() {
		return nil, nil, fmt.Errorf("%w: unknown question type %q", ErrInvalidRequest, qtype)
	}
	outcome := parseCompletion(string(data))
	if !outcome.ok() {
		return nil, nil, &FormatError{Raw: string(data), Err: outcome.err}
	}
	questions, drops := cleanElements(qtype, outcome.elements)
	return questions, drops, nil
}
