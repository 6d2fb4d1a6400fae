package llm

import (
	"context"
	"errors"
	"fmt"
	"slices"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-3.5-turbo-1106"

// openaiModels is the allow-list of chat-completion models an operator may
// select for the openai provider.
var openaiModels = []string{
	"gpt-4",
	"gpt-4-1106-preview",
	"gpt-4-0613",
	"gpt-4-0314",
	"gpt-3.5-turbo",
	"gpt-3.5-turbo-16k",
	"gpt-3.5-turbo-1106",
	"gpt-3.5-turbo-0613",
	"gpt-3.5-turbo-16k-0613",
	"gpt-4o",
	"gpt-4o-mini",
	"gpt-4.1",
	"gpt-4.1-mini",
}

// OpenAIModels returns a copy of the model allow-list.
func OpenAIModels() []string {
	return slices.Clone(openaiModels)
}

// IsAllowedOpenAIModel reports whether model is in the allow-list.
func IsAllowedOpenAIModel(model string) bool {
	return slices.Contains(openaiModels, model)
}

// OpenAIProvider implements Provider using the OpenAI SDK.
// It also supports OpenRouter and other OpenAI-compatible APIs via BaseURL.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	name   string
}

// NewOpenAIProvider creates a new OpenAI provider. The model must be in
// the allow-list; an empty model selects DefaultOpenAIModel.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if !IsAllowedOpenAIModel(cfg.Model) {
		return nil, fmt.Errorf("openai model %q is not in the allow-list", cfg.Model)
	}
	return newOpenAIProvider("openai", cfg)
}

// newOpenAIProvider builds the provider without consulting the allow-list.
// OpenAI-compatible gateways use their own model naming.
func newOpenAIProvider(name string, cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required", name)
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
		name:   name,
	}, nil
}

func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:               p.model,
		Messages:            buildOpenAIMessages(req.Messages),
		MaxCompletionTokens: req.MaxTokens,
		Temperature:         float32(req.Temperature),
		TopP:                float32(req.TopP),
		FrequencyPenalty:    float32(req.FrequencyPenalty),
		PresencePenalty:     float32(req.PresencePenalty),
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, mapOpenAIError(p.name, err)
	}

	if len(resp.Choices) == 0 {
		return nil, &ErrAPI{Provider: p.name, Message: "no choices in response"}
	}

	return &Response{
		Text: resp.Choices[0].Message.Content,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
		Model:      resp.Model,
		StopReason: mapOpenAIStopReason(resp.Choices[0].FinishReason),
	}, nil
}

func (p *OpenAIProvider) ModelID() string {
	return p.model
}

func buildOpenAIMessages(msgs []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case RoleSystem:
			role = openai.ChatMessageRoleSystem
		case RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		})
	}
	return out
}

func mapOpenAIStopReason(reason openai.FinishReason) string {
	if reason == openai.FinishReasonLength {
		return "max_tokens"
	}
	return "end"
}

func mapOpenAIError(provider string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ErrAPI{
			Provider:   provider,
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
			Err:        err,
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &ErrAPI{
			Provider:   provider,
			StatusCode: reqErr.HTTPStatusCode,
			Message:    reqErr.Error(),
			Err:        err,
		}
	}
	return &ErrAPI{Provider: provider, Message: err.Error(), Err: err}
}
