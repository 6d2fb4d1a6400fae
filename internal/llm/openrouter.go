package llm

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// NewOpenRouterProvider creates a provider targeting the OpenRouter API.
// OpenRouter exposes an OpenAI-compatible API, so the OpenAI SDK is reused
// and model names pass through unchecked.
func NewOpenRouterProvider(cfg OpenRouterConfig) (*OpenAIProvider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	return newOpenAIProvider("openrouter", OpenAIConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: baseURL,
	})
}
