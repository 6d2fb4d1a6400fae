package llm

import (
	"fmt"
	"time"
)

// Config holds all LLM provider configuration.
type Config struct {
	// Provider selects which LLM provider to use.
	// Values: "openai", "anthropic", "gemini", "openrouter", "mock"
	Provider string `mapstructure:"provider" validate:"required,oneof=openai anthropic gemini openrouter mock"`

	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Anthropic  AnthropicConfig  `mapstructure:"anthropic"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	OpenRouter OpenRouterConfig `mapstructure:"openrouter"`

	// Timeout bounds a whole generate run, repair call included.
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model" validate:"openai_model"`
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// OpenRouterConfig holds OpenRouter-specific configuration.
type OpenRouterConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider: "openai",
		OpenAI: OpenAIConfig{
			Model: DefaultOpenAIModel,
		},
		Anthropic: AnthropicConfig{
			Model: "claude-haiku",
		},
		Gemini: GeminiConfig{
			Model: "gemini-flash",
		},
		OpenRouter: OpenRouterConfig{
			Model: "openai/gpt-4o-mini",
		},
		Timeout: 2 * time.Minute,
	}
}

// Validate checks that the selected provider has its required API key set.
func (c Config) Validate() error {
	switch c.Provider {
	case "openai":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("llm.openai.api_key (or OPENAI_API_KEY) is required for the openai provider")
		}
		if !IsAllowedOpenAIModel(c.OpenAI.Model) {
			return fmt.Errorf("openai model %q is not in the allow-list", c.OpenAI.Model)
		}
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("llm.anthropic.api_key (or ANTHROPIC_API_KEY) is required for the anthropic provider")
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("llm.gemini.api_key (or GEMINI_API_KEY) is required for the gemini provider")
		}
	case "openrouter":
		if c.OpenRouter.APIKey == "" {
			return fmt.Errorf("llm.openrouter.api_key (or OPENROUTER_API_KEY) is required for the openrouter provider")
		}
	case "mock":
		// No API key needed.
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	return nil
}
