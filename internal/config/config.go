package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/abhisek/quizgen/internal/llm"
	"github.com/abhisek/quizgen/internal/logger"
	"github.com/abhisek/quizgen/internal/questiongen"
)

// EnvPrefix prefixes every environment override, e.g. QUIZGEN_LLM_PROVIDER.
const EnvPrefix = "QUIZGEN"

// Config is the complete application configuration.
type Config struct {
	LLM        llm.Config       `mapstructure:"llm"`
	Generation GenerationConfig `mapstructure:"generation"`
	Log        logger.Config    `mapstructure:"log"`
	DB         DBConfig         `mapstructure:"db"`
}

// GenerationConfig bounds requests and sets the completion token budget.
type GenerationConfig struct {
	MaxTokens          int `mapstructure:"max_tokens" validate:"gte=0"`
	questiongen.Limits `mapstructure:",squash"`
}

// DBConfig locates the SQLite database.
type DBConfig struct {
	// Path overrides the default data-directory location when set.
	Path string `mapstructure:"path"`
}

// Provider API keys fall back to the variables each vendor's own tooling
// reads.
var apiKeyFallbacks = map[string]string{
	"llm.openai.api_key":     "OPENAI_API_KEY",
	"llm.anthropic.api_key":  "ANTHROPIC_API_KEY",
	"llm.gemini.api_key":     "GEMINI_API_KEY",
	"llm.openrouter.api_key": "OPENROUTER_API_KEY",
}

// Load reads configuration from defaults, then the YAML file at path (if
// path is non-empty), then QUIZGEN_* environment variables. The result is
// validated before it is returned.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, fallback := range apiKeyFallbacks {
		envKey := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, fallback); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	llmDefaults := llm.DefaultConfig()
	v.SetDefault("llm.provider", llmDefaults.Provider)
	v.SetDefault("llm.timeout", llmDefaults.Timeout)
	v.SetDefault("llm.openai.model", llmDefaults.OpenAI.Model)
	v.SetDefault("llm.openai.base_url", "")
	v.SetDefault("llm.anthropic.model", llmDefaults.Anthropic.Model)
	v.SetDefault("llm.gemini.model", llmDefaults.Gemini.Model)
	v.SetDefault("llm.openrouter.model", llmDefaults.OpenRouter.Model)
	v.SetDefault("llm.openrouter.base_url", "")
	for key := range apiKeyFallbacks {
		v.SetDefault(key, "")
	}

	limits := questiongen.DefaultLimits()
	v.SetDefault("generation.max_tokens", questiongen.DefaultConfig().MaxTokens)
	v.SetDefault("generation.min_text_length", limits.MinTextLength)
	v.SetDefault("generation.max_text_length", limits.MaxTextLength)
	v.SetDefault("generation.max_count", limits.MaxCount)

	logDefaults := logger.DefaultConfig()
	v.SetDefault("log.level", logDefaults.Level)
	v.SetDefault("log.env", logDefaults.Env)

	v.SetDefault("db.path", "")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("openai_model", func(fl validator.FieldLevel) bool {
		return llm.IsAllowedOpenAIModel(fl.Field().String())
	})
	return v
}

// Validate checks field constraints. Provider credentials are checked when
// a provider is built, so commands that never call the LLM work without
// them.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ProcessorConfig returns the sampling configuration for questiongen.
func (c *Config) ProcessorConfig() questiongen.Config {
	pc := questiongen.DefaultConfig()
	pc.MaxTokens = c.Generation.MaxTokens
	return pc
}
