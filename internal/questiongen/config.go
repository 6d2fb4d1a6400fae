package questiongen

// Config controls the sampling parameters sent with every completion.
type Config struct {
	// MaxTokens is the token budget for each completion. Zero leaves it to
	// the provider.
	MaxTokens int

	Temperature      float64
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
}

// DefaultConfig returns the sampling parameters tuned for question
// generation: full temperature with a narrow nucleus and a light
// repetition penalty.
func DefaultConfig() Config {
	return Config{
		Temperature:      1,
		TopP:             0.5,
		FrequencyPenalty: 0.25,
		PresencePenalty:  0,
	}
}
