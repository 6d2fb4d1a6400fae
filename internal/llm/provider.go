package llm

import "context"

// Provider is the core abstraction for LLM interaction.
// Every call to Generate performs exactly one upstream request; retrying
// is left to the caller.
type Provider interface {
	// Generate sends the message sequence to the LLM and returns the raw
	// completion text.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes what to send to the LLM.
type Request struct {
	// Messages is the full prompt in order. System messages may appear
	// more than once; providers without a multi-system notion fold them
	// into their single system slot.
	Messages []Message

	// MaxTokens is the maximum number of tokens in the response.
	// Zero leaves the provider default in place.
	MaxTokens int

	// Sampling parameters. Zero values are omitted from the wire request.
	Temperature      float64
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
}

// Message represents a single message in the conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Role is the message sender role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Response holds the LLM's output.
type Response struct {
	// Text is the completion exactly as returned by the model. It is not
	// guaranteed to be JSON.
	Text string

	// Usage reports token consumption for this request.
	Usage Usage

	// Model is the actual model that served the request.
	Model string

	// StopReason indicates why generation stopped.
	// Normalized to: "end", "max_tokens"
	StopReason string
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// splitSystem separates system messages from the conversation turns.
// Providers with a dedicated system field use it.
func splitSystem(msgs []Message) ([]string, []Message) {
	var system []string
	var turns []Message
	for _, m := range msgs {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		turns = append(turns, m)
	}
	return system, turns
}
