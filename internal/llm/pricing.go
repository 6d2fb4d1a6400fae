package llm

import "strings"

// ModelCost holds per-million-token pricing for a model, in USD.
type ModelCost struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// Cost calculates the total USD cost for the given token counts.
func (c ModelCost) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)*c.InputPerMTok/1_000_000 +
		float64(outputTokens)*c.OutputPerMTok/1_000_000
}

// LookupCost returns the pricing for a model ID, or nil if unknown.
// Dated snapshots such as "gpt-4o-mini-2024-07-18" fall back to their
// base model's price.
func LookupCost(modelID string) *ModelCost {
	if c, ok := modelCosts[modelID]; ok {
		return &c
	}
	for base, c := range modelCosts {
		if rest, ok := strings.CutPrefix(modelID, base+"-"); ok && isDateSuffix(rest) {
			return &c
		}
	}
	return nil
}

// isDateSuffix reports whether s looks like "2024-07-18".
func isDateSuffix(s string) bool {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return false
	}
	for i, r := range s {
		if i == 4 || i == 7 {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// modelCosts covers the models this tool can be pointed at.
var modelCosts = map[string]ModelCost{
	// OpenAI allow-list
	"gpt-3.5-turbo":          {0.5, 1.5},
	"gpt-3.5-turbo-0613":     {1.5, 2},
	"gpt-3.5-turbo-1106":     {1, 2},
	"gpt-3.5-turbo-16k":      {3, 4},
	"gpt-3.5-turbo-16k-0613": {3, 4},
	"gpt-4":                  {30, 60},
	"gpt-4-0314":             {30, 60},
	"gpt-4-0613":             {30, 60},
	"gpt-4-1106-preview":     {10, 30},
	"gpt-4.1":                {2, 8},
	"gpt-4.1-mini":           {0.4, 1.6},
	"gpt-4o":                 {2.5, 10},
	"gpt-4o-mini":            {0.15, 0.6},

	// Anthropic
	"claude-haiku-4-5-20251001": {1, 5},
	"claude-sonnet-4-20250514":  {3, 15},

	// Google (Gemini)
	"gemini-2.0-flash": {0.1, 0.4},
	"gemini-2.5-flash": {0.3, 2.5},
	"gemini-2.5-pro":   {1.25, 10},
}
