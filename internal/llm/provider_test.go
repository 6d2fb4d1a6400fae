package llm

import (
	"context"
	"errors"
	"testing"
)

func TestMockProvider_ReturnsCannedResponses(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Text: `{"a":1}`, Usage: Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}},
		MockResponse{Text: "not json at all"},
	)

	resp1, err := mock.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "first"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp1.Text != `{"a":1}` {
		t.Fatalf("expected {\"a\":1}, got %s", resp1.Text)
	}
	if resp1.Usage.InputTokens != 10 {
		t.Fatalf("expected 10 input tokens, got %d", resp1.Usage.InputTokens)
	}

	resp2, err := mock.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "second"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp2.Text != "not json at all" {
		t.Fatalf("unexpected text %q", resp2.Text)
	}
}

func TestMockProvider_EmptyQueueReturnsError(t *testing.T) {
	mock := NewMockProvider()
	_, err := mock.Generate(context.Background(), Request{})
	var apiErr *ErrAPI
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *ErrAPI, got: %T", err)
	}
}

func TestMockProvider_RecordsCalls(t *testing.T) {
	mock := NewMockProvider(MockResponse{Text: "[]"})

	req := Request{
		Messages: []Message{
			{Role: RoleSystem, Content: "sys"},
			{Role: RoleUser, Content: "hello"},
		},
	}
	_, _ = mock.Generate(context.Background(), req)

	if mock.CallCount() != 1 {
		t.Fatalf("expected 1 call, got %d", mock.CallCount())
	}
	if mock.Calls[0].Messages[0].Content != "sys" {
		t.Fatalf("expected system 'sys', got %q", mock.Calls[0].Messages[0].Content)
	}
}

func TestMockProvider_CancelledContext(t *testing.T) {
	mock := NewMockProvider(MockResponse{Text: "[]"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mock.Generate(ctx, Request{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMockProvider_ModelID(t *testing.T) {
	mock := NewMockProvider()
	if mock.ModelID() != "mock" {
		t.Fatalf("expected 'mock', got %q", mock.ModelID())
	}
}

func TestPurposeContext(t *testing.T) {
	ctx := context.Background()
	if p := PurposeFrom(ctx); p != "unknown" {
		t.Fatalf("expected 'unknown', got %q", p)
	}

	ctx = WithPurpose(ctx, "question-gen")
	if p := PurposeFrom(ctx); p != "question-gen" {
		t.Fatalf("expected 'question-gen', got %q", p)
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()
	if id := RequestIDFrom(ctx); id != "" {
		t.Fatalf("expected empty request ID, got %q", id)
	}

	ctx = WithRequestID(ctx)
	id := RequestIDFrom(ctx)
	if len(id) != 36 {
		t.Fatalf("expected a uuid, got %q", id)
	}

	// Nested runs keep the outer ID.
	if again := RequestIDFrom(WithRequestID(ctx)); again != id {
		t.Fatalf("request ID changed: %q -> %q", id, again)
	}
}

func TestSplitSystem(t *testing.T) {
	system, turns := splitSystem([]Message{
		{Role: RoleSystem, Content: "a"},
		{Role: RoleUser, Content: "b"},
		{Role: RoleSystem, Content: "c"},
	})
	if len(system) != 2 || system[0] != "a" || system[1] != "c" {
		t.Fatalf("unexpected system parts %v", system)
	}
	if len(turns) != 1 || turns[0].Content != "b" {
		t.Fatalf("unexpected turns %v", turns)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "openai without key",
			cfg:     Config{Provider: "openai", OpenAI: OpenAIConfig{Model: "gpt-4"}},
			wantErr: true,
		},
		{
			name:    "openai with key",
			cfg:     Config{Provider: "openai", OpenAI: OpenAIConfig{APIKey: "sk-test", Model: "gpt-4"}},
			wantErr: false,
		},
		{
			name:    "openai model outside allow-list",
			cfg:     Config{Provider: "openai", OpenAI: OpenAIConfig{APIKey: "sk-test", Model: "text-davinci-003"}},
			wantErr: true,
		},
		{
			name:    "anthropic without key",
			cfg:     Config{Provider: "anthropic"},
			wantErr: true,
		},
		{
			name:    "anthropic with key",
			cfg:     Config{Provider: "anthropic", Anthropic: AnthropicConfig{APIKey: "sk-test"}},
			wantErr: false,
		},
		{
			name:    "mock needs no key",
			cfg:     Config{Provider: "mock"},
			wantErr: false,
		},
		{
			name:    "unknown provider",
			cfg:     Config{Provider: "unknown"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
