// Package providers implements the LLM client: one Chat call against an
// Anthropic-style or OpenAI-compatible endpoint. No streaming, no automatic
// retries; callers own retry policy.
package providers

import "context"

// Provider is the interface both LLM backends implement. Implementations are
// stateless and safe for concurrent use across sessions.
type Provider interface {
	// Chat sends messages to the LLM and returns the complete response.
	// The outer ctx deadline, if any, bounds the call.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// DefaultModel returns the provider's default model name.
	DefaultModel() string

	// Name returns the provider identifier ("anthropic", "openai-compatible").
	Name() string
}

// Message is one conversation turn sent to the model.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// ChatRequest contains the input for a Chat call.
type ChatRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model,omitempty"` // empty = provider default
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

// ChatResponse is the result from an LLM call.
type ChatResponse struct {
	Content string `json:"content"`
	Usage   *Usage `json:"usage,omitempty"`
}

// Usage tracks token consumption when the endpoint reports it.
type Usage struct {
	TokensIn  int `json:"tokens_in,omitempty"`
	TokensOut int `json:"tokens_out,omitempty"`
}
