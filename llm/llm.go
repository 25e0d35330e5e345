// Package llm defines the narrow interface through which the rest of the
// system consumes hosted large-language-model APIs: synchronous chat,
// streamed chat, and text embeddings. Concrete adapters live in
// subpackages (see llm/openai).
package llm

import "context"

// Provider is the core interface for a remote chat model.
type Provider interface {
	// SendMessage sends a chat request and returns the completed response.
	// Returns an error if the remote call fails, the context is cancelled,
	// or the response cannot be decoded.
	SendMessage(ctx context.Context, request ChatRequest) (*ChatResponse, error)
}

// StreamProvider is an optional interface for providers that support
// streaming (SSE-based) responses. Callers detect streaming support via type
// assertion: provider.(StreamProvider). Pre-stream errors (auth, bad request,
// network) are returned as a normal error; mid-stream errors are yielded
// through the stream's iterator.
type StreamProvider interface {
	Provider
	StreamMessage(ctx context.Context, request ChatRequest) (*ChatStream, error)
}

// Embedder produces dense vector embeddings for text. It is consumed by
// retrieval backends that need client-side embedding (see retrieval/pgstore).
type Embedder interface {
	// Embed returns one embedding vector per input text, in input order.
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// MessageRole identifies the author of a chat message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message represents a single message in a conversation.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// GenerationConfig tunes sampling for a single request.
type GenerationConfig struct {
	MaxTokens   int     `json:"max_tokens,omitempty"`  // Optional cap on response tokens
	Temperature float32 `json:"temperature,omitempty"` // Sampling temperature [0..2]
}

// ResponseFormat constrains the shape of the model's output.
type ResponseFormat struct {
	// Type is the format hint: "text" or "json_object".
	Type string `json:"type,omitempty"`
}

// ChatRequest represents a request to a chat model.
type ChatRequest struct {
	Model            string            `json:"model,omitempty"`
	Messages         []Message         `json:"messages"`
	SystemPrompt     string            `json:"system_prompt,omitempty"`
	ResponseFormat   *ResponseFormat   `json:"response_format,omitempty"`
	GenerationConfig *GenerationConfig `json:"generation_config,omitempty"`
}

// Usage reports token consumption for a completed request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// ChatResponse represents the completed response from a chat model.
type ChatResponse struct {
	Id           string `json:"id"`
	Model        string `json:"model"`
	Content      string `json:"content"`
	FinishReason string `json:"finish_reason,omitempty"`
	Usage        *Usage `json:"usage,omitempty"`
}
