// Package openai implements the llm interfaces against any
// OpenAI-compatible chat completions API (api.openai.com itself or a
// self-hosted/proxied gateway selected via base URL).
package openai

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/ragline/ragline/internal/httpx"
	"github.com/ragline/ragline/llm"
)

const (
	defaultBaseURL          = "https://api.openai.com/v1"
	chatCompletionsEndpoint = "/chat/completions"
	embeddingsEndpoint      = "/embeddings"
)

// Client implements llm.Provider, llm.StreamProvider, and llm.Embedder for
// OpenAI-compatible APIs.
type Client struct {
	apiKey         string
	baseURL        string
	embeddingModel string
	httpClient     *http.Client
}

// Compile-time interface checks.
var (
	_ llm.Provider       = (*Client)(nil)
	_ llm.StreamProvider = (*Client)(nil)
	_ llm.Embedder       = (*Client)(nil)
)

// New creates a client with defaults taken from the OPENAI_API_KEY and
// OPENAI_API_BASE_URL environment variables.
func New() *Client {
	baseURL := os.Getenv("OPENAI_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		apiKey:     os.Getenv("OPENAI_API_KEY"),
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
}

// WithAPIKey sets the API key used for authenticating requests.
func (client *Client) WithAPIKey(apiKey string) *Client {
	client.apiKey = apiKey
	return client
}

// WithBaseURL overrides the default base URL for API requests.
func (client *Client) WithBaseURL(baseURL string) *Client {
	client.baseURL = baseURL
	return client
}

// WithEmbeddingModel sets the model used by Embed.
func (client *Client) WithEmbeddingModel(model string) *Client {
	client.embeddingModel = model
	return client
}

// WithHttpClient sets a custom HTTP client.
func (client *Client) WithHttpClient(httpClient *http.Client) *Client {
	client.httpClient = httpClient
	return client
}

// SendMessage implements llm.Provider against the chat completions endpoint.
func (client *Client) SendMessage(ctx context.Context, request llm.ChatRequest) (*llm.ChatResponse, error) {
	if client.apiKey == "" {
		return nil, fmt.Errorf("API key is not set")
	}

	httpResponse, response, err := httpx.DoPostSync[chatCompletionResponse](
		ctx, client.httpClient, client.baseURL+chatCompletionsEndpoint, client.apiKey, requestToWire(request))
	if err != nil {
		return nil, err
	}

	if response == nil {
		return nil, fmt.Errorf("empty response from API: %s", httpResponse.Status)
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	return responseFromWire(response), nil
}

// Embed implements llm.Embedder against the embeddings endpoint.
func (client *Client) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if client.apiKey == "" {
		return nil, fmt.Errorf("API key is not set")
	}
	if len(inputs) == 0 {
		return nil, nil
	}

	request := embeddingRequest{
		Model: client.embeddingModel,
		Input: inputs,
	}

	_, response, err := httpx.DoPostSync[embeddingResponse](
		ctx, client.httpClient, client.baseURL+embeddingsEndpoint, client.apiKey, request)
	if err != nil {
		return nil, err
	}

	if response == nil || len(response.Data) != len(inputs) {
		return nil, fmt.Errorf("embedding response size mismatch: expected %d vectors", len(inputs))
	}

	// The API does not guarantee data order, so place vectors by index.
	embeddings := make([][]float32, len(inputs))
	for _, item := range response.Data {
		if item.Index < 0 || item.Index >= len(embeddings) {
			return nil, fmt.Errorf("embedding index %d out of range", item.Index)
		}
		vector := make([]float32, len(item.Embedding))
		for valueIndex, value := range item.Embedding {
			vector[valueIndex] = float32(value)
		}
		embeddings[item.Index] = vector
	}

	return embeddings, nil
}
