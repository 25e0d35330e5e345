package openai

import "github.com/ragline/ragline/llm"

// Wire types for the chat completions and embeddings endpoints.

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireResponseFormat struct {
	Type string `json:"type"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type chatCompletionRequest struct {
	Model          string              `json:"model"`
	Messages       []wireMessage       `json:"messages"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	Temperature    float32             `json:"temperature,omitempty"`
	ResponseFormat *wireResponseFormat `json:"response_format,omitempty"`
	Stream         *bool               `json:"stream,omitempty"`
	StreamOptions  *streamOptions      `json:"stream_options,omitempty"`
}

type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatCompletionChoice struct {
	Index        int         `json:"index"`
	Message      wireMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatCompletionResponse struct {
	Id      string                 `json:"id"`
	Object  string                 `json:"object"`
	Model   string                 `json:"model"`
	Choices []chatCompletionChoice `json:"choices"`
	Usage   *wireUsage             `json:"usage,omitempty"`
}

type chatCompletionStreamDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

type chatCompletionStreamChoice struct {
	Index        int                       `json:"index"`
	Delta        chatCompletionStreamDelta `json:"delta"`
	FinishReason *string                   `json:"finish_reason"`
}

type chatCompletionStreamChunk struct {
	Id      string                       `json:"id"`
	Object  string                       `json:"object"`
	Model   string                       `json:"model"`
	Choices []chatCompletionStreamChoice `json:"choices"`
	Usage   *wireUsage                   `json:"usage,omitempty"`
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingData struct {
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

type embeddingResponse struct {
	Data []embeddingData `json:"data"`
}

// requestToWire converts the generic chat request into the chat completions
// wire format, folding the system prompt into the message list.
func requestToWire(request llm.ChatRequest) chatCompletionRequest {
	messages := make([]wireMessage, 0, len(request.Messages)+1)
	if request.SystemPrompt != "" {
		messages = append(messages, wireMessage{Role: string(llm.RoleSystem), Content: request.SystemPrompt})
	}
	for _, message := range request.Messages {
		messages = append(messages, wireMessage{Role: string(message.Role), Content: message.Content})
	}

	wireRequest := chatCompletionRequest{
		Model:    request.Model,
		Messages: messages,
	}

	if request.GenerationConfig != nil {
		wireRequest.MaxTokens = request.GenerationConfig.MaxTokens
		wireRequest.Temperature = request.GenerationConfig.Temperature
	}
	if request.ResponseFormat != nil && request.ResponseFormat.Type != "" {
		wireRequest.ResponseFormat = &wireResponseFormat{Type: request.ResponseFormat.Type}
	}

	return wireRequest
}

// responseFromWire converts a chat completions response into the generic form,
// using the first choice.
func responseFromWire(response *chatCompletionResponse) *llm.ChatResponse {
	choice := response.Choices[0]

	generic := &llm.ChatResponse{
		Id:           response.Id,
		Model:        response.Model,
		Content:      choice.Message.Content,
		FinishReason: choice.FinishReason,
	}
	if response.Usage != nil {
		generic.Usage = &llm.Usage{
			PromptTokens:     response.Usage.PromptTokens,
			CompletionTokens: response.Usage.CompletionTokens,
			TotalTokens:      response.Usage.TotalTokens,
		}
	}
	return generic
}
