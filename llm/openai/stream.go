package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ragline/ragline/internal/httpx"
	"github.com/ragline/ragline/llm"
	"github.com/ragline/ragline/observability"
)

// StreamMessage implements llm.StreamProvider for the chat completions
// endpoint. It sends a streaming request with stream=true and returns a
// ChatStream that yields incremental deltas as SSE events arrive.
func (client *Client) StreamMessage(ctx context.Context, request llm.ChatRequest) (*llm.ChatStream, error) {
	span := observability.SpanFromContext(ctx)
	if span != nil {
		span.AddEvent("llm.stream_request.start",
			observability.String("llm.model", request.Model),
			observability.Bool("llm.streaming", true),
		)
	}

	if client.apiKey == "" {
		return nil, fmt.Errorf("API key is not set")
	}

	wireRequest := requestToWire(request)
	streamEnabled := true
	wireRequest.Stream = &streamEnabled
	wireRequest.StreamOptions = &streamOptions{IncludeUsage: true}

	// Send the streaming request — body is left open for SSE reading.
	httpResponse, err := httpx.DoPostStream(ctx, client.httpClient, client.baseURL+chatCompletionsEndpoint, client.apiKey, wireRequest)
	if err != nil {
		return nil, err
	}

	sseScanner := httpx.NewSSEScanner(httpResponse.Body)

	iteratorFunc := func(yield func(llm.StreamEvent, error) bool) {
		// Ensure the response body is closed when the iterator is done.
		defer httpx.CloseWithLog(httpResponse.Body)

		for {
			if ctx.Err() != nil {
				yield(llm.StreamEvent{}, ctx.Err())
				return
			}

			payload, sseErr := sseScanner.Next()
			if sseErr == io.EOF {
				// Stream finished normally.
				return
			}
			if sseErr != nil {
				yield(llm.StreamEvent{}, fmt.Errorf("SSE read error: %w", sseErr))
				return
			}

			var chunk chatCompletionStreamChunk
			if parseErr := json.Unmarshal([]byte(payload), &chunk); parseErr != nil {
				yield(llm.StreamEvent{}, fmt.Errorf("failed to parse streaming chunk: %w", parseErr))
				return
			}

			for _, event := range chunkToStreamEvents(&chunk) {
				if !yield(event, nil) {
					return // Caller stopped iterating.
				}
			}
		}
	}

	return llm.NewChatStream(iteratorFunc), nil
}

// chunkToStreamEvents converts a single streaming chunk into zero or more
// StreamEvents. A chunk can carry content, a finish reason, or usage (the
// final chunk when stream_options.include_usage is enabled has empty choices).
func chunkToStreamEvents(chunk *chatCompletionStreamChunk) []llm.StreamEvent {
	var events []llm.StreamEvent

	if chunk.Usage != nil {
		events = append(events, llm.StreamEvent{
			Type: llm.StreamEventUsage,
			Usage: &llm.Usage{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
				TotalTokens:      chunk.Usage.TotalTokens,
			},
		})
	}

	for _, choice := range chunk.Choices {
		if choice.Delta.Content != "" {
			events = append(events, llm.StreamEvent{
				Type:    llm.StreamEventContent,
				Content: choice.Delta.Content,
			})
		}
		if choice.FinishReason != nil && *choice.FinishReason != "" {
			events = append(events, llm.StreamEvent{
				Type:         llm.StreamEventDone,
				FinishReason: *choice.FinishReason,
			})
		}
	}

	return events
}
