package workflow

import (
	"context"
	"strings"
	"testing"

	"github.com/ragline/ragline/llm"
	"github.com/ragline/ragline/retrieval"
)

// cannedProvider returns a fixed response and records the last request.
type cannedProvider struct {
	content     string
	lastRequest llm.ChatRequest
}

func (provider *cannedProvider) SendMessage(_ context.Context, request llm.ChatRequest) (*llm.ChatResponse, error) {
	provider.lastRequest = request
	return &llm.ChatResponse{Content: provider.content}, nil
}

func (provider *cannedProvider) StreamMessage(_ context.Context, request llm.ChatRequest) (*llm.ChatStream, error) {
	provider.lastRequest = request
	return llm.NewSingleEventStream(&llm.ChatResponse{Content: provider.content}), nil
}

func TestHasContext_ParsesVerdicts(testCase *testing.T) {
	testCases := []struct {
		name        string
		response    string
		wantVerdict bool
	}{
		{name: "strict json true", response: `{"has_context": true}`, wantVerdict: true},
		{name: "strict json false", response: `{"has_context": false}`, wantVerdict: false},
		{name: "fenced json", response: "```json\n{\"has_context\": true}\n```", wantVerdict: true},
		{name: "python style booleans", response: `{has_context: True}`, wantVerdict: true},
	}

	for _, currentCase := range testCases {
		testCase.Run(currentCase.name, func(subTest *testing.T) {
			provider := &cannedProvider{content: currentCase.response}
			checker := NewLLMContextChecker(provider, "verdict-model")

			verdict, err := checker.HasContext(context.Background(), "some question")
			if err != nil {
				subTest.Fatalf("HasContext failed: %v", err)
			}
			if verdict != currentCase.wantVerdict {
				subTest.Errorf("expected verdict %v, got %v", currentCase.wantVerdict, verdict)
			}
		})
	}
}

func TestHasContext_RequestsJSONResponseFormat(testCase *testing.T) {
	provider := &cannedProvider{content: `{"has_context": true}`}
	checker := NewLLMContextChecker(provider, "verdict-model")

	if _, err := checker.HasContext(context.Background(), "question"); err != nil {
		testCase.Fatalf("HasContext failed: %v", err)
	}

	request := provider.lastRequest
	if request.ResponseFormat == nil || request.ResponseFormat.Type != "json_object" {
		testCase.Errorf("expected json_object response format, got %+v", request.ResponseFormat)
	}
	if request.Model != "verdict-model" {
		testCase.Errorf("unexpected model %q", request.Model)
	}
	if len(request.Messages) != 1 || request.Messages[0].Content != "question" {
		testCase.Errorf("expected the user text as the sole message, got %+v", request.Messages)
	}
}

func TestHasContext_UnparseableVerdictFails(testCase *testing.T) {
	provider := &cannedProvider{content: "maybe?"}
	checker := NewLLMContextChecker(provider, "verdict-model")

	if _, err := checker.HasContext(context.Background(), "question"); err == nil {
		testCase.Fatal("expected error for unparseable verdict")
	}
}

func TestGenerate_BuildsContextFencedPrompt(testCase *testing.T) {
	provider := &cannedProvider{content: "grounded answer"}
	generator := NewStreamGenerator(provider, "answer-model")

	fragments := []retrieval.Fragment{
		{ID: "c1", Text: "first fact"},
		{ID: "c2", Text: "second fact"},
	}
	stream, err := generator.Generate(context.Background(), "the question", fragments)
	if err != nil {
		testCase.Fatalf("Generate failed: %v", err)
	}
	if _, err := stream.Collect(); err != nil {
		testCase.Fatalf("Collect failed: %v", err)
	}

	userPrompt := provider.lastRequest.Messages[0].Content
	if !strings.Contains(userPrompt, "<context>\nfirst fact\nsecond fact\n</context>") {
		testCase.Errorf("fragments missing from context block: %q", userPrompt)
	}
	if !strings.Contains(userPrompt, "answer: the question") {
		testCase.Errorf("question missing from prompt: %q", userPrompt)
	}
	if !strings.Contains(provider.lastRequest.SystemPrompt, "ONLY the content contained within the <context> tags") {
		testCase.Errorf("unexpected system prompt %q", provider.lastRequest.SystemPrompt)
	}
}

func TestRetrieve_LowercasesQuery(testCase *testing.T) {
	recording := &recordingQueryIndex{}
	searcher := retrieval.NewHybridSearcher(recording, recording)
	retriever := NewSearcherRetriever(searcher)

	if _, err := retriever.Retrieve(context.Background(), "What Is RAG?"); err != nil {
		testCase.Fatalf("Retrieve failed: %v", err)
	}
	if recording.lastQuery != "what is rag?" {
		testCase.Errorf("expected lowercased query, got %q", recording.lastQuery)
	}
}

// recordingQueryIndex captures the last search query.
type recordingQueryIndex struct {
	lastQuery string
}

func (index *recordingQueryIndex) Upsert(_ context.Context, _ []retrieval.Record) error { return nil }

func (index *recordingQueryIndex) Search(_ context.Context, query string, _ int) ([]retrieval.Fragment, error) {
	index.lastQuery = query
	return nil, nil
}
