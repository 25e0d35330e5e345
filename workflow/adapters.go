package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/ragline/ragline/llm"
	"github.com/ragline/ragline/parse"
	"github.com/ragline/ragline/retrieval"
)

// contextCheckSystemPrompt asks the model for a machine-readable verdict.
// The JSON response format plus repair-based parsing tolerates models that
// wrap the object in code fences or drift from strict JSON.
const contextCheckSystemPrompt = "Does the following input contain a clear question or topic " +
	"with enough context to answer? " +
	`Respond ONLY with a JSON object of the form {"has_context": true} or {"has_context": false}. ` +
	"No explanation, no extra text. If unsure, respond with false."

// generateSystemPrompt confines the model to the retrieved context. An empty
// or irrelevant context produces the in-answer refusal rather than
// hallucinated content.
const generateSystemPrompt = "You are a strict virtual assistant. " +
	"Use ONLY the content contained within the <context> tags to answer.\n" +
	"If the answer cannot be found in the context, respond exactly: " +
	"'I'm sorry, but I don't have enough information in the documents to answer that.'\n" +
	"Do not use any knowledge beyond what has been provided."

// contextVerdict is the JSON shape the context check requests from the model.
type contextVerdict struct {
	HasContext bool `json:"has_context"`
}

// LLMContextChecker implements ContextChecker with a non-streaming chat
// completion asked to return a JSON verdict.
type LLMContextChecker struct {
	provider llm.Provider
	model    string
}

var _ ContextChecker = (*LLMContextChecker)(nil)

// NewLLMContextChecker creates a checker calling the given model.
func NewLLMContextChecker(provider llm.Provider, model string) *LLMContextChecker {
	return &LLMContextChecker{provider: provider, model: model}
}

// HasContext asks the model whether the text is answerable and parses the
// JSON verdict from the response.
func (checker *LLMContextChecker) HasContext(ctx context.Context, text string) (bool, error) {
	response, err := checker.provider.SendMessage(ctx, llm.ChatRequest{
		Model:          checker.model,
		SystemPrompt:   contextCheckSystemPrompt,
		ResponseFormat: &llm.ResponseFormat{Type: "json_object"},
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: text},
		},
	})
	if err != nil {
		return false, fmt.Errorf("context check failed: %w", err)
	}

	verdict, err := parse.ParseStringAs[contextVerdict](response.Content)
	if err != nil {
		return false, fmt.Errorf("context check returned an unparseable verdict: %w", err)
	}
	return verdict.HasContext, nil
}

// SearcherRetriever implements Retriever over the hybrid searcher. Queries
// are lowercased before search so index-side matching is case-insensitive.
type SearcherRetriever struct {
	searcher *retrieval.HybridSearcher
}

var _ Retriever = (*SearcherRetriever)(nil)

// NewSearcherRetriever wraps the given hybrid searcher.
func NewSearcherRetriever(searcher *retrieval.HybridSearcher) *SearcherRetriever {
	return &SearcherRetriever{searcher: searcher}
}

func (retriever *SearcherRetriever) Retrieve(ctx context.Context, query string) ([]retrieval.Fragment, error) {
	return retriever.searcher.Search(ctx, strings.ToLower(query))
}

// StreamGenerator implements Generator with a streaming chat completion
// grounded in the retrieved fragments.
type StreamGenerator struct {
	provider llm.StreamProvider
	model    string
}

var _ Generator = (*StreamGenerator)(nil)

// NewStreamGenerator creates a generator calling the given model.
func NewStreamGenerator(provider llm.StreamProvider, model string) *StreamGenerator {
	return &StreamGenerator{provider: provider, model: model}
}

// Generate streams an answer grounded in the fragments. The fragments are
// joined into a <context> block so the system prompt can fence the model in.
func (generator *StreamGenerator) Generate(ctx context.Context, question string, fragments []retrieval.Fragment) (*llm.ChatStream, error) {
	fragmentTexts := make([]string, 0, len(fragments))
	for _, fragment := range fragments {
		fragmentTexts = append(fragmentTexts, fragment.Text)
	}

	userPrompt := fmt.Sprintf(
		"Here is the context for reference:\n<context>\n%s\n</context>\n\nBased on the context above, answer: %s",
		strings.Join(fragmentTexts, "\n"), question)

	return generator.provider.StreamMessage(ctx, llm.ChatRequest{
		Model:        generator.model,
		SystemPrompt: generateSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: userPrompt},
		},
	})
}
