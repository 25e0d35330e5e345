// Package workflow assembles the conversation pipeline: a four step graph
// that checks whether the user's message carries enough context to answer,
// retrieves knowledge base fragments when it does, and either streams a
// grounded answer or returns a fixed fallback message.
package workflow

import (
	"context"

	"github.com/ragline/ragline/llm"
	"github.com/ragline/ragline/retrieval"
)

// State keys shared by the pipeline steps.
const (
	KeyPrompt     = "prompt"
	KeyHasContext = "has_context"
	KeyDocuments  = "documents"
	KeyAnswer     = "answer"
)

// Step names in the conversation graph.
const (
	StepCheckContext = "check_context"
	StepRetrieve     = "retrieve"
	StepGenerate     = "generate"
	StepFallback     = "fallback"
)

// FallbackMessage is the fixed answer returned when the user's message does
// not carry enough context to ground a response.
const FallbackMessage = "I'm sorry, but I cannot provide an answer based on the given input."

// ContextChecker decides whether the given text contains a clear question or
// topic with enough context to answer. May fail transiently when backed by a
// remote call.
type ContextChecker interface {
	HasContext(ctx context.Context, text string) (bool, error)
}

// Retriever looks up knowledge base fragments relevant to the query, ranked
// best first. An empty result is not an error.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]retrieval.Fragment, error)
}

// Generator produces a streamed answer to the question grounded in the given
// fragments. The stream may fail after fragments have already been emitted.
type Generator interface {
	Generate(ctx context.Context, question string, fragments []retrieval.Fragment) (*llm.ChatStream, error)
}
