package workflow

import (
	"context"
	"fmt"

	"github.com/ragline/ragline/llm"
	"github.com/ragline/ragline/observability"
	"github.com/ragline/ragline/pipeline"
	"github.com/ragline/ragline/retrieval"
)

// Conversation runs the four step conversation graph against user messages.
type Conversation struct {
	graph *pipeline.Pipeline
}

// ConversationOption configures optional conversation behavior.
type ConversationOption func(*conversationConfig)

type conversationConfig struct {
	observer observability.Provider
}

// WithObserver sets the observability provider for pipeline runs.
func WithObserver(observer observability.Provider) ConversationOption {
	return func(config *conversationConfig) {
		config.observer = observer
	}
}

// NewConversation builds and compiles the conversation graph over the given
// capabilities. Compilation cannot fail for this fixed graph shape, so an
// error here indicates a bug rather than bad input.
func NewConversation(checker ContextChecker, retriever Retriever, generator Generator, opts ...ConversationOption) (*Conversation, error) {
	var config conversationConfig
	for _, opt := range opts {
		opt(&config)
	}

	var builderOpts []pipeline.BuilderOption
	if config.observer != nil {
		builderOpts = append(builderOpts, pipeline.WithObserver(config.observer))
	}

	graph, err := pipeline.NewBuilder(builderOpts...).
		AddStep(StepCheckContext, checkContextStep(checker)).
		AddStep(StepRetrieve, retrieveStep(retriever)).
		AddStep(StepGenerate, generateStep(generator)).
		AddStep(StepFallback, fallbackStep).
		AddConditionalEdge(StepCheckContext, []pipeline.Branch{
			{When: hasContext, To: StepRetrieve},
		}, StepFallback).
		AddEdge(StepRetrieve, StepGenerate).
		SetEntry(StepCheckContext).
		Compile()
	if err != nil {
		return nil, fmt.Errorf("failed to compile conversation graph: %w", err)
	}

	return &Conversation{graph: graph}, nil
}

// Ask starts a conversation run for the given user message and returns its
// increment stream. Increments arrive as each step produces them; for the
// grounded path the generate step streams one increment per answer fragment.
func (conversation *Conversation) Ask(ctx context.Context, prompt string, opts ...pipeline.RunOption) *pipeline.RunStream {
	return conversation.graph.Run(ctx, pipeline.State{KeyPrompt: prompt}, opts...)
}

// hasContext is the routing predicate after the context check.
func hasContext(state pipeline.State) bool {
	return state.Bool(KeyHasContext)
}

func checkContextStep(checker ContextChecker) pipeline.StepFunc {
	return func(ctx context.Context, state pipeline.State) (pipeline.StepResult, error) {
		answerable, err := checker.HasContext(ctx, state.String(KeyPrompt))
		if err != nil {
			return pipeline.StepResult{}, err
		}
		return pipeline.UpdateResult(pipeline.State{KeyHasContext: answerable}), nil
	}
}

func retrieveStep(retriever Retriever) pipeline.StepFunc {
	return func(ctx context.Context, state pipeline.State) (pipeline.StepResult, error) {
		fragments, err := retriever.Retrieve(ctx, state.String(KeyPrompt))
		if err != nil {
			return pipeline.StepResult{}, err
		}
		return pipeline.UpdateResult(pipeline.State{KeyDocuments: fragments}), nil
	}
}

// generateStep streams the grounded answer, one state delta per content
// fragment. Each delta carries only its own fragment, so stream consumers
// can forward fragments verbatim without diffing.
func generateStep(generator Generator) pipeline.StepFunc {
	return func(ctx context.Context, state pipeline.State) (pipeline.StepResult, error) {
		fragments, _ := state[KeyDocuments].([]retrieval.Fragment)

		chatStream, err := generator.Generate(ctx, state.String(KeyPrompt), fragments)
		if err != nil {
			return pipeline.StepResult{}, err
		}

		deltaStream := func(yield func(pipeline.State, error) bool) {
			for event, streamErr := range chatStream.Iter() {
				if streamErr != nil {
					yield(nil, streamErr)
					return
				}
				if event.Type != llm.StreamEventContent || event.Content == "" {
					continue
				}
				if !yield(pipeline.State{KeyAnswer: event.Content}, nil) {
					return
				}
			}
		}

		return pipeline.StreamResult(deltaStream), nil
	}
}

func fallbackStep(_ context.Context, _ pipeline.State) (pipeline.StepResult, error) {
	return pipeline.UpdateResult(pipeline.State{KeyAnswer: FallbackMessage}), nil
}
