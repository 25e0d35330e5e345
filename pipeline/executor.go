package pipeline

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/ragline/ragline/observability"
)

// Increment is one discrete unit of streamed run output: the delta a step
// produced, tagged with the step that produced it. Increments are emitted
// strictly in the order the steps executed, and within a streaming step's
// result, in the order the step produced them.
type Increment struct {
	// Step is the name of the step that produced this delta.
	Step string `json:"step"`

	// Delta is the partial state update that was merged into the run's state.
	Delta State `json:"delta"`
}

// runConfig holds per-run settings populated by RunOptions.
type runConfig struct {
	// maxSteps is the loop guard: the maximum number of step invocations
	// allowed in one run. Zero means disabled.
	maxSteps int
}

// RunOption customizes a single run.
type RunOption func(*runConfig)

// WithMaxSteps sets the loop guard for a run. A run that would invoke more
// than maxSteps steps fails with a *StepBudgetExceededError instead; the
// guard is disabled by default because the canonical graphs are acyclic.
func WithMaxSteps(maxSteps int) RunOption {
	return func(config *runConfig) {
		config.maxSteps = maxSteps
	}
}

// runCarrier captures the final state and the visited step order so they can
// be read after the iterator has completed. This mirrors the carrier pattern
// used by streaming LLM clients: the iterator writes, accessors read.
type runCarrier struct {
	finalState State
	visited    []string
}

// RunStream is the lazy output of one pipeline run. It must be consumed via
// Iter or Collect; abandoning it mid-stream (breaking out of the range loop)
// cleanly stops the run before the next step and before the next increment of
// an in-flight streaming step.
//
// A RunStream is single-use: ranging over Iter a second time would restart
// the walk against already-mutated state. Call Run again for a fresh run.
type RunStream struct {
	iterator iter.Seq2[Increment, error]
	carrier  *runCarrier
}

// Iter returns the increment iterator for range-over-func consumption.
// The final element before termination is either the last increment (normal
// completion) or a non-nil error: *StepExecutionError for a failed step,
// *StepBudgetExceededError for an exhausted loop guard, or a wrapped context
// error for cancellation.
func (stream *RunStream) Iter() iter.Seq2[Increment, error] {
	return stream.iterator
}

// Collect consumes the entire stream and returns the final state.
// Any mid-stream error terminates collection and returns that error along
// with the state as of the failure.
func (stream *RunStream) Collect() (State, error) {
	for _, err := range stream.iterator {
		if err != nil {
			return stream.carrier.finalState, err
		}
	}
	return stream.carrier.finalState, nil
}

// FinalState returns the run's state after the stream has been fully
// consumed. It reflects every delta merged before a failure if the run was
// aborted. Returns nil if the stream has not been consumed yet.
func (stream *RunStream) FinalState() State {
	return stream.carrier.finalState
}

// Visited returns the names of the steps invoked during the run, in
// execution order. Populated as the stream is consumed.
func (stream *RunStream) Visited() []string {
	return stream.carrier.visited
}

// Run executes the pipeline against a copy of the initial state, producing a
// lazy stream of increments. The walk starts at the entry step; after each
// step completes, the next step is resolved via the step's unconditional
// edge, or by evaluating its conditional branches in order against the
// post-merge state, or the run terminates if the step has no outgoing edge.
//
// Run itself returns immediately; all work happens as the stream is consumed.
// Each call produces an independent run with its own state, so a Pipeline may
// serve concurrent requests.
func (p *Pipeline) Run(ctx context.Context, initial State, opts ...RunOption) *RunStream {
	config := &runConfig{}
	for _, opt := range opts {
		opt(config)
	}

	carrier := &runCarrier{}

	iteratorFunc := func(yield func(Increment, error) bool) {
		runStart := time.Now()
		state := initial.Clone()
		carrier.finalState = state

		runCtx := ctx
		var runSpan observability.Span
		if p.observer != nil {
			runCtx, runSpan = p.observer.StartSpan(ctx, "pipeline.run",
				observability.String("pipeline.entry", p.entry),
				observability.Int("pipeline.steps", len(p.steps)))
			defer runSpan.End()
		}

		current := p.entry
		invoked := 0

		for current != "" {
			if err := runCtx.Err(); err != nil {
				wrappedErr := fmt.Errorf("run canceled before step %q: %w", current, err)
				p.observeRunFailed(runSpan, wrappedErr)
				yield(Increment{}, wrappedErr)
				return
			}

			if config.maxSteps > 0 && invoked >= config.maxSteps {
				budgetErr := &StepBudgetExceededError{Step: current, MaxSteps: config.maxSteps}
				p.observeRunFailed(runSpan, budgetErr)
				yield(Increment{}, budgetErr)
				return
			}

			stepFunc := p.steps[current]
			carrier.visited = append(carrier.visited, current)
			invoked++

			if runSpan != nil {
				runSpan.AddEvent("pipeline.step.start", observability.String("step", current))
			}
			stepStart := time.Now()

			// Steps receive a snapshot: they return deltas, they never
			// mutate the run's state in place.
			result, stepErr := stepFunc(runCtx, state.Clone())
			if stepErr != nil {
				executionErr := &StepExecutionError{Step: current, Err: stepErr}
				p.observeRunFailed(runSpan, executionErr)
				yield(Increment{}, executionErr)
				return
			}

			if result.IsStream() {
				for delta, deltaErr := range result.stream {
					if deltaErr != nil {
						executionErr := &StepExecutionError{Step: current, Err: deltaErr}
						p.observeRunFailed(runSpan, executionErr)
						yield(Increment{}, executionErr)
						return
					}
					state.Merge(delta)
					if !yield(Increment{Step: current, Delta: delta}, nil) {
						return
					}
				}
			} else {
				state.Merge(result.delta)
				if !yield(Increment{Step: current, Delta: result.delta}, nil) {
					return
				}
			}

			if runSpan != nil {
				runSpan.AddEvent("pipeline.step.complete",
					observability.String("step", current),
					observability.Duration("step.duration", time.Since(stepStart)))
			}

			current = p.nextStep(current, state)
		}

		if runSpan != nil {
			runSpan.SetAttributes(
				observability.Int("pipeline.steps_invoked", invoked),
				observability.Duration("pipeline.run.duration", time.Since(runStart)))
		}
	}

	return &RunStream{
		iterator: iteratorFunc,
		carrier:  carrier,
	}
}

// nextStep resolves the destination after current completed: the
// unconditional edge if one exists, otherwise the first conditional branch
// whose predicate matches the post-merge state (falling back to the default),
// otherwise "" — the step is terminal.
func (p *Pipeline) nextStep(current string, state State) string {
	if to, exists := p.edges[current]; exists {
		return to
	}

	if conditional, exists := p.conditionalEdges[current]; exists {
		for _, branch := range conditional.branches {
			if branch.When(state) {
				return branch.To
			}
		}
		return conditional.fallback
	}

	return ""
}

// observeRunFailed records a run failure on the span, if one is active.
func (p *Pipeline) observeRunFailed(runSpan observability.Span, runErr error) {
	if runSpan != nil {
		runSpan.RecordError(runErr)
	}
}
