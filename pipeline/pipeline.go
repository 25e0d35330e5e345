package pipeline

import (
	"context"
	"iter"

	"github.com/ragline/ragline/observability"
)

// StepFunc is the processing logic of a single step. It receives a read-only
// snapshot of the shared state and returns a StepResult describing how the
// state should change; it must not retain or mutate the snapshot after
// returning. Blocking work (remote capability calls) should honor ctx.
type StepFunc func(ctx context.Context, state State) (StepResult, error)

// Predicate decides a conditional routing branch. It is evaluated against the
// post-merge state, i.e. after the source step's deltas have been applied.
type Predicate func(state State) bool

// Branch pairs a predicate with a destination step name. Branches of a
// conditional edge are evaluated in order; the first whose predicate returns
// true wins.
type Branch struct {
	When Predicate
	To   string
}

// StepResult is the outcome of a step function: either a single state delta,
// or a lazy sequence of deltas for steps that produce output incrementally.
// The two variants are constructed with [UpdateResult] and [StreamResult];
// the zero value behaves as an empty single delta.
type StepResult struct {
	delta  State
	stream iter.Seq2[State, error]
}

// UpdateResult wraps a single state delta. The executor merges it into the
// run's state and emits it as exactly one increment before routing proceeds.
func UpdateResult(delta State) StepResult {
	return StepResult{delta: delta}
}

// StreamResult wraps a lazy sequence of state deltas. The executor consumes
// the sequence one element at a time, merging and emitting each delta as it
// arrives, so the run's caller observes output as soon as the step produces
// it. A non-nil error yielded by the sequence aborts the run with a
// StepExecutionError; deltas emitted before the error remain merged.
func StreamResult(stream iter.Seq2[State, error]) StepResult {
	return StepResult{stream: stream}
}

// IsStream reports whether the result carries a lazy delta sequence.
func (result StepResult) IsStream() bool {
	return result.stream != nil
}

// conditionalEdge is an ordered list of predicate branches plus the default
// destination used when no predicate matches.
type conditionalEdge struct {
	branches []Branch
	fallback string
}

// Pipeline is a validated, immutable, executable graph definition produced by
// [Builder.Compile]. A Pipeline is safe for concurrent Run calls: each run
// owns its own state and the pipeline's structure is never mutated after
// compilation.
type Pipeline struct {
	// steps maps step names to their functions.
	steps map[string]StepFunc

	// edges holds the unconditional edge leaving each step, if any.
	edges map[string]string

	// conditionalEdges holds the conditional edge leaving each step, if any.
	conditionalEdges map[string]conditionalEdge

	// entry is the designated entry step.
	entry string

	// observer receives run and step lifecycle signal; may be nil.
	observer observability.Provider
}

// Entry returns the name of the pipeline's entry step.
func (p *Pipeline) Entry() string {
	return p.entry
}

// StepNames returns the names of all declared steps. Order is unspecified.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, len(p.steps))
	for name := range p.steps {
		names = append(names, name)
	}
	return names
}
