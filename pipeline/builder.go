package pipeline

import (
	"fmt"
	"slices"

	"github.com/ragline/ragline/observability"
)

// Builder assembles a graph definition incrementally and validates it as a
// whole when Compile is called. Problems detected while adding steps and
// edges are accumulated rather than returned immediately, so Compile can
// report every problem at once inside a single GraphValidationError.
//
// The builder enforces the following constraints at Compile time:
//   - Step names are unique and non-empty
//   - Every name referenced by an edge, branch, or default is a declared step
//   - A step has at most one unconditional edge, or one conditional edge,
//     never both
//   - The entry step is set and declared
//
// The graph need not be acyclic; unbounded loops are guarded at run time via
// [WithMaxSteps].
type Builder struct {
	// steps stores registered step functions keyed by name.
	steps map[string]StepFunc

	// edges stores the unconditional edge per source step.
	edges map[string]string

	// conditionalEdges stores the conditional edge per source step.
	conditionalEdges map[string]conditionalEdge

	// entry is the designated entry step name; empty until SetEntry is called.
	entry string

	// observer is attached to compiled pipelines; may be nil.
	observer observability.Provider

	// buildErrors accumulates problems found during AddStep/AddEdge calls,
	// reported together when Compile is called.
	buildErrors []error
}

// BuilderOption customizes a Builder.
type BuilderOption func(*Builder)

// WithObserver attaches an observability provider to pipelines compiled from
// this builder. The executor emits a span per run and events per step.
func WithObserver(observer observability.Provider) BuilderOption {
	return func(builder *Builder) {
		builder.observer = observer
	}
}

// NewBuilder creates an empty graph builder.
func NewBuilder(opts ...BuilderOption) *Builder {
	builder := &Builder{
		steps:            make(map[string]StepFunc),
		edges:            make(map[string]string),
		conditionalEdges: make(map[string]conditionalEdge),
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder
}

// AddStep registers a step with the given unique name and function.
// A duplicate name records a DuplicateStepError reported at Compile time.
func (builder *Builder) AddStep(name string, function StepFunc) *Builder {
	if name == "" {
		builder.buildErrors = append(builder.buildErrors, fmt.Errorf("step name must not be empty"))
		return builder
	}

	if function == nil {
		builder.buildErrors = append(builder.buildErrors, fmt.Errorf("step function must not be nil for step %q", name))
		return builder
	}

	if _, exists := builder.steps[name]; exists {
		builder.buildErrors = append(builder.buildErrors, &DuplicateStepError{Name: name})
		return builder
	}

	builder.steps[name] = function
	return builder
}

// AddEdge registers the unconditional edge leaving from. Each step may have
// at most one unconditional edge; endpoint existence is validated at Compile.
func (builder *Builder) AddEdge(from, to string) *Builder {
	if from == "" || to == "" {
		builder.buildErrors = append(builder.buildErrors, fmt.Errorf("edge endpoints must not be empty (from=%q, to=%q)", from, to))
		return builder
	}

	if existing, exists := builder.edges[from]; exists {
		builder.buildErrors = append(builder.buildErrors, fmt.Errorf("step %q already has an unconditional edge to %q", from, existing))
		return builder
	}

	builder.edges[from] = to
	return builder
}

// AddConditionalEdge registers the conditional edge leaving from: an ordered
// list of predicate branches evaluated top to bottom against the post-merge
// state, plus the default destination used when no predicate matches.
// Each step may have at most one conditional edge.
func (builder *Builder) AddConditionalEdge(from string, branches []Branch, defaultTo string) *Builder {
	if from == "" {
		builder.buildErrors = append(builder.buildErrors, fmt.Errorf("conditional edge source must not be empty"))
		return builder
	}

	if defaultTo == "" {
		builder.buildErrors = append(builder.buildErrors, fmt.Errorf("conditional edge from %q must have a default destination", from))
		return builder
	}

	if _, exists := builder.conditionalEdges[from]; exists {
		builder.buildErrors = append(builder.buildErrors, fmt.Errorf("step %q already has a conditional edge", from))
		return builder
	}

	for branchIndex, branch := range branches {
		if branch.When == nil {
			builder.buildErrors = append(builder.buildErrors, fmt.Errorf("conditional edge from %q: branch %d has a nil predicate", from, branchIndex))
		}
		if branch.To == "" {
			builder.buildErrors = append(builder.buildErrors, fmt.Errorf("conditional edge from %q: branch %d has an empty destination", from, branchIndex))
		}
	}

	builder.conditionalEdges[from] = conditionalEdge{
		branches: slices.Clone(branches),
		fallback: defaultTo,
	}
	return builder
}

// SetEntry designates the entry step of the graph. The name is validated
// against the declared steps at Compile time.
func (builder *Builder) SetEntry(name string) *Builder {
	builder.entry = name
	return builder
}

// Compile performs whole-graph validation and returns an immutable,
// executable Pipeline. On failure it returns a *GraphValidationError
// enumerating every problem found, not just the first.
//
// Compile does not mutate the builder: compiling the same builder twice
// yields structurally equal pipelines.
func (builder *Builder) Compile() (*Pipeline, error) {
	problems := slices.Clone(builder.buildErrors)

	if len(builder.steps) == 0 {
		problems = append(problems, fmt.Errorf("graph must contain at least one step"))
	}

	// Entry step must be set and declared.
	if builder.entry == "" {
		problems = append(problems, fmt.Errorf("entry step is not set"))
	} else if _, exists := builder.steps[builder.entry]; !exists {
		problems = append(problems, &UnknownStepError{Name: builder.entry, ReferencedBy: "entry"})
	}

	// Every edge endpoint must reference a declared step, and no step may
	// carry both an unconditional and a conditional edge.
	for from, to := range builder.edges {
		if _, exists := builder.steps[from]; !exists {
			problems = append(problems, &UnknownStepError{Name: from, ReferencedBy: "edge source"})
		}
		if _, exists := builder.steps[to]; !exists {
			problems = append(problems, &UnknownStepError{Name: to, ReferencedBy: fmt.Sprintf("edge from %q", from)})
		}
		if _, hasConditional := builder.conditionalEdges[from]; hasConditional {
			problems = append(problems, fmt.Errorf("step %q has both an unconditional and a conditional edge", from))
		}
	}

	for from, conditional := range builder.conditionalEdges {
		if _, exists := builder.steps[from]; !exists {
			problems = append(problems, &UnknownStepError{Name: from, ReferencedBy: "conditional edge source"})
		}
		for branchIndex, branch := range conditional.branches {
			if branch.To == "" {
				continue // already recorded at AddConditionalEdge time
			}
			if _, exists := builder.steps[branch.To]; !exists {
				problems = append(problems, &UnknownStepError{
					Name:         branch.To,
					ReferencedBy: fmt.Sprintf("conditional edge from %q, branch %d", from, branchIndex),
				})
			}
		}
		if _, exists := builder.steps[conditional.fallback]; !exists {
			problems = append(problems, &UnknownStepError{
				Name:         conditional.fallback,
				ReferencedBy: fmt.Sprintf("conditional edge from %q, default", from),
			})
		}
	}

	if len(problems) > 0 {
		return nil, &GraphValidationError{Problems: problems}
	}

	// Copy everything so later builder mutations cannot affect the pipeline.
	steps := make(map[string]StepFunc, len(builder.steps))
	for name, function := range builder.steps {
		steps[name] = function
	}
	edges := make(map[string]string, len(builder.edges))
	for from, to := range builder.edges {
		edges[from] = to
	}
	conditionalEdges := make(map[string]conditionalEdge, len(builder.conditionalEdges))
	for from, conditional := range builder.conditionalEdges {
		conditionalEdges[from] = conditionalEdge{
			branches: slices.Clone(conditional.branches),
			fallback: conditional.fallback,
		}
	}

	return &Pipeline{
		steps:            steps,
		edges:            edges,
		conditionalEdges: conditionalEdges,
		entry:            builder.entry,
		observer:         builder.observer,
	}, nil
}
