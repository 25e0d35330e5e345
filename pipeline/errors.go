package pipeline

import (
	"fmt"
	"strings"
)

// DuplicateStepError reports an attempt to register a step name that is
// already registered on the builder.
type DuplicateStepError struct {
	// Name is the step name that was registered more than once.
	Name string
}

func (duplicateError *DuplicateStepError) Error() string {
	return fmt.Sprintf("duplicate step %q", duplicateError.Name)
}

// UnknownStepError reports an edge, entry declaration, or conditional branch
// that references a step name never registered on the builder.
type UnknownStepError struct {
	// Name is the undeclared step name.
	Name string

	// ReferencedBy describes where the undeclared name was referenced,
	// e.g. `edge from "retrieve"` or `entry`.
	ReferencedBy string
}

func (unknownError *UnknownStepError) Error() string {
	return fmt.Sprintf("unknown step %q referenced by %s", unknownError.Name, unknownError.ReferencedBy)
}

// GraphValidationError is returned by Compile when the graph definition is
// invalid. It enumerates every problem found, not just the first, so the
// caller can fix the whole definition in one pass. Individual problems are
// reachable through errors.As / errors.Is via Unwrap.
type GraphValidationError struct {
	// Problems lists every validation failure discovered during Compile.
	Problems []error
}

func (validationError *GraphValidationError) Error() string {
	messages := make([]string, len(validationError.Problems))
	for index, problem := range validationError.Problems {
		messages[index] = problem.Error()
	}
	return fmt.Sprintf("invalid graph definition (%d problems): %s",
		len(validationError.Problems), strings.Join(messages, "; "))
}

// Unwrap exposes the individual problems to errors.Is and errors.As.
func (validationError *GraphValidationError) Unwrap() []error {
	return validationError.Problems
}

// StepBudgetExceededError reports that a run was aborted because it invoked
// more steps than the configured maximum. Increments emitted before the
// budget was exhausted remain valid, and the run's state reflects every
// merge that happened before the failure.
type StepBudgetExceededError struct {
	// Step is the step that would have been invoked next.
	Step string

	// MaxSteps is the configured budget.
	MaxSteps int
}

func (budgetError *StepBudgetExceededError) Error() string {
	return fmt.Sprintf("step budget of %d exceeded before step %q", budgetError.MaxSteps, budgetError.Step)
}

// StepExecutionError wraps a failure raised by a step function, typically a
// remote capability call failing. The run is aborted; increments emitted
// before the failure remain valid and are not retracted.
type StepExecutionError struct {
	// Step is the step whose function failed.
	Step string

	// Err is the underlying failure.
	Err error
}

func (executionError *StepExecutionError) Error() string {
	return fmt.Sprintf("step %q failed: %v", executionError.Step, executionError.Err)
}

// Unwrap returns the underlying step failure.
func (executionError *StepExecutionError) Unwrap() error {
	return executionError.Err
}
