package pipeline

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"
)

// noopStep returns a StepFunc that succeeds with an empty delta.
func noopStep() StepFunc {
	return func(_ context.Context, _ State) (StepResult, error) {
		return UpdateResult(nil), nil
	}
}

func TestCompile_EmptyGraph(testCase *testing.T) {
	_, err := NewBuilder().Compile()
	if err == nil {
		testCase.Fatal("expected error for empty graph")
	}

	var validationErr *GraphValidationError
	if !errors.As(err, &validationErr) {
		testCase.Fatalf("expected *GraphValidationError, got %T", err)
	}
}

func TestCompile_DuplicateStep(testCase *testing.T) {
	builder := NewBuilder()
	builder.AddStep("fetch", noopStep())
	builder.AddStep("fetch", noopStep())
	builder.SetEntry("fetch")

	_, err := builder.Compile()
	if err == nil {
		testCase.Fatal("expected error for duplicate step")
	}

	var duplicateErr *DuplicateStepError
	if !errors.As(err, &duplicateErr) {
		testCase.Fatalf("expected *DuplicateStepError in chain, got %v", err)
	}
	if duplicateErr.Name != "fetch" {
		testCase.Errorf("expected duplicate name %q, got %q", "fetch", duplicateErr.Name)
	}
}

func TestCompile_UnknownEdgeDestination(testCase *testing.T) {
	builder := NewBuilder()
	builder.AddStep("fetch", noopStep())
	builder.AddEdge("fetch", "missing")
	builder.SetEntry("fetch")

	_, err := builder.Compile()
	if err == nil {
		testCase.Fatal("expected error for unknown edge destination")
	}

	var unknownErr *UnknownStepError
	if !errors.As(err, &unknownErr) {
		testCase.Fatalf("expected *UnknownStepError in chain, got %v", err)
	}
	if unknownErr.Name != "missing" {
		testCase.Errorf("expected unknown name %q, got %q", "missing", unknownErr.Name)
	}
}

func TestCompile_EntryNotSet(testCase *testing.T) {
	builder := NewBuilder()
	builder.AddStep("fetch", noopStep())

	_, err := builder.Compile()
	if err == nil {
		testCase.Fatal("expected error when entry is not set")
	}
}

func TestCompile_UndeclaredEntry(testCase *testing.T) {
	builder := NewBuilder()
	builder.AddStep("fetch", noopStep())
	builder.SetEntry("missing")

	_, err := builder.Compile()

	var unknownErr *UnknownStepError
	if !errors.As(err, &unknownErr) {
		testCase.Fatalf("expected *UnknownStepError for entry, got %v", err)
	}
	if unknownErr.ReferencedBy != "entry" {
		testCase.Errorf("expected reference %q, got %q", "entry", unknownErr.ReferencedBy)
	}
}

func TestCompile_EnumeratesAllProblems(testCase *testing.T) {
	builder := NewBuilder()
	builder.AddStep("fetch", noopStep())
	builder.AddStep("fetch", noopStep())         // duplicate
	builder.AddEdge("fetch", "missing")          // unknown destination
	builder.AddConditionalEdge("ghost", []Branch{ // unknown source and branch destination
		{When: func(State) bool { return true }, To: "also-missing"},
	}, "fetch")
	builder.SetEntry("nowhere") // undeclared entry

	_, err := builder.Compile()
	if err == nil {
		testCase.Fatal("expected validation error")
	}

	var validationErr *GraphValidationError
	if !errors.As(err, &validationErr) {
		testCase.Fatalf("expected *GraphValidationError, got %T", err)
	}
	if len(validationErr.Problems) < 5 {
		testCase.Errorf("expected at least 5 enumerated problems, got %d: %v",
			len(validationErr.Problems), validationErr)
	}
}

func TestCompile_BothEdgeKindsOnOneStep(testCase *testing.T) {
	builder := NewBuilder()
	builder.AddStep("decide", noopStep())
	builder.AddStep("left", noopStep())
	builder.AddStep("right", noopStep())
	builder.AddEdge("decide", "left")
	builder.AddConditionalEdge("decide", nil, "right")
	builder.SetEntry("decide")

	if _, err := builder.Compile(); err == nil {
		testCase.Fatal("expected error for step with both edge kinds")
	}
}

func TestAddEdge_SecondUnconditionalEdge(testCase *testing.T) {
	builder := NewBuilder()
	builder.AddStep("a", noopStep())
	builder.AddStep("b", noopStep())
	builder.AddStep("c", noopStep())
	builder.AddEdge("a", "b")
	builder.AddEdge("a", "c")
	builder.SetEntry("a")

	if _, err := builder.Compile(); err == nil {
		testCase.Fatal("expected error for second unconditional edge from the same step")
	}
}

func TestAddConditionalEdge_MissingDefault(testCase *testing.T) {
	builder := NewBuilder()
	builder.AddStep("decide", noopStep())
	builder.AddConditionalEdge("decide", nil, "")
	builder.SetEntry("decide")

	if _, err := builder.Compile(); err == nil {
		testCase.Fatal("expected error for conditional edge without default destination")
	}
}

func TestCompile_Idempotent(testCase *testing.T) {
	builder := NewBuilder()
	builder.AddStep("check", noopStep())
	builder.AddStep("retrieve", noopStep())
	builder.AddStep("generate", noopStep())
	builder.AddStep("fallback", noopStep())
	builder.AddConditionalEdge("check", []Branch{
		{When: func(state State) bool { return state.Bool("has_context") }, To: "retrieve"},
	}, "fallback")
	builder.AddEdge("retrieve", "generate")
	builder.SetEntry("check")

	first, err := builder.Compile()
	if err != nil {
		testCase.Fatalf("first compile failed: %v", err)
	}
	second, err := builder.Compile()
	if err != nil {
		testCase.Fatalf("second compile failed: %v", err)
	}

	if first.Entry() != second.Entry() {
		testCase.Errorf("entry differs: %q vs %q", first.Entry(), second.Entry())
	}

	firstSteps, secondSteps := first.StepNames(), second.StepNames()
	sort.Strings(firstSteps)
	sort.Strings(secondSteps)
	if !reflect.DeepEqual(firstSteps, secondSteps) {
		testCase.Errorf("step sets differ: %v vs %v", firstSteps, secondSteps)
	}

	if !reflect.DeepEqual(first.edges, second.edges) {
		testCase.Errorf("unconditional edges differ: %v vs %v", first.edges, second.edges)
	}
	if len(first.conditionalEdges) != len(second.conditionalEdges) {
		testCase.Errorf("conditional edge counts differ: %d vs %d",
			len(first.conditionalEdges), len(second.conditionalEdges))
	}
}

func TestCompile_DoesNotAliasBuilderState(testCase *testing.T) {
	builder := NewBuilder()
	builder.AddStep("a", noopStep())
	builder.AddStep("b", noopStep())
	builder.AddEdge("a", "b")
	builder.SetEntry("a")

	compiled, err := builder.Compile()
	if err != nil {
		testCase.Fatalf("compile failed: %v", err)
	}

	// Mutating the builder afterwards must not change the compiled pipeline.
	builder.AddStep("c", noopStep())
	builder.AddEdge("b", "c")

	if len(compiled.StepNames()) != 2 {
		testCase.Errorf("compiled pipeline gained steps after builder mutation: %v", compiled.StepNames())
	}
	if _, exists := compiled.edges["b"]; exists {
		testCase.Error("compiled pipeline gained an edge after builder mutation")
	}
}
