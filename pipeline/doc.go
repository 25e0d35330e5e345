// Package pipeline implements a minimal conditional pipeline executor: a
// directed-graph runner with typed mutable shared state, conditional
// branching, and step functions that return either a single state update or a
// lazy sequence of updates (streaming output).
//
// A caller assembles a graph with [Builder] — named steps, unconditional
// edges, and conditional edges keyed by predicates over the shared state —
// and compiles it into an immutable [Pipeline]. Running a pipeline walks the
// graph from the entry step, invoking each step function with a read-only
// snapshot of the state, merging the returned deltas, and emitting each delta
// to the caller as an [Increment] the moment it is produced.
//
// Execution within a run is strictly sequential because each step's output can
// gate the next routing decision. Concurrent runs are independent: each run
// owns its own state for its lifetime and shares nothing.
//
// Example:
//
//	builder := pipeline.NewBuilder()
//	builder.AddStep("classify", classifyStep)
//	builder.AddStep("answer", answerStep)
//	builder.AddStep("reject", rejectStep)
//	builder.AddConditionalEdge("classify", []pipeline.Branch{
//	    {When: func(s pipeline.State) bool { return s.Bool("relevant") }, To: "answer"},
//	}, "reject")
//	builder.SetEntry("classify")
//	p, err := builder.Compile()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for increment, err := range p.Run(ctx, pipeline.State{"input": text}).Iter() {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(increment.Step, increment.Delta)
//	}
package pipeline
