package pipeline

// State is the shared state of a single pipeline run: a mapping from string
// keys to caller-defined values. It is created fresh per run, mutated only by
// merging the deltas returned from step functions, and never shared across
// runs. Within a run, steps execute strictly sequentially, so no
// synchronization is needed.
type State map[string]any

// Clone returns a shallow copy of the state. The executor passes clones into
// step functions so that a step observes a snapshot and cannot mutate the
// run's state in place; values themselves are not deep-copied.
func (state State) Clone() State {
	stateCopy := make(State, len(state))
	for key, value := range state {
		stateCopy[key] = value
	}
	return stateCopy
}

// Merge applies a delta to the state, overwriting existing keys.
func (state State) Merge(delta State) {
	for key, value := range delta {
		state[key] = value
	}
}

// Bool returns the value under key as a bool, or false if the key is absent
// or holds a non-bool value.
func (state State) Bool(key string) bool {
	value, _ := state[key].(bool)
	return value
}

// String returns the value under key as a string, or "" if the key is absent
// or holds a non-string value.
func (state State) String(key string) string {
	value, _ := state[key].(string)
	return value
}
