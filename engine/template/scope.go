package template

import (
	"encoding/json"

	"github.com/compozy/flowcore/engine/core"
)

// TaskState is the slice of a task's context entry that templates can read:
// its terminal status (or StatusRunning until then) and its output once
// terminal. The Template Evaluator never sees retry counts or timings -
// those live only in the Trace (C6).
type TaskState struct {
	Status core.StatusType
	Output any
}

// Scope is the read-only view of the ExecutionContext a single Evaluate
// call resolves paths against. It never mutates and is cheap to build: the
// Scheduler constructs a fresh Scope every time a task's input needs
// resolving, reflecting whatever task entries are terminal at that instant.
type Scope struct {
	Input any
	Tasks map[string]TaskState
	Env   map[string]string
}

// NewScope builds a Scope from the three root values the grammar allows
// paths to address.
func NewScope(input any, tasks map[string]TaskState, env map[string]string) *Scope {
	return &Scope{Input: input, Tasks: tasks, Env: env}
}

// jsonOf marshals v to canonical JSON bytes for gjson path-walking. Errors
// only occur for values json.Marshal itself cannot encode (channels, funcs).
func jsonOf(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}
