// Package execution owns the per-invocation objects - ExecutionContext,
// Execution, and ExecutionResult - and the top-level ExecuteWorkflow
// orchestration that wires the Graph Planner, Scheduler, Task Runner,
// Output Mapper, and Trace Recorder together.
package execution

import (
	"sync"
	"time"

	"github.com/mohae/deepcopy"

	"github.com/compozy/flowcore/engine/core"
	"github.com/compozy/flowcore/engine/task"
	"github.com/compozy/flowcore/engine/template"
)

// TaskEntry is one task's slot in the ExecutionContext: its output and
// terminal status once set, its timing and retry detail, and its error
// record on failure or cancellation.
type TaskEntry struct {
	Status      core.StatusType
	Output      any
	StartedAt   time.Time
	CompletedAt time.Time
	ReadyAt     time.Time
	RetryCount  int
	Error       *task.ErrorInfo
}

// ExecutionContext is the mutable, per-execution structure templates read
// from and the Scheduler writes to. Each task's entry is written exactly
// once, at its terminal transition - the invariant that makes a read-write
// mutex sufficient instead of per-key locking.
type ExecutionContext struct {
	Input any
	Env   map[string]string

	mu    sync.RWMutex
	tasks map[string]*TaskEntry
}

// NewExecutionContext builds an ExecutionContext for a fresh execution.
// input is deep-copied so a caller mutating the payload it passed in after
// the call returns can never race with a task goroutine reading it out of
// a Scope snapshot.
func NewExecutionContext(input any, env map[string]string, taskIDs []string) *ExecutionContext {
	tasks := make(map[string]*TaskEntry, len(taskIDs))
	for _, id := range taskIDs {
		tasks[id] = &TaskEntry{Status: core.StatusRunning}
	}
	return &ExecutionContext{Input: deepcopy.Copy(input), Env: env, tasks: tasks}
}

// Entry returns a copy of the task's current entry.
func (c *ExecutionContext) Entry(id string) (TaskEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.tasks[id]
	if !ok {
		return TaskEntry{}, false
	}
	return *e, true
}

// SetTerminal installs entry as the task's final state. It is the single
// write a task's id ever receives; the ExecutionContext invariant forbids
// calling this twice for the same id.
func (c *ExecutionContext) SetTerminal(id string, entry TaskEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks[id] = &entry
}

// Scope builds a template.Scope reflecting every task entry's state at the
// instant of the call.
func (c *ExecutionContext) Scope() *template.Scope {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tasks := make(map[string]template.TaskState, len(c.tasks))
	for id, e := range c.tasks {
		tasks[id] = template.TaskState{Status: e.Status, Output: e.Output}
	}
	return template.NewScope(c.Input, tasks, c.Env)
}

// Snapshot returns a copy of every task's entry, keyed by id.
func (c *ExecutionContext) Snapshot() map[string]TaskEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]TaskEntry, len(c.tasks))
	for id, e := range c.tasks {
		out[id] = *e
	}
	return out
}
