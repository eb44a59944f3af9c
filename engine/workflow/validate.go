package workflow

import (
	"fmt"

	"github.com/compozy/flowcore/engine/core"
)

// Definition error codes. These never appear at execution time - they are
// surfaced synchronously from Validate or from the Graph Planner.
const (
	CodeDuplicateTaskId = "DuplicateTaskId"
	CodeUnknownTaskRef  = "UnknownTaskRef"
)

// Validate checks the definition's own structural invariants: a name,
// unique non-empty task ids and a taskRef on every step. It does not resolve taskRef against a
// definition source or check dependsOn/cycles - those are the Graph
// Planner's job, since they require the full adjacency (including implicit
// template edges) to report correctly.
func (d *WorkflowDefinition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("workflow: name is required")
	}
	seen := make(map[string]struct{}, len(d.Tasks))
	for i := range d.Tasks {
		t := &d.Tasks[i]
		if t.ID == "" {
			return fmt.Errorf("workflow %q: task at index %d has no id", d.Name, i)
		}
		if _, dup := seen[t.ID]; dup {
			return core.NewError(
				fmt.Errorf("task id %q declared more than once", t.ID),
				CodeDuplicateTaskId,
				map[string]any{"workflow": d.Name, "taskId": t.ID},
			)
		}
		seen[t.ID] = struct{}{}
		if t.TaskRef == "" {
			return fmt.Errorf("workflow %q: task %q has no taskRef", d.Name, t.ID)
		}
	}
	return nil
}

// ResolveTasks looks up every TaskRef's WorkflowTask template via lookup,
// failing with CodeUnknownTaskRef on the first miss.
func (d *WorkflowDefinition) ResolveTasks(lookup func(taskRef string) (*WorkflowTask, bool)) (map[string]*WorkflowTask, error) {
	out := make(map[string]*WorkflowTask, len(d.Tasks))
	for i := range d.Tasks {
		t := &d.Tasks[i]
		wt, ok := lookup(t.TaskRef)
		if !ok {
			return nil, core.NewError(
				fmt.Errorf("task %q references unknown taskRef %q", t.ID, t.TaskRef),
				CodeUnknownTaskRef,
				map[string]any{"workflow": d.Name, "taskId": t.ID, "taskRef": t.TaskRef},
			)
		}
		if err := wt.Validate(); err != nil {
			return nil, err
		}
		out[t.ID] = wt
	}
	return out, nil
}
