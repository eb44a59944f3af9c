package plan

import (
	"fmt"
	"sort"

	"github.com/compozy/flowcore/engine/core"
	"github.com/compozy/flowcore/engine/template"
	"github.com/compozy/flowcore/engine/workflow"
)

// ExecutionPlan is the layered, immutable compilation of a WorkflowDefinition.
// Layers are a planning-time artifact only; the Scheduler's runtime
// readiness is edge-driven off Predecessors/Successors, not layer boundaries.
type ExecutionPlan struct {
	TaskIDs      []string
	Layers       [][]string
	IdToLayer    map[string]int
	Predecessors map[string][]string
	Successors   map[string][]string
}

// Plan compiles wf into an ExecutionPlan. It merges explicit dependsOn edges
// with implicit edges inferred from `{{tasks.X…}}` references in each task's
// input, rejects unknown dependency targets and duplicate ids, detects
// cycles, and assigns longest-path layers with id-ascending tie-breaking.
func Plan(wf *workflow.WorkflowDefinition) (*ExecutionPlan, error) {
	ids := make([]string, 0, len(wf.Tasks))
	known := make(map[string]struct{}, len(wf.Tasks))
	for i := range wf.Tasks {
		id := wf.Tasks[i].ID
		if _, dup := known[id]; dup {
			return nil, core.NewError(
				fmt.Errorf("task id %q declared more than once", id),
				CodeDuplicateTaskId,
				map[string]any{"workflow": wf.Name, "taskId": id},
			)
		}
		known[id] = struct{}{}
		ids = append(ids, id)
	}

	preds := make(map[string][]string, len(ids))
	predSet := make(map[string]map[string]struct{}, len(ids))
	for i := range wf.Tasks {
		t := &wf.Tasks[i]
		set := make(map[string]struct{})
		for _, dep := range t.DependsOn {
			set[dep] = struct{}{}
		}
		implicit, err := template.ReferencedTasks(t.Input)
		if err != nil {
			return nil, fmt.Errorf("task %q: scanning input for implicit dependencies: %w", t.ID, err)
		}
		for _, dep := range implicit {
			set[dep] = struct{}{}
		}
		predSet[t.ID] = set
	}
	for id, set := range predSet {
		list := make([]string, 0, len(set))
		for dep := range set {
			if _, ok := known[dep]; !ok {
				return nil, core.NewError(
					fmt.Errorf("task %q depends on unknown task %q", id, dep),
					CodeUnknownDependency,
					map[string]any{"workflow": wf.Name, "taskId": id, "dependsOn": dep},
				)
			}
			list = append(list, dep)
		}
		sort.Strings(list)
		preds[id] = list
	}

	if cycle := findCycle(ids, preds); cycle != nil {
		return nil, core.NewError(
			fmt.Errorf("cyclic dependency: %v", cycle),
			CodeCyclicDependency,
			map[string]any{"workflow": wf.Name, "cycle": cycle},
		)
	}

	layerOf := make(map[string]int, len(ids))
	var assign func(id string) int
	assign = func(id string) int {
		if l, ok := layerOf[id]; ok {
			return l
		}
		maxPred := -1
		for _, dep := range preds[id] {
			if l := assign(dep); l > maxPred {
				maxPred = l
			}
		}
		l := maxPred + 1
		layerOf[id] = l
		return l
	}
	maxLayer := -1
	for _, id := range ids {
		if l := assign(id); l > maxLayer {
			maxLayer = l
		}
	}

	layers := make([][]string, maxLayer+1)
	for i := range layers {
		layers[i] = make([]string, 0)
	}
	for _, id := range ids {
		l := layerOf[id]
		layers[l] = append(layers[l], id)
	}
	for _, layer := range layers {
		sort.Strings(layer)
	}

	succs := make(map[string][]string, len(ids))
	for id, deps := range preds {
		for _, dep := range deps {
			succs[dep] = append(succs[dep], id)
		}
	}
	for id := range succs {
		sort.Strings(succs[id])
	}

	sort.Strings(ids)
	return &ExecutionPlan{
		TaskIDs:      ids,
		Layers:       layers,
		IdToLayer:    layerOf,
		Predecessors: preds,
		Successors:   succs,
	}, nil
}

// findCycle runs a DFS with an on-stack set over the dependency graph and
// returns the ids forming a cycle, or nil if the graph is acyclic.
func findCycle(ids []string, preds map[string][]string) []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(ids))
	var stack []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = gray
		stack = append(stack, id)
		for _, dep := range preds[id] {
			switch color[dep] {
			case gray:
				cycle = cycleFromStack(stack, dep)
				return true
			case white:
				if visit(dep) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return false
	}

	sortedIDs := append([]string(nil), ids...)
	sort.Strings(sortedIDs)
	for _, id := range sortedIDs {
		if color[id] == white {
			if visit(id) {
				return cycle
			}
		}
	}
	return nil
}

func cycleFromStack(stack []string, target string) []string {
	for i, id := range stack {
		if id == target {
			out := append([]string(nil), stack[i:]...)
			return append(out, target)
		}
	}
	return append([]string(nil), stack...)
}
