// Package plan implements the Graph Planner (C3): it compiles a workflow
// definition into a layered ExecutionPlan, merging explicit dependsOn edges
// with implicit edges inferred from template references.
package plan

// Definition error codes, surfaced synchronously from Plan and never seen
// once an execution has started.
const (
	CodeUnknownDependency = "UnknownDependency"
	CodeCyclicDependency  = "CyclicDependency"
	CodeDuplicateTaskId   = "DuplicateTaskId"
)
