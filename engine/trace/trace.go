// Package trace implements the Trace Recorder (C6): per-task timing
// detail, dependency-wait bookkeeping, planned vs. actual parallel
// groupings, and a live, best-effort event stream.
package trace

import (
	"time"

	"github.com/compozy/flowcore/engine/task"
)

// TaskTiming is one task's timing detail.
type TaskTiming struct {
	TaskID      string            `json:"taskId"`
	TaskRef     string            `json:"taskRef"`
	StartedAt   time.Time         `json:"startedAt"`
	CompletedAt time.Time         `json:"completedAt"`
	DurationMs  int64             `json:"durationMs"`
	WaitTimeMs  int64             `json:"waitTimeMs"`
	WaitedFor   []string          `json:"waitedFor"`
	RetryCount  int               `json:"retryCount"`
	Success     bool              `json:"success"`
	Error       *task.ErrorInfo   `json:"error,omitempty"`
}

// DependencyOrder records, for one task, its dependencies and the instant
// all of them became terminal.
type DependencyOrder struct {
	TaskID       string    `json:"taskId"`
	DependsOn    []string  `json:"dependsOn"`
	AllTerminalAt time.Time `json:"allTerminalAt"`
}

// Trace is the complete record of one execution.
type Trace struct {
	TaskTimings           []TaskTiming       `json:"taskTimings"`
	DependencyOrder       []DependencyOrder  `json:"dependencyOrder"`
	PlannedParallelGroups [][]string         `json:"plannedParallelGroups"`
	ActualParallelGroups  [][]string         `json:"actualParallelGroups"`
}
