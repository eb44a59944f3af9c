package execution

import (
	"time"

	"github.com/google/uuid"

	"github.com/compozy/flowcore/engine/core"
	"github.com/compozy/flowcore/engine/task"
)

// Execution is the identity and lifecycle record of one workflow run.
type Execution struct {
	ID           uuid.UUID
	WorkflowName string
	Status       core.StatusType
	StartedAt    time.Time
	CompletedAt  time.Time
}

// TaskDetail is one task's entry in an ExecutionResult, flattened from its
// ExecutionContext TaskEntry for external reporting.
type TaskDetail struct {
	TaskID      string           `json:"taskId"`
	Status      core.StatusType  `json:"status"`
	Output      any              `json:"output,omitempty"`
	RetryCount  int              `json:"retryCount"`
	Error       *task.ErrorInfo  `json:"error,omitempty"`
	StartedAt   time.Time        `json:"startedAt"`
	CompletedAt time.Time        `json:"completedAt"`
}

// ExecutionResult is what ExecuteWorkflow hands back to the caller.
type ExecutionResult struct {
	ExecutionID string          `json:"executionId"`
	Status      core.StatusType `json:"status"`
	Output      map[string]any  `json:"output,omitempty"`
	TaskDetails []TaskDetail    `json:"taskDetails"`
	Errors      []*core.Error   `json:"errors,omitempty"`
	DurationMs  int64           `json:"durationMs"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt time.Time       `json:"completedAt"`
}
