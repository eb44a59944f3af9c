package execution

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/compozy/flowcore/engine/core"
	"github.com/compozy/flowcore/engine/output"
	"github.com/compozy/flowcore/engine/plan"
	"github.com/compozy/flowcore/engine/scheduler"
	"github.com/compozy/flowcore/engine/task"
	"github.com/compozy/flowcore/engine/template"
	"github.com/compozy/flowcore/engine/trace"
	"github.com/compozy/flowcore/engine/workflow"
	"github.com/compozy/flowcore/pkg/logger"
	"github.com/compozy/flowcore/pkg/metrics"
)

// defaultTimeout bounds a workflow run that declares no Timeout of its own.
const defaultTimeout = 15 * time.Minute

// Lookup resolves a TaskRef's TaskRef field to the WorkflowTask template it
// names. Implementations typically back this with a repository or an
// in-memory registry the workflow was authored against.
type Lookup func(taskRef string) (*workflow.WorkflowTask, bool)

// Options configures one ExecuteWorkflow call.
type Options struct {
	// Timeout overrides the workflow definition's own Timeout, if any.
	Timeout time.Duration
	// Parallelism bounds the number of tasks the Scheduler runs at once.
	Parallelism int
}

// Orchestrator wires the Graph Planner, Scheduler, Task Runner, Output
// Mapper, and Trace Recorder into the single ExecuteWorkflow entry point.
type Orchestrator struct {
	evaluator *template.Evaluator
	runner    *task.Runner
	lookup    Lookup
}

// NewOrchestrator builds an Orchestrator around the shared evaluator,
// runner, and task-template lookup.
func NewOrchestrator(evaluator *template.Evaluator, runner *task.Runner, lookup Lookup) *Orchestrator {
	return &Orchestrator{evaluator: evaluator, runner: runner, lookup: lookup}
}

// WithMetrics attaches m to the Orchestrator's Task Runner so every
// invocation reports duration, attempts, and circuit-open rejections.
func (o *Orchestrator) WithMetrics(m *metrics.Metrics) *Orchestrator {
	o.runner.WithMetrics(m)
	return o
}

// ExecuteWorkflow plans wf, runs it to completion (or until its deadline or
// a fatal failure), maps its output, and returns the ExecutionResult
// alongside the full Trace.
func (o *Orchestrator) ExecuteWorkflow(
	ctx context.Context,
	wf *workflow.WorkflowDefinition,
	input map[string]any,
	env map[string]string,
	opts Options,
) (*ExecutionResult, *trace.Trace, error) {
	if err := wf.Validate(); err != nil {
		return nil, nil, err
	}
	if err := wf.ApplyDefaults(); err != nil {
		return nil, nil, err
	}
	tasks, err := wf.ResolveTasks(o.lookup)
	if err != nil {
		return nil, nil, err
	}

	p, err := plan.Plan(wf)
	if err != nil {
		return nil, nil, err
	}

	startedAt := time.Now()
	deadline := startedAt.Add(o.resolveTimeout(wf, opts))

	ec := NewExecutionContext(input, env, p.TaskIDs)
	rec := trace.NewRecorder(p.Layers)
	rec.WorkflowStarted()

	log := logger.FromContext(ctx).With("workflow", wf.Name)

	sched := scheduler.New(o.runner, o.evaluator)
	status, execErr := sched.Execute(ctx, p, wf, tasks, ec, rec, deadline, scheduler.Options{Parallelism: opts.Parallelism})
	completedAt := time.Now()
	rec.WorkflowCompleted()

	outputDoc, mapErr := output.Map(o.evaluator, wf.Output, ec.Scope())
	if mapErr != nil {
		log.Error("failed to map workflow output", "error", mapErr)
		if execErr == nil {
			execErr = core.NewError(mapErr, "OutputMappingFailed", map[string]any{"workflow": wf.Name})
			status = core.StatusFailed
		}
	}

	result := &ExecutionResult{
		ExecutionID: uuid.NewString(),
		Status:      status,
		Output:      outputDoc,
		TaskDetails: buildTaskDetails(p.TaskIDs, ec),
		DurationMs:  completedAt.Sub(startedAt).Milliseconds(),
		StartedAt:   startedAt,
		CompletedAt: completedAt,
	}
	if execErr != nil {
		result.Errors = []*core.Error{execErr}
	}

	return result, rec.Build(), nil
}

func (o *Orchestrator) resolveTimeout(wf *workflow.WorkflowDefinition, opts Options) time.Duration {
	if opts.Timeout > 0 {
		return opts.Timeout
	}
	if wf.Timeout != "" {
		if d, err := core.ParseHumanDuration(wf.Timeout); err == nil {
			return d
		}
	}
	return defaultTimeout
}

func buildTaskDetails(taskIDs []string, ec *ExecutionContext) []TaskDetail {
	details := make([]TaskDetail, 0, len(taskIDs))
	for _, id := range taskIDs {
		entry, ok := ec.Entry(id)
		if !ok {
			continue
		}
		details = append(details, TaskDetail{
			TaskID:      id,
			Status:      entry.Status,
			Output:      entry.Output,
			RetryCount:  entry.RetryCount,
			Error:       entry.Error,
			StartedAt:   entry.StartedAt,
			CompletedAt: entry.CompletedAt,
		})
	}
	return details
}
