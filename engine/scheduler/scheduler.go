// Package scheduler implements the Scheduler (C4): it drives an
// ExecutionPlan, launching each task the instant its predecessors are
// terminal, bounding overall concurrency, and applying the workflow's
// failure and cancellation policy.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/compozy/flowcore/engine/core"
	"github.com/compozy/flowcore/engine/execution"
	"github.com/compozy/flowcore/engine/plan"
	"github.com/compozy/flowcore/engine/task"
	"github.com/compozy/flowcore/engine/template"
	"github.com/compozy/flowcore/engine/trace"
	"github.com/compozy/flowcore/engine/workflow"
)

const (
	// CodeWorkflowTimeout marks the workflow-level deadline expiring.
	CodeWorkflowTimeout = "WorkflowTimeout"
	// CodeCancelled marks an explicit, non-deadline cancellation.
	CodeCancelled = "Cancelled"
	// DefaultParallelism is the worker pool size when Options.Parallelism
	// is left at zero.
	DefaultParallelism = 50
)

// Options configures one Execute call.
type Options struct {
	Parallelism int
}

// Scheduler drives a single ExecutionPlan to completion.
type Scheduler struct {
	runner    *task.Runner
	evaluator *template.Evaluator
}

// New builds a Scheduler around the shared Task Runner and Template
// Evaluator.
func New(runner *task.Runner, evaluator *template.Evaluator) *Scheduler {
	return &Scheduler{runner: runner, evaluator: evaluator}
}

// Execute runs plan's tasks against wf and tasks (the resolved WorkflowTask
// templates keyed by TaskRef.ID), writing results into ec and events/timings
// into rec, until every task is terminal or the execution deadline passes.
// It returns the workflow-level terminal status and, for Failed or
// Cancelled, the top-level error.
func (s *Scheduler) Execute(
	ctx context.Context,
	p *plan.ExecutionPlan,
	wf *workflow.WorkflowDefinition,
	tasks map[string]*workflow.WorkflowTask,
	ec *execution.ExecutionContext,
	rec *trace.Recorder,
	deadline time.Time,
	opts Options,
) (core.StatusType, *core.Error) {
	if len(p.TaskIDs) == 0 {
		return core.StatusSucceeded, nil
	}

	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}
	sem := semaphore.NewWeighted(int64(parallelism))

	runCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	done := make(map[string]chan struct{}, len(p.TaskIDs))
	for _, id := range p.TaskIDs {
		done[id] = make(chan struct{})
	}

	var aborted atomic.Bool
	var abortReason atomic.Value // *core.Error
	var wg sync.WaitGroup

	refByID := make(map[string]*workflow.TaskRef, len(wf.Tasks))
	for i := range wf.Tasks {
		refByID[wf.Tasks[i].ID] = &wf.Tasks[i]
	}

	for _, id := range p.TaskIDs {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			defer close(done[id])
			s.runOne(runCtx, id, refByID[id], tasks[id], p, ec, rec, done, sem, &aborted, &abortReason, wf.Name)
		}(id)
	}

	wg.Wait()

	if runCtx.Err() != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return core.StatusCancelled, core.NewError(
				fmt.Errorf("workflow %q was cancelled", wf.Name),
				CodeCancelled,
				map[string]any{"workflow": wf.Name},
			)
		}
		return core.StatusFailed, core.NewError(
			fmt.Errorf("workflow %q exceeded its deadline", wf.Name),
			CodeWorkflowTimeout,
			map[string]any{"workflow": wf.Name},
		)
	}
	if aborted.Load() {
		if reason, ok := abortReason.Load().(*core.Error); ok {
			return core.StatusFailed, reason
		}
		return core.StatusFailed, nil
	}
	return core.StatusSucceeded, nil
}

// runOne implements the per-task step protocol: wait for predecessors,
// resolve input, acquire a worker slot, invoke the runner, install the
// result.
func (s *Scheduler) runOne(
	ctx context.Context,
	id string,
	ref *workflow.TaskRef,
	def *workflow.WorkflowTask,
	p *plan.ExecutionPlan,
	ec *execution.ExecutionContext,
	rec *trace.Recorder,
	done map[string]chan struct{},
	sem *semaphore.Weighted,
	aborted *atomic.Bool,
	abortReason *atomic.Value,
	workflowName string,
) {
	preds := p.Predecessors[id]
	if !s.awaitPredecessors(ctx, preds, done) {
		s.cancelTask(id, ec, rec, preds)
		return
	}
	readyAt := time.Now()
	for _, pred := range preds {
		rec.SignalFlow(pred, id)
	}
	rec.RecordDependencyOrder(trace.DependencyOrder{TaskID: id, DependsOn: preds, AllTerminalAt: readyAt})

	if aborted.Load() {
		s.cancelTask(id, ec, rec, preds)
		return
	}

	resolvedInput, err := s.evaluator.EvaluateMap(ref.Input, ec.Scope())
	if err != nil {
		s.failTask(id, ec, rec, readyAt, readyAt, 0, &task.ErrorInfo{ErrorType: "TemplateError", IsRetryable: false})
		s.maybeAbort(workflowName, id, aborted, abortReason)
		return
	}

	if err := sem.Acquire(ctx, 1); err != nil {
		s.cancelTask(id, ec, rec, preds)
		return
	}
	defer sem.Release(1)

	if aborted.Load() {
		s.cancelTask(id, ec, rec, preds)
		return
	}

	effDeadline, ok := ctx.Deadline()
	if ref.Timeout != "" {
		if d, err := core.ParseHumanDuration(ref.Timeout); err == nil {
			candidate := time.Now().Add(d)
			if !ok || candidate.Before(effDeadline) {
				effDeadline = candidate
			}
		}
	}

	rec.TaskStarted(id)
	result := s.runner.Run(ctx, ref, def, resolvedInput, effDeadline)

	if ctx.Err() != nil {
		s.cancelTask(id, ec, rec, preds)
		return
	}

	if result.Success {
		ec.SetTerminal(id, execution.TaskEntry{
			Status:      core.StatusSucceeded,
			Output:      result.Output,
			StartedAt:   result.StartedAt,
			CompletedAt: result.CompletedAt,
			ReadyAt:     readyAt,
			RetryCount:  result.RetryCount,
		})
		rec.TaskCompleted(trace.TaskTiming{
			TaskID:      id,
			TaskRef:     ref.TaskRef,
			StartedAt:   result.StartedAt,
			CompletedAt: result.CompletedAt,
			DurationMs:  result.CompletedAt.Sub(result.StartedAt).Milliseconds(),
			WaitTimeMs:  waitTimeMs(preds, readyAt, result.StartedAt),
			WaitedFor:   preds,
			RetryCount:  result.RetryCount,
			Success:     true,
		})
		return
	}

	s.failTask(id, ec, rec, readyAt, result.StartedAt, result.RetryCount, result.Error)
	if !ref.ContinueOnFailure {
		s.maybeAbort(workflowName, id, aborted, abortReason)
	}
}

func waitTimeMs(preds []string, readyAt, startedAt time.Time) int64 {
	if len(preds) == 0 {
		return 0
	}
	return startedAt.Sub(readyAt).Milliseconds()
}

func (s *Scheduler) awaitPredecessors(ctx context.Context, preds []string, done map[string]chan struct{}) bool {
	for _, pred := range preds {
		select {
		case <-done[pred]:
		case <-ctx.Done():
			return false
		}
	}
	return true
}

func (s *Scheduler) cancelTask(id string, ec *execution.ExecutionContext, rec *trace.Recorder, preds []string) {
	now := time.Now()
	ec.SetTerminal(id, execution.TaskEntry{
		Status:      core.StatusCancelled,
		Output:      nil,
		StartedAt:   now,
		CompletedAt: now,
	})
	rec.TaskCompleted(trace.TaskTiming{TaskID: id, StartedAt: now, CompletedAt: now, WaitedFor: preds, Success: false})
}

func (s *Scheduler) failTask(
	id string,
	ec *execution.ExecutionContext,
	rec *trace.Recorder,
	readyAt, startedAt time.Time,
	retryCount int,
	errInfo *task.ErrorInfo,
) {
	completedAt := time.Now()
	ec.SetTerminal(id, execution.TaskEntry{
		Status:      core.StatusFailed,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		ReadyAt:     readyAt,
		RetryCount:  retryCount,
		Error:       errInfo,
	})
	rec.TaskCompleted(trace.TaskTiming{
		TaskID:      id,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		DurationMs:  completedAt.Sub(startedAt).Milliseconds(),
		RetryCount:  retryCount,
		Success:     false,
		Error:       errInfo,
	})
}

func (s *Scheduler) maybeAbort(
	workflowName, taskID string,
	aborted *atomic.Bool,
	abortReason *atomic.Value,
) {
	if aborted.CompareAndSwap(false, true) {
		abortReason.Store(core.NewError(
			fmt.Errorf("task %q failed", taskID),
			"TaskFailed",
			map[string]any{"workflow": workflowName, "taskId": taskID},
		))
	}
}
