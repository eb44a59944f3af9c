package task

import (
	"context"
	"time"

	"github.com/compozy/flowcore/engine/workflow"
)

// runTransform delegates to the external transform evaluator. No retry, no
// circuit - the pipeline is a pure, synchronous function the Scheduler
// trusts to fail fast.
func (r *Runner) runTransform(
	ctx context.Context,
	def *workflow.WorkflowTask,
	resolvedInput map[string]any,
) TaskResult {
	started := time.Now()
	if r.transforms == nil {
		return TaskResult{
			StartedAt:   started,
			CompletedAt: time.Now(),
			Error: &ErrorInfo{
				ErrorType:  ErrorTypeTransform,
				Suggestion: "no transform evaluator was configured for this runner",
			},
		}
	}

	data, _ := resolvedInput["data"].([]any)
	output, err := r.transforms.Transform(ctx, def.Transform.Pipeline, data)
	if err != nil {
		return TaskResult{
			StartedAt:   started,
			CompletedAt: time.Now(),
			Error: &ErrorInfo{
				ErrorType:            ErrorTypeTransform,
				IsRetryable:          false,
				DurationUntilErrorMs: time.Since(started).Milliseconds(),
				Suggestion:           "check the transform pipeline definition against its input shape",
			},
		}
	}

	if err := r.schemas.Validate(def.OutputSchema, output); err != nil {
		return TaskResult{
			StartedAt:   started,
			CompletedAt: time.Now(),
			Error: &ErrorInfo{
				ErrorType:            ErrorTypeSchemaError,
				DurationUntilErrorMs: time.Since(started).Milliseconds(),
			},
		}
	}
	return TaskResult{Output: output, Success: true, StartedAt: started, CompletedAt: time.Now()}
}
