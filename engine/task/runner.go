package task

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"

	"github.com/compozy/flowcore/engine/template"
	"github.com/compozy/flowcore/engine/workflow"
	"github.com/compozy/flowcore/pkg/logger"
	"github.com/compozy/flowcore/pkg/metrics"
)

// TransformEvaluator is the external, pure transform DSL collaborator: it
// maps a pipeline definition and an input array to an output array.
type TransformEvaluator interface {
	Transform(ctx context.Context, pipeline any, input []any) ([]any, error)
}

// Runner executes a single task invocation. It holds the shared,
// process-wide collaborators (HTTP client, circuit registry, schema
// validator) a Scheduler wires up once and reuses across every task in
// every execution.
type Runner struct {
	http       *resty.Client
	dialer     *websocket.Dialer
	circuits   *CircuitRegistry
	schemas    *SchemaValidator
	evaluator  *template.Evaluator
	transforms TransformEvaluator
	metrics    *metrics.Metrics
}

// NewRunner builds a Runner. evaluator is used to resolve an http/websocket
// task's method/url/headers/body templates; transforms may be nil if the
// workflow never uses transform tasks.
func NewRunner(
	evaluator *template.Evaluator,
	transforms TransformEvaluator,
	circuitCfg CircuitConfig,
	httpTimeout time.Duration,
) *Runner {
	return &Runner{
		http:       resty.New().SetTimeout(httpTimeout),
		dialer:     &websocket.Dialer{HandshakeTimeout: httpTimeout},
		circuits:   NewCircuitRegistry(circuitCfg),
		schemas:    NewSchemaValidator(),
		evaluator:  evaluator,
		transforms: transforms,
	}
}

// WithMetrics attaches a Metrics recorder the Runner reports every
// invocation's duration, attempt count, and circuit-open rejections to. It
// returns the Runner for chaining; a nil m disables recording.
func (r *Runner) WithMetrics(m *metrics.Metrics) *Runner {
	r.metrics = m
	return r
}

// Run executes ref (invoking def, its resolved WorkflowTask template)
// against resolvedInput, honoring deadline and cancellation. It reads its
// arguments and writes nothing to shared state except the TaskResult it
// returns.
func (r *Runner) Run(
	ctx context.Context,
	ref *workflow.TaskRef,
	def *workflow.WorkflowTask,
	resolvedInput map[string]any,
	deadline time.Time,
) TaskResult {
	log := logger.FromContext(ctx).With("taskRef", def.Name, "taskType", string(def.Type))
	runCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()
	retry := ref.EffectiveRetry()

	r.metrics.TaskStarted(ctx)
	var result TaskResult
	switch def.Type {
	case workflow.TaskTypeHTTP:
		result = r.runHTTP(runCtx, def, resolvedInput, retry)
	case workflow.TaskTypeWebSocket:
		result = r.runWebSocket(runCtx, def, resolvedInput, retry)
	case workflow.TaskTypeTransform:
		result = r.runTransform(runCtx, def, resolvedInput)
	default:
		log.Error("unknown task type")
		started := time.Now()
		result = TaskResult{
			Success:     false,
			StartedAt:   started,
			CompletedAt: started,
			Error: &ErrorInfo{
				ErrorType:  ErrorTypeUnknownError,
				Suggestion: "declare the task template with type http, websocket, or transform",
			},
		}
	}
	r.metrics.TaskFinished(ctx, string(def.Type), result.RetryCount+1, result.CompletedAt.Sub(result.StartedAt).Seconds())
	return result
}
