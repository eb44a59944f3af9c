package task

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/compozy/flowcore/engine/template"
	"github.com/compozy/flowcore/engine/workflow"
)

// runWebSocket opens a connection, sends one request frame, and awaits a
// single response frame (or a stream terminated by Sentinel). It shares the
// HTTP task's retry/backoff/circuit policy since both are "call a remote
// service over the network" tasks.
func (r *Runner) runWebSocket(
	ctx context.Context,
	def *workflow.WorkflowTask,
	resolvedInput map[string]any,
	retry workflow.RetryPolicy,
) TaskResult {
	started := time.Now()
	spec := def.WebSocket
	scope := template.NewScope(resolvedInput, nil, nil)
	rawURL, err := r.evaluator.Evaluate(spec.URL, scope)
	if err != nil {
		return templateFailure(started, err)
	}
	url, _ := rawURL.(string)
	message, err := r.evaluator.EvaluateValue(spec.Message, scope)
	if err != nil {
		return templateFailure(started, err)
	}

	if err := r.schemas.Validate(def.InputSchema, resolvedInput); err != nil {
		return schemaFailure(started, err)
	}

	hostname := HostnameOf(url)
	var lastErr *ErrorInfo
	for attempt := 1; attempt <= retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepOrCancel(ctx, backoffDelay(retry.BackoffMs, attempt)); err != nil {
				return TaskResult{
					StartedAt:   started,
					CompletedAt: time.Now(),
					RetryCount:  attempt - 1,
					Error: &ErrorInfo{
						ErrorType:            ErrorTypeTimeout,
						RetryAttempts:        attempt - 1,
						DurationUntilErrorMs: time.Since(started).Milliseconds(),
					},
				}
			}
		}
		allowed, done := r.circuits.Allow(hostname)
		if !allowed {
			return TaskResult{
				StartedAt:   started,
				CompletedAt: time.Now(),
				RetryCount:  attempt - 1,
				Error: &ErrorInfo{
					ErrorType:            ErrorTypeCircuitOpen,
					RetryAttempts:        attempt - 1,
					DurationUntilErrorMs: time.Since(started).Milliseconds(),
					Suggestion:           suggestionFor(ErrorTypeCircuitOpen, 0),
				},
			}
		}
		result, errInfo := r.attemptWebSocket(ctx, url, message, def, spec.Sentinel)
		if errInfo == nil {
			done(true)
			return result
		}
		done(false)
		lastErr = errInfo
		lastErr.RetryAttempts = attempt
		if !lastErr.IsRetryable {
			break
		}
	}
	return TaskResult{StartedAt: started, CompletedAt: time.Now(), RetryCount: lastErr.RetryAttempts, Error: lastErr}
}

func (r *Runner) attemptWebSocket(
	ctx context.Context,
	url string,
	message any,
	def *workflow.WorkflowTask,
	sentinel string,
) (TaskResult, *ErrorInfo) {
	attemptStart := time.Now()
	conn, _, err := r.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return TaskResult{}, &ErrorInfo{
			ErrorType:            ErrorTypeNetworkError,
			IsRetryable:          true,
			DurationUntilErrorMs: time.Since(attemptStart).Milliseconds(),
		}
	}
	defer conn.Close()

	if err := conn.WriteJSON(message); err != nil {
		return TaskResult{}, &ErrorInfo{
			ErrorType:            ErrorTypeNetworkError,
			IsRetryable:          true,
			DurationUntilErrorMs: time.Since(attemptStart).Milliseconds(),
		}
	}

	var output any
	frames := []any{}
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			errType, retryable := classifyNetworkError(err, ctx.Err() != nil)
			return TaskResult{}, &ErrorInfo{
				ErrorType:            errType,
				IsRetryable:          retryable,
				DurationUntilErrorMs: time.Since(attemptStart).Milliseconds(),
			}
		}
		var frame any
		if err := json.Unmarshal(raw, &frame); err != nil {
			return TaskResult{}, &ErrorInfo{
				ErrorType:            ErrorTypeSchemaError,
				IsRetryable:          false,
				DurationUntilErrorMs: time.Since(attemptStart).Milliseconds(),
				Suggestion:           fmt.Sprintf("response frame was not valid JSON: %v", err),
			}
		}
		if sentinel == "" {
			output = frame
			break
		}
		if s, ok := frame.(string); ok && s == sentinel {
			output = frames
			break
		}
		frames = append(frames, frame)
	}

	if err := r.schemas.Validate(def.OutputSchema, output); err != nil {
		return TaskResult{}, &ErrorInfo{
			ErrorType:            ErrorTypeSchemaError,
			IsRetryable:          false,
			DurationUntilErrorMs: time.Since(attemptStart).Milliseconds(),
		}
	}
	return TaskResult{Output: output, Success: true, StartedAt: attemptStart, CompletedAt: time.Now()}, nil
}
