package task

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/compozy/flowcore/engine/template"
	"github.com/compozy/flowcore/engine/workflow"
)

// httpInvocation is the template-resolved form of an HTTPSpec, ready to
// dispatch.
type httpInvocation struct {
	method  string
	url     string
	headers map[string]string
	body    any
}

func (r *Runner) resolveHTTP(spec *workflow.HTTPSpec, resolvedInput map[string]any) (*httpInvocation, error) {
	scope := template.NewScope(resolvedInput, nil, nil)
	method, err := r.evaluator.Evaluate(spec.Method, scope)
	if err != nil {
		return nil, err
	}
	rawURL, err := r.evaluator.Evaluate(spec.URL, scope)
	if err != nil {
		return nil, err
	}
	headers := make(map[string]string, len(spec.Headers))
	for k, v := range spec.Headers {
		resolved, err := r.evaluator.Evaluate(v, scope)
		if err != nil {
			return nil, err
		}
		s, _ := resolved.(string)
		headers[k] = s
	}
	body, err := r.evaluator.EvaluateValue(spec.Body, scope)
	if err != nil {
		return nil, err
	}
	methodStr, _ := method.(string)
	urlStr, _ := rawURL.(string)
	return &httpInvocation{method: methodStr, url: urlStr, headers: headers, body: body}, nil
}

// runHTTP implements the HTTP task protocol: template-resolve, validate
// input schema, attempt up to maxAttempts times respecting the circuit
// breaker and backoff, validate the response against the output schema.
func (r *Runner) runHTTP(
	ctx context.Context,
	def *workflow.WorkflowTask,
	resolvedInput map[string]any,
	retry workflow.RetryPolicy,
) TaskResult {
	started := time.Now()
	inv, err := r.resolveHTTP(def.HTTP, resolvedInput)
	if err != nil {
		return templateFailure(started, err)
	}

	if err := r.schemas.Validate(def.InputSchema, resolvedInput); err != nil {
		return schemaFailure(started, err)
	}

	hostname := HostnameOf(inv.url)
	return r.runWithRetry(ctx, hostname, started, retry, func(ctx context.Context, attempt int) (TaskResult, *ErrorInfo) {
		return r.attemptHTTP(ctx, inv, def, attempt)
	})
}

func (r *Runner) attemptHTTP(
	ctx context.Context,
	inv *httpInvocation,
	def *workflow.WorkflowTask,
	attempt int,
) (TaskResult, *ErrorInfo) {
	attemptStart := time.Now()
	req := r.http.R().SetContext(ctx).SetHeader("X-Request-Id", ksuid.New().String())
	for k, v := range inv.headers {
		req.SetHeader(k, v)
	}
	if inv.body != nil {
		req.SetBody(inv.body)
	}
	resp, err := req.Execute(inv.method, inv.url)
	if err != nil {
		errType, retryable := classifyNetworkError(err, ctx.Err() != nil)
		return TaskResult{}, &ErrorInfo{
			ErrorType:            errType,
			IsRetryable:          retryable,
			DurationUntilErrorMs: time.Since(attemptStart).Milliseconds(),
			Suggestion:           suggestionFor(errType, 0),
		}
	}
	status := resp.StatusCode()
	if status >= 400 {
		errType, retryable := classifyHTTPStatus(status)
		return TaskResult{}, &ErrorInfo{
			ErrorType:            errType,
			HTTPStatusCode:       status,
			ResponseBodyPreview:  truncate(string(resp.Body()), responseBodyPreviewLimit),
			IsRetryable:          retryable,
			DurationUntilErrorMs: time.Since(attemptStart).Milliseconds(),
			Suggestion:           suggestionFor(errType, status),
		}
	}
	output, err := parseResponseBody(resp.Body())
	if err != nil {
		return TaskResult{}, &ErrorInfo{
			ErrorType:            ErrorTypeSchemaError,
			IsRetryable:          false,
			DurationUntilErrorMs: time.Since(attemptStart).Milliseconds(),
		}
	}
	if err := r.schemas.Validate(def.OutputSchema, output); err != nil {
		return TaskResult{}, &ErrorInfo{
			ErrorType:            ErrorTypeSchemaError,
			IsRetryable:          false,
			DurationUntilErrorMs: time.Since(attemptStart).Milliseconds(),
			Suggestion:           suggestionFor(ErrorTypeSchemaError, 0),
		}
	}
	return TaskResult{Output: output, Success: true, StartedAt: attemptStart, CompletedAt: time.Now()}, nil
}

func parseResponseBody(body []byte) (any, error) {
	if len(body) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func sleepOrCancel(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func templateFailure(started time.Time, err error) TaskResult {
	return TaskResult{
		StartedAt:   started,
		CompletedAt: time.Now(),
		Error: &ErrorInfo{
			ErrorType:            ErrorTypeUnknownError,
			IsRetryable:          false,
			DurationUntilErrorMs: time.Since(started).Milliseconds(),
			Suggestion:           fmt.Sprintf("fix the task template: %v", err),
		},
	}
}

func schemaFailure(started time.Time, err error) TaskResult {
	return TaskResult{
		StartedAt:   started,
		CompletedAt: time.Now(),
		Error: &ErrorInfo{
			ErrorType:            ErrorTypeSchemaError,
			IsRetryable:          false,
			DurationUntilErrorMs: time.Since(started).Milliseconds(),
			Suggestion:           fmt.Sprintf("input does not satisfy inputSchema: %v", err),
		},
	}
}
