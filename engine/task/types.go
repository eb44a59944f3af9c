// Package task implements the Task Runner (C2): executing a single HTTP,
// WebSocket, or Transform task with retry, timeout, and circuit breaking.
package task

import "time"

// ErrorType enumerates the task-level failure vocabulary a TaskResult's
// ErrorInfo carries.
type ErrorType string

const (
	ErrorTypeTimeout      ErrorType = "Timeout"
	ErrorTypeHTTPError    ErrorType = "HttpError"
	ErrorTypeNetworkError ErrorType = "NetworkError"
	ErrorTypeSchemaError  ErrorType = "SchemaError"
	ErrorTypeTransform    ErrorType = "TransformError"
	ErrorTypeCircuitOpen  ErrorType = "CircuitOpen"
	ErrorTypeUnknownError ErrorType = "UnknownError"
)

// responseBodyPreviewLimit truncates ErrorInfo.ResponseBodyPreview so a
// large error body never balloons the trace.
const responseBodyPreviewLimit = 512

// ErrorInfo is the structured failure record attached to a TaskResult,
// reported verbatim in the Trace and the external ExecutionResult.
type ErrorInfo struct {
	ErrorType            ErrorType `json:"errorType"`
	ErrorCode            string    `json:"errorCode,omitempty"`
	HTTPStatusCode       int       `json:"httpStatusCode,omitempty"`
	ResponseBodyPreview  string    `json:"responseBodyPreview,omitempty"`
	RetryAttempts        int       `json:"retryAttempts"`
	IsRetryable          bool      `json:"isRetryable"`
	DurationUntilErrorMs int64     `json:"durationUntilErrorMs"`
	Suggestion           string    `json:"suggestion,omitempty"`
}

// TaskResult is what a single Run invocation hands back to the Scheduler.
// It never mutates shared state itself - the Scheduler installs it into the
// ExecutionContext.
type TaskResult struct {
	Output      any
	Success     bool
	RetryCount  int
	Error       *ErrorInfo
	StartedAt   time.Time
	CompletedAt time.Time
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
