// Package workflow holds the data model a WorkflowDefinition is built from:
// TaskRef steps, the WorkflowTask templates they reference, and the input
// schema the edge layer validates against before the core ever sees a
// request.
package workflow

import (
	"fmt"

	"dario.cat/mergo"
)

// TaskType enumerates the task variants the Task Runner dispatches on.
type TaskType string

const (
	TaskTypeHTTP      TaskType = "http"
	TaskTypeWebSocket TaskType = "websocket"
	TaskTypeTransform TaskType = "transform"
)

func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeHTTP, TaskTypeWebSocket, TaskTypeTransform:
		return true
	default:
		return false
	}
}

// PropertySchema describes one field of an input schema.
type PropertySchema struct {
	Type     string `json:"type,omitempty"     yaml:"type,omitempty"`
	Required bool   `json:"required,omitempty" yaml:"required,omitempty"`
	Format   string `json:"format,omitempty"   yaml:"format,omitempty"`
}

// InputSchema is the recognized option set a WorkflowDefinition's input is
// described with: a type tag, a property map, and a required-field list.
type InputSchema struct {
	Type       string                    `json:"type,omitempty"       yaml:"type,omitempty"`
	Properties map[string]PropertySchema `json:"properties,omitempty" yaml:"properties,omitempty"`
	Required   []string                  `json:"required,omitempty"   yaml:"required,omitempty"`
}

// RetryPolicy controls how many times a task attempts and the exponential
// backoff between attempts, capped at 30s.
type RetryPolicy struct {
	MaxAttempts int `json:"maxAttempts,omitempty" yaml:"maxAttempts,omitempty"`
	BackoffMs   int `json:"backoffMs,omitempty"   yaml:"backoffMs,omitempty"`
}

// DefaultRetryPolicy is the policy a TaskRef gets when it declares none.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BackoffMs: 100}
}

// WithDefaults fills zero fields with DefaultRetryPolicy's values.
func (r RetryPolicy) WithDefaults() RetryPolicy {
	d := DefaultRetryPolicy()
	if r.MaxAttempts <= 0 {
		r.MaxAttempts = d.MaxAttempts
	}
	if r.BackoffMs <= 0 {
		r.BackoffMs = d.BackoffMs
	}
	return r
}

// TaskRef is a step in a workflow: it names the WorkflowTask to invoke, the
// template input to resolve for it, and its explicit predecessors.
type TaskRef struct {
	ID                string         `json:"id"                          yaml:"id"`
	TaskRef           string         `json:"taskRef"                     yaml:"taskRef"`
	Input             map[string]any `json:"input,omitempty"             yaml:"input,omitempty"`
	DependsOn         []string       `json:"dependsOn,omitempty"         yaml:"dependsOn,omitempty"`
	Timeout           string         `json:"timeout,omitempty"           yaml:"timeout,omitempty"`
	Retry             *RetryPolicy   `json:"retry,omitempty"             yaml:"retry,omitempty"`
	ContinueOnFailure bool           `json:"continueOnFailure,omitempty" yaml:"continueOnFailure,omitempty"`
}

// EffectiveRetry returns the TaskRef's retry policy with defaults applied.
func (t *TaskRef) EffectiveRetry() RetryPolicy {
	if t.Retry == nil {
		return DefaultRetryPolicy()
	}
	return t.Retry.WithDefaults()
}

// HTTPSpec is the template form of an HTTP task: every field is resolved
// against the invocation's input before the request is sent.
type HTTPSpec struct {
	Method  string            `json:"method"            yaml:"method"`
	URL     string            `json:"url"               yaml:"url"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body    any               `json:"body,omitempty"    yaml:"body,omitempty"`
}

// TransformSpec wraps a pipeline definition handed to the external
// transform evaluator as an opaque value.
type TransformSpec struct {
	Pipeline any `json:"pipeline" yaml:"pipeline"`
}

// WebSocketSpec is the template form of a WebSocket task.
type WebSocketSpec struct {
	URL     string            `json:"url"               yaml:"url"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Message any               `json:"message,omitempty" yaml:"message,omitempty"`
	// Sentinel, when set, is the frame value that terminates a streamed
	// response; absent means a single response frame is expected.
	Sentinel string `json:"sentinel,omitempty" yaml:"sentinel,omitempty"`
}

// WorkflowTask is a reusable task template, referenced by TaskRef.TaskRef.
type WorkflowTask struct {
	Name         string         `json:"name"                   yaml:"name"`
	Type         TaskType       `json:"type"                   yaml:"type"`
	HTTP         *HTTPSpec      `json:"http,omitempty"         yaml:"http,omitempty"`
	WebSocket    *WebSocketSpec `json:"websocket,omitempty"    yaml:"websocket,omitempty"`
	Transform    *TransformSpec `json:"transform,omitempty"    yaml:"transform,omitempty"`
	InputSchema  map[string]any `json:"inputSchema,omitempty"  yaml:"inputSchema,omitempty"`
	OutputSchema map[string]any `json:"outputSchema,omitempty" yaml:"outputSchema,omitempty"`
}

// Validate checks that the task template carries the spec matching its
// declared Type and nothing else.
func (w *WorkflowTask) Validate() error {
	if w.Name == "" {
		return fmt.Errorf("workflow task: name is required")
	}
	if !w.Type.Valid() {
		return fmt.Errorf("workflow task %q: unknown type %q", w.Name, w.Type)
	}
	switch w.Type {
	case TaskTypeHTTP:
		if w.HTTP == nil {
			return fmt.Errorf("workflow task %q: http spec is required for type http", w.Name)
		}
	case TaskTypeWebSocket:
		if w.WebSocket == nil {
			return fmt.Errorf("workflow task %q: websocket spec is required for type websocket", w.Name)
		}
	case TaskTypeTransform:
		if w.Transform == nil {
			return fmt.Errorf("workflow task %q: transform spec is required for type transform", w.Name)
		}
	}
	return nil
}

// TaskDefaults holds workflow-wide fallback options every TaskRef inherits
// unless it sets its own timeout or retry policy.
type TaskDefaults struct {
	Timeout string       `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Retry   *RetryPolicy `json:"retry,omitempty"   yaml:"retry,omitempty"`
}

// WorkflowDefinition is the immutable-per-execution root of the data model:
// identity, input schema, the ordered task list in authoring order, the
// output template, and an optional workflow-wide deadline.
type WorkflowDefinition struct {
	Name      string            `json:"name"              yaml:"name"`
	Namespace string            `json:"namespace"         yaml:"namespace"`
	Input     *InputSchema      `json:"input,omitempty"   yaml:"input,omitempty"`
	Tasks     []TaskRef         `json:"tasks"             yaml:"tasks"`
	Defaults  *TaskDefaults     `json:"defaults,omitempty" yaml:"defaults,omitempty"`
	Output    map[string]string `json:"output,omitempty"  yaml:"output,omitempty"`
	Timeout   string            `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// ApplyDefaults fills every TaskRef's empty Timeout/Retry from Defaults,
// leaving any per-task override untouched. It is a no-op when the
// definition declares no Defaults.
func (d *WorkflowDefinition) ApplyDefaults() error {
	if d.Defaults == nil {
		return nil
	}
	for i := range d.Tasks {
		t := &d.Tasks[i]
		type taskOptions struct {
			Timeout string
			Retry   *RetryPolicy
		}
		dst := taskOptions{Timeout: t.Timeout, Retry: t.Retry}
		src := taskOptions{Timeout: d.Defaults.Timeout, Retry: d.Defaults.Retry}
		if err := mergo.Merge(&dst, src); err != nil {
			return fmt.Errorf("workflow %q: failed to apply task defaults: %w", d.Name, err)
		}
		t.Timeout = dst.Timeout
		t.Retry = dst.Retry
	}
	return nil
}

// FindTask returns the TaskRef with the given id, or false if none matches.
func (d *WorkflowDefinition) FindTask(id string) (*TaskRef, bool) {
	for i := range d.Tasks {
		if d.Tasks[i].ID == id {
			return &d.Tasks[i], true
		}
	}
	return nil, false
}
