package trace

import "time"

// EventType enumerates the live event stream the Recorder publishes. The
// Recorder treats these as opaque - the edge layer is the only consumer
// that interprets them (e.g., pushing over WebSocket).
type EventType string

const (
	EventWorkflowStarted   EventType = "WorkflowStarted"
	EventTaskStarted       EventType = "TaskStarted"
	EventSignalFlow        EventType = "SignalFlow"
	EventTaskCompleted     EventType = "TaskCompleted"
	EventWorkflowCompleted EventType = "WorkflowCompleted"
	EventAnomalyDetected   EventType = "AnomalyDetected"
)

// Event is one entry in the live stream.
type Event struct {
	Type      EventType `json:"type"`
	At        time.Time `json:"at"`
	TaskID    string    `json:"taskId,omitempty"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}
