package trace

import (
	"sync"
	"time"
)

// subscriberBuffer bounds each subscriber's buffered channel; a subscriber
// that falls behind this far misses new events rather than slowing execution.
const subscriberBuffer = 256

// Recorder accumulates per-task timings and publishes the live event
// stream. One Recorder is created per execution.
type Recorder struct {
	mu            sync.Mutex
	subscribers   map[int]chan Event
	nextSubID     int
	timings       []TaskTiming
	dependencies  []DependencyOrder
	plannedGroups [][]string
}

// NewRecorder builds a Recorder seeded with the planner's layer assignment,
// which becomes PlannedParallelGroups verbatim.
func NewRecorder(plannedGroups [][]string) *Recorder {
	return &Recorder{subscribers: make(map[int]chan Event), plannedGroups: plannedGroups}
}

// Subscribe registers a new listener and returns its channel plus an
// unsubscribe func. The channel is closed on unsubscribe.
func (r *Recorder) Subscribe() (<-chan Event, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextSubID
	r.nextSubID++
	ch := make(chan Event, subscriberBuffer)
	r.subscribers[id] = ch
	return ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if sub, ok := r.subscribers[id]; ok {
			delete(r.subscribers, id)
			close(sub)
		}
	}
}

func (r *Recorder) publish(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.subscribers {
		select {
		case ch <- e:
		default:
			// Subscriber is behind; drop rather than block the execution.
		}
	}
}

func (r *Recorder) WorkflowStarted() {
	r.publish(Event{Type: EventWorkflowStarted, At: time.Now()})
}

func (r *Recorder) TaskStarted(taskID string) {
	r.publish(Event{Type: EventTaskStarted, At: time.Now(), TaskID: taskID})
}

func (r *Recorder) SignalFlow(from, to string) {
	r.publish(Event{Type: EventSignalFlow, At: time.Now(), From: from, To: to})
}

// TaskCompleted records the task's final timing and emits the
// corresponding event. Timings are appended under lock so Build can read
// them safely from any goroutine once every task has reported in.
func (r *Recorder) TaskCompleted(timing TaskTiming) {
	r.mu.Lock()
	r.timings = append(r.timings, timing)
	r.mu.Unlock()
	r.publish(Event{Type: EventTaskCompleted, At: time.Now(), TaskID: timing.TaskID})
}

func (r *Recorder) WorkflowCompleted() {
	r.publish(Event{Type: EventWorkflowCompleted, At: time.Now()})
}

func (r *Recorder) AnomalyDetected(detail string) {
	r.publish(Event{Type: EventAnomalyDetected, At: time.Now(), Detail: detail})
}

// RecordDependencyOrder stores the dependency-wait bookkeeping for one task.
func (r *Recorder) RecordDependencyOrder(entry DependencyOrder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dependencies = append(r.dependencies, entry)
}

// Build assembles the final Trace, computing ActualParallelGroups from the
// recorded timings.
func (r *Recorder) Build() *Trace {
	r.mu.Lock()
	defer r.mu.Unlock()
	timings := append([]TaskTiming(nil), r.timings...)
	return &Trace{
		TaskTimings:           timings,
		DependencyOrder:       append([]DependencyOrder(nil), r.dependencies...),
		PlannedParallelGroups: r.plannedGroups,
		ActualParallelGroups:  ComputeActualParallelGroups(timings),
	}
}
