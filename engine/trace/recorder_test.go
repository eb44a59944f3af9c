package trace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Subscribe(t *testing.T) {
	t.Run("Should deliver published events to subscribers", func(t *testing.T) {
		r := NewRecorder([][]string{{"a"}})
		ch, unsubscribe := r.Subscribe()
		defer unsubscribe()

		r.WorkflowStarted()
		select {
		case e := <-ch:
			assert.Equal(t, EventWorkflowStarted, e.Type)
		case <-time.After(time.Second):
			t.Fatal("expected an event")
		}
	})

	t.Run("Should stop delivering events after unsubscribe", func(t *testing.T) {
		r := NewRecorder(nil)
		ch, unsubscribe := r.Subscribe()
		unsubscribe()
		r.WorkflowStarted()
		_, ok := <-ch
		assert.False(t, ok, "channel should be closed")
	})
}

func TestRecorder_Build(t *testing.T) {
	t.Run("Should assemble a trace from recorded timings and planned groups", func(t *testing.T) {
		r := NewRecorder([][]string{{"a"}, {"b", "c"}})
		r.TaskCompleted(TaskTiming{TaskID: "a", StartedAt: at(0), CompletedAt: at(1), Success: true})
		r.RecordDependencyOrder(DependencyOrder{TaskID: "a", AllTerminalAt: at(1)})

		tr := r.Build()
		require.Len(t, tr.TaskTimings, 1)
		assert.Equal(t, "a", tr.TaskTimings[0].TaskID)
		assert.Equal(t, [][]string{{"a"}, {"b", "c"}}, tr.PlannedParallelGroups)
		assert.Equal(t, [][]string{{"a"}}, tr.ActualParallelGroups)
		require.Len(t, tr.DependencyOrder, 1)
	})
}
