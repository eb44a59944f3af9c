package task

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/flowcore/engine/template"
	"github.com/compozy/flowcore/engine/workflow"
)

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	ev, err := template.NewEvaluator()
	require.NoError(t, err)
	return NewRunner(ev, nil, DefaultCircuitConfig(), 2*time.Second)
}

func TestRunner_HTTP_Success(t *testing.T) {
	t.Run("Should resolve templates, invoke the service, and return its body as output", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/users/42", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"name": "Ada"})
		}))
		defer srv.Close()

		r := newTestRunner(t)
		def := &workflow.WorkflowTask{
			Name: "fetchUser",
			Type: workflow.TaskTypeHTTP,
			HTTP: &workflow.HTTPSpec{Method: "GET", URL: srv.URL + "/users/{{input.userId}}"},
		}
		ref := &workflow.TaskRef{ID: "u", TaskRef: "fetchUser"}
		result := r.Run(t.Context(), ref, def, map[string]any{"userId": int64(42)}, time.Now().Add(2*time.Second))
		require.True(t, result.Success)
		require.Nil(t, result.Error)
		assert.Equal(t, map[string]any{"name": "Ada"}, result.Output)
	})
}

func TestRunner_HTTP_RetryThenSucceed(t *testing.T) {
	t.Run("Should retry on 500 and succeed once the service recovers", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := atomic.AddInt32(&calls, 1)
			if n <= 2 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
		}))
		defer srv.Close()

		r := newTestRunner(t)
		def := &workflow.WorkflowTask{
			Name: "flaky",
			Type: workflow.TaskTypeHTTP,
			HTTP: &workflow.HTTPSpec{Method: "GET", URL: srv.URL},
		}
		ref := &workflow.TaskRef{
			ID:      "f",
			TaskRef: "flaky",
			Retry:   &workflow.RetryPolicy{MaxAttempts: 3, BackoffMs: 5},
		}
		result := r.Run(t.Context(), ref, def, map[string]any{}, time.Now().Add(2*time.Second))
		require.True(t, result.Success)
		assert.Equal(t, 2, result.RetryCount)
		assert.Equal(t, map[string]any{"ok": true}, result.Output)
	})
}

func TestRunner_HTTP_Fatal4xx(t *testing.T) {
	t.Run("Should not retry a 400 and report it as non-retryable", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer srv.Close()

		r := newTestRunner(t)
		def := &workflow.WorkflowTask{
			Name: "bad",
			Type: workflow.TaskTypeHTTP,
			HTTP: &workflow.HTTPSpec{Method: "GET", URL: srv.URL},
		}
		ref := &workflow.TaskRef{ID: "b", TaskRef: "bad", Retry: &workflow.RetryPolicy{MaxAttempts: 3, BackoffMs: 5}}
		result := r.Run(t.Context(), ref, def, map[string]any{}, time.Now().Add(2*time.Second))
		require.False(t, result.Success)
		require.NotNil(t, result.Error)
		assert.Equal(t, ErrorTypeHTTPError, result.Error.ErrorType)
		assert.Equal(t, 400, result.Error.HTTPStatusCode)
		assert.False(t, result.Error.IsRetryable)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})
}

func TestRunner_HTTP_CircuitOpens(t *testing.T) {
	t.Run("Should open the circuit after the failure threshold and fail fast", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		ev, err := template.NewEvaluator()
		require.NoError(t, err)
		r := NewRunner(ev, nil, CircuitConfig{FailureThreshold: 2, CoolOff: time.Second, HalfOpenSuccessCount: 1}, 2*time.Second)
		def := &workflow.WorkflowTask{
			Name: "broken",
			Type: workflow.TaskTypeHTTP,
			HTTP: &workflow.HTTPSpec{Method: "GET", URL: srv.URL},
		}
		ref := &workflow.TaskRef{ID: "x", TaskRef: "broken", Retry: &workflow.RetryPolicy{MaxAttempts: 1, BackoffMs: 1}}

		for i := 0; i < 2; i++ {
			result := r.Run(t.Context(), ref, def, map[string]any{}, time.Now().Add(2*time.Second))
			require.False(t, result.Success)
		}
		result := r.Run(t.Context(), ref, def, map[string]any{}, time.Now().Add(2*time.Second))
		require.False(t, result.Success)
		require.NotNil(t, result.Error)
		assert.Equal(t, ErrorTypeCircuitOpen, result.Error.ErrorType)
	})
}
