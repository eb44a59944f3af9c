package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Run("Should provide sane defaults for scheduler, http, and circuit breaker", func(t *testing.T) {
		cfg := DefaultConfig()
		assert.Equal(t, 50, cfg.Scheduler.Parallelism)
		assert.Equal(t, 30*time.Second, cfg.HTTP.ResponseTimeout)
		assert.Equal(t, uint32(5), cfg.CircuitBreaker.FailureThreshold)
		assert.Equal(t, uint32(2), cfg.CircuitBreaker.HalfOpenSuccessCount)
	})
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Run("Should override defaults from FLOWCORE_ environment variables", func(t *testing.T) {
		t.Setenv("FLOWCORE_SCHEDULER_PARALLELISM", "8")
		t.Setenv("FLOWCORE_CIRCUIT_BREAKER_FAILURE_THRESHOLD", "3")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 8, cfg.Scheduler.Parallelism)
		assert.Equal(t, uint32(3), cfg.CircuitBreaker.FailureThreshold)
	})

	t.Run("Should fall back to defaults when unset", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 50, cfg.Scheduler.Parallelism)
	})
}
