package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHostnameOf(t *testing.T) {
	t.Run("Should extract the host from a valid URL", func(t *testing.T) {
		assert.Equal(t, "example.com", HostnameOf("https://example.com/users/42"))
		assert.Equal(t, "example.com:8080", HostnameOf("http://example.com:8080/x"))
	})

	t.Run("Should fall back to the raw string for an unparseable URL", func(t *testing.T) {
		assert.Equal(t, "not a url", HostnameOf("not a url"))
	})
}

func TestCircuitRegistry(t *testing.T) {
	t.Run("Should open after the failure threshold and reject further attempts", func(t *testing.T) {
		reg := NewCircuitRegistry(CircuitConfig{
			FailureThreshold:     3,
			CoolOff:              50 * time.Millisecond,
			HalfOpenSuccessCount: 1,
		})
		for i := 0; i < 3; i++ {
			allowed, done := reg.Allow("x.example")
			assert.True(t, allowed)
			done(false)
		}
		allowed, _ := reg.Allow("x.example")
		assert.False(t, allowed, "circuit should be open after reaching the failure threshold")
	})

	t.Run("Should transition through half-open back to closed after cool-off", func(t *testing.T) {
		reg := NewCircuitRegistry(CircuitConfig{
			FailureThreshold:     2,
			CoolOff:              20 * time.Millisecond,
			HalfOpenSuccessCount: 1,
		})
		for i := 0; i < 2; i++ {
			allowed, done := reg.Allow("y.example")
			assert.True(t, allowed)
			done(false)
		}
		allowed, _ := reg.Allow("y.example")
		assert.False(t, allowed)

		time.Sleep(30 * time.Millisecond)

		allowed, done := reg.Allow("y.example")
		assert.True(t, allowed, "circuit should allow a probe request once the cool-off elapses")
		done(true)

		allowed, done = reg.Allow("y.example")
		assert.True(t, allowed)
		done(true)
	})

	t.Run("Should keep independent state per hostname", func(t *testing.T) {
		reg := NewCircuitRegistry(DefaultCircuitConfig())
		allowedA, doneA := reg.Allow("a.example")
		assert.True(t, allowedA)
		doneA(false)
		allowedB, _ := reg.Allow("b.example")
		assert.True(t, allowedB)
	})
}
