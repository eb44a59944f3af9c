package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusType_IsTerminal(t *testing.T) {
	t.Run("Should treat Running as non-terminal", func(t *testing.T) {
		assert.False(t, StatusRunning.IsTerminal())
	})

	t.Run("Should treat Succeeded, Failed, and Cancelled as terminal", func(t *testing.T) {
		assert.True(t, StatusSucceeded.IsTerminal())
		assert.True(t, StatusFailed.IsTerminal())
		assert.True(t, StatusCancelled.IsTerminal())
	})
}
