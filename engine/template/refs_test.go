package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferencedTasks(t *testing.T) {
	t.Run("Should collect task ids referenced at the top level", func(t *testing.T) {
		ids, err := ReferencedTasks("/greet?to={{tasks.u.output.name}}")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"u"}, ids)
	})

	t.Run("Should collect task ids nested inside maps and slices", func(t *testing.T) {
		input := map[string]any{
			"a": "{{tasks.x.output.v}}",
			"b": []any{"{{tasks.y.output.v}}", "literal"},
		}
		ids, err := ReferencedTasks(input)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"x", "y"}, ids)
	})

	t.Run("Should deduplicate repeated references to the same task", func(t *testing.T) {
		input := map[string]any{"a": "{{tasks.x.output.v}}", "b": "{{tasks.x.status}}"}
		ids, err := ReferencedTasks(input)
		require.NoError(t, err)
		assert.Equal(t, []string{"x"}, ids)
	})

	t.Run("Should ignore references to input and env", func(t *testing.T) {
		input := map[string]any{"a": "{{input.userId}}", "b": "{{env.API_KEY}}"}
		ids, err := ReferencedTasks(input)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("Should return no ids for non-string literals", func(t *testing.T) {
		ids, err := ReferencedTasks(42)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}
