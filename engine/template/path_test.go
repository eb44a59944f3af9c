package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitHead(t *testing.T) {
	t.Run("Should split on the first dot", func(t *testing.T) {
		head, rest := splitHead("output.items.0")
		assert.Equal(t, "output", head)
		assert.Equal(t, "items.0", rest)
	})

	t.Run("Should split on a bracket without consuming it", func(t *testing.T) {
		head, rest := splitHead("items[0].id")
		assert.Equal(t, "items", head)
		assert.Equal(t, "[0].id", rest)
	})

	t.Run("Should return the whole string as head when there is no separator", func(t *testing.T) {
		head, rest := splitHead("input")
		assert.Equal(t, "input", head)
		assert.Empty(t, rest)
	})
}

func TestToGJSONPath(t *testing.T) {
	t.Run("Should rewrite bracket indices into dotted form", func(t *testing.T) {
		assert.Equal(t, "items.0.id", toGJSONPath("items[0].id"))
		assert.Equal(t, "a.1.b.2", toGJSONPath("a[1].b[2]"))
	})

	t.Run("Should leave paths with no brackets unchanged", func(t *testing.T) {
		assert.Equal(t, "a.b.c", toGJSONPath("a.b.c"))
	})
}

func TestLookupJSON(t *testing.T) {
	t.Run("Should return the root unchanged for an empty path", func(t *testing.T) {
		v, err := lookupJSON(map[string]any{"a": 1}, "", "input")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"a": 1}, v)
	})

	t.Run("Should walk nested object fields", func(t *testing.T) {
		v, err := lookupJSON(map[string]any{"a": map[string]any{"b": "c"}}, "a.b", "input.a.b")
		require.NoError(t, err)
		assert.Equal(t, "c", v)
	})

	t.Run("Should walk array indices written with brackets", func(t *testing.T) {
		v, err := lookupJSON(map[string]any{"items": []any{10, 20, 30}}, "items[1]", "input.items[1]")
		require.NoError(t, err)
		assert.Equal(t, int64(20), v)
	})

	t.Run("Should report a missing field distinctly from a type mismatch", func(t *testing.T) {
		_, err := lookupJSON(map[string]any{"a": 1}, "b", "input.b")
		require.Error(t, err)
		var tmplErr *Error
		require.ErrorAs(t, err, &tmplErr)
		assert.Equal(t, KindMissing, tmplErr.Kind)

		_, err = lookupJSON(map[string]any{"a": 1}, "a.b", "input.a.b")
		require.Error(t, err)
		require.ErrorAs(t, err, &tmplErr)
		assert.Equal(t, KindTypeMismatch, tmplErr.Kind)
	})
}
