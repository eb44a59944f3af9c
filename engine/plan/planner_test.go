package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/flowcore/engine/core"
	"github.com/compozy/flowcore/engine/workflow"
)

func TestPlan_DiamondDAG(t *testing.T) {
	t.Run("Should layer a diamond DAG with b and c sharing a layer", func(t *testing.T) {
		wf := &workflow.WorkflowDefinition{
			Name: "diamond",
			Tasks: []workflow.TaskRef{
				{ID: "a", TaskRef: "t"},
				{ID: "b", TaskRef: "t", DependsOn: []string{"a"}},
				{ID: "c", TaskRef: "t", DependsOn: []string{"a"}},
				{ID: "d", TaskRef: "t", DependsOn: []string{"b", "c"}},
			},
		}
		p, err := Plan(wf)
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"a"}, {"b", "c"}, {"d"}}, p.Layers)
		assert.Equal(t, 0, p.IdToLayer["a"])
		assert.Equal(t, 1, p.IdToLayer["b"])
		assert.Equal(t, 1, p.IdToLayer["c"])
		assert.Equal(t, 2, p.IdToLayer["d"])
	})
}

func TestPlan_ImplicitDependencies(t *testing.T) {
	t.Run("Should merge implicit template edges with explicit dependsOn", func(t *testing.T) {
		wf := &workflow.WorkflowDefinition{
			Name: "w",
			Tasks: []workflow.TaskRef{
				{ID: "u", TaskRef: "t"},
				{ID: "g", TaskRef: "t", Input: map[string]any{"to": "{{tasks.u.output.name}}"}},
			},
		}
		p, err := Plan(wf)
		require.NoError(t, err)
		assert.Equal(t, []string{"u"}, p.Predecessors["g"])
		assert.Equal(t, 0, p.IdToLayer["u"])
		assert.Equal(t, 1, p.IdToLayer["g"])
	})

	t.Run("Should not duplicate an edge declared both ways", func(t *testing.T) {
		wf := &workflow.WorkflowDefinition{
			Name: "w",
			Tasks: []workflow.TaskRef{
				{ID: "u", TaskRef: "t"},
				{
					ID:        "g",
					TaskRef:   "t",
					DependsOn: []string{"u"},
					Input:     map[string]any{"to": "{{tasks.u.output.name}}"},
				},
			},
		}
		p, err := Plan(wf)
		require.NoError(t, err)
		assert.Equal(t, []string{"u"}, p.Predecessors["g"])
	})
}

func TestPlan_Failures(t *testing.T) {
	t.Run("Should reject a dependency on an unknown task", func(t *testing.T) {
		wf := &workflow.WorkflowDefinition{
			Name:  "w",
			Tasks: []workflow.TaskRef{{ID: "a", TaskRef: "t", DependsOn: []string{"missing"}}},
		}
		_, err := Plan(wf)
		require.Error(t, err)
		var coreErr *core.Error
		require.ErrorAs(t, err, &coreErr)
		assert.Equal(t, CodeUnknownDependency, coreErr.Code)
	})

	t.Run("Should reject duplicate task ids", func(t *testing.T) {
		wf := &workflow.WorkflowDefinition{
			Name:  "w",
			Tasks: []workflow.TaskRef{{ID: "a", TaskRef: "t"}, {ID: "a", TaskRef: "t"}},
		}
		_, err := Plan(wf)
		require.Error(t, err)
		var coreErr *core.Error
		require.ErrorAs(t, err, &coreErr)
		assert.Equal(t, CodeDuplicateTaskId, coreErr.Code)
	})

	t.Run("Should reject a cyclic dependency graph", func(t *testing.T) {
		wf := &workflow.WorkflowDefinition{
			Name: "w",
			Tasks: []workflow.TaskRef{
				{ID: "a", TaskRef: "t", DependsOn: []string{"b"}},
				{ID: "b", TaskRef: "t", DependsOn: []string{"a"}},
			},
		}
		_, err := Plan(wf)
		require.Error(t, err)
		var coreErr *core.Error
		require.ErrorAs(t, err, &coreErr)
		assert.Equal(t, CodeCyclicDependency, coreErr.Code)
	})
}

func TestPlan_DeterministicTieBreaking(t *testing.T) {
	t.Run("Should order tasks within a layer by id ascending", func(t *testing.T) {
		wf := &workflow.WorkflowDefinition{
			Name: "w",
			Tasks: []workflow.TaskRef{
				{ID: "z", TaskRef: "t"},
				{ID: "m", TaskRef: "t"},
				{ID: "a", TaskRef: "t"},
			},
		}
		p, err := Plan(wf)
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"a", "m", "z"}}, p.Layers)
	})
}

func TestPlan_EmptyWorkflow(t *testing.T) {
	t.Run("Should produce an empty plan for a workflow with zero tasks", func(t *testing.T) {
		wf := &workflow.WorkflowDefinition{Name: "w"}
		p, err := Plan(wf)
		require.NoError(t, err)
		assert.Empty(t, p.TaskIDs)
		assert.Empty(t, p.Layers)
	})
}
