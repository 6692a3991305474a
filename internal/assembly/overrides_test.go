package assembly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeOverrideGraph() *AssemblyGraph {
	steps := map[string]*AssemblyStep{
		"step_001": {
			ID:              "step_001",
			Name:            "Pick gear_sun",
			PartIDs:         []string{"gear_sun"},
			Handler:         HandlerPrimitive,
			PrimitiveType:   "pick",
			PrimitiveParams: map[string]interface{}{"part_id": "gear_sun", "approach_height": 0.05},
			MaxRetries:      3,
		},
		"step_002": {
			ID:              "step_002",
			Name:            "Assemble gear_sun onto shaft",
			PartIDs:         []string{"gear_sun", "shaft"},
			Handler:         HandlerPrimitive,
			PrimitiveType:   "place",
			PrimitiveParams: map[string]interface{}{"part_id": "gear_sun", "target_pose": []float64{0.1, 0, 0}},
			MaxRetries:      3,
		},
		"step_003": {
			ID:              "step_003",
			Name:            "Insert bearing into housing",
			PartIDs:         []string{"bearing", "housing"},
			Handler:         HandlerPrimitive,
			PrimitiveType:   "linear_insert",
			PrimitiveParams: map[string]interface{}{"part_id": "bearing", "force_limit": 10.0},
			MaxRetries:      3,
		},
	}
	return &AssemblyGraph{
		ID:        "test_asm",
		Name:      "Test Assembly",
		Steps:     steps,
		StepOrder: []string{"step_001", "step_002", "step_003"},
	}
}

func handlerPtr(h Handler) *Handler { return &h }
func strPtr(s string) *string       { return &s }
func intPtr(i int) *int             { return &i }

func TestOverrideSaveLoadRoundtrip(t *testing.T) {
	store := NewOverrideStore(t.TempDir())

	err := store.Add("test_asm", &StepOverride{
		MatchPattern: "Pick gear_sun",
		MatchPartIDs: []string{"gear_sun"},
		Handler:      handlerPtr(HandlerPolicy),
		PolicyID:     strPtr("checkpoints/gear_sun.pt"),
		Source:       "user",
		CreatedAt:    "2026-02-19T10:00:00Z",
	})
	require.NoError(t, err)

	loaded, err := store.Load("test_asm")
	require.NoError(t, err)
	require.Len(t, loaded.Overrides, 1)
	ov := loaded.Overrides[0]
	assert.Equal(t, "Pick gear_sun", ov.MatchPattern)
	assert.Equal(t, []string{"gear_sun"}, ov.MatchPartIDs)
	assert.Equal(t, HandlerPolicy, *ov.Handler)
	assert.Equal(t, "checkpoints/gear_sun.pt", *ov.PolicyID)
	assert.Equal(t, "user", ov.Source)
	assert.Equal(t, "2026-02-19T10:00:00Z", ov.CreatedAt)
}

func TestOverrideLoadMissingIsEmpty(t *testing.T) {
	store := NewOverrideStore(t.TempDir())
	loaded, err := store.Load("nonexistent")
	require.NoError(t, err)
	assert.Empty(t, loaded.Overrides)
}

func TestOverrideApplyByPartID(t *testing.T) {
	store := NewOverrideStore(t.TempDir())
	graph := makeOverrideGraph()

	require.NoError(t, store.Add("test_asm", &StepOverride{
		MatchPartIDs: []string{"gear_sun"},
		Handler:      handlerPtr(HandlerPolicy),
		MaxRetries:   intPtr(5),
	}))

	count, err := store.Apply(graph)
	require.NoError(t, err)

	// gear_sun appears in step_001 and step_002.
	assert.Equal(t, 2, count)
	assert.Equal(t, HandlerPolicy, graph.Steps["step_001"].Handler)
	assert.Equal(t, 5, graph.Steps["step_001"].MaxRetries)
	assert.Equal(t, HandlerPolicy, graph.Steps["step_002"].Handler)
	assert.Equal(t, HandlerPrimitive, graph.Steps["step_003"].Handler)
	assert.Equal(t, 3, graph.Steps["step_003"].MaxRetries)
}

func TestOverrideApplyByNamePattern(t *testing.T) {
	store := NewOverrideStore(t.TempDir())
	graph := makeOverrideGraph()

	require.NoError(t, store.Add("test_asm", &StepOverride{
		MatchPattern: "INSERT BEARING",
		Handler:      handlerPtr(HandlerPolicy),
	}))

	count, err := store.Apply(graph)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, HandlerPolicy, graph.Steps["step_003"].Handler)
	assert.Equal(t, HandlerPrimitive, graph.Steps["step_001"].Handler)
	assert.Equal(t, HandlerPrimitive, graph.Steps["step_002"].Handler)
}

func TestOverrideBothMatchFieldsMustHold(t *testing.T) {
	// Pattern matches step_002 but the part filter excludes it.
	ov := &StepOverride{MatchPattern: "Assemble", MatchPartIDs: []string{"bearing"}}
	graph := makeOverrideGraph()
	assert.False(t, ov.Matches(graph.Steps["step_002"]))
	assert.False(t, ov.Matches(graph.Steps["step_003"]))

	// An override with no match fields applies to nothing.
	assert.False(t, (&StepOverride{}).Matches(graph.Steps["step_001"]))
}

func TestOverrideParamsMerge(t *testing.T) {
	store := NewOverrideStore(t.TempDir())
	graph := makeOverrideGraph()

	require.NoError(t, store.Add("test_asm", &StepOverride{
		MatchPartIDs: []string{"bearing"},
		PrimitiveParams: map[string]interface{}{
			"force_limit":     25.0,
			"compliance_axes": []bool{true, true, false, false, false, false},
		},
	}))

	count, err := store.Apply(graph)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	params := graph.Steps["step_003"].PrimitiveParams
	assert.Equal(t, "bearing", params["part_id"])
	assert.Equal(t, 25.0, params["force_limit"])
	assert.Equal(t, []bool{true, true, false, false, false, false}, params["compliance_axes"])
}

func TestOverridesApplyInStoredOrder(t *testing.T) {
	store := NewOverrideStore(t.TempDir())
	graph := makeOverrideGraph()

	require.NoError(t, store.Add("test_asm", &StepOverride{
		MatchPartIDs: []string{"bearing"},
		MaxRetries:   intPtr(5),
		Source:       "ai",
	}))
	require.NoError(t, store.Add("test_asm", &StepOverride{
		MatchPartIDs: []string{"bearing"},
		MaxRetries:   intPtr(2),
		Source:       "user",
	}))

	_, err := store.Apply(graph)
	require.NoError(t, err)
	// Later (user) override wins over the earlier advisory one.
	assert.Equal(t, 2, graph.Steps["step_003"].MaxRetries)
}
