package assembly

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validGraphJSON = `{
	"id": "gearbox",
	"name": "Gearbox",
	"parts": {
		"gear_sun": {"id": "gear_sun", "geometry": "cylinder", "position": [0, 0, 0]}
	},
	"steps": {
		"step_001": {
			"id": "step_001",
			"name": "Pick sun gear",
			"partIds": ["gear_sun"],
			"dependencies": [],
			"handler": "primitive",
			"primitiveType": "pick",
			"primitiveParams": {"grasp_pose": [0, 0, 0]},
			"successCriteria": {"type": "force_threshold", "threshold": 0.5},
			"maxRetries": 2
		},
		"step_002": {
			"id": "step_002",
			"name": "Seat sun gear",
			"partIds": ["gear_sun"],
			"dependencies": ["step_001"],
			"handler": "policy",
			"policyId": "seat_gear_v1",
			"successCriteria": {"type": "force_signature", "pattern": "meshing"}
		}
	},
	"stepOrder": ["step_001", "step_002"]
}`

func TestParseGraph(t *testing.T) {
	graph, err := ParseGraph([]byte(validGraphJSON))
	require.NoError(t, err)

	assert.Equal(t, "gearbox", graph.ID)
	assert.Equal(t, []string{"step_001", "step_002"}, graph.StepOrder)

	s1 := graph.Steps["step_001"]
	require.NotNil(t, s1)
	assert.Equal(t, HandlerPrimitive, s1.Handler)
	assert.Equal(t, 2, s1.MaxRetries)
	require.NotNil(t, s1.SuccessCriteria.Threshold)
	assert.Equal(t, 0.5, *s1.SuccessCriteria.Threshold)

	// Unspecified maxRetries falls back to the default.
	s2 := graph.Steps["step_002"]
	assert.Equal(t, DefaultMaxRetries, s2.MaxRetries)
	assert.Equal(t, PatternMeshing, s2.SuccessCriteria.Pattern)

	want := &Part{ID: "gear_sun", Geometry: "cylinder", Position: []float64{0, 0, 0}}
	if diff := cmp.Diff(want, graph.Parts["gear_sun"]); diff != "" {
		t.Errorf("part mismatch (-want +got):\n%s", diff)
	}
}

func TestParseGraphValidation(t *testing.T) {
	cases := []struct {
		name string
		json string
		msg  string
	}{
		{
			name: "missing id",
			json: `{"name": "x", "steps": {}, "stepOrder": []}`,
			msg:  "no id",
		},
		{
			name: "step order references unknown step",
			json: `{"id": "a", "steps": {}, "stepOrder": ["ghost"]}`,
			msg:  "unknown step",
		},
		{
			name: "dependency does not precede",
			json: `{"id": "a", "steps": {
				"s1": {"id": "s1", "handler": "primitive", "primitiveType": "pick", "dependencies": ["s2"]},
				"s2": {"id": "s2", "handler": "primitive", "primitiveType": "place", "dependencies": []}
			}, "stepOrder": ["s1", "s2"]}`,
			msg: "precede",
		},
		{
			name: "primitive step without type",
			json: `{"id": "a", "steps": {
				"s1": {"id": "s1", "handler": "primitive", "dependencies": []}
			}, "stepOrder": ["s1"]}`,
			msg: "primitiveType",
		},
		{
			name: "policy step without policy id",
			json: `{"id": "a", "steps": {
				"s1": {"id": "s1", "handler": "policy", "dependencies": []}
			}, "stepOrder": ["s1"]}`,
			msg: "policyId",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseGraph([]byte(tc.json))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestTargetPose(t *testing.T) {
	step := &AssemblyStep{PrimitiveParams: map[string]interface{}{
		"target_pose": []interface{}{1.0, 2, 3.5},
	}}
	pose, ok := step.TargetPose()
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2, 3.5}, pose)

	_, ok = (&AssemblyStep{}).TargetPose()
	assert.False(t, ok)

	_, ok = (&AssemblyStep{PrimitiveParams: map[string]interface{}{"target_pose": "north"}}).TargetPose()
	assert.False(t, ok)
}
