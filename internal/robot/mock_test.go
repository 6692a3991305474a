package robot

import (
	"testing"

	"armature/internal/assembly"
	"armature/internal/verify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockRobotObeysCommands(t *testing.T) {
	m := NewMockRobot()

	// Before any command: sine-wave positions, all joints present.
	obs := m.GetObservation()
	require.Len(t, obs, len(JointNames))

	cmd := map[string]float64{}
	for i, n := range JointNames {
		cmd[n+".pos"] = float64(i) * 0.1
	}
	m.SendAction(cmd)

	obs = m.GetObservation()
	for i, n := range JointNames {
		assert.InDelta(t, float64(i)*0.1, obs[n+".pos"], 1e-9)
	}
}

func TestMockRobotTorquesAreSmall(t *testing.T) {
	m := NewMockRobot()
	torques := m.GetTorques()
	require.Len(t, torques, len(JointNames))
	for n, v := range torques {
		assert.LessOrEqual(t, v, 0.1, "joint %s", n)
		assert.GreaterOrEqual(t, v, -0.1, "joint %s", n)
	}
}

func TestGenerateExecutionDataPassesCheckers(t *testing.T) {
	thr := 5.0
	cases := []struct {
		name    string
		step    *assembly.AssemblyStep
		checker verify.Checker
	}{
		{
			name: "force_threshold",
			step: &assembly.AssemblyStep{
				ID:              "s",
				SuccessCriteria: assembly.SuccessCriteria{Type: assembly.CriteriaForceThreshold, Threshold: &thr},
			},
			checker: verify.CheckForceThreshold,
		},
		{
			name: "position",
			step: &assembly.AssemblyStep{
				ID:              "s",
				SuccessCriteria: assembly.SuccessCriteria{Type: assembly.CriteriaPosition},
				PrimitiveParams: map[string]interface{}{
					"target_pose": []interface{}{10.0, 20.0, 30.0, 0.0, 0.0, 0.0},
				},
			},
			checker: verify.CheckPosition,
		},
		{
			name: "snap_fit",
			step: &assembly.AssemblyStep{
				ID:              "s",
				SuccessCriteria: assembly.SuccessCriteria{Type: assembly.CriteriaForceSignature, Pattern: assembly.PatternSnapFit},
			},
			checker: verify.CheckForceSignature,
		},
		{
			name: "meshing",
			step: &assembly.AssemblyStep{
				ID:              "s",
				SuccessCriteria: assembly.SuccessCriteria{Type: assembly.CriteriaForceSignature, Pattern: assembly.PatternMeshing},
			},
			checker: verify.CheckForceSignature,
		},
		{
			name: "press_fit",
			step: &assembly.AssemblyStep{
				ID:              "s",
				SuccessCriteria: assembly.SuccessCriteria{Type: assembly.CriteriaForceSignature, Pattern: assembly.PatternPressFit, Threshold: &thr},
			},
			checker: verify.CheckForceSignature,
		},
	}

	m := NewMockRobot()
	forceSuccess := true

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data := m.GenerateExecutionData(tc.step, &forceSuccess)
			require.Greater(t, data.DurationMs, 0.0)

			result := tc.checker(tc.step, data)
			assert.True(t, result.Passed, "checker failed: %s", result.Detail)
		})
	}
}

func TestGenerateExecutionDataForcedFailure(t *testing.T) {
	thr := 5.0
	step := &assembly.AssemblyStep{
		ID:              "s",
		SuccessCriteria: assembly.SuccessCriteria{Type: assembly.CriteriaForceThreshold, Threshold: &thr},
	}

	m := NewMockRobot()
	forceFail := false
	data := m.GenerateExecutionData(step, &forceFail)

	result := verify.CheckForceThreshold(step, data)
	assert.False(t, result.Passed)
}
