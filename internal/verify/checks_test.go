package verify

import (
	"math"
	"testing"

	"armature/internal/assembly"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeStep(criteriaType string, threshold *float64, pattern, model string, params map[string]interface{}) *assembly.AssemblyStep {
	return &assembly.AssemblyStep{
		ID:      "test_step",
		Name:    "Test step",
		Handler: assembly.HandlerPrimitive,
		SuccessCriteria: assembly.SuccessCriteria{
			Type:      criteriaType,
			Threshold: threshold,
			Pattern:   pattern,
			Model:     model,
		},
		PrimitiveParams: params,
	}
}

func f(v float64) *float64 { return &v }

// linspace mirrors the telemetry ramps used throughout these tests.
func linspace(start, stop float64, n int) []float64 {
	out := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestCheckPosition(t *testing.T) {
	params := map[string]interface{}{
		"target_pose": []interface{}{100.0, 200.0, 300.0, 0.0, 0.0, 0.0},
	}

	t.Run("within tolerance passes", func(t *testing.T) {
		step := makeStep(assembly.CriteriaPosition, nil, "", "", params)
		data := &ExecutionData{FinalPosition: []float64{100.5, 200.3, 300.1}}

		result := CheckPosition(step, data)
		require.True(t, result.Passed)
		require.NotNil(t, result.MeasuredValue)
		assert.Less(t, *result.MeasuredValue, 2.0)
	})

	t.Run("5 units off fails", func(t *testing.T) {
		step := makeStep(assembly.CriteriaPosition, nil, "", "", params)
		data := &ExecutionData{FinalPosition: []float64{105.0, 200.0, 300.0}}

		result := CheckPosition(step, data)
		require.False(t, result.Passed)
		require.NotNil(t, result.MeasuredValue)
		assert.InDelta(t, 5.0, *result.MeasuredValue, 0.01)
	})

	t.Run("no target pose passes weakly", func(t *testing.T) {
		step := makeStep(assembly.CriteriaPosition, nil, "", "", map[string]interface{}{})
		data := &ExecutionData{FinalPosition: []float64{1, 2, 3}}

		result := CheckPosition(step, data)
		assert.True(t, result.Passed)
		assert.InDelta(t, 0.3, result.Confidence, 1e-9)
	})
}

func TestCheckForceThreshold(t *testing.T) {
	t.Run("peak above threshold passes", func(t *testing.T) {
		step := makeStep(assembly.CriteriaForceThreshold, f(10.0), "", "", nil)
		result := CheckForceThreshold(step, &ExecutionData{PeakForce: 12.0})

		require.True(t, result.Passed)
		assert.InDelta(t, 12.0, *result.MeasuredValue, 1e-9)
	})

	t.Run("peak below threshold fails", func(t *testing.T) {
		step := makeStep(assembly.CriteriaForceThreshold, f(10.0), "", "", nil)
		result := CheckForceThreshold(step, &ExecutionData{PeakForce: 8.0})

		assert.False(t, result.Passed)
	})

	t.Run("no threshold passes weakly", func(t *testing.T) {
		step := makeStep(assembly.CriteriaForceThreshold, nil, "", "", nil)
		result := CheckForceThreshold(step, &ExecutionData{PeakForce: 5.0})

		assert.True(t, result.Passed)
		assert.InDelta(t, 0.3, result.Confidence, 1e-9)
	})
}

func TestCheckSnapFit(t *testing.T) {
	t.Run("ramp peak drop passes", func(t *testing.T) {
		history := append(linspace(0.5, 5.0, 16), 2.0, 1.5, 1.2, 1.1)
		for i := 0; i < 10; i++ {
			history = append(history, 1.0)
		}
		step := makeStep(assembly.CriteriaForceSignature, nil, assembly.PatternSnapFit, "", nil)

		result := CheckForceSignature(step, &ExecutionData{ForceHistory: history})
		assert.True(t, result.Passed, result.Detail)
	})

	t.Run("flat noise fails", func(t *testing.T) {
		history := make([]float64, 30)
		for i := range history {
			history[i] = 0.02
		}
		step := makeStep(assembly.CriteriaForceSignature, nil, assembly.PatternSnapFit, "", nil)

		result := CheckForceSignature(step, &ExecutionData{ForceHistory: history})
		assert.False(t, result.Passed)
	})
}

func TestCheckMeshing(t *testing.T) {
	t.Run("oscillating force passes", func(t *testing.T) {
		history := make([]float64, 40)
		for i := range history {
			history[i] = 1.5 + 1.2*math.Sin(float64(i)*math.Pi/4)
		}
		step := makeStep(assembly.CriteriaForceSignature, nil, assembly.PatternMeshing, "", nil)

		result := CheckForceSignature(step, &ExecutionData{ForceHistory: history})
		require.True(t, result.Passed, result.Detail)
		require.NotNil(t, result.MeasuredValue)
		assert.GreaterOrEqual(t, *result.MeasuredValue, 3.0)
	})

	t.Run("monotonic force fails", func(t *testing.T) {
		step := makeStep(assembly.CriteriaForceSignature, nil, assembly.PatternMeshing, "", nil)

		result := CheckForceSignature(step, &ExecutionData{ForceHistory: linspace(0.1, 2.0, 30)})
		assert.False(t, result.Passed)
	})
}

func TestCheckPressFit(t *testing.T) {
	t.Run("monotonic rise to target passes", func(t *testing.T) {
		step := makeStep(assembly.CriteriaForceSignature, f(10.0), assembly.PatternPressFit, "", nil)

		result := CheckForceSignature(step, &ExecutionData{ForceHistory: linspace(0.5, 12.0, 30)})
		assert.True(t, result.Passed, result.Detail)
	})

	t.Run("plateau below target fails", func(t *testing.T) {
		history := linspace(0.2, 4.0, 10)
		for i := 0; i < 10; i++ {
			history = append(history, 4.0+0.1*float64(i%2))
		}
		step := makeStep(assembly.CriteriaForceSignature, f(10.0), assembly.PatternPressFit, "", nil)

		result := CheckForceSignature(step, &ExecutionData{ForceHistory: history})
		assert.False(t, result.Passed)
	})
}

func TestCheckClassifier(t *testing.T) {
	t.Run("no model passes at half confidence", func(t *testing.T) {
		step := makeStep(assembly.CriteriaClassifier, nil, "", "", nil)

		result := CheckClassifier(step, &ExecutionData{})
		assert.True(t, result.Passed)
		assert.InDelta(t, 0.5, result.Confidence, 1e-9)
	})

	t.Run("model without camera frame fails", func(t *testing.T) {
		step := makeStep(assembly.CriteriaClassifier, nil, "", "models/seated_v2.pt", nil)

		result := CheckClassifier(step, &ExecutionData{CameraFrame: ""})
		assert.False(t, result.Passed)
		assert.InDelta(t, 0.4, result.Confidence, 1e-9)
	})
}

func TestStepVerifierDispatch(t *testing.T) {
	v := NewStepVerifier()

	t.Run("routes position criteria", func(t *testing.T) {
		step := makeStep(assembly.CriteriaPosition, nil, "", "", map[string]interface{}{
			"target_pose": []interface{}{10.0, 20.0, 30.0, 0.0, 0.0, 0.0},
		})
		data := &ExecutionData{FinalPosition: []float64{10, 20, 30}}

		result := v.Verify(step, data)
		assert.True(t, result.Passed)
	})

	t.Run("unknown criteria type passes at half confidence", func(t *testing.T) {
		step := makeStep("unknown_xyz", nil, "", "", nil)

		result := v.Verify(step, &ExecutionData{})
		assert.True(t, result.Passed)
		assert.InDelta(t, 0.5, result.Confidence, 1e-9)
	})
}
