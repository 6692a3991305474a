package verify

import (
	"fmt"
	"math"

	"armature/internal/assembly"
)

// PositionTolerance is the pass distance for position criteria, in the
// plan's position units.
const PositionTolerance = 2.0

// CheckPosition compares the first 3 components of the step's target pose
// against the recorded final position. Steps with no target pose pass
// weakly rather than fail, since heuristically generated plans often
// leave targets unspecified.
func CheckPosition(step *assembly.AssemblyStep, data *ExecutionData) Result {
	target, ok := step.TargetPose()
	if !ok || len(target) < 3 {
		return Result{
			Passed:     true,
			Confidence: 0.3,
			Detail:     "no target_pose in primitive params; skipping position check",
		}
	}
	if len(data.FinalPosition) < 3 {
		return Result{
			Passed:     true,
			Confidence: 0.3,
			Detail:     "no final position recorded; skipping position check",
		}
	}

	var sum float64
	for i := 0; i < 3; i++ {
		d := target[i] - data.FinalPosition[i]
		sum += d * d
	}
	dist := math.Sqrt(sum)

	if dist < PositionTolerance {
		return Result{
			Passed:        true,
			MeasuredValue: measured(dist),
			Confidence:    0.9,
			Detail:        fmt.Sprintf("position within %.2f of target", dist),
		}
	}
	return Result{
		Passed:        false,
		MeasuredValue: measured(dist),
		Confidence:    0.9,
		Detail:        fmt.Sprintf("position off by %.2f (tolerance %.1f)", dist, PositionTolerance),
	}
}

// CheckForceThreshold passes when the attempt's peak force meets the
// configured threshold. No threshold configured passes weakly.
func CheckForceThreshold(step *assembly.AssemblyStep, data *ExecutionData) Result {
	thr := step.SuccessCriteria.Threshold
	if thr == nil {
		return Result{
			Passed:     true,
			Confidence: 0.3,
			Detail:     "no force threshold configured; skipping check",
		}
	}

	if data.PeakForce >= *thr {
		return Result{
			Passed:        true,
			MeasuredValue: measured(data.PeakForce),
			Confidence:    0.9,
			Detail:        fmt.Sprintf("peak force %.2fNm >= threshold %.2fNm", data.PeakForce, *thr),
		}
	}
	return Result{
		Passed:        false,
		MeasuredValue: measured(data.PeakForce),
		Confidence:    0.9,
		Detail:        fmt.Sprintf("peak force %.2fNm below threshold %.2fNm", data.PeakForce, *thr),
	}
}

// CheckForceSignature matches the force-vs-time series against the
// configured pattern: snap_fit (rise then sharp drop), meshing
// (oscillatory peaks), press_fit (monotonic rise to threshold).
func CheckForceSignature(step *assembly.AssemblyStep, data *ExecutionData) Result {
	switch step.SuccessCriteria.Pattern {
	case assembly.PatternSnapFit:
		return checkSnapFit(data.ForceHistory)
	case assembly.PatternMeshing:
		return checkMeshing(data.ForceHistory)
	case assembly.PatternPressFit:
		return checkPressFit(step.SuccessCriteria.Threshold, data.ForceHistory)
	default:
		return Result{
			Passed:     true,
			Confidence: 0.5,
			Detail:     fmt.Sprintf("unknown force signature pattern %q", step.SuccessCriteria.Pattern),
		}
	}
}

// checkSnapFit looks for a force peak well above baseline followed by at
// least two consecutive decreasing samples (the snap release).
func checkSnapFit(history []float64) Result {
	if len(history) < 4 {
		return Result{Passed: false, Confidence: 0.8, Detail: "insufficient force history for snap_fit"}
	}

	baseline := 0.0
	n := 3
	if len(history) < n {
		n = len(history)
	}
	for i := 0; i < n; i++ {
		baseline += history[i]
	}
	baseline /= float64(n)

	peak, peakIdx := history[0], 0
	for i, v := range history {
		if v > peak {
			peak, peakIdx = v, i
		}
	}

	// Rise: peak must clear both the relative and an absolute floor so
	// flat low-noise series never register a snap.
	if peak < 0.5 || peak < baseline*1.5 {
		return Result{
			Passed:        false,
			MeasuredValue: measured(peak),
			Confidence:    0.8,
			Detail:        fmt.Sprintf("no force rise detected (peak %.2fNm, baseline %.2fNm)", peak, baseline),
		}
	}

	// Drop: two consecutive decreasing samples after the peak.
	if peakIdx+2 < len(history) &&
		history[peakIdx+1] < history[peakIdx] &&
		history[peakIdx+2] < history[peakIdx+1] {
		return Result{
			Passed:        true,
			MeasuredValue: measured(peak),
			Confidence:    0.85,
			Detail:        fmt.Sprintf("snap detected: peak %.2fNm followed by sharp drop", peak),
		}
	}
	return Result{
		Passed:        false,
		MeasuredValue: measured(peak),
		Confidence:    0.8,
		Detail:        "force rose but no sharp drop followed the peak",
	}
}

// checkMeshing passes when the series oscillates: at least 4 local peaks.
// Monotonic trends (jammed or free-spinning gears) fail.
func checkMeshing(history []float64) Result {
	if len(history) < 5 {
		return Result{Passed: false, Confidence: 0.8, Detail: "insufficient force history for meshing"}
	}

	peaks := 0
	for i := 1; i < len(history)-1; i++ {
		if history[i] > history[i-1] && history[i] > history[i+1] {
			peaks++
		}
	}

	if peaks >= 4 {
		return Result{
			Passed:        true,
			MeasuredValue: measured(float64(peaks)),
			Confidence:    0.85,
			Detail:        fmt.Sprintf("meshing oscillation detected (%d peaks)", peaks),
		}
	}
	return Result{
		Passed:        false,
		MeasuredValue: measured(float64(peaks)),
		Confidence:    0.8,
		Detail:        fmt.Sprintf("only %d force peaks; expected oscillatory signature", peaks),
	}
}

// checkPressFit passes when force rises to the configured threshold.
// A plateau well below threshold fails; no threshold passes weakly.
func checkPressFit(threshold *float64, history []float64) Result {
	if threshold == nil {
		return Result{
			Passed:     true,
			Confidence: 0.3,
			Detail:     "no press_fit threshold configured; skipping check",
		}
	}
	if len(history) < 3 {
		return Result{Passed: false, Confidence: 0.8, Detail: "insufficient force history for press_fit"}
	}

	peak := history[0]
	for _, v := range history {
		if v > peak {
			peak = v
		}
	}
	final := history[len(history)-1]

	// Peak and final must both approach the threshold: a rise that falls
	// away again is not a seated press fit.
	if peak >= *threshold*0.9 && final >= *threshold*0.8 {
		return Result{
			Passed:        true,
			MeasuredValue: measured(peak),
			Confidence:    0.85,
			Detail:        fmt.Sprintf("press force reached %.2fNm (target %.2fNm)", peak, *threshold),
		}
	}
	return Result{
		Passed:        false,
		MeasuredValue: measured(peak),
		Confidence:    0.8,
		Detail:        fmt.Sprintf("press force plateaued at %.2fNm below target %.2fNm", peak, *threshold),
	}
}

// CheckClassifier gates on the configured vision model. With no model the
// check is non-blocking; with a model but no camera frame the attempt
// cannot be evaluated and fails, since a model was explicitly requested.
func CheckClassifier(step *assembly.AssemblyStep, data *ExecutionData) Result {
	if step.SuccessCriteria.Model == "" {
		return Result{
			Passed:     true,
			Confidence: 0.5,
			Detail:     "no classifier model configured; skipping check",
		}
	}
	if data.CameraFrame == "" {
		return Result{
			Passed:     false,
			Confidence: 0.4,
			Detail:     fmt.Sprintf("classifier %s configured but no camera frame captured", step.SuccessCriteria.Model),
		}
	}
	// Model inference runs out of process; a captured frame with a
	// configured model is deferred to the external evaluator.
	return Result{
		Passed:     true,
		Confidence: 0.5,
		Detail:     "classifier evaluation deferred to external model runner",
	}
}
