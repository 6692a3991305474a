// Package execution drives assembly plans: the policy router dispatches
// each step to a motion primitive or a learned-policy backend, and the
// sequencer walks the plan's step order through retries, verification,
// human escalation, and analytics recording.
package execution

import (
	"armature/internal/control"
	"armature/internal/verify"
)

// Handler labels recorded on step results.
const (
	HandlerUsedPrimitive = "primitive"
	HandlerUsedPolicy    = "policy"
	HandlerUsedStub      = "stub"
)

// StepResult is the normalized outcome of one step attempt, whichever
// path executed it.
type StepResult struct {
	Success        bool
	DurationMs     float64
	HandlerUsed    string
	ErrorMessage   string
	ActualForce    float64
	ActualPosition []float64
	ForceHistory   [][]float64
}

// resultFromPrimitive normalizes a primitive outcome.
func resultFromPrimitive(r *control.PrimitiveResult) *StepResult {
	return &StepResult{
		Success:        r.Success,
		DurationMs:     r.DurationMs,
		HandlerUsed:    HandlerUsedPrimitive,
		ErrorMessage:   r.ErrorMessage,
		ActualForce:    r.ActualForce,
		ActualPosition: r.ActualPosition,
		ForceHistory:   r.ForceHistory,
	}
}

// Telemetry converts a step result into the shape the verifier consumes:
// first three position components and a per-tick peak force series. With
// no recorded history (synthetic paths), the attempt's peak force stands
// in for the whole series.
func (r *StepResult) Telemetry() *verify.ExecutionData {
	prim := control.PrimitiveResult{ForceHistory: r.ForceHistory}
	series := prim.PeakForceSeries()

	peak := r.ActualForce
	final := r.ActualForce
	if len(series) > 0 {
		final = series[len(series)-1]
		for _, v := range series {
			if v > peak {
				peak = v
			}
		}
	}

	pos := r.ActualPosition
	if len(pos) > 3 {
		pos = pos[:3]
	}
	return &verify.ExecutionData{
		FinalPosition: pos,
		ForceHistory:  series,
		PeakForce:     peak,
		FinalForce:    final,
		DurationMs:    r.DurationMs,
	}
}
