// Package verify evaluates post-execution telemetry against a step's
// success criteria. Checkers are stateless functions over one telemetry
// sample; under-specified criteria deliberately pass with low confidence
// so partially planned assemblies do not hard-block.
package verify

// ExecutionData is one step attempt's telemetry snapshot. Constructed
// from a step result (or external telemetry on real hardware), consumed
// by exactly one checker, then discarded.
type ExecutionData struct {
	// FinalPosition is the end-of-step position, first 3 components.
	// May be empty when the executing path produced no position.
	FinalPosition []float64
	// ForceHistory is the per-tick peak force magnitude series.
	ForceHistory []float64
	// PeakForce is the maximum force observed during the attempt (Nm).
	PeakForce float64
	// FinalForce is the last force sample (Nm).
	FinalForce float64
	// DurationMs is the attempt's wall-clock duration.
	DurationMs float64
	// CameraFrame references a captured frame for classifier criteria.
	// Empty when no camera was recording.
	CameraFrame string
}

// Result is a checker's verdict on one telemetry sample.
type Result struct {
	Passed        bool
	MeasuredValue *float64
	Confidence    float64
	Detail        string
}

func measured(v float64) *float64 { return &v }
