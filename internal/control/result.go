package control

import (
	"errors"
	"fmt"
)

// ErrConfig marks configuration failures: unknown primitive names and
// malformed parameters. Configuration errors are fatal to a run and are
// never retried.
var ErrConfig = errors.New("configuration error")

// ErrUnknownPrimitive is returned when a primitive name is not registered.
var ErrUnknownPrimitive = fmt.Errorf("%w: unknown primitive", ErrConfig)

// PrimitiveResult is the outcome of one primitive invocation. Created
// fresh per invocation, owned by the caller, never mutated after return.
type PrimitiveResult struct {
	// Success reports whether the termination predicate was satisfied.
	Success bool
	// ActualForce is the peak torque observed at completion (Nm).
	ActualForce float64
	// ActualPosition is the joint vector at completion, canonical order.
	ActualPosition []float64
	// DurationMs is the invocation's wall-clock duration.
	DurationMs float64
	// ErrorMessage describes the failure; empty on success.
	ErrorMessage string
	// ForceHistory holds the per-tick torque vectors captured during the
	// real control loop. Empty on the synthetic path.
	ForceHistory [][]float64
}

// PeakForceSeries flattens the force history into a per-tick peak
// magnitude series, the shape the verifier's signature checkers consume.
func (r *PrimitiveResult) PeakForceSeries() []float64 {
	series := make([]float64, len(r.ForceHistory))
	for i, torques := range r.ForceHistory {
		series[i] = peakAbsTorque(torques)
	}
	return series
}
