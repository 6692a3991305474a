package control

import (
	"context"
	"time"
)

// controlDT is the tick period of the real control loops.
const controlDT = time.Second / ControlHz

// controlAlpha converts the tick period to seconds for interpolation math.
const controlAlpha = 1.0 / ControlHz

// sleepScaled blocks for min(cap, timeout) scaled by the speed factor,
// honoring cancellation. The synthetic path of every primitive goes
// through here.
func sleepScaled(ctx context.Context, bound, timeout time.Duration, speed float64) error {
	d := bound
	if timeout < d {
		d = timeout
	}
	d = time.Duration(float64(d) * speed)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// tick blocks for one control period, honoring cancellation.
func tick(ctx context.Context) error {
	timer := time.NewTimer(controlDT)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// sinceMs is the elapsed wall clock in milliseconds.
func sinceMs(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}

// lastPeak is the peak magnitude of the most recent force reading, zero
// when no readings were taken.
func lastPeak(forces [][]float64) float64 {
	if len(forces) == 0 {
		return 0
	}
	return peakAbsTorque(forces[len(forces)-1])
}

// interrupted builds the partial result returned when a control loop is
// cancelled mid flight. The force history gathered so far is preserved.
func interrupted(name string, position []float64, forces [][]float64, start time.Time) *PrimitiveResult {
	return &PrimitiveResult{
		Success:        false,
		ActualPosition: position,
		ActualForce:    lastPeak(forces),
		DurationMs:     sinceMs(start),
		ErrorMessage:   name + " interrupted",
		ForceHistory:   forces,
	}
}
