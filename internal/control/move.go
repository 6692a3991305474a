package control

import (
	"context"
	"fmt"
	"time"

	"armature/internal/logging"
	"armature/internal/robot"
)

// MoveTo drives the joints to a target pose via per-tick linear
// interpolation. Succeeds when every joint is within tolerance; fails on
// timeout.
//
// Parameters: target_pose ([]float64), velocity (0..1, default 0.5),
// timeout (seconds, default 10).
func MoveTo(ctx context.Context, rb robot.Robot, p Params) (*PrimitiveResult, error) {
	target, err := p.Vec("target_pose", nil)
	if err != nil {
		return nil, err
	}
	velocity, err := p.Float("velocity", 0.5)
	if err != nil {
		return nil, err
	}
	timeout, err := p.Seconds("timeout", 10*time.Second)
	if err != nil {
		return nil, err
	}
	logging.Primitive("move_to: target=%v velocity=%.2f", target, velocity)
	return moveToLoop(ctx, rb, target, velocity, timeout, p.speed)
}

// moveToLoop is the shared move phase, also invoked by Pick and Place
// with a reduced timeout budget.
func moveToLoop(ctx context.Context, rb robot.Robot, target []float64, velocity float64, timeout time.Duration, speed float64) (*PrimitiveResult, error) {
	start := time.Now()

	if rb == nil {
		if err := sleepScaled(ctx, time.Second, timeout, speed); err != nil {
			return interrupted("move_to", target, nil, start), err
		}
		logging.Primitive("move_to: complete in %.0fms (mock)", sinceMs(start))
		return &PrimitiveResult{
			Success:        true,
			ActualPosition: target,
			DurationMs:     sinceMs(start),
		}, nil
	}

	current := obsToJoints(rb.GetObservation())
	padded := padTarget(target, current)
	var forces [][]float64

	for time.Since(start) < timeout {
		current = obsToJoints(rb.GetObservation())
		torques := readTorques(rb)
		forces = append(forces, torques)

		if positionReached(current, padded) {
			logging.Primitive("move_to: converged in %.0fms", sinceMs(start))
			return &PrimitiveResult{
				Success:        true,
				ActualPosition: current,
				ActualForce:    peakAbsTorque(torques),
				DurationMs:     sinceMs(start),
				ForceHistory:   forces,
			}, nil
		}

		alpha := velocity * controlAlpha * 2.0
		rb.SendAction(jointsToAction(interpolateStep(current, padded, alpha)))
		if err := tick(ctx); err != nil {
			return interrupted("move_to", current, forces, start), err
		}
	}

	logging.PrimitiveWarn("move_to: timed out after %.0fms", sinceMs(start))
	return &PrimitiveResult{
		Success:        false,
		ActualPosition: current,
		ActualForce:    lastPeak(forces),
		DurationMs:     sinceMs(start),
		ErrorMessage:   fmt.Sprintf("move_to timed out after %.1fs", timeout.Seconds()),
		ForceHistory:   forces,
	}, nil
}
