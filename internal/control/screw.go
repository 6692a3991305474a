package control

import (
	"context"
	"fmt"
	"math"
	"time"

	"armature/internal/logging"
	"armature/internal/robot"
)

// screwRotationSpeed is the wrist rotation rate (rad/s).
const screwRotationSpeed = 0.5

// Screw rotates the wrist joint while holding the other joints, stopping
// on either success signal: wrist torque at the limit (fastener seated)
// or the requested rotations completed.
//
// Parameters: torque_limit (Nm, default 2), rotations (default 3),
// timeout (seconds, default 20).
func Screw(ctx context.Context, rb robot.Robot, p Params) (*PrimitiveResult, error) {
	limit, err := p.Float("torque_limit", 2.0)
	if err != nil {
		return nil, err
	}
	rotations, err := p.Float("rotations", 3.0)
	if err != nil {
		return nil, err
	}
	timeout, err := p.Seconds("timeout", 20*time.Second)
	if err != nil {
		return nil, err
	}
	logging.Primitive("screw: rotations=%.1f torque_limit=%.1fNm", rotations, limit)
	start := time.Now()

	if rb == nil {
		if err := sleepScaled(ctx, 2*time.Second, timeout, p.speed); err != nil {
			return interrupted("screw", nil, nil, start), err
		}
		logging.Primitive("screw: complete in %.0fms (mock)", sinceMs(start))
		return &PrimitiveResult{
			Success:     true,
			ActualForce: limit * 0.8,
			DurationMs:  sinceMs(start),
		}, nil
	}

	current := obsToJoints(rb.GetObservation())
	wristStart := current[wristJoint]
	totalAngle := rotations * 2 * math.Pi
	var forces [][]float64

	for time.Since(start) < timeout {
		current = obsToJoints(rb.GetObservation())
		torques := readTorques(rb)
		forces = append(forces, torques)
		wristTorque := math.Abs(torques[wristJoint])

		if wristTorque >= limit {
			logging.Primitive("screw: torque limit at %.2fNm in %.0fms", wristTorque, sinceMs(start))
			return &PrimitiveResult{
				Success:        true,
				ActualForce:    wristTorque,
				ActualPosition: current,
				DurationMs:     sinceMs(start),
				ForceHistory:   forces,
			}, nil
		}

		if math.Abs(current[wristJoint]-wristStart) >= totalAngle {
			logging.Primitive("screw: %.1f rotations complete in %.0fms", rotations, sinceMs(start))
			return &PrimitiveResult{
				Success:        true,
				ActualForce:    wristTorque,
				ActualPosition: current,
				DurationMs:     sinceMs(start),
				ForceHistory:   forces,
			}, nil
		}

		command := make([]float64, len(current))
		copy(command, current)
		command[wristJoint] += screwRotationSpeed * controlAlpha
		rb.SendAction(jointsToAction(command))
		if err := tick(ctx); err != nil {
			return interrupted("screw", current, forces, start), err
		}
	}

	logging.PrimitiveWarn("screw: timed out after %.0fms", sinceMs(start))
	return &PrimitiveResult{
		Success:        false,
		ActualPosition: current,
		ActualForce:    math.Abs(readTorques(rb)[wristJoint]),
		DurationMs:     sinceMs(start),
		ErrorMessage:   fmt.Sprintf("screw timed out after %.1fs", timeout.Seconds()),
		ForceHistory:   forces,
	}, nil
}
