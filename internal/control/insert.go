package control

import (
	"context"
	"fmt"
	"time"

	"armature/internal/logging"
	"armature/internal/robot"
)

// LinearInsert interpolates toward an insertion endpoint while monitoring
// force. Success on either termination signal: crossing the force limit
// (part seated) or position convergence. Compliant axes hold position
// instead of tracking the target.
//
// Parameters: target_pose ([]float64), force_limit (Nm, default 10),
// compliance_axes ([]bool), timeout (seconds, default 15).
func LinearInsert(ctx context.Context, rb robot.Robot, p Params) (*PrimitiveResult, error) {
	target, err := p.Vec("target_pose", nil)
	if err != nil {
		return nil, err
	}
	limit, err := p.Float("force_limit", 10.0)
	if err != nil {
		return nil, err
	}
	compliant, err := p.Bools("compliance_axes")
	if err != nil {
		return nil, err
	}
	timeout, err := p.Seconds("timeout", 15*time.Second)
	if err != nil {
		return nil, err
	}
	logging.Primitive("linear_insert: target=%v force_limit=%.1fNm", target, limit)
	start := time.Now()

	if rb == nil {
		if err := sleepScaled(ctx, 2*time.Second, timeout, p.speed); err != nil {
			return interrupted("linear_insert", target, nil, start), err
		}
		logging.Primitive("linear_insert: complete in %.0fms (mock)", sinceMs(start))
		return &PrimitiveResult{
			Success:        true,
			ActualForce:    limit * 0.6,
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
		peak := peakAbsTorque(torques[:gripperJoint])

		// Force limit confirms the part is seated.
		if peak >= limit {
			logging.Primitive("linear_insert: force limit at %.2fNm in %.0fms", peak, sinceMs(start))
			return &PrimitiveResult{
				Success:        true,
				ActualForce:    peak,
				ActualPosition: current,
				DurationMs:     sinceMs(start),
				ForceHistory:   forces,
			}, nil
		}

		if positionReached(current, padded) {
			logging.Primitive("linear_insert: position reached in %.0fms", sinceMs(start))
			return &PrimitiveResult{
				Success:        true,
				ActualForce:    peak,
				ActualPosition: current,
				DurationMs:     sinceMs(start),
				ForceHistory:   forces,
			}, nil
		}

		command := make([]float64, len(current))
		copy(command, current)
		n := len(padded)
		if len(current) < n {
			n = len(current)
		}
		for i := 0; i < n; i++ {
			if i < len(compliant) && compliant[i] {
				continue
			}
			command[i] = current[i] + controlAlpha*(padded[i]-current[i])
		}
		rb.SendAction(jointsToAction(command))
		if err := tick(ctx); err != nil {
			return interrupted("linear_insert", current, forces, start), err
		}
	}

	logging.PrimitiveWarn("linear_insert: timed out after %.0fms", sinceMs(start))
	return &PrimitiveResult{
		Success:        false,
		ActualPosition: current,
		ActualForce:    lastPeak(forces),
		DurationMs:     sinceMs(start),
		ErrorMessage:   fmt.Sprintf("linear_insert timed out after %.1fs", timeout.Seconds()),
		ForceHistory:   forces,
	}, nil
}
