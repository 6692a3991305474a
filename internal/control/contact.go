package control

import (
	"context"
	"fmt"
	"time"

	"armature/internal/logging"
	"armature/internal/robot"
)

// GuardedMove steps along a joint-space direction until the arm torque
// crosses the force threshold. Reaching the distance cap without contact
// is a failure, as is timeout.
//
// Parameters: direction ([]float64, default [0,0,-1]), force_threshold
// (Nm, default 5), max_distance (default 0.1), timeout (seconds,
// default 10).
func GuardedMove(ctx context.Context, rb robot.Robot, p Params) (*PrimitiveResult, error) {
	direction, err := p.Vec("direction", []float64{0, 0, -1})
	if err != nil {
		return nil, err
	}
	threshold, err := p.Float("force_threshold", 5.0)
	if err != nil {
		return nil, err
	}
	maxDist, err := p.Float("max_distance", 0.1)
	if err != nil {
		return nil, err
	}
	timeout, err := p.Seconds("timeout", 10*time.Second)
	if err != nil {
		return nil, err
	}
	logging.Primitive("guarded_move: dir=%v threshold=%.1fNm max=%.3f", direction, threshold, maxDist)
	start := time.Now()

	if rb == nil {
		if err := sleepScaled(ctx, time.Second, timeout, p.speed); err != nil {
			return interrupted("guarded_move", nil, nil, start), err
		}
		logging.Primitive("guarded_move: contact at %.1fNm in %.0fms (mock)", threshold, sinceMs(start))
		return &PrimitiveResult{
			Success:     true,
			ActualForce: threshold,
			DurationMs:  sinceMs(start),
		}, nil
	}

	current := obsToJoints(rb.GetObservation())
	origin := make([]float64, len(current))
	copy(origin, current)
	dir := padDirection(direction)
	step := controlAlpha * 0.5
	var forces [][]float64

	for time.Since(start) < timeout {
		current = obsToJoints(rb.GetObservation())
		torques := readTorques(rb)
		forces = append(forces, torques)
		peak := peakAbsTorque(torques[:gripperJoint])

		if peak >= threshold {
			logging.Primitive("guarded_move: contact at %.2fNm in %.0fms", peak, sinceMs(start))
			return &PrimitiveResult{
				Success:        true,
				ActualForce:    peak,
				ActualPosition: current,
				DurationMs:     sinceMs(start),
				ForceHistory:   forces,
			}, nil
		}

		if displacement(current, origin) >= maxDist {
			logging.Primitive("guarded_move: max distance reached without contact")
			return &PrimitiveResult{
				Success:        false,
				ActualForce:    peak,
				ActualPosition: current,
				DurationMs:     sinceMs(start),
				ErrorMessage:   fmt.Sprintf("max distance %.3f reached without force contact", maxDist),
				ForceHistory:   forces,
			}, nil
		}

		command := make([]float64, len(current))
		for i := range command {
			command[i] = current[i] + dir[i]*step
		}
		rb.SendAction(jointsToAction(command))
		if err := tick(ctx); err != nil {
			return interrupted("guarded_move", current, forces, start), err
		}
	}

	logging.PrimitiveWarn("guarded_move: timed out after %.0fms", sinceMs(start))
	return &PrimitiveResult{
		Success:        false,
		ActualPosition: current,
		ActualForce:    lastPeak(forces),
		DurationMs:     sinceMs(start),
		ErrorMessage:   fmt.Sprintf("guarded_move timed out after %.1fs", timeout.Seconds()),
		ForceHistory:   forces,
	}, nil
}

// PressFit pushes along a direction until the target force is achieved.
// Unlike GuardedMove the force is the goal, not a guard: exhausting the
// distance cap before reaching it is a failure.
//
// Parameters: direction ([]float64, default [0,0,-1]), force_target (Nm,
// default 15), max_distance (default 0.02), timeout (seconds, default 15).
func PressFit(ctx context.Context, rb robot.Robot, p Params) (*PrimitiveResult, error) {
	direction, err := p.Vec("direction", []float64{0, 0, -1})
	if err != nil {
		return nil, err
	}
	target, err := p.Float("force_target", 15.0)
	if err != nil {
		return nil, err
	}
	maxDist, err := p.Float("max_distance", 0.02)
	if err != nil {
		return nil, err
	}
	timeout, err := p.Seconds("timeout", 15*time.Second)
	if err != nil {
		return nil, err
	}
	logging.Primitive("press_fit: dir=%v target=%.1fNm max=%.3f", direction, target, maxDist)
	start := time.Now()

	if rb == nil {
		if err := sleepScaled(ctx, 1500*time.Millisecond, timeout, p.speed); err != nil {
			return interrupted("press_fit", nil, nil, start), err
		}
		logging.Primitive("press_fit: complete at %.1fNm in %.0fms (mock)", target, sinceMs(start))
		return &PrimitiveResult{
			Success:     true,
			ActualForce: target,
			DurationMs:  sinceMs(start),
		}, nil
	}

	current := obsToJoints(rb.GetObservation())
	origin := make([]float64, len(current))
	copy(origin, current)
	dir := padDirection(direction)
	// Slower push than guarded_move.
	step := controlAlpha * 0.3
	var forces [][]float64

	for time.Since(start) < timeout {
		current = obsToJoints(rb.GetObservation())
		torques := readTorques(rb)
		forces = append(forces, torques)
		peak := peakAbsTorque(torques[:gripperJoint])

		if peak >= target {
			logging.Primitive("press_fit: target force %.2fNm in %.0fms", peak, sinceMs(start))
			return &PrimitiveResult{
				Success:        true,
				ActualForce:    peak,
				ActualPosition: current,
				DurationMs:     sinceMs(start),
				ForceHistory:   forces,
			}, nil
		}

		if displacement(current, origin) >= maxDist {
			logging.PrimitiveWarn("press_fit: max distance without target force")
			return &PrimitiveResult{
				Success:        false,
				ActualForce:    peak,
				ActualPosition: current,
				DurationMs:     sinceMs(start),
				ErrorMessage:   fmt.Sprintf("max distance %.3f reached (force %.2fNm < target %.2fNm)", maxDist, peak, target),
				ForceHistory:   forces,
			}, nil
		}

		command := make([]float64, len(current))
		for i := range command {
			command[i] = current[i] + dir[i]*step
		}
		rb.SendAction(jointsToAction(command))
		if err := tick(ctx); err != nil {
			return interrupted("press_fit", current, forces, start), err
		}
	}

	logging.PrimitiveWarn("press_fit: timed out after %.0fms", sinceMs(start))
	return &PrimitiveResult{
		Success:        false,
		ActualPosition: current,
		ActualForce:    lastPeak(forces),
		DurationMs:     sinceMs(start),
		ErrorMessage:   fmt.Sprintf("press_fit timed out after %.1fs", timeout.Seconds()),
		ForceHistory:   forces,
	}, nil
}

// padDirection pads a direction vector with zeros so the gripper holds
// steady during contact motions.
func padDirection(direction []float64) []float64 {
	out := make([]float64, JointCount)
	copy(out, direction)
	return out
}
