package control

import (
	"context"
	"fmt"
	"time"

	"armature/internal/logging"
	"armature/internal/robot"
)

// Pick grasps a part: move to the grasp pose at 60% of the budget, then
// close the gripper until its torque crosses the force threshold.
//
// Parameters: grasp_pose ([]float64), force_threshold (Nm, default 0.5),
// timeout (seconds, default 15).
func Pick(ctx context.Context, rb robot.Robot, p Params) (*PrimitiveResult, error) {
	grasp, err := p.Vec("grasp_pose", nil)
	if err != nil {
		return nil, err
	}
	threshold, err := p.Float("force_threshold", 0.5)
	if err != nil {
		return nil, err
	}
	timeout, err := p.Seconds("timeout", 15*time.Second)
	if err != nil {
		return nil, err
	}
	logging.Primitive("pick: grasp_pose=%v threshold=%.2fNm", grasp, threshold)
	start := time.Now()

	if rb == nil {
		if err := sleepScaled(ctx, 1500*time.Millisecond, timeout, p.speed); err != nil {
			return interrupted("pick", grasp, nil, start), err
		}
		logging.Primitive("pick: complete in %.0fms (mock)", sinceMs(start))
		return &PrimitiveResult{
			Success:        true,
			ActualForce:    threshold,
			ActualPosition: grasp,
			DurationMs:     sinceMs(start),
		}, nil
	}

	moveResult, err := moveToLoop(ctx, rb, grasp, 0.5, time.Duration(float64(timeout)*0.6), p.speed)
	if err != nil {
		moveResult.ErrorMessage = "pick interrupted"
		return moveResult, err
	}
	forces := moveResult.ForceHistory
	if !moveResult.Success {
		moveResult.ErrorMessage = "pick: failed to reach grasp pose: " + moveResult.ErrorMessage
		return moveResult, nil
	}

	current := obsToJoints(rb.GetObservation())
	for time.Since(start) < timeout {
		torques := readTorques(rb)
		forces = append(forces, torques)
		grip := torques[gripperJoint]
		if grip < 0 {
			grip = -grip
		}

		if grip >= threshold {
			logging.Primitive("pick: grasped at %.2fNm in %.0fms", grip, sinceMs(start))
			return &PrimitiveResult{
				Success:        true,
				ActualForce:    grip,
				ActualPosition: obsToJoints(rb.GetObservation()),
				DurationMs:     sinceMs(start),
				ForceHistory:   forces,
			}, nil
		}

		// Close gripper, hold the arm joints.
		command := make([]float64, len(current))
		copy(command, current)
		command[gripperJoint] = GripperClosed
		rb.SendAction(jointsToAction(command))
		if err := tick(ctx); err != nil {
			return interrupted("pick", obsToJoints(rb.GetObservation()), forces, start), err
		}
	}

	logging.PrimitiveWarn("pick: force threshold not reached in %.0fms", sinceMs(start))
	final := readTorques(rb)[gripperJoint]
	if final < 0 {
		final = -final
	}
	return &PrimitiveResult{
		Success:        false,
		ActualForce:    final,
		ActualPosition: obsToJoints(rb.GetObservation()),
		DurationMs:     sinceMs(start),
		ErrorMessage:   fmt.Sprintf("gripper force below threshold %.2fNm", threshold),
		ForceHistory:   forces,
	}, nil
}

// Place releases a part: move to the target pose at 60% of the budget,
// then open the gripper until its torque falls under the release force.
//
// Parameters: target_pose ([]float64), release_force (Nm, default 0.2),
// timeout (seconds, default 15).
func Place(ctx context.Context, rb robot.Robot, p Params) (*PrimitiveResult, error) {
	target, err := p.Vec("target_pose", nil)
	if err != nil {
		return nil, err
	}
	release, err := p.Float("release_force", 0.2)
	if err != nil {
		return nil, err
	}
	timeout, err := p.Seconds("timeout", 15*time.Second)
	if err != nil {
		return nil, err
	}
	logging.Primitive("place: target=%v release=%.2fNm", target, release)
	start := time.Now()

	if rb == nil {
		if err := sleepScaled(ctx, 1500*time.Millisecond, timeout, p.speed); err != nil {
			return interrupted("place", target, nil, start), err
		}
		logging.Primitive("place: complete in %.0fms (mock)", sinceMs(start))
		return &PrimitiveResult{
			Success:        true,
			ActualPosition: target,
			DurationMs:     sinceMs(start),
		}, nil
	}

	moveResult, err := moveToLoop(ctx, rb, target, 0.5, time.Duration(float64(timeout)*0.6), p.speed)
	if err != nil {
		moveResult.ErrorMessage = "place interrupted"
		return moveResult, err
	}
	forces := moveResult.ForceHistory
	if !moveResult.Success {
		moveResult.ErrorMessage = "place: failed to reach target: " + moveResult.ErrorMessage
		return moveResult, nil
	}

	current := obsToJoints(rb.GetObservation())
	for time.Since(start) < timeout {
		torques := readTorques(rb)
		forces = append(forces, torques)
		grip := torques[gripperJoint]
		if grip < 0 {
			grip = -grip
		}

		if grip <= release {
			logging.Primitive("place: released at %.2fNm in %.0fms", grip, sinceMs(start))
			return &PrimitiveResult{
				Success:        true,
				ActualPosition: obsToJoints(rb.GetObservation()),
				ActualForce:    grip,
				DurationMs:     sinceMs(start),
				ForceHistory:   forces,
			}, nil
		}

		command := make([]float64, len(current))
		copy(command, current)
		command[gripperJoint] = GripperOpen
		rb.SendAction(jointsToAction(command))
		if err := tick(ctx); err != nil {
			return interrupted("place", obsToJoints(rb.GetObservation()), forces, start), err
		}
	}

	logging.PrimitiveWarn("place: gripper release not confirmed in %.0fms", sinceMs(start))
	return &PrimitiveResult{
		Success:        false,
		ActualPosition: obsToJoints(rb.GetObservation()),
		DurationMs:     sinceMs(start),
		ErrorMessage:   fmt.Sprintf("gripper force above release threshold %.2fNm", release),
		ForceHistory:   forces,
	}, nil
}
