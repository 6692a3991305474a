// Package control implements the parameterized motion primitives: fixed
// rate control loops that command joint targets and terminate on
// position, force, or timeout conditions. Primitives operate directly in
// joint space with linear interpolation; there is no planning layer.
//
// Every primitive has two mutually exclusive paths. With a nil robot
// handle it sleeps for a scaled bounded duration and returns deterministic
// synthetic success (fast tests, dry runs). With a handle it runs a 60 Hz
// loop that reads joints and torques each tick, appends the torque vector
// to the force history, and checks its termination predicate before
// commanding the next interpolated position.
package control

import (
	"math"

	"armature/internal/robot"
)

const (
	// ControlHz is the primitive control loop rate.
	ControlHz = 60
	// GripperClosed and GripperOpen are the gripper position bounds
	// (unitless, matching the mock calibration range).
	GripperClosed = 1.0
	GripperOpen   = 0.0
	// positionTolerance is the per-joint convergence threshold (rad).
	positionTolerance = 0.02
	// wristJoint and gripperJoint index the canonical joint order.
	wristJoint   = 5
	gripperJoint = 6
)

// JointCount is the canonical joint vector length (6 arm joints + gripper).
var JointCount = len(robot.JointNames)

// obsToJoints extracts joint positions from an observation in canonical
// order. Missing joints read as zero.
func obsToJoints(obs map[string]float64) []float64 {
	joints := make([]float64, JointCount)
	for i, name := range robot.JointNames {
		joints[i] = obs[name+".pos"]
	}
	return joints
}

// jointsToAction builds an action map from a canonical joint vector.
func jointsToAction(values []float64) map[string]float64 {
	action := make(map[string]float64, len(values))
	for i, v := range values {
		if i >= JointCount {
			break
		}
		action[robot.JointNames[i]+".pos"] = v
	}
	return action
}

// readTorques reads joint torques in canonical order.
func readTorques(rb robot.Robot) []float64 {
	raw := rb.GetTorques()
	torques := make([]float64, JointCount)
	for i, name := range robot.JointNames {
		torques[i] = raw[name]
	}
	return torques
}

// interpolateStep blends each joint from current toward target. Alpha is
// clamped to [0,1].
func interpolateStep(current, target []float64, alpha float64) []float64 {
	if alpha < 0 {
		alpha = 0
	} else if alpha > 1 {
		alpha = 1
	}
	n := len(current)
	if len(target) < n {
		n = len(target)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = current[i] + alpha*(target[i]-current[i])
	}
	return out
}

// padTarget pads a short target with current positions so unspecified
// trailing joints hold steady.
func padTarget(target, current []float64) []float64 {
	if len(target) >= JointCount {
		return target[:JointCount]
	}
	out := make([]float64, 0, JointCount)
	out = append(out, target...)
	out = append(out, current[len(target):]...)
	return out
}

// positionReached reports whether every joint is within tolerance of its
// target.
func positionReached(current, target []float64) bool {
	n := len(current)
	if len(target) < n {
		n = len(target)
	}
	for i := 0; i < n; i++ {
		d := current[i] - target[i]
		if d < 0 {
			d = -d
		}
		if d >= positionTolerance {
			return false
		}
	}
	return true
}

// peakAbsTorque returns the maximum absolute torque in a reading.
func peakAbsTorque(torques []float64) float64 {
	peak := 0.0
	for _, t := range torques {
		if t < 0 {
			t = -t
		}
		if t > peak {
			peak = t
		}
	}
	return peak
}

// displacement is the euclidean joint-space distance between two vectors.
func displacement(current, origin []float64) float64 {
	n := len(current)
	if len(origin) < n {
		n = len(origin)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := current[i] - origin[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
