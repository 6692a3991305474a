// Package robot defines the hardware handle contract consumed by motion
// primitives, plus a mock follower for hardware-free execution and tests.
package robot

// Robot is the capability surface the control loops require of a follower
// arm. Observations and actions use "{joint}.pos" keys; torques use bare
// joint names. Nothing else about the hardware is assumed.
type Robot interface {
	// GetObservation returns current joint positions keyed "{joint}.pos".
	GetObservation() map[string]float64
	// GetTorques returns current joint torques (Nm) keyed by joint name.
	GetTorques() map[string]float64
	// SendAction commands joint positions keyed "{joint}.pos".
	SendAction(action map[string]float64)
}
