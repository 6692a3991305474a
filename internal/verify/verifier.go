package verify

import (
	"armature/internal/assembly"
	"armature/internal/logging"
)

// Checker scores one telemetry sample against one step's criteria.
type Checker func(step *assembly.AssemblyStep, data *ExecutionData) Result

// StepVerifier dispatches a step's success criteria to the matching
// checker. It holds no state and is safe for concurrent use.
type StepVerifier struct {
	checkers map[string]Checker
}

// NewStepVerifier returns a verifier with the four built-in checkers.
func NewStepVerifier() *StepVerifier {
	return &StepVerifier{
		checkers: map[string]Checker{
			assembly.CriteriaPosition:       CheckPosition,
			assembly.CriteriaForceThreshold: CheckForceThreshold,
			assembly.CriteriaForceSignature: CheckForceSignature,
			assembly.CriteriaClassifier:     CheckClassifier,
		},
	}
}

// Verify runs the checker for the step's criteria type. Unrecognized
// criteria kinds never hard-block: they pass at half confidence.
func (v *StepVerifier) Verify(step *assembly.AssemblyStep, data *ExecutionData) Result {
	checker, ok := v.checkers[step.SuccessCriteria.Type]
	if !ok {
		logging.Verify("Step %s: unknown criteria type %q, passing by default", step.ID, step.SuccessCriteria.Type)
		return Result{
			Passed:     true,
			Confidence: 0.5,
			Detail:     "unrecognized success criteria type " + step.SuccessCriteria.Type,
		}
	}

	result := checker(step, data)
	logging.VerifyDebug("Step %s: criteria=%s passed=%v confidence=%.2f detail=%s",
		step.ID, step.SuccessCriteria.Type, result.Passed, result.Confidence, result.Detail)
	return result
}
