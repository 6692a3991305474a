package execution

import (
	"context"
	"fmt"
	"time"

	"armature/internal/assembly"
	"armature/internal/control"
	"armature/internal/logging"
	"armature/internal/robot"
)

// stubPolicyDelay simulates a policy rollout when no backend is wired,
// scaled by the library's speed factor.
const stubPolicyDelay = 500 * time.Millisecond

// PolicyExecutor runs a learned policy for a step. Implementations may
// block for the length of a rollout; the router treats the call as a
// single suspension point.
type PolicyExecutor interface {
	RunPolicy(ctx context.Context, step *assembly.AssemblyStep, rb robot.Robot) (*StepResult, error)
}

// PolicyRouter dispatches a step to the primitive library or a policy
// backend based on its handler, normalizing either path into a
// StepResult. Without a policy backend, policy steps get a stub result
// so the state machine stays exercisable.
type PolicyRouter struct {
	library  *control.Library
	robot    robot.Robot
	policies PolicyExecutor
}

// NewPolicyRouter builds a router over the primitive library. rb may be
// nil (synthetic primitive paths), policies may be nil (stub policy
// results).
func NewPolicyRouter(library *control.Library, rb robot.Robot, policies PolicyExecutor) *PolicyRouter {
	return &PolicyRouter{library: library, robot: rb, policies: policies}
}

// Execute runs one step attempt. Configuration problems (missing or
// unregistered primitive type) return errors wrapping control.ErrConfig;
// runtime failures come back in the result. On cancellation the partial
// result is returned alongside the context error.
func (r *PolicyRouter) Execute(ctx context.Context, step *assembly.AssemblyStep) (*StepResult, error) {
	switch step.Handler {
	case assembly.HandlerPrimitive:
		return r.runPrimitive(ctx, step)
	case assembly.HandlerPolicy:
		return r.runPolicy(ctx, step)
	default:
		return nil, fmt.Errorf("%w: step %s has unknown handler %q", control.ErrConfig, step.ID, step.Handler)
	}
}

func (r *PolicyRouter) runPrimitive(ctx context.Context, step *assembly.AssemblyStep) (*StepResult, error) {
	if step.PrimitiveType == "" {
		return nil, fmt.Errorf("%w: step %s has no primitiveType", control.ErrConfig, step.ID)
	}
	logging.Router("step %s -> primitive %s", step.ID, step.PrimitiveType)

	prim, err := r.library.Run(ctx, step.PrimitiveType, r.robot, step.PrimitiveParams)
	if err != nil {
		if prim != nil {
			return resultFromPrimitive(prim), err
		}
		return nil, err
	}
	return resultFromPrimitive(prim), nil
}

func (r *PolicyRouter) runPolicy(ctx context.Context, step *assembly.AssemblyStep) (*StepResult, error) {
	if r.policies != nil {
		logging.Router("step %s -> policy %s", step.ID, step.PolicyID)
		result, err := r.policies.RunPolicy(ctx, step, r.robot)
		if err != nil {
			return result, err
		}
		result.HandlerUsed = HandlerUsedPolicy
		return result, nil
	}

	// No policy backend wired: simulate a rollout.
	logging.RouterDebug("step %s -> stub policy %s", step.ID, step.PolicyID)
	start := time.Now()
	delay := time.Duration(float64(stubPolicyDelay) * r.library.Speed())
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return &StepResult{
			HandlerUsed:  HandlerUsedStub,
			DurationMs:   float64(time.Since(start)) / float64(time.Millisecond),
			ErrorMessage: "policy stub interrupted",
		}, ctx.Err()
	case <-timer.C:
	}
	return &StepResult{
		Success:     true,
		HandlerUsed: HandlerUsedStub,
		DurationMs:  float64(time.Since(start)) / float64(time.Millisecond),
	}, nil
}
