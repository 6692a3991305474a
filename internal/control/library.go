package control

import (
	"context"
	"fmt"
	"sort"

	"armature/internal/logging"
	"armature/internal/robot"
)

// Primitive is the executable form of a motion primitive.
type Primitive func(ctx context.Context, rb robot.Robot, p Params) (*PrimitiveResult, error)

// Library dispatches primitives by name and injects the global speed
// factor into every invocation. Plans cannot override the factor; it is
// an operator setting, not a step parameter.
type Library struct {
	primitives map[string]Primitive
	speed      float64
}

// NewLibrary builds the standard primitive set.
func NewLibrary(speedFactor float64) *Library {
	if speedFactor <= 0 {
		speedFactor = 1.0
	}
	return &Library{
		primitives: map[string]Primitive{
			"move_to":       MoveTo,
			"pick":          Pick,
			"place":         Place,
			"guarded_move":  GuardedMove,
			"linear_insert": LinearInsert,
			"screw":         Screw,
			"press_fit":     PressFit,
		},
		speed: speedFactor,
	}
}

// Speed returns the injected speed factor.
func (l *Library) Speed() float64 { return l.speed }

// Available lists the registered primitive names, sorted.
func (l *Library) Available() []string {
	names := make([]string, 0, len(l.primitives))
	for name := range l.primitives {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a primitive name is registered.
func (l *Library) Has(name string) bool {
	_, ok := l.primitives[name]
	return ok
}

// Run executes a named primitive. Unknown names and malformed parameters
// return errors wrapping ErrConfig; runtime failures (timeouts, missed
// thresholds) are reported in the result, not as errors.
func (l *Library) Run(ctx context.Context, name string, rb robot.Robot, params map[string]interface{}) (*PrimitiveResult, error) {
	prim, ok := l.primitives[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPrimitive, name)
	}
	logging.PrimitiveDebug("dispatch %s (speed=%.2f)", name, l.speed)
	return prim(ctx, rb, NewParams(params, l.speed))
}
