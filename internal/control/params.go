package control

import (
	"fmt"
	"time"
)

// Params is the parameter bag handed to a primitive, with typed accessors
// that fail loudly on wrong-typed values instead of producing surprises
// deep inside a control loop. Absent optional keys take the documented
// per-primitive defaults. The speed factor is injected by the library,
// never supplied by plans.
type Params struct {
	bag   map[string]interface{}
	speed float64
}

// NewParams builds a parameter bag. Used directly in tests; production
// code goes through Library.Run.
func NewParams(bag map[string]interface{}, speed float64) Params {
	if bag == nil {
		bag = map[string]interface{}{}
	}
	if speed <= 0 {
		speed = 1.0
	}
	return Params{bag: bag, speed: speed}
}

// Float returns a numeric parameter, or def when absent.
func (p Params) Float(key string, def float64) (float64, error) {
	raw, ok := p.bag[key]
	if !ok {
		return def, nil
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("%w: parameter %q must be a number, got %T", ErrConfig, key, raw)
	}
}

// Seconds returns a float-seconds parameter as a Duration, or def when
// absent.
func (p Params) Seconds(key string, def time.Duration) (time.Duration, error) {
	raw, ok := p.bag[key]
	if !ok {
		return def, nil
	}
	switch v := raw.(type) {
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	case int:
		return time.Duration(v) * time.Second, nil
	default:
		return 0, fmt.Errorf("%w: parameter %q must be a number of seconds, got %T", ErrConfig, key, raw)
	}
}

// Vec returns a float-vector parameter, or def when absent.
func (p Params) Vec(key string, def []float64) ([]float64, error) {
	raw, ok := p.bag[key]
	if !ok {
		return def, nil
	}
	switch v := raw.(type) {
	case []float64:
		return v, nil
	case []interface{}:
		out := make([]float64, len(v))
		for i, e := range v {
			switch n := e.(type) {
			case float64:
				out[i] = n
			case int:
				out[i] = float64(n)
			default:
				return nil, fmt.Errorf("%w: parameter %q[%d] must be a number, got %T", ErrConfig, key, i, e)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: parameter %q must be a number list, got %T", ErrConfig, key, raw)
	}
}

// Bools returns a bool-vector parameter, or nil when absent.
func (p Params) Bools(key string) ([]bool, error) {
	raw, ok := p.bag[key]
	if !ok {
		return nil, nil
	}
	switch v := raw.(type) {
	case []bool:
		return v, nil
	case []interface{}:
		out := make([]bool, len(v))
		for i, e := range v {
			b, ok := e.(bool)
			if !ok {
				return nil, fmt.Errorf("%w: parameter %q[%d] must be a bool, got %T", ErrConfig, key, i, e)
			}
			out[i] = b
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: parameter %q must be a bool list, got %T", ErrConfig, key, raw)
	}
}
