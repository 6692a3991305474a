// Package assembly defines the assembly plan data model: parts, steps,
// success criteria, and the dependency-ordered graph the sequencer walks.
// Graphs are loaded from JSON files using the same camelCase wire format
// the planning frontend produces.
package assembly

import (
	"encoding/json"
	"fmt"
	"os"
)

// Handler selects how a step is executed.
type Handler string

const (
	HandlerPrimitive Handler = "primitive"
	HandlerPolicy    Handler = "policy"
)

// Success criteria kinds.
const (
	CriteriaPosition       = "position"
	CriteriaForceThreshold = "force_threshold"
	CriteriaForceSignature = "force_signature"
	CriteriaClassifier     = "classifier"
)

// Force signature patterns.
const (
	PatternSnapFit  = "snap_fit"
	PatternMeshing  = "meshing"
	PatternPressFit = "press_fit"
)

// DefaultMaxRetries applies to steps that do not specify maxRetries.
const DefaultMaxRetries = 3

// Part is a physical component referenced by assembly steps.
type Part struct {
	ID          string      `json:"id"`
	CADFile     string      `json:"cadFile,omitempty"`
	MeshFile    string      `json:"meshFile,omitempty"`
	GraspPoints [][]float64 `json:"graspPoints,omitempty"`
	Position    []float64   `json:"position,omitempty"`
	Geometry    string      `json:"geometry,omitempty"`
	Dimensions  []float64   `json:"dimensions,omitempty"`
	Color       string      `json:"color,omitempty"`
}

// SuccessCriteria is the per-step rule the verifier applies to telemetry.
// Threshold is a pointer so "no threshold configured" is distinguishable
// from zero.
type SuccessCriteria struct {
	Type      string   `json:"type"`
	Threshold *float64 `json:"threshold,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
	Model     string   `json:"model,omitempty"`
}

// AssemblyStep is one node of the plan graph.
type AssemblyStep struct {
	ID              string                 `json:"id"`
	Name            string                 `json:"name"`
	PartIDs         []string               `json:"partIds"`
	Dependencies    []string               `json:"dependencies"`
	Handler         Handler                `json:"handler"`
	PrimitiveType   string                 `json:"primitiveType,omitempty"`
	PrimitiveParams map[string]interface{} `json:"primitiveParams,omitempty"`
	PolicyID        string                 `json:"policyId,omitempty"`
	SuccessCriteria SuccessCriteria        `json:"successCriteria"`
	MaxRetries      int                    `json:"maxRetries"`
}

// TargetPose extracts primitive_params.target_pose as a float slice.
// JSON numbers arrive as float64; integer literals written by hand may
// arrive as int after override merging, so both are accepted.
func (s *AssemblyStep) TargetPose() ([]float64, bool) {
	if s.PrimitiveParams == nil {
		return nil, false
	}
	raw, ok := s.PrimitiveParams["target_pose"]
	if !ok {
		return nil, false
	}
	return toFloatSlice(raw)
}

func toFloatSlice(raw interface{}) ([]float64, bool) {
	switch v := raw.(type) {
	case []float64:
		return v, true
	case []interface{}:
		out := make([]float64, 0, len(v))
		for _, e := range v {
			switch n := e.(type) {
			case float64:
				out = append(out, n)
			case int:
				out = append(out, float64(n))
			default:
				return nil, false
			}
		}
		return out, true
	default:
		return nil, false
	}
}

// AssemblyGraph is a full plan: parts, steps, and the committed execution
// order. Immutable after load apart from targeted override application.
type AssemblyGraph struct {
	ID        string                   `json:"id"`
	Name      string                   `json:"name"`
	Parts     map[string]*Part         `json:"parts"`
	Steps     map[string]*AssemblyStep `json:"steps"`
	StepOrder []string                 `json:"stepOrder"`
}

// LoadGraph reads and validates an assembly graph from a JSON file.
func LoadGraph(path string) (*AssemblyGraph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read assembly file: %w", err)
	}
	return ParseGraph(data)
}

// ParseGraph decodes and validates an assembly graph from JSON bytes.
func ParseGraph(data []byte) (*AssemblyGraph, error) {
	var g AssemblyGraph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to parse assembly JSON: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	for _, step := range g.Steps {
		if step.MaxRetries <= 0 {
			step.MaxRetries = DefaultMaxRetries
		}
	}
	return &g, nil
}

// Validate checks the structural invariants the sequencer assumes:
// every step_order entry exists, and every dependency exists and precedes
// its dependent in step_order.
func (g *AssemblyGraph) Validate() error {
	if g.ID == "" {
		return fmt.Errorf("assembly has no id")
	}

	position := make(map[string]int, len(g.StepOrder))
	for i, sid := range g.StepOrder {
		if _, ok := g.Steps[sid]; !ok {
			return fmt.Errorf("step_order references unknown step %q", sid)
		}
		position[sid] = i
	}

	for _, sid := range g.StepOrder {
		step := g.Steps[sid]
		for _, dep := range step.Dependencies {
			depPos, ok := position[dep]
			if !ok {
				return fmt.Errorf("step %q depends on unknown step %q", sid, dep)
			}
			if depPos >= position[sid] {
				return fmt.Errorf("step %q depends on %q which does not precede it", sid, dep)
			}
		}
		if step.Handler == HandlerPrimitive && step.PrimitiveType == "" {
			return fmt.Errorf("primitive step %q has no primitiveType", sid)
		}
		if step.Handler == HandlerPolicy && step.PolicyID == "" {
			return fmt.Errorf("policy step %q has no policyId", sid)
		}
	}
	return nil
}
