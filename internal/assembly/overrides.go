package assembly

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"armature/internal/logging"
)

// StepOverride is a user or advisory edit to an assembly step, stored
// separately from the plan so re-uploads keep user intent. Overrides match
// by name substring and/or part-id intersection rather than step ID, since
// step IDs change when a plan is re-parsed. When both match fields are set
// a step must satisfy both.
type StepOverride struct {
	MatchPattern    string                 `json:"matchPattern,omitempty"`
	MatchPartIDs    []string               `json:"matchPartIds,omitempty"`
	Handler         *Handler               `json:"handler,omitempty"`
	PrimitiveType   *string                `json:"primitiveType,omitempty"`
	PrimitiveParams map[string]interface{} `json:"primitiveParams,omitempty"`
	SuccessCriteria *SuccessCriteria       `json:"successCriteria,omitempty"`
	MaxRetries      *int                   `json:"maxRetries,omitempty"`
	PolicyID        *string                `json:"policyId,omitempty"`
	Source          string                 `json:"source"`
	CreatedAt       string                 `json:"createdAt"`
}

// Matches reports whether this override applies to the given step.
func (o *StepOverride) Matches(step *AssemblyStep) bool {
	if o.MatchPattern == "" && len(o.MatchPartIDs) == 0 {
		return false
	}
	if o.MatchPattern != "" {
		if !strings.Contains(strings.ToLower(step.Name), strings.ToLower(o.MatchPattern)) {
			return false
		}
	}
	if len(o.MatchPartIDs) > 0 {
		if !intersects(o.MatchPartIDs, step.PartIDs) {
			return false
		}
	}
	return true
}

func intersects(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		if _, ok := set[s]; ok {
			return true
		}
	}
	return false
}

// apply mutates the step: params merge key-by-key, everything else replaces.
func (o *StepOverride) apply(step *AssemblyStep) {
	if o.Handler != nil {
		step.Handler = *o.Handler
	}
	if o.PrimitiveType != nil {
		step.PrimitiveType = *o.PrimitiveType
	}
	if o.PrimitiveParams != nil {
		if step.PrimitiveParams == nil {
			step.PrimitiveParams = make(map[string]interface{}, len(o.PrimitiveParams))
		}
		for k, v := range o.PrimitiveParams {
			step.PrimitiveParams[k] = v
		}
	}
	if o.SuccessCriteria != nil {
		step.SuccessCriteria = *o.SuccessCriteria
	}
	if o.MaxRetries != nil && *o.MaxRetries > 0 {
		step.MaxRetries = *o.MaxRetries
	}
	if o.PolicyID != nil {
		step.PolicyID = *o.PolicyID
	}
}

// AssemblyOverrides is the override collection for one assembly.
type AssemblyOverrides struct {
	AssemblyID string          `json:"assemblyId"`
	Overrides  []*StepOverride `json:"overrides"`
}

// OverrideStore persists overrides as JSON files under root, one file per
// assembly. Safe for concurrent use.
type OverrideStore struct {
	mu   sync.Mutex
	root string
}

// NewOverrideStore creates a store rooted at the given directory.
func NewOverrideStore(root string) *OverrideStore {
	return &OverrideStore{root: root}
}

func (s *OverrideStore) path(assemblyID string) string {
	return filepath.Join(s.root, assemblyID+".json")
}

// Load returns the overrides for an assembly, empty if none are stored.
func (s *OverrideStore) Load(assemblyID string) (*AssemblyOverrides, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(assemblyID)
}

func (s *OverrideStore) loadLocked(assemblyID string) (*AssemblyOverrides, error) {
	data, err := os.ReadFile(s.path(assemblyID))
	if err != nil {
		if os.IsNotExist(err) {
			return &AssemblyOverrides{AssemblyID: assemblyID}, nil
		}
		return nil, fmt.Errorf("failed to read overrides: %w", err)
	}
	var ov AssemblyOverrides
	if err := json.Unmarshal(data, &ov); err != nil {
		return nil, fmt.Errorf("failed to parse overrides for %s: %w", assemblyID, err)
	}
	return &ov, nil
}

// Add appends an override for an assembly and persists the collection.
func (s *OverrideStore) Add(assemblyID string, override *StepOverride) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ov, err := s.loadLocked(assemblyID)
	if err != nil {
		return err
	}
	if override.CreatedAt == "" {
		override.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if override.Source == "" {
		override.Source = "user"
	}
	ov.Overrides = append(ov.Overrides, override)

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("failed to create override dir: %w", err)
	}
	data, err := json.MarshalIndent(ov, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(assemblyID), data, 0o644)
}

// Apply matches stored overrides against the graph's steps, in step order,
// and mutates matching steps. Returns the number of steps touched.
func (s *OverrideStore) Apply(graph *AssemblyGraph) (int, error) {
	ov, err := s.Load(graph.ID)
	if err != nil {
		return 0, err
	}

	touched := 0
	for _, sid := range graph.StepOrder {
		step := graph.Steps[sid]
		applied := false
		for _, o := range ov.Overrides {
			if o.Matches(step) {
				o.apply(step)
				applied = true
			}
		}
		if applied {
			touched++
		}
	}
	if touched > 0 {
		logging.Catalog("Applied overrides to %d steps of %s", touched, graph.ID)
	}
	return touched, nil
}
