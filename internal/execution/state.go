package execution

import "time"

// SequencerState is the run lifecycle state.
type SequencerState string

const (
	StateIdle            SequencerState = "IDLE"
	StateRunning         SequencerState = "RUNNING"
	StateStepActive      SequencerState = "STEP_ACTIVE"
	StatePaused          SequencerState = "PAUSED"
	StateWaitingForHuman SequencerState = "WAITING_FOR_HUMAN"
	StateComplete        SequencerState = "COMPLETE"
	StateError           SequencerState = "ERROR"
)

// Phase is the external name of the state: STEP_ACTIVE collapses into
// "running" and WAITING_FOR_HUMAN surfaces as "teaching", the operator
// facing vocabulary.
func (s SequencerState) Phase() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning, StateStepActive:
		return "running"
	case StatePaused:
		return "paused"
	case StateWaitingForHuman:
		return "teaching"
	case StateComplete:
		return "complete"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Step statuses.
const (
	StepPending = "pending"
	StepRunning = "running"
	StepSuccess = "success"
	StepFailed  = "failed"
)

// StepRuntime is one step's runtime state within the current run.
type StepRuntime struct {
	Status       string  `json:"status"`
	Attempt      int     `json:"attempt"`
	StartedAtMs  float64 `json:"startedAtMs"`
	DurationMs   float64 `json:"durationMs"`
	ErrorMessage string  `json:"errorMessage,omitempty"`
}

// ExecutionState is a consistent point-in-time snapshot of a run,
// emitted to observers on every transition and served to pollers.
type ExecutionState struct {
	Phase         string                 `json:"phase"`
	AssemblyID    string                 `json:"assemblyId"`
	RunID         string                 `json:"runId"`
	RunNumber     int                    `json:"runNumber"`
	CurrentStepID string                 `json:"currentStepId,omitempty"`
	StepStates    map[string]StepRuntime `json:"stepStates"`
	StartedAt     time.Time              `json:"startedAt"`
	ElapsedMs     float64                `json:"elapsedMs"`
	SuccessRate   float64                `json:"successRate"`
}
