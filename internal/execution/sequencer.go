package execution

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"armature/internal/assembly"
	"armature/internal/control"
	"armature/internal/logging"
	"armature/internal/verify"
)

// pausePoll is how often the run loop re-checks a cooperative pause.
const pausePoll = 25 * time.Millisecond

// Recorder receives one record per step attempt. Recording failures are
// logged and swallowed; they never affect run progress.
type Recorder interface {
	RecordStepResult(assemblyID, stepID string, success bool, durationMs float64, attempt int) error
}

// Observer receives a full state snapshot on every transition. Observers
// are fire-and-forget notifications and must not block for long.
type Observer func(ExecutionState)

// SequencerOptions carries the optional collaborators.
type SequencerOptions struct {
	Observer  Observer
	Analytics Recorder
	Verifier  *verify.StepVerifier
	// DefaultMaxRetries applies to steps without a retry budget of their
	// own. Parsed graphs always carry one; this covers graphs built in
	// code.
	DefaultMaxRetries int
}

// Sequencer walks an assembly plan's step order: dispatch through the
// router, verify, retry, escalate to a human on exhausted policy steps,
// and record every attempt. One run at a time; the run loop is the only
// goroutine that mutates step state, and every external read goes
// through a locked snapshot.
type Sequencer struct {
	graph     *assembly.AssemblyGraph
	router    *PolicyRouter
	verifier  *verify.StepVerifier
	analytics Recorder
	observer  Observer
	retries   int

	mu            sync.Mutex
	state         SequencerState
	steps         map[string]*StepRuntime
	currentStepID string
	runID         string
	runNumber     int
	startedAt     time.Time

	cancel  context.CancelFunc
	done    chan struct{}
	humanCh chan bool
}

// NewSequencer builds a sequencer over a resolved plan. Overrides must
// already be merged into the graph; the sequencer never re-reads them.
func NewSequencer(graph *assembly.AssemblyGraph, router *PolicyRouter, opts SequencerOptions) *Sequencer {
	verifier := opts.Verifier
	if verifier == nil {
		verifier = verify.NewStepVerifier()
	}
	retries := opts.DefaultMaxRetries
	if retries < 1 {
		retries = assembly.DefaultMaxRetries
	}
	return &Sequencer{
		graph:     graph,
		router:    router,
		verifier:  verifier,
		analytics: opts.Analytics,
		observer:  opts.Observer,
		retries:   retries,
		state:     StateIdle,
		steps:     map[string]*StepRuntime{},
		humanCh:   make(chan bool, 1),
	}
}

// State returns the current lifecycle state.
func (s *Sequencer) State() SequencerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentStep returns the step the run is on, or nil between runs.
func (s *Sequencer) CurrentStep() *assembly.AssemblyStep {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentStepID == "" {
		return nil
	}
	return s.graph.Steps[s.currentStepID]
}

// Start begins a run. Valid only from IDLE.
func (s *Sequencer) Start() error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return fmt.Errorf("cannot start from state %s", s.state)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.runNumber++
	s.runID = uuid.NewString()
	s.humanCh = make(chan bool, 1)
	s.startedAt = time.Now()
	s.currentStepID = ""
	s.steps = make(map[string]*StepRuntime, len(s.graph.StepOrder))
	for _, id := range s.graph.StepOrder {
		s.steps[id] = &StepRuntime{Status: StepPending}
	}
	s.state = StateRunning
	s.mu.Unlock()

	logging.Sequencer("run %s started: assembly=%s steps=%d", s.runID, s.graph.ID, len(s.graph.StepOrder))
	s.emit()
	go s.run(ctx)
	return nil
}

// Pause requests a cooperative pause. The in-flight step finishes its
// current attempt; the loop suspends before dispatching further.
func (s *Sequencer) Pause() error {
	s.mu.Lock()
	if s.state != StateRunning && s.state != StateStepActive {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("cannot pause from state %s", state)
	}
	s.state = StatePaused
	s.mu.Unlock()
	logging.Sequencer("run %s paused", s.runID)
	s.emit()
	return nil
}

// Resume continues a paused run.
func (s *Sequencer) Resume() error {
	s.mu.Lock()
	if s.state != StatePaused {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("cannot resume from state %s", state)
	}
	s.state = StateRunning
	s.mu.Unlock()
	logging.Sequencer("run %s resumed", s.runID)
	s.emit()
	return nil
}

// Stop cancels the in-flight run and returns to IDLE. The in-flight
// primitive observes cancellation at its next tick boundary; no state
// emissions for the run occur after Stop returns.
func (s *Sequencer) Stop() error {
	s.mu.Lock()
	if s.state == StateIdle {
		s.mu.Unlock()
		return nil
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	s.mu.Lock()
	s.state = StateIdle
	s.currentStepID = ""
	s.mu.Unlock()
	logging.Sequencer("run %s stopped", s.runID)
	return nil
}

// CompleteHumanStep resolves a step parked in WAITING_FOR_HUMAN. Success
// marks the step resolved and resumes the loop at the next step; failure
// ends the run in ERROR.
func (s *Sequencer) CompleteHumanStep(success bool) error {
	s.mu.Lock()
	if s.state != StateWaitingForHuman {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("no step waiting for human (state %s)", state)
	}
	s.mu.Unlock()

	select {
	case s.humanCh <- success:
		return nil
	default:
		return errors.New("human step outcome already submitted")
	}
}

// GetExecutionState returns a consistent snapshot of the run.
func (s *Sequencer) GetExecutionState() ExecutionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Sequencer) snapshotLocked() ExecutionState {
	states := make(map[string]StepRuntime, len(s.steps))
	successes, completed := 0, 0
	for id, rt := range s.steps {
		states[id] = *rt
		switch rt.Status {
		case StepSuccess:
			successes++
			completed++
		case StepFailed:
			completed++
		}
	}
	rate := 0.0
	if completed > 0 {
		rate = float64(successes) / float64(completed)
	}
	elapsed := 0.0
	if !s.startedAt.IsZero() {
		elapsed = msSince(s.startedAt)
	}
	return ExecutionState{
		Phase:         s.state.Phase(),
		AssemblyID:    s.graph.ID,
		RunID:         s.runID,
		RunNumber:     s.runNumber,
		CurrentStepID: s.currentStepID,
		StepStates:    states,
		StartedAt:     s.startedAt,
		ElapsedMs:     elapsed,
		SuccessRate:   rate,
	}
}

func (s *Sequencer) emit() {
	s.mu.Lock()
	obs := s.observer
	snap := s.snapshotLocked()
	s.mu.Unlock()
	if obs != nil {
		obs(snap)
	}
}

// run is the step-iteration loop. It is the only goroutine that advances
// step state; it exits on completion, terminal error, or cancellation.
func (s *Sequencer) run(ctx context.Context) {
	defer close(s.done)

	for _, stepID := range s.graph.StepOrder {
		if !s.waitWhilePaused(ctx) {
			return
		}
		step := s.graph.Steps[stepID]
		if !s.executeStep(ctx, step) {
			return
		}
	}

	s.mu.Lock()
	s.state = StateComplete
	s.currentStepID = ""
	s.mu.Unlock()
	logging.Sequencer("run %s complete", s.runID)
	s.emit()
}

// waitWhilePaused blocks at a step boundary while paused. Returns false
// on cancellation.
func (s *Sequencer) waitWhilePaused(ctx context.Context) bool {
	for {
		if ctx.Err() != nil {
			return false
		}
		s.mu.Lock()
		paused := s.state == StatePaused
		s.mu.Unlock()
		if !paused {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(pausePoll):
		}
	}
}

// executeStep runs one step through its retry budget. Returns false when
// the run must end (terminal error or cancellation).
func (s *Sequencer) executeStep(ctx context.Context, step *assembly.AssemblyStep) bool {
	maxRetries := step.MaxRetries
	if maxRetries < 1 {
		maxRetries = s.retries
	}

	for attempt := 1; ; attempt++ {
		s.mu.Lock()
		s.currentStepID = step.ID
		rt := s.steps[step.ID]
		rt.Status = StepRunning
		rt.Attempt = attempt
		rt.StartedAtMs = msSince(s.startedAt)
		if s.state != StatePaused {
			s.state = StateStepActive
		}
		s.mu.Unlock()
		s.emit()

		result, err := s.dispatch(ctx, step)
		if ctx.Err() != nil {
			// Cancellation is not a failure: no retry increment, no
			// analytics record, no further emissions.
			return false
		}
		if err != nil {
			if errors.Is(err, control.ErrConfig) {
				logging.Sequencer("run %s step %s: %v", s.runID, step.ID, err)
				s.record(step.ID, false, 0, attempt)
				s.finishStep(step.ID, StepFailed, 0, err.Error(), StateError)
				return false
			}
			result = &StepResult{ErrorMessage: err.Error()}
		}

		passed, detail := s.evaluate(step, result)
		s.record(step.ID, passed, result.DurationMs, attempt)

		if passed {
			s.finishStep(step.ID, StepSuccess, result.DurationMs, "", StateRunning)
			return true
		}

		logging.Sequencer("run %s step %s attempt %d/%d failed: %s", s.runID, step.ID, attempt, maxRetries, detail)
		if attempt < maxRetries {
			s.mu.Lock()
			rt.ErrorMessage = detail
			s.mu.Unlock()
			continue
		}

		// Retries exhausted. Policy steps escalate to a human; a
		// primitive that cannot succeed is a systemic problem.
		if step.Handler == assembly.HandlerPolicy {
			return s.waitForHuman(ctx, step, attempt, detail)
		}
		s.finishStep(step.ID, StepFailed, result.DurationMs, detail, StateError)
		return false
	}
}

// dispatch routes one attempt, converting collaborator panics into step
// failures so the run loop survives.
func (s *Sequencer) dispatch(ctx context.Context, step *assembly.AssemblyStep) (result *StepResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Sequencer("run %s step %s: handler panic: %v", s.runID, step.ID, r)
			result = &StepResult{ErrorMessage: fmt.Sprintf("handler panic: %v", r)}
			err = nil
		}
	}()
	return s.router.Execute(ctx, step)
}

// evaluate combines the router's own success flag with verification.
// Steps without configured criteria are taken at the router's word.
func (s *Sequencer) evaluate(step *assembly.AssemblyStep, result *StepResult) (bool, string) {
	if !result.Success {
		detail := result.ErrorMessage
		if detail == "" {
			detail = "step handler reported failure"
		}
		return false, detail
	}
	if step.SuccessCriteria.Type == "" {
		return true, ""
	}
	vres := s.verifier.Verify(step, result.Telemetry())
	logging.Verify("step %s %s: passed=%t confidence=%.2f %s",
		step.ID, step.SuccessCriteria.Type, vres.Passed, vres.Confidence, vres.Detail)
	if !vres.Passed {
		return false, vres.Detail
	}
	return true, ""
}

// waitForHuman parks the run until the operator resolves the step.
func (s *Sequencer) waitForHuman(ctx context.Context, step *assembly.AssemblyStep, attempt int, detail string) bool {
	s.mu.Lock()
	s.state = StateWaitingForHuman
	rt := s.steps[step.ID]
	rt.ErrorMessage = detail
	waitStart := rt.StartedAtMs
	s.mu.Unlock()
	logging.Sequencer("run %s step %s waiting for human after %d attempts", s.runID, step.ID, attempt)
	s.emit()

	var success bool
	select {
	case <-ctx.Done():
		return false
	case success = <-s.humanCh:
	}

	duration := msSince(s.startedAt) - waitStart
	s.record(step.ID, success, duration, attempt)
	if !success {
		s.finishStep(step.ID, StepFailed, duration, "marked failed by operator", StateError)
		return false
	}
	logging.Sequencer("run %s step %s resolved by human", s.runID, step.ID)
	s.finishStep(step.ID, StepSuccess, duration, "", StateRunning)
	return true
}

// finishStep records a step's terminal status and emits. A pause taken
// mid-step is preserved; terminal states always win.
func (s *Sequencer) finishStep(stepID, status string, durationMs float64, detail string, next SequencerState) {
	s.mu.Lock()
	rt := s.steps[stepID]
	rt.Status = status
	rt.DurationMs = durationMs
	rt.ErrorMessage = detail
	if next == StateError {
		s.state = StateError
		s.currentStepID = stepID
	} else if s.state != StatePaused {
		s.state = next
	}
	s.mu.Unlock()
	s.emit()
}

// record forwards one attempt to analytics. Write failures never touch
// the run.
func (s *Sequencer) record(stepID string, success bool, durationMs float64, attempt int) {
	if s.analytics == nil {
		return
	}
	if err := s.analytics.RecordStepResult(s.graph.ID, stepID, success, durationMs, attempt); err != nil {
		logging.AnalyticsWarn("record %s/%s: %v", s.graph.ID, stepID, err)
	}
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t)) / float64(time.Millisecond)
}
