package robot

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"armature/internal/assembly"
	"armature/internal/logging"
	"armature/internal/verify"
)

// JointNames is the canonical 7-joint ordering: 6 arm joints plus the
// gripper, matching the follower arm layout.
var JointNames = []string{"base", "link1", "link2", "link3", "link4", "link5", "gripper"}

// MockRobot is a fake follower that obeys sent commands. Once SendAction
// has been called, observations return the last commanded positions (a
// real follower tracks its setpoint); before any command it returns smooth
// sine-wave trajectories so passive observation scenarios see motion.
type MockRobot struct {
	mu        sync.Mutex
	start     time.Time
	commanded map[string]float64
	rng       *rand.Rand
}

// NewMockRobot creates a connected mock follower.
func NewMockRobot() *MockRobot {
	logging.Robot("MockRobot connected")
	return &MockRobot{
		start: time.Now(),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GetObservation returns joint positions keyed "{joint}.pos".
func (m *MockRobot) GetObservation() map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.commanded != nil {
		obs := make(map[string]float64, len(m.commanded))
		for k, v := range m.commanded {
			obs[k] = v
		}
		return obs
	}

	t := time.Since(m.start).Seconds()
	obs := make(map[string]float64, len(JointNames))
	for i, n := range JointNames {
		obs[n+".pos"] = math.Sin(t*0.5+float64(i)*0.5) * 0.3
	}
	return obs
}

// SendAction stores the commanded positions as the new observed state.
func (m *MockRobot) SendAction(action map[string]float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commanded = make(map[string]float64, len(action))
	for k, v := range action {
		m.commanded[k] = v
	}
}

// GetTorques returns small random torques, as an unloaded arm would read.
func (m *MockRobot) GetTorques() map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	torques := make(map[string]float64, len(JointNames))
	for _, n := range JointNames {
		torques[n] = m.rng.Float64()*0.2 - 0.1
	}
	return torques
}

// GenerateExecutionData produces criteria-shaped mock telemetry for
// verifier testing. forceSuccess nil gives an 80% success rate.
func (m *MockRobot) GenerateExecutionData(step *assembly.AssemblyStep, forceSuccess *bool) *verify.ExecutionData {
	m.mu.Lock()
	rng := m.rng
	m.mu.Unlock()

	succeed := rng.Float64() < 0.8
	if forceSuccess != nil {
		succeed = *forceSuccess
	}

	target := []float64{0, 0, 0, 0, 0, 0}
	if tp, ok := step.TargetPose(); ok {
		target = tp
	}
	durationMs := 500 + rng.Float64()*2500

	criteria := step.SuccessCriteria
	switch criteria.Type {
	case assembly.CriteriaForceThreshold:
		return genForceThreshold(rng, criteria.Threshold, target, succeed, durationMs)
	case assembly.CriteriaPosition:
		return genPosition(rng, target, succeed, durationMs)
	case assembly.CriteriaForceSignature:
		return genForceSignature(rng, criteria.Pattern, criteria.Threshold, target, succeed, durationMs)
	default:
		return &verify.ExecutionData{DurationMs: durationMs}
	}
}

func genForceThreshold(rng *rand.Rand, threshold *float64, target []float64, succeed bool, durationMs float64) *verify.ExecutionData {
	thr := 1.0
	if threshold != nil {
		thr = *threshold
	}
	var history []float64
	if succeed {
		history = ramp(thr*0.1, thr*1.2, 30)
	} else {
		history = make([]float64, 30)
		for i := range history {
			history[i] = thr*0.1 + rng.Float64()*thr*0.5
		}
	}
	return telemetry(history, firstThree(target), durationMs)
}

func genPosition(rng *rand.Rand, target []float64, succeed bool, durationMs float64) *verify.ExecutionData {
	final := firstThree(target)
	if succeed {
		for i := range final {
			final[i] += rng.Float64()*0.6 - 0.3
		}
	} else {
		final[rng.Intn(len(final))] += 5.0
	}
	noise := make([]float64, 20)
	for i := range noise {
		noise[i] = rng.Float64() * 0.5
	}
	data := telemetry(noise, nil, durationMs)
	data.FinalPosition = final
	return data
}

func genForceSignature(rng *rand.Rand, pattern string, threshold *float64, target []float64, succeed bool, durationMs float64) *verify.ExecutionData {
	var history []float64
	switch pattern {
	case assembly.PatternSnapFit:
		history = genSnapFit(rng, succeed)
	case assembly.PatternMeshing:
		history = genMeshing(succeed)
	case assembly.PatternPressFit:
		history = genPressFit(rng, threshold, succeed)
	default:
		history = make([]float64, 20)
		for i := range history {
			history[i] = rng.Float64() * 0.3
		}
	}
	return telemetry(history, firstThree(target), durationMs)
}

func genSnapFit(rng *rand.Rand, succeed bool) []float64 {
	if succeed {
		history := ramp(0.5, 5.0, 16)
		history = append(history, 2.0, 1.5, 1.2, 1.1)
		for i := 0; i < 10; i++ {
			history = append(history, 1.0+rng.Float64()*0.2-0.1)
		}
		return history
	}
	history := make([]float64, 30)
	for i := range history {
		history[i] = rng.Float64() * 0.05
	}
	return history
}

func genMeshing(succeed bool) []float64 {
	if succeed {
		history := make([]float64, 40)
		for i := range history {
			history[i] = 1.5 + 1.2*math.Sin(float64(i)*math.Pi/4)
		}
		return history
	}
	return ramp(0.1, 2.0, 30)
}

func genPressFit(rng *rand.Rand, threshold *float64, succeed bool) []float64 {
	thr := 5.0
	if threshold != nil {
		thr = *threshold
	}
	if succeed {
		history := ramp(0.2, thr*1.1, 30)
		for i := range history {
			history[i] += rng.Float64()*0.1 - 0.05
		}
		return history
	}
	history := ramp(0.2, thr*0.4, 10)
	for i := 0; i < 10; i++ {
		history = append(history, thr*0.4+rng.Float64()*0.6-0.3)
	}
	return history
}

func telemetry(history, finalPosition []float64, durationMs float64) *verify.ExecutionData {
	peak, final := 0.0, 0.0
	if len(history) > 0 {
		final = history[len(history)-1]
		for _, v := range history {
			if v > peak {
				peak = v
			}
		}
	}
	return &verify.ExecutionData{
		FinalPosition: finalPosition,
		ForceHistory:  history,
		PeakForce:     peak,
		FinalForce:    final,
		DurationMs:    durationMs,
	}
}

func ramp(start, stop float64, n int) []float64 {
	out := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func firstThree(v []float64) []float64 {
	out := []float64{0, 0, 0}
	for i := 0; i < 3 && i < len(v); i++ {
		out[i] = v[i]
	}
	return out
}
