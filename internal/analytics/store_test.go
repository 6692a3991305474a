package analytics

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "analytics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndMetrics(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.RecordStepResult("asm", "step_001", true, 120.0, 1))
	require.NoError(t, store.RecordStepResult("asm", "step_001", false, 80.0, 1))
	require.NoError(t, store.RecordStepResult("asm", "step_001", true, 100.0, 2))

	metrics, err := store.GetStepMetricsFor("asm", []string{"step_001"})
	require.NoError(t, err)
	require.Len(t, metrics, 1)

	m := metrics[0]
	assert.Equal(t, "step_001", m.StepID)
	assert.Equal(t, 3, m.TotalAttempts)
	assert.InDelta(t, 0.6667, m.SuccessRate, 0.0001)
	// Average duration counts successful attempts only.
	assert.Equal(t, 110.0, m.AvgDurationMs)
	require.Len(t, m.RecentRuns, 3)
	assert.False(t, m.RecentRuns[1].Success)
	assert.Greater(t, m.RecentRuns[0].Timestamp, 0.0)
}

func TestMetricsForUnknownStepAreZero(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.RecordStepResult("asm", "step_001", true, 50.0, 1))

	metrics, err := store.GetStepMetricsFor("asm", []string{"step_001", "step_missing"})
	require.NoError(t, err)
	require.Len(t, metrics, 2)

	missing := metrics[1]
	assert.Equal(t, "step_missing", missing.StepID)
	assert.Equal(t, 0, missing.TotalAttempts)
	assert.Equal(t, 0.0, missing.SuccessRate)
	assert.Equal(t, 0.0, missing.AvgDurationMs)
	assert.Empty(t, missing.RecentRuns)
}

func TestGetStepMetricsListsRecordedSteps(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.RecordStepResult("asm", "step_002", true, 10.0, 1))
	require.NoError(t, store.RecordStepResult("asm", "step_001", true, 10.0, 1))
	require.NoError(t, store.RecordStepResult("other", "step_009", true, 10.0, 1))

	metrics, err := store.GetStepMetrics("asm")
	require.NoError(t, err)
	require.Len(t, metrics, 2)
	assert.Equal(t, "step_001", metrics[0].StepID)
	assert.Equal(t, "step_002", metrics[1].StepID)
}

func TestHistoryCapAndRecentWindow(t *testing.T) {
	store := newTestStore(t)
	for i := 0; i < maxStoredRuns+25; i++ {
		require.NoError(t, store.RecordStepResult("asm", "step_001", true, float64(i), 1))
	}

	metrics, err := store.GetStepMetricsFor("asm", []string{"step_001"})
	require.NoError(t, err)
	m := metrics[0]
	assert.Equal(t, maxStoredRuns, m.TotalAttempts)
	assert.Len(t, m.RecentRuns, recentRunsWindow)
	// Oldest entries were trimmed: the surviving window ends at the
	// latest write.
	assert.Equal(t, float64(maxStoredRuns+24), m.RecentRuns[recentRunsWindow-1].DurationMs)
}

func TestStepHistoryLimit(t *testing.T) {
	store := newTestStore(t)
	for i := 0; i < 10; i++ {
		require.NoError(t, store.RecordStepResult("asm", "step_001", i%2 == 0, float64(i), 1))
	}

	history, err := store.GetStepHistory("asm", "step_001", 4)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, 6.0, history[0].DurationMs)
	assert.Equal(t, 9.0, history[3].DurationMs)

	empty, err := store.GetStepHistory("asm", "nope", 4)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
