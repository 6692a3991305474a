package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDisabledLoggingIsNoop(t *testing.T) {
	require.NoError(t, Initialize(Options{Enabled: false}))
	defer CloseAll()

	// Must not panic or create files.
	Sequencer("state change: %s", "running")
	l := Get(CategorySequencer)
	require.Nil(t, l.file)
}

func TestCategoryFilesCreated(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Initialize(Options{Enabled: true, Dir: dir, Level: "debug"}))
	defer CloseAll()

	Primitive("move_to: target=%v", []float64{1, 2, 3})
	PrimitiveDebug("tick %d", 42)
	CloseAll()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Contains(t, entries[0].Name(), "primitive")

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	require.Contains(t, string(data), "[INFO] move_to")
	require.Contains(t, string(data), "[DEBUG] tick 42")
}

func TestLevelFiltering(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Initialize(Options{Enabled: true, Dir: dir, Level: "warn"}))
	defer CloseAll()

	l := Get(CategoryRouter)
	l.Info("dispatching")
	l.Warn("slow dispatch")
	CloseAll()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	require.NotContains(t, string(data), "dispatching\n")
	require.Contains(t, string(data), "[WARN] slow dispatch")
}

func TestCategoryDisable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Initialize(Options{
		Enabled:    true,
		Dir:        dir,
		Categories: map[string]bool{"robot": false},
	}))
	defer CloseAll()

	require.False(t, IsCategoryEnabled(CategoryRobot))
	require.True(t, IsCategoryEnabled(CategorySequencer))

	Robot("torque read")
	CloseAll()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		require.False(t, strings.Contains(e.Name(), "robot"), "robot log should not exist")
	}
}
