package assembly

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func graphJSON(id string) string {
	return strings.ReplaceAll(`{
		"id": "ASSEMBLY_ID",
		"name": "Fixture",
		"steps": {
			"step_001": {
				"id": "step_001",
				"name": "Pick part",
				"partIds": ["p1"],
				"dependencies": [],
				"handler": "primitive",
				"primitiveType": "pick",
				"successCriteria": {"type": "force_threshold", "threshold": 0.5}
			}
		},
		"stepOrder": ["step_001"]
	}`, "ASSEMBLY_ID", id)
}

func TestCatalogLoadsDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte(graphJSON("asm_a")), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.json"), []byte(graphJSON("asm_b")), 0o644))
	// A broken file must not take down the catalog.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{nope"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644))

	cat, err := NewCatalog(dir, nil)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"asm_a", "asm_b"}, cat.List())
	g, ok := cat.Get("asm_a")
	require.True(t, ok)
	assert.Equal(t, "asm_a", g.ID)
	_, ok = cat.Get("broken")
	assert.False(t, ok)
}

func TestCatalogAppliesOverridesOnLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte(graphJSON("asm_a")), 0o644))

	store := NewOverrideStore(t.TempDir())
	require.NoError(t, store.Add("asm_a", &StepOverride{
		MatchPattern: "pick part",
		MaxRetries:   intPtr(7),
	}))

	cat, err := NewCatalog(dir, store)
	require.NoError(t, err)
	g, ok := cat.Get("asm_a")
	require.True(t, ok)
	assert.Equal(t, 7, g.Steps["step_001"].MaxRetries)
}

func TestCatalogWatchReloadsAndRemoves(t *testing.T) {
	dir := t.TempDir()
	cat, err := NewCatalog(dir, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, cat.Watch(ctx))
	defer func() {
		cancel()
		select {
		case <-cat.Done():
		case <-time.After(5 * time.Second):
			t.Fatal("watcher did not shut down")
		}
	}()

	path := filepath.Join(dir, "hot.json")
	require.NoError(t, os.WriteFile(path, []byte(graphJSON("hot_asm")), 0o644))
	waitFor(t, func() bool { _, ok := cat.Get("hot_asm"); return ok }, "assembly never appeared")

	require.NoError(t, os.Remove(path))
	waitFor(t, func() bool { _, ok := cat.Get("hot_asm"); return !ok }, "assembly never dropped")
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal(msg)
}
