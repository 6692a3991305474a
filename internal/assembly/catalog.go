package assembly

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"armature/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Catalog holds the loaded assembly graphs for a directory of plan files
// and optionally hot-reloads them when files change. One JSON file per
// assembly; the graph ID comes from the file content, not the filename.
type Catalog struct {
	mu        sync.RWMutex
	dir       string
	graphs    map[string]*AssemblyGraph // assembly ID -> graph
	byPath    map[string]string         // file path -> assembly ID
	overrides *OverrideStore            // optional, applied on load

	watcher  *fsnotify.Watcher
	debounce map[string]time.Time
	doneCh   chan struct{}
}

// NewCatalog scans dir for *.json assembly files and loads them all.
// Files that fail to parse are skipped with a warning so one bad plan
// does not take down the catalog.
func NewCatalog(dir string, overrides *OverrideStore) (*Catalog, error) {
	c := &Catalog{
		dir:       dir,
		graphs:    make(map[string]*AssemblyGraph),
		byPath:    make(map[string]string),
		overrides: overrides,
		debounce:  make(map[string]time.Time),
	}

	t := logging.StartTimer(logging.CategoryCatalog, "catalog_scan")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read assembly dir %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := c.loadFile(path); err != nil {
			logging.CatalogWarn("Skipping %s: %v", path, err)
		}
	}
	t.Stop()
	logging.Catalog("Catalog loaded %d assemblies from %s", len(c.graphs), dir)
	return c, nil
}

func (c *Catalog) loadFile(path string) error {
	graph, err := LoadGraph(path)
	if err != nil {
		return err
	}
	if c.overrides != nil {
		if _, err := c.overrides.Apply(graph); err != nil {
			logging.CatalogWarn("Override application failed for %s: %v", graph.ID, err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.byPath[path]; ok && old != graph.ID {
		delete(c.graphs, old)
	}
	c.graphs[graph.ID] = graph
	c.byPath[path] = graph.ID
	return nil
}

// Get returns the graph for an assembly ID.
func (c *Catalog) Get(id string) (*AssemblyGraph, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.graphs[id]
	return g, ok
}

// List returns the loaded assembly IDs.
func (c *Catalog) List() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.graphs))
	for id := range c.graphs {
		ids = append(ids, id)
	}
	return ids
}

// Watch starts hot-reloading assembly files until ctx is cancelled.
// Non-blocking; events are debounced because editors fire several write
// events per save.
func (c *Catalog) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(c.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", c.dir, err)
	}

	c.watcher = watcher
	c.doneCh = make(chan struct{})
	logging.Catalog("Watching assembly dir: %s", c.dir)

	go c.run(ctx)
	return nil
}

// Done returns a channel closed when the watch loop exits. Nil before
// Watch is called.
func (c *Catalog) Done() <-chan struct{} { return c.doneCh }

func (c *Catalog) run(ctx context.Context) {
	defer close(c.doneCh)
	defer func() { _ = c.watcher.Close() }()

	const debounceDur = 250 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			switch {
			case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
				c.mu.Lock()
				last := c.debounce[event.Name]
				now := time.Now()
				c.debounce[event.Name] = now
				c.mu.Unlock()
				if now.Sub(last) < debounceDur {
					continue
				}
				if err := c.loadFile(event.Name); err != nil {
					logging.CatalogWarn("Reload failed for %s: %v", event.Name, err)
				} else {
					logging.Catalog("Reloaded assembly from %s", event.Name)
				}
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				c.mu.Lock()
				if id, ok := c.byPath[event.Name]; ok {
					delete(c.graphs, id)
					delete(c.byPath, event.Name)
					logging.Catalog("Removed assembly %s (%s deleted)", id, event.Name)
				}
				c.mu.Unlock()
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			logging.CatalogWarn("Watcher error: %v", err)
		}
	}
}
