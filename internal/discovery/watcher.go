package discovery

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"recipeforge/internal/logging"
	"recipeforge/internal/registry"
)

// Watcher watches a plugin directory for new or changed manifests and
// re-runs discovery on the affected subdirectory, enabling runtime plugin
// drop-in without restart. Generalized from
// internal/core/mangle_watcher.go's MangleWatcher: that watcher debounces
// rapid .mg saves and re-validates; this one debounces rapid plugin
// directory writes and re-registers contributions.
type Watcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	registry    *registry.Registry
	pluginDir   string
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats WatcherStats
}

// WatcherStats tracks watcher activity for diagnostics.
type WatcherStats struct {
	EventsSeen     int
	ReloadsApplied int
	Errors         int
	LastEventTime  time.Time
	LastEventPath  string
}

// NewWatcher creates a Watcher for pluginDir. It does not start watching
// until Start is called.
func NewWatcher(reg *registry.Registry, pluginDir string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:     fw,
		registry:    reg,
		pluginDir:   pluginDir,
		debounceMap: make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	return w, nil
}

// Start begins watching the plugin directory. Non-blocking; runs in a
// goroutine. A failure to add the watch (directory not yet created) is
// logged and tolerated rather than returned, mirroring the discovery
// startup rule that failures never abort the process.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := os.MkdirAll(w.pluginDir, 0o755); err != nil {
		logging.Get(logging.CategoryDiscovery).Warn("watcher: failed to create plugin dir %s: %v (continuing anyway)", w.pluginDir, err)
	}

	if err := w.watcher.Add(w.pluginDir); err != nil {
		logging.Get(logging.CategoryDiscovery).Warn("watcher: initial watch failed (dir may not exist): %v", err)
	} else {
		logging.Get(logging.CategoryDiscovery).Info("watcher: watching plugin directory: %s", w.pluginDir)
	}

	// Watch every existing plugin subdirectory too: fsnotify is not
	// recursive, and a manifest change inside a plugin's own directory
	// wouldn't otherwise surface an event on pluginDir.
	entries, err := os.ReadDir(w.pluginDir)
	if err == nil {
		for _, entry := range entries {
			if entry.IsDir() {
				_ = w.watcher.Add(filepath.Join(w.pluginDir, entry.Name()))
			}
		}
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryDiscovery).Error("watcher: error closing watcher: %v", err)
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	debounceTicker := time.NewTicker(100 * time.Millisecond)
	defer debounceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryDiscovery).Error("watcher error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-debounceTicker.C:
			w.processDebouncedEvents()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}

	w.mu.Lock()
	w.stats.EventsSeen++
	w.stats.LastEventTime = time.Now()
	w.stats.LastEventPath = event.Name

	// A freshly created subdirectory needs its own watch so its manifest
	// (written moments later) produces an event too.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.watcher.Add(event.Name)
		}
	}

	w.debounceMap[event.Name] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) processDebouncedEvents() {
	w.mu.Lock()
	now := time.Now()
	var toProcess []string
	for path, eventTime := range w.debounceMap {
		if now.Sub(eventTime) >= w.debounceDur {
			toProcess = append(toProcess, path)
			delete(w.debounceMap, path)
		}
	}
	w.mu.Unlock()

	for _, path := range toProcess {
		w.reloadPlugin(path)
	}
}

// reloadPlugin re-runs plugin discovery for the subdirectory of pluginDir
// that contains path (spec §4.8's discovery enumeration, applied
// incrementally instead of only at startup).
func (w *Watcher) reloadPlugin(path string) {
	rel, err := filepath.Rel(w.pluginDir, path)
	if err != nil {
		return
	}
	parts := splitFirst(rel)
	if parts == "" {
		return
	}
	dir := filepath.Join(w.pluginDir, parts)

	manifest, found, err := ReadManifest(dir)
	if err != nil {
		logging.Get(logging.CategoryDiscovery).Warn("watcher: manifest error in %s: %v", dir, err)
		w.mu.Lock()
		w.stats.Errors++
		w.mu.Unlock()
		return
	}
	if !found {
		return
	}

	var report Report
	loadPlugin(w.registry, dir, manifest, &report)
	for _, err := range report.Errors {
		logging.Get(logging.CategoryDiscovery).Warn("watcher: reload error: %v", err)
	}

	w.mu.Lock()
	w.stats.ReloadsApplied++
	w.mu.Unlock()
	logging.Get(logging.CategoryDiscovery).Info("watcher: reloaded plugin %q from %s", manifest.Name, dir)
}

func splitFirst(rel string) string {
	for i := 0; i < len(rel); i++ {
		if rel[i] == filepath.Separator {
			return rel[:i]
		}
	}
	return rel
}
