package driver

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"genspec/internal/forkgen"
	"genspec/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long input files must stay quiet before a rerun.
const DefaultDebounce = 300 * time.Millisecond

// Watcher reruns a Generator whenever one of its base or override modules
// changes. Generated outputs are never watched, so a rerun does not trigger
// itself.
type Watcher struct {
	mu       sync.Mutex
	gen      *Generator
	watcher  *fsnotify.Watcher
	inputs   map[string]struct{}
	debounce time.Duration
	dirty    bool
	lastSeen time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
	stats    WatchStats

	// OnRun, when set before Start, receives the outcome of every rerun.
	OnRun func([]Result, error)
}

// WatchStats tracks watcher activity.
type WatchStats struct {
	Events   int
	Runs     int
	Failures int
	LastRun  time.Time
}

// NewWatcher creates a Watcher for gen. A non-positive debounce selects
// DefaultDebounce.
func NewWatcher(gen *Generator, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	inputs := make(map[string]struct{})
	for _, p := range gen.Pairs() {
		inputs[filepath.Clean(p.BasePath(gen.Root()))] = struct{}{}
		inputs[filepath.Clean(p.OverridePath(gen.Root()))] = struct{}{}
	}

	return &Watcher{
		gen:      gen,
		watcher:  fw,
		inputs:   inputs,
		debounce: debounce,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Dirs returns the directories holding the watched inputs.
func (w *Watcher) Dirs() []string {
	root := w.gen.Root()
	dirs := []string{filepath.Join(root, forkgen.BaseFork)}
	seen := map[string]bool{}
	for _, p := range w.gen.Pairs() {
		if !seen[p.Fork] {
			seen[p.Fork] = true
			dirs = append(dirs, filepath.Join(root, p.Fork))
		}
	}
	return dirs
}

// Start begins watching. It is non-blocking; events are handled on a
// separate goroutine until Stop is called or ctx is cancelled. The base
// directory must exist; fork directories that do not exist yet are skipped.
// A Watcher whose Start failed is closed and cannot be started again.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	for i, dir := range w.Dirs() {
		if err := w.watcher.Add(dir); err != nil {
			if i == 0 {
				w.mu.Lock()
				w.running = false
				w.mu.Unlock()
				_ = w.watcher.Close()
				return err
			}
			logging.Get(logging.CategoryWatch).Warn("cannot watch %s: %v", dir, err)
			continue
		}
		logging.WatchDebug("watching %s", dir)
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
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
		logging.WatchError("closing watcher: %v", err)
	}
	logging.Watch("stopped")
}

// Done is closed once the event loop has exited.
func (w *Watcher) Done() <-chan struct{} {
	return w.doneCh
}

// Stats returns a snapshot of the watcher statistics.
func (w *Watcher) Stats() WatchStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(tickInterval(w.debounce))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.WatchDebug("context cancelled")
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
			logging.WatchError("watch error: %v", err)

		case <-ticker.C:
			if w.settled() {
				w.rerun(ctx)
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return
	}
	if _, ok := w.inputs[filepath.Clean(event.Name)]; !ok {
		return
	}
	logging.WatchDebug("%s %s", event.Op, event.Name)

	w.mu.Lock()
	w.stats.Events++
	w.dirty = true
	w.lastSeen = time.Now()
	w.mu.Unlock()
}

// settled reports whether a change is pending and the debounce window has
// passed, clearing the pending flag if so.
func (w *Watcher) settled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.dirty || time.Since(w.lastSeen) < w.debounce {
		return false
	}
	w.dirty = false
	return true
}

func (w *Watcher) rerun(ctx context.Context) {
	logging.Watch("inputs changed, regenerating")
	results, err := w.gen.Run(ctx)

	w.mu.Lock()
	w.stats.Runs++
	w.stats.LastRun = time.Now()
	if err != nil {
		w.stats.Failures++
	}
	w.mu.Unlock()

	switch {
	case err == nil:
		logging.Watch("regenerated %d modules", len(results))
	case errors.Is(err, context.Canceled):
		logging.WatchDebug("regeneration cancelled")
	default:
		logging.WatchError("regeneration failed: %v", err)
	}

	if w.OnRun != nil {
		w.OnRun(results, err)
	}
}

func tickInterval(debounce time.Duration) time.Duration {
	tick := debounce / 2
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	if tick > 100*time.Millisecond {
		tick = 100 * time.Millisecond
	}
	return tick
}
