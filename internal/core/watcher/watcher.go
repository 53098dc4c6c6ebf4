// Package watcher turns file system events under the scan roots into
// debounced batches of changed source paths.
package watcher

import (
	"io/fs"
	"log/slog"
	"nexalint/internal/shared/observability"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

const changeOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

// batcher collects paths and releases them as one sorted slice once no new
// path arrived for the debounce window.
type batcher struct {
	mu       sync.Mutex
	window   time.Duration
	paths    map[string]struct{}
	timer    *time.Timer
	stopped  bool
	release  func([]string)
	inFlight sync.Mutex
}

func (b *batcher) add(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}
	b.paths[path] = struct{}{}
	if b.timer == nil {
		b.timer = time.AfterFunc(b.window, b.flush)
		return
	}
	b.timer.Reset(b.window)
}

func (b *batcher) flush() {
	b.mu.Lock()
	if b.stopped || len(b.paths) == 0 {
		b.mu.Unlock()
		return
	}
	batch := make([]string, 0, len(b.paths))
	for p := range b.paths {
		batch = append(batch, p)
	}
	clear(b.paths)
	b.mu.Unlock()

	slices.Sort(batch)
	b.inFlight.Lock()
	defer b.inFlight.Unlock()
	b.release(batch)
}

func (b *batcher) setWindow(d time.Duration) {
	b.mu.Lock()
	b.window = d
	b.mu.Unlock()
}

// stop drops pending paths and waits for a running release to return.
func (b *batcher) stop() {
	b.mu.Lock()
	b.stopped = true
	if b.timer != nil {
		b.timer.Stop()
	}
	b.mu.Unlock()
	b.inFlight.Lock()
	b.inFlight.Unlock()
}

// Watcher watches directory trees recursively. Only paths accepted by the
// filter are reported.
type Watcher struct {
	fsw     *fsnotify.Watcher
	skip    []glob.Glob
	accept  func(path string) bool
	pending *batcher
}

// NewWatcher compiles the directory exclusion globs. accept may be nil to
// report every file.
func NewWatcher(debounce time.Duration, excludeDirs []string, accept func(string) bool, onChange func([]string)) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}

	skip := make([]glob.Glob, len(excludeDirs))
	for i, pattern := range excludeDirs {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		skip[i] = g
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsw:    fsw,
		skip:   skip,
		accept: accept,
		pending: &batcher{
			window:  debounce,
			paths:   make(map[string]struct{}),
			release: onChange,
		},
	}, nil
}

// SetDebounce applies to batches started after the call.
func (w *Watcher) SetDebounce(debounce time.Duration) {
	w.pending.setWindow(debounce)
}

// Watch registers every non-excluded directory under roots and starts the
// event loop.
func (w *Watcher) Watch(roots []string) error {
	for _, root := range roots {
		if err := w.addTree(root, false); err != nil {
			return err
		}
	}
	go w.loop()
	return nil
}

// Close stops event delivery. A batch already being handled finishes first.
func (w *Watcher) Close() error {
	w.pending.stop()
	return w.fsw.Close()
}

// addTree watches root and its subdirectories. With seed set, files already
// present are queued, which covers files created before the watch landed.
func (w *Watcher) addTree(root string, seed bool) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if seed {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			if seed && w.accepts(path) {
				w.pending.add(path)
			}
			return nil
		}
		if path != root && w.excluded(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if w.excluded(event.Name) {
				return
			}
			if err := w.addTree(event.Name, true); err != nil {
				slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
			}
			return
		}
	}
	if event.Op&changeOps == 0 || !w.accepts(event.Name) {
		return
	}
	w.pending.add(event.Name)
}

// excluded matches the exclusion globs against the directory base name.
func (w *Watcher) excluded(dir string) bool {
	base := filepath.Base(dir)
	return slices.ContainsFunc(w.skip, func(g glob.Glob) bool { return g.Match(base) })
}

func (w *Watcher) accepts(path string) bool {
	return w.accept == nil || w.accept(path)
}
