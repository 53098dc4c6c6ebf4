package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Reloader watches a config file and its rules file and hands every
// successfully reloaded config to a callback. Invalid edits are logged and
// the previous config stays in effect.
type Reloader struct {
	paths    map[string]bool
	dirs     map[string]bool
	primary  string
	debounce time.Duration
	callback func(*Config)
	stop     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

// NewReloader watches path and, when set, the rules file referenced by cfg.
func NewReloader(path string, cfg *Config, callback func(*Config)) *Reloader {
	r := &Reloader{
		paths:    make(map[string]bool),
		dirs:     make(map[string]bool),
		primary:  filepath.Clean(path),
		debounce: 100 * time.Millisecond,
		callback: callback,
		stop:     make(chan struct{}),
	}
	r.track(path)
	if cfg != nil && cfg.RulesFile != "" {
		r.track(cfg.RulesFile)
	}
	return r
}

func (r *Reloader) track(path string) {
	clean := filepath.Clean(path)
	r.paths[clean] = true
	r.dirs[filepath.Dir(clean)] = true
}

// Start begins watching. Directories are watched so atomic saves, which
// replace the file, are seen.
func (r *Reloader) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for dir := range r.dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return err
		}
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer watcher.Close()

		slog.Debug("watching config", "path", r.primary)

		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !r.paths[filepath.Clean(event.Name)] {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(r.debounce, r.reload)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("config watcher error", "error", err)

			case <-r.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the watcher and waits for it to exit.
func (r *Reloader) Stop() {
	r.once.Do(func() { close(r.stop) })
	r.wg.Wait()
}

func (r *Reloader) reload() {
	cfg, err := Load(r.primary)
	if err != nil {
		slog.Warn("failed to reload configuration", "path", r.primary, "error", err)
		return
	}
	ApplyEnvOverrides(cfg)
	if err := Validate(cfg); err != nil {
		slog.Warn("reloaded configuration is invalid", "path", r.primary, "error", err)
		return
	}
	slog.Info("configuration reloaded", "path", r.primary)
	if r.callback != nil {
		r.callback(cfg)
	}
}
