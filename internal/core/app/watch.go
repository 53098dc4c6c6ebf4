package app

import (
	"context"
	"log/slog"
	"nexalint/internal/core/watcher"
)

// StartWatcher re-runs analysis for debounced batches of changed files until
// Close. Results reach the update handler.
func (a *App) StartWatcher(ctx context.Context) error {
	a.mu.RLock()
	cfg, collector := a.Config, a.collector
	a.mu.RUnlock()

	w, err := watcher.NewWatcher(
		cfg.Watch.Debounce,
		cfg.Scan.ExcludeDirs,
		func(path string) bool { return accepts(collector, path) },
		func(paths []string) {
			if _, err := a.HandleChanges(ctx, paths); err != nil {
				slog.Warn("failed to handle changes", "paths", len(paths), "error", err)
			}
		},
	)
	if err != nil {
		return err
	}
	a.startHistoryWorker()
	a.activeWatcher = w
	return w.Watch(cfg.Scan.Roots)
}
