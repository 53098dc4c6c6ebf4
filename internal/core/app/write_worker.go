package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"nexalint/internal/data/history"
	"nexalint/internal/data/queue"
	"nexalint/internal/shared/observability"
	"time"
)

const (
	historyQueueCapacity = 32
	historyBatchSize     = 8
	historyFlushInterval = 100 * time.Millisecond
	historyDrainTimeout  = 10 * time.Second
)

// startHistoryWorker moves run persistence off the watch loop. Without it
// runs are saved synchronously.
func (a *App) startHistoryWorker() {
	if a == nil || a.history == nil || a.workerCancel != nil {
		return
	}
	a.writeQueue = queue.NewMemoryQueue[history.Run](historyQueueCapacity)
	ctx, cancel := context.WithCancel(context.Background())
	a.workerCancel = cancel
	a.workerDone = make(chan struct{})
	go a.runHistoryWorker(ctx)
}

func (a *App) runHistoryWorker(ctx context.Context) {
	defer close(a.workerDone)

	for {
		batch, err := a.writeQueue.DequeueBatch(ctx, historyBatchSize, historyFlushInterval)
		if len(batch) > 0 {
			a.saveRuns(context.Background(), batch)
		}
		observability.HistoryQueueDepth.Set(float64(a.writeQueue.Len()))
		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, context.Canceled):
			return
		default:
			slog.Warn("history queue dequeue failed", "error", err)
		}
	}
}

func (a *App) persistRun(ctx context.Context, run history.Run) {
	if a.writeQueue != nil {
		switch a.writeQueue.Enqueue(run) {
		case queue.EnqueueAccepted:
			observability.HistoryQueueDepth.Set(float64(a.writeQueue.Len()))
			return
		case queue.EnqueueDropped:
			observability.HistoryQueueDroppedTotal.Inc()
		}
	}
	a.saveRuns(ctx, []history.Run{run})
}

func (a *App) saveRuns(ctx context.Context, runs []history.Run) {
	for _, run := range runs {
		if err := a.history.SaveRun(ctx, run.ProjectKey, run); err != nil {
			observability.HistoryWriteErrorsTotal.Inc()
			slog.Warn("failed to persist run", "run_id", run.ID, "error", err)
		}
	}
}

func (a *App) stopHistoryWorker(ctx context.Context) error {
	if a.workerCancel != nil {
		a.workerCancel()
		a.workerCancel = nil
	}
	if a.workerDone != nil {
		select {
		case <-a.workerDone:
		case <-ctx.Done():
			return ctx.Err()
		}
		a.workerDone = nil
	}
	if a.writeQueue == nil {
		return nil
	}
	_ = a.writeQueue.Close()
	for {
		batch, err := a.writeQueue.DequeueBatch(ctx, historyBatchSize, 0)
		if len(batch) > 0 {
			a.saveRuns(ctx, batch)
		}
		if err != nil || len(batch) == 0 {
			break
		}
	}
	a.writeQueue = nil
	observability.HistoryQueueDepth.Set(0)
	return nil
}

// Close stops watching, flushes queued runs and closes the history store.
func (a *App) Close(ctx context.Context) error {
	if a == nil {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, historyDrainTimeout)
		defer cancel()
	}
	if a.activeWatcher != nil {
		if err := a.activeWatcher.Close(); err != nil {
			slog.Warn("failed to close watcher", "error", err)
		}
		a.activeWatcher = nil
	}
	if err := a.stopHistoryWorker(ctx); err != nil {
		return err
	}
	if a.closer != nil {
		if err := a.closer.Close(); err != nil {
			return err
		}
		a.closer = nil
	}
	return nil
}
