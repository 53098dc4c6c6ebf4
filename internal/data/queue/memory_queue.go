// Package queue buffers pending writes between producers and a background
// writer.
package queue

import (
	"context"
	"io"
	"sync"
	"time"
)

// EnqueueResult tells a producer whether its item was kept.
type EnqueueResult string

const (
	EnqueueAccepted EnqueueResult = "accepted"
	EnqueueDropped  EnqueueResult = "dropped"
)

// MemoryQueue is a bounded FIFO. Enqueue never blocks; a full or closed
// queue drops the item and reports it.
type MemoryQueue[T any] struct {
	ch     chan T
	mu     sync.RWMutex
	closed bool
}

// NewMemoryQueue holds at most capacity items, at least one.
func NewMemoryQueue[T any](capacity int) *MemoryQueue[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemoryQueue[T]{ch: make(chan T, capacity)}
}

func (q *MemoryQueue[T]) Enqueue(item T) EnqueueResult {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return EnqueueDropped
	}
	select {
	case q.ch <- item:
		return EnqueueAccepted
	default:
		return EnqueueDropped
	}
}

// DequeueBatch waits up to wait for the first item, then takes whatever else
// is immediately available up to maxItems. A closed and drained queue
// returns io.EOF, possibly alongside the final batch.
func (q *MemoryQueue[T]) DequeueBatch(ctx context.Context, maxItems int, wait time.Duration) ([]T, error) {
	head, err := q.first(ctx, wait)
	if err != nil || head == nil {
		return nil, err
	}
	batch := append(make([]T, 0, max(maxItems, 1)), *head)
	for len(batch) < cap(batch) {
		select {
		case item, ok := <-q.ch:
			if !ok {
				return batch, io.EOF
			}
			batch = append(batch, item)
		default:
			return batch, nil
		}
	}
	return batch, nil
}

// first returns nil, nil when nothing arrived within wait.
func (q *MemoryQueue[T]) first(ctx context.Context, wait time.Duration) (*T, error) {
	select {
	case item, ok := <-q.ch:
		return received(item, ok)
	default:
	}
	if wait <= 0 {
		return nil, nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case item, ok := <-q.ch:
		return received(item, ok)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, nil
	}
}

func received[T any](item T, ok bool) (*T, error) {
	if !ok {
		return nil, io.EOF
	}
	return &item, nil
}

// Close stops accepting items. Buffered items stay readable.
func (q *MemoryQueue[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.ch)
	return nil
}

func (q *MemoryQueue[T]) Len() int {
	if q == nil {
		return 0
	}
	return len(q.ch)
}
