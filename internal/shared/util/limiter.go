package util

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter paces file reads with a token bucket. A nil *Limiter never blocks.
type Limiter struct {
	bucket *rate.Limiter
}

// NewReadLimiter allows perSecond reads with a burst of one second's worth,
// at least one. It returns nil when perSecond is not positive.
func NewReadLimiter(perSecond float64) *Limiter {
	if perSecond <= 0 {
		return nil
	}
	return &Limiter{bucket: rate.NewLimiter(rate.Limit(perSecond), max(int(perSecond), 1))}
}

// Wait blocks until a read may start or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}
	return l.bucket.Wait(ctx)
}
