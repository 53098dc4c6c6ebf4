package util

import (
	"context"
	"testing"
	"time"
)

func TestReadLimiter_BurstThenPaced(t *testing.T) {
	l := NewReadLimiter(2)
	for i := range 2 {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("read %d inside burst: %v", i, err)
		}
	}

	// The next token is 500ms away, past this deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx); err == nil {
		t.Fatal("expected the exhausted bucket to miss the deadline")
	}
}

func TestReadLimiter_Refills(t *testing.T) {
	l := NewReadLimiter(100)
	for range 100 {
		_ = l.Wait(context.Background())
	}
	start := time.Now()
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if time.Since(start) < 5*time.Millisecond {
		t.Error("Wait returned before a token was refilled")
	}
}

func TestReadLimiter_DisabledIsNil(t *testing.T) {
	l := NewReadLimiter(0)
	if l != nil {
		t.Fatal("expected nil limiter when disabled")
	}
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Wait(ctx); err == nil {
		t.Fatal("expected cancelled context to surface")
	}
}

func TestReadLimiter_FractionalRate(t *testing.T) {
	l := NewReadLimiter(0.5)
	if l == nil {
		t.Fatal("expected a limiter")
	}
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("expected a burst of at least one: %v", err)
	}
}
