package remote

import (
	"context"
	"testing"
	"time"
)

func newTestLimiter(perMinute int) (*RateLimiter, *time.Time) {
	r := NewRateLimiter(perMinute)
	now := time.Unix(1000, 0)
	r.lastUpdate = now
	r.now = func() time.Time { return now }
	return r, &now
}

func TestRateLimiter_Disabled(t *testing.T) {
	r := NewRateLimiter(0)
	if r != nil {
		t.Fatal("expected nil limiter for 0 per minute")
	}
	if err := r.Wait(context.Background()); err != nil {
		t.Errorf("nil limiter Wait() = %v", err)
	}
	r.Drain()
	if r.Available() != -1 {
		t.Errorf("nil limiter Available() = %d", r.Available())
	}
}

func TestRateLimiter_ConsumeAndRefill(t *testing.T) {
	r, now := newTestLimiter(60)

	for i := 0; i < 60; i++ {
		if err := r.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() #%d = %v", i, err)
		}
	}
	if got := r.Available(); got != 0 {
		t.Fatalf("expected empty bucket, got %d", got)
	}

	// 60 per minute refills one token a second.
	*now = now.Add(2500 * time.Millisecond)
	if got := r.Available(); got != 2 {
		t.Errorf("expected 2 tokens after 2.5s, got %d", got)
	}

	*now = now.Add(time.Hour)
	if got := r.Available(); got != 60 {
		t.Errorf("bucket should cap at 60, got %d", got)
	}
}

func TestRateLimiter_DrainBlocksUntilCancel(t *testing.T) {
	r, _ := newTestLimiter(1)
	r.Drain()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := r.Wait(ctx); err != context.DeadlineExceeded {
		t.Errorf("Wait() on drained bucket = %v, want deadline exceeded", err)
	}
}
