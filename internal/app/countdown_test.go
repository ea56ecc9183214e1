package app

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestCountdownExpiresOnce(t *testing.T) {
	var ticks, expired int
	c := NewCountdown(3, time.Hour, func(int) { ticks++ }, func() { expired++ })

	for i := 0; i < 5; i++ {
		c.Tick()
	}
	if c.Remaining() != 0 {
		t.Fatalf("expected 0 remaining, got %d", c.Remaining())
	}
	if ticks != 3 || expired != 1 {
		t.Fatalf("expected 3 ticks and 1 expiry, got %d and %d", ticks, expired)
	}
	if !c.Stopped() {
		t.Fatalf("expected countdown stopped after expiry")
	}
}

func TestCountdownStopPreventsExpiry(t *testing.T) {
	var expired int32
	c := NewCountdown(2, time.Hour, nil, func() { atomic.AddInt32(&expired, 1) })

	c.Tick()
	c.Stop()
	c.Stop()
	if c.Tick() {
		t.Fatalf("tick after stop must report stopped")
	}
	if c.Remaining() != 1 || atomic.LoadInt32(&expired) != 0 {
		t.Fatalf("expected frozen clock without expiry, remaining=%d expired=%d", c.Remaining(), expired)
	}
}

func TestCountdownRunsOnTicker(t *testing.T) {
	done := make(chan struct{})
	c := NewCountdown(3, 5*time.Millisecond, nil, func() { close(done) })
	c.Start(context.Background())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("countdown did not expire")
	}
}

func TestCountdownCancelledByContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var expired int32
	c := NewCountdown(1000, time.Millisecond, nil, func() { atomic.AddInt32(&expired, 1) })
	c.Start(ctx)
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for !c.Stopped() {
		if time.Now().After(deadline) {
			t.Fatalf("countdown still running after cancel")
		}
		time.Sleep(time.Millisecond)
	}
	frozen := c.Remaining()
	time.Sleep(20 * time.Millisecond)
	if c.Remaining() != frozen || atomic.LoadInt32(&expired) != 0 {
		t.Fatalf("countdown ticked after cancel")
	}
}
