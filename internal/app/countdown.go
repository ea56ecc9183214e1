package app

import (
	"context"
	"sync"
	"time"
)

// Countdown is a per-session exam clock. It decrements once per interval and
// fires onExpire exactly once when it reaches zero.
type Countdown struct {
	interval time.Duration
	onTick   func(remaining int)
	onExpire func()

	mu        sync.Mutex
	remaining int
	started   bool
	stopped   bool
	cancel    context.CancelFunc
}

// NewCountdown creates a stopped countdown of seconds length. Callbacks may be nil.
func NewCountdown(seconds int, interval time.Duration, onTick func(int), onExpire func()) *Countdown {
	if interval <= 0 {
		interval = time.Second
	}
	if seconds < 0 {
		seconds = 0
	}
	return &Countdown{
		interval:  interval,
		onTick:    onTick,
		onExpire:  onExpire,
		remaining: seconds,
		cancel:    func() {},
	}
}

// Start launches the ticking goroutine. It is a no-op on a started or stopped countdown.
// Cancelling ctx has the same effect as Stop.
func (c *Countdown) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started || c.stopped {
		c.mu.Unlock()
		return
	}
	c.started = true
	ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				c.Stop()
				return
			case <-ticker.C:
				if !c.Tick() {
					return
				}
			}
		}
	}()
}

// Tick decrements the clock once. It reports whether the countdown is still running.
func (c *Countdown) Tick() bool {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return false
	}
	if c.remaining > 0 {
		c.remaining--
	}
	remaining := c.remaining
	expired := remaining == 0
	if expired {
		c.stopped = true
		c.cancel()
	}
	c.mu.Unlock()

	if c.onTick != nil {
		c.onTick(remaining)
	}
	if expired && c.onExpire != nil {
		c.onExpire()
	}
	return !expired
}

// Stop halts the countdown without firing onExpire. Safe to call repeatedly and
// from within the callbacks.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	c.cancel()
}

// Remaining returns the seconds left.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Stopped reports whether the countdown expired or was stopped.
func (c *Countdown) Stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}
