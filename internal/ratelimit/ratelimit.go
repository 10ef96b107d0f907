package ratelimit

import (
	"context"
	"math/rand"
	"time"
)

// DelayFunc produces one pause duration. Randomized policies model human
// browsing pace; tests substitute NoDelay.
type DelayFunc func() time.Duration

// BackoffFunc maps a zero-based attempt number to a wait before the next
// retry.
type BackoffFunc func(attempt int) time.Duration

// Jittered returns a policy drawing uniformly from [min, max].
func Jittered(min, max time.Duration) DelayFunc {
	return func() time.Duration {
		if max <= min {
			return min
		}
		return min + time.Duration(rand.Int63n(int64(max-min)))
	}
}

// NoDelay is a zero-pause policy for tests.
func NoDelay() DelayFunc {
	return func() time.Duration { return 0 }
}

// Exponential returns the navigation retry policy: base doubled per attempt
// (base, 2*base, 4*base, ...).
func Exponential(base time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		return base << uint(attempt)
	}
}

// Sleep blocks for the policy's duration or until the context is cancelled.
func Sleep(ctx context.Context, delay DelayFunc) error {
	return SleepFor(ctx, delay())
}

// SleepFor blocks for d or until the context is cancelled.
func SleepFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Pacer enforces a jittered minimum spacing between successive actions,
// measured from the end of the previous wait.
type Pacer struct {
	delay      DelayFunc
	lastAction time.Time
}

func NewPacer(delay DelayFunc) *Pacer {
	return &Pacer{delay: delay}
}

// Wait pauses long enough to honor the spacing policy. The first call never
// waits.
func (p *Pacer) Wait(ctx context.Context) error {
	if !p.lastAction.IsZero() {
		elapsed := time.Since(p.lastAction)
		if want := p.delay(); elapsed < want {
			if err := SleepFor(ctx, want-elapsed); err != nil {
				return err
			}
		}
	}
	p.lastAction = time.Now()
	return nil
}
