package httpx

import (
	"context"
	"math"
	"time"
)

const (
	defaultBaseDelay  = 1 * time.Second
	defaultMaxDelay   = 30 * time.Second
	maxJitterFraction = 0.1
)

// Backoff computes retry delays with exponential growth capped at Max.
type Backoff struct {
	// Base is the delay before the first retry.
	Base time.Duration
	// Max caps the exponential backoff delay.
	Max time.Duration
	// Jitter adds randomized jitter to reduce retry synchronization.
	Jitter bool
}

func (b Backoff) withDefaults() Backoff {
	if b.Base <= 0 {
		b.Base = defaultBaseDelay
	}
	if b.Max <= 0 {
		b.Max = defaultMaxDelay
	}
	return b
}

// Delay returns the wait duration before retry number attempt (zero-based).
// jitterValue must be in [0,1); it is ignored when Jitter is disabled.
func (b Backoff) Delay(attempt int, jitterValue float64) time.Duration {
	cfg := b.withDefaults()
	if attempt < 0 {
		attempt = 0
	}

	backoff := float64(cfg.Base) * math.Pow(2, float64(attempt))
	delay := time.Duration(backoff)
	if delay > cfg.Max {
		delay = cfg.Max
	}

	if !cfg.Jitter {
		return delay
	}

	if jitterValue < 0 {
		jitterValue = 0
	}
	if jitterValue > 0.999999 {
		jitterValue = 0.999999
	}

	jitterRange := float64(delay) * maxJitterFraction
	return delay + time.Duration(jitterRange*jitterValue)
}

// SleepContext sleeps for the provided delay or returns early when context is canceled.
func SleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
