package httpx

import (
	"context"
	"testing"
	"time"
)

func TestBackoffDelay_NoJitter(t *testing.T) {
	t.Parallel()

	b := Backoff{Base: time.Second, Max: 30 * time.Second}

	delay0 := b.Delay(0, 0.0)
	delay1 := b.Delay(1, 0.0)
	delay2 := b.Delay(2, 0.0)

	if delay0 != time.Second {
		t.Fatalf("attempt 0 delay mismatch: got=%s want=%s", delay0, time.Second)
	}
	if delay1 != 2*time.Second {
		t.Fatalf("attempt 1 delay mismatch: got=%s want=%s", delay1, 2*time.Second)
	}
	if delay2 != 4*time.Second {
		t.Fatalf("attempt 2 delay mismatch: got=%s want=%s", delay2, 4*time.Second)
	}
}

func TestBackoffDelay_CappedAtMax(t *testing.T) {
	t.Parallel()

	b := Backoff{Base: time.Second, Max: 5 * time.Second}

	if delay := b.Delay(10, 0.0); delay != 5*time.Second {
		t.Fatalf("capped delay mismatch: got=%s want=%s", delay, 5*time.Second)
	}
}

func TestBackoffDelay_JitterStaysWithinFraction(t *testing.T) {
	t.Parallel()

	b := Backoff{Base: time.Second, Max: 30 * time.Second, Jitter: true}

	base := b.Delay(0, 0.0)
	if base != time.Second {
		t.Fatalf("zero jitter should produce the base delay: got=%s", base)
	}

	jittered := b.Delay(0, 0.999)
	if jittered < time.Second || jittered > time.Second+time.Duration(float64(time.Second)*maxJitterFraction) {
		t.Fatalf("jittered delay out of range: got=%s", jittered)
	}
}

func TestBackoffDelay_ZeroValueUsesDefaults(t *testing.T) {
	t.Parallel()

	var b Backoff
	if delay := b.Delay(0, 0.0); delay != defaultBaseDelay {
		t.Fatalf("default base delay mismatch: got=%s want=%s", delay, defaultBaseDelay)
	}
}

func TestSleepContext_ReturnsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := SleepContext(ctx, time.Minute); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got: %v", err)
	}
}

func TestSleepContext_ZeroDelayIsImmediate(t *testing.T) {
	t.Parallel()

	if err := SleepContext(context.Background(), 0); err != nil {
		t.Fatalf("expected nil error for zero delay, got: %v", err)
	}
}
