package util

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestCircuitBreakerOpensAtThresholdAndHalfOpensAfterTimeout(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(2, time.Minute, 0, nil, zap.NewNop()).WithClock(func() time.Time { return now })

	cb.RecordFailure(0)
	if !cb.CanExecute() {
		t.Fatalf("circuit should stay closed below threshold")
	}

	cb.RecordFailure(0)
	if cb.CanExecute() {
		t.Fatalf("circuit should be open at threshold")
	}

	now = now.Add(2 * time.Minute)
	if got := cb.GetState(); got != CircuitStateHalfOpen {
		t.Fatalf("expected HALF_OPEN after timeout, got %s", got)
	}

	cb.RecordSuccess()
	if got := cb.GetState(); got != CircuitStateClosed {
		t.Fatalf("expected CLOSED after success, got %s", got)
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(1, time.Second, 0, nil, zap.NewNop()).WithClock(func() time.Time { return now })

	cb.RecordFailure(0)
	now = now.Add(2 * time.Second)
	_ = cb.GetState()
	cb.RecordFailure(time.Hour)

	status := cb.GetStatus()
	if status.State != CircuitStateOpen {
		t.Fatalf("expected OPEN, got %s", status.State)
	}
	if status.NextRetryTime == nil || !status.NextRetryTime.Equal(now.Add(time.Hour)) {
		t.Fatalf("custom timeout not applied: %v", status.NextRetryTime)
	}
}

func TestUniformDurationStaysInBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	lo, hi := 200*time.Millisecond, 700*time.Millisecond
	for i := 0; i < 1000; i++ {
		d := UniformDuration(rng, lo, hi)
		if d < lo || d > hi {
			t.Fatalf("duration %v outside [%v, %v]", d, lo, hi)
		}
	}
	if got := UniformDuration(rng, time.Second, time.Second); got != time.Second {
		t.Fatalf("degenerate range should return lo, got %v", got)
	}
}

func TestSleepWithContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := SleepWithContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := SleepWithContext(context.Background(), 0); err != nil {
		t.Fatalf("zero delay should return immediately, got %v", err)
	}
}

func TestSortedUnique(t *testing.T) {
	got := SortedUnique([]string{"Nekfeu", "Booba", "Nekfeu", "Alpha Wann"})
	want := []string{"Alpha Wann", "Booba", "Nekfeu"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestSeconds(t *testing.T) {
	if got := Seconds(0.5); got != 500*time.Millisecond {
		t.Fatalf("Seconds(0.5) = %v", got)
	}
}
