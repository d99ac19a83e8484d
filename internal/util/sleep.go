package util

import (
	"context"
	"math/rand"
	"time"
)

// Sleeper pauses the caller. Stages take one so tests can record waits instead of sleeping.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// ContextSleeper is the production Sleeper.
var ContextSleeper Sleeper = SleeperFunc(SleepWithContext)

// SleepWithContext waits for delay or until ctx is done.
func SleepWithContext(ctx context.Context, delay time.Duration) error {
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

// UniformDuration returns a duration drawn uniformly from [lo, hi].
func UniformDuration(rng *rand.Rand, lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	span := float64(hi - lo)
	if rng == nil {
		return lo + time.Duration(rand.Float64()*span)
	}
	return lo + time.Duration(rng.Float64()*span)
}

// Seconds converts a config value expressed in (possibly fractional) seconds.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
