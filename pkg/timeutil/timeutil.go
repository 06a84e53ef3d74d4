package timeutil

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// DurationPtr returns a pointer to d.
func DurationPtr(d time.Duration) *time.Duration {
	return &d
}

// MaxDuration returns the largest of durations, or 0 for an empty slice.
func MaxDuration(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	highest := durations[0]
	for _, d := range durations[1:] {
		if d > highest {
			highest = d
		}
	}
	return highest
}

// ExponentialBackoffDelay computes initial * multiplier^(backoffCount-1),
// capped at the max duration, plus a random jitter in [0, jitter).
// A nil rng disables jitter.
func ExponentialBackoffDelay(
	backoffCount int,
	jitter time.Duration,
	rng *rand.Rand,
	backoffParam BackoffParam,
) time.Duration {
	if backoffCount < 1 {
		backoffCount = 1
	}
	exponent := float64(backoffCount - 1)
	delay := float64(backoffParam.InitialDuration()) * math.Pow(backoffParam.Multiplier(), exponent)
	if maxDelay := float64(backoffParam.MaxDuration()); maxDelay > 0 && delay > maxDelay {
		delay = maxDelay
	}
	if jitter > 0 && rng != nil {
		delay += float64(rng.Int63n(int64(jitter)))
	}
	return time.Duration(delay)
}

// SleepContext waits for d or until ctx is done, whichever comes first.
// It reports whether the full duration elapsed.
func SleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
