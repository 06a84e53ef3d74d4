package timeutil

import "time"

// Exponential backoff parameters used by the fetch transport.
// example:
//
//	initialDuration := 100 * time.Millisecond // first retry waits 100ms
//	multiplier := 2.0                          // then 200ms, 400ms, ...
//	maxDuration := 2 * time.Second             // never more than 2s

type BackoffParam struct {
	initialDuration time.Duration
	multiplier      float64
	maxDuration     time.Duration
}

func NewBackoffParam(
	initialDuration time.Duration,
	multiplier float64,
	maxDuration time.Duration,
) BackoffParam {
	return BackoffParam{
		initialDuration: initialDuration,
		multiplier:      multiplier,
		maxDuration:     maxDuration,
	}
}

func (b BackoffParam) InitialDuration() time.Duration {
	return b.initialDuration
}

func (b BackoffParam) Multiplier() float64 {
	return b.multiplier
}

func (b BackoffParam) MaxDuration() time.Duration {
	return b.maxDuration
}
