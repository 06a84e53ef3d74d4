package limiter

import "time"

// timing data used to pace requests to one host
type hostTiming struct {
	lastFetchAt  time.Time
	backoffDelay time.Duration
	backoffCount int
}

func (h hostTiming) BackoffDelay() time.Duration {
	return h.backoffDelay
}

func (h hostTiming) LastFetchAt() time.Time {
	return h.lastFetchAt
}

func (h hostTiming) BackoffCount() int {
	return h.backoffCount
}
