package limiter

import (
	"math/rand"
	"sync"
	"time"

	"github.com/rohmanhakim/smoothstate/pkg/timeutil"
)

// RateLimiter paces page requests per host.
// Responsibilities:
// - Bookkeep each host's last fetch timestamp
// - Grow a backoff delay when the host asks us to slow down (HTTP 429)
// - Compute how long the next request to a host has to wait
//
// Prefetching on hover can fire many requests in a burst; a base delay keeps
// that burst polite. The zero configuration never delays.
type RateLimiter interface {
	Backoff(host string)
	ResetBackoff(host string)
	MarkLastFetchAsNow(host string)
	ResolveDelay(host string) time.Duration
}

type ConcurrentRateLimiter struct {
	mu           sync.RWMutex
	rngMu        sync.Mutex
	baseDelay    time.Duration
	jitter       time.Duration
	backoffParam timeutil.BackoffParam
	hostTimings  map[string]hostTiming
	rng          *rand.Rand
}

func NewConcurrentRateLimiter(
	baseDelay time.Duration,
	jitter time.Duration,
	randomSeed int64,
	backoffParam timeutil.BackoffParam,
) *ConcurrentRateLimiter {
	return &ConcurrentRateLimiter{
		baseDelay:    baseDelay,
		jitter:       jitter,
		backoffParam: backoffParam,
		hostTimings:  make(map[string]hostTiming),
		rng:          rand.New(rand.NewSource(randomSeed)),
	}
}

// Backoff increments the host's backoff counter and recomputes its delay.
func (r *ConcurrentRateLimiter) Backoff(host string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	timing := r.hostTimings[host]
	timing.backoffCount++
	timing.backoffDelay = timeutil.ExponentialBackoffDelay(timing.backoffCount, 0, nil, r.backoffParam)
	r.hostTimings[host] = timing
}

// ResetBackoff clears backoff state after a successful request.
func (r *ConcurrentRateLimiter) ResetBackoff(host string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	timing, exists := r.hostTimings[host]
	if !exists {
		return
	}
	timing.backoffCount = 0
	timing.backoffDelay = 0
	r.hostTimings[host] = timing
}

func (r *ConcurrentRateLimiter) MarkLastFetchAsNow(host string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	timing := r.hostTimings[host]
	timing.lastFetchAt = time.Now()
	r.hostTimings[host] = timing
}

// ResolveDelay returns the remaining wait before host may be fetched again:
// max(baseDelay, backoffDelay) + jitter, minus the time since the last fetch.
// Hosts never fetched are not delayed.
func (r *ConcurrentRateLimiter) ResolveDelay(host string) time.Duration {
	r.mu.RLock()
	timing, exists := r.hostTimings[host]
	base := r.baseDelay
	jitter := r.jitter
	r.mu.RUnlock()

	if !exists || timing.lastFetchAt.IsZero() {
		return 0
	}

	finalDelay := timeutil.MaxDuration([]time.Duration{base, timing.backoffDelay})
	finalDelay += r.computeJitter(jitter)

	elapsed := time.Since(timing.lastFetchAt)
	if elapsed < finalDelay {
		return finalDelay - elapsed
	}
	return 0
}

// HostTiming returns a copy of the bookkeeping for host.
func (r *ConcurrentRateLimiter) HostTiming(host string) (hostTiming, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	timing, ok := r.hostTimings[host]
	return timing, ok
}

func (r *ConcurrentRateLimiter) computeJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return time.Duration(r.rng.Int63n(int64(max)))
}

// NoopLimiter never delays.
type NoopLimiter struct{}

func (NoopLimiter) Backoff(string)                     {}
func (NoopLimiter) ResetBackoff(string)                {}
func (NoopLimiter) MarkLastFetchAsNow(string)          {}
func (NoopLimiter) ResolveDelay(string) time.Duration { return 0 }
