package retry

import (
	"time"

	"github.com/rohmanhakim/smoothstate/pkg/timeutil"
)

// RetryParam holds the parameters for retry logic.
// These parameters come from outside (config) and are opaque to the
// handler itself.
type RetryParam struct {
	Jitter       time.Duration
	RandomSeed   int64
	MaxAttempts  int
	BackoffParam timeutil.BackoffParam
}

// NewRetryParam creates a new RetryParam with the given settings.
func NewRetryParam(
	jitter time.Duration,
	randomSeed int64,
	maxAttempts int,
	backoffParam timeutil.BackoffParam,
) RetryParam {
	return RetryParam{
		Jitter:       jitter,
		RandomSeed:   randomSeed,
		MaxAttempts:  maxAttempts,
		BackoffParam: backoffParam,
	}
}

// SingleAttempt is the parameter set for callers that must not retry.
func SingleAttempt() RetryParam {
	return RetryParam{MaxAttempts: 1}
}
