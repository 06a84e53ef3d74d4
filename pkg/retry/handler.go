package retry

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/rohmanhakim/smoothstate/pkg/failure"
	"github.com/rohmanhakim/smoothstate/pkg/timeutil"
)

// Retry executes fn up to MaxAttempts times, sleeping an exponential backoff
// with jitter between attempts. Only retryable errors trigger another
// attempt. The number of attempts actually made is returned alongside the
// result so callers can record it.
func Retry[T any](
	ctx context.Context,
	retryParam RetryParam,
	fn func() (T, failure.ClassifiedError),
) (T, int, failure.ClassifiedError) {
	var zero T

	if retryParam.MaxAttempts < 1 {
		return zero, 0, &RetryError{
			Message:   "max attempt cannot be 0",
			Cause:     ErrZeroAttempt,
			Retryable: false,
		}
	}

	rng := rand.New(rand.NewSource(retryParam.RandomSeed))

	var lastErr failure.ClassifiedError
	for attempt := 1; attempt <= retryParam.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, attempt, nil
		}
		lastErr = err

		if !isErrorRetryable(err) {
			return zero, attempt, err
		}

		if attempt == retryParam.MaxAttempts {
			break
		}

		backoffDelay := timeutil.ExponentialBackoffDelay(
			attempt,
			retryParam.Jitter,
			rng,
			retryParam.BackoffParam,
		)
		if !timeutil.SleepContext(ctx, backoffDelay) {
			return zero, attempt, &RetryError{
				Message:   ctx.Err().Error(),
				Cause:     ErrCanceled,
				Retryable: false,
				Last:      lastErr,
			}
		}
	}

	// A single-attempt policy surfaces the task error untouched.
	if retryParam.MaxAttempts == 1 {
		return zero, 1, lastErr
	}

	return zero, retryParam.MaxAttempts, &RetryError{
		Message:   fmt.Sprintf("exhausted %d attempts. Last error: %v", retryParam.MaxAttempts, lastErr),
		Cause:     ErrExhaustedAttempts,
		Retryable: false,
		Last:      lastErr,
	}
}

// isErrorRetryable reports whether err asks to be retried. Errors that do not
// say default to retryable.
func isErrorRetryable(err failure.ClassifiedError) bool {
	type hasRetryable interface {
		IsRetryable() bool
	}
	if r, ok := err.(hasRetryable); ok {
		return r.IsRetryable()
	}
	return err.Severity() == failure.SeverityRecoverable
}
