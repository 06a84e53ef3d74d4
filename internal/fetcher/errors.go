package fetcher

import (
	"errors"
	"fmt"

	"github.com/rohmanhakim/smoothstate/internal/metadata"
	"github.com/rohmanhakim/smoothstate/pkg/failure"
	"github.com/rohmanhakim/smoothstate/pkg/retry"
)

type FetchErrorCause string

const (
	ErrCauseTimeout               FetchErrorCause = "timeout"
	ErrCauseNetworkFailure        FetchErrorCause = "network issues"
	ErrCauseInvalidRequest        FetchErrorCause = "invalid request"
	ErrCauseReadResponseBodyError FetchErrorCause = "failed to read response body"
	ErrCauseContentTypeInvalid    FetchErrorCause = "non-HTML content"
	ErrCauseRedirectLimitExceeded FetchErrorCause = "reached redirect limit"
	ErrCauseRequestPageForbidden  FetchErrorCause = "forbidden"
	ErrCauseRequestNotFound       FetchErrorCause = "not found"
	ErrCauseRequest4xx            FetchErrorCause = "4xx"
	ErrCauseRequestTooMany        FetchErrorCause = "too many requests"
	ErrCauseRequest5xx            FetchErrorCause = "5xx"
)

type FetchError struct {
	Message    string
	Retryable  bool
	Cause      FetchErrorCause
	StatusCode int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetcher error: %s: %s", e.Cause, e.Message)
}

func (e *FetchError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// IsRetryable returns whether this error is retryable
func (e *FetchError) IsRetryable() bool {
	return e.Retryable
}

// mapFetchErrorToMetadataCause maps fetcher-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapFetchErrorToMetadataCause(err *FetchError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseTimeout, ErrCauseNetworkFailure, ErrCauseReadResponseBodyError, ErrCauseRequest5xx:
		return metadata.CauseNetworkFailure
	case ErrCauseRequestTooMany, ErrCauseRequestPageForbidden:
		return metadata.CausePolicyDisallow
	case ErrCauseContentTypeInvalid:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}

// mapClassifiedErrorToMetadataCause unwraps retry errors down to the last
// fetch error before mapping.
func mapClassifiedErrorToMetadataCause(err failure.ClassifiedError) metadata.ErrorCause {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return mapFetchErrorToMetadataCause(fetchErr)
	}
	var retryErr *retry.RetryError
	if errors.As(err, &retryErr) && retryErr.Cause == retry.ErrCanceled {
		return metadata.CauseNetworkFailure
	}
	return metadata.CauseUnknown
}
