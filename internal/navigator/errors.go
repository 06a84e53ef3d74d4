package navigator

import (
	"fmt"

	"github.com/rohmanhakim/smoothstate/internal/metadata"
	"github.com/rohmanhakim/smoothstate/pkg/failure"
)

type NavigationErrorCause string

const (
	ErrCauseMissingContainerID NavigationErrorCause = "missing container id"
	ErrCauseInvalidSelector    NavigationErrorCause = "invalid selector"
	ErrCauseContentMissing     NavigationErrorCause = "content missing"
	ErrCauseFetchFailed        NavigationErrorCause = "fetch failed"
)

type NavigationError struct {
	Message   string
	Retryable bool
	Cause     NavigationErrorCause
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigator error: %s: %s", e.Cause, e.Message)
}

func (e *NavigationError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// mapNavigationErrorToMetadataCause maps navigator-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapNavigationErrorToMetadataCause(err *NavigationError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseMissingContainerID, ErrCauseInvalidSelector:
		return metadata.CauseInvariantViolation
	case ErrCauseContentMissing:
		return metadata.CauseContentInvalid
	case ErrCauseFetchFailed:
		return metadata.CauseNetworkFailure
	default:
		return metadata.CauseUnknown
	}
}
