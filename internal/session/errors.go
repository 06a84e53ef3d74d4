package session

import (
	"fmt"

	"github.com/rohmanhakim/smoothstate/internal/metadata"
	"github.com/rohmanhakim/smoothstate/pkg/failure"
)

type SessionErrorCause string

const (
	ErrCauseOpenFailed        SessionErrorCause = "page could not be opened"
	ErrCauseContainerNotFound SessionErrorCause = "container not found"
	ErrCauseAnchorNotFound    SessionErrorCause = "anchor not found"
	ErrCauseNoHistory         SessionErrorCause = "no history entry"
	ErrCauseClosed            SessionErrorCause = "session closed"
)

type SessionError struct {
	Message   string
	Retryable bool
	Cause     SessionErrorCause
	Err       error
}

func (e *SessionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("session error: %s: %s: %v", e.Cause, e.Message, e.Err)
	}
	return fmt.Sprintf("session error: %s: %s", e.Cause, e.Message)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

func (e *SessionError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func mapSessionErrorToMetadataCause(err *SessionError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseOpenFailed:
		return metadata.CauseNetworkFailure
	case ErrCauseContainerNotFound:
		return metadata.CauseContentInvalid
	case ErrCauseAnchorNotFound, ErrCauseNoHistory, ErrCauseClosed:
		return metadata.CauseInvariantViolation
	default:
		return metadata.CauseUnknown
	}
}
