package sanitizer

import (
	"fmt"

	"github.com/rohmanhakim/smoothstate/internal/metadata"
	"github.com/rohmanhakim/smoothstate/pkg/failure"
)

type SanitizationErrorCause string

const (
	ErrCauseBrokenDOM SanitizationErrorCause = "broken dom"
)

type SanitizationError struct {
	Message   string
	Retryable bool
	Cause     SanitizationErrorCause
}

func (e *SanitizationError) Error() string {
	return fmt.Sprintf("sanitization error: %s: %s", e.Cause, e.Message)
}

func (e *SanitizationError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// mapSanitizationErrorToMetadataCause maps sanitizer-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapSanitizationErrorToMetadataCause(err *SanitizationError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseBrokenDOM:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}
