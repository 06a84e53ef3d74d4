package mdconvert

import (
	"fmt"

	"github.com/rohmanhakim/smoothstate/internal/metadata"
	"github.com/rohmanhakim/smoothstate/pkg/failure"
)

type ConversionErrorCause string

const (
	ErrCauseEmptyContent      ConversionErrorCause = "empty content"
	ErrCauseConversionFailure ConversionErrorCause = "conversion failed"
)

type ConversionError struct {
	Message   string
	Retryable bool
	Cause     ConversionErrorCause
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("conversion error: %s", e.Cause)
}

func (e *ConversionError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func mapConversionErrorToMetadataCause(err *ConversionError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseEmptyContent, ErrCauseConversionFailure:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}
