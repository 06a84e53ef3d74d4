package storage_test

import (
	"time"

	"github.com/rohmanhakim/smoothstate/internal/metadata"
	"github.com/rohmanhakim/smoothstate/pkg/hashutil"
)

type recordedArtifact struct {
	kind metadata.ArtifactKind
	path string
}

type recordedError struct {
	action string
	cause  metadata.ErrorCause
	attrs  []metadata.Attribute
}

type metadataSinkMock struct {
	metadata.NoopSink
	artifacts []recordedArtifact
	errors    []recordedError
}

func (m *metadataSinkMock) RecordArtifact(kind metadata.ArtifactKind, path string, attrs []metadata.Attribute) {
	m.artifacts = append(m.artifacts, recordedArtifact{kind: kind, path: path})
}

func (m *metadataSinkMock) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	errorString string,
	attrs []metadata.Attribute,
) {
	m.errors = append(m.errors, recordedError{action: action, cause: cause, attrs: attrs})
}

func computeExpectedURLHash(url string, algo hashutil.HashAlgo) string {
	full, _ := hashutil.HashBytes([]byte(url), algo)
	return full[:12]
}
