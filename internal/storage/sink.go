package storage

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rohmanhakim/smoothstate/internal/metadata"
	"github.com/rohmanhakim/smoothstate/pkg/failure"
	"github.com/rohmanhakim/smoothstate/pkg/fileutil"
	"github.com/rohmanhakim/smoothstate/pkg/hashutil"
)

/*
Responsibilities
- Persist container snapshots
- Ensure deterministic filenames

Output Characteristics
- One file per page URL: <url hash>.md or <url hash>.html
- Idempotent writes
- Overwrite-safe reruns, a later snapshot of the same page replaces the earlier one
*/

type Sink interface {
	Write(
		outputDir string,
		snapshot Snapshot,
		hashAlgo hashutil.HashAlgo,
	) (WriteResult, failure.ClassifiedError)
}

type LocalSink struct {
	metadataSink metadata.MetadataSink
}

func NewLocalSink(
	metadataSink metadata.MetadataSink,
) LocalSink {
	return LocalSink{
		metadataSink: metadataSink,
	}
}

func (s *LocalSink) Write(
	outputDir string,
	snapshot Snapshot,
	hashAlgo hashutil.HashAlgo,
) (WriteResult, failure.ClassifiedError) {
	writeResult, storageError := write(outputDir, snapshot, hashAlgo)
	if storageError != nil {
		s.metadataSink.RecordError(
			time.Now(),
			"storage",
			"LocalSink.Write",
			mapStorageErrorToMetadataCause(storageError),
			storageError.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, snapshot.SourceURL()),
				metadata.NewAttr(metadata.AttrWritePath, storageError.Path),
			},
		)
		return WriteResult{}, storageError
	}
	s.metadataSink.RecordArtifact(
		snapshot.Kind(),
		writeResult.Path(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, snapshot.SourceURL()),
			metadata.NewAttr(metadata.AttrField, writeResult.ContentHash()),
		},
	)
	return writeResult, nil
}

func write(
	outputDir string,
	snapshot Snapshot,
	hashAlgo hashutil.HashAlgo,
) (WriteResult, *StorageError) {
	urlHashFull, err := hashutil.HashBytes([]byte(snapshot.SourceURL()), hashAlgo)
	if err != nil {
		return WriteResult{}, &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseHashComputationFailed,
		}
	}

	// first 12 hex characters name the file
	urlHash := urlHashFull[:12]

	if fileErr := fileutil.EnsureDir(outputDir); fileErr != nil {
		return WriteResult{}, &StorageError{
			Message:   fileErr.Error(),
			Retryable: false,
			Cause:     ErrCausePathError,
			Path:      outputDir,
		}
	}

	fullPath := filepath.Join(outputDir, urlHash+extensionOf(snapshot.Kind()))
	contentHash := hashutil.Fingerprint(snapshot.Content())

	if fileErr := fileutil.WriteFileReplacing(fullPath, render(snapshot, contentHash)); fileErr != nil {
		cause := ErrCauseWriteFailure
		retryable := false
		if fileErr.Cause == fileutil.ErrCausePathError {
			cause = ErrCausePathError
		}
		if errors.Is(fileErr, syscall.ENOSPC) {
			cause = ErrCauseDiskFull
			retryable = true
		}
		return WriteResult{}, &StorageError{
			Message:   fileErr.Error(),
			Retryable: retryable,
			Cause:     cause,
			Path:      fullPath,
		}
	}

	return NewWriteResult(urlHash, fullPath, contentHash), nil
}

func extensionOf(kind metadata.ArtifactKind) string {
	if kind == metadata.ArtifactHTML {
		return ".html"
	}
	return ".md"
}

// render prepends a frontmatter block to Markdown snapshots. HTML snapshots
// are written as they are.
func render(snapshot Snapshot, contentHash string) []byte {
	if snapshot.Kind() == metadata.ArtifactHTML {
		return snapshot.Content()
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	fmt.Fprintf(&buf, "source: %q\n", snapshot.SourceURL())
	fmt.Fprintf(&buf, "title: %q\n", snapshot.Title())
	fmt.Fprintf(&buf, "fingerprint: %s\n", contentHash)
	buf.WriteString("---\n\n")
	buf.Write(snapshot.Content())
	return buf.Bytes()
}
