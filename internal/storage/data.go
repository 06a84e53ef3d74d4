package storage

import "github.com/rohmanhakim/smoothstate/internal/metadata"

// Snapshot is the rendered content of a container at one point of a visit.
type Snapshot struct {
	sourceURL string
	title     string
	kind      metadata.ArtifactKind
	content   []byte
}

func NewSnapshot(
	sourceURL string,
	title string,
	kind metadata.ArtifactKind,
	content []byte,
) Snapshot {
	return Snapshot{
		sourceURL: sourceURL,
		title:     title,
		kind:      kind,
		content:   content,
	}
}

func (s Snapshot) SourceURL() string {
	return s.sourceURL
}

func (s Snapshot) Title() string {
	return s.title
}

func (s Snapshot) Kind() metadata.ArtifactKind {
	return s.kind
}

func (s Snapshot) Content() []byte {
	return s.content
}

// Persistence

type WriteResult struct {
	urlHash     string // identity (filename without extension)
	path        string
	contentHash string
}

func NewWriteResult(
	urlHash string,
	path string,
	contentHash string,
) WriteResult {
	return WriteResult{
		urlHash:     urlHash,
		path:        path,
		contentHash: contentHash,
	}
}

func (w *WriteResult) URLHash() string {
	return w.urlHash
}

func (w *WriteResult) Path() string {
	return w.path
}

func (w *WriteResult) ContentHash() string {
	return w.contentHash
}
