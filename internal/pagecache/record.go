package pagecache

import (
	"sync"

	"github.com/rohmanhakim/smoothstate/internal/extractor"
)

type Status int

const (
	StatusPending Status = iota
	StatusLoaded
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusLoaded:
		return "loaded"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// PageRecord is the cached state of one URL.
//
// A record starts Pending and moves to Loaded or Error exactly once. Done is
// closed on that transition; the document, title, fingerprint and error are
// immutable afterwards.
type PageRecord struct {
	key         string
	mu          sync.RWMutex
	status      Status
	document    *extractor.Document
	fingerprint string
	err         error
	done        chan struct{}
}

func newPendingRecord(key string) *PageRecord {
	return &PageRecord{
		key:    key,
		status: StatusPending,
		done:   make(chan struct{}),
	}
}

func newLoadedRecord(key string, doc *extractor.Document, fingerprint string) *PageRecord {
	r := newPendingRecord(key)
	r.Resolve(doc, fingerprint)
	return r
}

func (r *PageRecord) Key() string {
	return r.key
}

func (r *PageRecord) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Title is the page title; empty unless Loaded.
func (r *PageRecord) Title() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.document == nil {
		return ""
	}
	return r.document.Title()
}

// Document is the parsed page; nil unless Loaded. Callers must not mutate it.
func (r *PageRecord) Document() *extractor.Document {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.document
}

func (r *PageRecord) Fingerprint() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fingerprint
}

// Err is the failure that moved the record to Error.
func (r *PageRecord) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

// Done is closed once the record is Loaded or Error.
func (r *PageRecord) Done() <-chan struct{} {
	return r.done
}

// Resolve marks the record Loaded. It returns false if the record was
// already terminal.
func (r *PageRecord) Resolve(doc *extractor.Document, fingerprint string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != StatusPending {
		return false
	}
	r.status = StatusLoaded
	r.document = doc
	r.fingerprint = fingerprint
	close(r.done)
	return true
}

// Fail marks the record Error. It returns false if the record was already
// terminal.
func (r *PageRecord) Fail(err error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != StatusPending {
		return false
	}
	r.status = StatusError
	r.err = err
	close(r.done)
	return true
}
