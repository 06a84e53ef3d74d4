package navigator_test

import (
	"sync"
	"time"

	"github.com/rohmanhakim/smoothstate/internal/metadata"
)

// recordingSink captures the events the navigator records
type recordingSink struct {
	metadata.NoopSink
	mu          sync.Mutex
	diagnostics []string
	states      []string
	errors      []metadata.ErrorCause
}

func (s *recordingSink) RecordDiagnostic(packageName string, message string, attrs []metadata.Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diagnostics = append(s.diagnostics, message)
}

func (s *recordingSink) RecordNavigation(sequence uint64, targetURL string, state string, attrs []metadata.Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, state)
}

func (s *recordingSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, cause)
}

func (s *recordingSink) Diagnostics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.diagnostics...)
}

func (s *recordingSink) Errors() []metadata.ErrorCause {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]metadata.ErrorCause(nil), s.errors...)
}

func (s *recordingSink) States() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.states...)
}
