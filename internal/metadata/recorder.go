package metadata

import (
	"time"

	"go.uber.org/zap"
)

/*
Metadata Collected
- Fetch timestamps, status codes and durations
- Content fingerprints
- Navigation state transitions and outcomes
- Cache wipes
- Development-mode diagnostics

Logging Goals
- Debuggable navigation behavior
- Failure diagnostics for fallbacks to full navigation

Metadata is write-only.
No component may read metadata to influence navigation decisions.
*/

/*
Recorder writes structured navigation events through zap.
It must not:
- perform I/O decisions
- affect control flow
Ordering guarantees:
- Events are written synchronously in the order each goroutine records them.
- No global ordering across concurrent navigations is guaranteed.
*/
type Recorder struct {
	logger *zap.Logger
}

func NewRecorder(logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		logger: logger.Named("metadata"),
	}
}

func (r *Recorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	errorString string,
	attrs []Attribute,
) {
	fields := []zap.Field{
		zap.Time(string(AttrTime), observedAt),
		zap.String("package", packageName),
		zap.String("action", action),
		zap.Stringer("cause", cause),
		zap.String("error", errorString),
	}
	r.logger.Error("error", append(fields, attrFields(attrs)...)...)
}

func (r *Recorder) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	attempts int,
	fingerprint string,
) {
	r.logger.Info("fetch",
		zap.String(string(AttrURL), fetchUrl),
		zap.Int(string(AttrHTTPStatus), httpStatus),
		zap.Duration("duration", duration),
		zap.String("content_type", contentType),
		zap.Int("attempts", attempts),
		zap.String("fingerprint", fingerprint),
	)
}

func (r *Recorder) RecordNavigation(
	sequence uint64,
	targetURL string,
	state string,
	attrs []Attribute,
) {
	fields := []zap.Field{
		zap.Uint64("sequence", sequence),
		zap.String(string(AttrURL), targetURL),
		zap.String("state", state),
	}
	r.logger.Debug("navigation", append(fields, attrFields(attrs)...)...)
}

func (r *Recorder) RecordCacheWipe(evicted int, capacity int) {
	r.logger.Info("cache wipe",
		zap.Int("evicted", evicted),
		zap.Int(string(AttrCacheSize), capacity),
	)
}

func (r *Recorder) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {
	fields := []zap.Field{
		zap.String("kind", string(kind)),
		zap.String(string(AttrWritePath), path),
	}
	r.logger.Info("artifact", append(fields, attrFields(attrs)...)...)
}

func (r *Recorder) RecordDiagnostic(packageName string, message string, attrs []Attribute) {
	fields := []zap.Field{zap.String("package", packageName)}
	r.logger.Warn(message, append(fields, attrFields(attrs)...)...)
}

/*
RecordSessionStats records a terminal, derived summary of a finished session.

Contract:
  - MUST be called at most once per session.
  - MUST be called only after the session's last step.
  - Recorded stats MUST NOT influence control flow.
*/
func (r *Recorder) RecordSessionStats(
	steps int,
	fullNavigations int,
	prefetched int,
	duration time.Duration,
) {
	stats := sessionStats{
		steps:           steps,
		fullNavigations: fullNavigations,
		prefetched:      prefetched,
		durationMs:      duration.Milliseconds(),
	}

	r.append(stats)
}

func (r *Recorder) append(stats sessionStats) {
	r.logger.Info("session stats",
		zap.Int("steps", stats.steps),
		zap.Int("full_navigations", stats.fullNavigations),
		zap.Int("prefetched", stats.prefetched),
		zap.Int64("duration_ms", stats.durationMs),
	)
}

func attrFields(attrs []Attribute) []zap.Field {
	fields := make([]zap.Field, 0, len(attrs))
	for _, a := range attrs {
		fields = append(fields, zap.String(string(a.Key), a.Value))
	}
	return fields
}

type MetadataSink interface {
	RecordError(
		observedAt time.Time,
		packageName string,
		action string,
		cause ErrorCause,
		details string,
		attrs []Attribute,
	)

	RecordFetch(
		fetchUrl string,
		httpStatus int,
		duration time.Duration,
		contentType string,
		attempts int,
		fingerprint string,
	)

	RecordNavigation(
		sequence uint64,
		targetURL string,
		state string,
		attrs []Attribute,
	)

	RecordCacheWipe(evicted int, capacity int)

	RecordDiagnostic(packageName string, message string, attrs []Attribute)

	RecordArtifact(kind ArtifactKind, path string, attrs []Attribute)
}

type SessionFinalizer interface {
	RecordSessionStats(
		steps int,
		fullNavigations int,
		prefetched int,
		duration time.Duration,
	)
}

// NoopSink, struct that implements metadata.Sink but does nothing
// Session (or Test) can decide whether to inject Recorder or NoopSink
// Purpose is to make metadata orthogonal

type NoopSink struct{}

func (n *NoopSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	errorString string,
	attrs []Attribute,
) {
}

func (n *NoopSink) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	attempts int,
	fingerprint string,
) {
}

func (n *NoopSink) RecordNavigation(sequence uint64, targetURL string, state string, attrs []Attribute) {
}

func (n *NoopSink) RecordCacheWipe(evicted int, capacity int) {}

func (n *NoopSink) RecordDiagnostic(packageName string, message string, attrs []Attribute) {}

func (n *NoopSink) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {}

func (n *NoopSink) RecordSessionStats(steps int, fullNavigations int, prefetched int, duration time.Duration) {
}
