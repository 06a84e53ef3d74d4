package metadata

/*
sessionStats
  - Represents a terminal, derived summary of a finished headless session
  - Contains only aggregate counts and durations
  - Is computed by the session after its last step
  - Is recorded exactly once
  - Must not influence navigation, retries, or fallbacks
*/
type sessionStats struct {
	steps           int
	fullNavigations int
	prefetched      int
	durationMs      int64
}

/*
	ErrorCause is a closed, canonical classification used exclusively for
	observability (logging, reporting).

	Rules:
	 - ErrorCause is for observability only.
	 - ErrorCause MUST NOT influence control flow.
	 - ErrorCause MUST NOT be used to decide between smooth and full navigation.
	 - ErrorCause values MUST have stable, package-agnostic semantics.
	 - Packages MAY map their local errors to ErrorCause,
	   but MUST NOT invent new meanings.
	Non-goals:
	 - ErrorCause does not encode severity.
	 - ErrorCause does not imply retryability.

If a failure does not clearly match a defined cause, CauseUnknown MUST be used.
*/
type ErrorCause int

/*
Canonical ErrorCause Table

# CauseUnknown

Meaning:
  - The failure does not map cleanly to any known category.

# CauseNetworkFailure

Meaning:
  - Failure caused by network transport or remote availability.

Examples:
  - TCP timeouts
  - DNS resolution failures
  - HTTP 5xx responses

# CausePolicyDisallow

Meaning:
  - The remote refused to serve the page.

Examples:
  - HTTP 403 / 401
  - HTTP 429 after backoff was exhausted

# CauseContentInvalid

Meaning:
  - Content was fetched but could not be used for a content swap.

Examples:
  - Non-HTML responses
  - Markup that cannot be parsed
  - Target container missing or empty in the fetched page

# CauseStorageFailure

Meaning:
  - A rendered page could not be written to disk.

Examples:
  - Output directory cannot be created
  - Disk full

# CauseInvariantViolation

Meaning:
  - A usage or consistency rule was violated.

Examples:
  - Binding a controller to an element without an id
  - Binding the same element twice
*/
const (
	CauseUnknown ErrorCause = iota
	CauseNetworkFailure
	CausePolicyDisallow
	CauseContentInvalid
	CauseStorageFailure
	CauseInvariantViolation
)

func (c ErrorCause) String() string {
	switch c {
	case CauseNetworkFailure:
		return "network_failure"
	case CausePolicyDisallow:
		return "policy_disallow"
	case CauseContentInvalid:
		return "content_invalid"
	case CauseStorageFailure:
		return "storage_failure"
	case CauseInvariantViolation:
		return "invariant_violation"
	default:
		return "unknown"
	}
}

type Attribute struct {
	Key   AttributeKey
	Value string
}

func NewAttr(key AttributeKey, val string) Attribute {
	return Attribute{
		Key:   key,
		Value: val,
	}
}

type AttributeKey string

const (
	AttrTime        AttributeKey = "time"
	AttrURL         AttributeKey = "url"
	AttrHost        AttributeKey = "host"
	AttrPath        AttributeKey = "path"
	AttrField       AttributeKey = "field"
	AttrHTTPStatus  AttributeKey = "http_status"
	AttrContainerID AttributeKey = "container_id"
	AttrOutcome     AttributeKey = "outcome"
	AttrPhase       AttributeKey = "phase"
	AttrCacheSize   AttributeKey = "cache_size"
	AttrWritePath   AttributeKey = "write_path"
)

type ArtifactKind string

const (
	ArtifactMarkdown ArtifactKind = "markdown"
	ArtifactHTML     ArtifactKind = "html"
)
