package failure

type Severity int

// navigation control flow: fatal failures degrade to a full page load,
// recoverable ones may be retried by the transport.
const (
	SeverityFatal Severity = iota
	SeverityRecoverable
)

type ClassifiedError interface {
	error
	Severity() Severity
}
