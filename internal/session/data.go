package session

import (
	"net/url"

	"github.com/rohmanhakim/smoothstate/internal/navigator"
)

type Action string

const (
	ActionOpen    Action = "open"
	ActionFollow  Action = "follow"
	ActionBack    Action = "back"
	ActionForward Action = "forward"
)

// Step is what one user action did to the tab.
type Step struct {
	Action Action
	// Outcome is OutcomeNone when the action did not start a navigation,
	// such as opening a page or popping to a hash-only entry.
	Outcome navigator.Outcome
	// Reloaded is set when the page was loaded from scratch, either on open
	// or after a full navigation.
	Reloaded bool
	URL      url.URL
	Title    string
}

// PrefetchResult describes one anchor target fetched into the page cache.
type PrefetchResult struct {
	URL         url.URL
	Status      string
	Title       string
	Fingerprint string
	Err         error
}
