package navigator

import (
	"context"
	"net/url"
	"sync"
)

type State int

const (
	StateIdle State = iota
	StateStarting
	StateProgressing
	StateUpdating
	StateErrored
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateProgressing:
		return "progressing"
	case StateUpdating:
		return "updating"
	case StateErrored:
		return "errored"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Outcome is how a navigation ended.
type Outcome int

const (
	// OutcomeNone means the navigation has not finished.
	OutcomeNone Outcome = iota
	// OutcomeUpdated: the container was swapped in place.
	OutcomeUpdated
	// OutcomeFullNavigation: the window was sent to the target URL.
	OutcomeFullNavigation
	// OutcomeContentMissing: the page had no matching container and
	// development mode suppressed the fallback.
	OutcomeContentMissing
	// OutcomeSuperseded: a newer navigation was issued before this one
	// could touch the page.
	OutcomeSuperseded
	// OutcomeCanceled: the controller was closed.
	OutcomeCanceled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeUpdated:
		return "updated"
	case OutcomeFullNavigation:
		return "full-navigation"
	case OutcomeContentMissing:
		return "content-missing"
	case OutcomeSuperseded:
		return "superseded"
	case OutcomeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Navigation tracks one Load call.
type Navigation struct {
	sequence     uint64
	target       url.URL
	isHistoryPop bool

	mu             sync.Mutex
	state          State
	outcome        Outcome
	hasRunCallback bool
	callbackEnded  bool
	done           chan struct{}
}

func newNavigation(sequence uint64, target url.URL, isHistoryPop bool) *Navigation {
	return &Navigation{
		sequence:     sequence,
		target:       target,
		isHistoryPop: isHistoryPop,
		state:        StateIdle,
		done:         make(chan struct{}),
	}
}

func (n *Navigation) Sequence() uint64 {
	return n.sequence
}

func (n *Navigation) Target() url.URL {
	return n.target
}

func (n *Navigation) IsHistoryPop() bool {
	return n.isHistoryPop
}

func (n *Navigation) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Outcome is OutcomeNone until Done is closed.
func (n *Navigation) Outcome() Outcome {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.outcome
}

// ProgressRan reports whether the progress hook was invoked.
func (n *Navigation) ProgressRan() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.hasRunCallback
}

// ProgressEnded reports whether the progress phase ran to completion.
func (n *Navigation) ProgressEnded() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.callbackEnded
}

func (n *Navigation) Done() <-chan struct{} {
	return n.done
}

// Wait blocks until the navigation finishes or ctx ends.
func (n *Navigation) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-n.done:
		return n.Outcome(), nil
	case <-ctx.Done():
		return OutcomeNone, ctx.Err()
	}
}

func (n *Navigation) setState(s State) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state = s
}

func (n *Navigation) markProgressRan() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.hasRunCallback = true
}

func (n *Navigation) markProgressEnded() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.callbackEnded = true
}

func (n *Navigation) finish(outcome Outcome) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state = StateDone
	n.outcome = outcome
	close(n.done)
}
