package browser

import (
	"net/url"

	"golang.org/x/net/html"
)

// ClickEvent is a primary-button click whose target is Target or one of its
// descendants' ancestors. Handlers call PreventDefault when they take over
// the navigation.
type ClickEvent struct {
	Target  *html.Node
	MetaKey bool
	CtrlKey bool

	defaultPrevented bool
}

func (e *ClickEvent) PreventDefault() {
	e.defaultPrevented = true
}

func (e *ClickEvent) DefaultPrevented() bool {
	return e.defaultPrevented
}

// HoverEvent is a mouseover, or a touchstart when Touch is set.
type HoverEvent struct {
	Target *html.Node
	Touch  bool
}

// PopStateEvent is fired when history traversal lands on an entry.
// State is nil for entries created without a state object.
type PopStateEvent struct {
	State *HistoryState
	URL   url.URL
}

type AnimationKind int

const (
	AnimationStart AnimationKind = iota
	AnimationEnd
)

func (k AnimationKind) String() string {
	if k == AnimationStart {
		return "animationstart"
	}
	return "animationend"
}

type AnimationEvent struct {
	Kind   AnimationKind
	Target *html.Node
	Name   string
}
