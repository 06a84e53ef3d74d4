package navigator

import (
	"net/url"
	"time"

	"github.com/rohmanhakim/smoothstate/internal/extractor"
)

const (
	DefaultAnchors   = "a"
	DefaultBlacklist = ".no-smoothstate, [target]"
)

// RenderFunc is a phase hook. content is empty for the start and progress
// phases. Hooks run one at a time and must not call Load.
type RenderFunc func(target url.URL, container *Container, content extractor.Fragment)

// Phase is one stage of a transition: a hook that runs when the stage begins
// and the time the stage lasts.
type Phase struct {
	Duration time.Duration
	Render   RenderFunc
}

type Options struct {
	// Anchors selects the links the controller intercepts.
	Anchors string
	// Prefetch fetches pages on mouseover and touchstart.
	Prefetch bool
	// Blacklist selects anchors that are never intercepted.
	Blacklist string
	// Development turns fallbacks for missing content into diagnostics.
	Development bool
	// PageCacheSize is the record count above which the cache is wiped when
	// a new fetch begins.
	PageCacheSize int
	// AlterRequestURL rewrites the URL actually requested; returning false
	// keeps the original.
	AlterRequestURL func(target url.URL) (url.URL, bool)

	OnStart Phase
	// OnProgress.Duration is not used: the progress phase lasts
	// OnStart.Duration.
	OnProgress Phase
	OnEnd      Phase
	// Callback runs once the end phase has elapsed.
	Callback RenderFunc

	// AdvanceOnAnimationEnd completes the running phase as soon as every
	// animation started inside the container has ended.
	AdvanceOnAnimationEnd bool
}

// DefaultOptions returns the options every controller starts from. The
// default hooks need the controller's window, so they are bound in
// withDefaults.
func DefaultOptions() Options {
	return Options{
		Anchors:       DefaultAnchors,
		Blacklist:     DefaultBlacklist,
		PageCacheSize: 0,
	}
}

// withDefaults fills every unset field of o.
func (o Options) withDefaults(c *Controller) Options {
	merged := o
	if merged.Anchors == "" {
		merged.Anchors = DefaultAnchors
	}
	if merged.Blacklist == "" {
		merged.Blacklist = DefaultBlacklist
	}
	if merged.PageCacheSize < 0 {
		merged.PageCacheSize = 0
	}
	if merged.OnStart.Render == nil {
		merged.OnStart.Render = func(url.URL, *Container, extractor.Fragment) {
			c.window.ScrollToTop()
		}
	}
	if merged.OnProgress.Render == nil {
		merged.OnProgress.Render = func(url.URL, *Container, extractor.Fragment) {
			c.window.SetCursor("wait")
		}
	}
	if merged.OnEnd.Render == nil {
		merged.OnEnd.Render = func(_ url.URL, container *Container, content extractor.Fragment) {
			c.window.SetCursor("auto")
			container.SetContent(content)
		}
	}
	if merged.Callback == nil {
		merged.Callback = func(url.URL, *Container, extractor.Fragment) {}
	}
	return merged
}
