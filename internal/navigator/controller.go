package navigator

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/rohmanhakim/smoothstate/internal/browser"
	"github.com/rohmanhakim/smoothstate/internal/extractor"
	"github.com/rohmanhakim/smoothstate/internal/fetcher"
	"github.com/rohmanhakim/smoothstate/internal/metadata"
	"github.com/rohmanhakim/smoothstate/internal/pagecache"
	"github.com/rohmanhakim/smoothstate/pkg/failure"
	"github.com/rohmanhakim/smoothstate/pkg/hashutil"
	"github.com/rohmanhakim/smoothstate/pkg/urlutil"
	"golang.org/x/net/html"
)

/*
Responsibilities
- Intercept in-scope anchor clicks and load their targets in place
- Prefetch on hover when enabled
- Keep a per-URL page cache
- Drive the start, progress and end phases of every transition
- Keep browser history in step with the displayed content

Every navigation gets a sequence number. A continuation that would touch the
page (progress hook, history push, content swap, callback, full navigation)
runs only while its navigation is still the latest one issued; otherwise the
navigation ends as OutcomeSuperseded.

Render hooks of every controller in a registry run under one lock, one at a
time.
*/

// PageFetcher retrieves page markup.
type PageFetcher interface {
	Fetch(ctx context.Context, fetchUrl url.URL) (fetcher.FetchResult, failure.ClassifiedError)
}

type Controller struct {
	ctx    context.Context
	cancel context.CancelFunc

	window    browser.Window
	container *Container
	options   Options
	anchors   cascadia.SelectorGroup
	blacklist cascadia.SelectorGroup

	pageFetcher  PageFetcher
	domExtractor extractor.DomExtractor
	cache        *pagecache.Cache
	metadataSink metadata.MetadataSink

	renderMu *sync.Mutex
	sequence atomic.Uint64

	mu             sync.Mutex
	currentHref    url.URL
	activePhase    *phaseSignal
	phaseListeners []func()
	animationCount int
}

func newController(
	ctx context.Context,
	window browser.Window,
	container *Container,
	options Options,
	pageFetcher PageFetcher,
	metadataSink metadata.MetadataSink,
	renderMu *sync.Mutex,
) (*Controller, error) {
	c := &Controller{
		window:       window,
		container:    container,
		pageFetcher:  pageFetcher,
		domExtractor: extractor.NewDomExtractor(metadataSink),
		metadataSink: metadataSink,
		renderMu:     renderMu,
		currentHref:  window.Location(),
	}
	c.options = options.withDefaults(c)

	anchors, err := cascadia.ParseGroup(c.options.Anchors)
	if err != nil {
		return nil, &NavigationError{
			Message: "anchors: " + err.Error(),
			Cause:   ErrCauseInvalidSelector,
		}
	}
	blacklist, err := cascadia.ParseGroup(c.options.Blacklist)
	if err != nil {
		return nil, &NavigationError{
			Message: "blacklist: " + err.Error(),
			Cause:   ErrCauseInvalidSelector,
		}
	}
	c.anchors = anchors
	c.blacklist = blacklist

	c.cache = pagecache.NewCache(c.options.PageCacheSize, metadataSink)
	c.ctx, c.cancel = context.WithCancel(ctx)
	return c, nil
}

// seedCurrentPage stores the live document under the current location.
func (c *Controller) seedCurrentPage() {
	doc := c.container.Document()
	c.cache.Seed(
		urlutil.CacheKey(c.CurrentURL()),
		doc.Snapshot(),
		hashutil.Fingerprint([]byte(doc.OuterHTML())),
	)
}

func (c *Controller) Container() *Container {
	return c.container
}

func (c *Controller) Options() Options {
	return c.options
}

func (c *Controller) Cache() *pagecache.Cache {
	return c.cache
}

// CurrentURL is the URL of the content currently displayed.
func (c *Controller) CurrentURL() url.URL {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentHref
}

func (c *Controller) setCurrentURL(u url.URL) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentHref = u
}

// Close stops pending waits and in-flight fetches.
func (c *Controller) Close() {
	c.cancel()
}

// Fetch starts fetching target unless the cache already has a record for it,
// and returns the record. It never fails; failures land in the record.
func (c *Controller) Fetch(target url.URL) *pagecache.PageRecord {
	record, created := c.cache.Begin(urlutil.CacheKey(target))
	if !created {
		return record
	}

	requestURL := target
	if c.options.AlterRequestURL != nil {
		if altered, ok := c.options.AlterRequestURL(target); ok {
			requestURL = altered
		}
	}

	go c.fetchInto(record, requestURL)
	return record
}

func (c *Controller) fetchInto(record *pagecache.PageRecord, requestURL url.URL) {
	result, err := c.pageFetcher.Fetch(c.ctx, requestURL)
	if err != nil {
		record.Fail(err)
		return
	}
	doc, parseErr := c.domExtractor.Parse(requestURL, result.Body())
	if parseErr != nil {
		record.Fail(parseErr)
		return
	}
	record.Resolve(doc, hashutil.Fingerprint(result.Body()))
}

// Load navigates to target without a page reload. The returned navigation
// completes asynchronously. isHistoryPop suppresses the history push.
func (c *Controller) Load(target url.URL, isHistoryPop bool) *Navigation {
	c.renderMu.Lock()
	nav := newNavigation(c.sequence.Add(1), target, isHistoryPop)
	record := c.Fetch(target)

	c.transition(nav, StateStarting)
	start := c.beginPhase(phaseStart)
	c.options.OnStart.Render(target, c.container, extractor.Fragment{})
	c.renderMu.Unlock()

	start.finishAfter(c.options.OnStart.Duration)

	go c.await(nav, record, start)
	return nav
}

func (c *Controller) await(nav *Navigation, record *pagecache.PageRecord, start *phaseSignal) {
	gate := start

	select {
	case <-record.Done():
	default:
		select {
		case <-record.Done():
		case <-start.Done():
			select {
			case <-record.Done():
			default:
				progress, ok := c.runProgress(nav)
				if !ok {
					c.finish(nav, OutcomeSuperseded)
					return
				}
				gate = progress
				select {
				case <-record.Done():
				case <-c.ctx.Done():
					c.finish(nav, OutcomeCanceled)
					return
				}
			}
		case <-c.ctx.Done():
			c.finish(nav, OutcomeCanceled)
			return
		}
	}

	switch record.Status() {
	case pagecache.StatusLoaded:
		c.onLoaded(nav, record, gate)
	case pagecache.StatusError:
		c.onError(nav, record)
	default:
		// Done is closed only on a terminal status.
		c.finish(nav, OutcomeCanceled)
	}
}

// runProgress invokes the progress hook and starts the progress companion
// timer, which shares the start phase's duration.
func (c *Controller) runProgress(nav *Navigation) (*phaseSignal, bool) {
	var progress *phaseSignal
	ran := c.mutate(nav, func() {
		nav.markProgressRan()
		c.transition(nav, StateProgressing)
		progress = c.beginPhase(phaseProgress)
		c.options.OnProgress.Render(nav.Target(), c.container, extractor.Fragment{})
	})
	if !ran {
		return nil, false
	}
	progress.finishAfter(c.options.OnStart.Duration)
	return progress, true
}

func (c *Controller) onLoaded(nav *Navigation, record *pagecache.PageRecord, gate *phaseSignal) {
	if !nav.IsHistoryPop() {
		pushed := c.mutate(nav, func() {
			c.window.PushState(browser.HistoryState{ID: c.container.ID()}, record.Title(), nav.Target())
		})
		if !pushed {
			c.finish(nav, OutcomeSuperseded)
			return
		}
	}

	select {
	case <-gate.Done():
	case <-c.ctx.Done():
		c.finish(nav, OutcomeCanceled)
		return
	}
	if gate.kind == phaseProgress {
		nav.markProgressEnded()
	}

	c.updateContent(nav, record)
}

func (c *Controller) onError(nav *Navigation, record *pagecache.PageRecord) {
	navigated := c.mutate(nav, func() {
		c.transition(nav, StateErrored)
		c.recordError("Controller.Load", &NavigationError{
			Message: record.Err().Error(),
			Cause:   ErrCauseFetchFailed,
		}, nav.Target())
		c.window.Navigate(nav.Target())
	})
	if !navigated {
		c.finish(nav, OutcomeSuperseded)
		return
	}
	c.finish(nav, OutcomeFullNavigation)
}

// updateContent swaps the stored page's container content in, or falls back
// when the page has none.
func (c *Controller) updateContent(nav *Navigation, record *pagecache.PageRecord) {
	target := nav.Target()
	content, found := extractor.ContentByID(record.Document(), c.container.ID())

	var end *phaseSignal
	outcome := OutcomeUpdated
	applied := c.mutate(nav, func() {
		if !found {
			navErr := &NavigationError{
				Message: "no element with an id of #" + c.container.ID() + " in response from " + target.String(),
				Cause:   ErrCauseContentMissing,
			}
			c.recordError("Controller.updateContent", navErr, target)
			if c.options.Development {
				c.metadataSink.RecordDiagnostic("navigator", navErr.Message, []metadata.Attribute{
					metadata.NewAttr(metadata.AttrContainerID, c.container.ID()),
					metadata.NewAttr(metadata.AttrURL, target.String()),
				})
				outcome = OutcomeContentMissing
				return
			}
			c.window.Navigate(target)
			outcome = OutcomeFullNavigation
			return
		}

		c.transition(nav, StateUpdating)
		c.window.SetTitle(record.Title())
		c.setCurrentURL(target)
		end = c.beginPhase(phaseEnd)
		c.options.OnEnd.Render(target, c.container, content)
	})
	if !applied {
		c.finish(nav, OutcomeSuperseded)
		return
	}
	if end == nil {
		c.finish(nav, outcome)
		return
	}

	end.finishAfter(c.options.OnEnd.Duration)
	select {
	case <-end.Done():
	case <-c.ctx.Done():
		c.finish(nav, OutcomeCanceled)
		return
	}

	calledBack := c.mutate(nav, func() {
		c.options.Callback(target, c.container, content)
	})
	if !calledBack {
		c.finish(nav, OutcomeSuperseded)
		return
	}
	c.finish(nav, OutcomeUpdated)
}

// mutate runs fn under the render lock if nav is still the latest
// navigation.
func (c *Controller) mutate(nav *Navigation, fn func()) bool {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()
	if nav.Sequence() != c.sequence.Load() {
		return false
	}
	fn()
	return true
}

func (c *Controller) transition(nav *Navigation, state State) {
	nav.setState(state)
	target := nav.Target()
	c.metadataSink.RecordNavigation(nav.Sequence(), target.String(), state.String(), []metadata.Attribute{
		metadata.NewAttr(metadata.AttrContainerID, c.container.ID()),
	})
}

func (c *Controller) finish(nav *Navigation, outcome Outcome) {
	target := nav.Target()
	c.metadataSink.RecordNavigation(nav.Sequence(), target.String(), StateDone.String(), []metadata.Attribute{
		metadata.NewAttr(metadata.AttrContainerID, c.container.ID()),
		metadata.NewAttr(metadata.AttrOutcome, outcome.String()),
	})
	nav.finish(outcome)
}

func (c *Controller) recordError(action string, err *NavigationError, target url.URL) {
	c.metadataSink.RecordError(
		time.Now(),
		"navigator",
		action,
		mapNavigationErrorToMetadataCause(err),
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, target.String()),
			metadata.NewAttr(metadata.AttrContainerID, c.container.ID()),
		},
	)
}

// ShouldLoad reports whether anchor is handled in place: its href resolves
// to the current origin, is not a hash link into the current document, and
// the anchor is not blacklisted.
func (c *Controller) ShouldLoad(anchor *html.Node) bool {
	var should bool
	c.container.Document().Read(func(*html.Node) {
		_, should = c.resolveAnchor(anchor)
	})
	return should
}

// resolveAnchor expects the document read lock to be held.
func (c *Controller) resolveAnchor(anchor *html.Node) (url.URL, bool) {
	href, ok := browser.Attr(anchor, "href")
	if !ok {
		return url.URL{}, false
	}
	location := c.window.Location()
	target, err := urlutil.Resolve(location, href)
	if err != nil {
		return url.URL{}, false
	}
	if urlutil.IsExternal(target, location) || urlutil.IsHash(target, location) {
		return url.URL{}, false
	}
	if c.blacklist.Match(anchor) {
		return url.URL{}, false
	}
	return target, true
}

// targetAnchor finds the in-scope anchor an event on n belongs to, walking
// up to, but not including, the container. It expects the document read
// lock to be held.
func (c *Controller) targetAnchor(n *html.Node) *html.Node {
	root := c.container.Element()
	for cur := n; cur != nil && cur != root; cur = cur.Parent {
		if cur.Type == html.ElementNode && c.anchors.Match(cur) {
			if browser.Contains(root, cur) {
				return cur
			}
			return nil
		}
	}
	return nil
}

// HandleClick loads the clicked anchor's target in place. It returns false,
// leaving the event untouched, for modified clicks and anchors out of scope.
func (c *Controller) HandleClick(event *browser.ClickEvent) (*Navigation, bool) {
	if event.MetaKey || event.CtrlKey {
		return nil, false
	}
	var target url.URL
	var ok bool
	c.container.Document().Read(func(*html.Node) {
		if anchor := c.targetAnchor(event.Target); anchor != nil {
			target, ok = c.resolveAnchor(anchor)
		}
	})
	if !ok {
		return nil, false
	}
	event.PreventDefault()
	return c.Load(target, false), true
}

// HandleHover prefetches the hovered anchor's target when prefetching is on.
func (c *Controller) HandleHover(event browser.HoverEvent) (*pagecache.PageRecord, bool) {
	if !c.options.Prefetch {
		return nil, false
	}
	var target url.URL
	var ok bool
	c.container.Document().Read(func(*html.Node) {
		if anchor := c.targetAnchor(event.Target); anchor != nil {
			target, ok = c.resolveAnchor(anchor)
		}
	})
	if !ok {
		return nil, false
	}
	return c.Fetch(target), true
}
