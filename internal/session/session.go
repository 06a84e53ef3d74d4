package session

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rohmanhakim/smoothstate/internal/browser"
	"github.com/rohmanhakim/smoothstate/internal/config"
	"github.com/rohmanhakim/smoothstate/internal/extractor"
	"github.com/rohmanhakim/smoothstate/internal/fetcher"
	"github.com/rohmanhakim/smoothstate/internal/mdconvert"
	"github.com/rohmanhakim/smoothstate/internal/metadata"
	"github.com/rohmanhakim/smoothstate/internal/navigator"
	"github.com/rohmanhakim/smoothstate/internal/pagecache"
	"github.com/rohmanhakim/smoothstate/internal/sanitizer"
	"github.com/rohmanhakim/smoothstate/pkg/failure"
	"github.com/rohmanhakim/smoothstate/pkg/limiter"
	"github.com/rohmanhakim/smoothstate/pkg/urlutil"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
)

/*
Session drives one headless tab the way a user drives a browser.

Responsibilities
- Load the start page and bind the controller to the configured container
- Turn user actions (follow a link, back, forward) into the events a
  browser would dispatch
- Reload the page whenever the controller falls back to a full navigation
- Prefetch every in-scope link with bounded concurrency
- Aggregate session statistics

The session decides when to reload; the controller alone decides how a
navigation proceeds. Metadata is observational only.
*/
type Session struct {
	ctx              context.Context
	cfg              config.Config
	metadataSink     metadata.MetadataSink
	sessionFinalizer metadata.SessionFinalizer
	pageFetcher      fetcher.Fetcher
	domExtractor     extractor.DomExtractor
	htmlSanitizer    sanitizer.Sanitizer
	conversionRule   mdconvert.ConvertRule

	mu         sync.Mutex
	tab        *browser.Tab
	registry   *navigator.Registry
	controller *navigator.Controller
	closed     bool

	startedAt       time.Time
	steps           int
	fullNavigations int
	prefetched      int
}

// Open fetches the configured start page and binds a controller to its
// container. ctx bounds the whole session, including fetches started later.
// When sink also implements metadata.SessionFinalizer, Close reports the
// session statistics to it.
func Open(ctx context.Context, cfg config.Config, sink metadata.MetadataSink) (*Session, error) {
	rateLimiter := limiter.NewConcurrentRateLimiter(
		cfg.BaseDelay(),
		cfg.Jitter(),
		cfg.RandomSeed(),
		cfg.BackoffParam(),
	)
	htmlFetcher := fetcher.NewHtmlFetcher(
		sink,
		&http.Client{Timeout: cfg.Timeout()},
		cfg.UserAgent(),
		cfg.RetryParam(),
		rateLimiter,
	)
	return OpenWithDeps(ctx, cfg, sink, htmlFetcher)
}

// OpenWithDeps is Open with an injected page fetcher.
func OpenWithDeps(
	ctx context.Context,
	cfg config.Config,
	sink metadata.MetadataSink,
	pageFetcher fetcher.Fetcher,
) (*Session, error) {
	finalizer, ok := sink.(metadata.SessionFinalizer)
	if !ok {
		finalizer = &metadata.NoopSink{}
	}
	s := &Session{
		ctx:              ctx,
		cfg:              cfg,
		metadataSink:     sink,
		sessionFinalizer: finalizer,
		pageFetcher:      pageFetcher,
		domExtractor:     extractor.NewDomExtractor(sink),
		htmlSanitizer:    sanitizer.NewHTMLSanitizer(sink, sanitizer.DefaultSanitizeParam()),
		conversionRule:   mdconvert.NewRule(sink),
		startedAt:        time.Now(),
	}
	if err := s.load(cfg.StartURL()); err != nil {
		return nil, err
	}
	s.steps++
	return s, nil
}

// load replaces the tab with a fresh page loaded from target.
func (s *Session) load(target url.URL) error {
	result, fetchErr := s.pageFetcher.Fetch(s.ctx, target)
	if fetchErr != nil {
		return s.fail("Session.load", &SessionError{
			Message:   target.String(),
			Retryable: fetchErr.Severity() == failure.SeverityRecoverable,
			Cause:     ErrCauseOpenFailed,
			Err:       fetchErr,
		})
	}

	page, parseErr := s.domExtractor.Parse(result.FinalURL(), result.Body())
	if parseErr != nil {
		return s.fail("Session.load", &SessionError{
			Message: target.String(),
			Cause:   ErrCauseOpenFailed,
			Err:     parseErr,
		})
	}

	document := browser.NewDocument(page.Root())
	tab := browser.NewTab(result.FinalURL(), document)
	registry := navigator.NewRegistry(tab, document, s.pageFetcher, s.metadataSink)

	element := document.ElementByID(s.cfg.ContainerID())
	if element == nil {
		finalURL := result.FinalURL()
		return s.fail("Session.load", &SessionError{
			Message: "#" + s.cfg.ContainerID() + " on " + finalURL.String(),
			Cause:   ErrCauseContainerNotFound,
		})
	}
	controller, err := registry.Initialize(s.ctx, element, s.cfg.NavigatorOptions())
	if err != nil {
		return err
	}

	s.mu.Lock()
	previous := s.registry
	s.tab = tab
	s.registry = registry
	s.controller = controller
	s.mu.Unlock()

	if previous != nil {
		previous.Close()
	}
	return nil
}

// Follow clicks the first in-scope anchor of the container whose href is
// href, as written or once resolved. Anchors the controller does not
// intercept are followed with a full page load.
func (s *Session) Follow(ctx context.Context, href string) (Step, error) {
	tab, registry, controller, err := s.current()
	if err != nil {
		return Step{}, err
	}

	anchor, target, found := s.findAnchor(tab, controller, href)
	if !found {
		return Step{}, s.fail("Session.Follow", &SessionError{
			Message: href,
			Cause:   ErrCauseAnchorNotFound,
		})
	}

	event := &browser.ClickEvent{Target: anchor}
	nav, handled := registry.DispatchClick(event)
	if !handled {
		return s.reload(ActionFollow, target)
	}
	return s.settle(ctx, ActionFollow, nav)
}

func (s *Session) Back(ctx context.Context) (Step, error) {
	return s.traverse(ctx, ActionBack)
}

func (s *Session) Forward(ctx context.Context) (Step, error) {
	return s.traverse(ctx, ActionForward)
}

func (s *Session) traverse(ctx context.Context, action Action) (Step, error) {
	tab, registry, _, err := s.current()
	if err != nil {
		return Step{}, err
	}

	var event browser.PopStateEvent
	var ok bool
	if action == ActionBack {
		event, ok = tab.Back()
	} else {
		event, ok = tab.Forward()
	}
	if !ok {
		return Step{}, s.fail("Session."+string(action), &SessionError{
			Message: string(action),
			Cause:   ErrCauseNoHistory,
		})
	}

	nav, handled := registry.HandlePopState(event)
	if !handled {
		s.mu.Lock()
		s.steps++
		s.mu.Unlock()
		return Step{Action: action, URL: tab.Location(), Title: tab.Title()}, nil
	}
	return s.settle(ctx, action, nav)
}

// settle waits for nav and reloads the page when it fell back to a full
// navigation.
func (s *Session) settle(ctx context.Context, action Action, nav *navigator.Navigation) (Step, error) {
	outcome, err := nav.Wait(ctx)
	if err != nil {
		return Step{}, err
	}

	if outcome == navigator.OutcomeFullNavigation {
		step, err := s.reload(action, nav.Target())
		step.Outcome = outcome
		return step, err
	}

	tab, _, _, err := s.current()
	if err != nil {
		return Step{}, err
	}
	s.mu.Lock()
	s.steps++
	s.mu.Unlock()
	return Step{
		Action:  action,
		Outcome: outcome,
		URL:     tab.Location(),
		Title:   tab.Title(),
	}, nil
}

func (s *Session) reload(action Action, target url.URL) (Step, error) {
	if err := s.load(target); err != nil {
		return Step{}, err
	}
	tab, _, _, err := s.current()
	if err != nil {
		return Step{}, err
	}
	s.mu.Lock()
	s.steps++
	s.fullNavigations++
	s.mu.Unlock()
	return Step{
		Action:   action,
		Reloaded: true,
		URL:      tab.Location(),
		Title:    tab.Title(),
	}, nil
}

// findAnchor looks for href among the container's anchors. An exact href
// match wins over a resolved one.
func (s *Session) findAnchor(tab *browser.Tab, controller *navigator.Controller, href string) (*html.Node, url.URL, bool) {
	location := tab.Location()
	wanted, wantedErr := urlutil.Resolve(location, href)

	var anchor *html.Node
	var target url.URL
	tab.Document().Read(func(*html.Node) {
		goquery.NewDocumentFromNode(controller.Container().Element()).
			Find("a[href]").
			EachWithBreak(func(_ int, sel *goquery.Selection) bool {
				raw, _ := sel.Attr("href")
				resolved, err := urlutil.Resolve(location, raw)
				if err != nil {
					return true
				}
				if raw == href || (wantedErr == nil && resolved.String() == wanted.String()) {
					anchor = sel.Get(0)
					target = resolved
					return false
				}
				return true
			})
	})
	return anchor, target, anchor != nil
}

// inScopeTargets lists the distinct targets of the anchors the controller
// would intercept, in document order.
func (s *Session) inScopeTargets(tab *browser.Tab, controller *navigator.Controller) []url.URL {
	location := tab.Location()

	var anchors []*html.Node
	tab.Document().Read(func(*html.Node) {
		goquery.NewDocumentFromNode(controller.Container().Element()).
			Find(controller.Options().Anchors).
			Each(func(_ int, sel *goquery.Selection) {
				anchors = append(anchors, sel.Get(0))
			})
	})

	seen := make(map[string]struct{})
	var targets []url.URL
	for _, anchor := range anchors {
		if !controller.ShouldLoad(anchor) {
			continue
		}
		var href string
		tab.Document().Read(func(*html.Node) {
			href, _ = browser.Attr(anchor, "href")
		})
		target, err := urlutil.Resolve(location, href)
		if err != nil {
			continue
		}
		key := urlutil.CacheKey(target)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		targets = append(targets, target)
	}
	return targets
}

// PrefetchAll fetches every in-scope link target into the page cache, at
// most cfg.Concurrency() at a time. Failed fetches are reported in the
// results, not as an error; the error is only set when ctx ends first.
func (s *Session) PrefetchAll(ctx context.Context) ([]PrefetchResult, error) {
	tab, _, controller, err := s.current()
	if err != nil {
		return nil, err
	}

	targets := s.inScopeTargets(tab, controller)
	results := make([]PrefetchResult, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency())
	for i, target := range targets {
		g.Go(func() error {
			record := controller.Fetch(target)
			select {
			case <-record.Done():
			case <-gctx.Done():
				return gctx.Err()
			}
			results[i] = prefetchResultOf(target, record)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.prefetched += len(targets)
	s.mu.Unlock()
	return results, nil
}

func prefetchResultOf(target url.URL, record *pagecache.PageRecord) PrefetchResult {
	return PrefetchResult{
		URL:         target,
		Status:      record.Status().String(),
		Title:       record.Title(),
		Fingerprint: record.Fingerprint(),
		Err:         record.Err(),
	}
}

// Content is the container's current inner markup.
func (s *Session) Content() (string, error) {
	_, _, controller, err := s.current()
	if err != nil {
		return "", err
	}
	return controller.Container().HTML(), nil
}

// ContentMarkdown is the container's current content as Markdown. Scripts,
// styles and empty markup are left out.
func (s *Session) ContentMarkdown() (string, error) {
	tab, _, _, err := s.current()
	if err != nil {
		return "", err
	}
	content, ok := extractor.ContentByID(tab.Document().Snapshot(), s.cfg.ContainerID())
	if !ok {
		return "", nil
	}
	content, sanitizeErr := s.htmlSanitizer.Sanitize(content)
	if sanitizeErr != nil {
		return "", sanitizeErr
	}
	if content.IsEmpty() {
		return "", nil
	}
	result, convErr := s.conversionRule.Convert(content)
	if convErr != nil {
		return "", convErr
	}
	return string(result.GetMarkdownContent()), nil
}

func (s *Session) Location() url.URL {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tab.Location()
}

func (s *Session) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tab.Title()
}

// Cache is the page cache of the current page's controller.
func (s *Session) Cache() *pagecache.Cache {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controller.Cache()
}

// Close releases the controller and reports the session statistics.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	registry := s.registry
	steps, fullNavigations, prefetched := s.steps, s.fullNavigations, s.prefetched
	s.mu.Unlock()

	registry.Close()
	s.sessionFinalizer.RecordSessionStats(steps, fullNavigations, prefetched, time.Since(s.startedAt))
}

func (s *Session) current() (*browser.Tab, *navigator.Registry, *navigator.Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil, nil, &SessionError{Message: "use after Close", Cause: ErrCauseClosed}
	}
	return s.tab, s.registry, s.controller, nil
}

func (s *Session) fail(action string, err *SessionError) error {
	attrs := []metadata.Attribute{}
	var fetchErr *fetcher.FetchError
	if errors.As(err, &fetchErr) && fetchErr.StatusCode != 0 {
		attrs = append(attrs, metadata.NewAttr(metadata.AttrHTTPStatus, strconv.Itoa(fetchErr.StatusCode)))
	}
	s.metadataSink.RecordError(
		time.Now(),
		"session",
		action,
		mapSessionErrorToMetadataCause(err),
		err.Error(),
		attrs,
	)
	return err
}
