package navigator_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/rohmanhakim/smoothstate/internal/browser"
	"github.com/rohmanhakim/smoothstate/internal/extractor"
	"github.com/rohmanhakim/smoothstate/internal/metadata"
	"github.com/rohmanhakim/smoothstate/internal/navigator"
	"github.com/rohmanhakim/smoothstate/internal/pagecache"
	"github.com/rohmanhakim/smoothstate/pkg/urlutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestShouldLoad(t *testing.T) {
	f := newFixture(t)
	c := f.controller(navigator.Options{})

	tests := []struct {
		id   string
		want bool
	}{
		{"to-a", true},
		{"to-b", true},
		{"to-ext", false},
		{"to-black", false},
		{"to-target", false},
		{"to-hash", false},
		{"no-href", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, c.ShouldLoad(f.element(tt.id)))
		})
	}
}

func TestShouldLoad_HrefVariants(t *testing.T) {
	f := newFixture(t)
	c := f.controller(navigator.Options{})
	anchor := f.element("to-a")

	tests := []struct {
		name string
		href string
		want bool
	}{
		{"absolute same origin", "https://example.com/docs", true},
		{"explicit default port", "https://example.com:443/docs", true},
		{"uppercase host", "https://EXAMPLE.com/docs", true},
		{"hash on other page", "/other#top", true},
		{"same page with query change", "/?page=2", true},
		{"other scheme", "http://example.com/docs", false},
		{"other host", "https://example.org/docs", false},
		{"mailto", "mailto:someone@example.com", false},
		{"protocol relative other host", "//cdn.example.net/x", false},
		{"hash on current page", "/#top", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.document.Write(func(*html.Node) {
				for i, a := range anchor.Attr {
					if a.Key == "href" {
						anchor.Attr[i].Val = tt.href
					}
				}
			})
			assert.Equal(t, tt.want, c.ShouldLoad(anchor))
		})
	}
}

func TestLoad_CachedZeroDurationGoesStraightToEnd(t *testing.T) {
	f := newFixture(t)
	f.fetcher.onPage("/a", page("Page A", "<p>Page A</p>"))
	c := f.controller(f.loggedOptions(navigator.Options{}))
	f.prefetch(c, "/a")

	nav := c.Load(mustParse(t, "https://example.com/a"), false)
	outcome := f.wait(nav)

	assert.Equal(t, navigator.OutcomeUpdated, outcome)
	assert.Equal(t, navigator.StateDone, nav.State())
	assert.False(t, nav.ProgressRan())
	assert.Equal(t, []string{"start", "end", "callback"}, f.phases.names())

	assert.Equal(t, "<p>Page A</p>", c.Container().HTML())
	assert.Equal(t, "Page A", f.tab.Title())
	assert.Equal(t, "/a", pathOf(c.CurrentURL()))
	assert.Equal(t, "/a", pathOf(f.tab.Location()))
	assert.Equal(t, "main", f.tab.HistoryState().ID)
	assert.Equal(t, 2, f.tab.HistoryLength())
	assert.Empty(t, f.tab.Navigations())
}

func TestLoad_ContentBeforeStartEndsSkipsProgress(t *testing.T) {
	f := newFixture(t)
	f.fetcher.onPage("/a", page("Page A", "<p>Page A</p>"))
	c := f.controller(f.loggedOptions(navigator.Options{
		OnStart: navigator.Phase{Duration: 80 * time.Millisecond},
	}))

	nav := c.Load(mustParse(t, "https://example.com/a"), false)
	assert.Equal(t, navigator.OutcomeUpdated, f.wait(nav))

	assert.False(t, nav.ProgressRan())
	assert.Equal(t, []string{"start", "end", "callback"}, f.phases.names())
	assert.GreaterOrEqual(t, f.phases.at("end").Sub(f.phases.at("start")), 80*time.Millisecond)
}

func TestLoad_ProgressRunsWhileFetchPending(t *testing.T) {
	f := newFixture(t)
	gate := make(chan struct{})
	f.fetcher.onBlockedPage("/a", page("Page A", "<p>Page A</p>"), gate)
	c := f.controller(f.loggedOptions(navigator.Options{
		OnStart: navigator.Phase{Duration: 10 * time.Millisecond},
	}))

	nav := c.Load(mustParse(t, "https://example.com/a"), false)

	require.Eventually(t, func() bool {
		return f.tab.Cursor() == "wait"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, navigator.StateProgressing, nav.State())
	close(gate)

	assert.Equal(t, navigator.OutcomeUpdated, f.wait(nav))
	assert.True(t, nav.ProgressRan())
	assert.True(t, nav.ProgressEnded())
	assert.Equal(t, []string{"start", "progress", "end", "callback"}, f.phases.names())
	assert.GreaterOrEqual(t, f.phases.at("end").Sub(f.phases.at("progress")), 10*time.Millisecond)
}

func TestLoad_DefaultHooks(t *testing.T) {
	f := newFixture(t)
	gate := make(chan struct{})
	f.fetcher.onBlockedPage("/a", page("Page A", "<p>Page A</p>"), gate)
	c := f.controller(navigator.Options{})

	nav := c.Load(mustParse(t, "https://example.com/a"), false)
	require.Eventually(t, func() bool { return f.tab.Cursor() == "wait" }, time.Second, 5*time.Millisecond)
	close(gate)

	assert.Equal(t, navigator.OutcomeUpdated, f.wait(nav))
	assert.Equal(t, 1, f.tab.ScrollCount())
	assert.Equal(t, "auto", f.tab.Cursor())
	assert.Equal(t, "<p>Page A</p>", c.Container().HTML())
}

func TestLoad_FetchErrorFallsBackToFullNavigation(t *testing.T) {
	f := newFixture(t)
	f.fetcher.onFailure("/a")
	c := f.controller(f.loggedOptions(navigator.Options{}))

	nav := c.Load(mustParse(t, "https://example.com/a"), false)
	assert.Equal(t, navigator.OutcomeFullNavigation, f.wait(nav))

	navs := f.tab.Navigations()
	require.Len(t, navs, 1)
	assert.Equal(t, "/a", navs[0].Path)
	assert.NotContains(t, f.phases.names(), "end")
	assert.Equal(t, 1, f.tab.HistoryLength())
	assert.Contains(t, f.sink.States(), "errored")
	assert.Contains(t, f.sink.Errors(), metadata.CauseNetworkFailure)

	record, ok := c.Cache().Get(urlutil.CacheKey(mustParse(t, "https://example.com/a")))
	require.True(t, ok)
	assert.Equal(t, pagecache.StatusError, record.Status())
}

func TestLoad_MissingContainerFallsBack(t *testing.T) {
	f := newFixture(t)
	f.fetcher.onPage("/a", `<html><head><title>A</title></head><body><div id="other">x</div></body></html>`)
	c := f.controller(f.loggedOptions(navigator.Options{}))

	nav := c.Load(mustParse(t, "https://example.com/a"), false)
	assert.Equal(t, navigator.OutcomeFullNavigation, f.wait(nav))
	require.Len(t, f.tab.Navigations(), 1)
	assert.NotContains(t, f.phases.names(), "end")
	assert.Empty(t, f.sink.Diagnostics())
}

func TestLoad_EmptyContainerCountsAsMissing(t *testing.T) {
	f := newFixture(t)
	f.fetcher.onPage("/a", page("A", "   "))
	c := f.controller(navigator.Options{})

	nav := c.Load(mustParse(t, "https://example.com/a"), false)
	assert.Equal(t, navigator.OutcomeFullNavigation, f.wait(nav))
}

func TestLoad_MissingContainerInDevelopmentWarns(t *testing.T) {
	f := newFixture(t)
	f.fetcher.onPage("/a", `<div id="other">x</div>`)
	c := f.controller(navigator.Options{Development: true})

	nav := c.Load(mustParse(t, "https://example.com/a"), false)
	assert.Equal(t, navigator.OutcomeContentMissing, f.wait(nav))
	assert.Empty(t, f.tab.Navigations())

	diags := f.sink.Diagnostics()
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0], "#main")
	assert.Contains(t, diags[0], "https://example.com/a")
}

func TestLoad_FragmentResponse(t *testing.T) {
	f := newFixture(t)
	f.fetcher.onPage("/a", `<title>Fragment</title><div id="main"><p>partial</p></div>`)
	c := f.controller(navigator.Options{})

	nav := c.Load(mustParse(t, "https://example.com/a"), false)
	assert.Equal(t, navigator.OutcomeUpdated, f.wait(nav))
	assert.Equal(t, "<p>partial</p>", c.Container().HTML())
	assert.Equal(t, "Fragment", f.tab.Title())
}

func TestLoad_HistoryPopDoesNotPush(t *testing.T) {
	f := newFixture(t)
	f.fetcher.onPage("/a", page("Page A", "<p>Page A</p>"))
	c := f.controller(navigator.Options{})

	nav := c.Load(mustParse(t, "https://example.com/a"), true)
	assert.Equal(t, navigator.OutcomeUpdated, f.wait(nav))
	assert.True(t, nav.IsHistoryPop())
	assert.Equal(t, 1, f.tab.HistoryLength())
	assert.Equal(t, "/a", pathOf(c.CurrentURL()))
}

func TestLoad_StaleNavigationIsSuperseded(t *testing.T) {
	f := newFixture(t)
	gate := make(chan struct{})
	f.fetcher.onBlockedPage("/slow", page("Slow", "<p>slow</p>"), gate)
	f.fetcher.onPage("/fast", page("Fast", "<p>fast</p>"))
	c := f.controller(navigator.Options{PageCacheSize: 10})

	slow := c.Load(mustParse(t, "https://example.com/slow"), false)
	fast := c.Load(mustParse(t, "https://example.com/fast"), false)
	assert.Greater(t, fast.Sequence(), slow.Sequence())

	assert.Equal(t, navigator.OutcomeUpdated, f.wait(fast))
	close(gate)
	assert.Equal(t, navigator.OutcomeSuperseded, f.wait(slow))

	assert.Equal(t, "<p>fast</p>", c.Container().HTML())
	assert.Equal(t, "Fast", f.tab.Title())
	assert.Equal(t, 2, f.tab.HistoryLength())
	assert.Equal(t, "/fast", pathOf(c.CurrentURL()))

	// the stale fetch still lands in the cache
	record, ok := c.Cache().Get(urlutil.CacheKey(mustParse(t, "https://example.com/slow")))
	require.True(t, ok)
	assert.Eventually(t, func() bool { return record.Status() == pagecache.StatusLoaded }, time.Second, 5*time.Millisecond)
}

func TestLoad_CanceledOnClose(t *testing.T) {
	f := newFixture(t)
	gate := make(chan struct{})
	defer close(gate)
	f.fetcher.onBlockedPage("/a", page("A", "<p>A</p>"), gate)
	c := f.controller(navigator.Options{OnStart: navigator.Phase{Duration: time.Hour}})

	nav := c.Load(mustParse(t, "https://example.com/a"), false)
	c.Close()

	assert.Equal(t, navigator.OutcomeCanceled, f.wait(nav))
}

func TestLoad_WaitHonorsContext(t *testing.T) {
	f := newFixture(t)
	gate := make(chan struct{})
	defer close(gate)
	f.fetcher.onBlockedPage("/a", page("A", "<p>A</p>"), gate)
	c := f.controller(navigator.Options{})

	nav := c.Load(mustParse(t, "https://example.com/a"), false)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	outcome, err := nav.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, navigator.OutcomeNone, outcome)
}

func TestLoad_CallbackReceivesContentAfterEnd(t *testing.T) {
	f := newFixture(t)
	f.fetcher.onPage("/a", page("Page A", "<p>Page A</p>"))

	var got string
	var endAt, callbackAt time.Time
	c := f.controller(navigator.Options{
		OnEnd: navigator.Phase{
			Duration: 30 * time.Millisecond,
			Render: func(_ url.URL, container *navigator.Container, content extractor.Fragment) {
				endAt = time.Now()
				container.SetContent(content)
			},
		},
		Callback: func(_ url.URL, _ *navigator.Container, content extractor.Fragment) {
			callbackAt = time.Now()
			got = content.HTML()
		},
	})

	nav := c.Load(mustParse(t, "https://example.com/a"), false)
	assert.Equal(t, navigator.OutcomeUpdated, f.wait(nav))
	assert.Equal(t, "<p>Page A</p>", got)
	assert.GreaterOrEqual(t, callbackAt.Sub(endAt), 30*time.Millisecond)
}

func TestLoad_SharedFetchForSameURL(t *testing.T) {
	f := newFixture(t)
	gate := make(chan struct{})
	f.fetcher.onBlockedPage("/a", page("A", "<p>A</p>"), gate)
	c := f.controller(navigator.Options{})

	first := c.Load(mustParse(t, "https://example.com/a"), false)
	second := c.Load(mustParse(t, "https://example.com/a#part"), false)
	close(gate)

	assert.Equal(t, navigator.OutcomeSuperseded, f.wait(first))
	assert.Equal(t, navigator.OutcomeUpdated, f.wait(second))
	f.fetcher.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestFetch_NoOpWhenRecordExists(t *testing.T) {
	f := newFixture(t)
	f.fetcher.onPage("/a", page("A", "<p>A</p>"))
	c := f.controller(navigator.Options{})

	first := c.Fetch(mustParse(t, "https://example.com/a"))
	second := c.Fetch(mustParse(t, "https://EXAMPLE.com:443/a#x"))
	assert.Same(t, first, second)

	<-first.Done()
	f.fetcher.AssertNumberOfCalls(t, "Fetch", 1)
	assert.NotEmpty(t, first.Fingerprint())
}

func TestFetch_AlterRequestURL(t *testing.T) {
	f := newFixture(t)
	f.fetcher.onPage("/partials/a", `<div id="main">partial</div>`)
	c := f.controller(navigator.Options{
		AlterRequestURL: func(target url.URL) (url.URL, bool) {
			if target.Path == "/keep" {
				return url.URL{}, false
			}
			target.Path = "/partials" + target.Path
			return target, true
		},
	})

	record := c.Fetch(mustParse(t, "https://example.com/a"))
	<-record.Done()
	assert.Equal(t, pagecache.StatusLoaded, record.Status())
	assert.Equal(t, "https://example.com/a", record.Key())

	f.fetcher.onPage("/keep", page("Keep", "k"))
	kept := c.Fetch(mustParse(t, "https://example.com/keep"))
	<-kept.Done()
	assert.Equal(t, "Keep", kept.Title())
	f.fetcher.AssertCalled(t, "Fetch", mock.Anything, pathIs("/keep"))
}

func TestFetch_CacheWipeScenario(t *testing.T) {
	f := newFixture(t)
	for _, p := range []string{"/a", "/b", "/c"} {
		f.fetcher.onPage(p, page(p, p))
	}
	c := f.controller(navigator.Options{PageCacheSize: 2})
	assert.Equal(t, 1, c.Cache().Len())

	f.prefetch(c, "/a")
	f.prefetch(c, "/b")
	assert.Equal(t, 3, c.Cache().Len())

	c.Fetch(mustParse(t, "https://example.com/c"))
	assert.Equal(t, 1, c.Cache().Len())
}

func TestHandleClick(t *testing.T) {
	f := newFixture(t)
	f.fetcher.onPage("/a", page("Page A", "<p>Page A</p>"))
	c := f.controller(navigator.Options{})

	t.Run("modified click passes through", func(t *testing.T) {
		event := &browser.ClickEvent{Target: f.element("to-a"), CtrlKey: true}
		_, handled := c.HandleClick(event)
		assert.False(t, handled)
		assert.False(t, event.DefaultPrevented())

		event = &browser.ClickEvent{Target: f.element("to-a"), MetaKey: true}
		_, handled = c.HandleClick(event)
		assert.False(t, handled)
	})

	t.Run("out of scope anchors pass through", func(t *testing.T) {
		for _, id := range []string{"to-ext", "to-black", "to-target", "to-hash", "para", "outside-link"} {
			event := &browser.ClickEvent{Target: f.element(id)}
			_, handled := c.HandleClick(event)
			assert.False(t, handled, id)
			assert.False(t, event.DefaultPrevented(), id)
		}
	})

	t.Run("click inside an anchor is intercepted", func(t *testing.T) {
		event := &browser.ClickEvent{Target: f.element("a-label")}
		nav, handled := c.HandleClick(event)
		require.True(t, handled)
		assert.True(t, event.DefaultPrevented())
		assert.False(t, nav.IsHistoryPop())
		assert.Equal(t, navigator.OutcomeUpdated, f.wait(nav))
	})
}

func TestHandleClick_CustomAnchorsSelector(t *testing.T) {
	f := newFixture(t)
	f.fetcher.onPage("/b", page("B", "<p>B</p>"))
	c := f.controller(navigator.Options{Anchors: "#to-b"})

	_, handled := c.HandleClick(&browser.ClickEvent{Target: f.element("to-a")})
	assert.False(t, handled)

	nav, handled := c.HandleClick(&browser.ClickEvent{Target: f.element("to-b")})
	require.True(t, handled)
	assert.Equal(t, "/b", nav.Target().Path)
	f.wait(nav)
}

func TestHandleHover(t *testing.T) {
	t.Run("prefetch disabled", func(t *testing.T) {
		f := newFixture(t)
		c := f.controller(navigator.Options{})

		_, handled := c.HandleHover(browser.HoverEvent{Target: f.element("to-a")})
		assert.False(t, handled)
		assert.Equal(t, 1, c.Cache().Len())
	})

	t.Run("prefetch enabled", func(t *testing.T) {
		f := newFixture(t)
		f.fetcher.onPage("/a", page("Page A", "<p>Page A</p>"))
		c := f.controller(navigator.Options{Prefetch: true})

		record, handled := c.HandleHover(browser.HoverEvent{Target: f.element("a-label"), Touch: true})
		require.True(t, handled)
		<-record.Done()
		assert.Equal(t, "Page A", record.Title())

		_, handled = c.HandleHover(browser.HoverEvent{Target: f.element("to-ext")})
		assert.False(t, handled)
	})
}

func pathOf(u url.URL) string {
	return u.Path
}
