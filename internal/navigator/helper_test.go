package navigator_test

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/rohmanhakim/smoothstate/internal/browser"
	"github.com/rohmanhakim/smoothstate/internal/extractor"
	"github.com/rohmanhakim/smoothstate/internal/navigator"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const livePage = `<!doctype html>
<html>
<head><title>Home</title></head>
<body>
<div id="main" class="scene">
  <a id="to-a" href="/a"><span id="a-label">A</span></a>
  <a id="to-b" href="b">B</a>
  <a id="to-ext" href="https://other.example/x">Ext</a>
  <a id="to-black" class="no-smoothstate" href="/c">C</a>
  <a id="to-target" target="_blank" href="/d">D</a>
  <a id="to-hash" href="#section">Hash</a>
  <a id="no-href">Nothing</a>
  <p id="para">text</p>
</div>
<div id="outside"><a id="outside-link" href="/a">A</a></div>
</body>
</html>`

func page(title string, content string) string {
	return fmt.Sprintf(`<!doctype html><html><head><title>%s</title></head><body><div id="main">%s</div></body></html>`, title, content)
}

type fixture struct {
	t        *testing.T
	tab      *browser.Tab
	document *browser.Document
	fetcher  *pageFetcherMock
	sink     *recordingSink
	registry *navigator.Registry
	phases   *phaseLog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	document, err := browser.ParseLiveDocument([]byte(livePage))
	require.NoError(t, err)

	tab := browser.NewTab(mustParse(t, "https://example.com/"), document)
	f := &fixture{
		t:        t,
		tab:      tab,
		document: document,
		fetcher:  new(pageFetcherMock),
		sink:     &recordingSink{},
		phases:   &phaseLog{},
	}
	f.registry = navigator.NewRegistry(tab, document, f.fetcher, f.sink)
	t.Cleanup(f.registry.Close)
	return f
}

func (f *fixture) element(id string) *html.Node {
	f.t.Helper()
	n := f.document.ElementByID(id)
	require.NotNil(f.t, n, "element #%s", id)
	return n
}

func (f *fixture) controller(options navigator.Options) *navigator.Controller {
	f.t.Helper()
	c, err := f.registry.Initialize(context.Background(), f.element("main"), options)
	require.NoError(f.t, err)
	return c
}

// loggedOptions wraps the default hooks so every phase is logged.
func (f *fixture) loggedOptions(options navigator.Options) navigator.Options {
	options.OnStart.Render = func(target url.URL, c *navigator.Container, _ extractor.Fragment) {
		f.phases.add("start")
		f.tab.ScrollToTop()
	}
	options.OnProgress.Render = func(target url.URL, c *navigator.Container, _ extractor.Fragment) {
		f.phases.add("progress")
		f.tab.SetCursor("wait")
	}
	options.OnEnd.Render = func(target url.URL, c *navigator.Container, content extractor.Fragment) {
		f.phases.add("end")
		c.SetContent(content)
	}
	options.Callback = func(target url.URL, c *navigator.Container, content extractor.Fragment) {
		f.phases.add("callback")
	}
	return options
}

func (f *fixture) wait(nav *navigator.Navigation) navigator.Outcome {
	f.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	outcome, err := nav.Wait(ctx)
	require.NoError(f.t, err)
	return outcome
}

// prefetch fetches path through c and waits for the record to settle.
func (f *fixture) prefetch(c *navigator.Controller, path string) {
	f.t.Helper()
	record := c.Fetch(mustParse(f.t, "https://example.com"+path))
	select {
	case <-record.Done():
	case <-time.After(2 * time.Second):
		f.t.Fatalf("prefetch of %s did not settle", path)
	}
}

type phaseEntry struct {
	name string
	at   time.Time
}

type phaseLog struct {
	mu      sync.Mutex
	entries []phaseEntry
}

func (l *phaseLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, phaseEntry{name: name, at: time.Now()})
}

func (l *phaseLog) names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	names := make([]string, 0, len(l.entries))
	for _, e := range l.entries {
		names = append(names, e.name)
	}
	return names
}

func (l *phaseLog) at(name string) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.name == name {
			return e.at
		}
	}
	return time.Time{}
}

func mustParse(t *testing.T, raw string) url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return *u
}
