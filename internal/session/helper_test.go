package session_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/rohmanhakim/smoothstate/internal/config"
	"github.com/rohmanhakim/smoothstate/internal/metadata"
	"github.com/rohmanhakim/smoothstate/internal/session"
	"github.com/stretchr/testify/require"
)

func page(title string, content string) string {
	return fmt.Sprintf(`<!doctype html><html><head><title>%s</title></head><body><div id="main">%s</div></body></html>`, title, content)
}

// site serves a small set of pages sharing the #main container, plus
// /other which lacks it and /broken which always 404s.
func site(t *testing.T) *httptest.Server {
	t.Helper()
	pages := map[string]string{
		"/": page("Home", `
			<a href="/a">A</a>
			<a href="/b">B</a>
			<a href="/a">A again</a>
			<a href="https://elsewhere.invalid/x">Ext</a>
			<a href="/plain" class="no-smoothstate">Plain</a>
			<a href="/other">Other</a>
			<a href="/broken">Broken</a>`),
		"/a":     page("Page A", `<h1>Page A</h1><p><a href="/">Home</a></p>`),
		"/b":     page("Page B", `<p>B body</p><script>track()</script><div> </div>`),
		"/plain": page("Plain", `<p>plain</p>`),
		"/other": `<!doctype html><html><head><title>Other</title></head><body><div id="other">x</div></body></html>`,
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func configFor(t *testing.T, server *httptest.Server, containerID string) *config.Config {
	t.Helper()
	start, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	return config.WithDefault(*start, containerID).
		WithPageCacheSize(10).
		WithTimeout(2 * time.Second)
}

func open(t *testing.T, builder *config.Config, sink metadata.MetadataSink) *session.Session {
	t.Helper()
	cfg, err := builder.Build()
	require.NoError(t, err)
	s, err := session.Open(context.Background(), cfg, sink)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func stepContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// statsSink captures the final session statistics
type statsSink struct {
	metadata.NoopSink
	mu       sync.Mutex
	recorded bool
	steps    int
	fullNavs int
	prefetch int
}

func (s *statsSink) RecordSessionStats(steps int, fullNavigations int, prefetched int, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorded = true
	s.steps = steps
	s.fullNavs = fullNavigations
	s.prefetch = prefetched
}
