package session_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rohmanhakim/smoothstate/internal/fetcher"
	"github.com/rohmanhakim/smoothstate/internal/metadata"
	"github.com/rohmanhakim/smoothstate/internal/navigator"
	"github.com/rohmanhakim/smoothstate/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	server := site(t)
	s := open(t, configFor(t, server, "main"), &metadata.NoopSink{})

	assert.Equal(t, "Home", s.Title())
	assert.Equal(t, "/", s.Location().Path)

	content, err := s.Content()
	require.NoError(t, err)
	assert.Contains(t, content, `href="/a"`)
	assert.Equal(t, 1, s.Cache().Len())
}

func TestOpen_ContainerMissing(t *testing.T) {
	server := site(t)
	cfg, err := configFor(t, server, "nope").Build()
	require.NoError(t, err)

	_, err = session.Open(context.Background(), cfg, &metadata.NoopSink{})

	var sessionErr *session.SessionError
	require.True(t, errors.As(err, &sessionErr))
	assert.Equal(t, session.ErrCauseContainerNotFound, sessionErr.Cause)
}

func TestFollow_UpdatesInPlace(t *testing.T) {
	server := site(t)
	s := open(t, configFor(t, server, "main"), &metadata.NoopSink{})

	step, err := s.Follow(stepContext(t), "/a")
	require.NoError(t, err)

	assert.Equal(t, session.ActionFollow, step.Action)
	assert.Equal(t, navigator.OutcomeUpdated, step.Outcome)
	assert.False(t, step.Reloaded)
	assert.Equal(t, "/a", step.URL.Path)
	assert.Equal(t, "Page A", step.Title)

	markdown, err := s.ContentMarkdown()
	require.NoError(t, err)
	assert.Contains(t, markdown, "# Page A")
	assert.Contains(t, markdown, "[Home](/)")
}

func TestContentMarkdownLeavesOutScripts(t *testing.T) {
	server := site(t)
	s := open(t, configFor(t, server, "main"), &metadata.NoopSink{})

	_, err := s.Follow(stepContext(t), "/b")
	require.NoError(t, err)

	markdown, err := s.ContentMarkdown()
	require.NoError(t, err)
	assert.Equal(t, "B body", strings.TrimSpace(markdown))

	content, err := s.Content()
	require.NoError(t, err)
	assert.Contains(t, content, "B body")
}

func TestBackAndForward(t *testing.T) {
	server := site(t)
	s := open(t, configFor(t, server, "main"), &metadata.NoopSink{})
	ctx := stepContext(t)

	_, err := s.Follow(ctx, "/a")
	require.NoError(t, err)

	back, err := s.Back(ctx)
	require.NoError(t, err)
	assert.Equal(t, navigator.OutcomeUpdated, back.Outcome)
	assert.Equal(t, "/", back.URL.Path)
	assert.Equal(t, "Home", back.Title)

	content, err := s.Content()
	require.NoError(t, err)
	assert.Contains(t, content, `href="/b"`)

	forward, err := s.Forward(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/a", forward.URL.Path)
	assert.Equal(t, "Page A", forward.Title)
}

func TestBack_WithoutHistory(t *testing.T) {
	server := site(t)
	s := open(t, configFor(t, server, "main"), &metadata.NoopSink{})

	_, err := s.Back(stepContext(t))

	var sessionErr *session.SessionError
	require.True(t, errors.As(err, &sessionErr))
	assert.Equal(t, session.ErrCauseNoHistory, sessionErr.Cause)
}

func TestFollow_BlacklistedAnchorReloads(t *testing.T) {
	server := site(t)
	s := open(t, configFor(t, server, "main"), &metadata.NoopSink{})

	step, err := s.Follow(stepContext(t), "/plain")
	require.NoError(t, err)

	assert.True(t, step.Reloaded)
	assert.Equal(t, navigator.OutcomeNone, step.Outcome)
	assert.Equal(t, "Plain", step.Title)
	assert.Equal(t, "/plain", s.Location().Path)
}

func TestFollow_FallbackToFullNavigation(t *testing.T) {
	server := site(t)
	s := open(t, configFor(t, server, "main"), &metadata.NoopSink{})

	// /other has no #main, so the controller gives up and the reload then
	// finds no container either
	_, err := s.Follow(stepContext(t), "/other")

	var sessionErr *session.SessionError
	require.True(t, errors.As(err, &sessionErr))
	assert.Equal(t, session.ErrCauseContainerNotFound, sessionErr.Cause)

	// the session keeps the page it had
	assert.Equal(t, "Home", s.Title())
}

func TestFollow_FetchErrorReloadFails(t *testing.T) {
	server := site(t)
	s := open(t, configFor(t, server, "main"), &metadata.NoopSink{})

	_, err := s.Follow(stepContext(t), "/broken")

	var sessionErr *session.SessionError
	require.True(t, errors.As(err, &sessionErr))
	assert.Equal(t, session.ErrCauseOpenFailed, sessionErr.Cause)

	var fetchErr *fetcher.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, 404, fetchErr.StatusCode)
}

func TestFollow_UnknownAnchor(t *testing.T) {
	server := site(t)
	s := open(t, configFor(t, server, "main"), &metadata.NoopSink{})

	_, err := s.Follow(stepContext(t), "/nowhere")

	var sessionErr *session.SessionError
	require.True(t, errors.As(err, &sessionErr))
	assert.Equal(t, session.ErrCauseAnchorNotFound, sessionErr.Cause)
}

func TestPrefetchAll(t *testing.T) {
	server := site(t)
	s := open(t, configFor(t, server, "main").WithConcurrency(2), &metadata.NoopSink{})

	results, err := s.PrefetchAll(stepContext(t))
	require.NoError(t, err)

	// external, blacklisted and duplicate anchors are skipped
	require.Len(t, results, 4)
	paths := []string{}
	for _, r := range results {
		paths = append(paths, r.URL.Path)
	}
	assert.Equal(t, []string{"/a", "/b", "/other", "/broken"}, paths)

	assert.Equal(t, "loaded", results[0].Status)
	assert.Equal(t, "Page A", results[0].Title)
	assert.Len(t, results[0].Fingerprint, 16)
	assert.Equal(t, "error", results[3].Status)
	assert.Error(t, results[3].Err)

	assert.Equal(t, 5, s.Cache().Len())

	// a prefetched page is served from the cache
	step, err := s.Follow(stepContext(t), "/b")
	require.NoError(t, err)
	assert.Equal(t, "Page B", step.Title)
}

func TestClose_RecordsSessionStats(t *testing.T) {
	server := site(t)
	sink := &statsSink{}
	cfg, err := configFor(t, server, "main").Build()
	require.NoError(t, err)
	s, err := session.Open(context.Background(), cfg, sink)
	require.NoError(t, err)
	ctx := stepContext(t)

	_, err = s.Follow(ctx, "/a")
	require.NoError(t, err)
	_, err = s.Back(ctx)
	require.NoError(t, err)
	// /plain is only linked from the home page
	_, err = s.Follow(ctx, "/plain")
	require.NoError(t, err)

	s.Close()
	s.Close()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.True(t, sink.recorded)
	assert.Equal(t, 4, sink.steps)
	assert.Equal(t, 1, sink.fullNavs)

	_, err = s.Content()
	var sessionErr *session.SessionError
	require.True(t, errors.As(err, &sessionErr))
	assert.Equal(t, session.ErrCauseClosed, sessionErr.Cause)
}
