package browser

import (
	"net/url"
	"sync"
)

type historyEntry struct {
	location url.URL
	state    *HistoryState
	title    string
}

/*
Tab is a headless Window.

It keeps a real session history: PushState drops forward entries, Back and
Forward move through the stack and return the pop-state event a browser
would fire. Full navigations are logged rather than performed; the owner
decides whether to load the page.
*/
type Tab struct {
	mu          sync.Mutex
	document    *Document
	title       string
	entries     []historyEntry
	index       int
	navigations []url.URL
	scrolls     int
	cursor      string
}

func NewTab(location url.URL, document *Document) *Tab {
	title := ""
	if document != nil {
		title = document.Snapshot().Title()
	}
	return &Tab{
		document: document,
		title:    title,
		entries:  []historyEntry{{location: location, title: title}},
		cursor:   "auto",
	}
}

func (t *Tab) Document() *Document {
	return t.document
}

func (t *Tab) Location() url.URL {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entries[t.index].location
}

func (t *Tab) Title() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.title
}

func (t *Tab) SetTitle(title string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.title = title
}

func (t *Tab) HistoryState() *HistoryState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s := t.entries[t.index].state; s != nil {
		copied := *s
		return &copied
	}
	return nil
}

func (t *Tab) PushState(state HistoryState, title string, location url.URL) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries[:t.index+1], historyEntry{
		location: location,
		state:    &state,
		title:    title,
	})
	t.index++
}

func (t *Tab) ReplaceState(state HistoryState, title string, location url.URL) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[t.index] = historyEntry{
		location: location,
		state:    &state,
		title:    title,
	}
}

func (t *Tab) Navigate(location url.URL) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.navigations = append(t.navigations, location)
}

func (t *Tab) ScrollToTop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scrolls++
}

func (t *Tab) SetCursor(cursor string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cursor = cursor
}

func (t *Tab) Cursor() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cursor
}

func (t *Tab) ScrollCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.scrolls
}

// Navigations returns every full navigation requested so far.
func (t *Tab) Navigations() []url.URL {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]url.URL(nil), t.navigations...)
}

func (t *Tab) HistoryLength() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Back moves one entry back. ok is false at the start of history.
func (t *Tab) Back() (event PopStateEvent, ok bool) {
	return t.traverse(-1)
}

// Forward moves one entry forward. ok is false at the end of history.
func (t *Tab) Forward() (event PopStateEvent, ok bool) {
	return t.traverse(1)
}

func (t *Tab) traverse(delta int) (PopStateEvent, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := t.index + delta
	if next < 0 || next >= len(t.entries) {
		return PopStateEvent{}, false
	}
	t.index = next
	entry := t.entries[next]

	event := PopStateEvent{URL: entry.location}
	if entry.state != nil {
		copied := *entry.state
		event.State = &copied
	}
	return event, true
}
