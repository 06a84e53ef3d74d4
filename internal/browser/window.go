package browser

import "net/url"

// HistoryState is the state object stored with a history entry. ID names the
// container whose controller owns the entry.
type HistoryState struct {
	ID string
}

// Window is the slice of the host window a navigation controller drives.
type Window interface {
	Location() url.URL
	Title() string
	SetTitle(title string)

	// HistoryState returns the state of the current entry, nil when none.
	HistoryState() *HistoryState
	PushState(state HistoryState, title string, location url.URL)
	ReplaceState(state HistoryState, title string, location url.URL)

	// Navigate performs a full, non-intercepted page load.
	Navigate(location url.URL)

	ScrollToTop()
	SetCursor(cursor string)
}
