package extractor

import (
	"strings"

	"golang.org/x/net/html"
)

// Document is a parsed page as stored in the page cache.
// Root is always a DocumentNode. Pages that arrived as full documents keep
// their <html>/<head>/<body> wrappers; fragments hang directly off Root.
type Document struct {
	root      *html.Node
	title     string
	isPartial bool
}

func (d *Document) Root() *html.Node {
	return d.root
}

// Title is the text of the first <title> element, or "" when there is none.
func (d *Document) Title() string {
	return d.title
}

// IsFragment reports whether the markup lacked a document wrapper.
func (d *Document) IsFragment() bool {
	return d.isPartial
}

// Fragment is the inner content of an element, detached from the document it
// was taken from.
type Fragment struct {
	markup string
	nodes  []*html.Node
}

// HTML returns the trimmed inner markup.
func (f Fragment) HTML() string {
	return f.markup
}

// Nodes returns deep copies of the fragment's top-level nodes, so callers may
// attach them anywhere.
func (f Fragment) Nodes() []*html.Node {
	clones := make([]*html.Node, 0, len(f.nodes))
	for _, n := range f.nodes {
		clones = append(clones, CloneNode(n))
	}
	return clones
}

func (f Fragment) IsEmpty() bool {
	return strings.TrimSpace(f.markup) == ""
}
