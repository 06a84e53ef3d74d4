package browser

import (
	"strings"
	"sync"

	"github.com/rohmanhakim/smoothstate/internal/extractor"
	"golang.org/x/net/html"
)

// Document is the live page. Every read or mutation of the tree goes through
// Read or Write so concurrent navigations never observe a half-swapped
// container.
type Document struct {
	mu   sync.RWMutex
	root *html.Node
}

func NewDocument(root *html.Node) *Document {
	return &Document{root: root}
}

// ParseLiveDocument parses page markup into a live document.
func ParseLiveDocument(raw []byte) (*Document, error) {
	doc, err := extractor.ParseDocument(raw)
	if err != nil {
		return nil, err
	}
	return NewDocument(doc.Root()), nil
}

func (d *Document) Read(fn func(root *html.Node)) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fn(d.root)
}

func (d *Document) Write(fn func(root *html.Node)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d.root)
}

// ElementByID returns the first element with the given id.
func (d *Document) ElementByID(id string) *html.Node {
	var found *html.Node
	d.Read(func(root *html.Node) {
		found = extractor.FindByID(root, id)
	})
	return found
}

// Snapshot returns a detached copy of the whole page, as a cacheable document.
func (d *Document) Snapshot() *extractor.Document {
	var clone *html.Node
	d.Read(func(root *html.Node) {
		clone = extractor.CloneNode(root)
	})
	return extractor.NewDocumentFromNode(clone)
}

// OuterHTML renders the whole page.
func (d *Document) OuterHTML() string {
	var out string
	d.Read(func(root *html.Node) {
		var sb strings.Builder
		if err := html.Render(&sb, root); err == nil {
			out = sb.String()
		}
	})
	return out
}

// Contains reports whether n is ancestor or a descendant of it.
func Contains(ancestor *html.Node, n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == ancestor {
			return true
		}
	}
	return false
}

// Attr returns the value of the attribute key on n.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
