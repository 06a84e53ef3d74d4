package navigator

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rohmanhakim/smoothstate/internal/browser"
	"github.com/rohmanhakim/smoothstate/internal/extractor"
	"golang.org/x/net/html"
)

// Container is the element a controller swaps content into. Every method
// takes the document lock, so hooks may call them freely.
type Container struct {
	id       string
	element  *html.Node
	document *browser.Document
}

func newContainer(id string, element *html.Node, document *browser.Document) *Container {
	return &Container{
		id:       id,
		element:  element,
		document: document,
	}
}

func (c *Container) ID() string {
	return c.id
}

// Element is the bound node. Read it only through Document().Read.
func (c *Container) Element() *html.Node {
	return c.element
}

func (c *Container) Document() *browser.Document {
	return c.document
}

// SetContent replaces the container's children with copies of content.
func (c *Container) SetContent(content extractor.Fragment) {
	nodes := content.Nodes()
	c.document.Write(func(*html.Node) {
		for child := c.element.FirstChild; child != nil; {
			next := child.NextSibling
			c.element.RemoveChild(child)
			child = next
		}
		for _, n := range nodes {
			c.element.AppendChild(n)
		}
	})
}

// HTML renders the container's current inner markup.
func (c *Container) HTML() string {
	var out string
	c.document.Read(func(*html.Node) {
		out, _ = extractor.RenderChildren(c.element)
	})
	return strings.TrimSpace(out)
}

func (c *Container) AddClass(names ...string) {
	c.document.Write(func(*html.Node) {
		c.selection().AddClass(names...)
	})
}

// RemoveClass removes the given classes, or every class when none is given.
func (c *Container) RemoveClass(names ...string) {
	c.document.Write(func(*html.Node) {
		c.selection().RemoveClass(names...)
	})
}

func (c *Container) HasClass(name string) bool {
	var has bool
	c.document.Read(func(*html.Node) {
		has = c.selection().HasClass(name)
	})
	return has
}

// Classes returns the class list in attribute order.
func (c *Container) Classes() []string {
	var classes []string
	c.document.Read(func(*html.Node) {
		classes = strings.Fields(c.selection().AttrOr("class", ""))
	})
	return classes
}

// Contains reports whether n is the container or one of its descendants.
func (c *Container) Contains(n *html.Node) bool {
	var contains bool
	c.document.Read(func(*html.Node) {
		contains = browser.Contains(c.element, n)
	})
	return contains
}

func (c *Container) selection() *goquery.Selection {
	return goquery.NewDocumentFromNode(c.element).Selection
}
