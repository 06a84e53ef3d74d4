package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rohmanhakim/smoothstate/internal/metadata"
	"github.com/rohmanhakim/smoothstate/pkg/failure"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

/*
Responsibilities
- Parse fetched markup into a DOM tree
- Extract the page title
- Find the inner content of the element carrying the container's id

Parsing Rules
- Markup carrying a doctype or an <html>, <head> or <body> tag anywhere goes
  through the HTML5 document algorithm, so those wrappers and their
  attributes survive
- Anything else is parsed as a fragment in <body> context and hung off a
  synthetic document root
Both shapes answer id lookups and title extraction the same way.
*/

type DomExtractor struct {
	metadataSink metadata.MetadataSink
}

func NewDomExtractor(
	metadataSink metadata.MetadataSink,
) DomExtractor {
	return DomExtractor{
		metadataSink: metadataSink,
	}
}

// Parse parses raw markup fetched from sourceUrl, recording failures.
func (d *DomExtractor) Parse(
	sourceUrl url.URL,
	raw []byte,
) (*Document, failure.ClassifiedError) {
	doc, err := ParseDocument(raw)
	if err != nil {
		var extractionError *ExtractionError
		if !errors.As(err, &extractionError) {
			extractionError = &ExtractionError{
				Message:   err.Error(),
				Retryable: false,
				Cause:     ErrCauseNotHTML,
			}
		}
		d.metadataSink.RecordError(
			time.Now(),
			"extractor",
			"DomExtractor.Parse",
			mapExtractionErrorToMetadataCause(extractionError),
			extractionError.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, sourceUrl.String()),
			},
		)
		return nil, extractionError
	}
	return doc, nil
}

var documentTag = regexp.MustCompile(`(?i)<(!doctype|html|head|body)[\s/>]`)

// ParseDocument parses raw markup into a Document.
func ParseDocument(raw []byte) (*Document, error) {
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))

	if documentTag.Match(raw) {
		root, err := html.Parse(bytes.NewReader(raw))
		if err != nil {
			return nil, &ExtractionError{
				Message:   fmt.Sprintf("failed to parse HTML: %v", err),
				Retryable: false,
				Cause:     ErrCauseNotHTML,
			}
		}
		return newDocument(root, false), nil
	}

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(bytes.NewReader(raw), body)
	if err != nil {
		return nil, &ExtractionError{
			Message:   fmt.Sprintf("failed to parse HTML fragment: %v", err),
			Retryable: false,
			Cause:     ErrCauseNotHTML,
		}
	}

	root := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return newDocument(root, true), nil
}

// NewDocumentFromNode wraps an already parsed tree, such as the live page.
func NewDocumentFromNode(root *html.Node) *Document {
	return newDocument(root, root.Type != html.DocumentNode)
}

func newDocument(root *html.Node, partial bool) *Document {
	return &Document{
		root:      root,
		title:     goquery.NewDocumentFromNode(root).Find("title").First().Text(),
		isPartial: partial,
	}
}

// ContentByID returns the trimmed inner content of the element whose id is
// id. The search covers every element below the document root, top-level
// fragment elements included. An element whose inner markup is blank counts
// as not found.
func ContentByID(doc *Document, id string) (Fragment, bool) {
	if doc == nil || doc.root == nil || id == "" {
		return Fragment{}, false
	}

	match := FindByID(doc.root, id)
	if match == nil {
		return Fragment{}, false
	}

	inner, err := RenderChildren(match)
	if err != nil {
		return Fragment{}, false
	}
	inner = strings.TrimSpace(inner)
	if inner == "" {
		return Fragment{}, false
	}

	nodes, err := html.ParseFragment(strings.NewReader(inner), contextFor(match))
	if err != nil {
		return Fragment{}, false
	}
	return Fragment{markup: inner, nodes: nodes}, true
}

// NewFragment detaches nodes into a Fragment. Nodes still attached to a
// parent are copied.
func NewFragment(nodes []*html.Node) (Fragment, error) {
	detached := make([]*html.Node, 0, len(nodes))
	for _, n := range nodes {
		if n.Parent != nil || n.PrevSibling != nil || n.NextSibling != nil {
			n = CloneNode(n)
		}
		detached = append(detached, n)
	}
	markup, err := RenderNodes(detached)
	if err != nil {
		return Fragment{}, err
	}
	return Fragment{markup: strings.TrimSpace(markup), nodes: detached}, nil
}

// FindByID returns the first element below root with the given id.
func FindByID(root *html.Node, id string) *html.Node {
	sel := goquery.NewDocumentFromNode(root).FindMatcher(idMatcher(id)).First()
	if sel.Length() == 0 {
		return nil
	}
	return sel.Get(0)
}

// contextFor returns a detached copy of n usable as a fragment parsing context.
func contextFor(n *html.Node) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: n.Data, DataAtom: n.DataAtom, Namespace: n.Namespace}
}

// CloneNode returns a deep copy of n, detached from any tree.
func CloneNode(n *html.Node) *html.Node {
	clone := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		clone.AppendChild(CloneNode(c))
	}
	return clone
}

// RenderChildren renders the inner markup of n.
func RenderChildren(n *html.Node) (string, error) {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// RenderNodes renders a list of sibling nodes.
func RenderNodes(nodes []*html.Node) (string, error) {
	var buf bytes.Buffer
	for _, n := range nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}
