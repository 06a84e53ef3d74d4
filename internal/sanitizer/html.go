/*
Responsibilities
- Drop markup that carries no readable content (scripts, styles)
- Remove empty nodes
- Remove repeated sibling nodes

Runs on a container's content before Markdown conversion. The fragment it is
given is never modified.
*/
package sanitizer

import (
	"time"

	"github.com/rohmanhakim/smoothstate/internal/extractor"
	"github.com/rohmanhakim/smoothstate/internal/metadata"
	"github.com/rohmanhakim/smoothstate/pkg/failure"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type Sanitizer interface {
	Sanitize(content extractor.Fragment) (extractor.Fragment, failure.ClassifiedError)
}

var _ Sanitizer = (*HtmlSanitizer)(nil)

type HtmlSanitizer struct {
	metadataSink metadata.MetadataSink
	param        SanitizeParam
}

func NewHTMLSanitizer(metadataSink metadata.MetadataSink, param SanitizeParam) *HtmlSanitizer {
	return &HtmlSanitizer{
		metadataSink: metadataSink,
		param:        param,
	}
}

// Sanitize returns a cleaned copy of content. The result is empty when
// nothing readable is left.
func (h *HtmlSanitizer) Sanitize(
	content extractor.Fragment,
) (extractor.Fragment, failure.ClassifiedError) {
	sanitized, err := sanitize(content, h.param)
	if err != nil {
		h.metadataSink.RecordError(
			time.Now(),
			"sanitizer",
			"HtmlSanitizer.Sanitize",
			mapSanitizationErrorToMetadataCause(err),
			err.Error(),
			nil,
		)
		return extractor.Fragment{}, err
	}
	return sanitized, nil
}

func sanitize(content extractor.Fragment, param SanitizeParam) (extractor.Fragment, *SanitizationError) {
	root := &html.Node{Type: html.ElementNode, DataAtom: atom.Div, Data: "div"}
	for _, n := range content.Nodes() {
		root.AppendChild(n)
	}

	removeTags(root, param.DroppedTags)
	for _, child := range childrenOf(root) {
		removeEmptyNodesBottomUp(child)
	}
	if param.RemoveDuplicates {
		removeDuplicateNodes(root)
	}

	nodes := childrenOf(root)
	for _, n := range nodes {
		root.RemoveChild(n)
	}
	fragment, err := extractor.NewFragment(nodes)
	if err != nil {
		return extractor.Fragment{}, &SanitizationError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseBrokenDOM,
		}
	}
	return fragment, nil
}

func childrenOf(node *html.Node) []*html.Node {
	var children []*html.Node
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		children = append(children, child)
	}
	return children
}
