package mdconvert

import (
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	"github.com/rohmanhakim/smoothstate/internal/extractor"
	"github.com/rohmanhakim/smoothstate/internal/metadata"
	"github.com/rohmanhakim/smoothstate/pkg/failure"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

/*
Conversion Rules
- Container content is converted as displayed, nothing is inferred
- Headings, code blocks, lists and tables map to GitHub-Flavored Markdown
- Links and images are kept as written (no resolution)
- DOM order preserved
*/

// ConvertRule turns swapped-in container content into Markdown for terminal
// output.
type ConvertRule interface {
	Convert(content extractor.Fragment) (ConversionResult, failure.ClassifiedError)
}

var _ ConvertRule = (*StrictConversionRule)(nil)

type StrictConversionRule struct {
	metadataSink metadata.MetadataSink
}

func NewRule(metadataSink metadata.MetadataSink) *StrictConversionRule {
	return &StrictConversionRule{
		metadataSink: metadataSink,
	}
}

func (s *StrictConversionRule) Convert(
	content extractor.Fragment,
) (ConversionResult, failure.ClassifiedError) {
	result, err := convert(content)
	if err != nil {
		s.metadataSink.RecordError(
			time.Now(),
			"mdconvert",
			"StrictConversionRule.Convert",
			mapConversionErrorToMetadataCause(err),
			err.Error(),
			[]metadata.Attribute{},
		)
		return ConversionResult{}, err
	}
	return result, nil
}

// convert wraps the fragment's nodes in a detached <div> and renders it with
// html-to-markdown.
func convert(content extractor.Fragment) (ConversionResult, *ConversionError) {
	if content.IsEmpty() {
		return ConversionResult{}, &ConversionError{
			Message:   "nothing to convert",
			Retryable: false,
			Cause:     ErrCauseEmptyContent,
		}
	}

	wrapper := &html.Node{Type: html.ElementNode, DataAtom: atom.Div, Data: "div"}
	for _, n := range content.Nodes() {
		wrapper.AppendChild(n)
	}

	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)

	markdown, err := conv.ConvertNode(wrapper)
	if err != nil {
		return ConversionResult{}, &ConversionError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseConversionFailure,
		}
	}

	return NewConversionResult(markdown, extractLinkRefs(wrapper)), nil
}

// extractLinkRefs lists <a href> and <img src> in document order.
func extractLinkRefs(root *html.Node) []LinkRef {
	var linkRefs []LinkRef

	goquery.NewDocumentFromNode(root).Find("a[href], img[src]").Each(func(i int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "a":
			href, _ := s.Attr("href")
			kind := KindNavigation
			if strings.HasPrefix(href, "#") {
				kind = KindAnchor
			}
			linkRefs = append(linkRefs, NewLinkRef(href, strings.TrimSpace(s.Text()), kind))
		case "img":
			src, _ := s.Attr("src")
			alt, _ := s.Attr("alt")
			linkRefs = append(linkRefs, NewLinkRef(src, alt, KindImage))
		}
	})

	return linkRefs
}
