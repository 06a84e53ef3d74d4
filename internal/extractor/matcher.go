package extractor

import (
	"golang.org/x/net/html"
)

// idMatcher is a goquery.Matcher comparing the id attribute verbatim, so ids
// that are not valid CSS identifiers ("1st", "a.b") still match.
type idMatcher string

func (m idMatcher) Match(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == "id" {
			return a.Val == string(m)
		}
	}
	return false
}

func (m idMatcher) MatchAll(n *html.Node) []*html.Node {
	var matches []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if m.Match(n) {
			matches = append(matches, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return matches
}

func (m idMatcher) Filter(nodes []*html.Node) []*html.Node {
	var result []*html.Node
	for _, n := range nodes {
		if m.Match(n) {
			result = append(result, n)
		}
	}
	return result
}
