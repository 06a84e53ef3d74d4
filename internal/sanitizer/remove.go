package sanitizer

import (
	"fmt"
	"hash/fnv"
	"strings"

	"golang.org/x/net/html"
)

// removeTags drops every element named in tags together with its subtree.
// Comments go as well.
func removeTags(node *html.Node, tags []string) {
	dropped := make(map[string]bool, len(tags))
	for _, tag := range tags {
		dropped[tag] = true
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for _, child := range childrenOf(n) {
			if child.Type == html.CommentNode || (child.Type == html.ElementNode && dropped[child.Data]) {
				n.RemoveChild(child)
				continue
			}
			walk(child)
		}
	}
	walk(node)
}

// removeEmptyNodesBottomUp performs a post-order traversal to remove empty nodes.
// This ensures nested empty containers are fully cleaned (innermost first).
func removeEmptyNodesBottomUp(node *html.Node) {
	if node == nil {
		return
	}

	for _, child := range childrenOf(node) {
		removeEmptyNodesBottomUp(child)
	}

	if node.Type == html.ElementNode && isEmptyNode(node) && shouldRemoveEmptyElement(node.Data) {
		if node.Parent != nil {
			node.Parent.RemoveChild(node)
		}
	}
}

// isEmptyNode checks if a node is empty (has no children or only whitespace text nodes).
func isEmptyNode(node *html.Node) bool {
	if node == nil || node.Type != html.ElementNode {
		return false
	}

	for child := node.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case html.ElementNode:
			return false
		case html.TextNode:
			if strings.TrimSpace(child.Data) != "" {
				return false
			}
		}
	}
	return true
}

// shouldRemoveEmptyElement returns true if an empty element of this type should be removed.
// Some empty elements like <img>, <br>, <hr> are valid even when empty.
func shouldRemoveEmptyElement(tag string) bool {
	if voidElements[tag] {
		return false
	}
	// Table cells keep the grid aligned, embeds render without children
	switch tag {
	case "td", "th", "iframe", "video", "audio", "canvas", "object", "svg", "textarea":
		return false
	}
	return true
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// removeDuplicateNodes removes an element whose signature equals that of its
// previous element sibling. Whitespace between the two does not count.
func removeDuplicateNodes(root *html.Node) {
	if root == nil {
		return
	}

	var previous *html.Node
	for _, child := range childrenOf(root) {
		switch child.Type {
		case html.TextNode:
			if strings.TrimSpace(child.Data) != "" {
				previous = nil
			}
			continue
		case html.ElementNode:
		default:
			continue
		}

		if previous != nil && isMeaningfulElement(child.Data) && nodeSignature(previous) == nodeSignature(child) {
			root.RemoveChild(child)
			continue
		}
		removeDuplicateNodes(child)
		previous = child
	}
}

// isMeaningfulElement returns true if the element type should be considered
// for deduplication.
func isMeaningfulElement(tag string) bool {
	// Headings are structural anchors - never deduplicate
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return false
	}
	if voidElements[tag] {
		return false
	}

	switch tag {
	case "main", "article", "header", "footer", "nav", "aside", "td", "th", "tr", "li":
		return false
	default:
		return true
	}
}

// nodeSignature identifies a node by tag, attributes and content.
func nodeSignature(node *html.Node) string {
	if node == nil {
		return ""
	}

	var sig strings.Builder
	sig.WriteString(fmt.Sprintf("type:%d|tag:%s|", node.Type, node.Data))
	for i, attr := range node.Attr {
		if i > 0 {
			sig.WriteString(",")
		}
		sig.WriteString(fmt.Sprintf("%s=%s", attr.Key, attr.Val))
	}
	sig.WriteString("|")
	sig.WriteString(fmt.Sprintf("content:%d", nodeContentHash(node)))
	return sig.String()
}

// nodeContentHash recursively hashes the structure and text content of node.
func nodeContentHash(node *html.Node) uint64 {
	h := fnv.New64a()

	if node.Type == html.ElementNode {
		h.Write([]byte(node.Data))
		for _, attr := range node.Attr {
			h.Write([]byte(attr.Key))
			h.Write([]byte(attr.Val))
		}
	} else if node.Type == html.TextNode {
		h.Write([]byte(strings.TrimSpace(node.Data)))
	}

	for child := node.FirstChild; child != nil; child = child.NextSibling {
		h.Write([]byte(fmt.Sprintf("%d", nodeContentHash(child))))
	}
	return h.Sum64()
}
