package mdconvert

// ConversionResult is the Markdown rendition of a container's content along
// with the links it carries, in document order.
type ConversionResult struct {
	markdownContent []byte
	linkRefs        []LinkRef
}

func NewConversionResult(
	markdownContent []byte,
	linkRefs []LinkRef,
) ConversionResult {
	return ConversionResult{
		markdownContent: markdownContent,
		linkRefs:        linkRefs,
	}
}

func (c *ConversionResult) GetMarkdownContent() []byte {
	return c.markdownContent
}

func (c *ConversionResult) GetLinkRefs() []LinkRef {
	return c.linkRefs
}

type LinkKind string

const (
	KindNavigation LinkKind = "navigation"
	KindImage      LinkKind = "image"
	KindAnchor     LinkKind = "anchor"
)

type LinkRef struct {
	raw  string
	text string
	kind LinkKind
}

func NewLinkRef(
	raw string,
	text string,
	kind LinkKind,
) LinkRef {
	return LinkRef{
		raw:  raw,
		text: text,
		kind: kind,
	}
}

func (l *LinkRef) GetRaw() string {
	return l.raw
}

// GetText is the anchor's trimmed text, or the image's alt text.
func (l *LinkRef) GetText() string {
	return l.text
}

func (l *LinkRef) GetKind() LinkKind {
	return l.kind
}
