package mdconvert_test

import (
	"testing"

	"github.com/rohmanhakim/smoothstate/internal/extractor"
	"github.com/rohmanhakim/smoothstate/internal/mdconvert"
	"github.com/rohmanhakim/smoothstate/internal/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contentOf(t *testing.T, markup string) extractor.Fragment {
	t.Helper()
	doc, err := extractor.ParseDocument([]byte(`<div id="main">` + markup + `</div>`))
	require.NoError(t, err)
	content, ok := extractor.ContentByID(doc, "main")
	require.True(t, ok)
	return content
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name     string
		markup   string
		contains []string
	}{
		{
			name:     "heading and paragraph",
			markup:   `<h1>Page A</h1><p>Hello <strong>there</strong></p>`,
			contains: []string{"# Page A", "Hello **there**"},
		},
		{
			name:     "links kept as written",
			markup:   `<p><a href="/b">Go to B</a></p>`,
			contains: []string{"[Go to B](/b)"},
		},
		{
			name:     "code block verbatim",
			markup:   "<pre><code>x := 1\nif x {  }</code></pre>",
			contains: []string{"x := 1\nif x {  }"},
		},
		{
			name:     "table",
			markup:   `<table><thead><tr><th>k</th><th>v</th></tr></thead><tbody><tr><td>a</td><td>1</td></tr></tbody></table>`,
			contains: []string{"| k", "| a"},
		},
	}

	rule := mdconvert.NewRule(&metadata.NoopSink{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := rule.Convert(contentOf(t, tt.markup))
			require.Nil(t, err)
			markdown := string(result.GetMarkdownContent())
			for _, want := range tt.contains {
				assert.Contains(t, markdown, want)
			}
		})
	}
}

func TestConvert_LinkRefsInDocumentOrder(t *testing.T) {
	rule := mdconvert.NewRule(&metadata.NoopSink{})

	result, err := rule.Convert(contentOf(t, `
		<a href="/a"> First </a>
		<img src="/logo.png" alt="Logo">
		<a href="#top">Top</a>`))
	require.Nil(t, err)

	refs := result.GetLinkRefs()
	require.Len(t, refs, 3)
	assert.Equal(t, "/a", refs[0].GetRaw())
	assert.Equal(t, "First", refs[0].GetText())
	assert.Equal(t, mdconvert.KindNavigation, refs[0].GetKind())
	assert.Equal(t, mdconvert.KindImage, refs[1].GetKind())
	assert.Equal(t, "Logo", refs[1].GetText())
	assert.Equal(t, mdconvert.KindAnchor, refs[2].GetKind())
}

func TestConvert_EmptyContent(t *testing.T) {
	rule := mdconvert.NewRule(&metadata.NoopSink{})

	_, err := rule.Convert(extractor.Fragment{})
	require.NotNil(t, err)

	var convErr *mdconvert.ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, mdconvert.ErrCauseEmptyContent, convErr.Cause)
}
