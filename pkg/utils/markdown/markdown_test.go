package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRender_Empty(t *testing.T) {
	require.Equal(t, "", string(NewMarkdown("").Render()))
}

func TestRender_Sanitizes(t *testing.T) {
	md := NewMarkdown("hello <script>alert(1)</script> **world**")

	out := string(md.Render())
	require.NotContains(t, strings.ToLower(out), "<script")
	require.Contains(t, out, "<strong>world</strong>")

	// cached
	require.Equal(t, out, string(md.Render()))
}

func TestRender_Table(t *testing.T) {
	src := "| topic | items |\n|---|---|\n| sourdough | 9 |\n"
	out := string(NewMarkdown(src).Render())
	require.Contains(t, out, "<table>")
	require.Contains(t, out, "<td>sourdough</td>")
}

func TestPlainText(t *testing.T) {
	text := string(NewMarkdown("hello **world**").PlainText())
	require.Contains(t, text, "hello")
	require.Contains(t, text, "world")
	require.NotContains(t, text, "<")
}

func TestDocument_EscapesTitle(t *testing.T) {
	doc := NewMarkdown("# Topics").Document("acme <graph>")
	require.Contains(t, doc, "<title>acme &lt;graph&gt;</title>")
	require.Contains(t, doc, "Topics</h1>")
}
