// Package markdown renders markdown digests to sanitized HTML.
package markdown

import (
	"bytes"
	"html"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

// Markdown wraps markdown source and caches its rendered forms.
type Markdown struct {
	Source string

	renderedHTML *template.HTML
	renderedText *template.HTML
}

var (
	bfRenderer = blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: blackfriday.Safelink | blackfriday.NofollowLinks | blackfriday.HrefTargetBlank | blackfriday.Smartypants | blackfriday.SmartypantsFractions,
	})
	bfExtensions = blackfriday.NoIntraEmphasis | blackfriday.Tables | blackfriday.FencedCode | blackfriday.Autolink | blackfriday.Strikethrough | blackfriday.SpaceHeadings | blackfriday.HeadingIDs | blackfriday.AutoHeadingIDs
	policy       = bluemonday.UGCPolicy()
)

func NewMarkdown(source string) *Markdown {
	return &Markdown{Source: source}
}

func (m *Markdown) run() []byte {
	return blackfriday.Run([]byte(m.Source),
		blackfriday.WithRenderer(bfRenderer),
		blackfriday.WithExtensions(bfExtensions),
	)
}

// Render converts the source into sanitized HTML.
func (m *Markdown) Render() template.HTML {
	if m.renderedHTML != nil {
		return *m.renderedHTML
	}
	if m.Source == "" {
		empty := template.HTML("")
		m.renderedHTML = &empty
		return empty
	}
	safe := policy.SanitizeBytes(m.run())
	h := template.HTML(bytes.TrimSpace(safe))
	m.renderedHTML = &h
	return h
}

// PlainText renders the source and strips every tag.
func (m *Markdown) PlainText() template.HTML {
	if m.renderedText != nil {
		return *m.renderedText
	}
	safe := bytes.TrimSpace(bluemonday.StrictPolicy().SanitizeBytes(m.run()))
	h := template.HTML(safe)
	m.renderedText = &h
	return h
}

// Document wraps the rendered body in a minimal standalone HTML page.
func (m *Markdown) Document(title string) string {
	var b bytes.Buffer
	b.WriteString("<!doctype html>\n<html><head><meta charset=\"utf-8\"><title>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</title></head><body>\n")
	b.WriteString(string(m.Render()))
	b.WriteString("\n</body></html>\n")
	return b.String()
}
