package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Markdown converts section content to sanitised HTML.
type Markdown struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func NewMarkdown() *Markdown {
	return &Markdown{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

// Render converts text. The output is safe to embed without escaping.
func (m *Markdown) Render(text string) (template.HTML, error) {
	if text == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("markdown: %w", err)
	}
	return template.HTML(m.policy.SanitizeBytes(buf.Bytes())), nil
}

// GenericRenderer draws any section as a titled block of markdown content. It
// serves known types that have no dedicated template.
type GenericRenderer struct {
	md *Markdown
}

func NewGenericRenderer(md *Markdown) *GenericRenderer {
	if md == nil {
		md = NewMarkdown()
	}
	return &GenericRenderer{md: md}
}

var genericTmpl = template.Must(template.New("generic").Parse(
	`<section class="pb-section pb-{{.Type}}" data-section-id="{{.ID}}"{{if .Preview}} data-preview="true"{{end}}>` +
		`<div class="pb-content">{{.Body}}</div></section>`))

func (g *GenericRenderer) Render(v SectionView, isPreview bool) (template.HTML, error) {
	body, err := g.md.Render(v.Content())
	if err != nil {
		return "", err
	}
	return execute(genericTmpl, viewData{
		ID:      v.ID(),
		Type:    string(v.Type()),
		Body:    body,
		Preview: isPreview,
	})
}

// Placeholder stands in for sections of a type this build does not know.
// The public page renders nothing for them.
type Placeholder struct{}

var placeholderTmpl = template.Must(template.New("placeholder").Parse(
	`<div class="pb-section pb-unknown" data-section-id="{{.ID}}">Unsupported section type "{{.Type}}"</div>`))

func (Placeholder) Render(v SectionView, isPreview bool) (template.HTML, error) {
	if !isPreview {
		return "", nil
	}
	return execute(placeholderTmpl, viewData{ID: v.ID(), Type: string(v.Type())})
}

func execute(t *template.Template, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("template %s: %w", t.Name(), err)
	}
	return template.HTML(buf.String()), nil
}
