package render

import (
	"fmt"
	"html/template"
	"strings"

	"pagebuilder/internal/domain"
)

type viewData struct {
	ID      string
	Type    string
	Content string
	Body    template.HTML
	S       any
	Preview bool
}

// templateRenderer executes one html/template against the section's variant.
type templateRenderer struct {
	tmpl *template.Template
	md   *Markdown
}

func (r *templateRenderer) Render(v SectionView, isPreview bool) (template.HTML, error) {
	settings := v.Settings()
	if settings.IsZero() {
		return "", fmt.Errorf("%s section %s has no settings", v.Type(), v.ID())
	}
	body, err := r.md.Render(v.Content())
	if err != nil {
		return "", err
	}
	return execute(r.tmpl, viewData{
		ID:      v.ID(),
		Type:    string(v.Type()),
		Content: v.Content(),
		Body:    body,
		S:       settings.Variant(),
		Preview: isPreview,
	})
}

const sectionOpen = `<section class="pb-section pb-{{.Type}}" data-section-id="{{.ID}}"{{if .Preview}} data-preview="true"{{end}}`

var sectionTemplates = map[domain.SectionType]string{
	domain.SectionHero: sectionOpen + ` data-align="{{.S.Alignment}}" data-height="{{.S.Height}}"` +
		` style="color:{{.S.TextColor}};background-color:{{.S.BackgroundColor}}` +
		`{{if .S.BackgroundImage}};background-image:url('{{.S.BackgroundImage}}'){{end}}">` +
		`{{if .S.Overlay}}<div class="pb-overlay" style="opacity:{{.S.OverlayOpacity}}"></div>{{end}}` +
		`<h1>{{.Content}}</h1>` +
		`{{if .S.Subheadline}}<p class="pb-subheadline">{{.S.Subheadline}}</p>{{end}}` +
		`{{if .S.ButtonURL}}<a class="pb-button" href="{{.S.ButtonURL}}">{{.S.ButtonText}}</a>{{end}}` +
		`</section>`,

	domain.SectionText: sectionOpen + ` data-align="{{.S.Alignment}}" data-width="{{.S.MaxWidth}}" data-columns="{{.S.Columns}}">` +
		`<div class="pb-content">{{.Body}}</div></section>`,

	domain.SectionImage: `{{if or .S.URL .Preview}}` + sectionOpen + ` data-width="{{.S.Width}}"><figure>` +
		`{{if .S.URL}}{{if .S.Link}}<a href="{{.S.Link}}">{{end}}<img src="{{.S.URL}}" alt="{{.S.Alt}}">{{if .S.Link}}</a>{{end}}` +
		`{{else}}<div class="pb-empty">Add an image</div>{{end}}` +
		`{{if .S.Caption}}<figcaption>{{.S.Caption}}</figcaption>{{end}}</figure></section>{{end}}`,

	domain.SectionGallery: sectionOpen + ` data-layout="{{.S.Layout}}" data-columns="{{.S.Columns}}" data-gap="{{.S.Gap}}">` +
		`{{range .S.Images}}<figure><img src="{{.URL}}" alt="{{.Alt}}">{{if .Caption}}<figcaption>{{.Caption}}</figcaption>{{end}}</figure>` +
		`{{else}}{{if .Preview}}<div class="pb-empty">Add images to the gallery</div>{{end}}{{end}}</section>`,

	domain.SectionShows: sectionOpen + ` data-layout="{{.S.Layout}}"><h2>{{.Content}}</h2><ul>` +
		`{{range .S.Shows}}<li><time datetime="{{.Date}}">{{.Date}}</time> <strong>{{.Name}}</strong>` +
		`{{if .Venue}} at {{.Venue}}{{end}}{{if .TicketURL}} <a href="{{.TicketURL}}">Tickets</a>{{end}}</li>{{end}}</ul></section>`,

	domain.SectionTestimonials: sectionOpen + ` data-layout="{{.S.Layout}}"><h2>{{.Content}}</h2>` +
		`{{range .S.Items}}<blockquote><p>{{.Quote}}</p><footer>{{.Author}}{{if .Role}}, {{.Role}}{{end}}` +
		`{{if .Rating}} <span class="pb-rating">{{stars .Rating}}</span>{{end}}</footer></blockquote>{{end}}</section>`,

	domain.SectionCTA: sectionOpen + ` data-style="{{.S.Style}}" style="color:{{.S.TextColor}};background-color:{{.S.BackgroundColor}}">` +
		`<h2>{{.Content}}</h2>{{if .S.Description}}<p>{{.S.Description}}</p>{{end}}` +
		`<a class="pb-button" href="{{.S.ButtonURL}}">{{.S.ButtonText}}</a>` +
		`{{if .S.SecondaryButtonURL}} <a class="pb-button pb-secondary" href="{{.S.SecondaryButtonURL}}">{{.S.SecondaryButtonText}}</a>{{end}}` +
		`</section>`,

	domain.SectionDivider: sectionOpen + ` data-spacing="{{.S.Spacing}}">` +
		`{{if ne .S.Style "space"}}<hr style="border-top:{{.S.Thickness}}px {{.S.Style}} {{.S.Color}}">{{end}}</section>`,

	domain.SectionVideo: `{{if or .S.URL .Preview}}` + sectionOpen + ` data-provider="{{.S.Provider}}" data-ratio="{{.S.AspectRatio}}">` +
		`{{if .S.URL}}{{if eq .S.Provider "file"}}<video src="{{.S.URL}}" controls{{if .S.Autoplay}} autoplay{{end}}{{if .S.Loop}} loop{{end}}{{if .S.Muted}} muted{{end}}></video>` +
		`{{else}}<iframe src="{{.S.URL}}" allowfullscreen></iframe>{{end}}` +
		`{{else}}<div class="pb-empty">Add a video link</div>{{end}}` +
		`{{if .S.Caption}}<p class="pb-caption">{{.S.Caption}}</p>{{end}}</section>{{end}}`,

	domain.SectionGrid: sectionOpen + ` data-columns="{{.S.Columns}}" data-gap="{{.S.Gap}}">` +
		`{{range .S.Items}}<article>{{if .Image}}<img src="{{.Image}}" alt="{{.Title}}">{{end}}<h3>{{.Title}}</h3>` +
		`{{if .Body}}<div>{{md .Body}}</div>{{end}}{{if .Link}}<a href="{{.Link}}">More</a>{{end}}</article>{{end}}</section>`,

	domain.SectionStory: sectionOpen + ` data-layout="{{.S.Layout}}"><h2>{{.Content}}</h2>` +
		`{{range .S.Chapters}}<article><h3>{{.Heading}}</h3>{{if .Image}}<img src="{{.Image}}" alt="{{.Heading}}">{{end}}` +
		`<div>{{md .Body}}</div></article>{{end}}</section>`,

	domain.SectionHoursLocation: sectionOpen + `><h2>{{.Content}}</h2><address>{{.S.Address}}{{if .S.City}}<br>{{.S.City}}{{end}}` +
		`{{if .S.Phone}}<br><a href="tel:{{.S.Phone}}">{{.S.Phone}}</a>{{end}}` +
		`{{if .S.Email}}<br><a href="mailto:{{.S.Email}}">{{.S.Email}}</a>{{end}}</address>` +
		`{{if .S.Hours}}<table class="pb-hours">{{range .S.Hours}}<tr><th>{{.Day}}</th>` +
		`<td>{{if .Closed}}Closed{{else}}{{.Open}} - {{.Close}}{{end}}</td></tr>{{end}}</table>{{end}}` +
		`{{if .S.MapURL}}<a href="{{.S.MapURL}}">Map</a>{{end}}</section>`,
}

func builtinRenderers(md *Markdown) map[domain.SectionType]Renderer {
	funcs := template.FuncMap{
		"stars": func(n int) string {
			if n < 0 {
				n = 0
			}
			if n > 5 {
				n = 5
			}
			return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
		},
		"md": func(s string) (template.HTML, error) {
			return md.Render(s)
		},
	}
	out := make(map[domain.SectionType]Renderer, len(sectionTemplates))
	for t, src := range sectionTemplates {
		out[t] = &templateRenderer{
			tmpl: template.Must(template.New(string(t)).Funcs(funcs).Parse(src)),
			md:   md,
		}
	}
	return out
}
