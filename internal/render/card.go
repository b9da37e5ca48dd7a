package render

import (
	"html/template"

	"pagebuilder/internal/recovery"
)

var errorCardTmpl = template.Must(template.New("error-card").Parse(
	`<div class="pb-error" role="alert" data-kind="{{.Err.Kind}}"{{if .Err.SectionID}} data-section-id="{{.Err.SectionID}}"{{end}}>` +
		`<p class="pb-error-title">{{if .Err.Component}}{{.Err.Component}}{{else}}This block{{end}} could not be displayed` +
		`{{if .Err.SectionID}} <span class="pb-error-section">(section {{.Err.SectionID}})</span>{{end}}</p>` +
		`<p class="pb-error-message">{{.Err.Message}}</p>` +
		`<div class="pb-error-actions">{{range .Actions}}` +
		`<button type="button" data-action="{{.Type}}"{{if $.Err.SectionID}} data-section-id="{{$.Err.SectionID}}"{{end}}>{{.Label}}</button>` +
		`{{end}}</div></div>`))

// ErrorCard renders the fallback panel shown in place of a failed unit.
func ErrorCard(err *recovery.Error, actions []recovery.Action) template.HTML {
	if err == nil {
		return ""
	}
	out, execErr := execute(errorCardTmpl, struct {
		Err     *recovery.Error
		Actions []recovery.Action
	}{err, actions})
	if execErr != nil {
		return template.HTML(`<div class="pb-error" role="alert">` + template.HTMLEscapeString(err.Error()) + `</div>`)
	}
	return out
}
