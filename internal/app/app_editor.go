package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"

	"go.uber.org/zap"

	"pagebuilder/internal/builder"
	"pagebuilder/internal/media"
	"pagebuilder/internal/recovery"
	"pagebuilder/internal/render"
	"pagebuilder/internal/validation"
)

// ============================================================
// Section editor
// ============================================================

// OpenEditor starts an edit session on sectionID and selects it. A session
// already open on another section is cancelled.
func (a *App) OpenEditor(sectionID string) error {
	store, err := a.requireStore()
	if err != nil {
		return err
	}
	a.cancelSession()

	sess, err := builder.OpenSession(store, sectionID,
		builder.WithDebounce(a.cfg.DebounceWindow()),
		builder.WithScheduler(a.scheduler),
		builder.WithSessionLogger(a.logger.Named("session")),
	)
	if err != nil {
		return err
	}
	draft := sess.Draft()
	boundary := recovery.NewBoundary(render.ComponentName(draft.Type)+"Editor", sectionID,
		recovery.WithLogger(a.logger.Named("editor")),
		recovery.WithCallbacks(recovery.Callbacks{
			OnReset: func() error { return a.OpenEditor(sectionID) },
		}),
	)

	a.mu.Lock()
	a.session = sess
	a.editor = boundary
	a.mu.Unlock()

	store.SelectSection(sectionID)
	a.logger.Debug("editor opened", zap.String("section_id", sectionID))
	return nil
}

// Editor returns the active session, or nil.
func (a *App) Editor() *builder.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

func (a *App) UpdateConfig(path string, value any) error {
	sess, err := a.requireSession()
	if err != nil {
		return err
	}
	return sess.UpdateConfig(path, value)
}

func (a *App) UpdateSectionFields(fields map[string]any) error {
	sess, err := a.requireSession()
	if err != nil {
		return err
	}
	return sess.UpdateSectionFields(fields)
}

func (a *App) UpdateContent(text string) error {
	sess, err := a.requireSession()
	if err != nil {
		return err
	}
	return sess.UpdateContent(text)
}

// EditorErrors returns the draft's current validation errors.
func (a *App) EditorErrors() (validation.Errors, error) {
	sess, err := a.requireSession()
	if err != nil {
		return nil, err
	}
	return sess.Errors(), nil
}

// SaveEditor commits the draft. Validation errors are returned as
// validation.Errors and the session stays open.
func (a *App) SaveEditor() error {
	sess, err := a.requireSession()
	if err != nil {
		return err
	}
	if err := sess.Save(); err != nil {
		return err
	}
	a.dropSession(sess)
	return nil
}

// CancelEditor discards the draft. Commits already made by real-time
// preview stay in the Store.
func (a *App) CancelEditor() error {
	sess, err := a.requireSession()
	if err != nil {
		return err
	}
	sess.Cancel()
	a.dropSession(sess)
	return nil
}

// AttachMedia resolves assetID and writes its URL at path in the draft.
func (a *App) AttachMedia(path, assetID string) error {
	if a.media == nil {
		return ErrNotStarted
	}
	sess, err := a.requireSession()
	if err != nil {
		return err
	}
	u, err := a.media.Resolve(assetID)
	if err != nil {
		return err
	}
	return sess.UpdateConfig(path, u)
}

// ImportMedia stores a data URL in the library.
func (a *App) ImportMedia(name, dataURL string) (media.Asset, error) {
	if a.media == nil {
		return media.Asset{}, ErrNotStarted
	}
	return a.media.Import(name, dataURL)
}

// EditorPanel renders the active draft inside the editor's boundary. A
// failure renders the error card instead.
func (a *App) EditorPanel() (template.HTML, error) {
	a.mu.Lock()
	sess, boundary := a.session, a.editor
	a.mu.Unlock()
	if sess == nil || boundary == nil {
		return "", ErrNoEditor
	}

	var out template.HTML
	if perr := boundary.Capture(func() error {
		html, err := renderEditorPanel(sess)
		out = html
		return err
	}); perr != nil {
		if boundary.Dismissed() {
			return "", nil
		}
		return render.ErrorCard(perr, boundary.Actions()), nil
	}
	return out, nil
}

// InvokeEditorRecovery runs a recovery action on a failed editor panel.
func (a *App) InvokeEditorRecovery(action recovery.ActionType) error {
	a.mu.Lock()
	boundary := a.editor
	a.mu.Unlock()
	if boundary == nil {
		return ErrNoEditor
	}
	return boundary.Invoke(action)
}

// ── helpers ────────────────────────────────────────────────

func (a *App) requireSession() (*builder.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return nil, ErrNoEditor
	}
	return a.session, nil
}

func (a *App) cancelSession() {
	a.mu.Lock()
	sess := a.session
	a.session, a.editor = nil, nil
	a.mu.Unlock()
	if sess != nil {
		sess.Cancel()
	}
}

func (a *App) dropSession(sess *builder.Session) {
	a.mu.Lock()
	if a.session == sess {
		a.session, a.editor = nil, nil
	}
	a.mu.Unlock()
}

var editorPanelTmpl = template.Must(template.New("editor").Parse(
	`<form class="pb-editor" data-section-id="{{.ID}}" data-type="{{.Type}}">` +
		`<h3>{{.Component}}</h3>` +
		`<textarea name="content">{{.Content}}</textarea>` +
		`<pre class="pb-editor-settings">{{.Settings}}</pre>` +
		`{{if .Errors}}<ul class="pb-editor-errors">{{range .Errors}}` +
		`<li data-field="{{.Field}}">{{.Message}}</li>{{end}}</ul>{{end}}` +
		`{{if .Pending}}<p class="pb-editor-pending">Saving preview…</p>{{end}}` +
		`</form>`))

func renderEditorPanel(sess *builder.Session) (template.HTML, error) {
	draft := sess.Draft()
	settings, err := json.MarshalIndent(draft.Settings, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode draft settings: %w", err)
	}
	var buf bytes.Buffer
	if err := editorPanelTmpl.Execute(&buf, map[string]any{
		"ID":        draft.ID,
		"Type":      draft.Type,
		"Component": render.ComponentName(draft.Type),
		"Content":   draft.Content,
		"Settings":  string(settings),
		"Errors":    sess.Errors(),
		"Pending":   sess.PendingCommit(),
	}); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
