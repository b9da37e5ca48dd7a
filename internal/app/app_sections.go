package app

import (
	"context"
	"fmt"
	"html/template"

	"pagebuilder/internal/builder"
	"pagebuilder/internal/domain"
	"pagebuilder/internal/recovery"
	"pagebuilder/internal/render"
)

// ============================================================
// Sections (Store pass-throughs)
// ============================================================

func (a *App) Sections() ([]domain.Section, error) {
	store, err := a.requireStore()
	if err != nil {
		return nil, err
	}
	return store.Sections(), nil
}

func (a *App) AddSection(t domain.SectionType) (string, error) {
	store, err := a.requireStore()
	if err != nil {
		return "", err
	}
	return store.AddSection(t)
}

// MoveSection reports whether the section moved; boundary moves are no-ops.
func (a *App) MoveSection(id string, d builder.Direction) (bool, error) {
	store, err := a.requireStore()
	if err != nil {
		return false, err
	}
	return store.MoveSection(id, d), nil
}

// DeleteSection removes the section, cancelling its edit session if open.
func (a *App) DeleteSection(id string) (bool, error) {
	store, err := a.requireStore()
	if err != nil {
		return false, err
	}
	a.mu.Lock()
	editing := a.session != nil && a.session.SectionID() == id
	a.mu.Unlock()
	if editing {
		a.cancelSession()
	}
	return store.DeleteSection(id), nil
}

func (a *App) DuplicateSection(id string) (string, error) {
	store, err := a.requireStore()
	if err != nil {
		return "", err
	}
	newID, ok := store.DuplicateSection(id)
	if !ok {
		return "", fmt.Errorf("duplicate %s: %w", id, builder.ErrSectionNotFound)
	}
	return newID, nil
}

// SelectSection selects id, or clears the selection when id is "".
func (a *App) SelectSection(id string) error {
	store, err := a.requireStore()
	if err != nil {
		return err
	}
	if !store.SelectSection(id) {
		return fmt.Errorf("select %s: %w", id, builder.ErrSectionNotFound)
	}
	return nil
}

func (a *App) SetRealTimePreview(on bool) error {
	store, err := a.requireStore()
	if err != nil {
		return err
	}
	store.SetRealTimePreview(on)
	return nil
}

// ============================================================
// Rendering
// ============================================================

// RenderPage renders the open page's committed sections, each isolated in
// its own boundary.
func (a *App) RenderPage(isPreview bool) ([]render.Block, error) {
	store, err := a.requireStore()
	if err != nil {
		return nil, err
	}
	return a.driver.RenderPage(store.Sections(), isPreview), nil
}

// PageHTML renders the open page to a single HTML fragment.
func (a *App) PageHTML(isPreview bool) (template.HTML, error) {
	blocks, err := a.RenderPage(isPreview)
	if err != nil {
		return "", err
	}
	return a.driver.HTML(blocks), nil
}

// InvokeRecovery runs a recovery action on a failed section. The result is
// visible on the next render.
func (a *App) InvokeRecovery(sectionID string, action recovery.ActionType) error {
	if a.driver == nil {
		return ErrNotStarted
	}
	return a.driver.Invoke(sectionID, action)
}

// sectionCallbacks offers a retry that re-renders on the next pass and a
// reset that reverts the section to its last saved version.
func (a *App) sectionCallbacks(sectionID string) recovery.Callbacks {
	return recovery.Callbacks{
		OnRetry: func() error { return nil },
		OnReset: func() error { return a.resetSection(sectionID) },
	}
}

func (a *App) resetSection(sectionID string) error {
	store, err := a.requireStore()
	if err != nil {
		return err
	}
	saved, err := a.pages.LoadPage(context.Background(), store.PageID())
	if err != nil {
		return err
	}
	for _, s := range saved {
		if s.ID != sectionID {
			continue
		}
		content, settings := s.Content, s.Settings
		if !store.UpdateSection(sectionID, builder.Patch{Content: &content, Settings: &settings}) {
			return fmt.Errorf("reset %s: %w", sectionID, builder.ErrSectionNotFound)
		}
		return nil
	}
	return fmt.Errorf("reset %s: no saved version: %w", sectionID, builder.ErrSectionNotFound)
}
