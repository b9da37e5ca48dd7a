package app

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagebuilder/internal/builder"
	"pagebuilder/internal/config"
	"pagebuilder/internal/domain"
	"pagebuilder/internal/recovery"
	"pagebuilder/internal/service"
	"pagebuilder/internal/storage"
	"pagebuilder/internal/validation"
)

// fakeScheduler holds timers until fire is called.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	mu      sync.Mutex
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

func (s *fakeScheduler) AfterFunc(_ time.Duration, fn func()) builder.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{fn: fn}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) fire() {
	s.mu.Lock()
	timers := s.timers
	s.timers = nil
	s.mu.Unlock()
	for _, t := range timers {
		if !t.Stop() {
			continue
		}
		t.fn()
	}
}

type fixture struct {
	app   *App
	em    *service.MockEmitter
	sched *fakeScheduler
	page  *domain.Page
}

func newFixture(t *testing.T, preview bool) *fixture {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Autosave.Enabled = false
	cfg.Media.Watch = false
	cfg.Editor.RealtimePreview = preview

	em := &service.MockEmitter{}
	sched := &fakeScheduler{}
	a := New(cfg, nil, WithEmitter(em), WithScheduler(sched))
	require.NoError(t, a.Startup(context.Background()))
	t.Cleanup(a.Shutdown)

	p, err := a.CreatePage(context.Background(), "Home")
	require.NoError(t, err)
	_, err = a.OpenPage(context.Background(), p.ID)
	require.NoError(t, err)
	return &fixture{app: a, em: em, sched: sched, page: p}
}

func TestApp_RequiresOpenPage(t *testing.T) {
	f := newFixture(t, false)
	f.app.ClosePage()

	_, err := f.app.AddSection(domain.SectionText)
	assert.ErrorIs(t, err, ErrNoOpenPage)
	assert.ErrorIs(t, f.app.SavePage(context.Background()), ErrNoOpenPage)
	assert.ErrorIs(t, f.app.OpenEditor("x"), ErrNoOpenPage)
	assert.ErrorIs(t, f.app.UpdateContent("x"), ErrNoEditor)
	assert.Empty(t, f.app.PageID())
}

func TestApp_NotStarted(t *testing.T) {
	a := New(nil, nil)
	_, err := a.OpenPage(context.Background(), "p")
	assert.ErrorIs(t, err, ErrNotStarted)
	_, err = a.ListPages()
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestApp_EditSaveAndPersist(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	id, err := f.app.AddSection(domain.SectionHero)
	require.NoError(t, err)
	require.NoError(t, f.app.OpenEditor(id))
	require.NoError(t, f.app.UpdateContent(""))
	require.NoError(t, f.app.UpdateConfig("hero.buttonUrl", "/join"))

	var verrs validation.Errors
	require.ErrorAs(t, f.app.SaveEditor(), &verrs)
	assert.NotEmpty(t, verrs.For("content"))
	assert.NotEmpty(t, verrs.For("hero.buttonText"))
	assert.NotNil(t, f.app.Editor(), "session stays open after failed save")

	require.NoError(t, f.app.UpdateContent("Dance with us"))
	require.NoError(t, f.app.UpdateSectionFields(map[string]any{"buttonText": "Join"}))
	require.NoError(t, f.app.SaveEditor())
	assert.Nil(t, f.app.Editor())

	assert.True(t, f.app.Dirty())
	require.NoError(t, f.app.SavePage(ctx))
	assert.False(t, f.app.Dirty())
	assert.Contains(t, f.em.Names(), service.EventPageSaved)

	saved, err := f.app.Pages().LoadPage(ctx, f.page.ID)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "Dance with us", saved[0].Content)
	hero, ok := domain.As[*domain.HeroSettings](saved[0].Settings)
	require.True(t, ok)
	assert.Equal(t, "/join", hero.ButtonURL)
}

func TestApp_PreviewDebounceAndAutosave(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	id, err := f.app.AddSection(domain.SectionText)
	require.NoError(t, err)
	require.NoError(t, f.app.SavePage(ctx))

	require.NoError(t, f.app.OpenEditor(id))
	require.NoError(t, f.app.UpdateContent("Live text"))

	secs, err := f.app.Sections()
	require.NoError(t, err)
	assert.Equal(t, "Live text", secs[0].Content, "preview commits immediately")
	assert.True(t, f.app.Editor().PendingCommit())

	f.sched.fire()
	assert.False(t, f.app.Editor().PendingCommit())

	require.NoError(t, f.app.autosaveTick(ctx))
	assert.False(t, f.app.Dirty())
	assert.Contains(t, f.em.Names(), service.EventAutosaved)

	n := len(f.em.Names())
	require.NoError(t, f.app.autosaveTick(ctx))
	assert.Len(t, f.em.Names(), n, "clean page is not saved again")
}

func TestApp_SaveFailureIsNetworkError(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	require.NoError(t, f.app.Pages().DeletePage(ctx, f.page.ID))

	err := f.app.SavePage(ctx)
	var perr *recovery.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, recovery.KindNetwork, perr.Kind)
	assert.Equal(t, "SavePage", perr.Component)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
	assert.Contains(t, f.em.Names(), service.EventPageError)
}

func TestApp_DeleteSectionCancelsEditor(t *testing.T) {
	f := newFixture(t, false)
	id, err := f.app.AddSection(domain.SectionDivider)
	require.NoError(t, err)
	require.NoError(t, f.app.OpenEditor(id))

	deleted, err := f.app.DeleteSection(id)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Nil(t, f.app.Editor())
}

func TestApp_EditorPanel(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.app.EditorPanel()
	assert.ErrorIs(t, err, ErrNoEditor)

	id, err := f.app.AddSection(domain.SectionCTA)
	require.NoError(t, err)
	require.NoError(t, f.app.OpenEditor(id))
	require.NoError(t, f.app.UpdateContent("<b>Join</b>"))
	require.NoError(t, f.app.UpdateConfig("cta.buttonUrl", "not a url"))

	html, err := f.app.EditorPanel()
	require.NoError(t, err)
	assert.Contains(t, string(html), `data-section-id="`+id+`"`)
	assert.Contains(t, string(html), "&lt;b&gt;Join&lt;/b&gt;")
	assert.Contains(t, string(html), `data-field="cta.buttonUrl"`)

	assert.Error(t, f.app.InvokeEditorRecovery(recovery.ActionReset), "nothing to recover")
}

func TestApp_RenderAndRecover(t *testing.T) {
	f := newFixture(t, false)
	id, err := f.app.AddSection(domain.SectionText)
	require.NoError(t, err)

	blocks, err := f.app.RenderPage(false)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.False(t, blocks[0].Failed())

	html, err := f.app.PageHTML(true)
	require.NoError(t, err)
	assert.Contains(t, string(html), id)

	assert.Error(t, f.app.InvokeRecovery(id, recovery.ActionRetry), "section is healthy")
}

func TestApp_ResetSectionRevertsToSaved(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	id, err := f.app.AddSection(domain.SectionText)
	require.NoError(t, err)
	require.NoError(t, f.app.SavePage(ctx))

	require.NoError(t, f.app.OpenEditor(id))
	require.NoError(t, f.app.UpdateContent("unsaved change"))
	require.NoError(t, f.app.CancelEditor())

	require.NoError(t, f.app.resetSection(id))
	secs, err := f.app.Sections()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultContent(domain.SectionText), secs[0].Content)

	other, err := f.app.AddSection(domain.SectionText)
	require.NoError(t, err)
	assert.ErrorIs(t, f.app.resetSection(other), builder.ErrSectionNotFound)
}

func TestApp_AttachMedia(t *testing.T) {
	f := newFixture(t, false)
	id, err := f.app.AddSection(domain.SectionImage)
	require.NoError(t, err)

	asset, err := f.app.ImportMedia("logo.png", "data:image/png;base64,"+base64.StdEncoding.EncodeToString([]byte("png")))
	require.NoError(t, err)

	assert.ErrorIs(t, f.app.AttachMedia("image.url", asset.ID), ErrNoEditor)
	require.NoError(t, f.app.OpenEditor(id))
	require.NoError(t, f.app.AttachMedia("image.url", asset.ID))

	v, ok := f.app.Editor().Setting("image.url")
	require.True(t, ok)
	assert.Equal(t, asset.URL, v)

	assert.Error(t, f.app.AttachMedia("image.url", "missing.png"))
}

func TestApp_RestoreRevision(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	_, err := f.app.AddSection(domain.SectionText)
	require.NoError(t, err)
	require.NoError(t, f.app.SavePage(ctx))
	_, err = f.app.AddSection(domain.SectionDivider)
	require.NoError(t, err)
	require.NoError(t, f.app.SavePage(ctx))

	revs, err := f.app.Pages().Revisions(f.page.ID)
	require.NoError(t, err)
	require.Len(t, revs, 2)

	secs, err := f.app.RestoreRevision(ctx, revs[1].ID)
	require.NoError(t, err)
	assert.Len(t, secs, 1)
	assert.False(t, f.app.Dirty())
}

func TestPageWatcher_ReloadsExternalChanges(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	w := f.app.watcher

	w.check()
	assert.NotContains(t, f.em.Names(), service.EventPageReloaded)

	// Another process writes the page.
	external := []domain.Section{domain.NewSection("ext", domain.SectionCTA, 0)}
	require.NoError(t, f.app.Pages().SavePage(ctx, f.page.ID, external))

	w.check()
	assert.Contains(t, f.em.Names(), service.EventPageReloaded)
	secs, err := f.app.Sections()
	require.NoError(t, err)
	require.Len(t, secs, 1)
	assert.Equal(t, "ext", secs[0].ID)
}

func TestPageWatcher_DefersWhileEditing(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	id, err := f.app.AddSection(domain.SectionText)
	require.NoError(t, err)
	require.NoError(t, f.app.SavePage(ctx))
	require.NoError(t, f.app.OpenEditor(id))

	require.NoError(t, f.app.Pages().SavePage(ctx, f.page.ID, nil))
	f.app.watcher.check()

	secs, err := f.app.Sections()
	require.NoError(t, err)
	assert.Len(t, secs, 1, "open editor blocks the reload")
	assert.NotContains(t, f.em.Names(), service.EventPageReloaded)
}

func TestApp_OwnSaveIsNotExternal(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.app.AddSection(domain.SectionText)
	require.NoError(t, err)
	require.NoError(t, f.app.SavePage(context.Background()))

	f.app.watcher.check()
	assert.NotContains(t, f.em.Names(), service.EventPageReloaded)
}
