package storage_test

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/storage"
)

func openDB(t *testing.T) *storage.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.New(filepath.Join(dir, "pages.db"), filepath.Join(dir, "data"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func createPage(t *testing.T, pages *storage.PageStore, id string) *domain.Page {
	t.Helper()
	p := &domain.Page{ID: id, Title: "Page " + id, Slug: "page-" + id}
	require.NoError(t, pages.CreatePage(p))
	return p
}

func TestPageStore_CRUD(t *testing.T) {
	db := openDB(t)
	pages := storage.NewPageStore(db)

	p := createPage(t, pages, "p1")
	assert.Equal(t, domain.PageDraft, p.Status)

	got, err := pages.GetPage("p1")
	require.NoError(t, err)
	assert.Equal(t, "Page p1", got.Title)
	assert.Nil(t, got.PublishedAt)

	bySlug, err := pages.GetPageBySlug("page-p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", bySlug.ID)

	now := time.Now()
	got.Status = domain.PagePublished
	got.PublishedAt = &now
	got.Title = "Home"
	require.NoError(t, pages.UpdatePage(got))

	got, err = pages.GetPage("p1")
	require.NoError(t, err)
	assert.Equal(t, "Home", got.Title)
	require.NotNil(t, got.PublishedAt)

	list, err := pages.ListPages()
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, pages.DeletePage("p1"))
	_, err = pages.GetPage("p1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, pages.UpdatePage(got), storage.ErrNotFound)
}

func TestPageStore_SlugIsUnique(t *testing.T) {
	pages := storage.NewPageStore(openDB(t))
	createPage(t, pages, "p1")
	err := pages.CreatePage(&domain.Page{ID: "p2", Title: "Other", Slug: "page-p1"})
	assert.Error(t, err)
}

func TestSectionStore_ReplaceAndList(t *testing.T) {
	db := openDB(t)
	pages := storage.NewPageStore(db)
	sections := storage.NewSectionStore(db)
	createPage(t, pages, "p1")

	hero := domain.NewSection("a", domain.SectionHero, 5)
	hero.Content = "Welcome"
	hero.Settings = domain.NewSettings(&domain.HeroSettings{Alignment: "left", ButtonURL: "/book", ButtonText: "Book"})
	unknown := domain.Section{ID: "b", Type: "carousel-3d", Settings: mustDecode(t, "carousel-3d", `{"carousel-3d":{"speed":3}}`)}
	text := domain.NewSection("c", domain.SectionText, 0)

	require.NoError(t, sections.ReplacePageSections("p1", []domain.Section{hero, unknown, text}))

	got, err := sections.ListSections("p1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, s := range got {
		assert.Equal(t, i, s.Order)
	}
	assert.Equal(t, []string{"a", "b", "c"}, []string{got[0].ID, got[1].ID, got[2].ID})

	h, ok := domain.As[*domain.HeroSettings](got[0].Settings)
	require.True(t, ok)
	assert.Equal(t, "/book", h.ButtonURL)

	raw, err := json.Marshal(got[1].Settings)
	require.NoError(t, err)
	assert.JSONEq(t, `{"carousel-3d":{"speed":3}}`, string(raw))

	require.NoError(t, sections.ReplacePageSections("p1", []domain.Section{text}))
	got, err = sections.ListSections("p1")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	require.NoError(t, sections.DeleteSectionsByPage("p1"))
	got, err = sections.ListSections("p1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSectionStore_DeletePageCascades(t *testing.T) {
	db := openDB(t)
	pages := storage.NewPageStore(db)
	sections := storage.NewSectionStore(db)
	createPage(t, pages, "p1")
	require.NoError(t, sections.ReplacePageSections("p1", []domain.Section{domain.NewSection("a", domain.SectionDivider, 0)}))

	require.NoError(t, pages.DeletePage("p1"))
	got, err := sections.ListSections("p1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRevisionStore_PushListPrune(t *testing.T) {
	db := openDB(t)
	createPage(t, storage.NewPageStore(db), "p1")
	revs := storage.NewRevisionStore(db, 3)

	for i := 0; i < 5; i++ {
		_, err := revs.PushRevision("p1", fmt.Sprintf("r%d", i), fmt.Sprintf("save %d", i), `[]`)
		require.NoError(t, err)
	}

	list, err := revs.ListRevisions("p1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "r4", list[0].ID)

	cur, err := revs.CurrentRevision("p1")
	require.NoError(t, err)
	assert.Equal(t, "r4", cur)

	require.NoError(t, revs.GoTo("p1", "r3"))
	cur, _ = revs.CurrentRevision("p1")
	assert.Equal(t, "r3", cur)

	_, err = revs.GetRevision("r0")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, revs.ClearPage("p1"))
	list, err = revs.ListRevisions("p1")
	require.NoError(t, err)
	assert.Empty(t, list)
	cur, err = revs.CurrentRevision("p1")
	require.NoError(t, err)
	assert.Empty(t, cur)
}

func TestRevision_SectionsRoundTrip(t *testing.T) {
	db := openDB(t)
	createPage(t, storage.NewPageStore(db), "p1")
	revs := storage.NewRevisionStore(db, 0)

	snap, err := json.Marshal([]domain.Section{domain.NewSection("a", domain.SectionCTA, 0)})
	require.NoError(t, err)
	_, err = revs.PushRevision("p1", "r1", "publish", string(snap))
	require.NoError(t, err)

	r, err := revs.GetRevision("r1")
	require.NoError(t, err)
	secs, err := r.Sections()
	require.NoError(t, err)
	require.Len(t, secs, 1)
	cta, ok := domain.As[*domain.CTASettings](secs[0].Settings)
	require.True(t, ok)
	assert.Equal(t, "/contact", cta.ButtonURL)
}

func mustDecode(t *testing.T, typ domain.SectionType, bag string) domain.Settings {
	t.Helper()
	s, err := domain.DecodeSettings(typ, []byte(bag))
	require.NoError(t, err)
	return s
}
