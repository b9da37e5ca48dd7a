package builder_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagebuilder/internal/builder"
	"pagebuilder/internal/domain"
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("s-%d", n)
	}
}

func orders(sections []domain.Section) []int {
	out := make([]int, len(sections))
	for i, s := range sections {
		out[i] = s.Order
	}
	return out
}

func ids(sections []domain.Section) []string {
	out := make([]string, len(sections))
	for i, s := range sections {
		out[i] = s.ID
	}
	return out
}

func TestStore_ConcreteScenario(t *testing.T) {
	st := builder.NewStore("page-1")

	heroID, err := st.AddSection(domain.SectionHero)
	require.NoError(t, err)
	require.Equal(t, 1, st.Len())
	hero, _ := st.Section(heroID)
	assert.Equal(t, 0, hero.Order)

	textID, err := st.AddSection(domain.SectionText)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, orders(st.Sections()))

	require.True(t, st.MoveSection(textID, builder.Up))
	text, _ := st.Section(textID)
	hero, _ = st.Section(heroID)
	assert.Equal(t, 0, text.Order)
	assert.Equal(t, 1, hero.Order)

	require.True(t, st.DeleteSection(heroID))
	secs := st.Sections()
	require.Len(t, secs, 1)
	assert.Equal(t, textID, secs[0].ID)
	assert.Equal(t, 0, secs[0].Order)
}

func TestStore_AddUsesDefaults(t *testing.T) {
	st := builder.NewStore("p")
	id, err := st.AddSection(domain.SectionCTA)
	require.NoError(t, err)

	sec, ok := st.Section(id)
	require.True(t, ok)
	assert.Equal(t, domain.DefaultContent(domain.SectionCTA), sec.Content)
	cta, ok := domain.As[*domain.CTASettings](sec.Settings)
	require.True(t, ok)
	assert.Equal(t, "/contact", cta.ButtonURL)
}

func TestStore_AddUnknownType(t *testing.T) {
	st := builder.NewStore("p")
	_, err := st.AddSection("carousel-3d")
	assert.ErrorIs(t, err, builder.ErrUnknownSectionType)
	assert.Zero(t, st.Len())
}

func TestStore_MoveAtBoundariesIsNoop(t *testing.T) {
	st := builder.NewStore("p", builder.WithIDGenerator(seqIDs()))
	a, _ := st.AddSection(domain.SectionHero)
	b, _ := st.AddSection(domain.SectionText)
	rev := st.Revision()

	assert.False(t, st.MoveSection(a, builder.Up))
	assert.False(t, st.MoveSection(b, builder.Down))
	assert.False(t, st.MoveSection("missing", builder.Up))
	assert.Equal(t, rev, st.Revision())
	assert.Equal(t, []string{a, b}, ids(st.Sections()))
}

func TestStore_UpdateKeepsIdentity(t *testing.T) {
	st := builder.NewStore("p")
	id, _ := st.AddSection(domain.SectionHero)
	_, _ = st.AddSection(domain.SectionText)

	content := "New headline"
	settings := domain.NewSettings(&domain.HeroSettings{Alignment: "left", Height: "small"})
	require.True(t, st.UpdateSection(id, builder.Patch{Content: &content, Settings: &settings}))

	sec, _ := st.Section(id)
	assert.Equal(t, id, sec.ID)
	assert.Equal(t, domain.SectionHero, sec.Type)
	assert.Equal(t, 0, sec.Order)
	assert.Equal(t, "New headline", sec.Content)
	hero, _ := domain.As[*domain.HeroSettings](sec.Settings)
	assert.Equal(t, "left", hero.Alignment)
}

func TestStore_UpdateRejectsForeignVariant(t *testing.T) {
	st := builder.NewStore("p")
	id, _ := st.AddSection(domain.SectionHero)
	wrong := domain.DefaultSettings(domain.SectionText)
	assert.False(t, st.UpdateSection(id, builder.Patch{Settings: &wrong}))

	sec, _ := st.Section(id)
	assert.Equal(t, domain.SectionHero, sec.Settings.Type())
}

func TestStore_UpdateMissingIsNoop(t *testing.T) {
	st := builder.NewStore("p")
	_, _ = st.AddSection(domain.SectionHero)
	before := st.Sections()
	content := "x"
	assert.False(t, st.UpdateSection("nope", builder.Patch{Content: &content}))
	if diff := cmp.Diff(ids(before), ids(st.Sections())); diff != "" {
		t.Errorf("sections changed (-want +got):\n%s", diff)
	}
}

func TestStore_DuplicateInsertsAfterSource(t *testing.T) {
	st := builder.NewStore("p", builder.WithIDGenerator(seqIDs()))
	a, _ := st.AddSection(domain.SectionHero)
	b, _ := st.AddSection(domain.SectionGallery)
	c, _ := st.AddSection(domain.SectionText)

	dup, ok := st.DuplicateSection(b)
	require.True(t, ok)
	assert.NotEqual(t, b, dup)
	assert.Equal(t, []string{a, b, dup, c}, ids(st.Sections()))
	assert.Equal(t, []int{0, 1, 2, 3}, orders(st.Sections()))

	// the copy is deep
	settings := domain.NewSettings(&domain.GallerySettings{
		Images:  []domain.GalleryImage{{URL: "https://example.com/a.jpg"}},
		Columns: 2,
	})
	require.True(t, st.UpdateSection(b, builder.Patch{Settings: &settings}))
	copied, _ := st.Section(dup)
	g, _ := domain.As[*domain.GallerySettings](copied.Settings)
	assert.Empty(t, g.Images)
}

func TestStore_SectionsReturnsCopies(t *testing.T) {
	st := builder.NewStore("p")
	id, _ := st.AddSection(domain.SectionHero)
	secs := st.Sections()
	secs[0].Content = "mutated"
	secs[0].Order = 9

	sec, _ := st.Section(id)
	assert.NotEqual(t, "mutated", sec.Content)
	assert.Equal(t, 0, sec.Order)
}

func TestStore_SelectionAndPreview(t *testing.T) {
	st := builder.NewStore("p")
	id, _ := st.AddSection(domain.SectionHero)

	assert.True(t, st.SelectSection(id))
	assert.Equal(t, id, st.SelectedSectionID())
	assert.False(t, st.SelectSection("missing"))
	assert.Equal(t, id, st.SelectedSectionID())

	st.DeleteSection(id)
	assert.Empty(t, st.SelectedSectionID())

	assert.False(t, st.RealTimePreview())
	st.SetRealTimePreview(true)
	assert.True(t, st.RealTimePreview())
}

func TestStore_LoadSortsAndRenumbers(t *testing.T) {
	st := builder.NewStore("p")
	st.Load([]domain.Section{
		domain.NewSection("b", domain.SectionText, 7),
		domain.NewSection("a", domain.SectionHero, 2),
		domain.NewSection("c", domain.SectionCTA, 9),
	})
	assert.Equal(t, []string{"a", "b", "c"}, ids(st.Sections()))
	assert.Equal(t, []int{0, 1, 2}, orders(st.Sections()))
}

func TestStore_LoadDropsDuplicateIDs(t *testing.T) {
	st := builder.NewStore("p")
	st.Load([]domain.Section{
		domain.NewSection("a", domain.SectionHero, 0),
		domain.NewSection("b", domain.SectionText, 1),
		domain.NewSection("a", domain.SectionCTA, 2),
	})
	secs := st.Sections()
	assert.Equal(t, []string{"a", "b"}, ids(secs))
	assert.Equal(t, []int{0, 1}, orders(secs))
	assert.Equal(t, domain.SectionHero, secs[0].Type, "the first section with an id wins")
}

func TestStore_SubscribeAndClose(t *testing.T) {
	st := builder.NewStore("p")
	var events []builder.EventKind
	unsub := st.Subscribe(func(e builder.Event) { events = append(events, e.Kind) })

	id, _ := st.AddSection(domain.SectionHero)
	st.DuplicateSection(id)
	unsub()
	st.DeleteSection(id)
	assert.Equal(t, []builder.EventKind{builder.EventAdded, builder.EventDuplicated}, events)

	st.Close()
	_, err := st.AddSection(domain.SectionText)
	assert.ErrorIs(t, err, builder.ErrStoreClosed)
	assert.Equal(t, 1, st.Len())
}

func TestStore_OrderInvariantUnderRandomOps(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	st := builder.NewStore("p")
	types := domain.SectionTypes()

	for i := 0; i < 500; i++ {
		secs := st.Sections()
		pick := func() string {
			if len(secs) == 0 {
				return "missing"
			}
			return secs[rng.Intn(len(secs))].ID
		}
		switch rng.Intn(4) {
		case 0:
			_, err := st.AddSection(types[rng.Intn(len(types))])
			require.NoError(t, err)
		case 1:
			dir := builder.Up
			if rng.Intn(2) == 0 {
				dir = builder.Down
			}
			st.MoveSection(pick(), dir)
		case 2:
			st.DeleteSection(pick())
		case 3:
			st.DuplicateSection(pick())
		}

		after := st.Sections()
		seen := make(map[string]bool, len(after))
		for j, s := range after {
			require.Equal(t, j, s.Order, "step %d", i)
			require.False(t, seen[s.ID], "duplicate id %s at step %d", s.ID, i)
			seen[s.ID] = true
		}
	}
}
