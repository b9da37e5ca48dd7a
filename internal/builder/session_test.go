package builder_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagebuilder/internal/builder"
	"pagebuilder/internal/domain"
	"pagebuilder/internal/validation"
)

type fixture struct {
	store   *builder.Store
	clock   *manualClock
	id      string
	commits int
}

func newFixture(t *testing.T, typ domain.SectionType, preview bool) *fixture {
	t.Helper()
	f := &fixture{
		store: builder.NewStore("page-1", builder.WithRealTimePreview(preview)),
		clock: &manualClock{},
	}
	id, err := f.store.AddSection(typ)
	require.NoError(t, err)
	f.id = id
	f.store.Subscribe(func(e builder.Event) {
		if e.Kind == builder.EventUpdated {
			f.commits++
		}
	})
	return f
}

func (f *fixture) open(t *testing.T, opts ...builder.SessionOption) *builder.Session {
	t.Helper()
	opts = append([]builder.SessionOption{builder.WithScheduler(f.clock)}, opts...)
	s, err := builder.OpenSession(f.store, f.id, opts...)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func (f *fixture) committed(t *testing.T) domain.Section {
	t.Helper()
	sec, ok := f.store.Section(f.id)
	require.True(t, ok)
	return sec
}

func TestSession_OpenMissingSection(t *testing.T) {
	st := builder.NewStore("p")
	_, err := builder.OpenSession(st, "nope")
	assert.ErrorIs(t, err, builder.ErrSectionNotFound)
}

func TestSession_DraftIsIsolatedWithoutPreview(t *testing.T) {
	f := newFixture(t, domain.SectionHero, false)
	s := f.open(t)

	require.NoError(t, s.UpdateConfig("hero.alignment", "left"))
	require.NoError(t, s.UpdateContent("Draft headline"))

	assert.Zero(t, f.commits)
	assert.Zero(t, f.clock.Pending())
	assert.Equal(t, domain.DefaultContent(domain.SectionHero), f.committed(t).Content)

	d := s.Draft()
	assert.Equal(t, "Draft headline", d.Content)
	hero, _ := domain.As[*domain.HeroSettings](d.Settings)
	assert.Equal(t, "left", hero.Alignment)
}

func TestSession_UpdateConfigCreatesNestedLevels(t *testing.T) {
	f := newFixture(t, domain.SectionGallery, false)
	s := f.open(t)

	require.NoError(t, s.UpdateConfig("gallery.images.0.url", "https://cdn.example.com/a.jpg"))
	require.NoError(t, s.UpdateConfig("gallery.images.0.alt", "Stage"))
	require.NoError(t, s.UpdateConfig("gallery.images.-1", map[string]any{"url": "https://cdn.example.com/b.jpg"}))

	g, ok := domain.As[*domain.GallerySettings](s.Draft().Settings)
	require.True(t, ok)
	require.Len(t, g.Images, 2)
	assert.Equal(t, "Stage", g.Images[0].Alt)
	assert.Equal(t, "https://cdn.example.com/b.jpg", g.Images[1].URL)

	v, ok := s.Setting("gallery.images.1.url")
	require.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/b.jpg", v)
}

func TestSession_UpdateConfigRejectsBadPaths(t *testing.T) {
	f := newFixture(t, domain.SectionHero, false)
	s := f.open(t)
	before := s.Draft()

	assert.ErrorIs(t, s.UpdateConfig("text.alignment", "left"), builder.ErrInvalidPath)
	assert.ErrorIs(t, s.UpdateConfig("hero.noSuchField", "x"), builder.ErrInvalidPath)
	assert.Error(t, s.UpdateConfig("hero.overlayOpacity", "very"))

	assert.Equal(t, before, s.Draft())
}

func TestSession_UpdateConfigMergesObjects(t *testing.T) {
	f := newFixture(t, domain.SectionHero, false)
	s := f.open(t)

	require.NoError(t, s.UpdateConfig("hero.subheadline", "keep me"))
	require.NoError(t, s.UpdateConfig("hero.alignment", "left"))
	require.NoError(t, s.UpdateConfig("hero", map[string]any{"buttonText": "Go"}))

	hero, ok := domain.As[*domain.HeroSettings](s.Draft().Settings)
	require.True(t, ok)
	assert.Equal(t, "keep me", hero.Subheadline)
	assert.Equal(t, "left", hero.Alignment)
	assert.Equal(t, "Go", hero.ButtonText)

	before := s.Draft()
	err := s.UpdateConfig("hero", map[string]any{"buttonText": "Stop", "noSuchField": 1})
	assert.ErrorIs(t, err, builder.ErrInvalidPath)
	assert.Equal(t, before, s.Draft(), "a rejected merge changes nothing")
}

func TestSession_UpdateConfigMergesArrayElement(t *testing.T) {
	f := newFixture(t, domain.SectionGallery, false)
	s := f.open(t)

	require.NoError(t, s.UpdateConfig("gallery.images.-1", map[string]any{"url": "https://cdn.example.com/a.jpg"}))
	require.NoError(t, s.UpdateConfig("gallery.images.0", map[string]any{"alt": "Stage"}))

	g, ok := domain.As[*domain.GallerySettings](s.Draft().Settings)
	require.True(t, ok)
	require.Len(t, g.Images, 1)
	assert.Equal(t, "https://cdn.example.com/a.jpg", g.Images[0].URL)
	assert.Equal(t, "Stage", g.Images[0].Alt)
}

func TestSession_UpdateSectionFields(t *testing.T) {
	f := newFixture(t, domain.SectionCTA, true)
	s := f.open(t)

	require.NoError(t, s.UpdateContent("Book a session"))
	f.clock.Advance(time.Second)
	before := f.commits

	require.NoError(t, s.UpdateSectionFields(map[string]any{
		"buttonText": "Book now",
		"buttonUrl":  "https://example.com/book",
		"style":      "outline",
	}))
	assert.Equal(t, before+1, f.commits)

	sec := f.committed(t)
	assert.Equal(t, "Book a session", sec.Content, "content is carried through settings commits")
	cta, _ := domain.As[*domain.CTASettings](sec.Settings)
	assert.Equal(t, "Book now", cta.ButtonText)
	assert.Equal(t, "outline", cta.Style)

	assert.ErrorIs(t, s.UpdateSectionFields(map[string]any{"content": "x"}), builder.ErrInvalidPath)
}

func TestSession_PreviewConfigCommitsImmediately(t *testing.T) {
	f := newFixture(t, domain.SectionHero, true)
	s := f.open(t)

	require.NoError(t, s.UpdateContent("Typing..."))
	require.NoError(t, s.UpdateConfig("hero.height", "small"))

	sec := f.committed(t)
	assert.Equal(t, "Typing...", sec.Content)
	hero, _ := domain.As[*domain.HeroSettings](sec.Settings)
	assert.Equal(t, "small", hero.Height)
	assert.Equal(t, 2, f.commits)
	assert.Equal(t, 1, f.clock.Pending(), "settings edits do not arm the timer")
}

func TestSession_DebounceCoalescing(t *testing.T) {
	f := newFixture(t, domain.SectionText, true)
	s := f.open(t)

	for _, text := range []string{"a", "ab", "abc"} {
		require.NoError(t, s.UpdateContent(text))
		f.clock.Advance(100 * time.Millisecond)
	}
	assert.Equal(t, 3, f.commits, "one immediate commit per keystroke")
	assert.Equal(t, 1, f.clock.Pending(), "only one timer is ever pending")

	f.clock.Advance(799 * time.Millisecond)
	assert.Equal(t, 3, f.commits)
	assert.True(t, s.PendingCommit())

	f.clock.Advance(time.Millisecond)
	assert.Equal(t, 4, f.commits, "exactly one debounced commit 1s after the last call")
	assert.False(t, s.PendingCommit())
	assert.Equal(t, "abc", f.committed(t).Content)

	f.clock.Advance(10 * time.Second)
	assert.Equal(t, 4, f.commits)
}

func TestSession_CancelStopsPendingTimer(t *testing.T) {
	f := newFixture(t, domain.SectionText, true)
	s := f.open(t)

	require.NoError(t, s.UpdateContent("live"))
	assert.Equal(t, 1, f.commits)
	s.Cancel()

	f.clock.Advance(5 * time.Second)
	f.clock.FireStopped()
	assert.Equal(t, 1, f.commits, "no commit after cancel")
	assert.Equal(t, "live", f.committed(t).Content, "preview commits stay")
	assert.ErrorIs(t, s.UpdateContent("more"), builder.ErrSessionClosed)
	assert.True(t, s.Closed())
}

func TestSession_StaleCallbackIsInert(t *testing.T) {
	f := newFixture(t, domain.SectionText, true)
	s := f.open(t)

	require.NoError(t, s.UpdateContent("one"))
	require.NoError(t, s.UpdateContent("two"))
	f.clock.FireStopped() // first timer lost the race with Stop
	assert.Equal(t, 2, f.commits)
}

func TestSession_SaveGating(t *testing.T) {
	f := newFixture(t, domain.SectionHero, false)
	s := f.open(t)

	require.NoError(t, s.UpdateContent("   "))
	require.NoError(t, s.UpdateConfig("hero.buttonUrl", "not a url"))
	assert.NotEmpty(t, s.Errors(), "errors are recomputed on every change")

	err := s.Save()
	var verrs validation.Errors
	require.True(t, errors.As(err, &verrs))
	assert.NotEmpty(t, verrs.For("content"))
	assert.NotEmpty(t, verrs.For("hero.buttonUrl"))
	assert.Zero(t, f.commits, "blocked save does not touch the store")
	assert.False(t, s.Closed())

	require.NoError(t, s.UpdateContent("Open studio night"))
	require.NoError(t, s.UpdateSectionFields(map[string]any{
		"buttonUrl":  "https://example.com/rsvp",
		"buttonText": "RSVP",
	}))
	assert.Empty(t, s.Errors())

	require.NoError(t, s.Save())
	assert.Equal(t, 1, f.commits, "save commits exactly once")
	assert.True(t, s.Closed())

	sec := f.committed(t)
	assert.Equal(t, "Open studio night", sec.Content)
	hero, _ := domain.As[*domain.HeroSettings](sec.Settings)
	assert.Equal(t, "https://example.com/rsvp", hero.ButtonURL)
}

func TestSession_SaveCancelsPendingTimer(t *testing.T) {
	f := newFixture(t, domain.SectionText, true)
	s := f.open(t)

	require.NoError(t, s.UpdateContent("final"))
	require.NoError(t, s.Save())
	assert.Equal(t, 2, f.commits)

	f.clock.Advance(2 * time.Second)
	assert.Equal(t, 2, f.commits)
}

func TestSession_TimerFiringDuringSaveDoesNotCommit(t *testing.T) {
	f := newFixture(t, domain.SectionText, true)

	var saving atomic.Bool
	fired := make(chan struct{})
	s := f.open(t, builder.WithValidator(func(sec domain.Section) validation.Errors {
		if saving.CompareAndSwap(true, false) {
			go func() {
				f.clock.Advance(time.Second)
				close(fired)
			}()
			time.Sleep(10 * time.Millisecond)
		}
		return validation.Validate(sec)
	}))

	require.NoError(t, s.UpdateContent("final"))
	require.Equal(t, 1, f.clock.Pending())

	saving.Store(true)
	require.NoError(t, s.Save())
	<-fired

	sec := f.committed(t)
	assert.Equal(t, "final", sec.Content)
	assert.Equal(t, 2, f.commits, "one preview commit and one save")
}

func TestSession_CloseWaitsForInflightCommit(t *testing.T) {
	st := builder.NewStore("p", builder.WithRealTimePreview(true))
	id, err := st.AddSection(domain.SectionText)
	require.NoError(t, err)
	clock := &manualClock{}
	s, err := builder.OpenSession(st, id, builder.WithScheduler(clock))
	require.NoError(t, err)

	require.NoError(t, s.UpdateContent("draft"))

	var once sync.Once
	entered := make(chan struct{})
	release := make(chan struct{})
	var late atomic.Int32
	st.Subscribe(func(e builder.Event) {
		if e.Kind != builder.EventUpdated {
			return
		}
		if s.Closed() {
			late.Add(1)
		}
		once.Do(func() {
			close(entered)
			<-release
		})
	})

	flushed := make(chan struct{})
	go func() {
		clock.Advance(time.Second)
		close(flushed)
	}()
	<-entered

	closed := make(chan struct{})
	go func() {
		s.Close()
		close(closed)
	}()
	select {
	case <-closed:
		t.Fatal("Close returned while the debounced commit was still writing")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	<-closed
	<-flushed

	assert.ErrorIs(t, s.UpdateContent("late"), builder.ErrSessionClosed)
	clock.FireStopped()
	assert.Zero(t, late.Load(), "no commit lands after Close")
}

func TestSession_CustomValidator(t *testing.T) {
	f := newFixture(t, domain.SectionDivider, false)
	s := f.open(t, builder.WithValidator(func(domain.Section) validation.Errors {
		return validation.Errors{{Field: "divider.style", Message: "locked"}}
	}))
	assert.Error(t, s.Save())
	assert.Zero(t, f.commits)
}

func TestSession_SaveAfterSectionDeleted(t *testing.T) {
	f := newFixture(t, domain.SectionDivider, false)
	s := f.open(t)
	f.store.DeleteSection(f.id)
	assert.ErrorIs(t, s.Save(), builder.ErrSectionNotFound)
}

func TestSession_RealSchedulerDebounce(t *testing.T) {
	st := builder.NewStore("p", builder.WithRealTimePreview(true))
	id, err := st.AddSection(domain.SectionText)
	require.NoError(t, err)

	var commits atomic.Int32
	st.Subscribe(func(e builder.Event) {
		if e.Kind == builder.EventUpdated {
			commits.Add(1)
		}
	})

	s, err := builder.OpenSession(st, id, builder.WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.UpdateContent("hello"))
	require.Eventually(t, func() bool { return commits.Load() == 2 }, time.Second, 5*time.Millisecond)
}
