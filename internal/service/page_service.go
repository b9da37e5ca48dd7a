package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pagebuilder/internal/domain"
)

var (
	ErrPublishInProgress = errors.New("publish already in progress")
	ErrEmptyTitle        = errors.New("page title is required")
	ErrRevisionMismatch  = errors.New("revision belongs to another page")
)

// ─────────────────────────────────────────────────────────────
// Page Service: persistence collaborator for the page builder
// ─────────────────────────────────────────────────────────────

// PageService loads and saves pages and their ordered sections, and keeps a
// bounded revision history per page. The editing core never calls it
// directly; the app controller does on open, save and publish.
type PageService struct {
	pages     domain.PageStore
	sections  domain.SectionRepository
	revisions domain.RevisionStore
	emitter   EventEmitter
	logger    *zap.Logger
	publishes publishGuard
	now       func() time.Time
}

// NewPageService creates a PageService.
func NewPageService(
	pages domain.PageStore,
	sections domain.SectionRepository,
	revisions domain.RevisionStore,
	emitter EventEmitter,
	logger *zap.Logger,
) *PageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if emitter == nil {
		emitter = LogEmitter{Logger: logger}
	}
	return &PageService{
		pages:     pages,
		sections:  sections,
		revisions: revisions,
		emitter:   emitter,
		logger:    logger,
		now:       time.Now,
	}
}

// ── Pages ──────────────────────────────────────────────────

func (s *PageService) ListPages() ([]domain.Page, error) {
	return s.pages.ListPages()
}

func (s *PageService) GetPage(id string) (*domain.Page, error) {
	return s.pages.GetPage(id)
}

// GetPageBySlug resolves a public page address.
func (s *PageService) GetPageBySlug(slug string) (*domain.Page, error) {
	return s.pages.GetPageBySlug(slug)
}

// CreatePage creates an empty draft page with a unique slug derived from title.
func (s *PageService) CreatePage(ctx context.Context, title string) (*domain.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	p := &domain.Page{
		ID:     uuid.New().String(),
		Title:  title,
		Slug:   s.uniqueSlug(Slugify(title), ""),
		Status: domain.PageDraft,
	}
	if err := s.pages.CreatePage(p); err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	s.logger.Info("page created", zap.String("page_id", p.ID), zap.String("slug", p.Slug))
	return p, nil
}

// RenamePage changes the title and re-derives the slug.
func (s *PageService) RenamePage(ctx context.Context, id, title string) (*domain.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	p, err := s.pages.GetPage(id)
	if err != nil {
		return nil, err
	}
	p.Title = title
	p.Slug = s.uniqueSlug(Slugify(title), id)
	if err := s.pages.UpdatePage(p); err != nil {
		return nil, fmt.Errorf("rename page: %w", err)
	}
	return p, nil
}

// DeletePage removes the page, its sections and its history.
func (s *PageService) DeletePage(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.revisions.ClearPage(id); err != nil {
		return fmt.Errorf("clear revisions: %w", err)
	}
	if err := s.sections.DeleteSectionsByPage(id); err != nil {
		return fmt.Errorf("delete sections: %w", err)
	}
	if err := s.pages.DeletePage(id); err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	s.logger.Info("page deleted", zap.String("page_id", id))
	return nil
}

// ── Sections ───────────────────────────────────────────────

// LoadPage returns the page's committed sections in order.
func (s *PageService) LoadPage(ctx context.Context, pageID string) ([]domain.Section, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := s.pages.GetPage(pageID); err != nil {
		return nil, err
	}
	secs, err := s.sections.ListSections(pageID)
	if err != nil {
		return nil, fmt.Errorf("load sections: %w", err)
	}
	return secs, nil
}

// LoadState returns the page together with its sections.
func (s *PageService) LoadState(ctx context.Context, pageID string) (*domain.PageState, error) {
	p, err := s.pages.GetPage(pageID)
	if err != nil {
		return nil, err
	}
	secs, err := s.LoadPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	return &domain.PageState{Page: *p, Sections: secs}, nil
}

// SavePage replaces the page's sections with the given ordered list and
// records a revision.
func (s *PageService) SavePage(ctx context.Context, pageID string, sections []domain.Section) error {
	if err := s.save(ctx, pageID, sections, "save"); err != nil {
		return err
	}
	s.emitter.Emit(ctx, EventPageSaved, pageID)
	return nil
}

// PublishPage saves the sections and marks the page published. A second
// publish of the same page while one is running is rejected.
func (s *PageService) PublishPage(ctx context.Context, pageID string, sections []domain.Section) (*domain.Page, error) {
	if since, ok := s.publishes.Begin(pageID, s.now()); !ok {
		return nil, fmt.Errorf("page %s publishing since %s: %w", pageID, since.Format(time.RFC3339), ErrPublishInProgress)
	}
	defer s.publishes.End(pageID)

	if err := s.save(ctx, pageID, sections, "publish"); err != nil {
		return nil, err
	}
	p, err := s.pages.GetPage(pageID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	p.Status = domain.PagePublished
	p.PublishedAt = &now
	if err := s.pages.UpdatePage(p); err != nil {
		return nil, fmt.Errorf("publish page: %w", err)
	}
	s.logger.Info("page published", zap.String("page_id", pageID), zap.Int("sections", len(sections)))
	s.emitter.Emit(ctx, EventPagePublished, p)
	return p, nil
}

// Publishing reports whether pageID is being published and since when.
func (s *PageService) Publishing(pageID string) (time.Time, bool) {
	return s.publishes.Publishing(pageID)
}

// WaitPublishing blocks until running publishes finish or ctx is cancelled.
func (s *PageService) WaitPublishing(ctx context.Context) {
	if err := s.publishes.Wait(ctx, ""); err != nil {
		s.logger.Warn("publishes still running", zap.Error(err))
	}
}

// ── Revisions ──────────────────────────────────────────────

func (s *PageService) Revisions(pageID string) ([]domain.Revision, error) {
	return s.revisions.ListRevisions(pageID)
}

// RestoreRevision writes the revision's sections back as the page's current
// sections and returns them.
func (s *PageService) RestoreRevision(ctx context.Context, pageID, revisionID string) ([]domain.Section, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rev, err := s.revisions.GetRevision(revisionID)
	if err != nil {
		return nil, err
	}
	if rev.PageID != pageID {
		return nil, fmt.Errorf("revision %s: %w", revisionID, ErrRevisionMismatch)
	}
	secs, err := rev.Sections()
	if err != nil {
		return nil, err
	}
	secs = normalize(secs)
	if err := s.sections.ReplacePageSections(pageID, secs); err != nil {
		return nil, fmt.Errorf("restore sections: %w", err)
	}
	if err := s.revisions.GoTo(pageID, revisionID); err != nil {
		return nil, fmt.Errorf("move revision pointer: %w", err)
	}
	s.emitter.Emit(ctx, EventPageRestored, map[string]string{"pageId": pageID, "revisionId": revisionID})
	return secs, nil
}

// ── helpers ────────────────────────────────────────────────

func (s *PageService) save(ctx context.Context, pageID string, sections []domain.Section, label string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.pages.GetPage(pageID); err != nil {
		return err
	}
	secs := normalize(sections)
	if err := s.sections.ReplacePageSections(pageID, secs); err != nil {
		return fmt.Errorf("save sections: %w", err)
	}
	snap, err := json.Marshal(secs)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if _, err := s.revisions.PushRevision(pageID, uuid.New().String(), label, string(snap)); err != nil {
		// history is best effort
		s.logger.Warn("record revision failed", zap.String("page_id", pageID), zap.Error(err))
	}
	s.logger.Debug("page saved", zap.String("page_id", pageID), zap.String("label", label), zap.Int("sections", len(secs)))
	return nil
}

// normalize copies sections and renumbers their order by position.
func normalize(sections []domain.Section) []domain.Section {
	out := make([]domain.Section, len(sections))
	for i := range sections {
		out[i] = sections[i].Clone()
		out[i].Order = i
	}
	return out
}

func (s *PageService) uniqueSlug(base, selfID string) string {
	slug := base
	for n := 2; ; n++ {
		p, err := s.pages.GetPageBySlug(slug)
		if err != nil || p == nil || p.ID == selfID {
			return slug
		}
		slug = base + "-" + strconv.Itoa(n)
	}
}

// Slugify lower-cases title and joins its letters and digits with dashes.
func Slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
		default:
			dash = true
		}
	}
	if b.Len() == 0 {
		return "page"
	}
	return b.String()
}
