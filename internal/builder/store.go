// Package builder holds the editing core of the page builder: the Store that
// owns a page's committed sections and the edit Session that drafts changes to
// one section before committing them.
package builder

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pagebuilder/internal/domain"
)

var (
	ErrUnknownSectionType = errors.New("unknown section type")
	ErrSectionNotFound    = errors.New("section not found")
	ErrStoreClosed        = errors.New("store closed")
)

// Direction for MoveSection.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// EventKind describes a Store mutation.
type EventKind string

const (
	EventLoaded     EventKind = "loaded"
	EventAdded      EventKind = "added"
	EventUpdated    EventKind = "updated"
	EventMoved      EventKind = "moved"
	EventDeleted    EventKind = "deleted"
	EventDuplicated EventKind = "duplicated"
	EventSelected   EventKind = "selected"
	EventPreview    EventKind = "preview"
)

// Event is delivered to subscribers after a mutation has been applied.
type Event struct {
	Kind      EventKind
	PageID    string
	SectionID string
	Revision  uint64
}

// Patch replaces the committed content and/or settings of a section.
// Nil fields are left untouched.
type Patch struct {
	Content  *string
	Settings *domain.Settings
}

// Store is the single source of truth for one open page: the ordered
// committed sections, the selection and the real-time preview flag. Every
// operation is atomic; order values are always 0..n-1.
type Store struct {
	mu              sync.RWMutex
	pageID          string
	sections        []domain.Section
	selectedID      string
	realTimePreview bool
	revision        uint64
	closed          bool

	subMu     sync.Mutex
	nextSubID int
	subs      map[int]func(Event)

	newID  func() string
	logger *zap.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

func WithStoreLogger(l *zap.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIDGenerator replaces uuid-based section ids.
func WithIDGenerator(fn func() string) StoreOption {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithRealTimePreview sets the initial preview flag.
func WithRealTimePreview(on bool) StoreOption {
	return func(s *Store) {
		s.realTimePreview = on
	}
}

// NewStore creates an empty store for the page being edited.
func NewStore(pageID string, opts ...StoreOption) *Store {
	s := &Store{
		pageID: pageID,
		subs:   make(map[int]func(Event)),
		newID:  func() string { return uuid.New().String() },
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) PageID() string { return s.pageID }

// Load replaces the committed list with sections from persistence, sorted by
// their stored order and renumbered to 0..n-1. Only the first section with a
// given id is kept.
func (s *Store) Load(sections []domain.Section) {
	sorted := make([]domain.Section, len(sections))
	copy(sorted, sections)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	seen := make(map[string]struct{}, len(sorted))
	loaded := make([]domain.Section, 0, len(sorted))
	for _, sec := range sorted {
		if _, dup := seen[sec.ID]; dup {
			s.logger.Warn("duplicate section id dropped on load",
				zap.String("page_id", s.pageID), zap.String("section_id", sec.ID), zap.Int("order", sec.Order))
			continue
		}
		seen[sec.ID] = struct{}{}
		loaded = append(loaded, sec.Clone())
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logClosed("load")
		return
	}
	s.sections = loaded
	renumber(s.sections)
	if s.indexLocked(s.selectedID) < 0 {
		s.selectedID = ""
	}
	ev := s.bumpLocked(EventLoaded, "")
	s.mu.Unlock()
	s.publish(ev)
}

// AddSection appends a section of type t with default content and settings
// and returns its id.
func (s *Store) AddSection(t domain.SectionType) (string, error) {
	if !t.Known() {
		return "", fmt.Errorf("add section %q: %w", t, ErrUnknownSectionType)
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrStoreClosed
	}
	id := s.newID()
	s.sections = append(s.sections, domain.NewSection(id, t, len(s.sections)))
	ev := s.bumpLocked(EventAdded, id)
	s.mu.Unlock()

	s.logger.Debug("section added", zap.String("page_id", s.pageID), zap.String("section_id", id), zap.String("type", string(t)))
	s.publish(ev)
	return id, nil
}

// UpdateSection replaces the committed content and/or settings of id. It never
// touches id, type or order. A missing id is a logged no-op.
func (s *Store) UpdateSection(id string, p Patch) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logClosed("update")
		return false
	}
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		s.logger.Warn("update of unknown section ignored", zap.String("page_id", s.pageID), zap.String("section_id", id))
		return false
	}
	sec := &s.sections[i]
	if p.Settings != nil && !p.Settings.IsZero() && p.Settings.Type() != sec.Type {
		s.mu.Unlock()
		s.logger.Warn("settings variant does not match section type",
			zap.String("section_id", id),
			zap.String("type", string(sec.Type)),
			zap.String("variant", string(p.Settings.Type())))
		return false
	}
	if p.Content != nil {
		sec.Content = *p.Content
	}
	if p.Settings != nil && !p.Settings.IsZero() {
		sec.Settings = p.Settings.Clone()
	}
	ev := s.bumpLocked(EventUpdated, id)
	s.mu.Unlock()
	s.publish(ev)
	return true
}

// MoveSection swaps id with its neighbour in direction d. At either end of the
// list it is a no-op.
func (s *Store) MoveSection(id string, d Direction) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logClosed("move")
		return false
	}
	i := s.indexLocked(id)
	j := i
	switch d {
	case Up:
		j = i - 1
	case Down:
		j = i + 1
	}
	if i < 0 || j < 0 || j >= len(s.sections) || i == j {
		s.mu.Unlock()
		return false
	}
	s.sections[i], s.sections[j] = s.sections[j], s.sections[i]
	renumber(s.sections)
	ev := s.bumpLocked(EventMoved, id)
	s.mu.Unlock()
	s.publish(ev)
	return true
}

// DeleteSection removes id and renumbers the remaining sections.
func (s *Store) DeleteSection(id string) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logClosed("delete")
		return false
	}
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		s.logger.Warn("delete of unknown section ignored", zap.String("page_id", s.pageID), zap.String("section_id", id))
		return false
	}
	s.sections = append(s.sections[:i], s.sections[i+1:]...)
	renumber(s.sections)
	if s.selectedID == id {
		s.selectedID = ""
	}
	ev := s.bumpLocked(EventDeleted, id)
	s.mu.Unlock()
	s.publish(ev)
	return true
}

// DuplicateSection inserts a deep copy of id with a fresh id right after the
// source and returns the new id.
func (s *Store) DuplicateSection(id string) (string, bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logClosed("duplicate")
		return "", false
	}
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		s.logger.Warn("duplicate of unknown section ignored", zap.String("page_id", s.pageID), zap.String("section_id", id))
		return "", false
	}
	dup := s.sections[i].Clone()
	dup.ID = s.newID()

	s.sections = append(s.sections, domain.Section{})
	copy(s.sections[i+2:], s.sections[i+1:])
	s.sections[i+1] = dup
	renumber(s.sections)
	ev := s.bumpLocked(EventDuplicated, dup.ID)
	s.mu.Unlock()
	s.publish(ev)
	return dup.ID, true
}

// SelectSection marks id as selected; "" clears the selection.
func (s *Store) SelectSection(id string) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	if id != "" && s.indexLocked(id) < 0 {
		s.mu.Unlock()
		s.logger.Debug("select of unknown section ignored", zap.String("section_id", id))
		return false
	}
	s.selectedID = id
	ev := Event{Kind: EventSelected, PageID: s.pageID, SectionID: id, Revision: s.revision}
	s.mu.Unlock()
	s.publish(ev)
	return true
}

func (s *Store) SetRealTimePreview(on bool) {
	s.mu.Lock()
	s.realTimePreview = on
	ev := Event{Kind: EventPreview, PageID: s.pageID, Revision: s.revision}
	s.mu.Unlock()
	s.publish(ev)
}

func (s *Store) RealTimePreview() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.realTimePreview
}

func (s *Store) SelectedSectionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedID
}

// Sections returns deep copies of the committed sections in render order.
func (s *Store) Sections() []domain.Section {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Section, len(s.sections))
	for i := range s.sections {
		out[i] = s.sections[i].Clone()
	}
	return out
}

// Section returns a deep copy of the committed section id.
func (s *Store) Section(id string) (domain.Section, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexLocked(id)
	if i < 0 {
		return domain.Section{}, false
	}
	return s.sections[i].Clone(), true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sections)
}

// Revision increases with every mutation of the committed list.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Subscribe registers fn for change events and returns its cancel func.
// fn runs on the mutating goroutine after the store lock is released.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// Close ends the store's lifetime with the page. Later mutations are no-ops.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.subMu.Lock()
	s.subs = make(map[int]func(Event))
	s.subMu.Unlock()
}

func (s *Store) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// ── helpers ────────────────────────────────────────────────

func (s *Store) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.sections {
		if s.sections[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) bumpLocked(kind EventKind, sectionID string) Event {
	s.revision++
	return Event{Kind: kind, PageID: s.pageID, SectionID: sectionID, Revision: s.revision}
}

func (s *Store) publish(ev Event) {
	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (s *Store) logClosed(op string) {
	s.logger.Warn("mutation on closed store ignored", zap.String("page_id", s.pageID), zap.String("op", op))
}

func renumber(sections []domain.Section) {
	for i := range sections {
		sections[i].Order = i
	}
}
