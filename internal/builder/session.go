package builder

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/validation"
)

var (
	ErrSessionClosed = errors.New("edit session closed")
	ErrInvalidPath   = errors.New("invalid setting path")
)

// Session drafts edits to one section. The committed list in the Store is
// only touched by Save, or by every edit while real-time preview is on.
type Session struct {
	commitMu  sync.Mutex // serialises store writes against Close
	mu        sync.Mutex
	store     *Store
	sectionID string
	local     domain.Section  // content edited independently of settings
	settings  domain.Settings // deep copy taken at open
	errs      validation.Errors
	closed    bool

	validate func(domain.Section) validation.Errors
	debounce *debouncer
	logger   *zap.Logger
}

// SessionOption configures a Session.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	delay    time.Duration
	sched    Scheduler
	validate func(domain.Section) validation.Errors
	logger   *zap.Logger
}

// WithDebounce overrides the content debounce window.
func WithDebounce(d time.Duration) SessionOption {
	return func(c *sessionConfig) {
		if d > 0 {
			c.delay = d
		}
	}
}

// WithScheduler replaces the wall-clock scheduler.
func WithScheduler(s Scheduler) SessionOption {
	return func(c *sessionConfig) {
		if s != nil {
			c.sched = s
		}
	}
}

// WithValidator replaces the default validation engine.
func WithValidator(fn func(domain.Section) validation.Errors) SessionOption {
	return func(c *sessionConfig) {
		if fn != nil {
			c.validate = fn
		}
	}
}

func WithSessionLogger(l *zap.Logger) SessionOption {
	return func(c *sessionConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// OpenSession starts editing sectionID with a private copy of its committed
// content and settings.
func OpenSession(store *Store, sectionID string, opts ...SessionOption) (*Session, error) {
	cfg := sessionConfig{
		delay:    DefaultDebounce,
		sched:    RealScheduler(),
		validate: validation.Validate,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if store.Closed() {
		return nil, ErrStoreClosed
	}
	sec, ok := store.Section(sectionID)
	if !ok {
		return nil, fmt.Errorf("open session %s: %w", sectionID, ErrSectionNotFound)
	}
	s := &Session{
		store:     store,
		sectionID: sectionID,
		local:     sec,
		settings:  sec.Settings.Clone(),
		validate:  cfg.validate,
		debounce:  newDebouncer(cfg.sched, cfg.delay),
		logger:    cfg.logger.With(zap.String("section_id", sectionID)),
	}
	s.errs = s.validate(s.draftLocked())
	return s, nil
}

// UpdateConfig merges value into the settings bag at the dotted path. The
// first segment is the section's type key, e.g. "hero.buttonUrl" or
// "gallery.images.0.url"; missing levels are created. An object value is
// merged leaf by leaf, so fields it does not name keep their draft values.
// A path or value that does not fit the variant leaves the draft unchanged.
func (s *Session) UpdateConfig(path string, value any) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	next, err := s.applyLocked(map[string]any{path: value})
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.settings = next
	s.errs = s.validate(s.draftLocked())
	patch := s.patchLocked()
	preview := s.store.RealTimePreview()
	s.mu.Unlock()

	if preview {
		s.commit(patch, "config")
	}
	return nil
}

// UpdateSectionFields merges several top-level fields of the active variant,
// keyed by their JSON names. Content is edited through UpdateContent only.
func (s *Session) UpdateSectionFields(fields map[string]any) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	root := string(s.local.Type)
	paths := make(map[string]any, len(fields))
	for name, v := range fields {
		switch name {
		case "id", "type", "order", "content":
			s.mu.Unlock()
			return fmt.Errorf("%w: %q is not a settings field", ErrInvalidPath, name)
		}
		if name == "" || strings.ContainsAny(name, ".*?") {
			s.mu.Unlock()
			return fmt.Errorf("%w: %q", ErrInvalidPath, name)
		}
		paths[root+"."+name] = v
	}
	next, err := s.applyLocked(paths)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.settings = next
	s.errs = s.validate(s.draftLocked())
	patch := s.patchLocked()
	preview := s.store.RealTimePreview()
	s.mu.Unlock()

	if preview {
		s.commit(patch, "fields")
	}
	return nil
}

// UpdateContent replaces the draft content. With real-time preview on it
// commits at once and arms the debounce timer, which re-commits the latest
// draft once typing pauses.
func (s *Session) UpdateContent(text string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.local.Content = text
	s.errs = s.validate(s.draftLocked())
	patch := s.patchLocked()
	preview := s.store.RealTimePreview()
	s.mu.Unlock()

	if !preview {
		return nil
	}
	s.commit(patch, "content")
	s.debounce.arm(s.flush)
	return nil
}

// Save validates the draft. Any error blocks the save and is returned as
// validation.Errors without touching the store. Otherwise the pending timer is
// cancelled, the draft committed once and the session closed.
func (s *Session) Save() error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.errs = s.validate(s.draftLocked())
	if len(s.errs) > 0 {
		errs := append(validation.Errors(nil), s.errs...)
		s.mu.Unlock()
		s.logger.Debug("save blocked by validation", zap.Int("errors", len(errs)))
		return errs
	}
	patch := s.patchLocked()
	s.debounce.cancel()
	s.mu.Unlock()

	if !s.store.UpdateSection(s.sectionID, patch) {
		return fmt.Errorf("save section %s: %w", s.sectionID, ErrSectionNotFound)
	}
	s.debounce.stop()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Cancel discards the draft. Commits already sent for real-time preview stay
// in the store.
func (s *Session) Cancel() {
	s.Close()
}

// Close tears the session down on any path. It is idempotent. A commit
// already in flight finishes before Close returns and a timer that fires
// afterwards does nothing.
func (s *Session) Close() {
	s.debounce.stop()
	s.commitMu.Lock()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.commitMu.Unlock()
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) SectionID() string { return s.sectionID }

// Errors returns the validation errors of the current draft.
func (s *Session) Errors() validation.Errors {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(validation.Errors(nil), s.errs...)
}

// Draft returns a copy of the section as it would be committed now.
func (s *Session) Draft() domain.Section {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draftLocked().Clone()
}

// Setting reads the draft value at a dotted settings path.
func (s *Session) Setting(path string) (any, bool) {
	s.mu.Lock()
	data, err := s.settings.MarshalJSON()
	s.mu.Unlock()
	if err != nil {
		return nil, false
	}
	res := gjson.GetBytes(data, path)
	if !res.Exists() {
		return nil, false
	}
	return res.Value(), true
}

// PendingCommit reports whether a debounced commit is armed.
func (s *Session) PendingCommit() bool {
	return s.debounce.isPending()
}

// ── helpers ────────────────────────────────────────────────

// flush is the debounce callback: it re-commits the latest draft.
func (s *Session) flush() {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	patch := s.patchLocked()
	s.mu.Unlock()
	s.commitLocked(patch, "debounce")
}

// commit writes a preview patch unless the session closed since the edit.
func (s *Session) commit(p Patch, cause string) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	if s.Closed() {
		return
	}
	s.commitLocked(p, cause)
}

func (s *Session) commitLocked(p Patch, cause string) {
	if !s.store.UpdateSection(s.sectionID, p) {
		s.logger.Warn("preview commit dropped", zap.String("cause", cause))
		return
	}
	s.logger.Debug("preview commit", zap.String("cause", cause))
}

func (s *Session) draftLocked() domain.Section {
	d := s.local
	d.Settings = s.settings
	return d
}

// patchLocked carries the full draft: the whole variant plus the current
// content, so a settings edit never clobbers in-flight content.
func (s *Session) patchLocked() Patch {
	content := s.local.Content
	settings := s.settings.Clone()
	return Patch{Content: &content, Settings: &settings}
}

// applyLocked writes every path into the marshaled bag and decodes the result
// back into a variant. Paths must be rooted at the section's type key and
// must survive the round trip, which rejects fields the variant lacks.
func (s *Session) applyLocked(paths map[string]any) (domain.Settings, error) {
	t := s.local.Type
	bag, err := s.settings.MarshalJSON()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("encode draft settings: %w", err)
	}
	leaves := make(map[string]any, len(paths))
	for path, value := range paths {
		if err := checkPath(t, path); err != nil {
			return domain.Settings{}, err
		}
		if err := flattenInto(leaves, path, value); err != nil {
			return domain.Settings{}, err
		}
	}
	for path, value := range leaves {
		bag, err = sjson.SetBytes(bag, path, value)
		if err != nil {
			return domain.Settings{}, fmt.Errorf("%w: %s: %v", ErrInvalidPath, path, err)
		}
	}
	next, err := domain.DecodeSettings(t, bag)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("update %s settings: %w", t, err)
	}
	if _, raw := next.Variant().(*domain.RawSettings); raw {
		return next, nil
	}
	out, err := next.MarshalJSON()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("encode draft settings: %w", err)
	}
	for path := range leaves {
		if strings.HasSuffix(path, ".-1") {
			continue // sjson append
		}
		if !gjson.GetBytes(out, path).Exists() {
			return domain.Settings{}, fmt.Errorf("%w: %s has no setting %q", ErrInvalidPath, t, path)
		}
	}
	return next, nil
}

// flattenInto expands an object value into one entry per leaf so it merges
// into the existing subtree instead of replacing it. An appended element is
// kept whole.
func flattenInto(dst map[string]any, path string, value any) error {
	obj, ok := value.(map[string]any)
	if !ok || strings.HasSuffix(path, ".-1") {
		dst[path] = value
		return nil
	}
	for key, v := range obj {
		if key == "" || strings.ContainsAny(key, ".*?#|@\\") {
			return fmt.Errorf("%w: key %q under %s", ErrInvalidPath, key, path)
		}
		if err := flattenInto(dst, path+"."+key, v); err != nil {
			return err
		}
	}
	return nil
}

func checkPath(t domain.SectionType, path string) error {
	root, _, _ := strings.Cut(path, ".")
	if root != string(t) {
		return fmt.Errorf("%w: %q must start with %q", ErrInvalidPath, path, string(t))
	}
	if strings.ContainsAny(path, "*?#|@") {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return nil
}
