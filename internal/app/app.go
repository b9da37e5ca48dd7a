package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"pagebuilder/internal/builder"
	"pagebuilder/internal/config"
	"pagebuilder/internal/domain"
	"pagebuilder/internal/media"
	"pagebuilder/internal/recovery"
	"pagebuilder/internal/render"
	"pagebuilder/internal/service"
	"pagebuilder/internal/storage"
)

var (
	ErrNotStarted = errors.New("app not started")
	ErrNoOpenPage = errors.New("no page is open")
	ErrNoEditor   = errors.New("no section is being edited")
)

// App is the page builder controller. It owns the open page's Store, the
// active edit session and the collaborators behind them, and is the single
// entry point for the CLI and the MCP server.
type App struct {
	ctx    context.Context
	cfg    *config.Config
	logger *zap.Logger

	emitter   service.EventEmitter
	scheduler builder.Scheduler

	db       *storage.DB
	pages    *service.PageService
	media    *media.Library
	driver   *render.Driver
	autosave *service.Autosaver
	watcher  *pageWatcher

	mu            sync.Mutex
	store         *builder.Store
	session       *builder.Session
	editor        *recovery.Boundary
	savedRevision uint64
}

// Option configures an App.
type Option func(*App)

// WithEmitter replaces the log emitter, e.g. with a UI bridge.
func WithEmitter(e service.EventEmitter) Option {
	return func(a *App) {
		if e != nil {
			a.emitter = e
		}
	}
}

// WithScheduler replaces the timer source used by edit sessions.
func WithScheduler(s builder.Scheduler) Option {
	return func(a *App) {
		if s != nil {
			a.scheduler = s
		}
	}
}

// New creates an App. Nothing is opened until Startup.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) *App {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		cfg:       cfg,
		logger:    logger,
		emitter:   service.LogEmitter{Logger: logger},
		scheduler: builder.RealScheduler(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Startup opens the database, the media library, the renderer and the
// background workers.
func (a *App) Startup(ctx context.Context) error {
	a.ctx = ctx

	db, err := storage.New(a.cfg.DatabaseFile(), a.cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	a.db = db
	a.pages = service.NewPageService(
		storage.NewPageStore(db),
		storage.NewSectionStore(db),
		storage.NewRevisionStore(db, a.cfg.MaxRevisions()),
		a.emitter,
		a.logger.Named("pages"),
	)

	lib, err := media.New(a.cfg.MediaDir(), a.cfg.Media.BaseURL,
		media.WithLogger(a.logger.Named("media")),
		media.OnChange(func(asset media.Asset, removed bool) {
			a.emitter.Emit(a.ctx, EventMediaChanged, map[string]any{"asset": asset, "removed": removed})
		}),
	)
	if err != nil {
		db.Close()
		return fmt.Errorf("open media library: %w", err)
	}
	a.media = lib
	if a.cfg.Media.Watch {
		if err := lib.Watch(ctx); err != nil {
			a.logger.Warn("media watch unavailable", zap.Error(err))
		}
	}

	a.driver = render.NewDriver(
		render.WithDriverLogger(a.logger.Named("render")),
		render.WithCallbackFactory(a.sectionCallbacks),
	)

	if schedule := a.cfg.AutosaveSchedule(); schedule != "" {
		saver, err := service.NewAutosaver(schedule, a.autosaveTick, a.logger.Named("autosave"))
		if err != nil {
			a.logger.Warn("autosave disabled", zap.Error(err))
		} else if err := saver.Start(ctx); err != nil {
			a.logger.Warn("autosave disabled", zap.Error(err))
		} else {
			a.autosave = saver
		}
	}

	a.watcher = newPageWatcher(ctx, a)
	a.watcher.Start()

	a.logger.Info("page builder started", zap.String("data_dir", a.cfg.DataDir))
	return nil
}

// Shutdown stops the workers, tears down the open page and closes storage.
func (a *App) Shutdown() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.autosave != nil {
		a.autosave.Stop()
	}
	a.ClosePage()
	if a.pages != nil {
		ctx := a.ctx
		if ctx == nil {
			ctx = context.Background()
		}
		a.pages.WaitPublishing(ctx)
	}
	if a.media != nil {
		a.media.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// Pages exposes the persistence collaborator.
func (a *App) Pages() *service.PageService { return a.pages }

// Media exposes the asset library.
func (a *App) Media() *media.Library { return a.media }

// ============================================================
// Pages
// ============================================================

func (a *App) ListPages() ([]PageSummary, error) {
	if a.pages == nil {
		return nil, ErrNotStarted
	}
	pages, err := a.pages.ListPages()
	if err != nil {
		return nil, err
	}
	out := make([]PageSummary, len(pages))
	for i, p := range pages {
		out[i] = PageSummary{ID: p.ID, Title: p.Title, Slug: p.Slug, Status: string(p.Status)}
	}
	return out, nil
}

func (a *App) CreatePage(ctx context.Context, title string) (*domain.Page, error) {
	if a.pages == nil {
		return nil, ErrNotStarted
	}
	return a.pages.CreatePage(ctx, title)
}

// OpenPage loads pageID into a fresh Store, replacing any open page.
func (a *App) OpenPage(ctx context.Context, pageID string) ([]domain.Section, error) {
	if a.pages == nil {
		return nil, ErrNotStarted
	}
	secs, err := a.pages.LoadPage(ctx, pageID)
	if err != nil {
		return nil, a.fail(ctx, err, "OpenPage")
	}

	a.ClosePage()

	store := builder.NewStore(pageID,
		builder.WithStoreLogger(a.logger.Named("store")),
		builder.WithRealTimePreview(a.cfg.Editor.RealtimePreview),
	)
	store.Load(secs)

	a.mu.Lock()
	a.store = store
	a.savedRevision = store.Revision()
	a.mu.Unlock()

	a.watcher.SetPage(pageID)
	a.logger.Info("page opened", zap.String("page_id", pageID), zap.Int("sections", len(secs)))
	return store.Sections(), nil
}

// ClosePage cancels the edit session and closes the Store.
func (a *App) ClosePage() {
	a.mu.Lock()
	store, sess := a.store, a.session
	a.store, a.session, a.editor = nil, nil, nil
	a.mu.Unlock()

	if sess != nil {
		sess.Cancel()
	}
	if store != nil {
		store.Close()
	}
	if a.watcher != nil {
		a.watcher.SetPage("")
	}
}

// PageID returns the open page, or "".
func (a *App) PageID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.store == nil {
		return ""
	}
	return a.store.PageID()
}

// Dirty reports whether the open page has changes not yet saved.
func (a *App) Dirty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.store != nil && a.store.Revision() != a.savedRevision
}

// SavePage persists the open page's committed sections.
func (a *App) SavePage(ctx context.Context) error {
	store, err := a.requireStore()
	if err != nil {
		return err
	}
	rev := store.Revision()
	if err := a.pages.SavePage(ctx, store.PageID(), store.Sections()); err != nil {
		return a.fail(ctx, err, "SavePage")
	}
	a.markSaved(store, rev)
	return nil
}

// PublishPage saves and publishes the open page.
func (a *App) PublishPage(ctx context.Context) (*domain.Page, error) {
	store, err := a.requireStore()
	if err != nil {
		return nil, err
	}
	rev := store.Revision()
	p, err := a.pages.PublishPage(ctx, store.PageID(), store.Sections())
	if err != nil {
		return nil, a.fail(ctx, err, "PublishPage")
	}
	a.markSaved(store, rev)
	return p, nil
}

// RestoreRevision writes a revision back and reloads the Store from it. An
// open edit session is cancelled first.
func (a *App) RestoreRevision(ctx context.Context, revisionID string) ([]domain.Section, error) {
	store, err := a.requireStore()
	if err != nil {
		return nil, err
	}
	secs, err := a.pages.RestoreRevision(ctx, store.PageID(), revisionID)
	if err != nil {
		return nil, a.fail(ctx, err, "RestoreRevision")
	}
	a.cancelSession()
	store.Load(secs)
	a.markSaved(store, store.Revision())
	return store.Sections(), nil
}

func (a *App) autosaveTick(ctx context.Context) error {
	if !a.Dirty() {
		return nil
	}
	if err := a.SavePage(ctx); err != nil {
		return err
	}
	a.emitter.Emit(ctx, service.EventAutosaved, a.PageID())
	return nil
}

// ── helpers ────────────────────────────────────────────────

func (a *App) requireStore() (*builder.Store, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.store == nil {
		return nil, ErrNoOpenPage
	}
	return a.store, nil
}

func (a *App) markSaved(store *builder.Store, rev uint64) {
	a.mu.Lock()
	if a.store == store {
		a.savedRevision = rev
	}
	a.mu.Unlock()
	a.watcher.Sync()
}

// fail classifies a persistence failure as a network error, reports it to
// the UI and returns it.
func (a *App) fail(ctx context.Context, err error, op string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	perr := recovery.Classify(err, recovery.Context{Kind: recovery.KindNetwork, Component: op})
	a.logger.Error("page operation failed", zap.String("op", op), zap.Error(err))
	a.emitter.Emit(ctx, service.EventPageError, perr)
	return perr
}
