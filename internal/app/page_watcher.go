package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"pagebuilder/internal/service"
)

// pageWatcher polls the database for changes to the open page made by
// another process (e.g. a standalone MCP server) and reloads the Store when
// nothing local would be lost.
type pageWatcher struct {
	ctx      context.Context
	app      *App
	interval time.Duration

	mu     sync.Mutex
	pageID string
	last   string // page fingerprint
	stopCh chan struct{}
	doneCh chan struct{}
}

func newPageWatcher(ctx context.Context, app *App) *pageWatcher {
	return &pageWatcher{ctx: ctx, app: app, interval: 2 * time.Second}
}

// SetPage updates the watched page. "" stops watching.
func (w *pageWatcher) SetPage(pageID string) {
	w.mu.Lock()
	w.pageID = pageID
	w.last = ""
	w.mu.Unlock()
	if pageID != "" {
		w.Sync()
	}
}

// Sync records the current fingerprint so the app's own writes are not
// mistaken for external ones.
func (w *pageWatcher) Sync() {
	w.mu.Lock()
	pageID := w.pageID
	w.mu.Unlock()
	if pageID == "" {
		return
	}
	fp, err := w.fingerprint(pageID)
	if err != nil {
		return
	}
	w.mu.Lock()
	if w.pageID == pageID {
		w.last = fp
	}
	w.mu.Unlock()
}

// Start begins the polling loop. Should be called once on app startup.
func (w *pageWatcher) Start() {
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	go w.pollLoop()
}

// Stop terminates the polling loop and waits for it to exit.
func (w *pageWatcher) Stop() {
	if w.stopCh == nil {
		return
	}
	close(w.stopCh)
	<-w.doneCh
	w.stopCh = nil
}

func (w *pageWatcher) pollLoop() {
	defer close(w.doneCh)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.check()
		case <-w.stopCh:
			return
		case <-w.ctx.Done():
			return
		}
	}
}

func (w *pageWatcher) fingerprint(pageID string) (string, error) {
	db := w.app.db.Conn()
	var updated, current string
	var count int
	err := db.QueryRow(`
		SELECT COALESCE(p.updated_at, ''),
		       (SELECT COUNT(*) FROM sections s WHERE s.page_id = p.id),
		       COALESCE((SELECT r.current_revision_id FROM revision_state r WHERE r.page_id = p.id), '')
		FROM pages p WHERE p.id = ?`, pageID,
	).Scan(&updated, &count, &current)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d:%s", updated, count, current), nil
}

// check reloads the Store when the stored page changed since the last look,
// unless a section is being edited or the Store has unsaved changes.
func (w *pageWatcher) check() {
	w.mu.Lock()
	pageID, last := w.pageID, w.last
	w.mu.Unlock()
	if pageID == "" {
		return
	}

	fp, err := w.fingerprint(pageID)
	if err != nil {
		return
	}
	if last == "" || fp == last {
		w.mu.Lock()
		if w.pageID == pageID {
			w.last = fp
		}
		w.mu.Unlock()
		return
	}

	if w.app.Editor() != nil || w.app.Dirty() {
		w.app.logger.Warn("page changed externally, reload deferred", zap.String("page_id", pageID))
		return
	}

	secs, err := w.app.pages.LoadPage(w.ctx, pageID)
	if err != nil {
		w.app.logger.Warn("reload page failed", zap.String("page_id", pageID), zap.Error(err))
		return
	}
	store, err := w.app.requireStore()
	if err != nil || store.PageID() != pageID {
		return
	}
	store.Load(secs)
	w.app.markSaved(store, store.Revision())

	w.app.logger.Info("page reloaded", zap.String("page_id", pageID))
	w.app.emitter.Emit(w.ctx, service.EventPageReloaded, map[string]string{"pageId": pageID})
}
