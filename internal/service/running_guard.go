package service

import (
	"context"
	"sync"
	"time"
)

// ExportedPublishGuard is an exported alias so _test packages can test the guard.
type ExportedPublishGuard = publishGuard

// ─────────────────────────────────────────────────────────────
// publishGuard: one publish per page at a time
// ─────────────────────────────────────────────────────────────

type publishRun struct {
	started time.Time
	done    chan struct{}
}

// publishGuard tracks the publish running for each page. A second publish
// of a page is turned away with the start time of the one in progress.
type publishGuard struct {
	mu     sync.Mutex
	active map[string]*publishRun
}

// Begin claims pageID for a publish starting at now. If the page is already
// being published it returns the start time of that run and false.
func (g *publishGuard) Begin(pageID string, now time.Time) (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active == nil {
		g.active = make(map[string]*publishRun)
	}
	if run, ok := g.active[pageID]; ok {
		return run.started, false
	}
	g.active[pageID] = &publishRun{started: now, done: make(chan struct{})}
	return now, true
}

// End releases pageID and wakes its waiters. Ending a page that is not being
// published is a no-op.
func (g *publishGuard) End(pageID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if run, ok := g.active[pageID]; ok {
		close(run.done)
		delete(g.active, pageID)
	}
}

// Publishing reports whether pageID is being published and since when.
func (g *publishGuard) Publishing(pageID string) (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	run, ok := g.active[pageID]
	if !ok {
		return time.Time{}, false
	}
	return run.started, true
}

// Wait blocks until the publish of pageID finishes, or every publish running
// at the time of the call when pageID is "". It returns ctx.Err() if ctx ends
// first.
func (g *publishGuard) Wait(ctx context.Context, pageID string) error {
	g.mu.Lock()
	var pending []chan struct{}
	for id, run := range g.active {
		if pageID == "" || id == pageID {
			pending = append(pending, run.done)
		}
	}
	g.mu.Unlock()

	for _, done := range pending {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
