package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultAutosaveSchedule saves the open page every 30 seconds.
const DefaultAutosaveSchedule = "@every 30s"

// Autosaver runs a save callback on a cron schedule. Ticks that arrive while
// the previous save is still running are skipped.
type Autosaver struct {
	mu       sync.Mutex
	schedule string
	save     func(ctx context.Context) error
	logger   *zap.Logger
	cron     *cron.Cron
	cancel   context.CancelFunc
}

// NewAutosaver validates schedule and returns a stopped autosaver.
func NewAutosaver(schedule string, save func(ctx context.Context) error, logger *zap.Logger) (*Autosaver, error) {
	if schedule == "" {
		schedule = DefaultAutosaveSchedule
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("autosave schedule %q: %w", schedule, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Autosaver{schedule: schedule, save: save, logger: logger}, nil
}

// Start schedules the callback. Calling Start twice is a no-op.
func (a *Autosaver) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cron != nil {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(a.schedule, func() { a.Tick(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("autosave: %w", err)
	}
	c.Start()
	a.cron = c
	a.cancel = cancel
	a.logger.Info("autosave scheduled", zap.String("schedule", a.schedule))
	return nil
}

// Tick runs one save immediately.
func (a *Autosaver) Tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := a.save(ctx); err != nil {
		a.logger.Warn("autosave failed", zap.Error(err))
	}
}

// Stop cancels the schedule and waits for a running save to finish.
func (a *Autosaver) Stop() {
	a.mu.Lock()
	c, cancel := a.cron, a.cancel
	a.cron, a.cancel = nil, nil
	a.mu.Unlock()
	if c == nil {
		return
	}
	cancel()
	<-c.Stop().Done()
}

func (a *Autosaver) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cron != nil
}
