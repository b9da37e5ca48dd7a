package builder

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet period after the last content keystroke before
// the draft is re-committed.
const DefaultDebounce = time.Second

// Timer is a scheduled task handle.
type Timer interface {
	Stop() bool
}

// Scheduler arms scheduled tasks. The real implementation uses time.AfterFunc;
// tests substitute a manual clock.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealScheduler returns the wall-clock scheduler.
func RealScheduler() Scheduler { return realScheduler{} }

// debouncer owns at most one pending timer. Arming cancels the previous
// timer and bumps seq so a callback that already left the timer queue is
// dropped when it finally runs.
type debouncer struct {
	mu      sync.Mutex
	sched   Scheduler
	delay   time.Duration
	timer   Timer
	pending bool
	seq     uint64
	stopped bool
}

func newDebouncer(sched Scheduler, delay time.Duration) *debouncer {
	return &debouncer{sched: sched, delay: delay}
}

// arm schedules fn after the delay, replacing any unfired timer.
func (d *debouncer) arm(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	current := d.seq
	d.pending = true
	d.timer = d.sched.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.stopped || !d.pending || d.seq != current {
			d.mu.Unlock()
			return
		}
		d.pending = false
		d.timer = nil
		d.mu.Unlock()
		fn()
	})
}

// cancel drops the pending timer, if any.
func (d *debouncer) cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
}

// stop cancels and makes every later arm a no-op.
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.stopped = true
}

func (d *debouncer) cancelLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
	d.pending = false
}

func (d *debouncer) isPending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}
