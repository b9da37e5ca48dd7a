package recovery

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// State of an isolation boundary.
type State int

const (
	StateOK State = iota
	StateErrored
)

func (s State) String() string {
	if s == StateErrored {
		return "errored"
	}
	return "ok"
}

// Boundary wraps exactly one renderable unit. A failure inside the unit is
// captured, classified as a render error and held until a retry or reset
// succeeds; siblings rendered through their own boundaries are unaffected.
type Boundary struct {
	mu        sync.Mutex
	component string
	sectionID string
	callbacks Callbacks
	logger    *zap.Logger

	state     State
	err       *Error
	actions   []Action
	dismissed bool
}

// BoundaryOption configures a Boundary.
type BoundaryOption func(*Boundary)

// WithLogger routes capture and recovery logs to l.
func WithLogger(l *zap.Logger) BoundaryOption {
	return func(b *Boundary) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithCallbacks sets the recovery hooks offered when the unit fails.
func WithCallbacks(cb Callbacks) BoundaryOption {
	return func(b *Boundary) {
		b.callbacks = cb
	}
}

// NewBoundary creates a boundary in state ok for the named component.
// sectionID may be empty for units that are not a single section.
func NewBoundary(component, sectionID string, opts ...BoundaryOption) *Boundary {
	b := &Boundary{
		component: component,
		sectionID: sectionID,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetCallbacks replaces the recovery hooks; used when a call site re-renders
// the unit with fresh props.
func (b *Boundary) SetCallbacks(cb Callbacks) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.callbacks = cb
	if b.err != nil {
		b.actions = GenerateActions(b.err, cb)
	}
}

// Capture renders the unit through fn. A returned error or a panic moves the
// boundary to errored. While errored the child is not rendered and the held
// error is returned.
func (b *Boundary) Capture(fn func() error) *Error {
	b.mu.Lock()
	if b.state == StateErrored {
		err := b.err
		b.mu.Unlock()
		return err
	}
	b.mu.Unlock()

	failure := invoke(fn)
	if failure == nil {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = Classify(failure, Context{Kind: KindRender, Component: b.component, SectionID: b.sectionID})
	b.err.Kind = KindRender
	b.actions = GenerateActions(b.err, b.callbacks)
	b.state = StateErrored
	b.dismissed = false
	b.logger.Warn("render failure isolated",
		zap.String("component", b.component),
		zap.String("section_id", b.sectionID),
		zap.String("error", b.err.Message))
	return b.err
}

// Invoke runs the offered action of type t. A failing action leaves the error
// displayed and is returned. A successful retry or reset returns the boundary
// to ok; fallback and dismiss keep it errored, dismiss also hides the card.
func (b *Boundary) Invoke(t ActionType) error {
	b.mu.Lock()
	if b.state != StateErrored {
		b.mu.Unlock()
		return fmt.Errorf("boundary %s: no error to recover from", b.component)
	}
	var action *Action
	for i := range b.actions {
		if b.actions[i].Type == t {
			action = &b.actions[i]
			break
		}
	}
	if action == nil {
		b.mu.Unlock()
		return fmt.Errorf("boundary %s: action %q not offered", b.component, t)
	}
	a := *action
	b.mu.Unlock()

	if err := run(a); err != nil {
		b.logger.Warn("recovery action failed",
			zap.String("component", b.component),
			zap.String("section_id", b.sectionID),
			zap.String("action", string(t)),
			zap.Error(err))
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	switch t {
	case ActionRetry, ActionReset:
		b.clearLocked()
	case ActionDismiss:
		b.dismissed = true
	}
	return nil
}

// Reset clears the held error, as when the call site remounts the child.
func (b *Boundary) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clearLocked()
}

func (b *Boundary) clearLocked() {
	b.state = StateOK
	b.err = nil
	b.actions = nil
	b.dismissed = false
}

func (b *Boundary) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Err returns the held error, or nil while ok.
func (b *Boundary) Err() *Error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Actions returns a copy of the recovery actions currently offered.
func (b *Boundary) Actions() []Action {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Action, len(b.actions))
	copy(out, b.actions)
	return out
}

// Dismissed reports whether the operator hid the error card.
func (b *Boundary) Dismissed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dismissed
}

func (b *Boundary) Component() string { return b.component }
func (b *Boundary) SectionID() string { return b.sectionID }

// invoke calls fn and returns whatever it failed with: its error or the
// recovered panic value.
func invoke(fn func() error) (failure any) {
	defer func() {
		if rec := recover(); rec != nil {
			failure = rec
		}
	}()
	if err := fn(); err != nil {
		return err
	}
	return nil
}
