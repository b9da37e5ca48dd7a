package service

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter: decouples services from the editor transport
// ─────────────────────────────────────────────────────────────

// EventEmitter is an interface for emitting events to the editor UI.
// Services receive this interface instead of a transport handle,
// which makes them independently testable with a mock emitter.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// Event names emitted by the page services.
const (
	EventPageSaved     = "page:saved"
	EventPagePublished = "page:published"
	EventPageRestored  = "page:restored"
	EventPageReloaded  = "page:reloaded"
	EventPageError     = "page:error"
	EventAutosaved     = "page:autosaved"
)

// LogEmitter writes events to a zap logger. It is the emitter used when no
// UI is attached, e.g. the CLI and the MCP server.
type LogEmitter struct {
	Logger *zap.Logger
}

func (e LogEmitter) Emit(_ context.Context, event string, data any) {
	if e.Logger == nil {
		return
	}
	e.Logger.Info("event", zap.String("event", event), zap.Any("data", data))
}

// MockEmitter is a test-friendly EventEmitter that records all calls.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Names returns the recorded event names in order.
func (m *MockEmitter) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Events))
	for i, e := range m.Events {
		out[i] = e.Event
	}
	return out
}
