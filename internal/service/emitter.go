package service

import (
	"context"
	"sync"
)

// Events emitted to the frontend.
const (
	EventPageChanged     = "page:changed"
	EventStateChanged    = "editor:state"
	EventHistoryChanged  = "history:changed"
	EventSyncStatus      = "sync:status"
	EventExternalChange  = "page:external-change"
	EventPublishFinished = "publish:finished"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter: decouples services from wailsRuntime
// ─────────────────────────────────────────────────────────────

// EventEmitter sends events to whatever renders the builder. The desktop
// shell forwards to wailsRuntime.EventsEmit; headless modes drop them.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// NoopEmitter discards every event.
type NoopEmitter struct{}

func (NoopEmitter) Emit(context.Context, string, any) {}

// MockEmitter records emissions for tests. Safe for concurrent use since
// autosave reports status from its own goroutine.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Named returns the recorded payloads of one event, oldest first.
func (m *MockEmitter) Named(event string) []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []any
	for _, e := range m.Events {
		if e.Event == event {
			out = append(out, e.Data)
		}
	}
	return out
}

// Count returns how many times event was emitted.
func (m *MockEmitter) Count(event string) int {
	return len(m.Named(event))
}
