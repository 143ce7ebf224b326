package indexsync

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchsync/internal/domain/event"
)

// Listener observes applied events. Errors and panics are logged and never
// reach the engine or other listeners.
type Listener func(ctx context.Context, ev event.Event, res event.Result) error

// ListenerID identifies a registration for RemoveListener.
type ListenerID uint64

type listenerEntry struct {
	id ListenerID
	fn Listener
}

// AddListener registers fn for events of type t.
func (e *Engine) AddListener(t event.Type, fn Listener) ListenerID {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	e.listeners[t] = append(e.listeners[t], listenerEntry{id: e.nextID, fn: fn})
	return e.nextID
}

// RemoveListener unregisters id. It reports whether the listener was found.
func (e *Engine) RemoveListener(t event.Type, id ListenerID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	entries := e.listeners[t]
	for i, l := range entries {
		if l.id == id {
			e.listeners[t] = append(entries[:i:i], entries[i+1:]...)
			return true
		}
	}
	return false
}

func (e *Engine) notify(ctx context.Context, ev event.Event, res event.Result) {
	e.mu.Lock()
	entries := append([]listenerEntry(nil), e.listeners[ev.Type]...)
	e.mu.Unlock()

	for _, l := range entries {
		if err := callListener(ctx, l.fn, ev, res); err != nil {
			e.logger.Warn("sync listener failed",
				zap.String("id", ev.ID),
				zap.String("event", string(ev.Type)),
				zap.Error(err))
		}
	}
}

func callListener(ctx context.Context, fn Listener, ev event.Event, res event.Result) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	return fn(ctx, ev, res)
}
