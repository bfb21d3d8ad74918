package communicators

import (
	"context"
	"reflect"
	"sync"

	"github.com/free-web-movement/aex/internal/errs"
)

// EventManager implements spec.md §4.8 Event: on registers a handler under
// a channel name alongside any previously registered handlers for that
// name, possibly of a different payload type; notify invokes every
// type-matched handler concurrently, silently skipping mismatched ones,
// and returns once all matching handlers have been spawned rather than
// waiting for them to complete.
type EventManager struct {
	mu       sync.RWMutex
	handlers map[string][]eventHandler
}

type eventHandler struct {
	typ    reflect.Type
	invoke func(context.Context, interface{})
}

// NewEventManager returns an empty EventManager.
func NewEventManager() *EventManager {
	return &EventManager{handlers: make(map[string][]eventHandler)}
}

// On registers handler under eventName. Order within a notify call follows
// registration order, but handler completion order is unspecified.
func On[D any](e *EventManager, eventName string, handler func(context.Context, D)) {
	entry := eventHandler{
		typ: reflect.TypeOf((*D)(nil)).Elem(),
		invoke: func(ctx context.Context, data interface{}) {
			typed, ok := data.(D)
			if !ok {
				return
			}
			handler(ctx, typed)
		},
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[eventName] = append(e.handlers[eventName], entry)
}

// Notify invokes every handler registered under eventName whose declared
// type matches D, each in its own goroutine, recovering panics so one
// failing handler does not take down the others or unregister itself.
func Notify[D any](e *EventManager, ctx context.Context, eventName string, data D) {
	wantType := reflect.TypeOf((*D)(nil)).Elem()

	e.mu.RLock()
	entries := append([]eventHandler(nil), e.handlers[eventName]...)
	e.mu.RUnlock()

	for _, entry := range entries {
		if entry.typ != wantType {
			continue
		}
		entry := entry
		go func() {
			defer func() {
				if r := recover(); r != nil {
					errs.LogErrorInner(ctx, nil, "event handler panic for ", eventName, ": ", r)
				}
			}()
			entry.invoke(ctx, data)
		}()
	}
}
