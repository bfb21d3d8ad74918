package communicators

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// SpreadManager implements spec.md §4.8 Spread: subscribe lazily creates a
// broadcast channel on first call and spawns a per-subscriber consumer
// task; publish delivers to every current subscriber in publish order, or
// succeeds silently if nobody has subscribed. A slow subscriber may miss
// messages if its buffer fills — the channel is bounded and a full
// subscriber simply misses the message being published (the newest one).
type SpreadManager struct {
	mu   sync.RWMutex
	hubs map[string]*spreadHub
}

type spreadHub struct {
	typ         reflect.Type
	mu          sync.RWMutex
	subscribers []chan interface{}
}

const spreadSubscriberBuffer = 1024

// NewSpreadManager returns an empty SpreadManager.
func NewSpreadManager() *SpreadManager {
	return &SpreadManager{hubs: make(map[string]*spreadHub)}
}

// SubscribeSpread registers handler as a consumer of channel name.
func SubscribeSpread[T any](s *SpreadManager, ctx context.Context, name string, handler func(context.Context, T)) error {
	wantType := reflect.TypeOf((*T)(nil)).Elem()

	s.mu.Lock()
	hub, exists := s.hubs[name]
	if !exists {
		hub = &spreadHub{typ: wantType}
		s.hubs[name] = hub
	}
	s.mu.Unlock()

	if hub.typ != wantType {
		return fmt.Errorf("spread %q type mismatch", name)
	}

	ch := make(chan interface{}, spreadSubscriberBuffer)
	hub.mu.Lock()
	hub.subscribers = append(hub.subscribers, ch)
	hub.mu.Unlock()

	go func() {
		for v := range ch {
			msg, ok := v.(T)
			if !ok {
				continue
			}
			handler(ctx, msg)
		}
	}()
	return nil
}

// PublishSpread delivers msg to every current subscriber of name. If name
// has no subscribers the call still succeeds: nobody is listening yet.
func PublishSpread[T any](s *SpreadManager, name string, msg T) error {
	s.mu.RLock()
	hub, exists := s.hubs[name]
	s.mu.RUnlock()
	if !exists {
		return nil
	}
	if hub.typ != reflect.TypeOf((*T)(nil)).Elem() {
		return fmt.Errorf("spread %q type mismatch", name)
	}

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	for _, ch := range hub.subscribers {
		select {
		case ch <- msg:
		default:
			// subscriber is lagging; drop rather than block the publisher.
		}
	}
	return nil
}
