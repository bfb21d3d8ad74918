// Package communicators implements the three in-process messaging
// primitives AEX exposes to handlers via GlobalContext: Pipe (1:1 FIFO with
// a single consumer), Spread (1:N broadcast), and Event (N:N filtered
// fan-out). All three are type-erased: channels are discovered by string
// name, and the payload type is known only to the registrant and the
// sender, checked at delivery time via a runtime type tag.
//
// Grounded on original_source/src/communicators/{pipe,spreader,event}.rs.
package communicators

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// PipeManager implements spec.md §4.8 Pipe: register creates an unbounded
// channel and spawns a single consumer task invoking handler per message;
// send enqueues FIFO. Duplicate names and type mismatches are errors.
type PipeManager struct {
	mu    sync.RWMutex
	pipes map[string]*pipeEntry
}

type pipeEntry struct {
	typ   reflect.Type
	queue *unboundedQueue
}

// NewPipeManager returns an empty PipeManager.
func NewPipeManager() *PipeManager {
	return &PipeManager{pipes: make(map[string]*pipeEntry)}
}

// RegisterPipe creates a consumer under name invoking handler for each
// message sent to it. Returns an error if name is already registered.
func RegisterPipe[T any](p *PipeManager, ctx context.Context, name string, handler func(context.Context, T)) error {
	p.mu.Lock()
	if _, exists := p.pipes[name]; exists {
		p.mu.Unlock()
		return fmt.Errorf("pipe registration failed: name %q is already in use", name)
	}
	entry := &pipeEntry{
		typ:   reflect.TypeOf((*T)(nil)).Elem(),
		queue: newUnboundedQueue(),
	}
	p.pipes[name] = entry
	p.mu.Unlock()

	go func() {
		for {
			v, ok := entry.queue.pop()
			if !ok {
				return
			}
			msg, ok := v.(T)
			if !ok {
				continue
			}
			handler(ctx, msg)
		}
	}()
	return nil
}

// SendPipe enqueues msg for delivery to name's registered consumer. An
// unregistered name or a type mismatch is an error; no side effect occurs.
func SendPipe[T any](p *PipeManager, name string, msg T) error {
	p.mu.RLock()
	entry, ok := p.pipes[name]
	p.mu.RUnlock()
	if !ok {
		return fmt.Errorf("pipe %q not registered", name)
	}
	if entry.typ != reflect.TypeOf((*T)(nil)).Elem() {
		return fmt.Errorf("pipe %q: type mismatch", name)
	}
	entry.queue.push(msg)
	return nil
}

// Close terminates every consumer task by closing its queue. Safe to call
// once; a PipeManager is not reusable after Close.
func (p *PipeManager) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, entry := range p.pipes {
		entry.queue.close()
	}
}
