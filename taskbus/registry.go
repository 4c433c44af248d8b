package taskbus

import (
	"context"
	"reflect"
	"sync"
)

// CommandHandlerFunc is the erased form a command handler takes once bound.
type CommandHandlerFunc func(ctx context.Context, cmd any) (any, error)

// QueryHandlerFunc is the erased form a query handler takes once bound.
type QueryHandlerFunc func(ctx context.Context, q any) (any, error)

// CommandRegistry owns the command-type-to-handler mapping and nothing else:
// no validation, no dispatch policy. Register is last-write-wins; a nil
// handler is storable here because rejecting it is bus policy, not registry
// policy.
//
// Safe for concurrent use. Handler is the dispatch hot path; Register runs
// during wiring and the occasional live rebind.
type CommandRegistry struct {
	mu       sync.RWMutex
	handlers map[reflect.Type]CommandHandlerFunc
}

// NewCommandRegistry returns an empty command registry.
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{handlers: make(map[reflect.Type]CommandHandlerFunc)}
}

// Register stores or overwrites the handler for t and reports whether an
// existing association was replaced.
func (r *CommandRegistry) Register(t reflect.Type, fn CommandHandlerFunc) (replaced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, replaced = r.handlers[t]
	r.handlers[t] = fn

	return replaced
}

// Handler returns the handler currently associated with t, if any.
func (r *CommandRegistry) Handler(t reflect.Type) (CommandHandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.handlers[t]

	return fn, ok
}

// Handlers returns an independent copy of the full mapping. Mutating the
// returned map never affects the registry, and later registrations never
// show up in a copy handed out earlier.
func (r *CommandRegistry) Handlers() map[reflect.Type]CommandHandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[reflect.Type]CommandHandlerFunc, len(r.handlers))
	for t, fn := range r.handlers {
		out[t] = fn
	}

	return out
}

// QueryRegistry mirrors CommandRegistry for the read side. Kept as a
// separate type so a wiring mistake cannot land a query handler in the
// command map or vice versa.
type QueryRegistry struct {
	mu       sync.RWMutex
	handlers map[reflect.Type]QueryHandlerFunc
}

// NewQueryRegistry returns an empty query registry.
func NewQueryRegistry() *QueryRegistry {
	return &QueryRegistry{handlers: make(map[reflect.Type]QueryHandlerFunc)}
}

// Register stores or overwrites the handler for t and reports whether an
// existing association was replaced.
func (r *QueryRegistry) Register(t reflect.Type, fn QueryHandlerFunc) (replaced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, replaced = r.handlers[t]
	r.handlers[t] = fn

	return replaced
}

// Handler returns the handler currently associated with t, if any.
func (r *QueryRegistry) Handler(t reflect.Type) (QueryHandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.handlers[t]

	return fn, ok
}

// Handlers returns an independent copy of the full mapping.
func (r *QueryRegistry) Handlers() map[reflect.Type]QueryHandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[reflect.Type]QueryHandlerFunc, len(r.handlers))
	for t, fn := range r.handlers {
		out[t] = fn
	}

	return out
}

// listenerEntry pairs the erased callable with the raw listener value. The
// raw value is kept so the event bus can detect QueueableListener and
// resolve a listener name when enqueuing.
type listenerEntry struct {
	call func(ctx context.Context, e any) error
	raw  any
}

// ListenerRegistry maps a domain event type to its bound listeners. Unlike
// the command and query registries it accumulates: an event type may carry
// any number of listeners, invoked in bind order.
type ListenerRegistry struct {
	mu      sync.RWMutex
	entries map[reflect.Type][]listenerEntry
}

// NewListenerRegistry returns an empty listener registry.
func NewListenerRegistry() *ListenerRegistry {
	return &ListenerRegistry{entries: make(map[reflect.Type][]listenerEntry)}
}

func (r *ListenerRegistry) add(t reflect.Type, e listenerEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[t] = append(r.entries[t], e)
}

// forType returns a copy of the listener list for t, so publishing iterates
// a stable snapshot even while new listeners are being bound.
func (r *ListenerRegistry) forType(t reflect.Type) []listenerEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]listenerEntry(nil), r.entries[t]...)
}

// Len reports how many listeners are bound for t.
func (r *ListenerRegistry) Len(t reflect.Type) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries[t])
}
