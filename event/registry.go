package event

import (
	"context"
	"fmt"
	"sync"
)

// HandlerFunc performs the business mutation for one event type.
// Handlers are external collaborators from the pipeline's perspective.
type HandlerFunc func(ctx context.Context, ev Event) error

/* Registry maps event types to handlers
 * Populated at startup; unknown types are a first-class outcome
 * (ErrEventNotSupported), not a crash
 */
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]HandlerFunc),
	}
}

// Register binds a handler to an event type, replacing any previous binding.
func (r *Registry) Register(eventType string, handler HandlerFunc) error {
	if eventType == "" {
		return fmt.Errorf("event type cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("handler cannot be nil for event type %s", eventType)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[eventType] = handler
	return nil
}

// Get returns the handler for an event type, or ErrEventNotSupported.
func (r *Registry) Get(eventType string) (HandlerFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, ok := r.handlers[eventType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEventNotSupported, eventType)
	}
	return handler, nil
}

// Types returns the registered event types.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	return types
}
