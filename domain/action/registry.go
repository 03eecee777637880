package action

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry errors.
var (
	// ErrEmptyName indicates a handler was registered with an empty name.
	ErrEmptyName = errors.New("handler name cannot be empty")

	// ErrHandlerExists indicates a handler with the same name already exists.
	ErrHandlerExists = errors.New("handler already registered")
)

// Registry resolves action handlers by name.
// Registration happens at startup; lookup and dispatch are safe for
// concurrent use across requests.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler to the registry.
func (r *Registry) Register(h Handler) error {
	if h.Name() == "" {
		return ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.handlers[h.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrHandlerExists, h.Name())
	}
	r.handlers[h.Name()] = h
	return nil
}

// Get retrieves a handler by name.
func (r *Registry) Get(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the registered handler names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch resolves and executes the named handler.
// An unregistered name yields a failure Result, not an error, so the
// agent loop can feed it back as an observation.
func (r *Registry) Dispatch(ctx context.Context, name, input string) Result {
	h, ok := r.Get(name)
	if !ok {
		return Failure(FailureDispatch,
			fmt.Sprintf("no action named %q; available actions: %v", name, r.Names()))
	}
	return h.Execute(ctx, input)
}
