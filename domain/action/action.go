// Package action provides the named capabilities the agent loop can
// dispatch to, and the registry that resolves them by name.
package action

import "context"

// Handler is a bounded capability invokable by name from the agent loop.
type Handler interface {
	// Name returns the stable string identifier for the handler.
	Name() string

	// Description returns a model-facing description of what the handler does.
	Description() string

	// Execute runs the handler with the literal action input.
	// Failures are reported in-band as a failure Result so the model can
	// self-correct from the observation; Execute never panics the loop.
	Execute(ctx context.Context, input string) Result
}

// Func adapts a function to the Handler interface.
type Func struct {
	HandlerName string
	HandlerDesc string
	Fn          func(ctx context.Context, input string) Result
}

// Name returns the handler name.
func (f Func) Name() string { return f.HandlerName }

// Description returns the handler description.
func (f Func) Description() string { return f.HandlerDesc }

// Execute invokes the wrapped function.
func (f Func) Execute(ctx context.Context, input string) Result {
	return f.Fn(ctx, input)
}
