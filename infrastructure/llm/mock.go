package llm

import (
	"context"
	"sync"
)

// MockProvider returns one fixed response (or error) for every Complete
// call. Use ScriptedProvider when a test needs a response sequence.
type MockProvider struct {
	response CompletionResponse
	err      error
	calls    int
	mu       sync.Mutex
}

// NewMockProvider creates a mock provider with the given response content.
func NewMockProvider(content string) *MockProvider {
	return &MockProvider{response: CompletionResponse{Content: content}}
}

// WithError makes every Complete call return err instead of the response.
func (p *MockProvider) WithError(err error) *MockProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
	return p
}

// Name returns the provider name.
func (p *MockProvider) Name() string {
	return "mock"
}

// Complete returns the fixed response.
func (p *MockProvider) Complete(_ context.Context, _ CompletionRequest) (CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++
	if p.err != nil {
		return CompletionResponse{}, p.err
	}
	return p.response, nil
}

// Calls returns the number of Complete invocations.
func (p *MockProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Reset clears the call count.
func (p *MockProvider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = 0
}
