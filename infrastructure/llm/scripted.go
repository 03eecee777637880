package llm

import (
	"context"
	"sync"
)

// ScriptedProvider returns a predefined sequence of responses for
// deterministic testing of the translator and the agent loop.
type ScriptedProvider struct {
	responses []string
	requests  []CompletionRequest
	index     int
	err       error
	mu        sync.Mutex
}

// NewScriptedProvider creates a provider that replies with the given
// responses in order.
func NewScriptedProvider(responses ...string) *ScriptedProvider {
	return &ScriptedProvider{responses: responses}
}

// FailWith makes every subsequent Complete call return err.
func (p *ScriptedProvider) FailWith(err error) *ScriptedProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
	return p
}

// Name returns the provider name.
func (p *ScriptedProvider) Name() string {
	return "scripted"
}

// Complete returns the next scripted response. Requests are recorded so
// tests can assert on composed messages. An exhausted script returns an
// empty response.
func (p *ScriptedProvider) Complete(_ context.Context, req CompletionRequest) (CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, req)

	if p.err != nil {
		return CompletionResponse{}, p.err
	}
	if p.index >= len(p.responses) {
		return CompletionResponse{Content: ""}, nil
	}

	content := p.responses[p.index]
	p.index++
	return CompletionResponse{Content: content}, nil
}

// Requests returns the recorded completion requests.
func (p *ScriptedProvider) Requests() []CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]CompletionRequest, len(p.requests))
	copy(out, p.requests)
	return out
}

// Calls returns the number of Complete invocations.
func (p *ScriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}
