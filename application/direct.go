// Package application provides the translation services: the one-shot
// direct translator, the bounded agent loop, and the orchestrator that
// selects between them.
package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/queryagent/domain/query"
	"github.com/felixgeelhaar/queryagent/infrastructure/llm"
	"github.com/felixgeelhaar/queryagent/infrastructure/logging"
	"github.com/felixgeelhaar/queryagent/infrastructure/prompt"
	"github.com/felixgeelhaar/queryagent/infrastructure/telemetry"
)

// TranslationError indicates the model produced no usable SQL.
type TranslationError struct {
	Reason string
	Raw    string
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translation failed: %s", e.Reason)
}

// DirectTranslator performs one-shot natural-language to SQL translation:
// a single model exchange at temperature zero followed by the safety guard.
type DirectTranslator struct {
	provider llm.Provider
	builder  *prompt.Builder
	model    string
	metrics  telemetry.Metrics
}

// NewDirectTranslator creates a direct translator.
func NewDirectTranslator(provider llm.Provider, builder *prompt.Builder, model string, metrics telemetry.Metrics) *DirectTranslator {
	if metrics == nil {
		metrics = telemetry.NoopMetrics{}
	}
	return &DirectTranslator{
		provider: provider,
		builder:  builder,
		model:    model,
		metrics:  metrics,
	}
}

// Translate runs one model exchange and validates the result under the
// given policy. A guard rejection is not retried here; it propagates to
// the caller.
func (t *DirectTranslator) Translate(ctx context.Context, question string, policy query.Policy) (query.Statement, error) {
	req := llm.CompletionRequest{
		Model: t.model,
		Messages: []llm.Message{
			llm.SystemMessage(t.builder.System(policy, prompt.ModeDirect, nil)),
			llm.UserMessage(t.builder.User(question)),
		},
		Temperature: 0,
	}

	start := time.Now()
	resp, err := t.provider.Complete(ctx, req)
	t.metrics.RecordModelCall(ctx, t.provider.Name(), time.Since(start), err)
	if err != nil {
		return query.Statement{}, err
	}

	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return query.Statement{}, &TranslationError{Reason: "model returned an empty response"}
	}

	stmt, err := query.Validate(content, policy, query.ProvenanceDirect)
	if err != nil {
		if query.IsGuardViolation(err) {
			t.metrics.RecordGuardRejection(ctx, string(query.ProvenanceDirect))
			return query.Statement{}, err
		}
		return query.Statement{}, &TranslationError{Reason: err.Error(), Raw: content}
	}

	logging.Debug().
		Add(logging.Mode("direct")).
		Add(logging.SQL(stmt.Text)).
		Msg("translated question")

	return stmt, nil
}
