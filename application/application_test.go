package application

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/felixgeelhaar/queryagent/domain/query"
	"github.com/felixgeelhaar/queryagent/domain/trace"
	"github.com/felixgeelhaar/queryagent/infrastructure/audit"
	"github.com/felixgeelhaar/queryagent/infrastructure/executor"
	"github.com/felixgeelhaar/queryagent/infrastructure/llm"
	"github.com/felixgeelhaar/queryagent/infrastructure/prompt"
)

const testSchema = `contacts(id integer, name text, email text)
cases(id integer, contact_id integer, status text, created_at timestamptz)`

// fakeExecutor scripts database responses for orchestration tests.
type fakeExecutor struct {
	rows      query.ResultSet
	execErr   error
	tables    []string
	columns   []executor.Column
	gotSQL    []string
	gotTables int
}

func (f *fakeExecutor) ExecSelect(_ context.Context, sql string, _ ...any) (query.ResultSet, error) {
	f.gotSQL = append(f.gotSQL, sql)
	if f.execErr != nil {
		return query.ResultSet{}, f.execErr
	}
	return f.rows, nil
}

func (f *fakeExecutor) Tables(context.Context) ([]string, error) {
	f.gotTables++
	return f.tables, nil
}

func (f *fakeExecutor) Describe(_ context.Context, table string) ([]executor.Column, error) {
	return f.columns, nil
}

func (f *fakeExecutor) Sample(_ context.Context, table string, limit int) (query.ResultSet, error) {
	return f.rows, nil
}

// flakyProvider fails a fixed number of calls, then delegates.
type flakyProvider struct {
	failures int
	inner    llm.Provider
	calls    int
}

func (p *flakyProvider) Name() string { return p.inner.Name() }

func (p *flakyProvider) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	p.calls++
	if p.calls <= p.failures {
		return llm.CompletionResponse{}, &llm.ModelError{Provider: p.Name(), Message: "connection refused"}
	}
	return p.inner.Complete(ctx, req)
}

func newOrchestrator(t *testing.T, provider llm.Provider, exec executor.Executor, opts ...Option) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(OrchestratorConfig{
		Provider: provider,
		Builder:  prompt.NewBuilder(testSchema),
		Executor: exec,
		Model:    "test-model",
	}, opts...)
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}
	return o
}

func TestDirectTranslatorCountQuery(t *testing.T) {
	provider := llm.NewScriptedProvider("SELECT COUNT(*) FROM contacts")
	translator := NewDirectTranslator(provider, prompt.NewBuilder(testSchema), "test-model", nil)

	stmt, err := translator.Translate(context.Background(), "count all contacts", query.ReadOnlyPolicy())
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if stmt.Text != "SELECT COUNT(*) FROM contacts" {
		t.Errorf("Text = %q, want count statement", stmt.Text)
	}
	if strings.Contains(stmt.Text, "LIMIT") {
		t.Error("aggregate query must not carry a LIMIT clause")
	}
	if stmt.Provenance != query.ProvenanceDirect {
		t.Errorf("Provenance = %q, want %q", stmt.Provenance, query.ProvenanceDirect)
	}

	reqs := provider.Requests()
	if len(reqs) != 1 {
		t.Fatalf("model calls = %d, want 1", len(reqs))
	}
	if reqs[0].Temperature != 0 {
		t.Errorf("Temperature = %v, want 0", reqs[0].Temperature)
	}
}

func TestDirectTranslatorStripsFence(t *testing.T) {
	provider := llm.NewScriptedProvider("```sql\nSELECT id FROM cases LIMIT 10\n```")
	translator := NewDirectTranslator(provider, prompt.NewBuilder(testSchema), "test-model", nil)

	stmt, err := translator.Translate(context.Background(), "list cases", query.ReadOnlyPolicy())
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if stmt.Text != "SELECT id FROM cases LIMIT 10" {
		t.Errorf("Text = %q, want fence stripped", stmt.Text)
	}
}

func TestDirectTranslatorEmptyResponse(t *testing.T) {
	provider := llm.NewScriptedProvider("")
	translator := NewDirectTranslator(provider, prompt.NewBuilder(testSchema), "test-model", nil)

	_, err := translator.Translate(context.Background(), "count all contacts", query.ReadOnlyPolicy())
	var te *TranslationError
	if !errors.As(err, &te) {
		t.Fatalf("Translate() error = %v, want TranslationError", err)
	}
}

func TestDirectTranslatorGuardRejectionPropagates(t *testing.T) {
	provider := llm.NewScriptedProvider("DELETE FROM contacts")
	translator := NewDirectTranslator(provider, prompt.NewBuilder(testSchema), "test-model", nil)

	_, err := translator.Translate(context.Background(), "delete all contacts", query.ReadOnlyPolicy())
	if !query.IsGuardViolation(err) {
		t.Fatalf("Translate() error = %v, want guard violation", err)
	}
	if provider.Calls() != 1 {
		t.Errorf("model calls = %d, want 1 (no retry on guard rejection)", provider.Calls())
	}
}

func TestProcessDirectExecutes(t *testing.T) {
	provider := llm.NewScriptedProvider("SELECT COUNT(*) FROM contacts")
	exec := &fakeExecutor{rows: query.NewResultSet([]string{"count"}, []query.Record{{"count": 7}})}
	auditor := audit.NewMemoryLogger()
	o := newOrchestrator(t, provider, exec, WithAuditor(auditor))

	outcome, err := o.Process(context.Background(), "count all contacts", ModeDirect)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if outcome.Kind != OutcomeDirect || outcome.Direct == nil {
		t.Fatalf("outcome = %+v, want direct variant", outcome)
	}
	if outcome.Direct.Rows.RowCount != 1 {
		t.Errorf("RowCount = %d, want 1", outcome.Direct.Rows.RowCount)
	}
	if outcome.Direct.RequestID == "" {
		t.Error("RequestID is empty")
	}

	events := auditor.Events()
	if len(events) != 1 || events[0].Outcome != audit.OutcomeExecuted {
		t.Errorf("audit events = %+v, want one executed event", events)
	}
}

func TestProcessDirectSubstitutesSafeStatement(t *testing.T) {
	provider := llm.NewScriptedProvider("DELETE FROM contacts")
	exec := &fakeExecutor{rows: query.NewResultSet([]string{"message"}, []query.Record{{"message": "read-only"}})}
	auditor := audit.NewMemoryLogger()
	o := newOrchestrator(t, provider, exec,
		WithAuditor(auditor),
		WithSafeStatement("SELECT 'read-only' AS message"))

	outcome, err := o.Process(context.Background(), "delete all contacts", ModeDirect)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if got := outcome.Direct.Statement.Text; got != "SELECT 'read-only' AS message" {
		t.Errorf("executed statement = %q, want the safe statement", got)
	}
	if len(exec.gotSQL) != 1 || exec.gotSQL[0] != "SELECT 'read-only' AS message" {
		t.Errorf("executor received %v, want only the safe statement", exec.gotSQL)
	}

	events := auditor.Events()
	if len(events) != 2 {
		t.Fatalf("audit events = %d, want rejection then execution", len(events))
	}
	if events[0].Outcome != audit.OutcomeRejected || events[1].Outcome != audit.OutcomeExecuted {
		t.Errorf("audit outcomes = %q, %q", events[0].Outcome, events[1].Outcome)
	}
	if !strings.Contains(events[0].Statement, "DELETE") {
		t.Errorf("rejection event statement = %q, want the raw rejected text", events[0].Statement)
	}
}

func TestNewOrchestratorRejectsUnsafeSafeStatement(t *testing.T) {
	_, err := NewOrchestrator(OrchestratorConfig{
		Provider:      llm.NewScriptedProvider(),
		Builder:       prompt.NewBuilder(testSchema),
		Executor:      &fakeExecutor{},
		SafeStatement: "DROP TABLE contacts",
	})
	if err == nil {
		t.Fatal("NewOrchestrator() accepted a non-SELECT safe statement")
	}
}

func TestProcessAgentFullRun(t *testing.T) {
	provider := llm.NewScriptedProvider(
		"Thought: I should check which tables exist.\nAction: schema-inspector\nAction Input: tables",
		"Thought: Now query the contacts table.\nAction: sql-query\nAction Input: SELECT name FROM contacts LIMIT 10",
		"Thought: I have the data.\nFinal Answer: There are two contacts: Ada and Grace.",
	)
	exec := &fakeExecutor{
		tables: []string{"contacts", "cases"},
		rows: query.NewResultSet([]string{"name"},
			[]query.Record{{"name": "Ada"}, {"name": "Grace"}}),
	}
	o := newOrchestrator(t, provider, exec, WithAgentEnabled(true))

	outcome, err := o.Process(context.Background(), "who are the contacts?", ModeAgent)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	agent := outcome.Agent
	if outcome.Kind != OutcomeAgent || agent == nil {
		t.Fatalf("outcome = %+v, want agent variant", outcome)
	}
	if !agent.Success {
		t.Errorf("Success = false, trace: %+v", agent.Trace)
	}
	if agent.Iterations > DefaultMaxIterations {
		t.Errorf("Iterations = %d, want <= %d", agent.Iterations, DefaultMaxIterations)
	}
	if agent.Answer != "There are two contacts: Ada and Grace." {
		t.Errorf("Answer = %q", agent.Answer)
	}
	if len(agent.SQL) != 1 || agent.SQL[0] != "SELECT name FROM contacts LIMIT 10" {
		t.Errorf("SQL = %v, want the dispatched statement", agent.SQL)
	}
	if agent.Rows.RowCount != 2 {
		t.Errorf("Rows.RowCount = %d, want 2", agent.Rows.RowCount)
	}
	if !strings.Contains(agent.Observations[0], "contacts") {
		t.Errorf("first observation %q does not list tables", agent.Observations[0])
	}
	if agent.Trace.Terminal != trace.TerminalFinalAnswer {
		t.Errorf("terminal = %q, want %q", agent.Trace.Terminal, trace.TerminalFinalAnswer)
	}
}

func TestProcessAgentUnparseableTurn(t *testing.T) {
	provider := llm.NewScriptedProvider("I am not sure what you mean by that.")
	exec := &fakeExecutor{}
	o := newOrchestrator(t, provider, exec, WithAgentEnabled(true))

	outcome, err := o.Process(context.Background(), "anything", ModeAgent)
	if err != nil {
		t.Fatalf("Process() error = %v, agent failures must not be hard errors", err)
	}
	agent := outcome.Agent
	if agent.Success {
		t.Error("Success = true for unparseable turn")
	}
	if agent.Iterations != 1 {
		t.Errorf("Iterations = %d, want 1", agent.Iterations)
	}
	if len(agent.Reasoning) == 0 || agent.Reasoning[0] != "Unable to parse action" {
		t.Errorf("Reasoning = %v, want diagnostic entry", agent.Reasoning)
	}
	if agent.Trace.Terminal != trace.TerminalParseError {
		t.Errorf("terminal = %q, want %q", agent.Trace.Terminal, trace.TerminalParseError)
	}
	if provider.Calls() != 1 {
		t.Errorf("model calls = %d, want 1 (unparseable turns are not retried)", provider.Calls())
	}
}

func TestProcessAgentBudgetExhaustion(t *testing.T) {
	responses := make([]string, DefaultMaxIterations)
	for i := range responses {
		responses[i] = "Thought: still looking\nAction: schema-inspector\nAction Input: tables"
	}
	provider := llm.NewScriptedProvider(responses...)
	exec := &fakeExecutor{tables: []string{"contacts"}}
	o := newOrchestrator(t, provider, exec, WithAgentEnabled(true))

	outcome, err := o.Process(context.Background(), "loop forever", ModeAgent)
	if err != nil {
		t.Fatalf("Process() error = %v, budget exhaustion must not be a hard error", err)
	}
	agent := outcome.Agent
	if agent.Success {
		t.Error("Success = true for exhausted budget")
	}
	if agent.Iterations != DefaultMaxIterations {
		t.Errorf("Iterations = %d, want %d", agent.Iterations, DefaultMaxIterations)
	}
	if agent.Trace.Terminal != trace.TerminalMaxIterations {
		t.Errorf("terminal = %q, want %q", agent.Trace.Terminal, trace.TerminalMaxIterations)
	}
	if provider.Calls() != DefaultMaxIterations {
		t.Errorf("model calls = %d, want %d", provider.Calls(), DefaultMaxIterations)
	}
}

func TestProcessAgentFinalAnswerPrecedence(t *testing.T) {
	provider := llm.NewScriptedProvider(
		"Thought: both blocks\nAction: sql-query\nAction Input: SELECT 1\nFinal Answer: done already",
	)
	exec := &fakeExecutor{}
	o := newOrchestrator(t, provider, exec, WithAgentEnabled(true))

	outcome, err := o.Process(context.Background(), "anything", ModeAgent)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	agent := outcome.Agent
	if !agent.Success {
		t.Error("Success = false, want final answer to win")
	}
	if agent.Answer != "done already" {
		t.Errorf("Answer = %q", agent.Answer)
	}
	if len(exec.gotSQL) != 0 {
		t.Errorf("executor received %v, want no dispatch on a final-answer turn", exec.gotSQL)
	}
	if len(agent.SQL) != 0 {
		t.Errorf("SQL = %v, want empty", agent.SQL)
	}
}

func TestProcessAgentUnknownActionContinues(t *testing.T) {
	provider := llm.NewScriptedProvider(
		"Thought: try something\nAction: crystal-ball\nAction Input: contacts",
		"Thought: fall back to SQL\nFinal Answer: I cannot consult a crystal ball.",
	)
	exec := &fakeExecutor{}
	o := newOrchestrator(t, provider, exec, WithAgentEnabled(true))

	outcome, err := o.Process(context.Background(), "anything", ModeAgent)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	agent := outcome.Agent
	if !agent.Success {
		t.Error("Success = false, want loop to continue past the unknown action")
	}
	if !strings.Contains(agent.Observations[0], "no action named") {
		t.Errorf("observation %q does not report the unknown action", agent.Observations[0])
	}
}

func TestProcessAgentDisabledFallsBackToDirect(t *testing.T) {
	provider := llm.NewScriptedProvider("SELECT COUNT(*) FROM contacts")
	exec := &fakeExecutor{rows: query.NewResultSet([]string{"count"}, []query.Record{{"count": 3}})}
	o := newOrchestrator(t, provider, exec, WithAgentEnabled(false))

	outcome, err := o.Process(context.Background(), "count all contacts", ModeAgent)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	agent := outcome.Agent
	if outcome.Kind != OutcomeAgent || agent == nil {
		t.Fatalf("outcome = %+v, want agent shape", outcome)
	}
	if agent.Iterations != 1 {
		t.Errorf("Iterations = %d, want 1", agent.Iterations)
	}
	if len(agent.Reasoning) != 1 || !strings.Contains(agent.Reasoning[0], "direct translation") {
		t.Errorf("Reasoning = %v, want the fixed fallback notice", agent.Reasoning)
	}
	if len(agent.SQL) != 1 || agent.SQL[0] != "SELECT COUNT(*) FROM contacts" {
		t.Errorf("SQL = %v, want the direct translation", agent.SQL)
	}
	if !agent.Success {
		t.Error("Success = false for a successful fallback")
	}
}

func TestProcessAgentModelErrorFallsBackOnce(t *testing.T) {
	inner := llm.NewScriptedProvider("SELECT COUNT(*) FROM contacts")
	provider := &flakyProvider{failures: 1, inner: inner}
	exec := &fakeExecutor{rows: query.NewResultSet([]string{"count"}, []query.Record{{"count": 3}})}
	o := newOrchestrator(t, provider, exec, WithAgentEnabled(true))

	outcome, err := o.Process(context.Background(), "count all contacts", ModeAgent)
	if err != nil {
		t.Fatalf("Process() error = %v, want successful direct fallback", err)
	}
	agent := outcome.Agent
	if agent == nil || !agent.Success {
		t.Fatalf("outcome = %+v, want successful agent-shaped fallback", outcome)
	}
	if provider.calls != 2 {
		t.Errorf("model calls = %d, want 2 (one agent attempt, one direct fallback)", provider.calls)
	}
	if !strings.Contains(agent.Reasoning[0], "direct translation") {
		t.Errorf("Reasoning = %v, want the fallback notice", agent.Reasoning)
	}
}

func TestProcessAgentModelErrorFallbackFailureSurfaces(t *testing.T) {
	provider := llm.NewScriptedProvider().
		FailWith(&llm.ModelError{Provider: "scripted", Message: "connection refused"})
	o := newOrchestrator(t, provider, &fakeExecutor{}, WithAgentEnabled(true))

	_, err := o.Process(context.Background(), "anything", ModeAgent)
	if err == nil {
		t.Fatal("Process() succeeded, want the surfaced failure")
	}
	if provider.Calls() != 2 {
		t.Errorf("model calls = %d, want 2 (exactly one fallback attempt)", provider.Calls())
	}
}

func TestProcessUnknownMode(t *testing.T) {
	o := newOrchestrator(t, llm.NewScriptedProvider(), &fakeExecutor{})

	_, err := o.Process(context.Background(), "anything", Mode("streaming"))
	if !errors.Is(err, ErrUnknownMode) {
		t.Errorf("Process() error = %v, want ErrUnknownMode", err)
	}
}

func TestProcessPolicySourceCapturedPerRequest(t *testing.T) {
	provider := llm.NewScriptedProvider("DELETE FROM contacts WHERE id = 1", "DELETE FROM contacts WHERE id = 2")
	exec := &fakeExecutor{rows: query.NewResultSet(nil, nil)}

	allow := true
	o := newOrchestrator(t, provider, exec, WithPolicySource(func() query.Policy {
		return query.Policy{AllowWrites: allow}
	}))

	if _, err := o.Process(context.Background(), "remove contact 1", ModeDirect); err != nil {
		t.Fatalf("Process() with writes allowed error = %v", err)
	}
	if exec.gotSQL[0] != "DELETE FROM contacts WHERE id = 1" {
		t.Errorf("executed %q, want the write under an allowing policy", exec.gotSQL[0])
	}

	// A reload between requests must affect only the next request.
	allow = false
	outcome, err := o.Process(context.Background(), "remove contact 2", ModeDirect)
	if err != nil {
		t.Fatalf("Process() after reload error = %v", err)
	}
	if !strings.HasPrefix(strings.ToUpper(outcome.Direct.Statement.Text), "SELECT") {
		t.Errorf("executed %q after reload, want the safe statement", outcome.Direct.Statement.Text)
	}
}
