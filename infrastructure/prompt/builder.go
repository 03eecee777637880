// Package prompt composes the model-facing prompts for both translation
// modes. Composition is deterministic and side-effect free: the same schema,
// policy, and mode always yield byte-identical text.
package prompt

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/queryagent/domain/query"
)

// Mode selects the output contract embedded in the prompt.
type Mode string

const (
	// ModeDirect instructs the model to return only SQL.
	ModeDirect Mode = "direct"

	// ModeAgent instructs the model to follow the Thought/Action grammar.
	ModeAgent Mode = "agent"
)

// Example is one few-shot translation pair.
type Example struct {
	Question string
	SQL      string
}

// ActionSpec describes one action available to the agent.
type ActionSpec struct {
	Name        string
	Description string
}

// DefaultExamples are the few-shot pairs embedded in every prompt.
var DefaultExamples = []Example{
	{
		Question: "count all contacts",
		SQL:      "SELECT COUNT(*) FROM contacts",
	},
	{
		Question: "show the newest cases",
		SQL:      "SELECT * FROM cases ORDER BY created_at DESC LIMIT 10",
	},
}

// Builder composes system and user prompts from a fixed schema.
type Builder struct {
	schema   string
	examples []Example
}

// Option configures the builder.
type Option func(*Builder)

// WithExamples replaces the default few-shot examples.
func WithExamples(examples []Example) Option {
	return func(b *Builder) {
		b.examples = examples
	}
}

// NewBuilder creates a prompt builder over the given schema definition text.
func NewBuilder(schema string, opts ...Option) *Builder {
	b := &Builder{
		schema:   schema,
		examples: DefaultExamples,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// System composes the system prompt for the given policy and mode.
// Agent mode additionally embeds the available actions and the
// Thought/Action/Action Input/Final Answer grammar.
func (b *Builder) System(policy query.Policy, mode Mode, actions []ActionSpec) string {
	var sb strings.Builder

	sb.WriteString("You translate natural-language questions into SQL for a PostgreSQL database.\n\n")

	sb.WriteString("## Schema\n")
	sb.WriteString(b.schema)
	sb.WriteString("\n\n")

	sb.WriteString("## Policy\n")
	sb.WriteString(policy.Sentence())
	sb.WriteString("\n\n")

	sb.WriteString("## Rules\n")
	sb.WriteString("1. Use only the tables and columns shown in the schema.\n")
	sb.WriteString("2. Append LIMIT 10 to non-aggregate queries; never add LIMIT to aggregate queries (COUNT, SUM, AVG, MIN, MAX).\n")
	sb.WriteString("3. Prefer explicit column lists over SELECT * where practical.\n\n")

	if len(b.examples) > 0 {
		sb.WriteString("## Examples\n")
		for _, ex := range b.examples {
			fmt.Fprintf(&sb, "Question: %s\nSQL: %s\n\n", ex.Question, ex.SQL)
		}
	}

	switch mode {
	case ModeAgent:
		sb.WriteString("## Actions\n")
		for _, a := range actions {
			fmt.Fprintf(&sb, "- %s: %s\n", a.Name, a.Description)
		}
		sb.WriteString("\n## Response Format\n")
		sb.WriteString("Respond with exactly one of:\n\n")
		sb.WriteString("Thought: <your reasoning>\n")
		sb.WriteString("Action: <one action name>\n")
		sb.WriteString("Action Input: <the input for the action>\n\n")
		sb.WriteString("or, when you can answer the question:\n\n")
		sb.WriteString("Thought: <your reasoning>\n")
		sb.WriteString("Final Answer: <the answer>\n")
	default:
		sb.WriteString("## Response Format\n")
		sb.WriteString("Return only the SQL statement. No explanations, no markdown fences, no comments.")
	}

	return sb.String()
}

// User composes the user prompt for a question.
func (b *Builder) User(question string) string {
	return "Question: " + question
}

// FormatInstruction is appended to every agent-mode turn after the
// accumulated context.
const FormatInstruction = "Continue. Respond with either an Action block or a Final Answer, following the response format exactly."
