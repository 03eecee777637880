package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/queryagent/domain/action"
)

// AnalyzerName is the registered name of the error analysis handler.
const AnalyzerName = "error-analyzer"

// Error classifications, ordered by matching priority.
const (
	ClassSyntaxError      = "SYNTAX_ERROR"
	ClassRelationNotFound = "RELATION_NOT_FOUND"
	ClassColumnNotFound   = "COLUMN_NOT_FOUND"
	ClassGuardViolation   = "GUARD_VIOLATION"
	ClassUnknown          = "UNKNOWN"
)

// Diagnosis is the structured output of the error analyzer.
type Diagnosis struct {
	Classification string `json:"classification"`
	Suggestion     string `json:"suggestion"`
	Retryable      bool   `json:"retryable"`
}

// Analyzer classifies database error messages and suggests a next step.
// It performs no I/O beyond the optional table listing used to enrich
// relation-not-found suggestions.
type Analyzer struct {
	// Tables, when set, supplies valid table names for suggestions.
	Tables func(ctx context.Context) ([]string, error)
}

// NewAnalyzer creates the error-analyzer handler.
func NewAnalyzer() *Analyzer { return &Analyzer{} }

// Name returns the handler name.
func (h *Analyzer) Name() string { return AnalyzerName }

// Description returns the model-facing description.
func (h *Analyzer) Description() string {
	return `Classify a database error message and suggest a fix. Input: the error text, or JSON {"error": "..."}.`
}

// rule pairs an ordered substring pattern with its classification.
// The first rule whose every fragment appears in order wins.
type rule struct {
	fragments      []string
	classification string
}

var rules = []rule{
	{[]string{"syntax error"}, ClassSyntaxError},
	{[]string{"relation", "does not exist"}, ClassRelationNotFound},
	{[]string{"table", "does not exist"}, ClassRelationNotFound},
	{[]string{"no such table"}, ClassRelationNotFound},
	{[]string{"column", "does not exist"}, ClassColumnNotFound},
	{[]string{"no such column"}, ClassColumnNotFound},
	{[]string{"only select statements"}, ClassGuardViolation},
	{[]string{"statement rejected"}, ClassGuardViolation},
}

// Execute classifies the given error text.
func (h *Analyzer) Execute(ctx context.Context, input string) action.Result {
	text := strings.TrimSpace(input)
	if text == "" {
		return action.Failure(action.FailureInput, "empty error text")
	}

	// Accept either the bare message or a JSON envelope.
	var envelope struct {
		Error string `json:"error"`
	}
	if strings.HasPrefix(text, "{") && json.Unmarshal([]byte(text), &envelope) == nil && envelope.Error != "" {
		text = envelope.Error
	}

	diagnosis := h.classify(ctx, text)
	data, _ := json.Marshal(diagnosis)
	return action.Success(string(data))
}

func (h *Analyzer) classify(ctx context.Context, text string) Diagnosis {
	normalized := strings.ToLower(text)

	class := ClassUnknown
	for _, r := range rules {
		if matchesInOrder(normalized, r.fragments) {
			class = r.classification
			break
		}
	}

	switch class {
	case ClassSyntaxError:
		return Diagnosis{
			Classification: class,
			Suggestion:     "Correct the SQL syntax and run the query again.",
			Retryable:      true,
		}
	case ClassRelationNotFound:
		return Diagnosis{
			Classification: class,
			Suggestion:     h.relationSuggestion(ctx),
			Retryable:      true,
		}
	case ClassColumnNotFound:
		return Diagnosis{
			Classification: class,
			Suggestion:     "Use schema-inspector with \"describe <table>\" to find valid column names, then retry with one of them.",
			Retryable:      true,
		}
	case ClassGuardViolation:
		return Diagnosis{
			Classification: class,
			Suggestion:     "Rewrite the statement as a read-only SELECT query.",
			Retryable:      true,
		}
	default:
		return Diagnosis{
			Classification: ClassUnknown,
			Suggestion:     "The error does not match a known pattern; rephrase the query or inspect the schema before retrying.",
			Retryable:      false,
		}
	}
}

func (h *Analyzer) relationSuggestion(ctx context.Context) string {
	base := "Use schema-inspector with \"tables\" to list valid table names, then retry with one of them."
	if h.Tables == nil {
		return base
	}
	tables, err := h.Tables(ctx)
	if err != nil || len(tables) == 0 {
		return base
	}
	return fmt.Sprintf("The table does not exist; valid tables are: %s. Retry with one of them.",
		strings.Join(tables, ", "))
}

// matchesInOrder reports whether every fragment appears in text with
// each match starting after the previous one.
func matchesInOrder(text string, fragments []string) bool {
	rest := text
	for _, f := range fragments {
		i := strings.Index(rest, f)
		if i < 0 {
			return false
		}
		rest = rest[i+len(f):]
	}
	return true
}
