// Package query provides the core SQL domain model: statements, the
// read-only guard policy, and the lexical safety guard.
package query

// Provenance records how a statement was produced.
type Provenance string

const (
	// ProvenanceDirect marks a statement produced by the one-shot translator.
	ProvenanceDirect Provenance = "direct"

	// ProvenanceAgentStep marks a statement produced inside an agent iteration.
	ProvenanceAgentStep Provenance = "agent-step"
)

// Statement is a SQL statement that has passed through the safety guard.
type Statement struct {
	// Text is the normalized statement text (fences stripped, trimmed).
	Text string `json:"text"`

	// Provenance records which path produced the statement.
	Provenance Provenance `json:"provenance"`

	// Validated is true once the guard has accepted the statement.
	Validated bool `json:"validated"`
}

// String returns the statement text.
func (s Statement) String() string {
	return s.Text
}
