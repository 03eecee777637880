package query

// Policy is the guard policy in effect for a single request.
// It is captured once at request entry and never mutated afterwards;
// configuration reload swaps the process-wide value between requests only.
type Policy struct {
	// AllowWrites permits non-SELECT statements when true.
	AllowWrites bool `json:"allow_writes"`
}

// ReadOnlyPolicy returns the default policy: writes disabled.
func ReadOnlyPolicy() Policy {
	return Policy{AllowWrites: false}
}

// Sentence renders the policy as a prompt-facing sentence.
func (p Policy) Sentence() string {
	if p.AllowWrites {
		return "Write statements (INSERT, UPDATE, DELETE, DDL) are permitted."
	}
	return "Only read-only SELECT statements are permitted. Never generate INSERT, UPDATE, DELETE, or DDL."
}
