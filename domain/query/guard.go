package query

import "strings"

// Validate normalizes candidate SQL text and enforces the guard policy.
//
// Normalization strips at most one leading/trailing fenced-code marker and
// trims whitespace. When the policy disallows writes, the remaining text must
// begin with SELECT (case-insensitive); otherwise it passes through unchanged.
//
// This is a lexical prefix check, not a SQL parser: a write statement appended
// after a leading SELECT via a statement separator is not detected here. The
// database executor applies its own non-SELECT rejection as a second line of
// defense.
//
// Validate is pure and idempotent.
func Validate(text string, policy Policy, provenance Provenance) (Statement, error) {
	normalized := stripFence(strings.TrimSpace(text))

	if normalized == "" {
		return Statement{}, ErrEmptyStatement
	}

	if !policy.AllowWrites && !hasSelectPrefix(normalized) {
		return Statement{}, &GuardViolationError{Raw: text}
	}

	return Statement{
		Text:       normalized,
		Provenance: provenance,
		Validated:  true,
	}, nil
}

// stripFence removes a single optional markdown code fence around the text.
// Both ``` and ```sql openers are recognized; the info string is matched
// case-insensitively so ```SQL unwraps too.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}

	inner := strings.TrimPrefix(s, "```")
	if len(inner) >= 3 && strings.EqualFold(inner[:3], "sql") {
		inner = inner[3:]
	}
	inner = strings.TrimSuffix(strings.TrimSpace(inner), "```")

	return strings.TrimSpace(inner)
}

// hasSelectPrefix reports whether the text begins with SELECT, case-insensitively.
func hasSelectPrefix(s string) bool {
	const prefix = "select"
	if len(s) < len(prefix) {
		return false
	}
	return strings.EqualFold(s[:len(prefix)], prefix)
}
