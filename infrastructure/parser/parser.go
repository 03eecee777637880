// Package parser extracts the Thought / Action / Action Input / Final Answer
// sections from a model response.
//
// The grammar is plain text with four mutually exclusive section headers
// matched at line starts in document order. Parsing is necessarily
// best-effort; the failure modes are kept enumerable by funneling every
// response through one header regexp rather than ad hoc matching.
package parser

import (
	"errors"
	"regexp"
	"strings"
)

// ErrNoSection indicates a response with no recognizable section header.
var ErrNoSection = errors.New("response contains no recognizable section")

// Response is the parsed form of one model turn.
type Response struct {
	Thought     string
	Action      string
	ActionInput string
	FinalAnswer string

	// hasFinalAnswer distinguishes an empty final answer from an absent one.
	hasFinalAnswer bool
	hasAction      bool
	hasActionInput bool
}

// "Action Input" must precede "Action" in the alternation so the longer
// header wins.
var headerRe = regexp.MustCompile(`(?m)^[ \t]*(?P<header>Final Answer|Action Input|Action|Thought):[ \t]*`)

var headerIdx = headerRe.SubexpIndex("header")

// Parse splits a model response into its grammar sections.
// Headers are matched in document order; each section body runs to the next
// header or end of input. A repeated header keeps its first occurrence.
// A response with no section at all yields ErrNoSection.
func Parse(content string) (Response, error) {
	matches := headerRe.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return Response{}, ErrNoSection
	}

	var resp Response
	for i, m := range matches {
		header := content[m[2*headerIdx]:m[2*headerIdx+1]]

		end := len(content)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		body := strings.TrimSpace(content[m[1]:end])

		switch header {
		case "Thought":
			if resp.Thought == "" {
				resp.Thought = body
			}
		case "Action":
			if !resp.hasAction {
				resp.Action = body
				resp.hasAction = true
			}
		case "Action Input":
			if !resp.hasActionInput {
				resp.ActionInput = body
				resp.hasActionInput = true
			}
		case "Final Answer":
			if !resp.hasFinalAnswer {
				resp.FinalAnswer = body
				resp.hasFinalAnswer = true
			}
		}
	}

	return resp, nil
}

// HasFinalAnswer reports whether a Final Answer section was present.
// Final Answer always takes precedence over an Action block in the same
// response; callers must check it before HasAction.
func (r Response) HasFinalAnswer() bool {
	return r.hasFinalAnswer
}

// HasAction reports whether both an Action and an Action Input section
// were present.
func (r Response) HasAction() bool {
	return r.hasAction && r.hasActionInput
}
