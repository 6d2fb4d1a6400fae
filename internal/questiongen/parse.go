package questiongen

import (
	"encoding/json"
	"errors"
	"strings"
)

var (
	errEmptyCompletion = errors.New("empty completion")
	errUnexpectedShape = errors.New("JSON is not a question array, a questions envelope or a question object")
)

// parseOutcome is the result of one parse stage: either the raw question
// elements, or the reason the text could not be used.
type parseOutcome struct {
	elements []json.RawMessage
	err      error
}

func (o parseOutcome) ok() bool { return o.err == nil }

// parseCompletion decodes a completion into raw question elements. The text
// must be JSON in one of three shapes:
//
//	[{...}, {...}]              bare array
//	{"questions": [{...}]}      envelope
//	{"question": ..., ...}      single question
func parseCompletion(text string) parseOutcome {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return parseOutcome{err: errEmptyCompletion}
	}

	var doc json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		return parseOutcome{err: err}
	}

	switch doc[0] {
	case '[':
		var elements []json.RawMessage
		if err := json.Unmarshal(doc, &elements); err != nil {
			return parseOutcome{err: err}
		}
		return parseOutcome{elements: elements}

	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(doc, &fields); err != nil {
			return parseOutcome{err: err}
		}
		if inner, ok := fields["questions"]; ok {
			var elements []json.RawMessage
			if err := json.Unmarshal(inner, &elements); err != nil || elements == nil {
				return parseOutcome{err: errUnexpectedShape}
			}
			return parseOutcome{elements: elements}
		}
		if _, ok := fields["question"]; ok {
			return parseOutcome{elements: []json.RawMessage{doc}}
		}
	}

	return parseOutcome{err: errUnexpectedShape}
}
