package questiongen

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// rawAnswer is one key/value pair of an answers object, in document order.
type rawAnswer struct {
	Key   string
	Value any
}

// decodeOrderedAnswers reads an answers object while keeping the key order
// of the document. Decoding into a map would lose it.
func decodeOrderedAnswers(raw json.RawMessage) ([]rawAnswer, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("answers: expected object, got %v", tok)
	}

	var out []rawAnswer
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("answers: expected key, got %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("answers[%s]: %w", key, err)
		}
		out = append(out, rawAnswer{Key: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

// answerText converts a decoded answer value to text. Objects, arrays and
// null have no text form.
func answerText(v any) (string, bool) {
	switch v := v.(type) {
	case string:
		return v, true
	case bool:
		if v {
			return TrueText, true
		}
		return FalseText, true
	case json.Number:
		return v.String(), true
	}
	return "", false
}

// normalizeTruth maps any casing of "true" or "false" to TrueText or
// FalseText.
func normalizeTruth(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return TrueText, true
	case "false":
		return FalseText, true
	}
	return "", false
}
