package questiongen

import (
	"encoding/json"
)

// Drop reasons.
const (
	reasonInvalidElement  = "invalid element"
	reasonEmptyQuestion   = "empty question text"
	reasonNoAnswers       = "no usable answers"
	reasonDanglingCorrect = "dangling correct cleared"
	reasonMissingCorrect  = "missing correct"
)

// rawElement is a question element after schema validation.
type rawElement struct {
	Question string          `json:"question"`
	Answers  json.RawMessage `json:"answers"`
	Correct  json.RawMessage `json:"correct"`
}

// cleanElements turns raw elements into questions of type qtype. Elements
// that cannot be used are skipped and reported in the returned drops.
func cleanElements(qtype QuestionType, elements []json.RawMessage) ([]Question, []Drop) {
	questions := make([]Question, 0, len(elements))
	var drops []Drop

	for i, raw := range elements {
		q, reason := cleanElement(qtype, raw)
		if reason != "" {
			drops = append(drops, Drop{Index: i, Reason: reason})
		}
		if q != nil {
			questions = append(questions, *q)
		}
	}

	return questions, drops
}

// cleanElement validates and sanitizes a single element. It returns nil and
// a reason when the element is dropped. A kept multiple-choice question
// without a usable correct key comes back with a reason too.
func cleanElement(qtype QuestionType, raw json.RawMessage) (q *Question, reason string) {
	if err := validateElement(raw); err != nil {
		return nil, reasonInvalidElement
	}

	var el rawElement
	if err := json.Unmarshal(raw, &el); err != nil {
		return nil, reasonInvalidElement
	}

	text := sanitizeText(el.Question)
	if text == "" {
		return nil, reasonEmptyQuestion
	}

	answers, err := cleanAnswers(qtype, el.Answers)
	if err != nil || len(answers) == 0 {
		return nil, reasonNoAnswers
	}

	q = &Question{Text: text, Answers: answers}

	switch qtype {
	case TrueFalse:
		// One statement, one truth value.
		q.Answers = q.Answers[:1]
		q.Correct = q.Answers[0].Key

	case MultipleChoice:
		key, present := parseCorrect(el.Correct)
		if _, ok := q.Answer(key); ok {
			q.Correct = key
		} else if present {
			reason = reasonDanglingCorrect
		} else {
			reason = reasonMissingCorrect
		}
	}

	return q, reason
}

// cleanAnswers decodes, sanitizes and filters an answers object. Answers
// with a key outside A..D, a repeated key, or no text after sanitizing are
// skipped. True/false answers must read true or false in any case.
func cleanAnswers(qtype QuestionType, raw json.RawMessage) ([]Answer, error) {
	pairs, err := decodeOrderedAnswers(raw)
	if err != nil {
		return nil, err
	}

	seen := make(map[AnswerKey]bool, len(pairs))
	answers := make([]Answer, 0, len(pairs))
	for _, p := range pairs {
		key, ok := ParseAnswerKey(p.Key)
		if !ok || seen[key] {
			continue
		}

		text, ok := answerText(p.Value)
		if !ok {
			continue
		}
		text = sanitizeText(text)
		if text == "" {
			continue
		}

		if qtype == TrueFalse {
			if text, ok = normalizeTruth(text); !ok {
				continue
			}
		}

		seen[key] = true
		answers = append(answers, Answer{Key: key, Text: text})
	}
	return answers, nil
}

// parseCorrect reads the correct field. present reports whether the model
// supplied a non-empty value at all.
func parseCorrect(raw json.RawMessage) (key AnswerKey, present bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", true
	}
	if s == "" {
		return "", false
	}
	key, _ = ParseAnswerKey(s)
	return key, true
}
