package questiongen

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// QuestionType identifies the kind of quiz question to generate. The
// values match the question bank's type identifiers.
type QuestionType string

const (
	ShortAnswer    QuestionType = "shortanswer"
	TrueFalse      QuestionType = "truefalse"
	MultipleChoice QuestionType = "multichoice"
)

// QuestionTypes lists every supported question type.
var QuestionTypes = []QuestionType{ShortAnswer, TrueFalse, MultipleChoice}

// ParseQuestionType parses a type name case-insensitively. It accepts the
// bank identifiers and the common hyphenated spellings.
func ParseQuestionType(s string) (QuestionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "shortanswer", "short-answer", "short_answer":
		return ShortAnswer, nil
	case "truefalse", "true-false", "true_false":
		return TrueFalse, nil
	case "multichoice", "multiplechoice", "multiple-choice", "multiple_choice":
		return MultipleChoice, nil
	}
	return "", fmt.Errorf("unknown question type %q", s)
}

func (t QuestionType) String() string { return string(t) }

// Valid reports whether t is one of the supported types.
func (t QuestionType) Valid() bool {
	switch t {
	case ShortAnswer, TrueFalse, MultipleChoice:
		return true
	}
	return false
}

// Label is the human-readable name used in prompts and output.
func (t QuestionType) Label() string {
	switch t {
	case ShortAnswer:
		return "short answer"
	case TrueFalse:
		return "true/false"
	case MultipleChoice:
		return "multiple choice"
	}
	return string(t)
}

// AnswerKey labels one answer of a question, "A" through "D".
type AnswerKey string

// AnswerKeys is the canonical multiple-choice order.
var AnswerKeys = []AnswerKey{"A", "B", "C", "D"}

// ParseAnswerKey normalizes a key from model output. Lowercase keys are
// upper-cased; anything outside A..D is rejected.
func ParseAnswerKey(s string) (AnswerKey, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 1 || s[0] < 'A' || s[0] > 'D' {
		return "", false
	}
	return AnswerKey(s), true
}

// Answer is one labelled answer text.
type Answer struct {
	Key  AnswerKey
	Text string
}

// True/false answers are stored as exactly these strings.
const (
	TrueText  = "True"
	FalseText = "False"
)

// Question is a cleaned, validated quiz question.
type Question struct {
	// Text is the question prompt, stripped of markup. Never empty.
	Text string

	// Answers in the order the model produced them. Never empty; keys
	// are unique.
	Answers []Answer

	// Correct is the key of the correct answer, or "" when absent. When
	// set it always names one of Answers.
	Correct AnswerKey
}

// Answer returns the text for key.
func (q Question) Answer(key AnswerKey) (string, bool) {
	for _, a := range q.Answers {
		if a.Key == key {
			return a.Text, true
		}
	}
	return "", false
}

// TruthValue returns the truth value of a true/false question's answer.
// ok is false when the question carries no true/false answer.
func (q Question) TruthValue() (value bool, ok bool) {
	if len(q.Answers) == 0 {
		return false, false
	}
	switch q.Answers[0].Text {
	case TrueText:
		return true, true
	case FalseText:
		return false, true
	}
	return false, false
}

// MarshalJSON writes the question in the same shape the model is asked to
// produce, keeping answer order:
//
//	{"question": "...", "answers": {"A": "..."}, "correct": "A"}
func (q Question) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	text, err := json.Marshal(q.Text)
	if err != nil {
		return nil, err
	}
	b.WriteString(`{"question":`)
	b.Write(text)
	b.WriteString(`,"answers":{`)
	for i, a := range q.Answers {
		if i > 0 {
			b.WriteByte(',')
		}
		k, _ := json.Marshal(string(a.Key))
		v, err := json.Marshal(a.Text)
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	if q.Correct != "" {
		k, _ := json.Marshal(string(q.Correct))
		b.WriteString(`,"correct":`)
		b.Write(k)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// Drop records an element that was filtered out or altered while
// cleaning model output.
type Drop struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// Result is the outcome of one generation run.
type Result struct {
	// Questions holds the surviving questions in model order.
	Questions []Question `json:"questions"`

	// Dropped lists filtered elements and cleared correct keys.
	Dropped []Drop `json:"dropped,omitempty"`

	// Requested is the count asked for. The model may produce fewer or more.
	Requested int `json:"requested"`

	// Repaired is true when the repair pass produced the parsed output.
	Repaired bool `json:"repaired"`

	// Raw is the completion text that was parsed.
	Raw string `json:"-"`
}

// CountMismatch reports whether the number of questions differs from the
// number requested.
func (r *Result) CountMismatch() bool {
	return len(r.Questions) != r.Requested
}
