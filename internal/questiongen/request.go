package questiongen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Limits bounds what a caller may ask for.
type Limits struct {
	MinTextLength int `mapstructure:"min_text_length" validate:"gte=1"`
	MaxTextLength int `mapstructure:"max_text_length" validate:"gtefield=MinTextLength"`
	MaxCount      int `mapstructure:"max_count" validate:"gte=1,lte=20"`
}

// DefaultLimits returns the standard bounds: 100 to 64000 characters of
// source text and at most 10 questions.
func DefaultLimits() Limits {
	return Limits{
		MinTextLength: 100,
		MaxTextLength: 64000,
		MaxCount:      10,
	}
}

// Request asks for Count questions of Type drawn from SourceText.
type Request struct {
	SourceText string
	Type       QuestionType
	Count      int
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the request against limits. Text length is counted in
// characters, not bytes. The returned error wraps ErrInvalidRequest.
func (r Request) Validate(limits Limits) error {
	if err := validate.Struct(limits); err != nil {
		return fmt.Errorf("%w: limits: %v", ErrInvalidRequest, err)
	}

	checks := []struct {
		field string
		value any
		tag   string
	}{
		{"text", r.SourceText, fmt.Sprintf("min=%d,max=%d", limits.MinTextLength, limits.MaxTextLength)},
		{"type", string(r.Type), "oneof=shortanswer truefalse multichoice"},
		{"count", r.Count, fmt.Sprintf("min=1,max=%d", limits.MaxCount)},
	}

	var problems []string
	for _, c := range checks {
		if err := validate.Var(c.value, c.tag); err != nil {
			problems = append(problems, describe(c.field, err))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(problems, "; "))
	}
	return nil
}

func describe(field string, err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Sprintf("%s: %v", field, err)
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "min":
		if field == "text" {
			return fmt.Sprintf("text must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if field == "text" {
			return fmt.Sprintf("text must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, fe.Param())
	}
	return fmt.Sprintf("%s failed %q", field, fe.Tag())
}
