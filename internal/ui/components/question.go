package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/quizgen/internal/questiongen"
	"github.com/abhisek/quizgen/internal/ui/theme"
)

// QuestionCard renders one generated question for review.
type QuestionCard struct {
	Number   int
	Type     questiongen.QuestionType
	Question questiongen.Question
}

// View renders the card. The correct answer, when known, is highlighted
// and marked with a check.
func (c QuestionCard) View() string {
	var b strings.Builder

	header := theme.Label.Render(fmt.Sprintf("%d.", c.Number)) + " " +
		lipgloss.NewStyle().Foreground(theme.Text).Bold(true).Render(c.Question.Text)
	b.WriteString(header)
	b.WriteString("\n")

	for _, a := range c.Question.Answers {
		line := fmt.Sprintf("   %s)  %s", a.Key, a.Text)
		switch {
		case c.Type == questiongen.ShortAnswer:
			b.WriteString(theme.Body.Render(line))
		case a.Key == c.Question.Correct:
			b.WriteString(theme.Correct.Render(line + "  ✓"))
		default:
			b.WriteString(lipgloss.NewStyle().Foreground(theme.TextDim).Render(line))
		}
		b.WriteString("\n")
	}

	if c.Type == questiongen.MultipleChoice && c.Question.Correct == "" {
		b.WriteString(theme.Warning.Render("   no correct answer marked"))
		b.WriteString("\n")
	}

	return theme.Card.Render(strings.TrimRight(b.String(), "\n"))
}

// Summary renders the one-line outcome of a generate run.
func Summary(res *questiongen.Result) string {
	line := theme.Title.Render(fmt.Sprintf("%d of %d questions generated", len(res.Questions), res.Requested))
	if res.Repaired {
		line += "  " + theme.Hint.Render("(output needed JSON repair)")
	}
	if n := len(res.Dropped); n > 0 {
		line += "  " + theme.Hint.Render(fmt.Sprintf("%d element(s) dropped or altered", n))
	}
	if res.CountMismatch() {
		line += "\n" + theme.Warning.Render(fmt.Sprintf(
			"warning: requested %d questions but the model produced %d; review before saving",
			res.Requested, len(res.Questions)))
	}
	return line
}
