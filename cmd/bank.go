package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizgen/internal/questiongen"
	"github.com/abhisek/quizgen/internal/store"
	"github.com/abhisek/quizgen/internal/ui/theme"
)

var bankCmd = &cobra.Command{
	Use:   "bank",
	Short: "Manage the course question bank",
}

var bankSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save questions from a JSON file into a course",
	Long: `Save questions from a JSON file, usually the edited output of
"quizgen generate --json". The file is cleaned with the same rules as
model output before anything is saved.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		courseID, _ := cmd.Flags().GetInt64("course")
		userID, _ := cmd.Flags().GetInt64("user")
		typeName, _ := cmd.Flags().GetString("type")
		file, _ := cmd.Flags().GetString("file")

		if courseID <= 0 {
			return errors.New("--course must be a positive course ID")
		}
		qtype, err := questiongen.ParseQuestionType(typeName)
		if err != nil {
			return err
		}

		data, err := readSource(cmd, file)
		if err != nil {
			return err
		}
		questions, drops, err := questiongen.ParseQuestions(qtype, []byte(data))
		if err != nil {
			return err
		}
		for _, d := range drops {
			fmt.Fprintf(cmd.ErrOrStderr(), "element %d: %s\n", d.Index, d.Reason)
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		s, err := openStore(cmd, cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		return saveQuestions(cmd, s.QuestionRepo(), courseID, userID, qtype, questions)
	},
}

var bankListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the questions saved for a course",
	RunE: func(cmd *cobra.Command, args []string) error {
		courseID, _ := cmd.Flags().GetInt64("course")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		s, err := openStore(cmd, cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		qs, err := s.QuestionRepo().List(cmd.Context(), courseID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(qs) == 0 {
			fmt.Fprintf(out, "No questions saved for course %d.\n", courseID)
			return nil
		}

		fmt.Fprintf(out, "%-5s  %-12s  %-19s  %s\n", "ID", "Type", "Created", "Question")
		fmt.Fprintln(out, strings.Repeat("─", 80))
		for _, q := range qs {
			fmt.Fprintf(out, "%-5d  %-12s  %-19s  %s\n",
				q.ID, q.QType, q.CreatedAt.Local().Format("2006-01-02 15:04:05"), truncate(q.Name, 40))
		}
		return nil
	},
}

var bankShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a saved question and its stored form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid ID %q: %w", args[0], err)
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		s, err := openStore(cmd, cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		q, err := s.QuestionRepo().Get(cmd.Context(), id)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ID:        %d\n", q.ID)
		fmt.Fprintf(out, "Type:      %s\n", q.QType)
		fmt.Fprintf(out, "Category:  %d\n", q.CategoryID)
		fmt.Fprintf(out, "Status:    %s\n", q.Status)
		fmt.Fprintf(out, "Stamp:     %s\n", q.Stamp)
		fmt.Fprintf(out, "Author:    %d\n", q.CreatedBy)
		fmt.Fprintf(out, "Created:   %s\n", q.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "Question:  %s\n\n", q.QuestionText)

		var form any
		if err := json.Unmarshal([]byte(q.Form), &form); err != nil {
			fmt.Fprintln(out, q.Form)
			return nil
		}
		pretty, _ := json.MarshalIndent(form, "", "  ")
		fmt.Fprintln(out, string(pretty))
		return nil
	},
}

func init() {
	bankSaveCmd.Flags().Int64("course", 0, "Course ID to save into")
	bankSaveCmd.Flags().Int64("user", 0, "User ID recorded as the question author")
	bankSaveCmd.Flags().StringP("type", "t", "", "Question type: shortanswer, truefalse or multichoice")
	bankSaveCmd.Flags().StringP("file", "f", "", `JSON file of questions ("-" for stdin)`)
	_ = bankSaveCmd.MarkFlagRequired("type")
	_ = bankSaveCmd.MarkFlagRequired("file")

	bankListCmd.Flags().Int64("course", 0, "Course ID")
	_ = bankListCmd.MarkFlagRequired("course")

	bankCmd.AddCommand(bankSaveCmd)
	bankCmd.AddCommand(bankListCmd)
	bankCmd.AddCommand(bankShowCmd)
}

// saveQuestions commits each question in order. A multiple choice question
// without a correct answer is skipped with a warning; any other failure
// stops the run.
func saveQuestions(cmd *cobra.Command, repo store.QuestionRepo, courseID, userID int64, qtype questiongen.QuestionType, questions []questiongen.Question) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	var saved, skipped int
	for i, q := range questions {
		id, err := repo.Save(ctx, toSaveInput(courseID, userID, qtype, q))
		if errors.Is(err, store.ErrMissingCorrect) {
			skipped++
			fmt.Fprintln(cmd.ErrOrStderr(), theme.Warning.Render(
				fmt.Sprintf("skipping question %d (%q): no correct answer marked", i+1, truncate(q.Text, 40))))
			continue
		}
		if err != nil {
			return fmt.Errorf("save question %d: %w", i+1, err)
		}
		saved++
		fmt.Fprintf(out, "saved question %d as #%d\n", i+1, id)
	}

	msg := fmt.Sprintf("Saved %d question(s) to course %d.", saved, courseID)
	if skipped > 0 {
		msg += fmt.Sprintf(" Skipped %d.", skipped)
	}
	fmt.Fprintln(out, theme.Correct.Render(msg))
	return nil
}

func toSaveInput(courseID, userID int64, qtype questiongen.QuestionType, q questiongen.Question) store.SaveInput {
	answers := make([]store.BankAnswer, 0, len(q.Answers))
	for _, a := range q.Answers {
		answers = append(answers, store.BankAnswer{Key: string(a.Key), Text: a.Text})
	}
	return store.SaveInput{
		CourseID:  courseID,
		Type:      qtype.String(),
		CreatedBy: userID,
		Text:      q.Text,
		Answers:   answers,
		Correct:   string(q.Correct),
	}
}
