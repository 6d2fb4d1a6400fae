package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizgen/internal/llm"
	"github.com/abhisek/quizgen/internal/questiongen"
	"github.com/abhisek/quizgen/internal/ui/components"
	"github.com/abhisek/quizgen/internal/ui/theme"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate questions from a text file",
	Long: `Generate questions from course material read from --file (or stdin with "-").

The model is asked for exactly --count questions but may return fewer or
more; the output says so when it does. Use --json to get an editable file
for "quizgen bank save", or --save to commit the questions directly.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringP("type", "t", "shortanswer", "Question type: shortanswer, truefalse or multichoice")
	generateCmd.Flags().IntP("count", "n", 3, "Number of questions to ask for")
	generateCmd.Flags().StringP("file", "f", "", `Source text file ("-" for stdin)`)
	generateCmd.Flags().Bool("json", false, "Print questions as JSON")
	generateCmd.Flags().Bool("save", false, "Save the generated questions to the question bank")
	generateCmd.Flags().Int64("course", 0, "Course ID to save into (with --save)")
	generateCmd.Flags().Int64("user", 0, "User ID recorded as the question author (with --save)")
	_ = generateCmd.MarkFlagRequired("file")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	typeName, _ := cmd.Flags().GetString("type")
	count, _ := cmd.Flags().GetInt("count")
	file, _ := cmd.Flags().GetString("file")
	asJSON, _ := cmd.Flags().GetBool("json")
	save, _ := cmd.Flags().GetBool("save")
	courseID, _ := cmd.Flags().GetInt64("course")
	userID, _ := cmd.Flags().GetInt64("user")

	if save && courseID <= 0 {
		return errors.New("--save needs --course")
	}

	qtype, err := questiongen.ParseQuestionType(typeName)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	text, err := readSource(cmd, file)
	if err != nil {
		return err
	}

	req := questiongen.Request{
		SourceText: questiongen.SanitizeSource(text),
		Type:       qtype,
		Count:      count,
	}
	if err := req.Validate(cfg.Generation.Limits); err != nil {
		return err
	}

	s, err := openStore(cmd, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	provider, err := llm.NewProvider(ctx, cfg.LLM, s.EventRepo(), log)
	if err != nil {
		return fmt.Errorf("LLM provider: %w", err)
	}

	if cfg.LLM.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.LLM.Timeout)
		defer cancel()
	}

	res, err := questiongen.New(provider, cfg.ProcessorConfig(), log).Generate(ctx, req)
	if err != nil {
		var fe *questiongen.FormatError
		if errors.As(err, &fe) {
			fmt.Fprintln(cmd.ErrOrStderr(), theme.Failure.Render("The model did not return usable JSON. Last output:"))
			fmt.Fprintln(cmd.ErrOrStderr(), fe.Raw)
		}
		return err
	}

	if err := printResult(cmd, qtype, res, asJSON); err != nil {
		return err
	}

	if !save {
		return nil
	}
	return saveQuestions(cmd, s.QuestionRepo(), courseID, userID, qtype, res.Questions)
}

// readSource reads the source text from path, or stdin when path is "-".
func readSource(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read source text: %w", err)
	}
	return string(data), nil
}

// printResult writes the questions to stdout. In JSON mode stdout stays
// machine-readable and the count warning goes to stderr.
func printResult(cmd *cobra.Command, qtype questiongen.QuestionType, res *questiongen.Result, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res.Questions); err != nil {
			return err
		}
		if res.CountMismatch() {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: requested %d questions, got %d\n", res.Requested, len(res.Questions))
		}
	} else {
		for i, q := range res.Questions {
			fmt.Fprintln(out, components.QuestionCard{Number: i + 1, Type: qtype, Question: q}.View())
		}
		fmt.Fprintln(out, components.Summary(res))
	}
	return nil
}
